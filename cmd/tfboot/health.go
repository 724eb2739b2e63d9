package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/tfboot/internal/service"
)

var errUnhealthy = errors.New("terraform health probe failed")

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run the terraform health probe once and print the status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.shutdown(context.WithoutCancel(cmd.Context()))

			status := a.health.Check(cmd.Context())
			data, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to render health JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))

			if status.HealthStatus != service.HealthOK {
				return errUnhealthy
			}
			return nil
		},
	}
}
