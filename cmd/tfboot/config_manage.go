package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/tfboot/internal/config"
	"github.com/mattjoyce/tfboot/internal/doctor"
)

var errConfigInvalid = errors.New("configuration has errors")

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and protect the configuration file",
	}
	cmd.AddCommand(newConfigCheckCmd(opts), newConfigLockCmd(opts))
	return cmd
}

func newConfigCheckCmd(opts *rootOptions) *cobra.Command {
	var jsonOut, strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and the runtime environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			res := doctor.New(cfg).Validate()
			out := cmd.OutOrStdout()
			if jsonOut {
				rendered, err := doctor.FormatJSON(res)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, rendered)
			} else {
				fmt.Fprint(out, doctor.FormatHuman(res))
			}

			if !res.Valid || (strict && len(res.Warnings) > 0) {
				return errConfigInvalid
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the report as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	return cmd
}

func newConfigLockCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lock [file]",
		Short: "Record the BLAKE3 hash of the configuration file in .checksums",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no configuration file given (use --config or pass a path)")
			}

			manifest, err := config.Lock(path)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(manifest.Hashes))
			for name := range manifest.Hashes {
				names = append(names, name)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Updated %s (%s)\n", config.ChecksumFile, manifest.GeneratedAt)
			for _, name := range names {
				fmt.Fprintf(out, "  %s  %s\n", manifest.Hashes[name], name)
			}
			return nil
		},
	}
}
