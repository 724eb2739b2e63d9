package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = newStructValidator()

// newStructValidator reports fields by their YAML keys.
func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and cross-field rules.
func Validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fieldPath(fe), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if cfg.Workspace.Retention > 0 && cfg.Workspace.SweepInterval <= 0 {
		return fmt.Errorf("workspace.sweep_interval must be positive when workspace.retention is set")
	}

	for name, value := range map[string]string{
		"api.api_key":    cfg.API.APIKey,
		"webhook.secret": cfg.Webhook.Secret,
	} {
		if matches := envVarPattern.FindStringSubmatch(value); matches != nil {
			return fmt.Errorf("%s references undefined environment variable %s", name, matches[1])
		}
	}
	return nil
}

// fieldPath converts "Config.api.max_body_size" into "api.max_body_size".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}
