package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against the struct validation tags
// and cross-field rules, returning a user-facing error listing every
// violated field.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return err
		}

		msgs := make([]string, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			msgs = append(msgs, describeFieldError(fieldErr))
		}
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(msgs, "\n  - "))
	}

	if cfg.Payload.Type == "s3" {
		if cfg.Payload.S3.Bucket == "" {
			return fmt.Errorf("invalid configuration:\n  - payload.s3.bucket is required for the s3 backend")
		}
		if cfg.Payload.S3.Region == "" && cfg.Payload.S3.Endpoint == "" {
			return fmt.Errorf("invalid configuration:\n  - payload.s3 needs a region or an endpoint")
		}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Namespace())
	field = strings.TrimPrefix(field, "config.")

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_if":
		return fmt.Sprintf("%s is required for this backend", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
