// Package config handles configuration loading, validation, and management for keyremapd.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "config.schema.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add config schema: %w", err)
	}
	return compiler.Compile(schemaURL)
})

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateDocument checks a decoded document against the embedded JSON
// schema. doc may come from any of the supported formats; it is
// normalized through JSON first.
func ValidateDocument(doc any) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}

	err = schema.Validate(instance)
	var verr *jsonschema.ValidationError
	if errors.As(err, &verr) {
		var errs ValidationErrors
		collectSchemaErrors(verr, &errs)
		return errs
	}
	return err
}

func collectSchemaErrors(e *jsonschema.ValidationError, out *ValidationErrors) {
	if len(e.Causes) == 0 {
		field := strings.TrimPrefix(e.InstanceLocation, "/")
		if field == "" {
			field = "(root)"
		}
		*out = append(*out, ValidationError{
			Field:   strings.ReplaceAll(field, "/", "."),
			Message: e.Message,
		})
		return
	}
	for _, cause := range e.Causes {
		collectSchemaErrors(cause, out)
	}
}

// ValidateConfig performs semantic validation of a decoded configuration.
// Key names are not resolved here; unknown names are reported when the
// remap table is built.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	if strings.TrimSpace(c.TargetApplication) == "" {
		errs = append(errs, ValidationError{
			Field:   "target_application",
			Message: "must not be empty",
		})
	}

	if c.FocusIntervalMs < 100 || c.FocusIntervalMs > 60000 {
		errs = append(errs, ValidationError{
			Field:   "focus_interval_ms",
			Message: fmt.Sprintf("must be between 100 and 60000, got %d", c.FocusIntervalMs),
		})
	}

	seen := make(map[string]int, len(c.Mappings))
	for i, m := range c.Mappings {
		field := fmt.Sprintf("mappings.%d", i)
		from := strings.ToUpper(strings.TrimSpace(m.From))
		to := strings.ToUpper(strings.TrimSpace(m.To))
		if from == "" {
			errs = append(errs, ValidationError{Field: field + ".from", Message: "must not be empty"})
		}
		if to == "" {
			errs = append(errs, ValidationError{Field: field + ".to", Message: "must not be empty"})
		}
		if from == "" {
			continue
		}
		if prev, dup := seen[from]; dup {
			errs = append(errs, ValidationError{
				Field:   field + ".from",
				Message: fmt.Sprintf("%q is already mapped by mappings.%d", from, prev),
			})
			continue
		}
		seen[from] = i
	}

	errs = append(errs, validateLogging(&c.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", l.Level)})
	}
	switch strings.ToLower(l.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, ValidationError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", l.Format)})
	}
	switch strings.ToLower(l.Output) {
	case "", "stdout", "stderr", "file", "both":
	default:
		errs = append(errs, ValidationError{Field: "logging.output", Message: fmt.Sprintf("unknown output %q", l.Output)})
	}
	if l.MaxSizeMB < 0 {
		errs = append(errs, ValidationError{Field: "logging.max_size_mb", Message: "must not be negative"})
	}
	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{Field: "logging.max_backups", Message: "must not be negative"})
	}
	return errs
}
