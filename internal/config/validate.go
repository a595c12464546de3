package config

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
)

// validate is a package-level singleton; building a validator is expensive.
var validate = newValidator()

var cIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report YAML key paths (runtime.cache_size) instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "nonul", func(fl validator.FieldLevel) bool {
		return !strings.ContainsRune(fl.Field().String(), 0)
	})
	mustRegister(v, "cident", func(fl validator.FieldLevel) bool {
		return cIdentifier.MatchString(fl.Field().String())
	})
	mustRegister(v, "duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("config: register %s validation: %v", tag, err))
	}
}

// Validate checks the configuration. The returned error is an
// ERR_102_CONFIG_INVALID naming the first offending key.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return invalidError("invalid configuration", err)
	}

	fe := verrs[0]
	key := fieldKey(fe.Namespace())
	be := invalidError(fmt.Sprintf("invalid configuration: %s %s", key, describe(fe)), err).
		WithDetail("field", key)
	if fe.Value() != nil {
		be = be.WithDetail("value", fmt.Sprintf("%v", fe.Value()))
	}
	return be
}

// fieldKey strips the root type from a validator namespace:
// "Config.runtime.cache_size" -> "runtime.cache_size".
func fieldKey(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "nonul":
		return "must not contain NUL bytes"
	case "cident":
		return "must be a C identifier"
	case "duration":
		return "must be a non-negative Go duration such as 200ms"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func invalidError(msg string, cause error) *bridgeerrors.BridgeError {
	return bridgeerrors.ConfigError(msg, cause).
		WithSuggestion("Run 'ffibridge config schema' to see valid keys and values")
}

func notFoundError(path string) *bridgeerrors.BridgeError {
	return bridgeerrors.New(bridgeerrors.ErrCodeConfigNotFound, "config file not found: "+path, nil).
		WithSuggestion("Run 'ffibridge config init' to create one")
}
