package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	// ErrSchemaMismatch indicates a file that parsed as YAML but does not fit the target record.
	ErrSchemaMismatch = errors.New("config does not match schema")
	// ErrInvalidProfile indicates an active profile name that is not a plain file name component.
	ErrInvalidProfile = errors.New("invalid profile name")
)

var validate = newValidator()

// newValidator reports fields by their YAML names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// loadFile decodes the YAML file at path into a T.
//
// A missing file or unparsable content yields (nil, false, nil) so callers can
// treat the file as absent. An unreadable file or a document whose shape does
// not match T is returned as an error; both are startup-fatal.
func loadFile[T any](path string, logger *zap.Logger) (*T, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("config file not found", zap.String("path", path))
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read config %s: %w", path, err)
	}

	var out T
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&out); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return nil, false, fmt.Errorf("%w: %s: %v", ErrSchemaMismatch, path, err)
		}
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
		logger.Info("config file could not be parsed", zap.String("path", path), zap.Error(err))
		return nil, false, nil
	}

	if err := validate.Struct(&out); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %s", ErrSchemaMismatch, path, describeValidation(err))
	}

	return &out, true, nil
}

// describeValidation flattens validator errors into "field is required" style messages.
func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}

	var buf bytes.Buffer
	for i, fe := range fieldErrs {
		if i > 0 {
			buf.WriteString("; ")
		}
		switch fe.Tag() {
		case "required":
			fmt.Fprintf(&buf, "%s is required", fe.Namespace())
		default:
			fmt.Fprintf(&buf, "%s failed %q check", fe.Namespace(), fe.Tag())
		}
	}
	return buf.String()
}
