package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrResolution    = errors.New("resolution error")
	ErrNotFound      = errors.New("not found")
	ErrUpstream      = errors.New("upstream error")
	ErrConversion    = errors.New("conversion error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrUpstream
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short machine-readable label for the error's marker.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrResolution):
		return "resolution"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrConversion):
		return "conversion"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "internal"
	}
}

// ExitCode maps an error to the process exit status reported by the CLI.
func ExitCode(err error) int {
	switch Kind(err) {
	case "":
		return 0
	case "resolution":
		return 2
	case "not_found":
		return 3
	case "upstream":
		return 4
	case "conversion":
		return 5
	default:
		return 1
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
