package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks bad input or a transition the state graph rejects.
	ErrValidation = errors.New("validation error")
	// ErrBusy means the per-submission lock could not be taken within the retry bound.
	ErrBusy = errors.New("busy, retry")
	// ErrStorageUnavailable marks an unreachable or unwritable data or projects root.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrIntegrity marks a store that holds contradictory or unreadable records.
	ErrIntegrity = errors.New("integrity error")
	ErrNotFound  = errors.New("not found")
	// ErrConfiguration marks missing or invalid settings.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIntegrity
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the caller may retry the same operation unchanged.
func Retryable(err error) bool {
	return errors.Is(err, ErrBusy)
}

// Reason returns the short user-facing text for a classified error.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBusy):
		return "busy, retry"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage unavailable"
	case errors.Is(err, ErrIntegrity):
		return "data integrity problem"
	case errors.Is(err, ErrConfiguration):
		return "configuration error"
	case errors.Is(err, ErrValidation):
		return lastSegment(err.Error())
	default:
		return err.Error()
	}
}

func lastSegment(msg string) string {
	idx := strings.LastIndex(msg, ": ")
	if idx < 0 {
		return msg
	}
	return strings.TrimSpace(msg[idx+2:])
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
