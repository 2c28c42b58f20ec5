package app

import (
	"fmt"
	"net/http"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string, details any) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, details)
}

// noopError reports a write that would leave the document as it is.
func noopError(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "NOOP", message, nil)
}

func versionConflict(baseVersion, currentVersion int) *DomainError {
	return domainError(http.StatusConflict, "VERSION_CONFLICT", "Document has changed since baseVersion", map[string]any{
		"baseVersion":    baseVersion,
		"currentVersion": currentVersion,
	})
}
