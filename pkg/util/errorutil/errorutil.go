package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewMissingConfiguration reports an absent required setting. Not retried.
func NewMissingConfiguration(setting string) error {
	return &DomainError{
		Code:       "CONFIGURATION_MISSING",
		Message:    fmt.Sprintf("required setting %s is not configured", setting),
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewUpstreamAuthError reports a failed credential exchange after retries.
func NewUpstreamAuthError(err error) error {
	return &DomainError{
		Code:       "UPSTREAM_AUTH_FAILED",
		Message:    "mail provider credential exchange failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewSenderUnresolved reports exhaustion of all sender identity lookups.
func NewSenderUnresolved(address string, err error) error {
	return &DomainError{
		Code:       "SENDER_UNRESOLVED",
		Message:    fmt.Sprintf("sender identity for %s could not be resolved", address),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"sender": address},
		Err:        err,
	}
}

// NewNoRecipients reports an empty target set. Retrying will not help.
func NewNoRecipients(ticketID string) error {
	return &DomainError{
		Code:       "NO_RECIPIENTS",
		Message:    "no valid recipients for notification",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"ticket_id": ticketID},
	}
}

// NewDeliveryError reports an exhausted transient-retry budget.
func NewDeliveryError(err error) error {
	return &DomainError{
		Code:       "DELIVERY_FAILED",
		Message:    "mail delivery failed after retries",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
