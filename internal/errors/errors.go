// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrReminderNotFound is a sentinel error
type ErrReminderNotFound struct {
	ReminderID int
	ExternalID string
}

func (e *ErrReminderNotFound) Error() string {
	if e.ExternalID != "" {
		return fmt.Sprintf("reminder with external ID %q not found", e.ExternalID)
	}
	return fmt.Sprintf("reminder with ID %d not found", e.ReminderID)
}

// Helper constructors
func NewReminderNotFound(id int) error {
	return &ErrReminderNotFound{ReminderID: id}
}

func NewReminderNotFoundByExternalID(externalID string) error {
	return &ErrReminderNotFound{ExternalID: externalID}
}

type ErrAccountNotFound struct {
	AccountID int
}

func (e *ErrAccountNotFound) Error() string {
	return fmt.Sprintf("account with ID %d not found", e.AccountID)
}

func NewAccountNotFound(id int) error {
	return &ErrAccountNotFound{AccountID: id}
}

// ValidationError carries per-field messages for a rejected settings update.
// The whole update is rejected; no field is persisted.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid settings: " + strings.Join(parts, "; ")
}

func NewValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}

func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// ErrUnknownEventType signals a callback event the state machine does not
// recognize. Rejected rather than dropped.
type ErrUnknownEventType struct {
	EventType string
}

func (e *ErrUnknownEventType) Error() string {
	return fmt.Sprintf("unknown callback event type %q", e.EventType)
}

func NewUnknownEventType(eventType string) error {
	return &ErrUnknownEventType{EventType: eventType}
}

func IsUnknownEventType(err error) bool {
	var ue *ErrUnknownEventType
	return errors.As(err, &ue)
}

// PermanentDeliveryError marks a dispatch failure that must never be retried,
// e.g. a malformed phone number.
type PermanentDeliveryError struct {
	Reason string
}

func (e *PermanentDeliveryError) Error() string {
	return "permanent delivery failure: " + e.Reason
}

func NewPermanentDelivery(reason string) error {
	return &PermanentDeliveryError{Reason: reason}
}

func IsPermanentDelivery(err error) bool {
	var pe *PermanentDeliveryError
	return errors.As(err, &pe)
}

// TransientDeliveryError marks a dispatch failure subject to the retry policy.
type TransientDeliveryError struct {
	Reason      string
	RateLimited bool
}

func (e *TransientDeliveryError) Error() string {
	return "transient delivery failure: " + e.Reason
}

func NewTransientDelivery(reason string) error {
	return &TransientDeliveryError{Reason: reason}
}

func NewRateLimited(reason string) error {
	return &TransientDeliveryError{Reason: reason, RateLimited: true}
}

func IsRateLimited(err error) bool {
	var te *TransientDeliveryError
	return errors.As(err, &te) && te.RateLimited
}
