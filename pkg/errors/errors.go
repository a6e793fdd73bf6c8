// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrCountryNotFound     = errors.New("country not found")
	ErrCountryExists       = errors.New("country already exists")
	ErrDepositNotFound     = errors.New("deposit not found")
	ErrDepositSettled      = errors.New("deposit already settled")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrActorUnauthorized   = errors.New("actor not authorized")
	ErrInvalidAmount       = errors.New("amount must be a positive value with at most two decimal places")
	ErrInvalidReason       = errors.New("unrecognized adjustment reason")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// Settings errors
	ErrSettingsNotFound = errors.New("payment settings not found")
	ErrStaleRevision    = errors.New("settings were modified by another request, reload and retry")
	ErrInvalidUPI       = errors.New("invalid UPI id")
	ErrInvalidChannel   = errors.New("channel link must start with https://t.me/")
	ErrInvalidHandle    = errors.New("owner handle must start with @")
	ErrPlaceholderValue = errors.New("placeholder value rejected")
	ErrDuplicateRequest = errors.New("duplicate request")

	// Webhook / platform errors
	ErrPlatformUnreachable = errors.New("telegram platform unreachable")

	// File upload errors
	ErrFileTooLarge       = errors.New("file too large")
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
