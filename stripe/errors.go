package stripe

import (
	"errors"
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v81"
)

// StripeError represents a Stripe-specific error
type StripeError struct {
	Code    string
	Message string
	Err     error
}

func (e *StripeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stripe error [%s]: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("stripe error [%s]: %s", e.Code, e.Message)
}

func (e *StripeError) Unwrap() error {
	return e.Err
}

// Is matches any StripeError with the same code.
func (e *StripeError) Is(target error) bool {
	t, ok := target.(*StripeError)
	return ok && t.Code == e.Code
}

func (e *StripeError) withDetail(detail string) *StripeError {
	return &StripeError{Code: e.Code, Message: e.Message + ": " + detail}
}

// Common Stripe errors
var (
	ErrInvalidEvent         = &StripeError{Code: "invalid_event", Message: "invalid webhook event"}
	ErrInvalidConfiguration = &StripeError{Code: "invalid_configuration", Message: "invalid stripe configuration"}
	ErrAPICallFailed        = &StripeError{Code: "api_call_failed", Message: "stripe API call failed"}
	ErrWebhookValidation    = &StripeError{Code: "webhook_validation", Message: "webhook signature validation failed"}
	ErrWebhookDisabled      = &StripeError{Code: "webhook_disabled", Message: "webhook secret not configured"}
)

// NewStripeError creates a new StripeError with the given code, message, and underlying error
func NewStripeError(code, message string, err error) *StripeError {
	return &StripeError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ProviderMessage returns the message reported by the Stripe API for err.
// Errors that never reached the API (network failures, timeouts) return the
// message of the underlying error, and a nil error returns "".
func ProviderMessage(err error) string {
	var apiErr *stripeapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Msg
	}
	var stripeErr *StripeError
	if errors.As(err, &stripeErr) && stripeErr.Err != nil {
		return stripeErr.Err.Error()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
