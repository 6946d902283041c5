package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the stable failure category callers branch on.
type Code string

const (
	CodeNotFound                Code = "NOT_FOUND"
	CodeForbidden               Code = "FORBIDDEN"
	CodeConflict                Code = "CONFLICT"
	CodeValidation              Code = "VALIDATION"
	CodeExternalServiceDegraded Code = "EXTERNAL_SERVICE_DEGRADED"
)

// Machine-readable reasons. They are part of the API contract.
const (
	ReasonDonationNotFound       = "DONATION_NOT_FOUND"
	ReasonRequestNotFound        = "REQUEST_NOT_FOUND"
	ReasonNotificationNotFound   = "NOTIFICATION_NOT_FOUND"
	ReasonNotDonationOwner       = "NOT_DONATION_OWNER"
	ReasonNotRequester           = "NOT_REQUESTER"
	ReasonOwnDonation            = "CANNOT_REQUEST_OWN_DONATION"
	ReasonDonationUnavailable    = "DONATION_UNAVAILABLE"
	ReasonDonationDelivered      = "DONATION_DELIVERED"
	ReasonDonationCancelled      = "DONATION_CANCELLED"
	ReasonDonationReserved       = "DONATION_ALREADY_RESERVED"
	ReasonDuplicatePending       = "DUPLICATE_PENDING_REQUEST"
	ReasonInvalidTransition      = "INVALID_STATUS_TRANSITION"
	ReasonConcurrentModification = "CONCURRENT_MODIFICATION"
	ReasonInvalidQuantity        = "INVALID_QUANTITY"
	ReasonInvalidPayload         = "INVALID_PAYLOAD"
	ReasonInvalidSchedule        = "INVALID_PICKUP_SCHEDULE"
	ReasonMissingReferencePoint  = "MISSING_REFERENCE_POINT"
	ReasonInvalidPage            = "INVALID_PAGE"
	ReasonGeocodingUnavailable   = "GEOCODING_UNAVAILABLE"
	ReasonAddressNotFound        = "ADDRESS_NOT_FOUND"
	ReasonUnauthenticated        = "UNAUTHENTICATED"
)

// Error is a business failure. Services return it for expected conditions;
// anything else reaching the HTTP boundary is an unexpected fault.
type Error struct {
	Code    Code                   `json:"code"`
	Reason  string                 `json:"reason"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the code to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	case CodeValidation:
		return http.StatusBadRequest
	case CodeExternalServiceDegraded:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

func New(code Code, reason, message string) *Error {
	return &Error{Code: code, Reason: reason, Message: message}
}

func NotFound(reason, message string) *Error {
	return New(CodeNotFound, reason, message)
}

func Forbidden(reason, message string) *Error {
	return New(CodeForbidden, reason, message)
}

func Conflict(reason, message string) *Error {
	return New(CodeConflict, reason, message)
}

func Validation(reason, message string) *Error {
	return New(CodeValidation, reason, message)
}

func Degraded(reason, message string, cause error) *Error {
	return New(CodeExternalServiceDegraded, reason, message).WithCause(cause)
}

// As extracts an *Error from the chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// ReasonOf returns the reason of an *Error in the chain, or "".
func ReasonOf(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Reason
	}
	return ""
}
