package errors

// ErrorCode represents a machine-readable error identifier returned to API clients.
type ErrorCode string

// Authentication and authorization
const (
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	ErrCodeForbidden    ErrorCode = "forbidden"
)

// Validation Errors (Request input validation)
const (
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeMissingField    ErrorCode = "missing_field"
	ErrCodeInvalidField    ErrorCode = "invalid_field"
	ErrCodeInvalidRole     ErrorCode = "invalid_role"
	ErrCodeInvalidAmount   ErrorCode = "invalid_amount"
)

// Resource errors
const (
	ErrCodeNotFound              ErrorCode = "not_found"
	ErrCodeAdvertisementNotFound ErrorCode = "advertisement_not_found"
	ErrCodeRequestInProgress     ErrorCode = "request_in_progress"
)

// Throttling
const (
	ErrCodeRateLimited ErrorCode = "rate_limited"
)

// External Service Errors
const (
	ErrCodeStripeError ErrorCode = "stripe_error"
)

// Internal/System Errors
const (
	ErrCodeInternalError ErrorCode = "internal_error"
	ErrCodeDatabaseError ErrorCode = "database_error"
	ErrCodeConfigError   ErrorCode = "config_error"
)

// IsRetryable returns whether an error code represents a transient failure.
func (e ErrorCode) IsRetryable() bool {
	switch e {
	case ErrCodeStripeError,
		ErrCodeDatabaseError,
		ErrCodeRateLimited,
		ErrCodeRequestInProgress:
		return true
	default:
		return false
	}
}

// HTTPStatus returns the appropriate HTTP status code for this error.
func (e ErrorCode) HTTPStatus() int {
	switch e {
	case ErrCodeInvalidArgument,
		ErrCodeMissingField,
		ErrCodeInvalidField,
		ErrCodeInvalidRole,
		ErrCodeInvalidAmount:
		return 400

	case ErrCodeUnauthorized:
		return 401

	case ErrCodeForbidden:
		return 403

	case ErrCodeNotFound,
		ErrCodeAdvertisementNotFound:
		return 404

	case ErrCodeRequestInProgress:
		return 409

	case ErrCodeRateLimited:
		return 429

	case ErrCodeStripeError:
		return 502

	default:
		return 500
	}
}
