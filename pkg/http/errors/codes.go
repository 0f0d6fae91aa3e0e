package errors

// Error codes for standardized error responses
const (
	// Session token errors
	ErrCodeInvalidToken = "invalid_token"
	ErrCodeTokenExpired = "token_expired"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"

	// Resource errors
	ErrCodePackageNotFound = "package_not_found"
	ErrCodeSessionNotFound = "session_not_found"
	ErrCodeInvalidID       = "invalid_id"

	// Session errors
	ErrCodeUnknownAttribute = "unknown_attribute"
	ErrCodeEmptyPool        = "empty_pool"
	ErrCodeNotInitialized   = "not_initialized"
	ErrCodeModeMismatch     = "mode_mismatch"
	ErrCodeTooManySessions  = "too_many_sessions"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)
