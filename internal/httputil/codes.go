package httputil

// Machine-readable error codes sent in the "code" field of error bodies.
const (
	CodeInternalError      = "internal_error"
	CodeInvalidRequestBody = "invalid_request_body"
	CodeTooManyRequests    = "too_many_requests"
	CodeCooldownActive     = "cooldown_active"
	CodeMissingAuth        = "not_authenticated"
	CodeInvalidAuthHeader  = "invalid_auth_header"
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = "token_expired"
	CodePermissionDenied   = "permission_denied"
	CodeNotFound           = "not_found"
	CodeInvalidID          = "invalid_id"
	CodeStorageDisabled    = "storage_disabled"
	CodeInvalidImage       = "invalid_image"
	CodeInvalidEmail       = "invalid_email"
)
