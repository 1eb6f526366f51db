package httputil

// Machine-readable error codes returned alongside error messages so clients
// can branch without parsing English.
const (
	CodeInvalidRequestBody = "invalid_request_body"
	CodeMissingField       = "missing_field"
	CodeMissingAuth        = "missing_auth"
	CodeInvalidAuthHeader  = "invalid_auth_header"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInactiveAccount    = "inactive_account"
	CodeAlreadyExists      = "already_exists"
	CodeNotFound           = "not_found"
	CodeTooManyRequests    = "too_many_requests"
	CodeCooldownActive     = "cooldown_active"
	CodeInternalError      = "internal_error"
)
