package wscutils

// Error codes shared across services. Codes specific to one service are
// defined in that service's package.
const (
	ErrcodeUnknown            = "unknown"
	ErrcodeInvalidRequest     = "invalid_request"
	ErrcodeInvalidJson        = "invalid_json"
	ErrcodeDatabaseError      = "database_error"
	ErrcodeRequestUserInvalid = "request_user_invalid"
	ErrcodeMissing            = "missing"
	ErrcodeRequestTimeout     = "request_timeout"
)
