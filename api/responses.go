package api

const (
	ErrCodeUnknown          = "B_UNKNOWN"
	ErrCodeNotFound         = "B_NOT_FOUND"
	ErrCodeBadRequest       = "B_BAD_REQUEST"
	ErrCodeUnauthorized     = "B_UNAUTHORIZED"
	ErrCodeMethodNotAllowed = "B_METHOD_NOT_ALLOWED"
	ErrCodeTooLarge         = "B_TOO_LARGE"
)

type EmptyResponse struct{}

type DoNotCacheResponse struct {
	Payload interface{}
}

type ErrorResponse struct {
	Code    string `json:"errcode"`
	Message string `json:"error"`
}

func InternalServerError(message string) *ErrorResponse {
	return &ErrorResponse{ErrCodeUnknown, message}
}

func MethodNotAllowed() *ErrorResponse {
	return &ErrorResponse{ErrCodeMethodNotAllowed, "Method Not Allowed"}
}

func NotFoundError() *ErrorResponse {
	return &ErrorResponse{ErrCodeNotFound, "Not found"}
}

func RequestTooLarge() *ErrorResponse {
	return &ErrorResponse{ErrCodeTooLarge, "Too Large"}
}

func AuthFailed() *ErrorResponse {
	return &ErrorResponse{ErrCodeUnauthorized, "Authentication Failed"}
}

func BadRequest(message string) *ErrorResponse {
	return &ErrorResponse{ErrCodeBadRequest, message}
}
