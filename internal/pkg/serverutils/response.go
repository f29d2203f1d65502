package serverutils

// BaseResponse is the envelope of every JSON reply.
type BaseResponse[T any] struct {
	Status  string `json:"status"` // "success" or "error"
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](message string, data T) *BaseResponse[T] {
	return &BaseResponse[T]{
		Status:  "success",
		Code:    200,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(code int, message string) *BaseResponse[any] {
	return &BaseResponse[any]{
		Status:  "error",
		Code:    code,
		Message: message,
	}
}
