package handler

// Response is the envelope for every 2xx body and for the inline 4xx paths
// where gin binding fails before an error reaches the error middleware.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func NewSuccessResponse(data any) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

// NewMessageResponse is a success with no data, just a human-readable note.
func NewMessageResponse(message string) *Response {
	return &Response{
		Status:  "success",
		Message: message,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}
