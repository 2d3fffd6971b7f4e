package handler

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the envelope every endpoint answers with. Verdicts travel in
// Data; Message is only set on errors.
type Response struct {
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: StatusSuccess,
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  StatusError,
		Message: message,
	}
}

// WithRequestID tags r so a client can quote the id when reporting a failure.
func (r *Response) WithRequestID(id string) *Response {
	r.RequestID = id
	return r
}
