package response

// Response represents a standard API response format
type Response struct {
	Status      string       `json:"status"`      // "success" or "error"
	StatusCode  int          `json:"status_code"` // HTTP status code
	Data        interface{}  `json:"data,omitempty"`
	Error       string       `json:"error,omitempty"`
	ErrorDetail *ErrorDetail `json:"error_detail,omitempty"`
}

// ErrorDetail lets a client branch on the failure without parsing the message.
type ErrorDetail struct {
	Kind   string         `json:"kind"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Page wraps a list endpoint's rows with its paging position
type Page struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// Detailed is Error plus a machine-readable kind and fields.
func Detailed(statusCode int, err, kind string, fields map[string]any) Response {
	r := Error(statusCode, err)
	r.ErrorDetail = &ErrorDetail{Kind: kind, Fields: fields}
	return r
}
