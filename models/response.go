package models

// Response represents a generic API response structure.
type Response struct {
	Success      int         `json:"success"`
	ErrorCode    string      `json:"error_code,omitempty"`
	ErrorDetails string      `json:"error_details,omitempty"`
	Data         interface{} `json:"data,omitempty"`
}

// ErrorResponse builds a failed Response carrying a category code and a human
// readable message.
func ErrorResponse(code, details string) Response {
	return Response{Success: 0, ErrorCode: code, ErrorDetails: details}
}
