package dto

// Response is the envelope of every JSON body the API writes, except the
// webhook acknowledgement and /health
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo is the error member of a failed Response. RequestID lets a
// caller quote the failing request.
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail is one rejected request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Meta describes the page a list response carries
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// OK wraps data in a success envelope
func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Paged wraps one page of a list. A non-positive pageSize counts as 1.
func Paged(data any, total int64, page, pageSize int) Response {
	pageSize = max(pageSize, 1)
	return Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
}

// Fail builds an error envelope
func Fail(code, message, requestID string) Response {
	return Response{Error: &ErrorInfo{Code: code, Message: message, RequestID: requestID}}
}

// Invalid builds the 400 envelope listing each rejected field
func Invalid(requestID string, details []ValidationDetail) Response {
	resp := Fail(ErrCodeValidation, "Request validation failed", requestID)
	resp.Error.Details = details
	return resp
}
