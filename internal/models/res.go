package models

type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type ApiResponse struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message,omitempty"`
	Data      interface{}  `json:"data,omitempty"`
	Error     string       `json:"error,omitempty"`
	Errors    []FieldError `json:"errors,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	Page      int          `json:"page,omitempty"`
	Limit     int          `json:"limit,omitempty"`
	Total     int64        `json:"total,omitempty"`
}

func SuccessResponse(data interface{}, message string) ApiResponse {
	return ApiResponse{
		Success: true,
		Data:    data,
		Message: message,
	}
}

func ErrorResponse(err string) ApiResponse {
	return ApiResponse{
		Success: false,
		Error:   err,
	}
}

func ErrorListResponse(message string, errs []FieldError) ApiResponse {
	return ApiResponse{
		Success: false,
		Error:   message,
		Errors:  errs,
	}
}

func PaginatedResponse(data interface{}, page, limit int, total int64) ApiResponse {
	return ApiResponse{
		Success: true,
		Data:    data,
		Page:    page,
		Limit:   limit,
		Total:   total,
	}
}
