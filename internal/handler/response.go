package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fleetops/internal/repository"
	"fleetops/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PaginatedResponse wraps a page of results.
type PaginatedResponse struct {
	Items    any `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidIncidentID),
		errors.Is(err, service.ErrInvalidIncidentType),
		errors.Is(err, service.ErrInvalidSeverity),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrMissingDescription),
		errors.Is(err, service.ErrMissingResolutionNotes),
		errors.Is(err, service.ErrIncidentDriverMismatch):
		return http.StatusBadRequest

	// User-actionable money error
	case errors.Is(err, service.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity

	// Conflict errors - the caller must not retry blindly
	case errors.Is(err, service.ErrIncidentResolved),
		errors.Is(err, service.ErrSeverityAtMaximum),
		errors.Is(err, service.ErrDuplicateDeduction),
		errors.Is(err, repository.ErrDuplicateReference):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
