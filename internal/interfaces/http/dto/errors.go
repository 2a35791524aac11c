package dto

import (
	"net/http"

	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
)

// Error codes used only by the HTTP layer. Domain codes come from the
// shared package and are sent unchanged.
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeRouteNotFound is used for unknown routes
	ErrCodeRouteNotFound = "ROUTE_NOT_FOUND"
	// ErrCodeMethodNotAllowed is used when the route exists for another method
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	shared.CodeUnauthorized:        http.StatusUnauthorized,
	shared.CodeNotFound:            http.StatusNotFound,
	shared.CodeInvalidState:        http.StatusConflict,
	shared.CodeConcurrencyConflict: http.StatusConflict,
	shared.CodeInvalidInput:        http.StatusBadRequest,

	// Adapter failures after the record was locked
	shared.CodeRemoteFailure:       http.StatusBadGateway,
	shared.CodeUnsupportedPlatform: http.StatusUnprocessableEntity,
	shared.CodeInvalidCredentials:  http.StatusUnprocessableEntity,

	shared.CodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeRouteNotFound:    http.StatusNotFound,
	ErrCodeMethodNotAllowed: http.StatusMethodNotAllowed,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
