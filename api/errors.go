package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	irerrors "github.com/irindex/irindex/internal/errors"
)

// ErrorCode is a machine-readable error classification returned in every
// non-2xx response body.
type ErrorCode string

const (
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrorCodeJobNotFound      ErrorCode = "JOB_NOT_FOUND"
	ErrorCodeSearchFailed     ErrorCode = "SEARCH_FAILED"
	ErrorCodeIndexingFailed   ErrorCode = "INDEXING_FAILED"
	ErrorCodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// APIError is the JSON body of every error response.
type APIError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func sendError(c *gin.Context, status int, code ErrorCode, message string) {
	c.JSON(status, APIError{Code: code, Message: message, Timestamp: time.Now()})
}

// sendDomainError maps an internal/errors-classified error onto an HTTP
// status the same way cmd/irindex maps it onto an exit code.
func sendDomainError(c *gin.Context, code ErrorCode, err error) {
	switch irerrors.ExitCode(err) {
	case 1:
		sendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
	case 2, 3:
		sendError(c, http.StatusInternalServerError, code, err.Error())
	default:
		sendError(c, http.StatusInternalServerError, ErrorCodeInternalError, err.Error())
	}
}
