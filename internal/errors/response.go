package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`   // code from codes.go
	Message string `json:"message"` // human readable
}

// RespondWithError writes statusCode with an ErrorResponse body.
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Login required"
	}
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, message)
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func Conflict(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusConflict, errorCode, message)
}

func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Something went wrong, please try again later"
	}
	RespondWithError(c, http.StatusInternalServerError, InternalServerError, message)
}

// ValidationError carries per-field messages for inline form display.
type ValidationError struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func RespondWithValidationError(c *gin.Context, fields map[string]string) {
	RespondWithFieldErrors(c, http.StatusBadRequest, ValidationInvalidInput, "Input is not valid", fields)
}

func RespondWithFieldErrors(c *gin.Context, statusCode int, errorCode, message string, fields map[string]string) {
	c.JSON(statusCode, ValidationError{
		Error:   errorCode,
		Message: message,
		Fields:  fields,
	})
}

// Respond writes the response ParseError chooses for err.
func Respond(c *gin.Context, err error, context string) {
	info := ParseError(err, context)
	if len(info.Fields) > 0 {
		RespondWithFieldErrors(c, info.Status, info.Code, info.Message, info.Fields)
		return
	}
	RespondWithError(c, info.Status, info.Code, info.Message)
}
