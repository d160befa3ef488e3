package errors

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/konveksi/admin-gateway/internal/progress"
	"github.com/konveksi/admin-gateway/internal/upstream"
	"gorm.io/gorm"
)

// ErrorInfo is how an error is reported to the client.
type ErrorInfo struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

// ParseError maps domain, upstream and storage errors to a response.
// context names the resource being handled ("order", "progress item", ...)
// and is used in generic messages.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalServerError,
			Message: "Something went wrong",
		}
	}

	// 1. Validation failures found before any write
	var verr *progress.ValidationError
	if errors.As(err, &verr) {
		return parseValidationError(verr)
	}

	// 2. Backend responses
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		return parseUpstreamError(apiErr, context)
	}
	if errors.Is(err, upstream.ErrNetwork) || isTimeout(err) {
		return ErrorInfo{
			Status:  http.StatusBadGateway,
			Code:    UpstreamUnavailable,
			Message: "The order backend could not be reached, please try again",
		}
	}
	if errors.Is(err, upstream.ErrNotFound) {
		return notFound(context)
	}

	// 3. Lookups against the loaded progress state
	if errors.Is(err, progress.ErrStageNotFound) {
		return ErrorInfo{Status: http.StatusNotFound, Code: ProgressStageNotFound, Message: "Progress stage not found"}
	}

	// 4. Local database
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(context)
	}
	if strings.Contains(strings.ToLower(err.Error()), "sql") {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalDatabaseError,
			Message: "Failed to access the activity store",
		}
	}

	return ErrorInfo{
		Status:  http.StatusInternalServerError,
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

// parseValidationError picks the code of the most significant rule. Order
// state rules answer 409; everything else is a 400 with per-field messages.
func parseValidationError(verr *progress.ValidationError) ErrorInfo {
	info := ErrorInfo{
		Status:  http.StatusBadRequest,
		Code:    ValidationInvalidInput,
		Message: "Input is not valid",
		Fields:  verr.FieldMap(),
	}

	switch {
	case errors.Is(verr, progress.ErrOrderNotInProgress):
		info.Status = http.StatusConflict
		info.Code = OrderNotInProgress
		info.Message = "Progress can only change while the order is in progress"
	case errors.Is(verr, progress.ErrProgressLocked):
		info.Status = http.StatusConflict
		info.Code = ProgressLocked
		info.Message = "Progress is locked for this order"
	case errors.Is(verr, progress.ErrConfirmationRequired):
		info.Code = ProgressConfirmDelete
		info.Message = "Deletion must be confirmed"
	case errors.Is(verr, progress.ErrProgressItemNotFound):
		info.Status = http.StatusNotFound
		info.Code = ProgressItemNotFound
		info.Message = "Progress item not found"
	case errors.Is(verr, progress.ErrProgressDetailNotFound):
		info.Status = http.StatusNotFound
		info.Code = ProgressDetailNotFound
		info.Message = "Progress detail not found"
	case errors.Is(verr, progress.ErrQuantityExceedsRemaining):
		info.Code = ProgressExceeded
		info.Message = "Quantity exceeds what is left to assign"
	case errors.Is(verr, progress.ErrRequiredField):
		info.Code = ValidationRequired
		info.Message = "Required fields are missing"
	}
	return info
}

func parseUpstreamError(apiErr *upstream.APIError, context string) ErrorInfo {
	msg := upstream.MessageOf(apiErr, "")
	switch {
	case errors.Is(apiErr, upstream.ErrNotFound):
		info := notFound(context)
		if msg != "" {
			info.Message = msg
		}
		return info
	case errors.Is(apiErr, upstream.ErrUnauthorized):
		if msg == "" {
			msg = "The backend refused the credentials"
		}
		if apiErr.StatusCode == http.StatusForbidden {
			return ErrorInfo{Status: http.StatusForbidden, Code: AuthForbidden, Message: msg}
		}
		return ErrorInfo{Status: http.StatusUnauthorized, Code: AuthTokenInvalid, Message: msg}
	case errors.Is(apiErr, upstream.ErrUnavailable):
		return ErrorInfo{
			Status:  http.StatusBadGateway,
			Code:    UpstreamUnavailable,
			Message: "The order backend failed, please try again",
		}
	default:
		if msg == "" {
			msg = "The order backend rejected the request"
		}
		return ErrorInfo{Status: http.StatusUnprocessableEntity, Code: UpstreamRejected, Message: msg}
	}
}

func notFound(context string) ErrorInfo {
	code := ResourceNotFound
	switch context {
	case "order":
		code = OrderNotFound
	case "progress item":
		code = ProgressItemNotFound
	case "progress detail":
		code = ProgressDetailNotFound
	}
	return ErrorInfo{
		Status:  http.StatusNotFound,
		Code:    code,
		Message: getNotFoundMessage(context),
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, upstream.ErrUnavailable)
}

func getNotFoundMessage(context string) string {
	if context == "" {
		return "Resource not found"
	}
	return strings.ToUpper(context[:1]) + context[1:] + " not found"
}

func getDefaultErrorMessage(context string) string {
	if context == "" {
		return "Something went wrong, please try again later"
	}
	return "Failed to handle " + context + ", please try again later"
}
