package controller

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/konveksi/admin-gateway/internal/app/service"
	"github.com/konveksi/admin-gateway/internal/errors"
	"github.com/konveksi/admin-gateway/internal/middleware"
)

// parseIDParam reads a positive integer path parameter and answers 400 when
// it is missing or malformed.
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid path id", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		errors.BadRequest(c, errors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func queryInt64(c *gin.Context, name string) int64 {
	n, _ := strconv.ParseInt(c.Query(name), 10, 64)
	return n
}

// parseDate accepts an RFC3339 timestamp or a calendar date in loc.
func parseDate(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	return t, err == nil
}

// respondError answers with the status and code that fit err.
func respondError(c *gin.Context, err error, resource string) {
	log := middleware.GetLoggerFromContext(c)

	switch {
	case stderrors.Is(err, service.ErrUnknownAction):
		errors.BadRequest(c, errors.OrderUnknownAction, err.Error())
	case stderrors.Is(err, service.ErrTransitionNotAllowed):
		errors.Conflict(c, errors.OrderActionNotAllowed, err.Error())
	case stderrors.Is(err, service.ErrStorageDisabled):
		errors.RespondWithError(c, http.StatusServiceUnavailable, errors.ReportStorageDisabled, "Recap storage is not configured, download the recap instead")
	default:
		info := errors.ParseError(err, resource)
		if info.Status >= http.StatusInternalServerError {
			log.Error("Request failed", err, map[string]interface{}{
				"resource": resource,
			})
		} else {
			log.Warn("Request rejected", map[string]interface{}{
				"resource": resource,
				"error":    err.Error(),
			})
		}
		errors.Respond(c, err, resource)
	}
}

// respondMutation writes the outcome of a progress write. A write that
// succeeded but was not observed in time answers 202 with the last known
// summary.
func respondMutation(c *gin.Context, status int, result service.MutationResult, err error, resource string) {
	if err == nil {
		c.JSON(status, gin.H{"data": result})
		return
	}
	if stderrors.Is(err, service.ErrNotConfirmed) {
		middleware.GetLoggerFromContext(c).Warn("Progress write not confirmed", map[string]interface{}{
			"resource": resource,
			"error":    err.Error(),
		})
		c.JSON(http.StatusAccepted, gin.H{
			"data":    result,
			"error":   errors.ProgressUnconfirmed,
			"message": "The change was accepted but is not visible yet, refresh shortly",
		})
		return
	}
	respondError(c, err, resource)
}
