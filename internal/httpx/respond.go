package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
)

const internalMessage = "Internal server error."

// Envelope is the body of every response.
// swagger:model Envelope
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OK writes a successful envelope.
func OK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// List writes a page of results. data is always present and the total
// matching count is written under countField.
func List(c *gin.Context, message, countField string, data any, count int64) {
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  message,
		"data":     data,
		countField: count,
	})
}

// Fail aborts the request with the envelope and status matching err's kind.
// Unclassified errors are logged by the caller and never shown.
func Fail(c *gin.Context, err error) {
	status, msg := Status(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Envelope{Message: msg})
}

// Status maps err to an HTTP status and the message the caller may see.
func Status(err error) (int, string) {
	kind := apperr.Kind(err)
	switch kind {
	case apperr.ErrInvalidInput:
		return http.StatusBadRequest, Message(err, kind)
	case apperr.ErrUnauthenticated:
		return http.StatusUnauthorized, kind.Error()
	case apperr.ErrForbidden:
		return http.StatusForbidden, kind.Error()
	case apperr.ErrNotFound:
		return http.StatusNotFound, Message(err, kind)
	case apperr.ErrConflict:
		return http.StatusConflict, Message(err, kind)
	default:
		return http.StatusInternalServerError, internalMessage
	}
}

// Message strips the "<kind>: " prefix added when a sentinel is wrapped
// with detail, so the caller sees only the detail.
func Message(err, kind error) string {
	msg := err.Error()
	if errors.Is(err, kind) {
		msg = strings.TrimPrefix(msg, kind.Error()+": ")
	}
	return msg
}
