package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uuakee/xotc/internal/domain"
)

var kindStatus = map[domain.ErrorKind]int{
	domain.ErrNotFound:              http.StatusNotFound,
	domain.ErrInvalidState:          http.StatusConflict,
	domain.ErrInvalidAmount:         http.StatusBadRequest,
	domain.ErrInsufficientFunds:     http.StatusUnprocessableEntity,
	domain.ErrInsufficientLevel:     http.StatusUnprocessableEntity,
	domain.ErrPurchaseLimitExceeded: http.StatusUnprocessableEntity,
	domain.ErrGateway:               http.StatusBadGateway,
	domain.ErrReplayConflict:        http.StatusConflict,
	domain.ErrInternal:              http.StatusInternalServerError,
}

// respondError maps a domain error kind to an HTTP status. Internal causes
// are never surfaced in the response body.
func respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := "internal server error"
	var de *domain.Error
	if kind != domain.ErrInternal && errors.As(err, &de) {
		message = de.Message
	}

	c.JSON(status, gin.H{
		"error":   string(kind),
		"message": message,
	})
}
