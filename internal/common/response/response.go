package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fletes-app/service-quote/internal/common/domain"
)

// Success writes a 200 with the payload under "data".
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": data})
}

// Created writes a 201 with the payload under "data".
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"ok": true, "data": data})
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": gin.H{"code": domain.CodeValidation, "message": msg}})
}

// Error maps err to an HTTP status. Unclassified errors become a 500 without their text.
func Error(c *gin.Context, err error) {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": gin.H{"code": "INTERNAL_ERROR", "message": "internal server error"},
		})
		return
	}

	status := http.StatusInternalServerError
	switch de.Code {
	case domain.CodeValidation:
		status = http.StatusBadRequest
	case domain.CodeNotFound:
		status = http.StatusNotFound
	case domain.CodeConflict, domain.CodeInvalidState:
		status = http.StatusConflict
	case domain.CodeUnavailable:
		status = http.StatusServiceUnavailable
		_ = c.Error(err)
	}

	c.JSON(status, gin.H{
		"ok": false,
		"error": gin.H{
			"code":      de.Code,
			"message":   de.Message,
			"retryable": de.Retryable,
		},
	})
}
