package handlers

import (
	"errors"
	"net/http"

	"parkometr/internal/domain"
	"parkometr/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	payload := gin.H{
		"success":    false,
		"message":    message,
		"code":       code,
		"request_id": middleware.GetRequestID(c),
	}
	if details != nil {
		payload["details"] = details
	}
	c.JSON(status, payload)
}

// RespondDomainError maps domain errors to HTTP responses.
// State conflicts are client errors of the request, so they answer 400.
func RespondDomainError(c *gin.Context, err error) {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case domain.KindNotFound:
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.KindInsufficientFunds:
		var funds domain.InsufficientFundsError
		errors.As(err, &funds)
		respondError(c, http.StatusBadRequest, "insufficient_funds", err.Error(),
			gin.H{"balance": funds.Balance, "price": funds.Price})
	case domain.KindConflict:
		respondError(c, http.StatusBadRequest, "conflict", err.Error(), nil)
	case domain.KindUnauthorized:
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal_error", "internal server error", nil)
	}
}
