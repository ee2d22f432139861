package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/echovisit/echovisit-web/internal/service"
	"github.com/echovisit/echovisit-web/internal/session"
	"github.com/echovisit/echovisit-web/internal/upstream"
	"github.com/echovisit/echovisit-web/pkg/auth"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	// Upstream rejections pass through with their own status where that
	// status is meaningful to the caller.
	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		switch upErr.StatusCode {
		case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
			c.JSON(upErr.StatusCode, ErrorResponse{Error: upErr.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "upstream service unavailable"})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, service.ErrLoginRequired),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrExpired),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "login required", Code: "LOGIN_REQUIRED"})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrVisitNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrNoAudio),
		errors.Is(err, service.ErrNoResult):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrCheckInFlight):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: "an interaction check is still running",
			Code:  "CHECK_IN_FLIGHT",
		})

	case errors.Is(err, service.ErrReviewNotConfirmed):
		c.JSON(http.StatusPreconditionFailed, ErrorResponse{Error: err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}
	return true
}
