package dto

import (
	"errors"
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"symposium/pkg/validator"
)

const (
	InternalError   = "Service is currently unavailable. Please try again later."
	InvalidJSON     = "Invalid JSON format"
	ValidationError = "Validation failed"
	TooManyRequests = "Too many requests, please try again later."
)

type Response struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Data    any                    `json:"data,omitempty"`
	Errors  []validator.FieldError `json:"errors,omitempty"`
}

func ErrorResponse(c *ginext.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Message: message,
	})
}

func BadResponseError(c *ginext.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, message)
}

// ValidationFailed renders a 400 whose message is the first failed rule
// and whose errors list every failed rule.
func ValidationFailed(c *ginext.Context, err error) {
	resp := Response{Success: false, Message: err.Error()}
	var verr *validator.Error
	if errors.As(err, &verr) {
		resp.Errors = verr.Fields
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

func InternalServerError(c *ginext.Context) {
	ErrorResponse(c, http.StatusInternalServerError, InternalError)
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func SuccessMessage(c *ginext.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, message string, data any) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}
