package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"symposium/cmd/middleware"
	"symposium/internal/dto"
	"symposium/internal/service"
	"symposium/pkg/validator"
)

type Handler struct {
	svc *service.Service
	log *zerolog.Logger
}

func statusFor(kind error) int {
	switch kind {
	case service.ErrNotFound:
		return http.StatusNotFound
	case service.ErrUnauthorized:
		return http.StatusUnauthorized
	case service.ErrForbidden:
		return http.StatusForbidden
	case service.ErrUpstream:
		return http.StatusInternalServerError
	case service.ErrValidation, service.ErrInvalidState, service.ErrInvalidSignature,
		service.ErrPaymentIncomplete, service.ErrDuplicateKey:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail renders err. Service errors carry a message fit for the caller;
// anything else is logged and hidden behind a generic 500.
func (h *Handler) fail(c *ginext.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		dto.ErrorResponse(c, statusFor(svcErr.Kind), svcErr.Msg)
		return
	}
	h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	dto.InternalServerError(c)
}

// bind decodes and validates a JSON body. An empty body is accepted when
// optional is set, leaving req at its zero value.
func bind(c *ginext.Context, req any, optional bool) bool {
	if optional && c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		dto.BadResponseError(c, dto.InvalidJSON)
		return false
	}
	if err := validator.Validate(c.Request.Context(), req); err != nil {
		dto.ValidationFailed(c, err)
		return false
	}
	return true
}

func attachment(c *ginext.Context, name, contentType string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, contentType, data)
}

func (h *Handler) Health(c *ginext.Context) {
	dto.SuccessMessage(c, "ok", nil)
}

func (h *Handler) Register(c *ginext.Context) {
	var req dto.RegisterUserRequest
	if !bind(c, &req, false) {
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessCreatedResponse(c, "User registered successfully", res)
}

func (h *Handler) Login(c *ginext.Context) {
	var req dto.LoginRequest
	if !bind(c, &req, false) {
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessMessage(c, "Login successful", res)
}

func (h *Handler) ForgotPassword(c *ginext.Context) {
	var req dto.ForgotPasswordRequest
	if !bind(c, &req, false) {
		return
	}
	if err := h.svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessMessage(c, "If the email is registered, a reset link has been sent", nil)
}

func (h *Handler) ResetPassword(c *ginext.Context) {
	var req dto.ResetPasswordRequest
	if !bind(c, &req, false) {
		return
	}
	res, err := h.svc.ResetPassword(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessMessage(c, "Password reset successful", res)
}

func (h *Handler) Me(c *ginext.Context) {
	dto.SuccessResponse(c, middleware.CurrentUser(c))
}

func (h *Handler) UpdateProfile(c *ginext.Context) {
	var req dto.UpdateProfileRequest
	if !bind(c, &req, false) {
		return
	}
	u, err := h.svc.UpdateProfile(c.Request.Context(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessMessage(c, "Profile updated", u)
}

func (h *Handler) UpdatePassword(c *ginext.Context) {
	var req dto.UpdatePasswordRequest
	if !bind(c, &req, false) {
		return
	}
	err := h.svc.UpdatePassword(c.Request.Context(), middleware.CurrentUser(c).ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessMessage(c, "Password updated", nil)
}

func (h *Handler) ListUsers(c *ginext.Context) {
	users, err := h.svc.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, users)
}
