package api

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"symposium/cmd/middleware"
	"symposium/internal/dto"
	"symposium/internal/model"
	"symposium/internal/repo"
)

func (h *Handler) CreateRegistration(c *ginext.Context) {
	var req dto.CreateRegistrationRequest
	if !bind(c, &req, false) {
		return
	}
	reg, err := h.svc.CreateRegistration(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessCreatedResponse(c, "Registration created, proceed to payment", reg)
}

func (h *Handler) ListRegistrations(c *ginext.Context) {
	f := repo.RegistrationFilter{Status: model.RegistrationStatus(c.Query("status"))}
	if id := c.Query("event_id"); id != "" {
		t := model.EventTarget(id)
		f.Target = &t
	} else if id := c.Query("workshop_id"); id != "" {
		t := model.WorkshopTarget(id)
		f.Target = &t
	}
	regs, err := h.svc.ListRegistrations(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, regs)
}

func (h *Handler) MyRegistrations(c *ginext.Context) {
	regs, err := h.svc.MyRegistrations(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, regs)
}

func (h *Handler) GetRegistration(c *ginext.Context) {
	reg, err := h.svc.GetRegistration(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, reg)
}

func (h *Handler) CancelRegistration(c *ginext.Context) {
	var req dto.CancelRegistrationRequest
	if !bind(c, &req, true) {
		return
	}
	reg, err := h.svc.CancelRegistration(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c), req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessMessage(c, "Registration cancelled", reg)
}

func (h *Handler) DownloadTicket(c *ginext.Context) {
	pdf, name, err := h.svc.TicketPDF(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	attachment(c, name, "application/pdf", pdf)
}

func (h *Handler) RegistrationQR(c *ginext.Context) {
	png, err := h.svc.EntryQR(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
