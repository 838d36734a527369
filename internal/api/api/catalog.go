package api

import (
	"github.com/wb-go/wbf/ginext"

	"symposium/internal/dto"
	"symposium/internal/model"
	"symposium/internal/repo"
)

func (h *Handler) ListEvents(c *ginext.Context) {
	events, err := h.svc.ListEvents(c.Request.Context(), c.Query("category"), false)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, events)
}

func (h *Handler) GetEvent(c *ginext.Context) {
	e, err := h.svc.GetEvent(c.Request.Context(), c.Param("id"), false)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, e)
}

func (h *Handler) CreateEvent(c *ginext.Context) {
	var req dto.EventRequest
	if !bind(c, &req, false) {
		return
	}
	e, err := h.svc.CreateEvent(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessCreatedResponse(c, "Event created", e)
}

func (h *Handler) UpdateEvent(c *ginext.Context) {
	var req dto.EventRequest
	if !bind(c, &req, false) {
		return
	}
	e, err := h.svc.UpdateEvent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessMessage(c, "Event updated", e)
}

func (h *Handler) DeleteEvent(c *ginext.Context) {
	if err := h.svc.DeleteEvent(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessMessage(c, "Event deleted", nil)
}

func (h *Handler) ListWorkshops(c *ginext.Context) {
	workshops, err := h.svc.ListWorkshops(c.Request.Context(), false)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, workshops)
}

func (h *Handler) GetWorkshop(c *ginext.Context) {
	w, err := h.svc.GetWorkshop(c.Request.Context(), c.Param("id"), false)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, w)
}

func (h *Handler) CreateWorkshop(c *ginext.Context) {
	var req dto.WorkshopRequest
	if !bind(c, &req, false) {
		return
	}
	w, err := h.svc.CreateWorkshop(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessCreatedResponse(c, "Workshop created", w)
}

func (h *Handler) UpdateWorkshop(c *ginext.Context) {
	var req dto.WorkshopRequest
	if !bind(c, &req, false) {
		return
	}
	w, err := h.svc.UpdateWorkshop(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessMessage(c, "Workshop updated", w)
}

func (h *Handler) DeleteWorkshop(c *ginext.Context) {
	if err := h.svc.DeleteWorkshop(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessMessage(c, "Workshop deleted", nil)
}

// ListingRegistrations lists the registrations of one event or workshop.
func (h *Handler) ListingRegistrations(kind model.TargetKind) ginext.HandlerFunc {
	return func(c *ginext.Context) {
		target := model.Target{Kind: kind, ID: c.Param("id")}
		regs, err := h.svc.ListRegistrations(c.Request.Context(), repo.RegistrationFilter{
			Target: &target,
			Status: model.RegistrationStatus(c.Query("status")),
		})
		if err != nil {
			h.fail(c, err)
			return
		}
		dto.SuccessResponse(c, regs)
	}
}
