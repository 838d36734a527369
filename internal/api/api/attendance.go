package api

import (
	"github.com/wb-go/wbf/ginext"

	"symposium/cmd/middleware"
	"symposium/internal/dto"
	"symposium/internal/export"
	"symposium/internal/model"
)

func (h *Handler) CheckIn(c *ginext.Context) {
	var req dto.CheckInRequest
	if !bind(c, &req, false) {
		return
	}
	res, err := h.svc.CheckIn(c.Request.Context(), req, middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	msg := "Check-in successful"
	if res.AlreadyCheckedIn {
		msg = "Participant already checked in"
	}
	dto.SuccessMessage(c, msg, res)
}

func (h *Handler) CheckOut(c *ginext.Context) {
	a, err := h.svc.CheckOut(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessMessage(c, "Check-out recorded", a)
}

func (h *Handler) ListingAttendance(kind model.TargetKind, param string) ginext.HandlerFunc {
	return func(c *ginext.Context) {
		rows, err := h.svc.ListAttendance(c.Request.Context(), model.Target{Kind: kind, ID: c.Param(param)})
		if err != nil {
			h.fail(c, err)
			return
		}
		dto.SuccessResponse(c, rows)
	}
}

func (h *Handler) UserAttendance(c *ginext.Context) {
	rows, err := h.svc.UserAttendance(c.Request.Context(), c.Param("userId"), middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, rows)
}

func (h *Handler) ExportAttendance(c *ginext.Context) {
	target, err := model.ParseTarget(c.Param("kind"), c.Param("id"))
	if err != nil {
		dto.BadResponseError(c, err.Error())
		return
	}
	data, name, err := h.svc.ExportAttendance(c.Request.Context(), target)
	if err != nil {
		h.fail(c, err)
		return
	}
	attachment(c, name, export.ContentType, data)
}
