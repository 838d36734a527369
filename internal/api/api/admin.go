package api

import (
	"github.com/wb-go/wbf/ginext"

	"symposium/internal/dto"
	"symposium/internal/export"
)

func (h *Handler) Dashboard(c *ginext.Context) {
	stats, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, stats)
}

func (h *Handler) Export(c *ginext.Context) {
	data, name, err := h.svc.Export(c.Request.Context(), c.Param("dataType"))
	if err != nil {
		h.fail(c, err)
		return
	}
	attachment(c, name, export.ContentType, data)
}
