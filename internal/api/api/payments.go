package api

import (
	"github.com/wb-go/wbf/ginext"

	"symposium/cmd/middleware"
	"symposium/internal/dto"
	"symposium/internal/model"
	"symposium/internal/repo"
)

const webhookSignatureHeader = "X-Razorpay-Signature"

func (h *Handler) CreateOrder(c *ginext.Context) {
	var req dto.CreateOrderRequest
	if !bind(c, &req, false) {
		return
	}
	order, err := h.svc.CreateOrder(c.Request.Context(), req.RegistrationID, middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if order.Free {
		dto.SuccessMessage(c, "Registration confirmed, no payment required", order)
		return
	}
	dto.SuccessCreatedResponse(c, "Order created", order)
}

func (h *Handler) VerifyPayment(c *ginext.Context) {
	var req dto.VerifyPaymentRequest
	if !bind(c, &req, false) {
		return
	}
	res, err := h.svc.VerifyPayment(c.Request.Context(), req, middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessMessage(c, "Payment verified successfully", res)
}

// Webhook must see the body exactly as sent; the signature covers the raw bytes.
func (h *Handler) Webhook(c *ginext.Context) {
	body, err := c.GetRawData()
	if err != nil {
		dto.BadResponseError(c, "Unable to read request body")
		return
	}
	if err := h.svc.HandleWebhook(c.Request.Context(), body, c.GetHeader(webhookSignatureHeader)); err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessMessage(c, "Webhook processed", nil)
}

func (h *Handler) ListPayments(c *ginext.Context) {
	payments, err := h.svc.ListPayments(c.Request.Context(), repo.PaymentFilter{
		Status: model.PaymentStatus(c.Query("status")),
		UserID: c.Query("user_id"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, payments)
}

func (h *Handler) GetPayment(c *ginext.Context) {
	p, err := h.svc.GetPayment(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, p)
}

func (h *Handler) RefundPayment(c *ginext.Context) {
	var req dto.RefundRequest
	if !bind(c, &req, true) {
		return
	}
	res, err := h.svc.RefundPayment(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c), req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessMessage(c, "Payment refunded", res)
}

func (h *Handler) ManualVerify(c *ginext.Context) {
	var req dto.ManualVerifyRequest
	if !bind(c, &req, true) {
		return
	}
	res, err := h.svc.ManualVerify(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c), req.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessMessage(c, "Payment verified manually", res)
}
