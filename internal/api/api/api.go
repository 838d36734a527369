package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"symposium/cmd/middleware"
	"symposium/internal/model"
	"symposium/internal/service"
)

// Limits are the per-IP request budgets of the rate-limited routes. A nil
// limiter leaves its routes unlimited.
type Limits struct {
	API          *middleware.RateLimiter
	Auth         *middleware.RateLimiter
	Registration *middleware.RateLimiter
	Payment      *middleware.RateLimiter
}

type Routers struct {
	Service     *service.Service
	Log         *zerolog.Logger
	Limits      Limits
	CORSOrigins []string
}

func limit(l *middleware.RateLimiter) []ginext.HandlerFunc {
	if l == nil {
		return nil
	}
	return []ginext.HandlerFunc{l.Middleware()}
}

func with(pre []ginext.HandlerFunc, h ...ginext.HandlerFunc) []ginext.HandlerFunc {
	return append(append([]ginext.HandlerFunc{}, pre...), h...)
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")
	h := &Handler{svc: r.Service, log: r.Log}

	app.Use(middleware.LoggingMiddleware(r.Log))
	corsCfg := cors.DefaultConfig()
	if len(r.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = r.CORSOrigins
		corsCfg.AllowCredentials = true
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	corsCfg.MaxAge = 12 * time.Hour
	app.Use(cors.New(corsCfg))

	app.GET("/health", h.Health)

	v1 := app.Group("/api/v1")
	v1.Use(limit(r.Limits.API)...)

	protect := middleware.Protect(r.Service)
	admin := middleware.Authorize(model.RoleAdmin)
	staff := middleware.Staff()

	auth := v1.Group("/auth")
	auth.POST("/register", with(limit(r.Limits.Auth), h.Register)...)
	auth.POST("/login", with(limit(r.Limits.Auth), h.Login)...)
	auth.POST("/forgot-password", with(limit(r.Limits.Auth), h.ForgotPassword)...)
	auth.PUT("/reset-password/:token", with(limit(r.Limits.Auth), h.ResetPassword)...)
	auth.GET("/me", protect, h.Me)
	auth.PUT("/update-profile", protect, h.UpdateProfile)
	auth.PUT("/update-password", protect, h.UpdatePassword)

	events := v1.Group("/events")
	events.GET("", h.ListEvents)
	events.GET("/:id", h.GetEvent)
	events.POST("", protect, admin, h.CreateEvent)
	events.PUT("/:id", protect, admin, h.UpdateEvent)
	events.DELETE("/:id", protect, admin, h.DeleteEvent)
	events.GET("/:id/registrations", protect, admin, h.ListingRegistrations(model.TargetEvent))

	workshops := v1.Group("/workshops")
	workshops.GET("", h.ListWorkshops)
	workshops.GET("/:id", h.GetWorkshop)
	workshops.POST("", protect, admin, h.CreateWorkshop)
	workshops.PUT("/:id", protect, admin, h.UpdateWorkshop)
	workshops.DELETE("/:id", protect, admin, h.DeleteWorkshop)
	workshops.GET("/:id/registrations", protect, admin, h.ListingRegistrations(model.TargetWorkshop))

	regs := v1.Group("/registrations", protect)
	regs.POST("", with(limit(r.Limits.Registration), h.CreateRegistration)...)
	regs.GET("", admin, h.ListRegistrations)
	regs.GET("/my-registrations", h.MyRegistrations)
	regs.GET("/:id", h.GetRegistration)
	regs.POST("/:id/cancel", h.CancelRegistration)
	regs.GET("/:id/download-ticket", h.DownloadTicket)
	regs.GET("/:id/qr", h.RegistrationQR)

	payments := v1.Group("/payments")
	payments.POST("/razorpay/webhook", h.Webhook)
	payments.POST("/create-order", with(append([]ginext.HandlerFunc{protect}, limit(r.Limits.Payment)...), h.CreateOrder)...)
	payments.POST("/verify", protect, h.VerifyPayment)
	payments.GET("", protect, admin, h.ListPayments)
	payments.GET("/:id", protect, h.GetPayment)
	payments.POST("/:id/refund", protect, admin, h.RefundPayment)

	attendance := v1.Group("/attendance", protect)
	attendance.POST("/verify-qr", staff, h.CheckIn)
	attendance.POST("/:id/check-out", staff, h.CheckOut)
	attendance.GET("/event/:eventId", admin, h.ListingAttendance(model.TargetEvent, "eventId"))
	attendance.GET("/workshop/:workshopId", admin, h.ListingAttendance(model.TargetWorkshop, "workshopId"))
	attendance.GET("/user/:userId", h.UserAttendance)
	attendance.GET("/export/:kind/:id", admin, h.ExportAttendance)

	adm := v1.Group("/admin", protect, admin)
	adm.GET("/dashboard", h.Dashboard)
	adm.GET("/users", h.ListUsers)
	adm.POST("/payments/:id/verify", h.ManualVerify)
	adm.GET("/export/:dataType", h.Export)

	return app
}
