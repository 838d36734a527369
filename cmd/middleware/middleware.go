package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"symposium/internal/dto"
	"symposium/internal/model"
	"symposium/internal/service"
)

const userKey = "user"

func LoggingMiddleware(log *zerolog.Logger) ginext.HandlerFunc {
	return func(c *ginext.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			ev = log.Error()
		case status >= http.StatusBadRequest:
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

// Authenticator resolves a bearer token. *service.Service satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// Protect rejects requests without a valid bearer token and stores the
// caller for CurrentUser.
func Protect(auth Authenticator) ginext.HandlerFunc {
	return func(c *ginext.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			dto.ErrorResponse(c, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		u, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			var svcErr *service.Error
			if errors.As(err, &svcErr) && errors.Is(err, service.ErrUnauthorized) {
				dto.ErrorResponse(c, http.StatusUnauthorized, svcErr.Msg)
				return
			}
			dto.InternalServerError(c)
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

// Authorize admits only the given roles. It must run after Protect.
func Authorize(roles ...model.Role) ginext.HandlerFunc {
	return func(c *ginext.Context) {
		u := CurrentUser(c)
		if u == nil {
			dto.ErrorResponse(c, http.StatusUnauthorized, "Not authorized")
			return
		}
		for _, r := range roles {
			if u.Role == r {
				c.Next()
				return
			}
		}
		dto.ErrorResponse(c, http.StatusForbidden, "User role "+string(u.Role)+" is not authorized to access this route")
	}
}

// Staff admits admins and volunteers. It must run after Protect.
func Staff() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		u := CurrentUser(c)
		if u == nil {
			dto.ErrorResponse(c, http.StatusUnauthorized, "Not authorized")
			return
		}
		if !u.IsStaff() {
			dto.ErrorResponse(c, http.StatusForbidden, "User role "+string(u.Role)+" is not authorized to access this route")
			return
		}
		c.Next()
	}
}

func CurrentUser(c *ginext.Context) *model.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}
