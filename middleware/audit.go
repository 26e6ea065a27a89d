package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"go.pilab.hu/pacs-auth/domain"
	"go.pilab.hu/pacs-auth/internal/audit"
)

// Audit returns the audit stage of the request pipeline. It runs after the
// handler and records who did what with which outcome. Order it after Authn
// so the principal, when present, is already on the context.
func Audit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			subject := ""
			if p, ok := domain.PrincipalFromContext(req.Context()); ok {
				subject = p.Subject
			}

			audit.Log(
				"HTTP",
				req.Method+" "+req.URL.Path,
				subject,
				"",
				"status="+strconv.Itoa(status)+" latency="+time.Since(start).String(),
				status < 400,
				err,
			)

			return err
		}
	}
}
