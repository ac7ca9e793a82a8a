package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursecommerce-backend/internal/observability"
	"github.com/yungbote/coursecommerce-backend/internal/platform/ctxutil"
)

// Metrics counts requests per authenticated caller so a misbehaving
// collaborator (a processor retry storm, a chatty lesson player) stands out.
// Scrapes of the metrics endpoint itself are not counted.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		caller, _ := ctxutil.GetCaller(c.Request.Context())
		m.ObserveAPI(caller.Subject, c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
