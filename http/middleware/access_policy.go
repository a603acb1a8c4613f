package middlewares

import (
	"net"

	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-catalog-service/infra"
	"github.com/tnqbao/gau-catalog-service/utils"
)

// AccessPolicy decides whether a request may reach an administrative route.
type AccessPolicy func(c *gin.Context) bool

// IPAllowlistPolicy admits the listed client IPs. An empty list admits
// loopback clients only. The client IP honours X-Forwarded-For only from the
// engine's trusted proxies.
func IPAllowlistPolicy(ips []string) AccessPolicy {
	allowed := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil {
			allowed[parsed.String()] = struct{}{}
		}
	}

	return func(c *gin.Context) bool {
		client := net.ParseIP(c.ClientIP())
		if client == nil {
			return false
		}
		if len(allowed) == 0 {
			return client.IsLoopback()
		}
		_, ok := allowed[client.String()]
		return ok
	}
}

func AdminMiddleware(policy AccessPolicy, logger *infra.LoggerClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !policy(c) {
			logger.WarningWithContextf(c.Request.Context(), "[Admin] Access denied for %s %s from %s", c.Request.Method, c.FullPath(), c.ClientIP())
			utils.JSON403(c, "Access denied")
			c.Abort()
			return
		}
		c.Next()
	}
}
