package controller

import (
	"context"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-catalog-service/utils"
)

const healthCheckTimeout = 3 * time.Second

func (ctrl *Controller) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(ctrl.HealthChecks))
	for name := range ctrl.HealthChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	checks := gin.H{}
	for _, name := range names {
		if err := ctrl.HealthChecks[name](ctx); err != nil {
			ctrl.Infra.Logger.WarningWithContextf(ctx, "[Health] %s check failed: %v", name, err)
			checks[name] = "down"
			healthy = false
			continue
		}
		checks[name] = "up"
	}

	if !healthy {
		utils.JSON503(c, gin.H{"status": "degraded", "checks": checks})
		return
	}
	utils.JSON200(c, gin.H{"status": "ok", "checks": checks})
}
