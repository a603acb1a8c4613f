package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-catalog-service/http/controller"
)

type Middlewares struct {
	CORSMiddleware  gin.HandlerFunc
	AuthMiddleware  gin.HandlerFunc
	AdminMiddleware gin.HandlerFunc
}

func NewMiddlewares(ctrl *controller.Controller) (*Middlewares, error) {
	cors := CORSMiddleware(ctrl.Config.EnvConfig)
	auth := AuthMiddleware(ctrl.Config.EnvConfig)
	policy := IPAllowlistPolicy(ctrl.Config.EnvConfig.Admin.AllowedIPs)
	if ctrl.AdminPolicy != nil {
		policy = AccessPolicy(ctrl.AdminPolicy)
	}
	admin := AdminMiddleware(policy, ctrl.Infra.Logger)

	return &Middlewares{
		CORSMiddleware:  cors,
		AuthMiddleware:  auth,
		AdminMiddleware: admin,
	}, nil
}
