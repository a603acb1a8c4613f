package controller

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-catalog-service/config"
	"github.com/tnqbao/gau-catalog-service/infra"
	"github.com/tnqbao/gau-catalog-service/repository"
	"github.com/tnqbao/gau-catalog-service/service"
)

type Controller struct {
	Config     *config.Config
	Infra      *infra.Infra
	Repository *repository.Repository

	ProjectService  *service.ProjectService
	CategoryService *service.CategoryService
	UserService     *service.UserService

	// HealthChecks maps a dependency name to its probe.
	HealthChecks map[string]func(ctx context.Context) error

	// AdminPolicy gates user management. Nil falls back to the ADMIN_ALLOWED_IPS allowlist.
	AdminPolicy func(c *gin.Context) bool
}

func NewController(config *config.Config, infra *infra.Infra, repo *repository.Repository) *Controller {
	if repo == nil {
		panic("Failed to initialize Repository")
	}
	env := config.EnvConfig

	ingestor := service.NewMediaIngestor(infra.Storage, repo.MediaRepo, infra.Produce.MediaService, infra.Logger, service.IngestorConfig{
		Concurrency: env.Media.UploadConcurrency,
		CallTimeout: env.Media.CallTimeout,
	})

	projectService := service.NewProjectService(repo.ProjectRepo, repo.MediaRepo, repo.CategoryRepo, ingestor, infra.Redis, infra.Logger, service.ProjectServiceConfig{
		UpdatePolicy:              env.Media.UpdatePolicy,
		CacheTTL:                  env.Cache.TTL,
		CacheSettleDelay:          env.Cache.SettleDelay,
		CallTimeout:               env.Media.CallTimeout,
		DeleteConcurrency:         env.Media.UploadConcurrency,
		RequireRegisteredCategory: env.Catalog.RequireRegisteredCategory,
	})

	return &Controller{
		Config:          config,
		Infra:           infra,
		Repository:      repo,
		ProjectService:  projectService,
		CategoryService: service.NewCategoryService(repo.CategoryRepo, repo.ProjectRepo, infra.Logger),
		UserService:     service.NewUserService(repo.UserRepo, infra.Logger),
		HealthChecks: map[string]func(ctx context.Context) error{
			"postgres": infra.Postgres.Ping,
			"redis":    infra.Redis.Ping,
			"storage":  infra.Storage.HealthCheck,
		},
	}
}
