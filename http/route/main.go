package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-catalog-service/http/controller"
	middlewares "github.com/tnqbao/gau-catalog-service/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()
	if err := r.SetTrustedProxies(ctrl.Config.EnvConfig.TrustedProxies); err != nil {
		panic(err)
	}
	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}
	r.Use(middles.CORSMiddleware)

	r.GET("/health", ctrl.Health)

	catalogRoutes := r.Group("/catalog")
	{
		catalogRoutes.GET("/projects", ctrl.ListProjects)
		catalogRoutes.GET("/categories", ctrl.ListCategories)

		projectRoutes := catalogRoutes.Group("/project")
		{
			projectRoutes.GET("/:id", ctrl.GetProject)
			projectRoutes.GET("/:id/update", ctrl.GetProject)
			projectRoutes.GET("/:id/delete", ctrl.GetProject)

			projectRoutes.POST("/create", middles.AuthMiddleware, ctrl.CreateProject)
			projectRoutes.POST("/:id/update", middles.AuthMiddleware, ctrl.UpdateProject)
			projectRoutes.POST("/:id/delete", middles.AuthMiddleware, ctrl.DeleteProject)
		}

		categoryRoutes := catalogRoutes.Group("/category")
		{
			categoryRoutes.GET("/:id", ctrl.GetCategory)
			categoryRoutes.POST("/create", middles.AuthMiddleware, ctrl.CreateCategory)
			categoryRoutes.POST("/:id/update", middles.AuthMiddleware, ctrl.UpdateCategory)
			categoryRoutes.POST("/:id/delete", middles.AuthMiddleware, ctrl.DeleteCategory)
		}

		// User management is restricted by the admin access policy.
		catalogRoutes.GET("/users", middles.AdminMiddleware, ctrl.ListUsers)
		userRoutes := catalogRoutes.Group("/user", middles.AdminMiddleware)
		{
			userRoutes.POST("/create", ctrl.CreateUser)
			userRoutes.GET("/:id", ctrl.GetUser)
			userRoutes.POST("/:id/update", ctrl.UpdateUser)
			userRoutes.POST("/:id/delete", ctrl.DeleteUser)
		}
	}
	return r
}
