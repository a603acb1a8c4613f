package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-catalog-service/http/controller/dto"
	"github.com/tnqbao/gau-catalog-service/service"
	"github.com/tnqbao/gau-catalog-service/utils"
)

func (ctrl *Controller) ListUsers(c *gin.Context) {
	users, err := ctrl.UserService.List(c.Request.Context())
	if err != nil {
		ctrl.respondError(c, "User", err)
		return
	}
	utils.JSON200(c, gin.H{
		"message": "Users fetched successfully",
		"users":   users,
	})
}

func (ctrl *Controller) GetUser(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		utils.JSON404(c, "User not found")
		return
	}

	user, err := ctrl.UserService.Get(c.Request.Context(), id)
	if err != nil {
		ctrl.respondError(c, "User", err)
		return
	}
	utils.JSON200(c, gin.H{
		"message": "User fetched successfully",
		"user":    user,
	})
}

func (ctrl *Controller) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateUserRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.respondBindError(c, "User", err)
		return
	}

	user, err := ctrl.UserService.Create(ctx, service.UserInput{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		Role:           req.Role,
		Bio:            req.Bio,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		ctrl.respondError(c, "User", err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[User] Created user %s with role %s", user.ID, user.Role)
	utils.JSON201(c, gin.H{
		"message": "User created successfully",
		"user":    user,
	})
}

func (ctrl *Controller) UpdateUser(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		utils.JSON404(c, "User not found")
		return
	}

	var req dto.UpdateUserRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.respondBindError(c, "User", err)
		return
	}

	user, err := ctrl.UserService.Update(ctx, id, service.UserUpdate{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		Role:           req.Role,
		Bio:            req.Bio,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		ctrl.respondError(c, "User", err)
		return
	}

	utils.JSON200(c, gin.H{
		"message": "User updated successfully",
		"user":    user,
	})
}

func (ctrl *Controller) DeleteUser(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		utils.JSON404(c, "User not found")
		return
	}

	if err := ctrl.UserService.Delete(ctx, id); err != nil {
		ctrl.respondError(c, "User", err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[User] Deleted user %s", id)
	utils.JSON200(c, gin.H{"message": "User deleted successfully"})
}
