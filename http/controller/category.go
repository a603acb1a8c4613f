package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-catalog-service/http/controller/dto"
	"github.com/tnqbao/gau-catalog-service/service"
	"github.com/tnqbao/gau-catalog-service/utils"
)

func (ctrl *Controller) ListCategories(c *gin.Context) {
	categories, err := ctrl.CategoryService.List(c.Request.Context())
	if err != nil {
		ctrl.respondError(c, "Category", err)
		return
	}
	utils.JSON200(c, gin.H{
		"message":    "Categories fetched successfully",
		"categories": categories,
	})
}

func (ctrl *Controller) GetCategory(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		utils.JSON404(c, "Category not found")
		return
	}

	category, err := ctrl.CategoryService.Get(c.Request.Context(), id)
	if err != nil {
		ctrl.respondError(c, "Category", err)
		return
	}
	utils.JSON200(c, gin.H{
		"message":  "Category fetched successfully",
		"category": category,
	})
}

func (ctrl *Controller) CreateCategory(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateCategoryRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.respondBindError(c, "Category", err)
		return
	}

	category, err := ctrl.CategoryService.Create(ctx, service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		ctrl.respondError(c, "Category", err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Category] Created category '%s'", category.Name)
	utils.JSON201(c, gin.H{
		"message":  "Category created successfully",
		"category": category,
	})
}

func (ctrl *Controller) UpdateCategory(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		utils.JSON404(c, "Category not found")
		return
	}

	var req dto.UpdateCategoryRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.respondBindError(c, "Category", err)
		return
	}

	category, err := ctrl.CategoryService.Update(ctx, id, service.CategoryUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		ctrl.respondError(c, "Category", err)
		return
	}

	utils.JSON200(c, gin.H{
		"message":  "Category updated successfully",
		"category": category,
	})
}

func (ctrl *Controller) DeleteCategory(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		utils.JSON404(c, "Category not found")
		return
	}

	if err := ctrl.CategoryService.Delete(ctx, id); err != nil {
		ctrl.respondError(c, "Category", err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Category] Deleted category %s", id)
	utils.JSON200(c, gin.H{"message": "Category deleted successfully"})
}
