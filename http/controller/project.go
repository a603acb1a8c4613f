package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-catalog-service/http/controller/dto"
	"github.com/tnqbao/gau-catalog-service/service"
	"github.com/tnqbao/gau-catalog-service/utils"
)

func (ctrl *Controller) ListProjects(c *gin.Context) {
	ctx := c.Request.Context()

	projects, err := ctrl.ProjectService.List(ctx)
	if err != nil {
		ctrl.respondError(c, "Project", err)
		return
	}

	utils.JSON200(c, gin.H{
		"message":  "Projects fetched successfully",
		"projects": projects,
	})
}

// GetProject also serves the confirmation views of update and delete.
func (ctrl *Controller) GetProject(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		utils.JSON404(c, "Project not found")
		return
	}

	project, err := ctrl.ProjectService.Get(ctx, id)
	if err != nil {
		ctrl.respondError(c, "Project", err)
		return
	}

	utils.JSON200(c, gin.H{
		"message": "Project fetched successfully",
		"project": project,
	})
}

func (ctrl *Controller) CreateProject(c *gin.Context) {
	ctx := c.Request.Context()
	ctrl.limitBody(c)

	var req dto.CreateProjectRequestDTO
	if err := c.ShouldBind(&req); err != nil {
		ctrl.respondBindError(c, "Project", err)
		return
	}

	files, err := ctrl.readUploadedFiles(c)
	if err != nil {
		ctrl.respondError(c, "Project", err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Project] Creating project '%s' with %d media files", req.Title, len(files))

	project, err := ctrl.ProjectService.Create(ctx, service.ProjectFields{
		Title:       req.Title,
		Description: req.Description,
		PowerSource: req.PowerSource,
		Category:    req.Category,
	}, files)
	if err != nil {
		ctrl.respondError(c, "Project", err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Project] Successfully created project: %s", project.ID)
	utils.JSON201(c, gin.H{
		"message": "Project created successfully",
		"project": project,
	})
}

func (ctrl *Controller) UpdateProject(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		utils.JSON404(c, "Project not found")
		return
	}
	ctrl.limitBody(c)

	var req dto.UpdateProjectRequestDTO
	if err := c.ShouldBind(&req); err != nil {
		ctrl.respondBindError(c, "Project", err)
		return
	}

	files, err := ctrl.readUploadedFiles(c)
	if err != nil {
		ctrl.respondError(c, "Project", err)
		return
	}

	project, err := ctrl.ProjectService.Update(ctx, id, service.ProjectUpdate{
		Title:       req.Title,
		Description: req.Description,
		PowerSource: req.PowerSource,
		Category:    req.Category,
	}, files)
	if err != nil {
		ctrl.respondError(c, "Project", err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Project] Successfully updated project: %s", project.ID)
	utils.JSON200(c, gin.H{
		"message": "Project updated successfully",
		"project": project,
	})
}

func (ctrl *Controller) DeleteProject(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		utils.JSON404(c, "Project not found")
		return
	}

	result, err := ctrl.ProjectService.Delete(ctx, id)
	if err != nil {
		ctrl.respondError(c, "Project", err)
		return
	}

	failures := make([]gin.H, 0, len(result.Failures))
	for _, f := range result.Failures {
		failures = append(failures, gin.H{
			"media_id":   f.MediaID,
			"object_key": f.ObjectKey,
			"op":         f.Op,
		})
	}
	if len(failures) > 0 {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Project] Deleted project %s with %d cleanup failures", id, len(failures))
	}

	utils.JSON200(c, gin.H{
		"message":          "Project deleted successfully",
		"project":          result.Project,
		"media_removed":    result.MediaRemoved,
		"storage_deletes":  result.StorageAttempts,
		"already_absent":   result.AlreadyAbsent,
		"cleanup_failures": failures,
	})
}
