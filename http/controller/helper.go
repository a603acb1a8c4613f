package controller

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tnqbao/gau-catalog-service/service"
	"github.com/tnqbao/gau-catalog-service/utils"
)

// errRequestTooLarge is returned when the body or one file exceeds the upload limits.
type errRequestTooLarge struct {
	FileName string
	Limit    int64
}

func (e *errRequestTooLarge) Error() string {
	if e.FileName == "" {
		return "request body too large"
	}
	return fmt.Sprintf("file %q exceeds %d bytes", e.FileName, e.Limit)
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// limitBody caps the request body at maxFiles full-size files plus form overhead.
func (ctrl *Controller) limitBody(c *gin.Context) {
	media := ctrl.Config.EnvConfig.Media
	limit := media.MaxUploadSize*int64(media.MaxFilesPerRequest) + 1<<20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
}

// readUploadedFiles collects every file part of a multipart form, ordered by
// field name and then by position within the field.
func (ctrl *Controller) readUploadedFiles(c *gin.Context) ([]service.UploadedFile, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		if isBodyTooLarge(err) {
			return nil, &errRequestTooLarge{}
		}
		return nil, err
	}

	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var headers []*multipart.FileHeader
	for _, field := range fields {
		headers = append(headers, form.File[field]...)
	}

	media := ctrl.Config.EnvConfig.Media
	if len(headers) > media.MaxFilesPerRequest {
		return nil, &service.ValidationError{Fields: map[string]string{
			"media": fmt.Sprintf("at most %d files per request", media.MaxFilesPerRequest),
		}}
	}

	files := make([]service.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > media.MaxUploadSize {
			return nil, &errRequestTooLarge{FileName: fh.Filename, Limit: media.MaxUploadSize}
		}
		data, err := readFileHeader(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, service.UploadedFile{
			FileName:    fh.Filename,
			ContentType: detectContentType(fh, data),
			Data:        data,
		})
	}
	return files, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func detectContentType(fh *multipart.FileHeader, data []byte) string {
	declared := fh.Header.Get("Content-Type")
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename))); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

// bindingFields turns validator errors into the field map used by ValidationError.
func bindingFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if name != "" {
			name = strings.ToLower(name[:1]) + name[1:]
		}
		switch fe.Tag() {
		case "max":
			fields[name] = "must be at most " + fe.Param() + " characters"
		default:
			fields[name] = "is invalid"
		}
	}
	return fields
}

// respondBindError answers a failed ShouldBind call.
func (ctrl *Controller) respondBindError(c *gin.Context, tag string, err error) {
	ctx := c.Request.Context()
	if isBodyTooLarge(err) {
		ctrl.respondTooLarge(c, &errRequestTooLarge{})
		return
	}
	if fields := bindingFields(err); fields != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[%s] Invalid request fields: %v", tag, fields)
		utils.JSON400Fields(c, "Validation failed", fields)
		return
	}
	ctrl.Infra.Logger.WarningWithContextf(ctx, "[%s] Failed to bind request: %v", tag, err)
	utils.JSON400(c, "Invalid request payload")
}

func (ctrl *Controller) respondTooLarge(c *gin.Context, err *errRequestTooLarge) {
	body := gin.H{
		"error": "Upload too large",
		"hint":  fmt.Sprintf("each file must be at most %d bytes and at most %d files per request", ctrl.Config.EnvConfig.Media.MaxUploadSize, ctrl.Config.EnvConfig.Media.MaxFilesPerRequest),
	}
	if err.FileName != "" {
		body["file"] = err.FileName
	}
	utils.JSON413(c, body)
}

// respondError maps service errors to status codes. Internal details are
// logged and never returned.
func (ctrl *Controller) respondError(c *gin.Context, tag string, err error) {
	ctx := c.Request.Context()

	var verr *service.ValidationError
	var tooLarge *errRequestTooLarge
	var mediaErr *service.MediaError

	switch {
	case errors.As(err, &verr):
		utils.JSON400Fields(c, "Validation failed", verr.Fields)
	case errors.As(err, &tooLarge):
		ctrl.respondTooLarge(c, tooLarge)
	case errors.Is(err, service.ErrProjectNotFound):
		utils.JSON404(c, "Project not found")
	case errors.Is(err, service.ErrCategoryNotFound):
		utils.JSON404(c, "Category not found")
	case errors.Is(err, service.ErrUserNotFound):
		utils.JSON404(c, "User not found")
	case errors.Is(err, service.ErrCategoryExists):
		utils.JSON409(c, "Category already exists")
	case errors.Is(err, service.ErrCategoryInUse):
		utils.JSON409(c, "Category is still used by projects")
	case errors.Is(err, service.ErrEmailTaken):
		utils.JSON409(c, "Email already registered")
	case errors.As(err, &mediaErr):
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[%s] Media ingestion failed: %v", tag, err)
		utils.JSON500(c, "Failed to store media")
	default:
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[%s] Unexpected error: %v", tag, err)
		utils.JSON500(c, "Internal server error")
	}
}
