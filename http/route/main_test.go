package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-catalog-service/config"
	"github.com/tnqbao/gau-catalog-service/http/controller"
	routes "github.com/tnqbao/gau-catalog-service/http/route"
	"github.com/tnqbao/gau-catalog-service/infra"
	"github.com/tnqbao/gau-catalog-service/service"
	"github.com/tnqbao/gau-catalog-service/service/servicetest"
)

type testServer struct {
	router  *gin.Engine
	storage *servicetest.MemoryStorage
	media   *servicetest.MediaRepo
	env     *config.EnvConfig
	ctrl    *controller.Controller
}

func newTestServer(t *testing.T, tweak func(env *config.EnvConfig)) *testServer {
	t.Helper()
	return newTestServerWith(t, tweak, nil)
}

func newTestServerWith(t *testing.T, tweak func(env *config.EnvConfig), adjust func(ctrl *controller.Controller)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &config.EnvConfig{}
	env.Media.UploadConcurrency = 4
	env.Media.CallTimeout = time.Second
	env.Media.UpdatePolicy = service.UpdatePolicyAppend
	env.Media.MaxUploadSize = 1 << 20
	env.Media.MaxFilesPerRequest = 10
	env.Cache.TTL = time.Minute
	if tweak != nil {
		tweak(env)
	}

	logger := servicetest.Logger()
	storage := servicetest.NewMemoryStorage()
	projects := servicetest.NewProjectRepo()
	media := servicetest.NewMediaRepo()
	categories := servicetest.NewCategoryRepo()

	ingestor := service.NewMediaIngestor(storage, media, &servicetest.RecordingPublisher{}, logger, service.IngestorConfig{
		Concurrency: env.Media.UploadConcurrency,
		CallTimeout: env.Media.CallTimeout,
	})

	ctrl := &controller.Controller{
		Config: &config.Config{EnvConfig: env},
		Infra:  &infra.Infra{Logger: logger},
		ProjectService: service.NewProjectService(projects, media, categories, ingestor, servicetest.NewMemoryCache(), logger, service.ProjectServiceConfig{
			UpdatePolicy: env.Media.UpdatePolicy,
			CacheTTL:     env.Cache.TTL,
			CallTimeout:  env.Media.CallTimeout,
		}),
		CategoryService: service.NewCategoryService(categories, projects, logger),
		UserService:     service.NewUserService(servicetest.NewUserRepo(), logger),
		HealthChecks: map[string]func(ctx context.Context) error{
			"postgres": func(ctx context.Context) error { return nil },
		},
	}

	if adjust != nil {
		adjust(ctrl)
	}
	return &testServer{router: routes.SetupRouter(ctrl), storage: storage, media: media, env: env, ctrl: ctrl}
}

type part struct {
	name        string
	fileName    string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.name+`"; filename="`+p.fileName+`"`)
		h.Set("Content-Type", p.contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func (s *testServer) do(t *testing.T, method, path string, body *bytes.Buffer, contentType string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return s.doWithHeaders(t, method, path, body, contentType, nil)
}

func (s *testServer) doWithHeaders(t *testing.T, method, path string, body *bytes.Buffer, contentType string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	}
	return rec, payload
}

func pressForm() map[string]string {
	return map[string]string{
		"title":       "Press A",
		"description": "Hydraulic press, 40 tons",
		"powerSource": "Electric",
		"category":    "Presses",
	}
}

func TestProjectCreateGetDeleteFlow(t *testing.T) {
	s := newTestServer(t, nil)

	body, ct := multipartBody(t, pressForm(),
		part{name: "media", fileName: "front.png", contentType: "image/png", data: []byte("png-bytes")},
		part{name: "media", fileName: "demo.mp4", contentType: "video/mp4", data: []byte("mp4-bytes")},
	)
	rec, payload := s.do(t, http.MethodPost, "/catalog/project/create", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	project := payload["project"].(map[string]any)
	assert.Equal(t, "Press A", project["title"])
	media := project["media"].([]any)
	require.Len(t, media, 2)
	assert.Equal(t, "image", media[0].(map[string]any)["type"])
	assert.Equal(t, "video", media[1].(map[string]any)["type"])
	assert.True(t, strings.HasPrefix(media[0].(map[string]any)["url"].(string), "http://storage.test/catalog-media/"))
	assert.Equal(t, 2, s.storage.Len())

	id := project["id"].(string)

	rec, payload = s.do(t, http.MethodGet, "/catalog/project/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, payload["project"].(map[string]any)["media"], 2)

	rec, payload = s.do(t, http.MethodGet, "/catalog/projects", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, payload["projects"], 1)

	rec, payload = s.do(t, http.MethodPost, "/catalog/project/"+id+"/delete", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, payload["media_removed"])
	assert.EqualValues(t, 2, payload["storage_deletes"])
	assert.Empty(t, payload["cleanup_failures"])
	assert.Equal(t, "Press A", payload["project"].(map[string]any)["title"])
	assert.Equal(t, 0, s.storage.Len())
	assert.Equal(t, 0, s.media.Len())

	rec, _ = s.do(t, http.MethodGet, "/catalog/project/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProjectWithoutMedia(t *testing.T) {
	s := newTestServer(t, nil)

	body, ct := multipartBody(t, pressForm())
	rec, payload := s.do(t, http.MethodPost, "/catalog/project/create", body, ct)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, payload["project"].(map[string]any)["media"])
}

func TestCreateProjectValidationFailure(t *testing.T) {
	s := newTestServer(t, nil)

	fields := pressForm()
	delete(fields, "title")
	body, ct := multipartBody(t, fields,
		part{name: "media", fileName: "front.png", contentType: "image/png", data: []byte("png")},
	)
	rec, payload := s.do(t, http.MethodPost, "/catalog/project/create", body, ct)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, payload["fields"], "title")
	assert.Equal(t, 0, s.storage.Len())
}

func TestCreateProjectUploadFailureLeavesNothing(t *testing.T) {
	s := newTestServer(t, nil)
	s.storage.PutHook = func(ctx context.Context, key string) error {
		if strings.HasSuffix(key, "demo.mp4") {
			return errors.New("storage unavailable")
		}
		return nil
	}

	body, ct := multipartBody(t, pressForm(),
		part{name: "media", fileName: "front.png", contentType: "image/png", data: []byte("png")},
		part{name: "media", fileName: "demo.mp4", contentType: "video/mp4", data: []byte("mp4")},
	)
	rec, payload := s.do(t, http.MethodPost, "/catalog/project/create", body, ct)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, payload["error"], "storage unavailable")
	assert.Equal(t, 0, s.storage.Len())
	assert.Equal(t, 0, s.media.Len())

	rec, payload = s.do(t, http.MethodGet, "/catalog/projects", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, payload["projects"])
}

func TestCreateProjectFileTooLarge(t *testing.T) {
	s := newTestServer(t, func(env *config.EnvConfig) { env.Media.MaxUploadSize = 16 })

	body, ct := multipartBody(t, pressForm(),
		part{name: "media", fileName: "huge.png", contentType: "image/png", data: bytes.Repeat([]byte("x"), 64)},
	)
	rec, payload := s.do(t, http.MethodPost, "/catalog/project/create", body, ct)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "huge.png", payload["file"])
	assert.NotEmpty(t, payload["hint"])
	assert.Equal(t, 0, s.storage.Len())
}

func TestCreateProjectTooManyFiles(t *testing.T) {
	s := newTestServer(t, func(env *config.EnvConfig) { env.Media.MaxFilesPerRequest = 1 })

	body, ct := multipartBody(t, pressForm(),
		part{name: "media", fileName: "a.png", contentType: "image/png", data: []byte("a")},
		part{name: "media", fileName: "b.png", contentType: "image/png", data: []byte("b")},
	)
	rec, payload := s.do(t, http.MethodPost, "/catalog/project/create", body, ct)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, payload["fields"], "media")
}

func TestUpdateProjectAppendsMedia(t *testing.T) {
	s := newTestServer(t, nil)

	body, ct := multipartBody(t, pressForm(),
		part{name: "media", fileName: "front.png", contentType: "image/png", data: []byte("png")},
	)
	rec, payload := s.do(t, http.MethodPost, "/catalog/project/create", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := payload["project"].(map[string]any)["id"].(string)

	body, ct = multipartBody(t, map[string]string{"title": "Press A2"},
		part{name: "media", fileName: "side.png", contentType: "image/png", data: []byte("png")},
	)
	rec, payload = s.do(t, http.MethodPost, "/catalog/project/"+id+"/update", body, ct)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	project := payload["project"].(map[string]any)
	assert.Equal(t, "Press A2", project["title"])
	assert.Equal(t, "Electric", project["power_source"])
	assert.Len(t, project["media"], 2)
}

func TestUnknownProjectIs404(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{
		"/catalog/project/" + uuid.NewString(),
		"/catalog/project/not-a-uuid",
		"/catalog/project/" + uuid.NewString() + "/delete",
	} {
		rec, _ := s.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	rec, _ := s.do(t, http.MethodPost, "/catalog/project/"+uuid.NewString()+"/delete", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body, ct := multipartBody(t, map[string]string{"title": "x"})
	rec, _ = s.do(t, http.MethodPost, "/catalog/project/"+uuid.NewString()+"/update", body, ct)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMutationsRequireTokenWhenSecretConfigured(t *testing.T) {
	s := newTestServer(t, func(env *config.EnvConfig) { env.JWT.SecretKey = "secret" })

	body, ct := multipartBody(t, pressForm())
	rec, _ := s.do(t, http.MethodPost, "/catalog/project/create", body, ct)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/catalog/projects", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCategoryRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	rec, payload := s.do(t, http.MethodPost, "/catalog/category/create", bytes.NewBufferString(`{"name":"Presses"}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := payload["category"].(map[string]any)["id"].(string)

	rec, _ = s.do(t, http.MethodPost, "/catalog/category/create", bytes.NewBufferString(`{"name":"Presses"}`), "application/json")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, payload = s.do(t, http.MethodGet, "/catalog/categories", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, payload["categories"], 1)

	rec, _ = s.do(t, http.MethodPost, "/catalog/category/"+id+"/delete", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/catalog/category/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserRoutesAreGuardedByAccessPolicy(t *testing.T) {
	s := newTestServer(t, nil)

	// httptest requests come from 192.0.2.1, which is not loopback.
	rec, _ := s.do(t, http.MethodGet, "/catalog/users", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	s = newTestServer(t, func(env *config.EnvConfig) { env.Admin.AllowedIPs = []string{"192.0.2.1"} })
	rec, payload := s.do(t, http.MethodPost, "/catalog/user/create",
		bytes.NewBufferString(`{"name":"Ada","email":"ada@example.com","password":"correct-horse","role":"editor"}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := payload["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.NotContains(t, user, "password_hash")

	rec, _ = s.do(t, http.MethodPost, "/catalog/user/create",
		bytes.NewBufferString(`{"name":"Ada","email":"ada@example.com","password":"correct-horse","role":"editor"}`), "application/json")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthReportsFailingDependency(t *testing.T) {
	s := newTestServer(t, nil)

	rec, payload := s.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", payload["status"])

	s.ctrl.HealthChecks["storage"] = func(ctx context.Context) error { return errors.New("bucket unreachable") }
	rec, payload = s.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", payload["status"])
	checks := payload["checks"].(map[string]any)
	assert.Equal(t, "up", checks["postgres"])
	assert.Equal(t, "down", checks["storage"])
}

const adminUserBody = `{"name":"Mallory","email":"mallory@example.com","password":"correct-horse","role":"admin"}`

func TestUserRoutesIgnoreForwardedForFromUntrustedClients(t *testing.T) {
	s := newTestServer(t, nil)

	// 192.0.2.1 claims to be loopback through X-Forwarded-For.
	rec, _ := s.doWithHeaders(t, http.MethodPost, "/catalog/user/create",
		bytes.NewBufferString(adminUserBody), "application/json",
		map[string]string{"X-Forwarded-For": "127.0.0.1", "X-Real-IP": "127.0.0.1"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUserRoutesHonourForwardedForFromTrustedProxy(t *testing.T) {
	s := newTestServer(t, func(env *config.EnvConfig) { env.TrustedProxies = []string{"192.0.2.1"} })

	rec, _ := s.doWithHeaders(t, http.MethodGet, "/catalog/users", nil, "",
		map[string]string{"X-Forwarded-For": "127.0.0.1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.doWithHeaders(t, http.MethodGet, "/catalog/users", nil, "",
		map[string]string{"X-Forwarded-For": "203.0.113.9"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUserRoutesUseInjectedAdminPolicy(t *testing.T) {
	s := newTestServerWith(t, nil, func(ctrl *controller.Controller) {
		ctrl.AdminPolicy = func(c *gin.Context) bool { return c.GetHeader("X-Admin-Ticket") == "granted" }
	})

	rec, _ := s.do(t, http.MethodGet, "/catalog/users", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, payload := s.doWithHeaders(t, http.MethodGet, "/catalog/users", nil, "",
		map[string]string{"X-Admin-Ticket": "granted"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, payload["users"])
}
