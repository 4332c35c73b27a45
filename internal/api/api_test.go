package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blog-cms-api/internal/api"
	"github.com/blog-cms-api/internal/auth"
	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/mocks"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/progress"
	"github.com/blog-cms-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	cfg       *config.Config
	router    *gin.Engine
	services  *service.Services
	repos     *mocks.MockRepositories
	bulk      *mocks.MockBulkService
	publisher *mocks.MockPublisherService
	booster   *mocks.MockBoosterService
	images    *mocks.MockImageStore
}

func setupTestRouter(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080", MaxBodySize: 2048},
		Bulk: config.BulkConfig{
			MaxConcurrentJobs: 1,
			JobTimeout:        time.Minute,
			MaxUploadSize:     8192,
			StreamInterval:    5 * time.Millisecond,
		},
		Auth: config.AuthConfig{
			AdminEmail:    "admin@example.com",
			AdminPassword: "bootstrap-secret",
			JWTSecret:     "test-secret",
			SessionTTL:    time.Hour,
			CronSecret:    "cron-secret",
		},
		Booster: config.BoosterConfig{ViewsMin: 1, ViewsMax: 1, Cooldown: time.Hour},
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	env := &testEnv{
		cfg:       cfg,
		repos:     mocks.NewMockRepositories(),
		bulk:      mocks.NewMockBulkService(),
		publisher: &mocks.MockPublisherService{},
		booster:   mocks.NewMockBoosterService(),
		images:    mocks.NewMockImageStore(),
	}

	log := zerolog.Nop()
	services := service.NewServices(env.repos.Repositories(), service.Dependencies{
		Generator: mocks.NewMockGenerator(),
		Images:    env.images,
		Progress:  progress.NewMemory(time.Second),
	}, cfg, log)
	services.Bulk = env.bulk
	services.Publisher = env.publisher
	services.Booster = env.booster
	services.Scheduler = &mocks.MockSchedulerService{}

	env.services = services
	env.router = api.NewRouter(services, cfg, log)
	return env
}

func (e *testEnv) addArticle(status models.ArticleStatus, title string) *models.Article {
	now := time.Now().UTC()
	a := &models.Article{ID: uuid.New().String(), Title: title, Content: "<p>" + title + "</p>", Status: status, CreatedAt: now, UpdatedAt: now}
	e.repos.Article.Add(a)
	return a
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) adminRequest(t *testing.T, method, target string, body io.Reader) *http.Request {
	t.Helper()
	token, _, err := e.services.Auth.Login(context.Background(), "admin@example.com", "bootstrap-secret")
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, body)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	return req
}

func jsonBody(v interface{}) io.Reader {
	data, _ := json.Marshal(v)
	return bytes.NewReader(data)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	decode(t, w, &response)
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "blog-cms-api", response["service"])
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestHealthEndpointDatabaseDown(t *testing.T) {
	env := setupTestRouter(t)
	env.services.Health = pingFunc(func(ctx context.Context) error { return errors.New("connection refused") })
	router := api.NewRouter(env.services, env.cfg, zerolog.Nop())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response map[string]interface{}
	decode(t, w, &response)
	assert.Equal(t, "unhealthy", response["status"])
}

func TestPublicListShowsOnlyPublished(t *testing.T) {
	env := setupTestRouter(t)
	env.addArticle(models.StatusPublished, "Live")
	env.addArticle(models.StatusDraft, "Hidden")

	w := env.do(httptest.NewRequest("GET", "/api/articles?page=1&limit=10", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Articles []models.Article `json:"articles"`
		Total    int              `json:"total"`
	}
	decode(t, w, &response)
	assert.Equal(t, 1, response.Total)
	require.Len(t, response.Articles, 1)
	assert.Equal(t, "Live", response.Articles[0].Title)
}

func TestViewArticle(t *testing.T) {
	env := setupTestRouter(t)
	live := env.addArticle(models.StatusPublished, "Live")
	draft := env.addArticle(models.StatusDraft, "Draft")

	w := env.do(httptest.NewRequest("GET", "/api/articles/"+live.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var article models.Article
	decode(t, w, &article)
	assert.Equal(t, 1, article.Views)
	assert.Len(t, env.repos.Visitor.Visitors, 1)

	tests := []struct {
		name string
		id   string
	}{
		{"draft", draft.ID},
		{"unknown", uuid.New().String()},
		{"malformed", "not-a-uuid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(httptest.NewRequest("GET", "/api/articles/"+tt.id, nil))
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestLikeOncePerVisitor(t *testing.T) {
	env := setupTestRouter(t)
	a := env.addArticle(models.StatusPublished, "Likeable")

	w := env.do(httptest.NewRequest("POST", "/api/articles/"+a.ID+"/like", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"likes":1`)

	w = env.do(httptest.NewRequest("POST", "/api/articles/"+a.ID+"/like", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateComment(t *testing.T) {
	env := setupTestRouter(t)
	a := env.addArticle(models.StatusPublished, "Discuss")

	req := httptest.NewRequest("POST", "/api/articles/"+a.ID+"/comments", jsonBody(map[string]string{
		"author_name":  "Ada",
		"author_email": "ada@example.com",
		"content":      "Great post",
	}))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	req = httptest.NewRequest("POST", "/api/articles/"+a.ID+"/comments", jsonBody(map[string]string{
		"author_name":  "Ada",
		"author_email": "not-an-email",
		"content":      "Great post",
	}))
	w = env.do(req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "author_email")

	w = env.do(httptest.NewRequest("GET", "/api/articles/"+a.ID+"/comments", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Comments []models.Comment `json:"comments"`
	}
	decode(t, w, &response)
	assert.Len(t, response.Comments, 1)
}

func TestAdminRequiresSession(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(httptest.NewRequest("GET", "/admin/articles", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("GET", "/admin/articles", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "forged"})
	w = env.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(env.adminRequest(t, "GET", "/admin/articles", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(httptest.NewRequest("POST", "/admin/login", jsonBody(map[string]string{
		"email":    "admin@example.com",
		"password": "bootstrap-secret",
	})))
	require.Equal(t, http.StatusOK, w.Code)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req := httptest.NewRequest("GET", "/admin/me", nil)
	req.AddCookie(session)
	w = env.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin@example.com")

	w = env.do(httptest.NewRequest("POST", "/admin/login", jsonBody(map[string]string{
		"email":    "admin@example.com",
		"password": "wrong",
	})))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminCreateArticle(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(env.adminRequest(t, "POST", "/admin/articles", jsonBody(map[string]interface{}{
		"title":    "Fresh",
		"content":  "<p>Body</p>",
		"status":   "published",
		"hashtags": []string{"go"},
	})))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var article models.Article
	decode(t, w, &article)
	assert.Equal(t, models.StatusPublished, article.Status)
	assert.NotNil(t, article.PublishedAt)

	w = env.do(env.adminRequest(t, "POST", "/admin/articles", jsonBody(map[string]interface{}{"title": ""})))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	huge := strings.Repeat("x", 4096)
	w = env.do(env.adminRequest(t, "POST", "/admin/articles", jsonBody(map[string]interface{}{"title": "Big", "content": huge})))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "payload too large")
}

func bulkForm(t *testing.T, topics string, images int, padding int) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if topics != "" {
		fw, err := mw.CreateFormFile("topicsFile", "topics.csv")
		require.NoError(t, err)
		_, _ = fw.Write([]byte(topics))
	}
	for i := 0; i < images; i++ {
		fw, err := mw.CreateFormFile("images", "photo.png")
		require.NoError(t, err)
		_, _ = fw.Write(append([]byte("png"), bytes.Repeat([]byte{0}, padding)...))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestBulkGeneratorStart(t *testing.T) {
	env := setupTestRouter(t)

	body, contentType := bulkForm(t, "Go generics\nGo channels\n", 2, 0)
	req := env.adminRequest(t, "POST", "/admin/bulk-generator", body)
	req.Header.Set("Content-Type", contentType)
	w := env.do(req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp models.BulkJobResponse
	decode(t, w, &resp)
	assert.Equal(t, "job-test", resp.JobID)
	assert.Equal(t, "/admin/bulk-generator/job-test/progress", resp.ProgressURL)

	require.Len(t, env.bulk.Requests, 1)
	assert.Equal(t, "topics.csv", env.bulk.Requests[0].TopicsFile.Name)
	assert.Len(t, env.bulk.Requests[0].Images, 2)
}

func TestBulkGeneratorValidation(t *testing.T) {
	env := setupTestRouter(t)

	tests := []struct {
		name     string
		topics   string
		images   int
		padding  int
		wantCode int
		wantBody string
	}{
		{"missing topics file", "", 1, 0, http.StatusBadRequest, "topics file is required"},
		{"missing images", "one\n", 0, 0, http.StatusBadRequest, "at least one image"},
		{"too large", "one\n", 1, 16384, http.StatusRequestEntityTooLarge, "payload too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := bulkForm(t, tt.topics, tt.images, tt.padding)
			req := env.adminRequest(t, "POST", "/admin/bulk-generator", body)
			req.Header.Set("Content-Type", contentType)
			w := env.do(req)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
	assert.Empty(t, env.bulk.Requests)
}

func TestBulkGeneratorBusy(t *testing.T) {
	env := setupTestRouter(t)
	env.bulk.StartJobFunc = func(ctx context.Context, req *models.BulkRequest) (*models.BulkJobResponse, error) {
		return nil, service.ErrTooManyJobs
	}

	body, contentType := bulkForm(t, "one\n", 1, 0)
	req := env.adminRequest(t, "POST", "/admin/bulk-generator", body)
	req.Header.Set("Content-Type", contentType)
	w := env.do(req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestBulkGeneratorStatus(t *testing.T) {
	env := setupTestRouter(t)
	env.bulk.Snapshots["job-1"] = []models.ProgressSnapshot{
		{JobID: "job-1", Stage: models.StageGenerating, Progress: 2, Total: 4, Message: "Generating article 1 of 2"},
	}

	w := env.do(env.adminRequest(t, "GET", "/admin/bulk-generator/job-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var snap models.ProgressSnapshot
	decode(t, w, &snap)
	assert.Equal(t, models.StageGenerating, snap.Stage)
	assert.Equal(t, 2, snap.Progress)

	w = env.do(env.adminRequest(t, "GET", "/admin/bulk-generator/job-missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// streamRecorder satisfies http.CloseNotifier for gin's Stream
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *streamRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func TestBulkGeneratorProgressStream(t *testing.T) {
	env := setupTestRouter(t)
	env.bulk.Snapshots["job-1"] = []models.ProgressSnapshot{
		{JobID: "job-1", Stage: models.StageGenerating, Progress: 3, Total: 5, Message: "Generating article 1 of 2"},
		{JobID: "job-1", Stage: models.StageScheduling, Progress: 4, Total: 5, Message: "Scheduled"},
		{JobID: "job-1", Stage: models.StageComplete, Progress: 5, Total: 5, Message: "Successfully scheduled 2 articles using 2 images"},
	}

	w := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
	env.router.ServeHTTP(w, env.adminRequest(t, "GET", "/admin/bulk-generator/job-1/progress", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	var frames []map[string]interface{}
	for _, chunk := range strings.Split(strings.TrimSpace(w.Body.String()), "\n\n") {
		require.True(t, strings.HasPrefix(chunk, "data: "), chunk)
		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(chunk, "data: ")), &frame))
		frames = append(frames, frame)
	}
	require.Len(t, frames, 3)
	assert.Equal(t, "generating", frames[0]["stage"])
	assert.Equal(t, "complete", frames[2]["stage"])
	assert.EqualValues(t, 5, frames[2]["progress"])
}

func TestBulkGeneratorProgressUnknownJob(t *testing.T) {
	env := setupTestRouter(t)
	w := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
	env.router.ServeHTTP(w, env.adminRequest(t, "GET", "/admin/bulk-generator/job-nope/progress", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCronRequiresSecret(t *testing.T) {
	env := setupTestRouter(t)
	env.publisher.Result = &models.PublishResult{Published: 2, ArticleIDs: []string{"a", "b"}, PublishedAt: time.Now()}

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer nope", http.StatusUnauthorized},
		{"not bearer", "cron-secret", http.StatusUnauthorized},
		{"valid", "Bearer cron-secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/cron/publish", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := env.do(req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
	assert.Equal(t, 1, env.publisher.Calls)
}

func TestCronBoostEngagement(t *testing.T) {
	env := setupTestRouter(t)
	env.booster.Result = &models.BoostResult{ArticlesUpdated: 3, LikesAdded: 2}

	req := httptest.NewRequest("GET", "/cron/boost-engagement", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"articles_updated":3`)
	assert.Equal(t, 1, env.booster.RunCalls)
}

func TestPublicTrafficTriggersBoost(t *testing.T) {
	env := setupTestRouter(t, func(c *config.Config) { c.Booster.OnRequest = true })

	w := env.do(httptest.NewRequest("GET", "/api/articles", nil))
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case <-env.booster.MaybeRunCalled():
	case <-time.After(2 * time.Second):
		t.Fatal("expected an opportunistic boost")
	}

	// further traffic inside the cooldown window does not reach the booster
	for i := 0; i < 5; i++ {
		env.do(httptest.NewRequest("GET", "/api/articles", nil))
	}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, env.booster.MaybeRunCount())
}

func TestAdminStats(t *testing.T) {
	env := setupTestRouter(t)
	env.addArticle(models.StatusPublished, "one")
	env.addArticle(models.StatusDraft, "two")

	w := env.do(env.adminRequest(t, "GET", "/admin/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.DashboardStats
	decode(t, w, &stats)
	assert.Equal(t, 2, stats.Articles)
}

func TestAdminImages(t *testing.T) {
	env := setupTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("images", "cover.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("png"))
	require.NoError(t, mw.Close())

	req := env.adminRequest(t, "POST", "/admin/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := env.do(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "/uploads/cover.png")

	w = env.do(env.adminRequest(t, "GET", "/admin/images", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cover.png")

	w = env.do(env.adminRequest(t, "DELETE", "/admin/images", jsonBody(map[string][]string{"names": {"cover.png"}})))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":1`)
}
