package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/assetforge/api/internal/auth"
	"github.com/assetforge/api/internal/client"
	"github.com/assetforge/api/internal/config"
	"github.com/assetforge/api/internal/handler"
	"github.com/assetforge/api/internal/middleware"
	"github.com/assetforge/api/internal/model"
	"github.com/assetforge/api/internal/service"
	"github.com/assetforge/api/internal/store"
)

const (
	testJWTSecret = "test-secret-for-e2e"
	testUserID    = "test-user-123"
	testProjectID = "proj-e2e"
)

// tripoFake is an in-process stand-in for the provider API. Submitted tasks
// start queued; tests flip them via complete/fail.
type tripoFake struct {
	mu     sync.Mutex
	nextID int
	tasks  map[string]map[string]interface{}
	server *httptest.Server
}

func newTripoFake(t *testing.T) *tripoFake {
	f := &tripoFake{tasks: make(map[string]map[string]interface{})}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *tripoFake) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/task":
		f.nextID++
		taskID := fmt.Sprintf("fake-task-%d", f.nextID)
		f.tasks[taskID] = map[string]interface{}{
			"task_id": taskID,
			"status":  "queued",
		}
		json.NewEncoder(w).Encode(map[string]string{
			"task_id": taskID,
			"status":  "queued",
		})

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/task/"):
		taskID := strings.TrimPrefix(r.URL.Path, "/task/")
		task, ok := f.tasks[taskID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "task not found"})
			return
		}
		json.NewEncoder(w).Encode(task)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// complete marks a task succeeded with the given output payload.
func (f *tripoFake) complete(taskID string, output map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[taskID] = map[string]interface{}{
		"task_id": taskID,
		"status":  "success",
		"output":  output,
	}
}

func (f *tripoFake) fail(taskID, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[taskID] = map[string]interface{}{
		"task_id": taskID,
		"status":  "failed",
		"error":   message,
	}
}

// testApp holds all components needed for testing
type testApp struct {
	app      *fiber.App
	tripo    *tripoFake
	assets   *store.AssetStore
	projects *store.ProjectStore
	refs     *store.RefStore
	db       *gorm.DB
}

// setupApp creates a Fiber app identical to main.go but on an in-memory
// database and a fake provider. Redis stays unconfigured; the rate limiter
// passes requests through when it cannot reach Redis.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Project{},
		&model.UserSetting{},
		&model.AssetRecord{},
		&model.TaskRef{},
		&model.ImageAsset{},
		&model.GameAssetRef{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	assetStore := store.NewAssetStore(db)
	projectStore := store.NewProjectStore(db)
	refStore := store.NewRefStore(db)

	if err := projectStore.CreateProject(context.Background(), &model.Project{
		ID:      testProjectID,
		OwnerID: testUserID,
		Name:    "E2E Game",
	}); err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}

	// Redis intentionally points nowhere; Incr failures fall through.
	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:1"})

	validate := validator.New()

	tripo := newTripoFake(t)
	tripoClient := client.NewTripoClient(&config.TripoConfig{
		APIKey:  "test-key",
		BaseURL: tripo.server.URL,
	})

	// Services — no storage, no websocket hub
	generationService := service.NewGenerationService(assetStore, projectStore, tripoClient, nil)
	versionService := service.NewVersionService(refStore, assetStore, projectStore)
	exportService := service.NewExportService(assetStore, projectStore, nil)

	// Handlers
	generate3DHandler := handler.NewGenerate3DHandler(generationService, validate)
	versionHandler := handler.NewVersionHandler(versionService)
	exportHandler := handler.NewExportHandler(exportService, validate)
	settingsHandler := handler.NewSettingsHandler(projectStore, validate)

	// Auth handler (for /auth/verify)
	authHandler := handler.NewAuthHandler(nil, testJWTSecret)

	// Auth middleware — legacy HMAC only
	authMiddleware := middleware.NewLegacyAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	// Base routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"tripo": tripoClient.IsConfigured(),
				"r2":    false,
				"auth":  true,
			},
		})
	})
	app.Get("/auth/verify", authHandler.Verify)

	// API routes (authenticated)
	api := app.Group("/api", authMiddleware.Authenticate())

	// Use very high rate limits so tests don't get blocked
	generate := api.Group("/generate-3d")
	generate.Post("/", rateLimiter.GenerateLimit(10000), generate3DHandler.Generate)
	generate.Post("/rig", rateLimiter.GenerateLimit(10000), generate3DHandler.Rig)
	generate.Post("/animate", rateLimiter.GenerateLimit(10000), generate3DHandler.Animate)
	generate.Get("/:taskId/status", rateLimiter.PollLimit(10000), generate3DHandler.Status)

	api.Get("/projects/:projectId/asset-versions/check", rateLimiter.VersionLimit(10000), versionHandler.Check)
	api.Post("/asset-refs/:refId/sync", rateLimiter.VersionLimit(10000), versionHandler.Sync)

	export := api.Group("/export", rateLimiter.ExportLimit(10000))
	export.Post("/asset", exportHandler.Asset)

	api.Put("/settings/tripo-key", settingsHandler.SetTripoKey)
	api.Get("/settings", settingsHandler.Get)

	return &testApp{
		app:      app,
		tripo:    tripo,
		assets:   assetStore,
		projects: projectStore,
		refs:     refStore,
		db:       db,
	}
}

// generateToken creates a legacy HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	claims := auth.LegacyClaims{
		UserID: testUserID,
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "assetforge-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
