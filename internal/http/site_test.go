package handlers_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"

	"alphaphones/internal/api"
	"alphaphones/internal/config"
	"alphaphones/internal/http/handlers"
	"alphaphones/internal/mockapi"
)

// startBackend runs the dev backend on a real port so the site's API
// client exercises its full HTTP pipeline against it.
func startBackend(t *testing.T) string {
	t.Helper()
	store, err := mockapi.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	mockapi.Mount(app.Group("/api"), store)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "http://" + ln.Addr().String() + "/api"
}

// newSite builds the public app wired to the given backend, mirroring the
// route table of the main binary.
func newSite(t *testing.T, backendURL string) *fiber.App {
	t.Helper()
	cfg := config.Config{
		APIURL:    backendURL,
		UploadURL: backendURL + "/upload",
		UploadDir: t.TempDir(),
	}
	client := api.New(api.Config{
		BaseURL:    cfg.APIURL,
		UploadURL:  cfg.UploadURL,
		Timeout:    5 * time.Second,
		MaxRetries: -1,
		RetryDelay: time.Millisecond,
	})
	deps := handlers.NewDeps(client, cfg)

	engine := html.New("../../web/templates", ".html")
	app := fiber.New(fiber.Config{Views: engine, DisableStartupMessage: true})

	app.Get("/", deps.PageHandler.Home)
	app.Get("/phones", deps.PageHandler.Phones)
	app.Get("/phones/:id", deps.PageHandler.PhoneDetail)
	app.Get("/about", deps.PageHandler.About)
	app.Get("/contact", deps.PageHandler.ContactForm)
	app.Post("/contact", deps.PageHandler.ContactSubmit)

	app.Post("/api/upload", deps.UploadHandler.Upload)
	app.Post("/api/chat", deps.ChatHandler.Chat)
	app.All("/api/proxy/*", deps.ProxyHandler.Forward)

	app.Get("/admin", deps.AdminHandler.LoginForm)
	app.Post("/admin/login", deps.AdminHandler.Login)
	app.Post("/admin/logout", deps.AdminHandler.Logout)
	admin := app.Group("/admin", deps.AdminHandler.RequireAdmin())
	admin.Get("/dashboard", deps.AdminHandler.Dashboard)
	admin.Get("/products", deps.AdminHandler.Products)

	return app
}

// backendClient logs into the backend directly, for seeding test data.
func backendClient(t *testing.T, backendURL string) *api.Client {
	t.Helper()
	client := api.New(api.Config{
		BaseURL:    backendURL,
		Timeout:    5 * time.Second,
		MaxRetries: -1,
		RetryDelay: time.Millisecond,
	})
	if _, err := client.Login(context.Background(), "admin", "admin123"); err != nil {
		t.Fatalf("backend login: %v", err)
	}
	return client
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
