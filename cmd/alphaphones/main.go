package main

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"alphaphones/internal/api"
	"alphaphones/internal/config"
	"alphaphones/internal/http/handlers"
	applog "alphaphones/internal/log"
	"alphaphones/internal/mockapi"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	// Templates & app
	engine := html.New("./web/templates", ".html")
	engine.Reload(true)

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Log and show a friendly message
			applog.Error(c, "server.error", err, nil)
			// Avoid leaking internals; best-effort render
			if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
				"Message": "Something went wrong. Please try again.",
			}); rerr != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})
	// Large enough for phone photos, small enough to blunt abuse
	app.Server().MaxRequestBodySize = 8 << 20

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := string(c.Request().URI().Path())
			return strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/media/")
		},
	}))

	// ---------- Static assets ----------
	mediaDir := cfg.MediaDir
	if !filepath.IsAbs(mediaDir) {
		if abs, err := filepath.Abs(mediaDir); err == nil {
			mediaDir = abs
		}
	}
	log.Printf("[static] /static -> ./web/static")
	log.Printf("[static] /media  -> %s", mediaDir)

	app.Static("/static", "./web/static")
	// Guarded media to avoid traversal
	app.Get("/media/*", func(c *fiber.Ctx) error {
		path := c.Params("*")
		rawLower := strings.ToLower(path)
		// Block encoded traversal attempts as well as raw .. or null bytes
		if strings.Contains(rawLower, "..") || strings.Contains(rawLower, "%2e") || strings.Contains(rawLower, "\x00") {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		clean := filepath.Clean(path)
		if clean == "." || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		full := filepath.Join(mediaDir, clean)
		return c.SendFile(full, true)
	})

	// ---------- Built-in dev backend ----------
	if cfg.MockAPI {
		store, err := mockapi.Open(cfg.DBDSN)
		if err != nil {
			log.Fatal(err)
		}
		mockapi.Mount(app.Group("/api"), store)
	}

	// ---------- App handlers ----------
	client := api.New(api.Config{
		BaseURL:   cfg.APIURL,
		UploadURL: cfg.UploadURL,
		Store:     &api.FileTokenStore{Path: cfg.TokenFile},
	})
	deps := handlers.NewDeps(client, cfg)

	// Public pages
	app.Get("/", deps.PageHandler.Home)
	app.Get("/phones", deps.PageHandler.Phones)
	app.Get("/phones/:id", deps.PageHandler.PhoneDetail)
	app.Get("/phones/:id/whatsapp", deps.PageHandler.WhatsAppRedirect)
	app.Get("/about", deps.PageHandler.About)
	app.Get("/contact", deps.PageHandler.ContactForm)
	app.Post("/contact", limiter.New(limiter.Config{
		Max:        10,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.contact.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("contact", fiber.Map{"Error": "Too many messages. Please try again later."})
		},
	}), deps.PageHandler.ContactSubmit)

	// JSON endpoints used by the pages
	app.Post("/api/upload", deps.UploadHandler.Upload)
	app.Post("/api/chat", deps.ChatHandler.Chat)
	app.All("/api/proxy/*", deps.ProxyHandler.Forward)

	// Admin (login throttled)
	app.Get("/admin", deps.AdminHandler.LoginForm)
	app.Post("/admin/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("admin_login", fiber.Map{"Error": "Too many attempts. Please try again later."})
		},
	}), deps.AdminHandler.Login)
	app.Post("/admin/logout", deps.AdminHandler.Logout)

	admin := app.Group("/admin", deps.AdminHandler.RequireAdmin())
	admin.Get("/dashboard", deps.AdminHandler.Dashboard)
	admin.Get("/products", deps.AdminHandler.Products)
	admin.Get("/products/new", deps.AdminHandler.ProductForm)
	admin.Get("/products/:id/edit", deps.AdminHandler.ProductForm)
	admin.Post("/products", deps.AdminHandler.CreateProduct)
	admin.Post("/products/:id", deps.AdminHandler.UpdateProduct)
	admin.Post("/products/:id/delete", deps.AdminHandler.DeleteProduct)
	admin.Get("/inquiries", deps.AdminHandler.Inquiries)
	admin.Post("/inquiries/:id/status", deps.AdminHandler.UpdateInquiry)
	admin.Post("/inquiries/:id/delete", deps.AdminHandler.DeleteInquiry)
	admin.Get("/logs", deps.AdminHandler.Logs)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Page not found"})
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
