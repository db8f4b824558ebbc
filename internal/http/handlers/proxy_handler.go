package handlers

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	applog "alphaphones/internal/log"
)

// ProxyHandler forwards browser calls to the backend API, passing the
// Authorization header through and relaying whatever status and body come
// back. It deliberately does not retry; the API client owns that policy.
type ProxyHandler struct {
	BackendURL string
	HTTPClient *http.Client
}

func (h *ProxyHandler) client() *http.Client {
	if h.HTTPClient != nil {
		return h.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (h *ProxyHandler) Forward(c *fiber.Ctx) error {
	path := c.Params("*")
	target := h.BackendURL + "/" + path
	if qs := string(c.Request().URI().QueryString()); qs != "" {
		target += "?" + qs
	}

	var body io.Reader
	if len(c.Body()) > 0 {
		body = bytes.NewReader(c.Body())
	}
	req, err := http.NewRequestWithContext(c.Context(), c.Method(), target, body)
	if err != nil {
		return h.unreachable(c, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if auth := c.Get("Authorization"); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := h.client().Do(req)
	if err != nil {
		return h.unreachable(c, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return h.unreachable(c, err)
	}

	c.Set("Content-Type", "application/json")
	return c.Status(resp.StatusCode).Send(data)
}

func (h *ProxyHandler) unreachable(c *fiber.Ctx, err error) error {
	applog.Error(c, "proxy.backend", err, map[string]any{"backend": h.BackendURL})
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error":   "Backend Connection Error",
		"message": "Cannot connect to backend at " + h.BackendURL + ". Please ensure the backend is running.",
		"details": err.Error(),
	})
}
