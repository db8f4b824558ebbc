package handlers

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	applog "alphaphones/internal/log"
)

const maxUploadBytes = 5 << 20 // 5 MiB

var allowedImageExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
}

// UploadHandler stores product images under the media directory and hands
// back their public URL. It answers {url} on success and {error} otherwise,
// which is the contract the API client's upload path expects.
type UploadHandler struct {
	Dir string
}

func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		applog.Security(c, "upload.missing_file", nil)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file provided"})
	}
	if file.Size > maxUploadBytes {
		applog.Security(c, "upload.too_large", map[string]any{"size": file.Size})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "File too large (max 5MB)"})
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExt[ext] {
		applog.Security(c, "upload.bad_ext", map[string]any{"ext": ext})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unsupported file type"})
	}

	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		applog.Error(c, "upload.mkdir", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not store file"})
	}

	// Client filenames never touch the filesystem.
	name := uuid.NewString() + ext
	if err := c.SaveFile(file, filepath.Join(h.Dir, name)); err != nil {
		applog.Error(c, "upload.save", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not store file"})
	}

	applog.Audit(c, "upload.ok", map[string]any{"name": name, "size": file.Size})
	return c.JSON(fiber.Map{"url": "/media/uploads/" + name})
}
