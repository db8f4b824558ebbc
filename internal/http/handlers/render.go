package handlers

import "github.com/gofiber/fiber/v2"

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := c.Locals("admin_user"); u != nil {
		data["AdminUser"] = u
	}
	return c.Render(tmpl, data)
}
