package handlers

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"alphaphones/internal/api"
	applog "alphaphones/internal/log"
	"alphaphones/internal/validate"
)

// WhatsApp contact number shown on outbound links.
const whatsAppNumber = "+255629707898"

type PageHandler struct {
	Client *api.Client
}

func (h *PageHandler) Home(c *fiber.Ctx) error {
	featured, err := h.Client.GetFeaturedPhones(c.Context())
	if err != nil {
		applog.Error(c, "page.home.featured", err, nil)
		featured = nil // the page still renders without the carousel
	}
	return render(c, "home", fiber.Map{"Featured": featured})
}

func (h *PageHandler) Phones(c *fiber.Ctx) error {
	var phones []api.Phone
	var err error

	keyword, hasQuery := validate.Q(c.Query("q"))
	if hasQuery {
		phones, err = h.Client.SearchPhones(c.Context(), keyword)
	} else {
		phones, err = h.Client.GetPhones(c.Context())
	}
	if err != nil {
		applog.Error(c, "page.phones.list", err, map[string]any{"q": keyword})
		return render(c, "phones", fiber.Map{"Error": err.Error(), "Query": keyword})
	}
	return render(c, "phones", fiber.Map{"Phones": phones, "Query": keyword})
}

func (h *PageHandler) PhoneDetail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "This phone is no longer available"})
	}
	p, err := h.Client.GetPhone(c.Context(), id)
	if err != nil {
		if api.KindOf(err) == api.KindNotFound {
			return c.Status(404).Render("notfound", fiber.Map{"Message": "This phone is no longer available"})
		}
		applog.Error(c, "page.phone.detail", err, map[string]any{"id": id})
		return c.Status(502).Render("notfound", fiber.Map{"Message": "Catalog is temporarily unavailable"})
	}

	// View tracking never blocks or fails the page.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := h.Client.TrackEvent(ctx, id, api.EventProductView); err != nil {
			applog.Error(nil, "track.view", err, map[string]any{"id": id})
		}
	}()

	return render(c, "phone", fiber.Map{"P": p, "WhatsApp": whatsAppNumber})
}

// WhatsAppRedirect records the outbound click and bounces to the chat link.
func (h *PageHandler) WhatsAppRedirect(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if ok {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := h.Client.TrackEvent(ctx, id, api.EventWhatsAppClick); err != nil {
				applog.Error(nil, "track.whatsapp", err, map[string]any{"id": id})
			}
		}()
	}
	text := c.Query("text")
	target := "https://wa.me/" + whatsAppNumber
	if text != "" {
		target += "?text=" + url.QueryEscape(text)
	}
	return c.Redirect(target, fiber.StatusFound)
}

func (h *PageHandler) About(c *fiber.Ctx) error {
	return render(c, "about", nil)
}

func (h *PageHandler) ContactForm(c *fiber.Ctx) error {
	data := fiber.Map{"WhatsApp": whatsAppNumber}
	if id, ok := validate.ID(c.Query("phoneId")); ok {
		if p, err := h.Client.GetPhone(c.Context(), id); err == nil {
			data["P"] = p
		}
	}
	return render(c, "contact", data)
}

func (h *PageHandler) ContactSubmit(c *fiber.Ctx) error {
	name, nameOK := validate.Name(c.FormValue("name"))
	email, emailOK := validate.Email(c.FormValue("email"))
	phoneNumber, phoneOK := validate.PhoneNumber(c.FormValue("phone"))
	message, msgOK := validate.Message(c.FormValue("message"))
	if !nameOK || !emailOK || !phoneOK || !msgOK {
		applog.Security(c, "contact.validation.fail", map[string]any{"email": c.FormValue("email")})
		return c.Status(400).Render("contact", fiber.Map{
			"Error":    "Please fill in your name, a valid email and a message.",
			"WhatsApp": whatsAppNumber,
		})
	}

	in := api.Inquiry{Name: name, Email: email, PhoneNumber: phoneNumber, Message: message}
	if id, ok := validate.ID(c.FormValue("phoneId")); ok {
		in.PhoneID = id
		in.PhoneName = c.FormValue("phoneName")
	}

	created, err := h.Client.CreateInquiry(c.Context(), in)
	if err != nil {
		applog.Error(c, "contact.submit", err, map[string]any{"email": email})
		// The client already shaped a readable message for every failure kind.
		return c.Status(statusFor(err)).Render("contact", fiber.Map{
			"Error":    err.Error(),
			"WhatsApp": whatsAppNumber,
		})
	}

	applog.Info(c, "contact.submit.ok", map[string]any{"inquiry": created.ID})
	return render(c, "contact", fiber.Map{"Success": true, "WhatsApp": whatsAppNumber})
}

// statusFor maps client error kinds onto the page response status.
func statusFor(err error) int {
	var ae *api.Error
	if !errors.As(err, &ae) {
		return 500
	}
	switch ae.Kind {
	case api.KindValidation:
		return 400
	case api.KindAuth:
		return 401
	case api.KindNotFound:
		return 404
	case api.KindTimeout, api.KindConnectivity, api.KindNetwork, api.KindServer:
		return 502
	default:
		return 500
	}
}
