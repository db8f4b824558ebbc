package mockapi

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alphaphones/internal/api"
	applog "alphaphones/internal/log"
	"alphaphones/internal/validate"
)

// Mount registers the backend contract on router (normally the /api group).
// Read endpoints for the showcase are public; everything that mutates the
// catalog or reads staff data wants a bearer token.
func Mount(router fiber.Router, store *Store) {
	h := &handler{store: store}

	router.Post("/auth/login", h.login)

	router.Get("/phones", h.listPhones)
	router.Get("/phones/featured", h.featuredPhones)
	router.Get("/phones/search", h.searchPhones)
	router.Get("/phones/:id", h.getPhone)
	router.Post("/phones", h.requireAuth, h.createPhone)
	router.Put("/phones/:id", h.requireAuth, h.updatePhone)
	router.Delete("/phones/:id", h.requireAuth, h.deletePhone)

	router.Get("/inquiries", h.requireAuth, h.listInquiries)
	router.Post("/inquiries", h.createInquiry)
	router.Put("/inquiries/:id/status", h.requireAuth, h.updateInquiryStatus)
	router.Delete("/inquiries/:id", h.requireAuth, h.deleteInquiry)

	router.Post("/analytics/track", h.trackEvent)
	router.Get("/analytics/dashboard", h.requireAuth, h.dashboard)
	router.Get("/analytics/top-products", h.requireAuth, h.topProducts)

	router.Get("/audit-logs/recent", h.requireAuth, h.recentLogs)
	router.Get("/audit-logs/entity/:type/:id", h.requireAuth, h.entityLogs)
}

type handler struct {
	store *Store
}

// data wraps a payload in the success envelope every endpoint uses.
func data(c *fiber.Ctx, v any) error {
	return c.JSON(fiber.Map{"data": v})
}

type fieldError struct {
	Field          string `json:"field"`
	DefaultMessage string `json:"defaultMessage"`
}

// requireAuth resolves the bearer token; unknown or missing tokens get a
// bare 401 so the client clears its session.
func (h *handler) requireAuth(c *fiber.Ctx) error {
	auth := c.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
	}
	username, err := h.store.UserForToken(token)
	if err != nil {
		return err
	}
	if username == "" {
		applog.Security(c, "mockapi.token.unknown", nil)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
	}
	c.Locals("username", username)
	return c.Next()
}

func username(c *fiber.Ctx) string {
	u, _ := c.Locals("username").(string)
	return u
}

// ---------- auth ----------

func (h *handler) login(c *fiber.Ctx) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	u, ok, err := h.store.Authenticate(body.Username, body.Password)
	if err != nil {
		return err
	}
	if !ok {
		applog.Security(c, "mockapi.login.fail", map[string]any{"username": body.Username})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid username or password"})
	}
	token := uuid.NewString()
	if err := h.store.SaveToken(token, u.ID); err != nil {
		return err
	}
	h.store.AppendAudit("auth.login", "staff login", u.Username, "user", u.ID)
	return data(c, api.AuthResponse{
		Token: token, ID: u.ID, Username: u.Username,
		Email: u.Email, FullName: u.FullName, Role: u.Role,
	})
}

// ---------- phones ----------

func (h *handler) listPhones(c *fiber.Ctx) error {
	phones, err := h.store.ListPhones()
	if err != nil {
		return err
	}
	return data(c, phones)
}

func (h *handler) featuredPhones(c *fiber.Ctx) error {
	phones, err := h.store.FeaturedPhones()
	if err != nil {
		return err
	}
	return data(c, phones)
}

func (h *handler) searchPhones(c *fiber.Ctx) error {
	q, ok := validate.Q(c.Query("keyword"))
	if !ok {
		return data(c, []api.Phone{})
	}
	phones, err := h.store.SearchPhones(q)
	if err != nil {
		return err
	}
	return data(c, phones)
}

func (h *handler) getPhone(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Phone not found"})
	}
	p, found, err := h.store.GetPhone(id)
	if err != nil {
		return err
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Phone not found"})
	}
	return data(c, p)
}

func phoneFieldErrors(p api.Phone) []fieldError {
	var errs []fieldError
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, fieldError{"name", "must not be blank"})
	}
	if strings.TrimSpace(p.Brand) == "" {
		errs = append(errs, fieldError{"brand", "must not be blank"})
	}
	if strings.TrimSpace(p.Model) == "" {
		errs = append(errs, fieldError{"model", "must not be blank"})
	}
	if _, ok := validate.Condition(p.Condition); !ok {
		errs = append(errs, fieldError{"condition", "must be a valid condition"})
	}
	if len(p.Images) == 0 {
		errs = append(errs, fieldError{"images", "at least one image is required"})
	}
	return errs
}

func (h *handler) createPhone(c *fiber.Ctx) error {
	var p api.Phone
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if errs := phoneFieldErrors(p); len(errs) > 0 {
		// Field errors go out as a bare array, the validation shape the
		// real backend produces.
		return c.Status(fiber.StatusBadRequest).JSON(errs)
	}
	created, err := h.store.CreatePhone(p)
	if err != nil {
		return err
	}
	h.store.AppendAudit("phone.create", created.Name, username(c), "phone", created.ID)
	applog.Audit(c, "mockapi.phone.create", map[string]any{"id": created.ID})
	return data(c, created)
}

func (h *handler) updatePhone(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Phone not found"})
	}
	var p api.Phone
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if p.Condition != "" {
		if _, ok := validate.Condition(p.Condition); !ok {
			return c.Status(fiber.StatusBadRequest).JSON([]fieldError{{"condition", "must be a valid condition"}})
		}
	}
	updated, found, err := h.store.UpdatePhone(id, p)
	if err != nil {
		return err
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Phone not found"})
	}
	h.store.AppendAudit("phone.update", updated.Name, username(c), "phone", id)
	return data(c, updated)
}

func (h *handler) deletePhone(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Phone not found"})
	}
	found, err := h.store.DeletePhone(id)
	if err != nil {
		return err
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Phone not found"})
	}
	h.store.AppendAudit("phone.delete", fmt.Sprintf("phone #%d", id), username(c), "phone", id)
	return data(c, fiber.Map{"message": "Deleted successfully"})
}

// ---------- inquiries ----------

func (h *handler) listInquiries(c *fiber.Ctx) error {
	inquiries, err := h.store.ListInquiries()
	if err != nil {
		return err
	}
	return data(c, inquiries)
}

func (h *handler) createInquiry(c *fiber.Ctx) error {
	var in api.Inquiry
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	// Flat field-map validation shape, like the backend's simple binder.
	fields := fiber.Map{}
	if _, ok := validate.Name(in.Name); !ok {
		fields["name"] = "must not be blank"
	}
	if _, ok := validate.Email(in.Email); !ok {
		fields["email"] = "must be a valid email"
	}
	if _, ok := validate.PhoneNumber(in.PhoneNumber); !ok {
		fields["phoneNumber"] = "must be a valid phone number"
	}
	if _, ok := validate.Message(in.Message); !ok {
		fields["message"] = "must not be blank"
	}
	if len(fields) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fields)
	}
	created, err := h.store.CreateInquiry(in)
	if err != nil {
		return err
	}
	h.store.AppendAudit("inquiry.create", created.Email, "", "inquiry", created.ID)
	return data(c, created)
}

func (h *handler) updateInquiryStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Inquiry not found"})
	}
	status, ok := validate.Status(c.Query("status"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON([]fieldError{{"status", "must be a valid status"}})
	}
	in, found, err := h.store.UpdateInquiryStatus(id, status, c.Query("adminNotes"))
	if err != nil {
		return err
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Inquiry not found"})
	}
	h.store.AppendAudit("inquiry.status", status, username(c), "inquiry", id)
	return data(c, in)
}

func (h *handler) deleteInquiry(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Inquiry not found"})
	}
	found, err := h.store.DeleteInquiry(id)
	if err != nil {
		return err
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Inquiry not found"})
	}
	h.store.AppendAudit("inquiry.delete", fmt.Sprintf("inquiry #%d", id), username(c), "inquiry", id)
	return data(c, fiber.Map{"message": "Deleted successfully"})
}

// ---------- analytics ----------

func (h *handler) trackEvent(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Query("phoneId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON([]fieldError{{"phoneId", "must be a valid id"}})
	}
	eventType := c.Query("eventType")
	if eventType == "" {
		return c.Status(fiber.StatusBadRequest).JSON([]fieldError{{"eventType", "must not be blank"}})
	}
	if err := h.store.TrackEvent(id, eventType); err != nil {
		return err
	}
	return data(c, fiber.Map{"tracked": true})
}

func (h *handler) dashboard(c *fiber.Ctx) error {
	a, err := h.store.Dashboard()
	if err != nil {
		return err
	}
	return data(c, a)
}

func (h *handler) topProducts(c *fiber.Ctx) error {
	top, err := h.store.TopProducts(5)
	if err != nil {
		return err
	}
	return data(c, top)
}

// ---------- audit logs ----------

func (h *handler) recentLogs(c *fiber.Ctx) error {
	logs, err := h.store.RecentLogs(validate.Hours(c.Query("hours")))
	if err != nil {
		return err
	}
	return data(c, logs)
}

func (h *handler) entityLogs(c *fiber.Ctx) error {
	entity, ok := validate.Entity(c.Params("type"))
	if !ok {
		return data(c, []api.AuditLog{})
	}
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return data(c, []api.AuditLog{})
	}
	logs, err := h.store.EntityLogs(entity, id)
	if err != nil {
		return err
	}
	return data(c, logs)
}
