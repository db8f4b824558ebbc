package handlers

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alphaphones/internal/api"
	applog "alphaphones/internal/log"
	"alphaphones/internal/validate"
)

// AdminHandler drives the staff console. The backend token lives in the API
// client; the browser only ever holds an opaque console session id.
type AdminHandler struct {
	Client *api.Client

	mu       sync.Mutex
	sessions map[string]string // sid -> username
}

func NewAdminHandler(client *api.Client) *AdminHandler {
	return &AdminHandler{Client: client, sessions: make(map[string]string)}
}

func (h *AdminHandler) sessionUser(sid string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[sid]
}

// RequireAdmin gates the console: a known session cookie plus a live
// backend token. When the token was invalidated (401 path cleared it), the
// console falls back to the login form.
func (h *AdminHandler) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("admin_sid")
		user := h.sessionUser(sid)
		if sid == "" || user == "" || !h.Client.Authenticated() {
			applog.Security(c, "admin.access.denied", nil)
			return c.Redirect("/admin")
		}
		c.Locals("admin_user", user)
		return c.Next()
	}
}

func (h *AdminHandler) LoginForm(c *fiber.Ctx) error {
	if h.sessionUser(c.Cookies("admin_sid")) != "" && h.Client.Authenticated() {
		return c.Redirect("/admin/dashboard")
	}
	return render(c, "admin_login", nil)
}

func (h *AdminHandler) Login(c *fiber.Ctx) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if username == "" || password == "" {
		return c.Status(401).Render("admin_login", fiber.Map{"Error": "Username and password are required"})
	}

	res, err := h.Client.Login(c.Context(), username, password)
	if err != nil {
		applog.Security(c, "admin.login.fail", map[string]any{"username": username})
		return c.Status(statusFor(err)).Render("admin_login", fiber.Map{"Error": err.Error()})
	}

	sid := uuid.NewString()
	h.mu.Lock()
	h.sessions[sid] = res.Username
	h.mu.Unlock()
	c.Cookie(&fiber.Cookie{
		Name:     "admin_sid",
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	applog.Audit(c, "admin.login.success", map[string]any{"username": res.Username})
	return c.Redirect("/admin/dashboard")
}

func (h *AdminHandler) Logout(c *fiber.Ctx) error {
	sid := c.Cookies("admin_sid")
	h.mu.Lock()
	delete(h.sessions, sid)
	h.mu.Unlock()
	h.Client.Logout()
	c.Cookie(&fiber.Cookie{
		Name:     "admin_sid",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(-time.Hour),
	})
	applog.Audit(c, "admin.logout", nil)
	return c.Redirect("/admin")
}

// ---------- dashboard ----------

func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	analytics, err := h.Client.GetDashboardAnalytics(c.Context())
	if err != nil {
		return h.adminError(c, "admin.dashboard", err)
	}
	top, err := h.Client.GetTopProducts(c.Context())
	if err != nil {
		applog.Error(c, "admin.dashboard.top", err, nil)
	}
	logs, err := h.Client.GetRecentLogs(c.Context(), 24)
	if err != nil {
		applog.Error(c, "admin.dashboard.logs", err, nil)
	}
	return render(c, "admin_dashboard", fiber.Map{
		"Analytics": analytics, "Top": top, "Logs": logs,
	})
}

// ---------- products ----------

func (h *AdminHandler) Products(c *fiber.Ctx) error {
	phones, err := h.Client.GetPhones(c.Context())
	if err != nil {
		return h.adminError(c, "admin.products.list", err)
	}
	return render(c, "admin_products", fiber.Map{"Phones": phones})
}

func (h *AdminHandler) ProductForm(c *fiber.Ctx) error {
	data := fiber.Map{"Conditions": conditions()}
	if id, ok := validate.ID(c.Params("id")); ok {
		p, err := h.Client.GetPhone(c.Context(), id)
		if err != nil {
			return h.adminError(c, "admin.products.get", err)
		}
		data["P"] = p
	}
	return render(c, "admin_product_form", data)
}

func (h *AdminHandler) CreateProduct(c *fiber.Ctx) error {
	p := phoneFromForm(c)
	created, err := h.Client.CreatePhone(c.Context(), p)
	if err != nil {
		applog.Error(c, "admin.products.create", err, nil)
		return c.Status(statusFor(err)).Render("admin_product_form", fiber.Map{
			"Error": err.Error(), "P": &p, "Conditions": conditions(),
		})
	}
	applog.Audit(c, "admin.products.create", map[string]any{"id": created.ID})
	return c.Redirect("/admin/products")
}

func (h *AdminHandler) UpdateProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Redirect("/admin/products")
	}
	p := phoneFromForm(c)
	updated, err := h.Client.UpdatePhone(c.Context(), id, p)
	if err != nil {
		applog.Error(c, "admin.products.update", err, map[string]any{"id": id})
		p.ID = id
		return c.Status(statusFor(err)).Render("admin_product_form", fiber.Map{
			"Error": err.Error(), "P": &p, "Conditions": conditions(),
		})
	}
	applog.Audit(c, "admin.products.update", map[string]any{"id": updated.ID})
	return c.Redirect("/admin/products")
}

func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Redirect("/admin/products")
	}
	if err := h.Client.DeletePhone(c.Context(), id); err != nil {
		return h.adminError(c, "admin.products.delete", err)
	}
	applog.Audit(c, "admin.products.delete", map[string]any{"id": id})
	return c.Redirect("/admin/products")
}

// ---------- inquiries ----------

func (h *AdminHandler) Inquiries(c *fiber.Ctx) error {
	inquiries, err := h.Client.GetInquiries(c.Context())
	if err != nil {
		return h.adminError(c, "admin.inquiries.list", err)
	}
	return render(c, "admin_inquiries", fiber.Map{
		"Inquiries": inquiries,
		"Statuses":  []string{api.InquiryPending, api.InquiryInProgress, api.InquiryResolved, api.InquiryClosed},
	})
}

func (h *AdminHandler) UpdateInquiry(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Redirect("/admin/inquiries")
	}
	status, ok := validate.Status(c.FormValue("status"))
	if !ok {
		return c.Redirect("/admin/inquiries")
	}
	if _, err := h.Client.UpdateInquiryStatus(c.Context(), id, status, c.FormValue("adminNotes")); err != nil {
		return h.adminError(c, "admin.inquiries.status", err)
	}
	applog.Audit(c, "admin.inquiries.status", map[string]any{"id": id, "status": status})
	return c.Redirect("/admin/inquiries")
}

func (h *AdminHandler) DeleteInquiry(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Redirect("/admin/inquiries")
	}
	if err := h.Client.DeleteInquiry(c.Context(), id); err != nil {
		return h.adminError(c, "admin.inquiries.delete", err)
	}
	applog.Audit(c, "admin.inquiries.delete", map[string]any{"id": id})
	return c.Redirect("/admin/inquiries")
}

// ---------- audit logs ----------

func (h *AdminHandler) Logs(c *fiber.Ctx) error {
	hours := validate.Hours(c.Query("hours"))
	logs, err := h.Client.GetRecentLogs(c.Context(), hours)
	if err != nil {
		return h.adminError(c, "admin.logs", err)
	}
	return render(c, "admin_logs", fiber.Map{"Logs": logs, "Hours": hours})
}

// ---------- helpers ----------

// adminError handles the two interesting cases: an invalidated session
// (back to login) and everything else (friendly error page with the
// client's message).
func (h *AdminHandler) adminError(c *fiber.Ctx, action string, err error) error {
	applog.Error(c, action, err, nil)
	if api.KindOf(err) == api.KindAuth {
		return c.Redirect("/admin")
	}
	return c.Status(statusFor(err)).Render("notfound", fiber.Map{"Message": err.Error()})
}

func conditions() []string {
	return []string{
		api.CondBrandNew, api.CondLikeNew, api.CondExcellent,
		api.CondGood, api.CondFair, api.CondRefurbished,
	}
}

// phoneFromForm maps the product form onto the wire type. Image URLs come
// in one per line from the textarea, with freshly uploaded files appended
// by the form script.
func phoneFromForm(c *fiber.Ctx) api.Phone {
	p := api.Phone{
		Name:            c.FormValue("name"),
		Brand:           c.FormValue("brand"),
		Model:           c.FormValue("model"),
		Description:     c.FormValue("description"),
		Condition:       c.FormValue("condition"),
		Images:          splitLines(c.FormValue("images")),
		DisplaySize:     c.FormValue("displaySize"),
		DisplayType:     c.FormValue("displayType"),
		Processor:       c.FormValue("processor"),
		RAM:             c.FormValue("ram"),
		Storage:         c.FormValue("storage"),
		Battery:         c.FormValue("battery"),
		MainCamera:      c.FormValue("mainCamera"),
		FrontCamera:     c.FormValue("frontCamera"),
		OperatingSystem: c.FormValue("operatingSystem"),
		Network:         c.FormValue("network"),
		SimType:         c.FormValue("simType"),
		Colors:          c.FormValue("colors"),
		Weight:          c.FormValue("weight"),
		Dimensions:      c.FormValue("dimensions"),
	}
	p.IsFeatured = api.Bool(c.FormValue("isFeatured") == "on")
	p.IsAvailable = api.Bool(c.FormValue("isAvailable") == "on")
	return p
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
