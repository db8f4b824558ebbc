package mockapi_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"alphaphones/internal/api"
	"alphaphones/internal/mockapi"
)

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	store, err := mockapi.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	app := fiber.New()
	mockapi.Mount(app.Group("/api"), store)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, raw
}

func login(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, body := doJSON(t, app, "POST", "/api/auth/login", "",
		map[string]string{"username": "admin", "password": "admin123"})
	if status != 200 {
		t.Fatalf("login failed: %d %s", status, body)
	}
	var env struct {
		Data api.AuthResponse `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatal(err)
	}
	if env.Data.Token == "" || env.Data.Role != "ADMIN" {
		t.Fatalf("unexpected login payload: %s", body)
	}
	return env.Data.Token
}

func samplePhone() api.Phone {
	return api.Phone{
		Name: "Nova S23 Ultra", Brand: "TechPhone", Model: "S23",
		Condition: api.CondLikeNew, Images: []string{"/media/nova.png"},
		RAM: "8GB", Storage: "128GB", IsFeatured: api.Bool(true),
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app := newApp(t)
	status, body := doJSON(t, app, "POST", "/api/auth/login", "",
		map[string]string{"username": "admin", "password": "wrong"})
	if status != 401 {
		t.Fatalf("want 401, got %d %s", status, body)
	}
}

func TestPhoneCRUDRequiresAuth(t *testing.T) {
	app := newApp(t)
	status, _ := doJSON(t, app, "POST", "/api/phones", "", samplePhone())
	if status != 401 {
		t.Fatalf("create without token should be 401, got %d", status)
	}
	status, _ = doJSON(t, app, "POST", "/api/phones", "bogus-token", samplePhone())
	if status != 401 {
		t.Fatalf("create with unknown token should be 401, got %d", status)
	}
}

func TestPhoneLifecycle(t *testing.T) {
	app := newApp(t)
	token := login(t, app)

	// create
	status, body := doJSON(t, app, "POST", "/api/phones", token, samplePhone())
	if status != 200 {
		t.Fatalf("create failed: %d %s", status, body)
	}
	var created struct {
		Data api.Phone `json:"data"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}
	id := created.Data.ID
	if id == 0 || !created.Data.Featured() {
		t.Fatalf("unexpected created phone: %s", body)
	}

	// public read
	status, body = doJSON(t, app, "GET", fmt.Sprintf("/api/phones/%d", id), "", nil)
	if status != 200 {
		t.Fatalf("get failed: %d %s", status, body)
	}

	// featured listing includes it
	status, body = doJSON(t, app, "GET", "/api/phones/featured", "", nil)
	if status != 200 || !bytes.Contains(body, []byte("Nova S23 Ultra")) {
		t.Fatalf("featured listing wrong: %d %s", status, body)
	}

	// search finds it by brand
	status, body = doJSON(t, app, "GET", "/api/phones/search?keyword=TechPhone", "", nil)
	if status != 200 || !bytes.Contains(body, []byte("Nova S23 Ultra")) {
		t.Fatalf("search wrong: %d %s", status, body)
	}

	// partial update keeps unspecified fields
	status, body = doJSON(t, app, "PUT", fmt.Sprintf("/api/phones/%d", id), token,
		api.Phone{Storage: "256GB", IsFeatured: api.Bool(false)})
	if status != 200 {
		t.Fatalf("update failed: %d %s", status, body)
	}
	var updated struct {
		Data api.Phone `json:"data"`
	}
	json.Unmarshal(body, &updated)
	if updated.Data.Storage != "256GB" || updated.Data.Name != "Nova S23 Ultra" || updated.Data.Featured() {
		t.Fatalf("merge semantics wrong: %s", body)
	}

	// delete returns a JSON body
	status, body = doJSON(t, app, "DELETE", fmt.Sprintf("/api/phones/%d", id), token, nil)
	if status != 200 || !bytes.Contains(body, []byte("Deleted successfully")) {
		t.Fatalf("delete wrong: %d %s", status, body)
	}
	status, _ = doJSON(t, app, "GET", fmt.Sprintf("/api/phones/%d", id), "", nil)
	if status != 404 {
		t.Fatalf("deleted phone should 404, got %d", status)
	}
}

func TestCreatePhoneValidationShape(t *testing.T) {
	app := newApp(t)
	token := login(t, app)

	status, body := doJSON(t, app, "POST", "/api/phones", token, api.Phone{Brand: "X"})
	if status != 400 {
		t.Fatalf("want 400, got %d %s", status, body)
	}
	// The shape is a bare array of {field, defaultMessage} objects.
	var errs []struct {
		Field          string `json:"field"`
		DefaultMessage string `json:"defaultMessage"`
	}
	if err := json.Unmarshal(body, &errs); err != nil {
		t.Fatalf("validation body is not the array shape: %s", body)
	}
	found := map[string]bool{}
	for _, e := range errs {
		found[e.Field] = true
	}
	for _, want := range []string{"name", "condition", "images"} {
		if !found[want] {
			t.Fatalf("missing field error %q in %s", want, body)
		}
	}
}

func TestInquiryFlow(t *testing.T) {
	app := newApp(t)
	token := login(t, app)

	// invalid inquiry gets a flat field map
	status, body := doJSON(t, app, "POST", "/api/inquiries", "",
		api.Inquiry{Name: "", Email: "nope", Message: ""})
	if status != 400 {
		t.Fatalf("want 400, got %d %s", status, body)
	}
	var fields map[string]string
	if err := json.Unmarshal(body, &fields); err != nil || fields["email"] == "" {
		t.Fatalf("want flat field map, got %s", body)
	}

	status, body = doJSON(t, app, "POST", "/api/inquiries", "", api.Inquiry{
		Name: "John Doe", Email: "john@example.com", Message: "Is this available?", PhoneNumber: "+1234567890",
	})
	if status != 200 {
		t.Fatalf("create inquiry failed: %d %s", status, body)
	}
	var created struct {
		Data api.Inquiry `json:"data"`
	}
	json.Unmarshal(body, &created)
	if created.Data.ID == 0 || created.Data.Status != api.InquiryPending {
		t.Fatalf("unexpected inquiry: %s", body)
	}

	// status transition via query params
	path := fmt.Sprintf("/api/inquiries/%d/status?status=RESOLVED&adminNotes=called+back", created.Data.ID)
	status, body = doJSON(t, app, "PUT", path, token, nil)
	if status != 200 {
		t.Fatalf("status update failed: %d %s", status, body)
	}
	var upd struct {
		Data api.Inquiry `json:"data"`
	}
	json.Unmarshal(body, &upd)
	if upd.Data.Status != api.InquiryResolved || upd.Data.AdminNotes != "called back" {
		t.Fatalf("status/notes not applied: %s", body)
	}

	// listing requires auth
	if status, _ := doJSON(t, app, "GET", "/api/inquiries", "", nil); status != 401 {
		t.Fatalf("inquiry list should require auth, got %d", status)
	}
	if status, _ := doJSON(t, app, "GET", "/api/inquiries", token, nil); status != 200 {
		t.Fatal("inquiry list with token should work")
	}
}

func TestAnalyticsAndAuditLogs(t *testing.T) {
	app := newApp(t)
	token := login(t, app)

	status, body := doJSON(t, app, "POST", "/api/phones", token, samplePhone())
	if status != 200 {
		t.Fatalf("create failed: %d %s", status, body)
	}
	var created struct {
		Data api.Phone `json:"data"`
	}
	json.Unmarshal(body, &created)
	id := created.Data.ID

	for i := 0; i < 3; i++ {
		path := fmt.Sprintf("/api/analytics/track?phoneId=%d&eventType=%s", id, api.EventProductView)
		if status, _ := doJSON(t, app, "POST", path, "", nil); status != 200 {
			t.Fatal("track view failed")
		}
	}
	path := fmt.Sprintf("/api/analytics/track?phoneId=%d&eventType=%s", id, api.EventWhatsAppClick)
	if status, _ := doJSON(t, app, "POST", path, "", nil); status != 200 {
		t.Fatal("track click failed")
	}

	status, body = doJSON(t, app, "GET", "/api/analytics/dashboard", token, nil)
	if status != 200 {
		t.Fatalf("dashboard failed: %d %s", status, body)
	}
	var dash struct {
		Data api.Analytics `json:"data"`
	}
	json.Unmarshal(body, &dash)
	if dash.Data.TotalProducts != 1 || dash.Data.TotalViews != 3 || dash.Data.TotalWhatsAppClicks != 1 {
		t.Fatalf("unexpected analytics: %+v", dash.Data)
	}

	status, body = doJSON(t, app, "GET", "/api/analytics/top-products", token, nil)
	if status != 200 || !bytes.Contains(body, []byte("Nova S23 Ultra")) {
		t.Fatalf("top products wrong: %d %s", status, body)
	}

	// the create above must show up in the audit trail
	status, body = doJSON(t, app, "GET", "/api/audit-logs/recent?hours=24", token, nil)
	if status != 200 || !bytes.Contains(body, []byte("phone.create")) {
		t.Fatalf("recent logs wrong: %d %s", status, body)
	}
	status, body = doJSON(t, app, "GET", fmt.Sprintf("/api/audit-logs/entity/phone/%d", id), token, nil)
	if status != 200 || !bytes.Contains(body, []byte("phone.create")) {
		t.Fatalf("entity logs wrong: %d %s", status, body)
	}
}
