// Package mockapi is the built-in development backend. It implements the
// same HTTP contract as the production backend (envelopes, error shapes,
// bearer auth) on top of a local sqlite file so the showcase runs without
// any external service.
package mockapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"alphaphones/internal/api"
)

type Store struct {
	db *sqlx.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	// A :memory: database exists per connection, so the pool must not grow.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	if err := s.seedUsers(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	schema := `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS phones(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  brand TEXT NOT NULL,
  model TEXT NOT NULL,
  description TEXT,
  condition TEXT NOT NULL CHECK (condition IN
    ('BRAND_NEW','LIKE_NEW','EXCELLENT','GOOD','FAIR','REFURBISHED')),
  images_json TEXT NOT NULL,
  display_size TEXT, display_type TEXT, processor TEXT, ram TEXT,
  storage TEXT, battery TEXT, main_camera TEXT, front_camera TEXT,
  operating_system TEXT, network TEXT, sim_type TEXT, colors TEXT,
  weight TEXT, dimensions TEXT,
  tags_json TEXT,
  is_featured INTEGER NOT NULL DEFAULT 0,
  is_available INTEGER NOT NULL DEFAULT 1,
  view_count INTEGER NOT NULL DEFAULT 0,
  inquiry_count INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_phones_featured ON phones(is_featured);
CREATE INDEX IF NOT EXISTS idx_phones_name     ON phones(LOWER(name));

CREATE TABLE IF NOT EXISTS inquiries(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone_number TEXT,
  phone_id INTEGER,
  phone_name TEXT,
  message TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN
    ('PENDING','IN_PROGRESS','RESOLVED','CLOSED')),
  admin_notes TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS events(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  phone_id INTEGER NOT NULL,
  event_type TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_events_phone ON events(phone_id);

CREATE TABLE IF NOT EXISTS audit_logs(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  action TEXT NOT NULL,
  details TEXT,
  username TEXT,
  entity_type TEXT,
  entity_id INTEGER,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_logs(created_at);

CREATE TABLE IF NOT EXISTS users(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL,
  full_name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('ADMIN','STAFF'))
);

CREATE TABLE IF NOT EXISTS tokens(
  token TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := s.db.Exec(schema)
	return err
}

// seedUsers ensures the default admin exists (idempotent).
func (s *Store) seedUsers() error {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), 12)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO users(username, email, full_name, password_hash, role)
		VALUES('admin', 'admin@alphaphones.test', 'Admin User', ?, 'ADMIN')
		ON CONFLICT(username) DO NOTHING
	`, string(hash))
	return err
}

// ---------- rows ----------

type phoneRow struct {
	ID              int64  `db:"id"`
	Name            string `db:"name"`
	Brand           string `db:"brand"`
	Model           string `db:"model"`
	Description     string `db:"description"`
	Condition       string `db:"condition"`
	ImagesJSON      string `db:"images_json"`
	DisplaySize     string `db:"display_size"`
	DisplayType     string `db:"display_type"`
	Processor       string `db:"processor"`
	RAM             string `db:"ram"`
	Storage         string `db:"storage"`
	Battery         string `db:"battery"`
	MainCamera      string `db:"main_camera"`
	FrontCamera     string `db:"front_camera"`
	OperatingSystem string `db:"operating_system"`
	Network         string `db:"network"`
	SimType         string `db:"sim_type"`
	Colors          string `db:"colors"`
	Weight          string `db:"weight"`
	Dimensions      string `db:"dimensions"`
	TagsJSON        string `db:"tags_json"`
	IsFeatured      bool   `db:"is_featured"`
	IsAvailable     bool   `db:"is_available"`
	ViewCount       int64  `db:"view_count"`
	InquiryCount    int64  `db:"inquiry_count"`
	CreatedAt       string `db:"created_at"`
	UpdatedAt       string `db:"updated_at"`
}

const phoneCols = `
  id, name, brand, model,
  COALESCE(description,'') AS description, condition, images_json,
  COALESCE(display_size,'') AS display_size, COALESCE(display_type,'') AS display_type,
  COALESCE(processor,'') AS processor, COALESCE(ram,'') AS ram,
  COALESCE(storage,'') AS storage, COALESCE(battery,'') AS battery,
  COALESCE(main_camera,'') AS main_camera, COALESCE(front_camera,'') AS front_camera,
  COALESCE(operating_system,'') AS operating_system, COALESCE(network,'') AS network,
  COALESCE(sim_type,'') AS sim_type, COALESCE(colors,'') AS colors,
  COALESCE(weight,'') AS weight, COALESCE(dimensions,'') AS dimensions,
  COALESCE(tags_json,'') AS tags_json,
  is_featured, is_available, view_count, inquiry_count,
  created_at, COALESCE(updated_at,'') AS updated_at`

func (r phoneRow) toAPI() api.Phone {
	var images, tags []string
	_ = json.Unmarshal([]byte(r.ImagesJSON), &images)
	if r.TagsJSON != "" {
		_ = json.Unmarshal([]byte(r.TagsJSON), &tags)
	}
	return api.Phone{
		ID: r.ID, Name: r.Name, Brand: r.Brand, Model: r.Model,
		Description: r.Description, Condition: r.Condition, Images: images,
		DisplaySize: r.DisplaySize, DisplayType: r.DisplayType,
		Processor: r.Processor, RAM: r.RAM, Storage: r.Storage,
		Battery: r.Battery, MainCamera: r.MainCamera, FrontCamera: r.FrontCamera,
		OperatingSystem: r.OperatingSystem, Network: r.Network,
		SimType: r.SimType, Colors: r.Colors, Weight: r.Weight, Dimensions: r.Dimensions,
		IsFeatured: api.Bool(r.IsFeatured), IsAvailable: api.Bool(r.IsAvailable),
		ViewCount: r.ViewCount, InquiryCount: r.InquiryCount, Tags: tags,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type inquiryRow struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Email       string `db:"email"`
	PhoneNumber string `db:"phone_number"`
	PhoneID     int64  `db:"phone_id"`
	PhoneName   string `db:"phone_name"`
	Message     string `db:"message"`
	Status      string `db:"status"`
	AdminNotes  string `db:"admin_notes"`
	CreatedAt   string `db:"created_at"`
}

const inquiryCols = `
  id, name, email, COALESCE(phone_number,'') AS phone_number,
  COALESCE(phone_id,0) AS phone_id, COALESCE(phone_name,'') AS phone_name,
  message, status, COALESCE(admin_notes,'') AS admin_notes, created_at`

func (r inquiryRow) toAPI() api.Inquiry {
	return api.Inquiry{
		ID: r.ID, Name: r.Name, Email: r.Email, PhoneNumber: r.PhoneNumber,
		PhoneID: r.PhoneID, PhoneName: r.PhoneName, Message: r.Message,
		Status: r.Status, AdminNotes: r.AdminNotes, CreatedAt: r.CreatedAt,
	}
}

// ---------- phones ----------

func (s *Store) ListPhones() ([]api.Phone, error) {
	var rows []phoneRow
	err := s.db.Select(&rows, `SELECT `+phoneCols+` FROM phones ORDER BY created_at DESC`)
	return phonesToAPI(rows), err
}

func (s *Store) FeaturedPhones() ([]api.Phone, error) {
	var rows []phoneRow
	err := s.db.Select(&rows, `
		SELECT `+phoneCols+` FROM phones
		WHERE is_featured = 1 AND is_available = 1
		ORDER BY created_at DESC`)
	return phonesToAPI(rows), err
}

func (s *Store) SearchPhones(keyword string) ([]api.Phone, error) {
	like := "%" + keyword + "%"
	var rows []phoneRow
	err := s.db.Select(&rows, `
		SELECT `+phoneCols+` FROM phones
		WHERE LOWER(name) LIKE LOWER(?) OR LOWER(brand) LIKE LOWER(?) OR LOWER(model) LIKE LOWER(?)
		ORDER BY created_at DESC`, like, like, like)
	return phonesToAPI(rows), err
}

func (s *Store) GetPhone(id int64) (api.Phone, bool, error) {
	var row phoneRow
	err := s.db.Get(&row, `SELECT `+phoneCols+` FROM phones WHERE id = ?`, id)
	if err != nil {
		if isNoRows(err) {
			return api.Phone{}, false, nil
		}
		return api.Phone{}, false, err
	}
	return row.toAPI(), true, nil
}

func (s *Store) CreatePhone(p api.Phone) (api.Phone, error) {
	images, _ := json.Marshal(p.Images)
	var tags []byte
	if len(p.Tags) > 0 {
		tags, _ = json.Marshal(p.Tags)
	}
	res, err := s.db.Exec(`
		INSERT INTO phones(
		  name, brand, model, description, condition, images_json,
		  display_size, display_type, processor, ram, storage, battery,
		  main_camera, front_camera, operating_system, network, sim_type,
		  colors, weight, dimensions, tags_json, is_featured, is_available
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.Name, p.Brand, p.Model, p.Description, p.Condition, string(images),
		p.DisplaySize, p.DisplayType, p.Processor, p.RAM, p.Storage, p.Battery,
		p.MainCamera, p.FrontCamera, p.OperatingSystem, p.Network, p.SimType,
		p.Colors, p.Weight, p.Dimensions, string(tags), p.Featured(), p.Available())
	if err != nil {
		return api.Phone{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return api.Phone{}, err
	}
	created, _, err := s.GetPhone(id)
	return created, err
}

func (s *Store) UpdatePhone(id int64, p api.Phone) (api.Phone, bool, error) {
	existing, ok, err := s.GetPhone(id)
	if err != nil || !ok {
		return api.Phone{}, ok, err
	}
	merged := mergePhone(existing, p)
	images, _ := json.Marshal(merged.Images)
	var tags []byte
	if len(merged.Tags) > 0 {
		tags, _ = json.Marshal(merged.Tags)
	}
	_, err = s.db.Exec(`
		UPDATE phones SET
		  name=?, brand=?, model=?, description=?, condition=?, images_json=?,
		  display_size=?, display_type=?, processor=?, ram=?, storage=?, battery=?,
		  main_camera=?, front_camera=?, operating_system=?, network=?, sim_type=?,
		  colors=?, weight=?, dimensions=?, tags_json=?, is_featured=?, is_available=?,
		  updated_at=?
		WHERE id=?`,
		merged.Name, merged.Brand, merged.Model, merged.Description, merged.Condition, string(images),
		merged.DisplaySize, merged.DisplayType, merged.Processor, merged.RAM, merged.Storage, merged.Battery,
		merged.MainCamera, merged.FrontCamera, merged.OperatingSystem, merged.Network, merged.SimType,
		merged.Colors, merged.Weight, merged.Dimensions, string(tags), merged.Featured(), merged.Available(),
		now(), id)
	if err != nil {
		return api.Phone{}, false, err
	}
	updated, _, err := s.GetPhone(id)
	return updated, true, err
}

// mergePhone applies a partial update over the stored record: zero-valued
// incoming fields keep the existing value, matching how the real backend
// treats PUT bodies from the admin form.
func mergePhone(old, in api.Phone) api.Phone {
	out := old
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setStr(&out.Name, in.Name)
	setStr(&out.Brand, in.Brand)
	setStr(&out.Model, in.Model)
	setStr(&out.Description, in.Description)
	setStr(&out.Condition, in.Condition)
	setStr(&out.DisplaySize, in.DisplaySize)
	setStr(&out.DisplayType, in.DisplayType)
	setStr(&out.Processor, in.Processor)
	setStr(&out.RAM, in.RAM)
	setStr(&out.Storage, in.Storage)
	setStr(&out.Battery, in.Battery)
	setStr(&out.MainCamera, in.MainCamera)
	setStr(&out.FrontCamera, in.FrontCamera)
	setStr(&out.OperatingSystem, in.OperatingSystem)
	setStr(&out.Network, in.Network)
	setStr(&out.SimType, in.SimType)
	setStr(&out.Colors, in.Colors)
	setStr(&out.Weight, in.Weight)
	setStr(&out.Dimensions, in.Dimensions)
	if len(in.Images) > 0 {
		out.Images = in.Images
	}
	if len(in.Tags) > 0 {
		out.Tags = in.Tags
	}
	if in.IsFeatured != nil {
		out.IsFeatured = in.IsFeatured
	}
	if in.IsAvailable != nil {
		out.IsAvailable = in.IsAvailable
	}
	return out
}

func (s *Store) DeletePhone(id int64) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM phones WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ---------- inquiries ----------

func (s *Store) ListInquiries() ([]api.Inquiry, error) {
	var rows []inquiryRow
	err := s.db.Select(&rows, `SELECT `+inquiryCols+` FROM inquiries ORDER BY created_at DESC`)
	out := make([]api.Inquiry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toAPI())
	}
	return out, err
}

func (s *Store) CreateInquiry(in api.Inquiry) (api.Inquiry, error) {
	res, err := s.db.Exec(`
		INSERT INTO inquiries(name, email, phone_number, phone_id, phone_name, message, status)
		VALUES (?,?,?,?,?,?, 'PENDING')`,
		in.Name, in.Email, in.PhoneNumber, in.PhoneID, in.PhoneName, in.Message)
	if err != nil {
		return api.Inquiry{}, err
	}
	if in.PhoneID > 0 {
		_, _ = s.db.Exec(`UPDATE phones SET inquiry_count = inquiry_count + 1 WHERE id = ?`, in.PhoneID)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return api.Inquiry{}, err
	}
	return s.getInquiry(id)
}

func (s *Store) getInquiry(id int64) (api.Inquiry, error) {
	var row inquiryRow
	err := s.db.Get(&row, `SELECT `+inquiryCols+` FROM inquiries WHERE id = ?`, id)
	return row.toAPI(), err
}

func (s *Store) UpdateInquiryStatus(id int64, status, adminNotes string) (api.Inquiry, bool, error) {
	res, err := s.db.Exec(`
		UPDATE inquiries SET status = ?, admin_notes = COALESCE(NULLIF(?,''), admin_notes)
		WHERE id = ?`, status, adminNotes, id)
	if err != nil {
		return api.Inquiry{}, false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return api.Inquiry{}, false, nil
	}
	in, err := s.getInquiry(id)
	return in, true, err
}

func (s *Store) DeleteInquiry(id int64) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM inquiries WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ---------- analytics ----------

func (s *Store) TrackEvent(phoneID int64, eventType string) error {
	if _, err := s.db.Exec(`INSERT INTO events(phone_id, event_type) VALUES (?,?)`, phoneID, eventType); err != nil {
		return err
	}
	if eventType == api.EventProductView {
		_, _ = s.db.Exec(`UPDATE phones SET view_count = view_count + 1 WHERE id = ?`, phoneID)
	}
	return nil
}

func (s *Store) Dashboard() (api.Analytics, error) {
	var a api.Analytics
	if err := s.db.Get(&a.TotalProducts, `SELECT COUNT(*) FROM phones`); err != nil {
		return a, err
	}
	if err := s.db.Get(&a.TotalViews, `SELECT COALESCE(SUM(view_count),0) FROM phones`); err != nil {
		return a, err
	}
	if err := s.db.Get(&a.TotalInquiries, `SELECT COUNT(*) FROM inquiries`); err != nil {
		return a, err
	}
	err := s.db.Get(&a.TotalWhatsAppClicks,
		`SELECT COUNT(*) FROM events WHERE event_type = ?`, api.EventWhatsAppClick)
	return a, err
}

func (s *Store) TopProducts(limit int) ([]api.TopProduct, error) {
	if limit <= 0 {
		limit = 5
	}
	type row struct {
		PhoneID   int64  `db:"id"`
		PhoneName string `db:"name"`
		Views     int64  `db:"view_count"`
		Inquiries int64  `db:"inquiry_count"`
	}
	var rows []row
	err := s.db.Select(&rows, `
		SELECT id, name, view_count, inquiry_count FROM phones
		ORDER BY view_count DESC, inquiry_count DESC
		LIMIT ?`, limit)
	out := make([]api.TopProduct, 0, len(rows))
	for _, r := range rows {
		out = append(out, api.TopProduct{PhoneID: r.PhoneID, PhoneName: r.PhoneName, Views: r.Views, Inquiries: r.Inquiries})
	}
	return out, err
}

// ---------- audit logs ----------

type auditRow struct {
	ID        int64  `db:"id"`
	Action    string `db:"action"`
	Details   string `db:"details"`
	Username  string `db:"username"`
	CreatedAt string `db:"created_at"`
}

func (s *Store) AppendAudit(action, details, username, entityType string, entityID int64) {
	_, _ = s.db.Exec(`
		INSERT INTO audit_logs(action, details, username, entity_type, entity_id)
		VALUES (?,?,?,?,?)`, action, details, username, entityType, entityID)
}

func (s *Store) RecentLogs(hours int) ([]api.AuditLog, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour).Format("2006-01-02 15:04:05")
	var rows []auditRow
	err := s.db.Select(&rows, `
		SELECT id, action, COALESCE(details,'') AS details,
		       COALESCE(username,'') AS username, created_at
		FROM audit_logs WHERE created_at >= ?
		ORDER BY created_at DESC`, cutoff)
	return auditToAPI(rows), err
}

func (s *Store) EntityLogs(entityType string, entityID int64) ([]api.AuditLog, error) {
	var rows []auditRow
	err := s.db.Select(&rows, `
		SELECT id, action, COALESCE(details,'') AS details,
		       COALESCE(username,'') AS username, created_at
		FROM audit_logs WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at DESC`, entityType, entityID)
	return auditToAPI(rows), err
}

// ---------- auth ----------

type userRow struct {
	ID       int64  `db:"id"`
	Username string `db:"username"`
	Email    string `db:"email"`
	FullName string `db:"full_name"`
	Hash     string `db:"password_hash"`
	Role     string `db:"role"`
}

// Authenticate checks credentials and returns the user on success.
func (s *Store) Authenticate(username, password string) (*userRow, bool, error) {
	var u userRow
	err := s.db.Get(&u, `
		SELECT id, username, email, full_name, password_hash, role
		FROM users WHERE username = ?`, username)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, false, nil
	}
	return &u, true, nil
}

func (s *Store) SaveToken(token string, userID int64) error {
	_, err := s.db.Exec(`INSERT INTO tokens(token, user_id) VALUES (?,?)`, token, userID)
	return err
}

// UserForToken resolves a bearer token to a username, "" when unknown.
func (s *Store) UserForToken(token string) (string, error) {
	var username string
	err := s.db.Get(&username, `
		SELECT u.username FROM tokens t JOIN users u ON u.id = t.user_id
		WHERE t.token = ?`, token)
	if err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return username, nil
}

// ---------- helpers ----------

func phonesToAPI(rows []phoneRow) []api.Phone {
	out := make([]api.Phone, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toAPI())
	}
	return out
}

func auditToAPI(rows []auditRow) []api.AuditLog {
	out := make([]api.AuditLog, 0, len(rows))
	for _, r := range rows {
		out = append(out, api.AuditLog{
			ID: r.ID, Action: r.Action, Details: r.Details,
			Username: r.Username, CreatedAt: r.CreatedAt,
		})
	}
	return out
}

func now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
