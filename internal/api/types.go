package api

// Wire types for the backend API. The backend owns every identifier,
// timestamp and counter; this side only ever echoes them back.

// Phone condition values accepted by the backend.
const (
	CondBrandNew    = "BRAND_NEW"
	CondLikeNew     = "LIKE_NEW"
	CondExcellent   = "EXCELLENT"
	CondGood        = "GOOD"
	CondFair        = "FAIR"
	CondRefurbished = "REFURBISHED"
)

// Inquiry status values.
const (
	InquiryPending    = "PENDING"
	InquiryInProgress = "IN_PROGRESS"
	InquiryResolved   = "RESOLVED"
	InquiryClosed     = "CLOSED"
)

// Tracked event types.
const (
	EventProductView   = "PRODUCT_VIEW"
	EventWhatsAppClick = "WHATSAPP_CLICK"
)

type Phone struct {
	ID              int64    `json:"id,omitempty"`
	Name            string   `json:"name"`
	Brand           string   `json:"brand"`
	Model           string   `json:"model"`
	Description     string   `json:"description,omitempty"`
	Condition       string   `json:"condition,omitempty"`
	Images          []string `json:"images"`
	DisplaySize     string   `json:"displaySize,omitempty"`
	DisplayType     string   `json:"displayType,omitempty"`
	Processor       string   `json:"processor,omitempty"`
	RAM             string   `json:"ram,omitempty"`
	Storage         string   `json:"storage,omitempty"`
	Battery         string   `json:"battery,omitempty"`
	MainCamera      string   `json:"mainCamera,omitempty"`
	FrontCamera     string   `json:"frontCamera,omitempty"`
	OperatingSystem string   `json:"operatingSystem,omitempty"`
	Network         string   `json:"network,omitempty"`
	SimType         string   `json:"simType,omitempty"`
	Colors          string   `json:"colors,omitempty"`
	Weight          string   `json:"weight,omitempty"`
	Dimensions      string   `json:"dimensions,omitempty"`
	IsFeatured      *bool    `json:"isFeatured,omitempty"`
	IsAvailable     *bool    `json:"isAvailable,omitempty"`
	ViewCount       int64    `json:"viewCount,omitempty"`
	InquiryCount    int64    `json:"inquiryCount,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	CreatedAt       string   `json:"createdAt,omitempty"`
	UpdatedAt       string   `json:"updatedAt,omitempty"`
}

// Featured reports the isFeatured flag with its backend default.
func (p Phone) Featured() bool { return p.IsFeatured != nil && *p.IsFeatured }

// Available reports the isAvailable flag; unset means available.
func (p Phone) Available() bool { return p.IsAvailable == nil || *p.IsAvailable }

type Inquiry struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	PhoneID     int64  `json:"phoneId,omitempty"`
	PhoneName   string `json:"phoneName,omitempty"`
	Message     string `json:"message"`
	Status      string `json:"status,omitempty"`
	AdminNotes  string `json:"adminNotes,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

type Analytics struct {
	TotalProducts       int64  `json:"totalProducts"`
	TotalViews          int64  `json:"totalViews"`
	TotalInquiries      int64  `json:"totalInquiries"`
	TotalWhatsAppClicks int64  `json:"totalWhatsAppClicks"`
	EstimatedRevenue    string `json:"estimatedRevenue,omitempty"`
}

// TopProduct is one row of the top-products analytics view.
type TopProduct struct {
	PhoneID   int64  `json:"phoneId"`
	PhoneName string `json:"phoneName"`
	Views     int64  `json:"views"`
	Inquiries int64  `json:"inquiries"`
}

type AuthResponse struct {
	Token    string `json:"token"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

type AuditLog struct {
	ID        int64  `json:"id,omitempty"`
	Action    string `json:"action"`
	Details   string `json:"details,omitempty"`
	Username  string `json:"username,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Bool is a convenience for filling the optional Phone flags.
func Bool(v bool) *bool { return &v }
