package store

import (
	"time"

	"helpcenter/api/internal/theme"
)

type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	LogoURL   string    `json:"logoUrl"`
	Industry  string    `json:"industry"`
	Website   string    `json:"website"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type User struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId"`
	DisplayName  string    `json:"displayName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ThemeRecord is the stored theme configuration of a tenant.
type ThemeRecord struct {
	TenantID  string         `json:"tenantId"`
	Config    theme.Config   `json:"config"`
	Branding  theme.Branding `json:"branding"`
	Revision  int64          `json:"revision"`
	UpdatedBy string         `json:"updatedBy"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type Page struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Article struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Status    string    `json:"status"`
	Views     int       `json:"views"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type MessageNote struct {
	Text      string    `json:"text"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

type Message struct {
	ID               string        `json:"id"`
	TenantID         string        `json:"tenantId"`
	Name             string        `json:"name"`
	Email            string        `json:"email"`
	Phone            string        `json:"phone"`
	Subject          string        `json:"subject"`
	Body             string        `json:"body"`
	PreferredContact string        `json:"preferredContact"`
	Priority         string        `json:"priority"`
	Status           string        `json:"status"`
	IsRead           bool          `json:"isRead"`
	Notes            []MessageNote `json:"notes"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// MessageFilter narrows ListMessages. Empty fields match everything.
type MessageFilter struct {
	Status   string
	Priority string
}

type Invite struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	TokenHash string    `json:"-"`
	InvitedBy string    `json:"invitedBy"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type DomainSettings struct {
	TenantID  string    `json:"tenantId"`
	Domain    string    `json:"domain"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Upload struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	ObjectKey   string    `json:"objectKey"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	UploadedBy  string    `json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}
