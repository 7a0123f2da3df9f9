// Package authpw signs team members in with email and password.
package authpw

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"helpcenter/api/internal/auth"
	"helpcenter/api/internal/rbac"
	"helpcenter/api/internal/store"
	"helpcenter/api/internal/util"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInviteInvalid      = errors.New("invitation is invalid or expired")
)

// InputError reports a rejected sign-up or invite field.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string { return e.Field + ": " + e.Message }

const minPasswordLength = 8

// UserStore is the slice of the Postgres store used for credentials.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	CreateTenantWithAdmin(ctx context.Context, tenant store.Tenant, admin store.User) error
	InsertUser(ctx context.Context, u store.User) error
	GetInviteByTokenHash(ctx context.Context, tokenHash string) (store.Invite, error)
	UpdateInviteStatus(ctx context.Context, tenantID, inviteID, status string) error
}

type Service struct {
	store UserStore
	cost  int
	now   func() time.Time
}

func NewService(s UserStore) *Service {
	return &Service{store: s, cost: bcrypt.DefaultCost, now: time.Now}
}

// WithCost overrides the bcrypt cost, mostly to keep tests fast.
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

type SignUpRequest struct {
	CompanyName string
	DisplayName string
	Email       string
	Password    string
}

// SignUp registers a company and makes the caller its administrator.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (store.Tenant, store.User, error) {
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.CompanyName == "" {
		return store.Tenant{}, store.User{}, &InputError{Field: "companyName", Message: "is required"}
	}
	if req.DisplayName == "" {
		return store.Tenant{}, store.User{}, &InputError{Field: "displayName", Message: "is required"}
	}
	email, err := checkCredentials(req.Email, req.Password)
	if err != nil {
		return store.Tenant{}, store.User{}, err
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return store.Tenant{}, store.User{}, err
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return store.Tenant{}, store.User{}, err
	}

	tenant := store.Tenant{ID: util.NewID("tnt"), Name: req.CompanyName}
	admin := store.User{
		ID:           util.NewID("usr"),
		TenantID:     tenant.ID,
		DisplayName:  req.DisplayName,
		Email:        email,
		PasswordHash: hash,
		Role:         string(rbac.RoleAdmin),
	}
	if err := s.store.CreateTenantWithAdmin(ctx, tenant, admin); err != nil {
		return store.Tenant{}, store.User{}, fmt.Errorf("create tenant: %w", err)
	}
	return tenant, admin, nil
}

// SignIn checks the password and returns the user.
func (s *Service) SignIn(ctx context.Context, email, password string) (store.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return store.User{}, ErrInvalidCredentials
	}
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}

type AcceptInviteRequest struct {
	Token       string
	DisplayName string
	Password    string
}

// AcceptInvite turns a pending invitation into a team member with the invited role.
func (s *Service) AcceptInvite(ctx context.Context, req AcceptInviteRequest) (store.User, error) {
	if strings.TrimSpace(req.Token) == "" {
		return store.User{}, ErrInviteInvalid
	}
	inv, err := s.store.GetInviteByTokenHash(ctx, auth.HashToken(req.Token))
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, ErrInviteInvalid
	}
	if err != nil {
		return store.User{}, fmt.Errorf("lookup invite: %w", err)
	}
	if inv.Status != "pending" || !s.now().Before(inv.ExpiresAt) {
		return store.User{}, ErrInviteInvalid
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return store.User{}, &InputError{Field: "displayName", Message: "is required"}
	}
	email, err := checkCredentials(inv.Email, req.Password)
	if err != nil {
		return store.User{}, err
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return store.User{}, err
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return store.User{}, err
	}

	user := store.User{
		ID:           util.NewID("usr"),
		TenantID:     inv.TenantID,
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: hash,
		Role:         string(rbac.Normalize(inv.Role)),
	}
	if err := s.store.InsertUser(ctx, user); err != nil {
		return store.User{}, err
	}
	if err := s.store.UpdateInviteStatus(ctx, inv.TenantID, inv.ID, "accepted"); err != nil {
		return store.User{}, fmt.Errorf("accept invite: %w", err)
	}
	return user, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailTaken
	case errors.Is(err, sql.ErrNoRows):
		return nil
	default:
		return fmt.Errorf("lookup user: %w", err)
	}
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func checkCredentials(email, password string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return "", &InputError{Field: "email", Message: "is not a valid address"}
	}
	if len(password) < minPasswordLength {
		return "", &InputError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}
	return strings.ToLower(addr.Address), nil
}
