package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/utils"
)

var (
	ErrDuplicateIdentity = errors.New("user with this email already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidRole       = errors.New("invalid role")
)

// Store keeps user records. Secrets are hashed before they reach the database
// and are never handed back in a reversible form.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) Create(ctx context.Context, email, secret, name string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	email = NormalizeEmail(email)

	if _, err := s.FindByIdentity(ctx, email); err == nil {
		return nil, ErrDuplicateIdentity
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(secret)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := models.User{
		Name:     strings.TrimSpace(name),
		Email:    email,
		Password: hash,
		Role:     role,
		IsActive: true,
	}
	if err := s.DB.WithContext(ctx).Create(&u).Error; err != nil {
		// lost a race against another signup with the same email
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *Store) FindByIdentity(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &u, nil
}

func (s *Store) List(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateName(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	return s.update(ctx, id, "name", strings.TrimSpace(name))
}

// ProfileUpdate holds the self-editable profile fields. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Name    *string
	Phone   *string
	Address *string
}

func (s *Store) UpdateProfile(ctx context.Context, id uuid.UUID, p ProfileUpdate) (*models.User, error) {
	updates := map[string]interface{}{}
	if p.Name != nil {
		updates["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Phone != nil {
		updates["phone"] = strings.TrimSpace(*p.Phone)
	}
	if p.Address != nil {
		updates["address"] = strings.TrimSpace(*p.Address)
	}
	if len(updates) == 0 {
		return s.FindByID(ctx, id)
	}

	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return s.FindByID(ctx, id)
}

// SetRole changes a user's role. Only the admin surface calls this.
func (s *Store) SetRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	return s.update(ctx, id, "role", role)
}

func (s *Store) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	return s.update(ctx, id, "is_active", active)
}

func (s *Store) update(ctx context.Context, id uuid.UUID, column string, value interface{}) (*models.User, error) {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return nil, fmt.Errorf("update user %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return s.FindByID(ctx, id)
}

// EnsureAdmin creates the bootstrap admin account if it does not exist yet.
// An existing account with that email is promoted to admin.
func (s *Store) EnsureAdmin(ctx context.Context, email, secret, name string) (*models.User, error) {
	u, err := s.FindByIdentity(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return s.Create(ctx, email, secret, name, models.RoleAdmin)
	}
	if err != nil {
		return nil, err
	}
	if u.Role == models.RoleAdmin {
		return u, nil
	}
	return s.SetRole(ctx, u.ID, models.RoleAdmin)
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
