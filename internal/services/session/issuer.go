package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/users"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAccountDisabled    = errors.New("account is disabled")
)

// dummyHash is compared against when the email is unknown so that a missing
// account and a wrong password take the same time.
var dummyHash string

func init() {
	h, err := utils.HashPassword("homeguard-timing-equaliser")
	if err != nil {
		panic(err)
	}
	dummyHash = h
}

// UserFinder is the part of the credential store the issuer depends on.
type UserFinder interface {
	FindByIdentity(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type Issuer struct {
	Users   UserFinder
	Revoked RevocationSet
	Secret  string
	TTL     time.Duration
	Logger  *slog.Logger

	now func() time.Time
}

func NewIssuer(finder UserFinder, revoked RevocationSet, secret string, ttl time.Duration, logger *slog.Logger) *Issuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Issuer{
		Users:   finder,
		Revoked: revoked,
		Secret:  secret,
		TTL:     ttl,
		Logger:  logger,
		now:     time.Now,
	}
}

// Authenticate checks an email/secret pair and issues a token on success.
// Unknown email and wrong secret both yield ErrInvalidCredentials.
func (i *Issuer) Authenticate(ctx context.Context, email, secret string) (string, *models.User, error) {
	u, err := i.Users.FindByIdentity(ctx, email)
	if err != nil && !errors.Is(err, users.ErrUserNotFound) {
		return "", nil, err
	}

	hash := dummyHash
	if u != nil {
		hash = u.Password
	}
	ok := utils.CheckPassword(hash, secret)
	if u == nil || !ok {
		i.Logger.Info("login rejected", slog.String("email", users.NormalizeEmail(email)))
		return "", nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return "", nil, ErrAccountDisabled
	}

	token, err := i.Issue(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Issue mints a token for a user that has already been authenticated.
func (i *Issuer) Issue(u *models.User) (string, error) {
	token, _, err := utils.SignJWTAt(i.Secret, u.ID.String(), string(u.Role), i.now(), i.TTL)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify resolves a token to its user. The user is re-read from the store so
// role changes and deactivation take effect immediately.
func (i *Issuer) Verify(ctx context.Context, token string) (*models.User, *utils.Claims, error) {
	claims, err := utils.ParseJWT(i.Secret, token)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	if claims.ID == "" {
		return nil, nil, ErrInvalidToken
	}

	revoked, err := i.Revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, ErrInvalidToken
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	u, err := i.Users.FindByID(ctx, uid)
	if err != nil {
		return nil, nil, err
	}
	if !u.IsActive {
		return nil, nil, ErrAccountDisabled
	}
	return u, claims, nil
}

// Revoke invalidates token until its natural expiry. Tokens that no longer
// parse are already unusable and are ignored.
func (i *Issuer) Revoke(ctx context.Context, token string) error {
	claims, err := utils.ParseJWT(i.Secret, token)
	if err != nil {
		return nil
	}
	exp := i.now().Add(i.TTL)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return i.Revoked.Revoke(ctx, claims.ID, exp)
}
