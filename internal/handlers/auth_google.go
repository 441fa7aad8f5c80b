package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/session"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/users"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleOAuthHandler struct {
	Users           *users.Store
	Sessions        *session.Issuer
	Logger          *slog.Logger
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string

	// zero values mean Google's production endpoints
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

func (h *GoogleOAuthHandler) oauthCfg() *oauth2.Config {
	endpoint := h.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	return &oauth2.Config{
		ClientID:     h.GoogleClientID,
		ClientSecret: h.GoogleSecret,
		RedirectURL:  h.GoogleRedirect,
		Endpoint:     endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func (h *GoogleOAuthHandler) userInfoURL() string {
	if h.UserInfoURL != "" {
		return h.UserInfoURL
	}
	return googleUserInfoURL
}

func randomState(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func setTempCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Lax",
		MaxAge:   maxAge,
	})
}

func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	next := c.Query("next", "/")
	st := randomState(32)

	// state and next survive the round trip in short-lived cookies
	setTempCookie(c, "oauth_state", st, 10*60)
	setTempCookie(c, "oauth_next", next, 10*60)

	authURL := h.oauthCfg().AuthCodeURL(st, oauth2.AccessTypeOffline)
	return c.Redirect(authURL, http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// GoogleCallback signs the Google account in, creating a client account on
// first use, and sends the browser back to the frontend with a bearer token
// in the URL fragment.
func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return fail(c, fiber.StatusBadRequest, "Missing code or state")
	}

	stCookie := c.Cookies("oauth_state")
	next := c.Cookies("oauth_next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	if stCookie == "" || stCookie != state {
		return fail(c, fiber.StatusBadRequest, "Invalid state")
	}
	setTempCookie(c, "oauth_state", "", -1)
	setTempCookie(c, "oauth_next", "", -1)

	cfg := h.oauthCfg()
	tok, err := cfg.Exchange(c.UserContext(), code)
	if err != nil {
		h.Logger.Warn("google code exchange", slog.Any("error", err))
		return fail(c, fiber.StatusBadRequest, "Failed to exchange code")
	}

	gu, err := h.fetchUserInfo(c, cfg, tok)
	if err != nil {
		h.Logger.Warn("google userinfo", slog.Any("error", err))
		return fail(c, fiber.StatusBadRequest, "Failed to fetch Google profile")
	}
	email := users.NormalizeEmail(gu.Email)
	if email == "" || !gu.VerifiedEmail {
		return fail(c, fiber.StatusBadRequest, "Google account has no verified email")
	}

	u, err := h.upsertUser(c, email, strings.TrimSpace(gu.Name))
	if err != nil {
		return respondError(c, h.Logger, err, "Server error during Google sign-in")
	}
	if !u.IsActive {
		return c.Redirect(h.FrontendBaseURL+"/login?error="+url.QueryEscape("Account is disabled"), http.StatusTemporaryRedirect)
	}

	token, err := h.Sessions.Issue(u)
	if err != nil {
		return respondError(c, h.Logger, err, "Server error during Google sign-in")
	}

	redirect := h.FrontendBaseURL + "/auth/callback?next=" + url.QueryEscape(next) + "#token=" + url.QueryEscape(token)
	return c.Redirect(redirect, http.StatusTemporaryRedirect)
}

func (h *GoogleOAuthHandler) fetchUserInfo(c *fiber.Ctx, cfg *oauth2.Config, tok *oauth2.Token) (*googleUserInfo, error) {
	resp, err := cfg.Client(c.UserContext(), tok).Get(h.userInfoURL())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var gu googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &gu, nil
}

func (h *GoogleOAuthHandler) upsertUser(c *fiber.Ctx, email, name string) (*models.User, error) {
	ctx := c.UserContext()
	u, err := h.Users.FindByIdentity(ctx, email)
	if errors.Is(err, users.ErrUserNotFound) {
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		// password login stays unusable until the user sets one
		u, err = h.Users.Create(ctx, email, randomState(24), name, models.RoleClient)
		if err != nil {
			return nil, err
		}
		h.Logger.Info("user created via google", slog.String("user_id", u.ID.String()))
		return u, nil
	}
	if err != nil {
		return nil, err
	}

	if name != "" && u.Name != name {
		return h.Users.UpdateName(ctx, u.ID, name)
	}
	return u, nil
}
