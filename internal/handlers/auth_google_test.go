package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const frontendURL = "http://frontend.test"

// fakeGoogle serves the token and userinfo endpoints of the OAuth2 flow.
func fakeGoogle(t *testing.T, email string, verified bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"email":          email,
			"verified_email": verified,
			"name":           "Gina Google",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newGoogleEnv(t *testing.T, srv *httptest.Server) *testEnv {
	t.Helper()
	return newTestEnv(t, &GoogleOAuthHandler{
		GoogleClientID:  "client-id",
		GoogleSecret:    "client-secret",
		GoogleRedirect:  "http://api.test/api/auth/google/callback",
		FrontendBaseURL: frontendURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfoURL: srv.URL + "/userinfo",
	})
}

func callback(t *testing.T, e *testEnv, code, state, cookieState string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code="+code+"&state="+state, nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: cookieState})
	req.AddCookie(&http.Cookie{Name: "oauth_next", Value: "/dashboard"})
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGoogleStartRedirects(t *testing.T) {
	srv := fakeGoogle(t, "gina@example.com", true)
	e := newGoogleEnv(t, srv)

	resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/google/start?next=/dashboard", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/auth", loc.Scheme+"://"+loc.Host+loc.Path)
	assert.Equal(t, "client-id", loc.Query().Get("client_id"))

	var state string
	for _, c := range resp.Cookies() {
		if c.Name == "oauth_state" {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)
	assert.Equal(t, state, loc.Query().Get("state"))
}

func TestGoogleCallbackCreatesUserAndIssuesToken(t *testing.T) {
	srv := fakeGoogle(t, "Gina@Example.com", true)
	e := newGoogleEnv(t, srv)

	resp := callback(t, e, "good-code", "st-1", "st-1")
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	loc := resp.Header.Get("Location")
	prefix := frontendURL + "/auth/callback?next=%2Fdashboard#token="
	require.True(t, strings.HasPrefix(loc, prefix), loc)
	token, err := url.QueryUnescape(strings.TrimPrefix(loc, prefix))
	require.NoError(t, err)

	status, body := e.do(t, http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "gina@example.com", user["email"])
	assert.Equal(t, "Gina Google", user["name"])
	assert.Equal(t, "client", user["role"])

	// second sign-in reuses the account
	resp = callback(t, e, "good-code", "st-2", "st-2")
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	all, err := e.users.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGoogleCallbackRejects(t *testing.T) {
	srv := fakeGoogle(t, "gina@example.com", true)
	e := newGoogleEnv(t, srv)

	resp := callback(t, e, "good-code", "st-1", "other-state")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = callback(t, e, "bad-code", "st-1", "st-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = callback(t, e, "", "st-1", "st-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	unverified := fakeGoogle(t, "sneaky@example.com", false)
	e2 := newGoogleEnv(t, unverified)
	resp = callback(t, e2, "good-code", "st-1", "st-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGoogleRoutesUnmountedWithoutConfig(t *testing.T) {
	e := newTestEnv(t, nil)
	status, _ := e.do(t, http.MethodGet, "/api/auth/google/start", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}
