package zepp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewClient(zap.NewNop(), mustMadrid(t), WithBaseURLs(srv.URL, srv.URL, srv.URL))
}

func TestLogin(t *testing.T) {
	var loginCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/registrations/user@example.com/tokens":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "REDIRECTION", r.PostForm.Get("state"))
			assert.Equal(t, "HuaMi", r.PostForm.Get("client_id"))
			assert.Equal(t, "access", r.PostForm.Get("token"))
			assert.Equal(t, "hunter2", r.PostForm.Get("password"))

			w.Header().Set("Location", "https://example.com/done?access=code-123&country_code=ES")
			w.WriteHeader(http.StatusSeeOther)
		case "/v2/client/login":
			loginCalls++
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "access_token", r.PostForm.Get("grant_type"))
			assert.Equal(t, "code-123", r.PostForm.Get("code"))
			assert.Equal(t, "ES", r.PostForm.Get("country_code"))
			assert.Equal(t, "com.xiaomi.hm.health", r.PostForm.Get("app_name"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token_info":{"app_token":"app-token-xyz","user_id":"42"}}`))
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	cred, err := testClient(t, srv).Login(context.Background(), "user@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "app-token-xyz", cred.AppToken)
	assert.Equal(t, "42", cred.UserID)
	assert.Equal(t, 1, loginCalls)
}

func TestLoginRateLimited(t *testing.T) {
	var loginCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/client/login" {
			loginCalls++
			return
		}
		w.Header().Set("Retry-After", "86400")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Login(context.Background(), "user@example.com", "pw")

	var rateErr *RateLimitedError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, "86400", rateErr.RetryAfter)
	// A rate limit must abort before any phase-2 traffic.
	assert.Zero(t, loginCalls)
}

func TestLoginRedirectMissingFields(t *testing.T) {
	tests := []struct {
		name       string
		location   string
		wantReason string
	}{
		{
			name:       "missing access",
			location:   "https://example.com/done?country_code=ES",
			wantReason: "redirect query lacks access",
		},
		{
			name:       "missing country_code",
			location:   "https://example.com/done?access=code-123",
			wantReason: "redirect query lacks country_code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var loginCalls int
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/v2/client/login" {
					loginCalls++
					return
				}
				w.Header().Set("Location", tt.location)
				w.WriteHeader(http.StatusSeeOther)
			}))
			defer srv.Close()

			_, err := testClient(t, srv).Login(context.Background(), "user@example.com", "pw")

			var protoErr *ProtocolError
			require.ErrorAs(t, err, &protoErr)
			assert.Equal(t, "password exchange", protoErr.Step)
			assert.Equal(t, tt.wantReason, protoErr.Reason)
			assert.Zero(t, loginCalls)
		})
	}
}

func TestLoginNotARedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Login(context.Background(), "user@example.com", "pw")

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, "response is not a redirect", protoErr.Reason)
}

func TestLoginPasswordRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Login(context.Background(), "user@example.com", "pw")

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusForbidden, transportErr.Status)
}

func TestLoginTokenExchangeUnusablePayload(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantReason string
	}{
		{
			name:       "missing app_token",
			body:       `{"token_info":{"user_id":"42"}}`,
			wantReason: "response lacks token_info.app_token",
		},
		{
			name:       "missing user_id",
			body:       `{"token_info":{"app_token":"tok"}}`,
			wantReason: "response lacks token_info.user_id",
		},
		{
			name:       "no token_info at all",
			body:       `{"error":"ok-but-empty"}`,
			wantReason: "response lacks token_info.app_token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/v2/client/login" {
					w.Header().Set("Content-Type", "application/json")
					_, _ = w.Write([]byte(tt.body))
					return
				}
				w.Header().Set("Location", "https://example.com/done?access=code&country_code=ES")
				w.WriteHeader(http.StatusSeeOther)
			}))
			defer srv.Close()

			_, err := testClient(t, srv).Login(context.Background(), "user@example.com", "pw")

			var protoErr *ProtocolError
			require.ErrorAs(t, err, &protoErr)
			assert.Equal(t, "token exchange", protoErr.Step)
			assert.Equal(t, tt.wantReason, protoErr.Reason)
		})
	}
}

func TestLoginEscapesEmailInPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/client/login" {
			gotPath = r.URL.EscapedPath()
			w.Header().Set("Location", "https://example.com/done?access=code&country_code=ES")
			w.WriteHeader(http.StatusSeeOther)
			return
		}
		_, _ = w.Write([]byte(`{"token_info":{"app_token":"tok","user_id":"42"}}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Login(context.Background(), "user+band@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "/registrations/user+band@example.com/tokens", gotPath)
}
