package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAuthenticator_Enabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{name: "both set", username: "user", password: "pass", want: true},
		{name: "empty username", username: "", password: "pass", want: false},
		{name: "empty password", username: "user", password: "", want: false},
		{name: "both empty", username: "", password: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			auth := NewAuthenticator(tt.username, tt.password)
			if got := auth.Enabled(); got != tt.want {
				t.Errorf("Enabled(): got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthenticator_Verify(t *testing.T) {
	t.Parallel()

	auth := NewAuthenticator("testuser", "testpass")

	tests := []struct {
		name string
		user string
		pass string
		want bool
	}{
		{name: "match", user: "testuser", pass: "testpass", want: true},
		{name: "wrong password", user: "testuser", pass: "wrong", want: false},
		{name: "wrong user", user: "other", pass: "testpass", want: false},
		{name: "prefix of password", user: "testuser", pass: "test", want: false},
		{name: "empty", user: "", pass: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := auth.Verify(tt.user, tt.pass); got != tt.want {
				t.Errorf("Verify(%q, %q): got %v, want %v", tt.user, tt.pass, got, tt.want)
			}
		})
	}
}

func TestAuthenticator_Middleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		username   string
		password   string
		setAuth    bool
		user, pass string
		wantStatus int
	}{
		{name: "disabled passes through", wantStatus: http.StatusOK},
		{name: "valid credentials", username: "u", password: "p", setAuth: true, user: "u", pass: "p", wantStatus: http.StatusOK},
		{name: "invalid credentials", username: "u", password: "p", setAuth: true, user: "u", pass: "x", wantStatus: http.StatusUnauthorized},
		{name: "missing credentials", username: "u", password: "p", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := gin.New()
			engine.GET("/", NewAuthenticator(tt.username, tt.password).Middleware(), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.setAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate challenge")
			}
		})
	}
}
