package utils_test

import (
	"autonomeal/models"
	"autonomeal/utils"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCookieExists(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
		want   bool
	}{
		{
			name:   "Session cookie with value",
			cookie: &http.Cookie{Name: utils.SessionCookieName, Value: "abc123"},
			want:   true,
		},
		{
			name:   "Session cookie with empty value",
			cookie: &http.Cookie{Name: utils.SessionCookieName, Value: ""},
			want:   false,
		},
		{
			name: "No cookie at all",
			want: false,
		},
		{
			name:   "Only an unrelated cookie",
			cookie: &http.Cookie{Name: "other_cookie", Value: "xyz789"},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			if got := utils.CookieExists(req, utils.SessionCookieName); got != tt.want {
				t.Errorf("CookieExists() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		name         string
		forwardedFor string
		remoteAddr   string
		want         string
	}{
		{
			name:         "X-Forwarded-For takes precedence",
			forwardedFor: "203.0.113.195",
			remoteAddr:   "192.168.1.1:12345",
			want:         "203.0.113.195",
		},
		{
			name:       "Falls back to RemoteAddr",
			remoteAddr: "192.168.1.1:12345",
			want:       "192.168.1.1:12345",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Forwarded-For", tt.forwardedFor)
			req.RemoteAddr = tt.remoteAddr
			if got := utils.GetIP(req); got != tt.want {
				t.Errorf("GetIP() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetUserAgent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "Googlebot/2.1 (+http://www.google.com/bot.html)")

	if got := utils.GetUserAgent(req); got != "Googlebot/2.1 (+http://www.google.com/bot.html)" {
		t.Errorf("GetUserAgent() = %v", got)
	}
}

func TestSetSessionCookie(t *testing.T) {
	tests := []struct {
		name       string
		session    *models.Session
		wantMaxAge bool
	}{
		{
			name:    "Anonymous session cookie lasts for the browser session",
			session: &models.Session{ID: "anon"},
		},
		{
			name: "Permanent session cookie carries a max age",
			session: &models.Session{
				ID:        "perm",
				Username:  "ann",
				Permanent: true,
				ExpiresAt: time.Now().Add(24 * time.Hour),
			},
			wantMaxAge: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			utils.SetSessionCookie(rec, tt.session, false)

			cookies := rec.Result().Cookies()
			if len(cookies) != 1 {
				t.Fatalf("expected one cookie, got %d", len(cookies))
			}
			c := cookies[0]
			if c.Name != utils.SessionCookieName || c.Value != tt.session.ID {
				t.Errorf("unexpected cookie %s=%s", c.Name, c.Value)
			}
			if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
				t.Errorf("cookie should be HttpOnly and SameSite=Lax")
			}
			if (c.MaxAge > 0) != tt.wantMaxAge {
				t.Errorf("MaxAge = %d, wantMaxAge %v", c.MaxAge, tt.wantMaxAge)
			}
		})
	}
}

func TestClearSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	utils.ClearSessionCookie(rec, true)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	if cookies[0].MaxAge >= 0 || cookies[0].Value != "" || !cookies[0].Secure {
		t.Errorf("cookie was not expired: %+v", cookies[0])
	}
}
