package auth

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pharmaplaza/server/internal/logger"
)

type fakeUsers map[string]Role

func (f fakeUsers) RoleOf(_ context.Context, email string) (Role, bool, error) {
	role, ok := f[email]
	return role, ok, nil
}

type failingUsers struct{}

func (failingUsers) RoleOf(context.Context, string) (Role, bool, error) {
	return "", false, errors.New("db down")
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"Admin", RoleAdmin, false},
		{"admin", RoleAdmin, false},
		{" SELLER ", RoleSeller, false},
		{"buyer", RoleBuyer, false},
		{"owner", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return now }

	token, err := issuer.Issue(map[string]any{"email": "a@example.com", "exp": 1})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Email != "a@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
	if !claims.ExpiresAt.Time.Equal(now.Add(time.Hour)) {
		t.Errorf("exp = %v, want issuer-controlled %v", claims.ExpiresAt.Time, now.Add(time.Hour))
	}

	issuer.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token error = %v, want ErrInvalidToken", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := NewIssuer("one", time.Hour).Issue(map[string]any{"email": "a@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewIssuer("two", time.Hour).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestRequireToken(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	gate := NewGate(issuer, fakeUsers{}, nil)
	good, _ := issuer.Issue(map[string]any{"email": "a@example.com"})

	var seen string
	handler := gate.RequireToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		seen = claims.Email
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + good, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
		{"valid token", "Bearer " + good, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/payment/a@example.com", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"unauthorized"`) {
				t.Errorf("body = %s", rec.Body.String())
			}
		})
	}
	if seen != "a@example.com" {
		t.Errorf("claims email = %q", seen)
	}
}

func TestRequireRole(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	users := fakeUsers{"admin@example.com": RoleAdmin, "seller@example.com": RoleSeller}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name  string
		users UserLookup
		email string
		want  int
	}{
		{"admin allowed", users, "admin@example.com", http.StatusOK},
		{"seller forbidden", users, "seller@example.com", http.StatusForbidden},
		{"unknown user forbidden", users, "ghost@example.com", http.StatusForbidden},
		{"lookup failure", failingUsers{}, "admin@example.com", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(issuer, tt.users, nil)
			handler := gate.RequireToken(gate.RequireRole(RoleAdmin)(ok))
			token, _ := issuer.Issue(map[string]any{"email": tt.email})

			req := httptest.NewRequest(http.MethodGet, "/admin-stats", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestGate_LogsThroughRequestLogger(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	gate := NewGate(issuer, failingUsers{}, nil)
	handler := gate.RequireToken(gate.RequireRole(RoleAdmin)(http.NotFoundHandler()))
	token, _ := issuer.Issue(map[string]any{"email": "admin@example.com"})

	send := func(header string) string {
		var buf bytes.Buffer
		reqLogger := zerolog.New(&buf).Level(zerolog.DebugLevel)
		req := httptest.NewRequest(http.MethodGet, "/admin-stats", nil)
		req = req.WithContext(logger.WithContext(req.Context(), reqLogger))
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
		return buf.String()
	}

	if out := send(""); !strings.Contains(out, `"reason":"missing_token"`) || !strings.Contains(out, "auth.rejected") {
		t.Errorf("rejection log = %s", out)
	}
	if out := send("Bearer garbage"); !strings.Contains(out, "auth.token.verify_failed") {
		t.Errorf("verify log = %s", out)
	}
	out := send("Bearer " + token)
	if !strings.Contains(out, "auth.role.lookup_failed") || strings.Contains(out, "admin@example.com") {
		t.Errorf("lookup log = %s", out)
	}
}
