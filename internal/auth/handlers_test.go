package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func newTestApp(svc *Service) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/auth"), svc)
	return app
}

func postToken(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	return resp
}

func TestTokenAndVerifyRoutes(t *testing.T) {
	app := newTestApp(NewService("secret", hashPassphrase(t, "pw"), time.Hour))

	resp := postToken(t, app, `{"passphrase":"pw"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ok, got %d", resp.StatusCode)
	}
	var tokens TokenResponse
	_ = json.NewDecoder(resp.Body).Decode(&tokens)
	if tokens.AccessToken == "" {
		t.Fatalf("expected access token")
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected verify ok, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized without token")
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer broken")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized for broken token")
	}
}

func TestTokenRouteErrors(t *testing.T) {
	app := newTestApp(NewService("secret", hashPassphrase(t, "pw"), time.Hour))

	if resp := postToken(t, app, `{`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for invalid json")
	}
	if resp := postToken(t, app, `{}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for missing passphrase")
	}
	if resp := postToken(t, app, `{"passphrase":"nope"}`); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized for wrong passphrase")
	}

	disabled := newTestApp(NewService("secret", "", time.Hour))
	if resp := postToken(t, disabled, `{"passphrase":"pw"}`); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found when auth disabled")
	}
	resp, _ := disabled.Test(httptest.NewRequest(http.MethodGet, "/auth/verify", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected verify ok when auth disabled")
	}
}
