package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"curema-crm/internal/infrastructure/config"
)

func testConfig() config.Config {
	cfg := config.Config{}
	cfg.Auth.Secret = "test-secret"
	cfg.Auth.TokenTTL = 30 * time.Minute
	cfg.Auth.RefreshTTL = 7 * 24 * time.Hour
	cfg.Auth.SessionTimeout = 30 * time.Minute
	cfg.Auth.MaxSessionsPerUser = 3
	cfg.Auth.MaxRefreshTokensPerUser = 5
	return cfg
}

func postJSON(t *testing.T, server *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(b))
	req.Header.Set("Content-Type", "application/json")
	server.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return resp
}

func login(t *testing.T, server *Server) map[string]interface{} {
	t.Helper()
	w := postJSON(t, server, "/api/auth/login", map[string]string{
		"username": "admin",
		"password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d body: %s", w.Code, w.Body.String())
	}
	return decodeBody(t, w)
}

func TestAuthHandler_Login(t *testing.T) {
	server := NewServer(testConfig(), nil)

	t.Run("LoginSuccess", func(t *testing.T) {
		resp := login(t, server)
		if resp["success"] != true {
			t.Errorf("expected success true, got %v", resp["success"])
		}
		if resp["accessToken"] == "" || resp["refreshToken"] == "" {
			t.Error("expected token pair in response")
		}
		if resp["tokenType"] != "Bearer" {
			t.Errorf("tokenType = %v, want Bearer", resp["tokenType"])
		}
		if resp["expiresIn"] != float64(1800) {
			t.Errorf("expiresIn = %v, want 1800", resp["expiresIn"])
		}
	})

	t.Run("LoginFailure", func(t *testing.T) {
		for _, body := range []map[string]string{
			{"username": "admin", "password": "wrong-password"},
			{"username": "nobody", "password": "password123"},
		} {
			w := postJSON(t, server, "/api/auth/login", body)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
			resp := decodeBody(t, w)
			// 失敗訊息一律相同。
			if resp["error_code"] != "AUTH_INVALID_CREDENTIALS" {
				t.Errorf("error_code = %v", resp["error_code"])
			}
		}
	})

	t.Run("LoginBadBody", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/auth/login", bytes.NewBufferString("not-json"))
		server.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	server := NewServer(testConfig(), nil)
	bundle := login(t, server)

	t.Run("RefreshSuccess", func(t *testing.T) {
		w := postJSON(t, server, "/api/auth/refresh", map[string]string{
			"refreshToken": bundle["refreshToken"].(string),
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d. body: %s", w.Code, w.Body.String())
		}
		resp := decodeBody(t, w)
		if resp["refreshToken"] != bundle["refreshToken"] {
			t.Error("refresh token value must not rotate")
		}
		if resp["sessionId"] == bundle["sessionId"] {
			t.Error("refresh must create a new session")
		}
	})

	t.Run("RefreshUnknownToken", func(t *testing.T) {
		w := postJSON(t, server, "/api/auth/refresh", map[string]string{"refreshToken": "bogus"})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("RefreshMissingToken", func(t *testing.T) {
		w := postJSON(t, server, "/api/auth/refresh", map[string]string{})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	server := NewServer(testConfig(), nil)
	bundle := login(t, server)

	w := postJSON(t, server, "/api/auth/logout", map[string]string{
		"sessionId":    bundle["sessionId"].(string),
		"refreshToken": bundle["refreshToken"].(string),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	// 登出後 access token 失效、refresh token 不可再用。
	w = httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/auth/validate", nil)
	req.Header.Set("Authorization", "Bearer "+bundle["accessToken"].(string))
	server.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", w.Code)
	}

	w2 := postJSON(t, server, "/api/auth/refresh", map[string]string{
		"refreshToken": bundle["refreshToken"].(string),
	})
	if w2.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 on revoked refresh, got %d", w2.Code)
	}

	// 未知憑證也回成功。
	w3 := postJSON(t, server, "/api/auth/logout", map[string]string{
		"sessionId":    "no-such-session",
		"refreshToken": "no-such-token",
	})
	if w3.Code != http.StatusOK {
		t.Errorf("expected 200 for unknown credentials, got %d", w3.Code)
	}
}

func TestAuthHandler_LogoutAll(t *testing.T) {
	server := NewServer(testConfig(), nil)
	first := login(t, server)
	second := login(t, server)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/auth/logout-all", nil)
	req.Header.Set("Authorization", "Bearer "+second["accessToken"].(string))
	server.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. body: %s", w.Code, w.Body.String())
	}

	for _, bundle := range []map[string]interface{}{first, second} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/auth/validate", nil)
		req.Header.Set("Authorization", "Bearer "+bundle["accessToken"].(string))
		server.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 after logout-all, got %d", w.Code)
		}
	}
}

func TestAuthHandler_Register(t *testing.T) {
	server := NewServer(testConfig(), nil)

	t.Run("RegisterSuccess", func(t *testing.T) {
		w := postJSON(t, server, "/api/auth/register", map[string]string{
			"username": "carol",
			"email":    "carol@curema.com",
			"password": "s3cret",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d. body: %s", w.Code, w.Body.String())
		}

		// 新帳號可立即登入。
		w2 := postJSON(t, server, "/api/auth/login", map[string]string{
			"username": "carol",
			"password": "s3cret",
		})
		if w2.Code != http.StatusOK {
			t.Errorf("new account login failed: %d", w2.Code)
		}
	})

	t.Run("RegisterDuplicateUsername", func(t *testing.T) {
		w := postJSON(t, server, "/api/auth/register", map[string]string{
			"username": "admin",
			"email":    "other@curema.com",
			"password": "pw",
		})
		if w.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", w.Code)
		}
	})

	t.Run("RegisterForeignDomain", func(t *testing.T) {
		w := postJSON(t, server, "/api/auth/register", map[string]string{
			"username": "dave",
			"email":    "dave@gmail.com",
			"password": "pw",
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestAuthHandler_ValidateAndProfile(t *testing.T) {
	server := NewServer(testConfig(), nil)
	bundle := login(t, server)
	token := bundle["accessToken"].(string)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/auth/validate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	server.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("validate: expected 200, got %d", w.Code)
	}
	resp := decodeBody(t, w)
	if resp["username"] != "admin" {
		t.Errorf("username = %v, want admin", resp["username"])
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	server.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d", w.Code)
	}
	resp = decodeBody(t, w)
	user, _ := resp["user"].(map[string]interface{})
	if user["email"] != "admin@curema.com" {
		t.Errorf("profile email = %v", user["email"])
	}
}
