package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewBuffer(b)
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	initDB()
	initAuth([]byte("test-secret"), time.Minute, time.Hour)
	t.Cleanup(blacklist.Close)
	initMetrics(blacklist)
	r := gin.Default()
	r.Use(requestIDMiddleware(), metricsMiddleware())
	setupRoutes(r)
	return r
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)

	email := "user1@example.com"
	password := "Passw0rd1"

	// 1. Register user (tolerate re-runs against a persistent DB)
	resp := performRequest(r, http.MethodPost, "/api/users/register",
		jsonBody(t, map[string]string{"email": email, "password": password, "name": "User One"}), "")
	if resp.Code != http.StatusCreated && resp.Code != http.StatusBadRequest {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 2. Duplicate register must be rejected
	resp = performRequest(r, http.MethodPost, "/api/users/register",
		jsonBody(t, map[string]string{"email": email, "password": password, "name": "User One"}), "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected duplicate register to fail, got %d", resp.Code)
	}

	// 3. Login
	resp = performRequest(r, http.MethodPost, "/api/users/login",
		jsonBody(t, map[string]string{"email": email, "password": password}), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}

	// 4. Wrong password and unknown email must fail identically
	bad1 := performRequest(r, http.MethodPost, "/api/users/login",
		jsonBody(t, map[string]string{"email": email, "password": "Wrongpass1"}), "")
	bad2 := performRequest(r, http.MethodPost, "/api/users/login",
		jsonBody(t, map[string]string{"email": "nobody@example.com", "password": password}), "")
	if bad1.Code != http.StatusUnauthorized || bad2.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401 got %d/%d", bad1.Code, bad2.Code)
	}
	if bad1.Body.String() != bad2.Body.String() {
		t.Fatalf("login failures must be indistinguishable: %s vs %s", bad1.Body.String(), bad2.Body.String())
	}

	// 5. Me
	resp = performRequest(r, http.MethodGet, "/api/users/me", nil, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("me failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 6. Create task
	resp = performRequest(r, http.MethodPost, "/api/tasks",
		jsonBody(t, map[string]any{"title": "Write report", "priority": "high"}), token)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create task failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var task map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &task)
	taskID := fmt.Sprintf("%.0f", task["id"].(float64))

	// 7. List tasks with filter and pagination
	resp = performRequest(r, http.MethodGet, "/api/tasks?priority=high&sort=created_at:desc&page=1&limit=5", nil, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("list tasks failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 8. Update and fetch the task
	resp = performRequest(r, http.MethodPut, "/api/tasks/"+taskID,
		jsonBody(t, map[string]string{"status": "completed"}), token)
	if resp.Code != http.StatusOK {
		t.Fatalf("update task failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodGet, "/api/tasks/"+taskID, nil, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("get task failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 9. Delete the task
	resp = performRequest(r, http.MethodDelete, "/api/tasks/"+taskID, nil, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("delete task failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 10. Change password to the same value (keeps the flow re-runnable)
	resp = performRequest(r, http.MethodPut, "/api/users/change-password",
		jsonBody(t, map[string]string{"currentPassword": password, "newPassword": password}), token)
	if resp.Code != http.StatusOK {
		t.Fatalf("change password failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodPut, "/api/users/change-password",
		jsonBody(t, map[string]string{"currentPassword": "Wrongpass1", "newPassword": password}), token)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong current password, got %d", resp.Code)
	}

	// 11. Logout, then the same token must be rejected
	resp = performRequest(r, http.MethodPost, "/api/users/logout", nil, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("logout failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodGet, "/api/users/me", nil, token)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d body=%s", resp.Code, resp.Body.String())
	}

	// 12. Logout without a token is 401; with any bearer string it succeeds
	resp = performRequest(r, http.MethodPost, "/api/users/logout", nil, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for logout without token, got %d", resp.Code)
	}
	resp = performRequest(r, http.MethodPost, "/api/users/logout", nil, "clearly-not-a-valid-token")
	if resp.Code != http.StatusOK {
		t.Fatalf("logout of an invalid token must still succeed, got %d", resp.Code)
	}

	// 13. Unauthorized access to a protected endpoint
	resp = performRequest(r, http.MethodGet, "/api/tasks", nil, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized task list, got %d", resp.Code)
	}
}

func TestDeleteAccountFlow(t *testing.T) {
	r := setupTestServer(t)

	email := fmt.Sprintf("tmp%d@example.com", time.Now().UnixNano())
	password := "Passw0rd1"

	resp := performRequest(r, http.MethodPost, "/api/users/register",
		jsonBody(t, map[string]string{"email": email, "password": password, "name": "Temp User"}), "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	resp = performRequest(r, http.MethodPost, "/api/users/login",
		jsonBody(t, map[string]string{"email": email, "password": password}), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)

	resp = performRequest(r, http.MethodDelete, "/api/users/delete-account", nil, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("delete account failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// Token still has a valid signature but the subject is gone.
	resp = performRequest(r, http.MethodGet, "/api/users/me", nil, token)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted account, got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r := setupTestServer(t)

	resp := performRequest(r, http.MethodGet, "/health", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("health failed status=%d", resp.Code)
	}
	resp = performRequest(r, http.MethodGet, "/metrics", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("metrics failed status=%d", resp.Code)
	}
}
