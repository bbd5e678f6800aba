package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/musicomply/internal/auth"
	"github.com/hitoshi/musicomply/internal/checklist"
	"github.com/hitoshi/musicomply/internal/contact"
	"github.com/hitoshi/musicomply/internal/directory"
	"github.com/hitoshi/musicomply/internal/middleware"
	"github.com/hitoshi/musicomply/internal/resource"
	"github.com/hitoshi/musicomply/internal/repository"
	"github.com/hitoshi/musicomply/internal/security"
	"github.com/hitoshi/musicomply/internal/session"
	"github.com/hitoshi/musicomply/internal/validation"
)

const testAllowedOrigin = "http://localhost:5173"

// newTestServer はインメモリストアで全ルーターを組み立てたテストサーバーを起動する。
func newTestServer(t *testing.T, authPerMinute int) *httptest.Server {
	t.Helper()

	store, err := repository.NewMemoryStore(0)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	sessions := session.NewManager(store.Sessions, store.Users, session.Config{})
	sanitizer := security.NewTextSanitizer()
	limiter := middleware.NewRateLimiter(middleware.NewAuthRateLimiterConfig(authPerMinute))
	t.Cleanup(limiter.Stop)

	router := NewRouter(&RouterDeps{
		SessionResolver:   sessions,
		CORSAllowedOrigin: testAllowedOrigin,
		RateLimiter:       limiter,
		Decoder:           validation.New(),
		AuthService:       auth.NewService(store.Users, auth.NewScryptHasher(2)),
		Sessions:          sessions,
		ChecklistService:  checklist.NewService(store.ChecklistItems, store.UserChecklists, store.Users),
		DirectoryService:  directory.NewService(store.Directory, sanitizer),
		ResourceService:   resource.NewService(store.Resources, sanitizer),
		ContactService:    contact.NewService(store.Messages, store.Subscribers, sanitizer),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// newClient はCookieを保持するHTTPクライアントを返す。
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

// call はリクエストを送り、ステータスコードとボディを返す。
func call(t *testing.T, c *http.Client, method, url, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp.StatusCode, raw
}

func mustUnmarshal(t *testing.T, raw []byte, dst any) {
	t.Helper()
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("failed to decode %s: %v", raw, err)
	}
}

func registerBody(username, email, userType string) string {
	return fmt.Sprintf(`{"username":%q,"name":"Test User","email":%q,"password":"Abcdef12","userType":%q,"country":"US","termsAccepted":true}`,
		username, email, userType)
}

// register はユーザーを登録し、作成されたユーザーIDを返す。
func register(t *testing.T, srv *httptest.Server, c *http.Client, username, email, userType string) int64 {
	t.Helper()
	status, raw := call(t, c, http.MethodPost, srv.URL+"/api/auth/register", registerBody(username, email, userType))
	if status != http.StatusCreated {
		t.Fatalf("register status = %d, body=%s", status, raw)
	}
	var resp struct {
		User struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	mustUnmarshal(t, raw, &resp)
	return resp.User.ID
}

func TestIntegration_AuthFlow(t *testing.T) {
	srv := newTestServer(t, 100)
	c := newClient(t)

	register(t, srv, c, "alice", "alice@example.com", "artist")

	status, raw := call(t, c, http.MethodGet, srv.URL+"/api/auth/user", "")
	if status != http.StatusOK {
		t.Fatalf("user after register: status = %d, body=%s", status, raw)
	}
	if strings.Contains(string(raw), "Abcdef12") {
		t.Error("password leaked in user response")
	}

	if status, _ := call(t, c, http.MethodPost, srv.URL+"/api/auth/logout", ""); status != http.StatusOK {
		t.Fatalf("logout status = %d", status)
	}
	if status, _ := call(t, c, http.MethodGet, srv.URL+"/api/auth/user", ""); status != http.StatusUnauthorized {
		t.Fatalf("user after logout: status = %d, want 401", status)
	}

	status, raw = call(t, c, http.MethodPost, srv.URL+"/api/auth/login",
		`{"email":"ALICE@example.com","password":"Abcdef12"}`)
	if status != http.StatusOK {
		t.Fatalf("login status = %d, body=%s", status, raw)
	}

	status, raw = call(t, c, http.MethodGet, srv.URL+"/api/auth/user", "")
	if status != http.StatusOK {
		t.Fatalf("user after login: status = %d", status)
	}
	var me struct {
		User map[string]any `json:"user"`
	}
	mustUnmarshal(t, raw, &me)
	if me.User["username"] != "alice" || me.User["email"] != "alice@example.com" {
		t.Errorf("unexpected user: %v", me.User)
	}
}

func TestIntegration_RegisterDuplicates(t *testing.T) {
	srv := newTestServer(t, 100)
	register(t, srv, newClient(t), "alice", "alice@example.com", "artist")

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"メール重複", registerBody("alice2", "Alice@Example.com", "label"), "DUPLICATE_EMAIL"},
		{"ユーザー名重複", registerBody("alice", "other@example.com", "label"), "DUPLICATE_USERNAME"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := call(t, newClient(t), http.MethodPost, srv.URL+"/api/auth/register", tt.body)
			if status != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", status)
			}
			var body map[string]any
			mustUnmarshal(t, raw, &body)
			if body["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", body["code"], tt.wantCode)
			}
		})
	}
}

func TestIntegration_LoginFailuresAreIndistinguishable(t *testing.T) {
	srv := newTestServer(t, 100)
	register(t, srv, newClient(t), "alice", "alice@example.com", "artist")

	wrongPassStatus, wrongPassBody := call(t, newClient(t), http.MethodPost, srv.URL+"/api/auth/login",
		`{"email":"alice@example.com","password":"Wrong1234"}`)
	unknownStatus, unknownBody := call(t, newClient(t), http.MethodPost, srv.URL+"/api/auth/login",
		`{"email":"nobody@example.com","password":"Wrong1234"}`)

	if wrongPassStatus != http.StatusUnauthorized || unknownStatus != http.StatusUnauthorized {
		t.Fatalf("statuses = %d/%d, want 401/401", wrongPassStatus, unknownStatus)
	}
	if string(wrongPassBody) != string(unknownBody) {
		t.Errorf("bodies differ:\n%s\n%s", wrongPassBody, unknownBody)
	}
}

func TestIntegration_ChecklistOwnership(t *testing.T) {
	srv := newTestServer(t, 100)
	alice := newClient(t)
	bob := newClient(t)
	aliceID := register(t, srv, alice, "alice", "alice@example.com", "artist")
	register(t, srv, bob, "bob", "bob@example.com", "label")

	status, raw := call(t, alice, http.MethodPost, srv.URL+"/api/user-checklists", fmt.Sprintf(`{"userId":%d}`, aliceID))
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, body=%s", status, raw)
	}
	var created struct {
		ID             int64   `json:"id"`
		Type           string  `json:"type"`
		TotalItems     int     `json:"totalItems"`
		Status         string  `json:"status"`
		CompletedItems []int64 `json:"completedItems"`
	}
	mustUnmarshal(t, raw, &created)
	if created.Type != "artist" || created.TotalItems != 10 || created.Status != "not_started" {
		t.Errorf("unexpected checklist: %+v", created)
	}
	if created.CompletedItems == nil {
		t.Error("completedItems should be an empty array")
	}

	patchURL := fmt.Sprintf("%s/api/user-checklists/%d", srv.URL, created.ID)
	status, raw = call(t, alice, http.MethodPatch, patchURL, `{"completedItems":[2,1,2]}`)
	if status != http.StatusOK {
		t.Fatalf("patch status = %d, body=%s", status, raw)
	}
	var updated struct {
		Status         string  `json:"status"`
		CompletedItems []int64 `json:"completedItems"`
	}
	mustUnmarshal(t, raw, &updated)
	if updated.Status != "in_progress" || len(updated.CompletedItems) != 2 {
		t.Errorf("unexpected update: %+v", updated)
	}

	t.Run("他人の一覧は403", func(t *testing.T) {
		status, _ := call(t, bob, http.MethodGet, fmt.Sprintf("%s/api/user-checklists/%d", srv.URL, aliceID), "")
		if status != http.StatusForbidden {
			t.Errorf("status = %d, want 403", status)
		}
	})

	t.Run("他人のチェックリスト更新は403", func(t *testing.T) {
		status, _ := call(t, bob, http.MethodPatch, patchURL, `{"notes":"hijack"}`)
		if status != http.StatusForbidden {
			t.Errorf("status = %d, want 403", status)
		}
	})

	t.Run("他人名義の作成は403", func(t *testing.T) {
		status, _ := call(t, bob, http.MethodPost, srv.URL+"/api/user-checklists", fmt.Sprintf(`{"userId":%d}`, aliceID))
		if status != http.StatusForbidden {
			t.Errorf("status = %d, want 403", status)
		}
	})

	t.Run("未ログインは401", func(t *testing.T) {
		status, _ := call(t, newClient(t), http.MethodGet, fmt.Sprintf("%s/api/user-checklists/%d", srv.URL, aliceID), "")
		if status != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", status)
		}
	})

	t.Run("本人は一覧を取得できる", func(t *testing.T) {
		status, raw := call(t, alice, http.MethodGet, fmt.Sprintf("%s/api/user-checklists/%d", srv.URL, aliceID), "")
		if status != http.StatusOK {
			t.Fatalf("status = %d", status)
		}
		var lists []map[string]any
		mustUnmarshal(t, raw, &lists)
		if len(lists) != 1 {
			t.Errorf("expected 1 checklist, got %d", len(lists))
		}
	})
}

func TestIntegration_PublicEndpoints(t *testing.T) {
	srv := newTestServer(t, 100)
	c := newClient(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantLen    int
	}{
		{"全チェック項目", "/api/compliance-checklist", http.StatusOK, 20},
		{"レーベル向け項目", "/api/compliance-checklist?type=label", http.StatusOK, 10},
		{"不正な種別", "/api/compliance-checklist?type=fan", http.StatusBadRequest, -1},
		{"PRO一覧", "/api/directory?type=pro", http.StatusOK, 5},
		{"国で絞り込み", "/api/directory?country=us", http.StatusOK, 5},
		{"リソース一覧", "/api/resources", http.StatusOK, 5},
		{"存在しないリソース", "/api/resources/999", http.StatusNotFound, -1},
		{"不正なID", "/api/directory/abc", http.StatusBadRequest, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := call(t, c, http.MethodGet, srv.URL+tt.path, "")
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body=%s", status, tt.wantStatus, raw)
			}
			if tt.wantLen < 0 {
				return
			}
			var list []map[string]any
			mustUnmarshal(t, raw, &list)
			if len(list) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(list), tt.wantLen)
			}
		})
	}
}

func TestIntegration_CreateResourceRequiresLogin(t *testing.T) {
	srv := newTestServer(t, 100)
	body := `{"title":"New Guide","url":"https://example.com/guide","type":"guide"}`

	if status, _ := call(t, newClient(t), http.MethodPost, srv.URL+"/api/resources", body); status != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", status)
	}

	c := newClient(t)
	register(t, srv, c, "alice", "alice@example.com", "artist")
	status, raw := call(t, c, http.MethodPost, srv.URL+"/api/resources", body)
	if status != http.StatusCreated {
		t.Fatalf("status = %d, body=%s", status, raw)
	}

	status, raw = call(t, c, http.MethodPost, srv.URL+"/api/resources", body)
	if status != http.StatusBadRequest {
		t.Fatalf("duplicate status = %d, want 400", status)
	}
	var errBody map[string]any
	mustUnmarshal(t, raw, &errBody)
	if errBody["code"] != "DUPLICATE_RESOURCE" {
		t.Errorf("code = %v", errBody["code"])
	}
}

func TestIntegration_ContactAndSubscribe(t *testing.T) {
	srv := newTestServer(t, 100)
	c := newClient(t)

	status, raw := call(t, c, http.MethodPost, srv.URL+"/api/contact",
		`{"name":"Alice","email":"alice@example.com","subject":"Hi","message":"<b>Hello</b> there"}`)
	if status != http.StatusCreated {
		t.Fatalf("contact status = %d, body=%s", status, raw)
	}

	if status, _ := call(t, c, http.MethodPost, srv.URL+"/api/subscribe", `{"email":"fan@example.com"}`); status != http.StatusCreated {
		t.Fatalf("subscribe status = %d, want 201", status)
	}
	status, raw = call(t, c, http.MethodPost, srv.URL+"/api/subscribe", `{"email":"FAN@example.com","name":"Fan"}`)
	if status != http.StatusConflict {
		t.Fatalf("duplicate subscribe status = %d, want 409", status)
	}
	var body map[string]any
	mustUnmarshal(t, raw, &body)
	if body["code"] != "DUPLICATE_SUBSCRIBER" {
		t.Errorf("code = %v", body["code"])
	}
}

func TestIntegration_HealthAndNotFound(t *testing.T) {
	srv := newTestServer(t, 100)
	c := newClient(t)

	status, raw := call(t, c, http.MethodGet, srv.URL+"/health", "")
	if status != http.StatusOK || !strings.Contains(string(raw), `"ok"`) {
		t.Errorf("health = %d %s", status, raw)
	}

	status, raw = call(t, c, http.MethodGet, srv.URL+"/api/nope", "")
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	var body map[string]any
	mustUnmarshal(t, raw, &body)
	if body["code"] != "NOT_FOUND" || body["success"] != false {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestIntegration_AuthRateLimit(t *testing.T) {
	srv := newTestServer(t, 2)
	c := newClient(t)
	body := `{"email":"nobody@example.com","password":"Wrong1234"}`

	for i := 0; i < 2; i++ {
		if status, _ := call(t, c, http.MethodPost, srv.URL+"/api/auth/login", body); status != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i+1, status)
		}
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/auth/login", strings.NewReader(body))
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	// 公開ルートは制限対象外
	if status, _ := call(t, c, http.MethodGet, srv.URL+"/api/resources", ""); status != http.StatusOK {
		t.Errorf("public route status = %d, want 200", status)
	}
}

func TestIntegration_CrossOrigin(t *testing.T) {
	srv := newTestServer(t, 100)
	c := newClient(t)

	t.Run("許可オリジンのプリフライト", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/auth/login", nil)
		req.Header.Set("Origin", testAllowedOrigin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		resp, err := c.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("status = %d, want 204", resp.StatusCode)
		}
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != testAllowedOrigin {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
		if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q", got)
		}
	})

	t.Run("他オリジンからの状態変更は403", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/subscribe", strings.NewReader(`{"email":"x@example.com"}`))
		req.Header.Set("Origin", "https://evil.example")
		resp, err := c.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("unexpected Access-Control-Allow-Origin = %q", got)
		}
	})
}

func TestIntegration_CaseVariantKeysIgnored(t *testing.T) {
	srv := newTestServer(t, 100)
	c := newClient(t)

	body := `{"username":"carol","name":"Carol","email":"carol@example.com","country":"US",` +
		`"password":"Abcdef12","PASSWORD":"x","userType":"artist","USERTYPE":"admin",` +
		`"termsAccepted":true,"TERMSACCEPTED":false}`
	status, raw := call(t, c, http.MethodPost, srv.URL+"/api/auth/register", body)
	if status != http.StatusCreated {
		t.Fatalf("register status = %d, body=%s", status, raw)
	}
	var resp struct {
		User struct {
			UserType string `json:"userType"`
		} `json:"user"`
	}
	mustUnmarshal(t, raw, &resp)
	if resp.User.UserType != "artist" {
		t.Errorf("userType = %q, want artist", resp.User.UserType)
	}

	other := newClient(t)
	status, _ = call(t, other, http.MethodPost, srv.URL+"/api/auth/login", `{"email":"carol@example.com","password":"x"}`)
	if status != http.StatusUnauthorized {
		t.Errorf("login with overriding password status = %d, want 401", status)
	}
	status, _ = call(t, other, http.MethodPost, srv.URL+"/api/auth/login", `{"email":"carol@example.com","password":"Abcdef12"}`)
	if status != http.StatusOK {
		t.Errorf("login with validated password status = %d, want 200", status)
	}
}

func TestIntegration_DirectoryRejectsNonWebWebsite(t *testing.T) {
	srv := newTestServer(t, 100)
	c := newClient(t)

	for _, website := range []string{"javascript:alert(document.cookie)", "data:text/html,hi"} {
		body := fmt.Sprintf(`{"name":"Evil","type":"pro","website":%q}`, website)
		status, raw := call(t, c, http.MethodPost, srv.URL+"/api/directory", body)
		if status != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400 (body=%s)", website, status, raw)
		}
	}

	status, raw := call(t, c, http.MethodGet, srv.URL+"/api/directory?search=Evil", "")
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if strings.Contains(string(raw), "javascript:") {
		t.Errorf("rejected entry must not be listed: %s", raw)
	}

	status, raw = call(t, c, http.MethodPost, srv.URL+"/api/directory", `{"name":"Good","type":"pro","website":"https://good.example"}`)
	if status != http.StatusCreated {
		t.Errorf("https website status = %d, body=%s", status, raw)
	}
}
