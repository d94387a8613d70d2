package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/userimport/internal/config"
	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/metrics"
	"github.com/JonMunkholm/userimport/internal/store/memory"
)

const csvHeader = "Họ và Tên,Email,Mật khẩu,Số Điện Thoại,Vai Trò"

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 10 * time.Second},
		Store:  config.StoreConfig{Driver: "memory"},
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Timeout:       10 * time.Second,
		},
		Rate:    config.RateLimitConfig{Enabled: false},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
		Auth:    config.AuthConfig{BcryptCost: 4},
	}
}

type testEnv struct {
	server *Server
	store  *memory.Store
}

// slowHasher makes each row take d, so tests can run past the upload deadline.
type slowHasher struct{ d time.Duration }

func (h slowHasher) Hash(p string) (string, error) {
	time.Sleep(h.d)
	return "hashed:" + p, nil
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	return newTestEnvWithHasher(t, mutate, plainHasher{})
}

func newTestEnvWithHasher(t *testing.T, mutate func(*config.Config), hasher core.PasswordHasher) *testEnv {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	store := memory.New()
	srv := NewServer(cfg, Deps{
		Importer: core.NewImporter(store, hasher, nil),
		Exporter: core.NewExporter(store, time.UTC),
		Users:    core.NewUserService(store, hasher, nil),
		Metrics:  metrics.New(),
	})
	srv.now = func() time.Time { return time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC) }
	return &testEnv{server: srv, store: store}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, path, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestImportCSV(t *testing.T) {
	env := newTestEnv(t, nil)
	content := csvHeader + "\nNguyen Van A,a@x.com,pass123,0123456789,manager\nB,not-an-email,pw,0900000000,ceo\n"

	rec := env.do(uploadRequest(t, "/api/import-users/csv", "users.csv", content))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[struct {
		Total   int                `json:"total"`
		Success int                `json:"success"`
		Updated int                `json:"updated"`
		Failed  int                `json:"failed"`
		Errors  []core.ImportError `json:"errors"`
		Message string             `json:"message"`
	}](t, rec)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Success)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 3, resp.Errors[0].Row)
	assert.Equal(t, "Import completed: 1 created, 0 updated, 1 failed", resp.Message)

	u, err := env.store.FindByEmail(t.Context(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, core.RoleManager, u.Role)
}


func interruptedImport(t *testing.T) (*testEnv, string) {
	t.Helper()
	env := newTestEnvWithHasher(t, func(c *config.Config) {
		c.Upload.Timeout = 120 * time.Millisecond
	}, slowHasher{d: 80 * time.Millisecond})

	var b strings.Builder
	b.WriteString(csvHeader + "\n")
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "User %d,u%d@x.com,pw,09%02d,employee\n", i, i, i)
	}
	return env, b.String()
}

func TestImportCSV_DeadlineReportsPartialOutcome(t *testing.T) {
	env, content := interruptedImport(t)

	rec := env.do(uploadRequest(t, "/api/import-users/csv", "users.csv", content))
	require.Equal(t, http.StatusGatewayTimeout, rec.Code, rec.Body.String())

	resp := decodeBody[struct {
		Total   int    `json:"total"`
		Success int    `json:"success"`
		Failed  int    `json:"failed"`
		Pending int    `json:"pending"`
		Message string `json:"message"`
		Code    string `json:"code"`
		Error   string `json:"error"`
	}](t, rec)

	assert.Equal(t, "UPL005", resp.Code)
	assert.Contains(t, resp.Error, "context deadline exceeded")
	assert.Contains(t, resp.Message, "Import interrupted")
	assert.GreaterOrEqual(t, resp.Success, 1)
	assert.Positive(t, resp.Pending)
	assert.Equal(t, resp.Total, resp.Success+resp.Failed)
	assert.Equal(t, 6, resp.Total+resp.Pending)

	// Every row reported as created is in the store.
	users, err := env.store.Find(context.Background(), core.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, resp.Success)
}

func TestImportCSV_OutlivesServerWriteTimeout(t *testing.T) {
	env := newTestEnvWithHasher(t, func(c *config.Config) {
		c.Upload.Timeout = 5 * time.Second
	}, slowHasher{d: 60 * time.Millisecond})

	ts := httptest.NewUnstartedServer(env.server.Router())
	ts.Config.WriteTimeout = 100 * time.Millisecond
	ts.Start()
	defer ts.Close()

	var b strings.Builder
	b.WriteString(csvHeader + "\n")
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, "User %d,u%d@x.com,pw,09%02d,employee\n", i, i, i)
	}
	req := uploadRequest(t, ts.URL+"/api/import-users/csv", "users.csv", b.String())
	req.RequestURI = ""

	// About 300ms of hashing, three times the server's write timeout.
	res, err := ts.Client().Do(req)
	require.NoError(t, err, "the response must reach the client after a long import")
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var resp struct {
		Success int `json:"success"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))
	assert.Equal(t, 5, resp.Success)
}

func TestImportCSV_DeadlineHTMX(t *testing.T) {
	env, content := interruptedImport(t)

	req := uploadRequest(t, "/api/import-users/csv", "users.csv", content)
	req.Header.Set("HX-Request", "true")
	rec := env.do(req)

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not processed:")
	assert.Contains(t, rec.Body.String(), "UPL005")
}

func TestImportCSV_HTMXSummary(t *testing.T) {
	env := newTestEnv(t, nil)
	req := uploadRequest(t, "/api/import-users/csv", "users.csv", csvHeader+"\nA,<b>,pw,1,manager\n")
	req.Header.Set("HX-Request", "true")

	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Total: 1, created: 0, updated: 0, failed: 1")
	assert.Contains(t, rec.Body.String(), "<td>&lt;b&gt;</td>")
	assert.NotContains(t, rec.Body.String(), "<b>")
}

func TestImportCSV_MissingColumns(t *testing.T) {
	env := newTestEnv(t, nil)
	content := "Họ và Tên,Mật khẩu,Số Điện Thoại,Vai Trò\nA,pw,1,manager\n"

	rec := env.do(uploadRequest(t, "/api/import-users/csv", "users.csv", content))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "IMP002", resp.Code)
	assert.Contains(t, resp.Detail, "email")

	n, _ := env.store.Count(t.Context())
	assert.Zero(t, n)
}

func TestImportCSV_HeaderOnly(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(uploadRequest(t, "/api/import-users/csv", "users.csv", csvHeader+"\n"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "IMP001", decodeBody[ErrorResponse](t, rec).Code)
}

func TestImportCSV_FileErrors(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantCode   string
	}{
		{
			name: "not a csv",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/import-users/csv", "users.xlsx", "data")
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE002",
		},
		{
			name: "empty file",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/import-users/csv", "users.csv", "")
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE005",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/import-users/csv", strings.NewReader(csvHeader))
				req.Header.Set("Content-Type", "text/csv")
				return req
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE004",
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/import-users/csv", "users.csv", strings.Repeat("x", 2<<20))
			},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "FILE001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rec := env.do(tt.req(t))
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decodeBody[ErrorResponse](t, rec).Code)
		})
	}
}

func TestImportCSV_ErrorAsHTMX(t *testing.T) {
	env := newTestEnv(t, nil)
	req := uploadRequest(t, "/api/import-users/csv", "users.txt", "x")
	req.Header.Set("HX-Request", "true")

	rec := env.do(req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `role="alert"`)
	assert.Contains(t, rec.Body.String(), "Code: FILE002")
}

func TestValidateCSV(t *testing.T) {
	env := newTestEnv(t, nil)
	content := csvHeader + "\nA,a@x.com,pw,1,manager\nB,b@x.com,pw,,manager\n"

	rec := env.do(uploadRequest(t, "/api/import-users/validate", "users.csv", content))
	require.Equal(t, http.StatusOK, rec.Code)

	report := decodeBody[core.ValidationReport](t, rec)
	assert.False(t, report.Valid)
	assert.Equal(t, 2, report.TotalRows)
	assert.Equal(t, 1, report.ValidRows)

	n, _ := env.store.Count(t.Context())
	assert.Zero(t, n, "validate must not write")
}

func TestImportTemplate(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/import-users/template", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="user_import_template_20240601_083000.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), core.BOM+"Họ và Tên,"))
}

func TestImportInstructions(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/import-users/instructions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	in := decodeBody[core.ImportInstructions](t, rec)
	assert.Len(t, in.RequiredColumns, 5)
	assert.Contains(t, in.ImportRules[len(in.ImportRules)-1], "1MB")
}

func seed(t *testing.T, env *testEnv, rows string) {
	t.Helper()
	out, err := env.server.importer.Import(t.Context(), csvHeader+"\n"+rows)
	require.NoError(t, err)
	require.Zero(t, out.Failed, "%v", out.Errors)
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t, nil)
	seed(t, env, "Zed,z@x.com,pw,1,manager\nAnh,a@x.com,pw,2,manager\nBinh,b@x.com,pw,3,employee\n")

	tests := []struct {
		name     string
		query    string
		wantFile string
		wantRows int
	}{
		{"all", "", "users_all_20240601_083000.csv", 3},
		{"role", "?role=manager", "users_Quan_Ly_20240601_083000.csv", 2},
		{"active only", "?activeOnly=true", "users_active_20240601_083000.csv", 3},
		{"unknown role ignored", "?role=ceo&activeOnly=true", "users_active_20240601_083000.csv", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(httptest.NewRequest(http.MethodGet, "/api/export-users/csv"+tt.query, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Disposition"), tt.wantFile)

			body := strings.TrimPrefix(rec.Body.String(), core.BOM)
			lines := strings.Split(strings.TrimSuffix(body, "\n"), "\n")
			assert.Len(t, lines, tt.wantRows+1)
		})
	}
}

func TestExportPreview(t *testing.T) {
	env := newTestEnv(t, nil)
	var rows strings.Builder
	for i := 0; i < 12; i++ {
		rows.WriteString("User " + string(rune('A'+i)) + ",u" + string(rune('a'+i)) + "@x.com,pw,1,employee\n")
	}
	seed(t, env, rows.String())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/export-users/preview?role=employee", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	p := decodeBody[core.ExportPreview](t, rec)
	assert.Equal(t, 12, p.TotalRows)
	assert.Equal(t, 10, p.PreviewRows)
	assert.Len(t, p.Header, 12)
	require.NotNil(t, p.Filters.Role)
	assert.Equal(t, core.RoleEmployee, *p.Filters.Role)
}

func TestExportPreview_EchoesUnknownRole(t *testing.T) {
	env := newTestEnv(t, nil)
	seed(t, env, "A,a@x.com,pw,1,manager\nB,b@x.com,pw,2,director\n")

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/export-users/preview?role=ceo&activeOnly=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	p := decodeBody[core.ExportPreview](t, rec)
	require.NotNil(t, p.Filters.Role)
	assert.Equal(t, core.Role("ceo"), *p.Filters.Role)
	assert.True(t, p.Filters.ActiveOnly)
	assert.Equal(t, 2, p.TotalRows, "an unknown role does not filter")
}

func TestExportStats(t *testing.T) {
	env := newTestEnv(t, nil)
	seed(t, env, "A,a@x.com,pw,1,manager\nB,b@x.com,pw,2,director\n")

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/export-users/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decodeBody[core.UserStats](t, rec)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.ByRole[core.RoleManager])
	assert.EqualValues(t, 0, stats.ByRole[core.RoleEmployee])
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestUserCRUD(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(jsonRequest(http.MethodPost, "/api/users",
		`{"fullName":"An","email":"an@x.com","password":"secret1","phone":"0901","role":"employee"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[core.User](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.NotContains(t, rec.Body.String(), "hashed:", "password hash must not be serialized")

	rec = env.do(jsonRequest(http.MethodPost, "/api/users",
		`{"fullName":"An","email":"an@x.com","password":"secret1","phone":"0901","role":"employee"}`))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "USR002", decodeBody[ErrorResponse](t, rec).Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/users/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/users/email/an@x.com", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decodeBody[core.User](t, rec).ID)

	rec = env.do(jsonRequest(http.MethodPatch, "/api/users/"+created.ID, `{"role":"director","isActive":false}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[core.User](t, rec)
	assert.Equal(t, core.RoleDirector, updated.Role)
	assert.False(t, updated.IsActive)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/users?role=director", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]core.User](t, rec), 1)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/users?active=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]core.User](t, rec))

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/users/"+created.ID, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/users/"+created.ID, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "USR001", decodeBody[ErrorResponse](t, rec).Code)
}

func TestUserCreate_Invalid(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"validation", `{"fullName":"","email":"bad","password":"1","phone":"1","role":"ceo"}`},
		{"unknown field", `{"fullName":"A","nickname":"x"}`},
		{"malformed", `{"fullName":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(jsonRequest(http.MethodPost, "/api/users", tt.body))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "USR003", decodeBody[ErrorResponse](t, rec).Code)
		})
	}
}

func TestListUsers_UnknownRole(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/users?role=ceo", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[ErrorResponse](t, rec).Detail, `unknown role "ceo"`)
}

func TestHealthAndIndex(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	health := decodeBody[HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Uploads.MaxConcurrent)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hx-post="/api/import-users/csv"`)
	assert.Contains(t, rec.Body.String(), "role=manager")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	seed(t, env, "A,a@x.com,pw,1,manager\n")
	env.do(httptest.NewRequest(http.MethodGet, "/api/export-users/csv", nil))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "userimport_export_rows_total 1")
	assert.Contains(t, rec.Body.String(), `userimport_http_requests_total{code="200",route="/api/export-users/csv"} 1`)
}

func TestAPIKeyAuth(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"k-123"}
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/export-users/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTH001", decodeBody[ErrorResponse](t, rec).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/export-users/stats", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = env.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/export-users/stats", nil)
	req.Header.Set("X-API-Key", "k-123")
	rec = env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "health is not behind the API key")
}

func TestUploadRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, UploadLimit: 1}
	})
	content := csvHeader + "\nA,a@x.com,pw,1,manager\n"

	rec := env.do(uploadRequest(t, "/api/import-users/csv", "users.csv", content))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(uploadRequest(t, "/api/import-users/csv", "users.csv", content))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeBody[ErrorResponse](t, rec).Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/import-users/template", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "downloads are not upload-limited")
}

func TestImportCSV_NoUploadSlot(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Upload.MaxConcurrent = 1
		c.Upload.MaxWaitTime = 10 * time.Millisecond
	})
	require.True(t, env.server.limiter.TryAcquire())
	defer env.server.limiter.Release()

	rec := env.do(uploadRequest(t, "/api/import-users/csv", "users.csv", csvHeader+"\nA,a@x.com,pw,1,manager\n"))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "UPL002", decodeBody[ErrorResponse](t, rec).Code)
}
