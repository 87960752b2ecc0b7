package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/cm360-audit/config-helper/internal/audit"
	"github.com/cm360-audit/config-helper/internal/config"
	"github.com/cm360-audit/config-helper/internal/notify"
	"github.com/cm360-audit/config-helper/internal/records"
	"github.com/cm360-audit/config-helper/internal/services"
	"github.com/cm360-audit/config-helper/internal/sheets"
	"github.com/cm360-audit/config-helper/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// fixture
// ---------------------------------------------------------------------------

type stubChannel struct {
	name string
	err  error
	sent []notify.Message
}

func (s *stubChannel) Name() string { return s.name }
func (s *stubChannel) Send(_ context.Context, msg notify.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			// Rate limiting off so tests can hammer the handlers freely.
			RateLimiting: config.RateLimitingConfig{Enabled: false},
			Headers:      config.HeadersConfig{Enabled: true},
		},
		Identity:      config.IdentityConfig{TrustProxyHeader: true},
		Notifications: config.NotificationsConfig{AdminEmail: "admin@example.com"},
	}
}

func newTestRouter(t *testing.T, wb *sheets.MemoryWorkbook) (*gin.Engine, *stubChannel) {
	t.Helper()

	channel := &stubChannel{name: "smtp"}
	dispatcher := notify.NewDispatcher(channel)
	journal := audit.NewJournal()

	recipients := store.NewRecipientRepository(wb)
	thresholds := store.NewThresholdRepository(wb)

	svcs := Services{
		Configs:  services.NewConfigService(recipients, thresholds, dispatcher, journal, "admin@example.com"),
		Requests: services.NewRequestService(store.NewRequestRepository(wb), dispatcher, journal, "admin@example.com", ""),
		Summary:  services.NewSummaryService(recipients, thresholds, store.NewExclusionRepository(wb)),
	}

	router, bg := NewRouter(testConfig(), svcs)
	t.Cleanup(bg.Shutdown)
	return router, channel
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response %q: %v", w.Body.String(), err)
	}
	return body
}

// ---------------------------------------------------------------------------
// GET /health
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, sheets.NewMemoryWorkbook())

	w := doJSON(t, router, http.MethodGet, "/health", nil, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers not applied")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("request id header not set")
	}
}

// ---------------------------------------------------------------------------
// rate limiting
// ---------------------------------------------------------------------------

func TestRateLimiting_ConfiguredBurstApplies(t *testing.T) {
	wb := sheets.NewMemoryWorkbook()
	wb.Seed(records.RecipientsTab, [][]string{records.RecipientsHeader})

	channel := &stubChannel{name: "smtp"}
	dispatcher := notify.NewDispatcher(channel)
	journal := audit.NewJournal()
	recipients := store.NewRecipientRepository(wb)
	thresholds := store.NewThresholdRepository(wb)
	svcs := Services{
		Configs:  services.NewConfigService(recipients, thresholds, dispatcher, journal, "admin@example.com"),
		Requests: services.NewRequestService(store.NewRequestRepository(wb), dispatcher, journal, "admin@example.com", ""),
		Summary:  services.NewSummaryService(recipients, thresholds, store.NewExclusionRepository(wb)),
	}

	cfg := testConfig()
	cfg.Security.RateLimiting = config.RateLimitingConfig{
		Enabled:           true,
		RequestsPerMinute: 60,
		Burst:             2,
	}
	router, bg := NewRouter(cfg, svcs)
	t.Cleanup(bg.Shutdown)

	// The configured burst of 2 bounds the bucket: two reads from one client
	// pass, the third is rejected.
	for i := 0; i < 2; i++ {
		w := doJSON(t, router, http.MethodGet, "/api/v1/configs", nil, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
	}
	w := doJSON(t, router, http.MethodGet, "/api/v1/configs", nil, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 after burst exhausted", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 response missing Retry-After header")
	}
}

// ---------------------------------------------------------------------------
// GET /api/v1/configs
// ---------------------------------------------------------------------------

func TestListConfigs_MissingSheetIsGuidanceNotError(t *testing.T) {
	router, _ := newTestRouter(t, sheets.NewMemoryWorkbook())

	w := doJSON(t, router, http.MethodGet, "/api/v1/configs", nil, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "re-run the configuration sync") {
		t.Errorf("message = %q, want sync guidance", msg)
	}
}

func TestListConfigs_ReturnsActiveConfigs(t *testing.T) {
	wb := sheets.NewMemoryWorkbook()
	wb.Seed(records.RecipientsTab, [][]string{
		records.RecipientsHeader,
		{"PST01", "a@x.com, b@x.com", "c@x.com", "TRUE", "FALSE", "2026-08-01"},
		{"OLD01", "z@x.com", "", "FALSE", "FALSE", "2025-01-01"},
	})
	router, _ := newTestRouter(t, wb)

	w := doJSON(t, router, http.MethodGet, "/api/v1/configs", nil, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Configs []services.ConfigOption `json:"configs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Configs) != 1 {
		t.Fatalf("len(configs) = %d, want 1", len(body.Configs))
	}
	got := body.Configs[0]
	if got.Name != "PST01" || got.RecipientCount != 2 || got.CCCount != 1 {
		t.Errorf("config = %+v, want PST01 with 2 recipients and 1 cc", got)
	}
}

// ---------------------------------------------------------------------------
// POST /api/v1/configs
// ---------------------------------------------------------------------------

func validConfigBody() map[string]any {
	return map[string]any{
		"config_id":  "pst01",
		"recipients": "a@x.com, b@x.com",
		"cc":         "",
		"thresholds": map[string]any{
			"clicks_greater_than_impressions": map[string]int{"min_impressions": 100, "min_clicks": 5},
		},
	}
}

func TestCreateConfig_Success(t *testing.T) {
	wb := sheets.NewMemoryWorkbook()
	router, channel := newTestRouter(t, wb)

	w := doJSON(t, router, http.MethodPost, "/api/v1/configs", validConfigBody(),
		map[string]string{"X-User-Email": "planner@example.com"})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["config_id"] != "PST01" {
		t.Errorf("config_id = %v, want PST01", body["config_id"])
	}
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "successfully created") {
		t.Errorf("message = %q, want success confirmation", msg)
	}

	// Rows landed in the workbook.
	tab, err := wb.Tab(context.Background(), records.RecipientsTab)
	if err != nil {
		t.Fatalf("recipients tab: %v", err)
	}
	values, _ := tab.Values(context.Background())
	if len(values) != 2 {
		t.Fatalf("recipients rows = %d, want header + 1", len(values))
	}
	if values[1][0] != "PST01" {
		t.Errorf("recipients row name = %q, want PST01", values[1][0])
	}

	// Admin was notified.
	if len(channel.sent) != 1 {
		t.Fatalf("notifications sent = %d, want 1", len(channel.sent))
	}
	if channel.sent[0].Subject != "New CM360 Config Created: PST01" {
		t.Errorf("subject = %q", channel.sent[0].Subject)
	}
}

func TestCreateConfig_ValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(body map[string]any)
	}{
		{"invalid config id", func(b map[string]any) { b["config_id"] = "PST-01" }},
		{"empty recipients", func(b map[string]any) { b["recipients"] = "" }},
		{"malformed recipient", func(b map[string]any) { b["recipients"] = "not-an-email" }},
		{"unknown flag type", func(b map[string]any) {
			b["thresholds"] = map[string]any{"bogus_flag": map[string]int{"min_impressions": 1}}
		}},
		{"negative threshold", func(b map[string]any) {
			b["thresholds"] = map[string]any{"default_ad_serving": map[string]int{"min_impressions": -1}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := sheets.NewMemoryWorkbook()
			router, _ := newTestRouter(t, wb)

			body := validConfigBody()
			tt.mutate(body)
			w := doJSON(t, router, http.MethodPost, "/api/v1/configs", body, nil)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body %s", w.Code, w.Body.String())
			}
			// Nothing may be written on a validation failure.
			if _, err := wb.Tab(context.Background(), records.RecipientsTab); !errors.Is(err, sheets.ErrTabNotFound) {
				t.Error("validation failure must not create the recipients tab")
			}
		})
	}
}

func TestCreateConfig_MalformedBody(t *testing.T) {
	router, _ := newTestRouter(t, sheets.NewMemoryWorkbook())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/configs", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /api/v1/requests
// ---------------------------------------------------------------------------

func TestCreateRequest_Success(t *testing.T) {
	wb := sheets.NewMemoryWorkbook()
	router, channel := newTestRouter(t, wb)

	w := doJSON(t, router, http.MethodPost, "/api/v1/requests",
		map[string]string{"config_name": "  PST01  "},
		map[string]string{"X-User-Email": "planner@example.com"})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["config_name"] != "PST01" {
		t.Errorf("config_name = %v, want trimmed PST01", body["config_name"])
	}
	if body["status"] != string(records.StatusPending) {
		t.Errorf("status = %v, want %s", body["status"], records.StatusPending)
	}
	if body["request_id"] == "" {
		t.Error("request_id missing")
	}

	tab, err := wb.Tab(context.Background(), records.RequestsTab)
	if err != nil {
		t.Fatalf("requests tab: %v", err)
	}
	values, _ := tab.Values(context.Background())
	if len(values) < 2 {
		t.Fatalf("requests rows = %d, want header + 1", len(values))
	}
	if values[1][1] != "planner@example.com" {
		t.Errorf("requester cell = %q, want identity email", values[1][1])
	}

	if len(channel.sent) != 1 || channel.sent[0].Subject != "CM360 Audit Request: PST01" {
		t.Errorf("notification = %+v, want audit request subject", channel.sent)
	}
}

func TestCreateRequest_BlankNameRejected(t *testing.T) {
	router, _ := newTestRouter(t, sheets.NewMemoryWorkbook())

	w := doJSON(t, router, http.MethodPost, "/api/v1/requests",
		map[string]string{"config_name": "   "}, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400; body %s", w.Code, w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// GET /api/v1/summary
// ---------------------------------------------------------------------------

func TestSummary(t *testing.T) {
	wb := sheets.NewMemoryWorkbook()
	wb.Seed(records.RecipientsTab, [][]string{
		records.RecipientsHeader,
		{"PST01", "a@x.com", "", "TRUE", "FALSE", "2026-08-01"},
	})
	router, _ := newTestRouter(t, wb)

	w := doJSON(t, router, http.MethodGet, "/api/v1/summary", nil, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	text, _ := body["text"].(string)
	if !strings.Contains(text, "Recipients: 1 active configs") {
		t.Errorf("text = %q, want recipients line", text)
	}
	if !strings.Contains(text, "sheet missing") {
		t.Errorf("text = %q, want missing-sheet lines for absent tabs", text)
	}
}

// ---------------------------------------------------------------------------
// GET /configs/new
// ---------------------------------------------------------------------------

func TestNewConfigForm(t *testing.T) {
	router, _ := newTestRouter(t, sheets.NewMemoryWorkbook())

	w := doJSON(t, router, http.MethodGet, "/configs/new?config_id=%20pst01%20", nil, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	page := w.Body.String()
	if !strings.Contains(page, "Create New Config: PST01") {
		t.Error("page missing normalized config id")
	}
	for _, ft := range records.FlagTypes {
		if !strings.Contains(page, ft.Label()) {
			t.Errorf("page missing flag type row %q", ft.Label())
		}
	}
	csp := w.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "nonce-") {
		t.Errorf("CSP = %q, want per-request nonce", csp)
	}
}

func TestNewConfigForm_InvalidID(t *testing.T) {
	router, _ := newTestRouter(t, sheets.NewMemoryWorkbook())

	for _, id := range []string{"", "PST-01", "has space"} {
		w := doJSON(t, router, http.MethodGet, "/configs/new?config_id="+strings.ReplaceAll(id, " ", "%20"), nil, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("config_id %q: status = %d, want 400", id, w.Code)
		}
	}
}
