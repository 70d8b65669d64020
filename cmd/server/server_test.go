package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/config"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/db"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/estimate"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/migrations"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricetable"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricing"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/store"
)

const (
	samplePath = "../../data/prisliste.json"
	testToken  = "hemmelig"
)

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T, load tableLoader) *server {
	t.Helper()

	table, err := pricetable.LoadFile(samplePath)
	if err != nil {
		t.Fatalf("load sample price table: %v", err)
	}
	srv := newServer(table, nil, load, testToken)
	srv.now = func() time.Time { return time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC) }
	return srv
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()

	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v (body=%q)", err, rec.Body.String())
	}
	return env
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, nil).routes()

	rec := do(t, h, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected healthz response: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected generated X-Request-ID")
	}

	rec = do(t, h, http.MethodGet, "/healthz", "", map[string]string{"X-Request-ID": "abc-123"})
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}

func TestEstimateRenovation(t *testing.T) {
	h := newTestServer(t, nil).routes()

	rec := do(t, h, http.MethodPost, "/api/estimate/renovering",
		`{"items":[{"key":"maling","areaM2":80,"tier":"lav"},{"key":"sauna","areaM2":5}],"postcode":0}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res estimate.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Total != 72200 || res.Subtotal != 72200 {
		t.Fatalf("expected 72200, got subtotal=%d total=%d", res.Subtotal, res.Total)
	}
	if len(res.Notices) != 1 || res.Notices[0].Key != "sauna" {
		t.Fatalf("expected one notice for sauna, got %+v", res.Notices)
	}
}

func TestEstimateAdditionWithPostcode(t *testing.T) {
	h := newTestServer(t, nil).routes()

	rec := do(t, h, http.MethodPost, "/api/estimate/tilbygning",
		`{"areaM2":30,"roofType":"Valmtag","roofSlopeDeg":30,"floorHeating":true,"outlets":4,"windows":2,"postcode":8000}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res estimate.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Subtotal != 929716 || res.Total != 985499 || res.PostnrNote != "Aarhus" {
		t.Fatalf("unexpected result: subtotal=%d total=%d note=%q", res.Subtotal, res.Total, res.PostnrNote)
	}
}

func TestEstimateRejectsBadInput(t *testing.T) {
	h := newTestServer(t, nil).routes()

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown type", "/api/estimate/garage", `{}`, http.StatusNotFound, "unknown_project_type"},
		{"broken json", "/api/estimate/renovering", `{"items":`, http.StatusBadRequest, "invalid_json"},
		{"step out of range", "/api/estimate/tilbygning", `{"areaM2":20,"step":7}`, http.StatusBadRequest, "invalid_request"},
		{"negative outlets", "/api/estimate/tilbygning", `{"areaM2":20,"outlets":-1}`, http.StatusBadRequest, "invalid_request"},
		{"postcode out of range", "/api/estimate/tilbygning", `{"areaM2":20,"postcode":12345}`, http.StatusBadRequest, "invalid_request"},
		{"item without key", "/api/estimate/renovering", `{"items":[{"areaM2":10}]}`, http.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body, nil)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if env := decodeError(t, rec); env.Error.Code != tt.code {
				t.Fatalf("expected code %q, got %+v", tt.code, env.Error)
			}
		})
	}
}

func TestEstimateValidationMessageNamesField(t *testing.T) {
	h := newTestServer(t, nil).routes()

	rec := do(t, h, http.MethodPost, "/api/estimate/renovering", `{"items":[{"areaM2":10}]}`, nil)
	env := decodeError(t, rec)
	if !strings.Contains(env.Error.Message, "Items[0].Key failed required") {
		t.Fatalf("unexpected validation message %q", env.Error.Message)
	}
}

func TestEstimateXLSX(t *testing.T) {
	h := newTestServer(t, nil).routes()

	rec := do(t, h, http.MethodPost, "/api/estimate/renovering/xlsx", `{"items":[{"key":"maling","areaM2":80,"tier":"lav"}]}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != xlsxMIME {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "estimat-renovering.xlsx") {
		t.Fatalf("unexpected content disposition %q", got)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
	defer f.Close()

	category, err := f.GetCellValue("Estimat", "A5")
	if err != nil || category != "maling" {
		t.Fatalf("expected maling in A5, got %q (%v)", category, err)
	}
}

func TestPostnr(t *testing.T) {
	h := newTestServer(t, nil).routes()

	rec := do(t, h, http.MethodGet, "/api/postnr/8000", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got postnrResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode postnr response: %v", err)
	}
	if !got.Matched || got.Factor != 1.06 || got.Note != "Aarhus" {
		t.Fatalf("unexpected postnr response %+v", got)
	}

	rec = do(t, h, http.MethodGet, "/api/postnr/4000", "", nil)
	got = postnrResponse{}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode postnr response: %v", err)
	}
	if got.Matched || got.Factor != 1 {
		t.Fatalf("expected neutral factor for unmatched postcode, got %+v", got)
	}

	for _, bad := range []string{"abc", "-1", "10000"} {
		rec := do(t, h, http.MethodGet, "/api/postnr/"+bad, "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("postcode %q: expected 400, got %d", bad, rec.Code)
		}
	}
}

func TestPriceTableAndLint(t *testing.T) {
	h := newTestServer(t, nil).routes()

	rec := do(t, h, http.MethodGet, "/api/pricetable", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	table, err := pricetable.Decode(rec.Body)
	if err != nil {
		t.Fatalf("served table does not decode: %v", err)
	}
	if table.Base["maling"].Startpris != 5000 {
		t.Fatalf("unexpected maling row %+v", table.Base["maling"])
	}

	rec = do(t, h, http.MethodGet, "/api/pricetable/lint", "", nil)
	var lint struct {
		Issues []pricetable.Issue `json:"issues"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&lint); err != nil {
		t.Fatalf("decode lint response: %v", err)
	}
	if len(lint.Issues) != 1 || lint.Issues[0].Path != "postnrFaktorer[4]" {
		t.Fatalf("unexpected lint issues %+v", lint.Issues)
	}
}

func TestReloadRequiresToken(t *testing.T) {
	load := func(context.Context) (*pricing.Table, string, error) {
		return &pricing.Table{}, "test", nil
	}

	h := newTestServer(t, load).routes()
	rec := do(t, h, http.MethodPost, "/api/pricetable/reload", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/api/pricetable/reload", "", map[string]string{adminTokenHeader: "forkert"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rec.Code)
	}

	disabled := newServer(&pricing.Table{}, nil, load, "").routes()
	rec = do(t, disabled, http.MethodPost, "/api/pricetable/reload", "", map[string]string{adminTokenHeader: testToken})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 when no admin token is configured, got %d", rec.Code)
	}
}

func TestReloadSwapsTableAndCaches(t *testing.T) {
	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "reload.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	next := &pricing.Table{Base: map[string]pricing.PriceRow{"maling": {Startpris: 9000}}}
	srv := newTestServer(t, func(context.Context) (*pricing.Table, string, error) {
		return next, "https://example.dk/prisliste.json", nil
	})
	srv.db = database
	h := srv.routes()

	rec := do(t, h, http.MethodPost, "/api/pricetable/reload", "", map[string]string{"Authorization": "Bearer " + testToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp reloadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode reload response: %v", err)
	}
	if resp.Categories != 1 || resp.SnapshotID == 0 {
		t.Fatalf("unexpected reload response %+v", resp)
	}
	if srv.table.Load() != next {
		t.Fatalf("expected reloaded table to be active")
	}

	_, snap, err := store.Latest(context.Background(), database)
	if err != nil {
		t.Fatalf("load cached snapshot: %v", err)
	}
	if snap.Source != "https://example.dk/prisliste.json" {
		t.Fatalf("unexpected cached source %q", snap.Source)
	}
}

func TestReloadFailureKeepsTable(t *testing.T) {
	srv := newTestServer(t, func(context.Context) (*pricing.Table, string, error) {
		return nil, "https://example.dk/prisliste.json", &pricetable.FetchError{URL: "https://example.dk/prisliste.json", StatusCode: http.StatusServiceUnavailable}
	})
	before := srv.table.Load()

	rec := do(t, srv.routes(), http.MethodPost, "/api/pricetable/reload", "", map[string]string{adminTokenHeader: testToken})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if env := decodeError(t, rec); env.Error.Code != "price_table_unavailable" {
		t.Fatalf("unexpected error %+v", env.Error)
	}
	if srv.table.Load() != before {
		t.Fatalf("failed reload must keep the current table")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, nil).routes()

	do(t, h, http.MethodPost, "/api/estimate/renovering", `{"items":[{"key":"maling","areaM2":10}]}`, nil)

	rec := do(t, h, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"m2matik_estimates_total", `route="/api/estimate/{type}"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestAdminGuardIgnoresBlankToken(t *testing.T) {
	guard := newAdminGuard("   ")
	if guard.enabled() {
		t.Fatalf("blank token must disable the guard")
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer ")
	if newAdminGuard(testToken).authorized(req) {
		t.Fatalf("empty bearer token must not authorize")
	}
}

func TestSourceLoaderPrefersURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nede", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfgLoad := sourceLoader(testConfig(srv.URL, samplePath))
	_, source, err := cfgLoad(context.Background())
	if source != srv.URL {
		t.Fatalf("expected URL source, got %q", source)
	}
	var fe *pricetable.FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected FetchError 503, got %v", err)
	}

	table, source, err := sourceLoader(testConfig("", samplePath))(context.Background())
	if err != nil || source != samplePath || table.Base["maling"].Startpris != 5000 {
		t.Fatalf("expected sample table from file, got source=%q err=%v", source, err)
	}
}

func testConfig(url, path string) config.Config {
	return config.Config{PriceTableURL: url, PriceTablePath: path, FetchTimeout: 5 * time.Second}
}
