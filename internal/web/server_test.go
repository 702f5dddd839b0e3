package web

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/lca-intake/internal/config"
	"github.com/JonMunkholm/lca-intake/internal/export"
	"github.com/JonMunkholm/lca-intake/internal/intake"
)

const sampleDocument = `
fields:
  company: Acme
  facility: Plant 1
  period: "2024"
  product: Widget
  product_mass_value: "1"
  product_mass_unit: kg
  product_direct_qty: "500"
  product_direct_unit: pcs
basis_type: mass
production_mode: product_direct
sections:
  bom:
    modes: [road]
    rows:
      - component: Steel
        mass_input_value: "0.8"
        mass_used_value: "0.7"
        distances: {road: "100"}
  packaging:
    rows:
      - component: Carton
        mass_input_value: "0.35"
        mass_used_value: "0.3"
energy:
  - {type: electricity, amount: "1000", unit: kWh}
`

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			RequestTimeout: 5 * time.Second,
			MaxBodySize:    1 << 20,
		},
		Session: config.SessionConfig{MaxSessions: 10},
		Metrics: config.MetricsConfig{Enabled: true},
	}
}

type testServer struct {
	*Server
	t *testing.T
}

func newTestServer(t *testing.T, cfg *config.Config, load export.Loader) *testServer {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	if load == nil {
		load = export.DefaultLoader("")
	}
	store := intake.NewStore(cfg.Session.MaxSessions)
	exp := export.NewExporter(export.NewCapability(load, time.Second))
	s := NewServer(store, exp, export.NewLimiter(2, time.Second), cfg)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return &testServer{Server: s, t: t}
}

func (ts *testServer) do(method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	ts.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) json(method, path, body string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return ts.do(method, path, "application/json", r)
}

func (ts *testServer) createSession(doc string) intake.SessionState {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/sessions", "application/yaml", strings.NewReader(doc))
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	var st intake.SessionState
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, code, resp.Code)
	assert.NotEmpty(t, resp.Message)
	return resp
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = ts.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	cfg := testConfig()
	cfg.Metrics.Enabled = false
	rec = newTestServer(t, cfg, nil).do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSession_Empty(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(http.MethodPost, "/api/sessions", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	st := decode[intake.SessionState](t, rec)
	assert.Equal(t, "/api/sessions/"+st.ID, rec.Header().Get("Location"))
	for _, k := range intake.Kinds {
		assert.Len(t, st.Sections[k].Rows, 1, k)
	}
	assert.Len(t, st.Energy, 1)

	rec = ts.do(http.MethodGet, "/api/sessions/"+st.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateSession_FromDocument(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	st := ts.createSession(sampleDocument)

	assert.Equal(t, "Acme", st.Form.Meta.Company)
	assert.Equal(t, intake.QCOK, st.QC.Status)

	rec := ts.do(http.MethodPost, "/api/sessions", "application/yaml", strings.NewReader("bogus_key: 1\n"))
	assertError(t, rec, http.StatusBadRequest, "REQ001")

	rec = ts.do(http.MethodPost, "/api/sessions", "application/yaml",
		strings.NewReader("sections:\n  energy:\n    rows: []\n"))
	assertError(t, rec, http.StatusBadRequest, "SEC001")
	assert.Equal(t, 1, ts.store.Len(), "rejected document leaves no session behind")
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	st := ts.createSession("")

	assertError(t, ts.do(http.MethodGet, "/api/sessions/nope", "", nil), http.StatusNotFound, "SES001")

	rec := ts.do(http.MethodDelete, "/api/sessions/"+st.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assertError(t, ts.do(http.MethodGet, "/api/sessions/"+st.ID+"/qc", "", nil), http.StatusNotFound, "SES001")
}

func TestCreateSession_Capacity(t *testing.T) {
	cfg := testConfig()
	cfg.Session.MaxSessions = 1
	ts := newTestServer(t, cfg, nil)
	ts.createSession("")

	rec := ts.do(http.MethodPost, "/api/sessions", "", nil)
	assertError(t, rec, http.StatusServiceUnavailable, "SES002")
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestSetFields(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	base := "/api/sessions/" + ts.createSession("").ID

	rec := ts.json(http.MethodPatch, base+"/fields", `{"company":"Acme","product_mass_value":"2"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[mutationResponse](t, rec)
	assert.Equal(t, uint64(1), resp.Revision)

	assertError(t, ts.json(http.MethodPatch, base+"/fields", `{"nope":"x"}`), http.StatusBadRequest, "FRM001")
	assertError(t, ts.json(http.MethodPatch, base+"/fields", `{"company":`), http.StatusBadRequest, "REQ001")
	assertError(t, ts.json(http.MethodPatch, base+"/fields", ``), http.StatusBadRequest, "REQ001")

	st := decode[intake.SessionState](t, ts.do(http.MethodGet, base, "", nil))
	assert.Equal(t, uint64(1), st.Revision, "rejected updates do not bump the revision")
}

func TestBasisAndProductionMode(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	base := "/api/sessions/" + ts.createSession("").ID

	rec := ts.json(http.MethodPut, base+"/basis", `{"type":"count"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.json(http.MethodPut, base+"/production-mode", `{"mode":"facility_share"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assertError(t, ts.json(http.MethodPut, base+"/basis", `{"type":"volume"}`), http.StatusBadRequest, "FRM002")
	assertError(t, ts.json(http.MethodPut, base+"/production-mode", `{"mode":"x"}`), http.StatusBadRequest, "FRM002")

	st := decode[intake.SessionState](t, ts.do(http.MethodGet, base, "", nil))
	assert.Equal(t, intake.BasisCount, st.Form.Basis.Type)
	assert.Equal(t, intake.ProductionFacilityShare, st.Form.Production.Mode)
}

func TestSectionRowsAndModes(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	base := "/api/sessions/" + ts.createSession("").ID + "/sections/bom"

	rec := ts.json(http.MethodPost, base+"/rows", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	rowID := decode[mutationResponse](t, rec).ID
	require.NotEmpty(t, rowID)

	update := `{"component":"Steel","mass_input_value":"2","mass_used_value":"1.5","distances":{"ship":"10"}}`
	assertError(t, ts.json(http.MethodPatch, base+"/rows/"+rowID, update), http.StatusBadRequest, "SEC003")

	require.Equal(t, http.StatusOK, ts.json(http.MethodPut, base+"/modes/ship", `{"enabled":true}`).Code)
	require.Equal(t, http.StatusOK, ts.json(http.MethodPut, base+"/modes/ship/unit", `{"unit":"mi"}`).Code)
	rec = ts.json(http.MethodPatch, base+"/rows/"+rowID, update)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 1.5, decode[mutationResponse](t, rec).QC.UsedBOM, 1e-9)

	assertError(t, ts.json(http.MethodPut, base+"/modes/teleport", `{"enabled":true}`), http.StatusBadRequest, "SEC002")
	assertError(t, ts.json(http.MethodPut, base+"/modes/ship/unit", `{"unit":"parsec"}`), http.StatusBadRequest, "SEC004")
	assertError(t, ts.json(http.MethodPatch, base+"/rows/missing", `{"component":"x"}`), http.StatusNotFound, "SEC005")

	snap := decode[intake.SectionSnapshot](t, ts.do(http.MethodGet, base+"/snapshot", "", nil))
	require.Len(t, snap.InboundFlat, 1)
	assert.Equal(t, intake.ModeShip, snap.InboundFlat[0].Mode)
	assert.Equal(t, "mi", snap.InboundFlat[0].DistanceUnit)

	require.Equal(t, http.StatusOK, ts.json(http.MethodPut, base+"/compact", `{"compact":true}`).Code)

	resp := decode[mutationResponse](t, ts.do(http.MethodDelete, base+"/rows/"+rowID, "", nil))
	require.NotNil(t, resp.Removed)
	assert.True(t, *resp.Removed)
	resp = decode[mutationResponse](t, ts.do(http.MethodDelete, base+"/rows/"+rowID, "", nil))
	assert.False(t, *resp.Removed)
}

func TestUnknownSection(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	base := "/api/sessions/" + ts.createSession("").ID

	assertError(t, ts.do(http.MethodGet, base+"/sections/energy/snapshot", "", nil), http.StatusNotFound, "SEC001")
	rec := ts.do(http.MethodGet, base+"/sections/pack/snapshot", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestImportRows(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	base := "/api/sessions/" + ts.createSession("").ID + "/sections/bom"

	csvBody := "Component,Mass Input Value,Mass Used Value,road_km\nSteel,1,0.9,120\nAlu,0.5,0.5,\n"
	rec := ts.do(http.MethodPost, base+"/import", "text/csv", strings.NewReader(csvBody))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Added        int           `json:"added"`
		EnabledModes []intake.Mode `json:"enabled_modes"`
		Revision     uint64        `json:"revision"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Added)
	assert.Equal(t, []intake.Mode{intake.ModeRoad}, resp.EnabledModes)
	assert.Equal(t, uint64(1), resp.Revision)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "bom.csv")
	require.NoError(t, err)
	io.WriteString(fw, csvBody)
	require.NoError(t, mw.Close())
	rec = ts.do(http.MethodPost, base+"/import", mw.FormDataContentType(), &body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assertError(t, ts.do(http.MethodPost, base+"/import", "text/csv", strings.NewReader("component\nSteel\n")),
		http.StatusBadRequest, "IMP001")
	assertError(t, ts.do(http.MethodPost, base+"/import", "text/csv", strings.NewReader("")),
		http.StatusBadRequest, "IMP003")
}

func TestImportRows_BodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxBodySize = 16
	ts := newTestServer(t, cfg, nil)
	base := "/api/sessions/" + ts.createSession("").ID + "/sections/bom"

	body := "component,mass_input_value,mass_used_value\n" + strings.Repeat("Steel,1,1\n", 10)
	assertError(t, ts.do(http.MethodPost, base+"/import", "text/csv", strings.NewReader(body)),
		http.StatusRequestEntityTooLarge, "IMP004")
}

func TestEnergy(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	base := "/api/sessions/" + ts.createSession("").ID

	rec := ts.json(http.MethodPost, base+"/energy", `{"type":"natural_gas","amount":"12"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[mutationResponse](t, rec).ID

	rec = ts.json(http.MethodPost, base+"/energy", "")
	require.Equal(t, http.StatusCreated, rec.Code, "empty body adds an empty entry")

	require.Equal(t, http.StatusOK, ts.json(http.MethodPatch, base+"/energy/"+id, `{"amount":"15"}`).Code)
	assertError(t, ts.json(http.MethodPatch, base+"/energy/"+id, `{"type":"plutonium"}`), http.StatusBadRequest, "FRM002")
	assertError(t, ts.json(http.MethodPatch, base+"/energy/missing", `{"amount":"1"}`), http.StatusNotFound, "SEC006")

	resp := decode[mutationResponse](t, ts.do(http.MethodDelete, base+"/energy/"+id, "", nil))
	assert.True(t, *resp.Removed)

	st := decode[intake.SessionState](t, ts.do(http.MethodGet, base, "", nil))
	assert.Len(t, st.Energy, 2)
}

func TestSubmit(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	empty := "/api/sessions/" + ts.createSession("").ID
	resp := assertError(t, ts.do(http.MethodPost, empty+"/submit", "", nil), http.StatusUnprocessableEntity, "SUB001")
	assert.Equal(t, "bom", resp.Field)

	full := "/api/sessions/" + ts.createSession(sampleDocument).ID
	rec := ts.do(http.MethodPost, full+"/submit", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sub := decode[submitResponse](t, rec)
	assert.Equal(t, "submitted", sub.Status)
	assert.NotNil(t, sub.SubmittedAt)
	assert.Equal(t, "Acme", sub.Payload.Meta.Company)

	qc := decode[qcResponse](t, ts.do(http.MethodGet, full+"/qc", "", nil))
	assert.Equal(t, intake.QCOK, qc.QC.Status)
	assert.NotEmpty(t, qc.Message)
}

func TestPayloadAndExport(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	base := "/api/sessions/" + ts.createSession(sampleDocument).ID

	rec := ts.do(http.MethodGet, base+"/payload", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[intake.Payload](t, rec)
	require.Len(t, p.BOM, 1)
	assert.Equal(t, "Steel", p.BOM[0].Component)

	tests := []struct {
		format, contentType, file string
		magic                     string
	}{
		{"", "application/json", "lca_epd_intake.json", "{"},
		{"json", "application/json", "lca_epd_intake.json", "{"},
		{"csv", "application/zip", "intake_export.zip", "PK"},
		{"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "intake_export.xlsx", "PK"},
		{"pdf", "application/pdf", "intake_summary.pdf", "%PDF"},
	}
	for _, tt := range tests {
		t.Run("format="+tt.format, func(t *testing.T) {
			rec := ts.do(http.MethodGet, base+"/export?format="+tt.format, "", nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), tt.file)
			assert.True(t, strings.HasPrefix(rec.Body.String(), tt.magic))
		})
	}

	rec = ts.do(http.MethodGet, base+"/export?format=csv", "", nil)
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	assert.Len(t, zr.File, 9)

	assertError(t, ts.do(http.MethodGet, base+"/export?format=docx", "", nil), http.StatusBadRequest, "EXP003")
}

func TestExport_SpreadsheetUnavailable(t *testing.T) {
	failing := func(ctx context.Context) (*export.SheetWriter, error) {
		return nil, errors.New("template missing")
	}
	ts := newTestServer(t, nil, failing)
	base := "/api/sessions/" + ts.createSession(sampleDocument).ID

	rec := ts.do(http.MethodGet, base+"/export?format=xlsx", "", nil)
	assertError(t, rec, http.StatusServiceUnavailable, "EXP002")
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))

	rec = ts.do(http.MethodGet, base+"/export?format=csv", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "other formats keep working")

	st := decode[capabilityResponse](t, ts.do(http.MethodGet, "/api/export/capability", "", nil))
	assert.Equal(t, export.StateFailed, st.State)
	assert.Equal(t, "template missing", st.Error)
	assert.NotEmpty(t, st.Message)
}

func TestCapabilityStart(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	st := decode[capabilityResponse](t, ts.do(http.MethodGet, "/api/export/capability", "", nil))
	assert.Equal(t, export.StateIdle, st.State)
	assert.Equal(t, 2, st.Exports.MaxConcurrent)

	rec := ts.do(http.MethodPost, "/api/export/capability", "", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		st := decode[capabilityResponse](t, ts.do(http.MethodGet, "/api/export/capability", "", nil))
		return st.State == export.StateReady
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	ts := newTestServer(t, cfg, nil)

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/api/sessions", "", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/healthz", "", nil).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, ExportLimit: 1}
	ts := newTestServer(t, cfg, nil)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/healthz", "", nil).Code)

	rec := ts.do(http.MethodGet, "/healthz", "", nil)
	assertError(t, rec, http.StatusTooManyRequests, "RATE001")
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{intake.ErrSessionNotFound, http.StatusNotFound},
		{&intake.SubmissionError{Code: "SUB002"}, http.StatusUnprocessableEntity},
		{export.ErrCapabilityLoading, http.StatusServiceUnavailable},
		{export.ErrTooManyExports, http.StatusServiceUnavailable},
		{intake.ErrUnknownUnit, http.StatusBadRequest},
		{errors.New("import: file too large: more than 5000 rows"), http.StatusBadRequest},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
