package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/hyperjump/termquery/internal/config"
	"github.com/hyperjump/termquery/internal/dictionary"
	"github.com/hyperjump/termquery/internal/keyword"
	"github.com/hyperjump/termquery/internal/metrics"
)

const testModel = `
namespaces:
  - prefix: cm
    uri: "http://www.alfresco.org/model/content/1.0"
properties:
  - name: cm:created
    type: d:datetime
    title: Created
  - name: cm:name
    type: d:text
`

type failingIndex struct{}

func (failingIndex) HasField(field string) (bool, error) {
	return false, &keyword.TermReadError{Field: field, Err: errors.New("disk on fire")}
}

func (failingIndex) Index(ctx context.Context, id string, fields map[string]interface{}) error {
	return errors.New("read-only")
}

func (failingIndex) FieldTerms(field string) ([]string, error) {
	return nil, &keyword.TermReadError{Field: field, Err: errors.New("disk on fire")}
}

func (failingIndex) Delete(ctx context.Context, id string) error {
	return errors.New("read-only")
}

func (failingIndex) DocCount() (uint64, error) { return 0, errors.New("unavailable") }

func newTestServer(t *testing.T) (*Server, *keyword.BleveIndex) {
	t.Helper()
	reg := dictionary.NewRegistry()
	if err := reg.LoadModel(strings.NewReader(testModel)); err != nil {
		t.Fatal(err)
	}
	idx, err := keyword.NewBleveIndex(filepath.Join(t.TempDir(), "bleve"), keyword.WithDictionary(reg))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return NewServer(reg, idx, &config.ServerConfig{Port: 8080}, zap.NewNop()), idx
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleDateRange(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	tests := []struct {
		name      string
		req       DateRangeRequest
		wantCode  int
		wantQuery string
	}{
		{
			name:      "full range",
			req:       DateRangeRequest{Property: "cm:created", From: "2020-01-01T00:00:00", To: "2020-12-31"},
			wantCode:  http.StatusOK,
			wantQuery: ` +@cm\:created:[2020\-01\-01T00:00:00 TO 2020\-12\-31T00:00:00] `,
		},
		{
			name:      "open range",
			req:       DateRangeRequest{Property: "{http://www.alfresco.org/model/content/1.0}created"},
			wantCode:  http.StatusOK,
			wantQuery: ` +@cm\:created:[1970\-01\-01T00:00:00 TO 3000\-12\-31T00:00:00] `,
		},
		{name: "missing property", req: DateRangeRequest{}, wantCode: http.StatusBadRequest},
		{name: "unknown prefix", req: DateRangeRequest{Property: "zz:created"}, wantCode: http.StatusBadRequest},
		{name: "unknown property", req: DateRangeRequest{Property: "cm:nothere"}, wantCode: http.StatusNotFound},
		{name: "wrong type", req: DateRangeRequest{Property: "cm:name"}, wantCode: http.StatusBadRequest},
		{name: "bad date", req: DateRangeRequest{Property: "cm:created", From: "soon"}, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h, http.MethodPost, "/api/v1/query/date-range", tt.req)
			if w.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var out DateRangeResponse
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
				t.Fatal(err)
			}
			if out.Query != tt.wantQuery {
				t.Errorf("query = %q, want %q", out.Query, tt.wantQuery)
			}
		})
	}
}

func TestHandleDateRange_InvalidBody(t *testing.T) {
	srv, _ := newTestServer(t)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/query/date-range", strings.NewReader("{"))
	w := httptest.NewRecorder()
	srv.handleDateRange(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleFieldExists(t *testing.T) {
	srv, idx := newTestServer(t)
	if err := idx.Index(context.Background(), "doc1", map[string]interface{}{"cm:name": "report"}); err != nil {
		t.Fatal(err)
	}
	h := srv.Routes()

	for field, want := range map[string]bool{"cm:name": true, "cm:created": false} {
		w := doJSON(t, h, http.MethodGet, "/api/v1/fields/"+field+"/exists", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d", field, w.Code)
		}
		var out struct {
			Field  string `json:"field"`
			Exists bool   `json:"exists"`
		}
		if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		if out.Field != field || out.Exists != want {
			t.Errorf("%s: got %+v, want exists=%v", field, out, want)
		}
	}
}

func TestHandleFieldExists_ReadFailure(t *testing.T) {
	reg := dictionary.NewRegistry()
	srv := NewServer(reg, failingIndex{}, &config.ServerConfig{}, zap.NewNop())
	w := doJSON(t, srv.Routes(), http.MethodGet, "/api/v1/fields/cm:name/exists", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "cm:name") {
		t.Errorf("error should name the field: %s", w.Body.String())
	}
}

func TestHandleIndexDocument_AssignsID(t *testing.T) {
	srv, idx := newTestServer(t)
	w := doJSON(t, srv.Routes(), http.MethodPost, "/api/v1/documents",
		DocumentRequest{Fields: map[string]interface{}{"cm:name": "hello"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d (%s)", w.Code, w.Body.String())
	}
	var out map[string]string
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out["id"]) != 36 {
		t.Errorf("expected generated uuid, got %q", out["id"])
	}
	n, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("DocCount = %d, want 1", n)
	}
}

func TestHandleIndexDocument_NoFields(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv.Routes(), http.MethodPost, "/api/v1/documents", DocumentRequest{ID: "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleListProperties(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv.Routes(), http.MethodGet, "/api/v1/properties", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Properties []propertyResponse `json:"properties"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Properties) != 2 {
		t.Fatalf("properties: got %+v", out.Properties)
	}
	if out.Properties[0].Name != "cm:created" || out.Properties[0].DataType != "d:datetime" {
		t.Errorf("first property: %+v", out.Properties[0])
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv.Routes(), http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out map[string]float64
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["properties"] != 2 || out["documents"] != 0 {
		t.Errorf("status body: %v", out)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := NewServer(dictionary.NewRegistry(), failingIndex{}, &config.ServerConfig{}, zap.NewNop())
	w := doJSON(t, srv.Routes(), http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestMetrics_CountsDateRangeOutcomes(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()
	ok := metrics.OperationsTotal.WithLabelValues("date_range", metrics.StatusOK)
	rejected := metrics.OperationsTotal.WithLabelValues("date_range", metrics.StatusRejected)
	okBefore, rejectedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(rejected)

	doJSON(t, h, http.MethodPost, "/api/v1/query/date-range", DateRangeRequest{Property: "cm:created"})
	doJSON(t, h, http.MethodPost, "/api/v1/query/date-range", DateRangeRequest{Property: "cm:name"})

	if got := testutil.ToFloat64(ok) - okBefore; got != 1 {
		t.Errorf("ok counter increased by %v, want 1", got)
	}
	if got := testutil.ToFloat64(rejected) - rejectedBefore; got != 1 {
		t.Errorf("rejected counter increased by %v, want 1", got)
	}

	w := doJSON(t, h, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "termquery_operations_total") {
		t.Error("metrics output should include termquery_operations_total")
	}
}

func TestMetrics_CountsEarlyDateRangeRejections(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()
	rejected := metrics.OperationsTotal.WithLabelValues("date_range", metrics.StatusRejected)
	before := testutil.ToFloat64(rejected)

	doJSON(t, h, http.MethodPost, "/api/v1/query/date-range", DateRangeRequest{Property: "zz:created"})
	doJSON(t, h, http.MethodPost, "/api/v1/query/date-range", DateRangeRequest{Property: "cm:created", From: "soon"})
	doJSON(t, h, http.MethodPost, "/api/v1/query/date-range", DateRangeRequest{Property: "cm:created", To: "later"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/query/date-range", strings.NewReader("{"))
	h.ServeHTTP(httptest.NewRecorder(), r)

	if got := testutil.ToFloat64(rejected) - before; got != 4 {
		t.Errorf("rejected counter increased by %v, want 4", got)
	}
}

func TestHandleFieldTerms(t *testing.T) {
	srv, idx := newTestServer(t)
	if err := idx.Index(context.Background(), "doc1", map[string]interface{}{"cm:name": "beta alpha"}); err != nil {
		t.Fatal(err)
	}
	w := doJSON(t, srv.Routes(), http.MethodGet, "/api/v1/fields/cm:name/terms", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d (%s)", w.Code, w.Body.String())
	}
	var out struct {
		Field string   `json:"field"`
		Terms []string `json:"terms"`
		Count int      `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Field != "cm:name" || out.Count != 2 || out.Terms[0] != "alpha" || out.Terms[1] != "beta" {
		t.Errorf("got %+v", out)
	}
}

func TestHandleFieldTerms_ReadFailure(t *testing.T) {
	srv := NewServer(dictionary.NewRegistry(), failingIndex{}, &config.ServerConfig{}, zap.NewNop())
	w := doJSON(t, srv.Routes(), http.MethodGet, "/api/v1/fields/cm:name/terms", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleDeleteDocument(t *testing.T) {
	srv, idx := newTestServer(t)
	ctx := context.Background()
	if err := idx.Index(ctx, "doc1", map[string]interface{}{"cm:name": "report"}); err != nil {
		t.Fatal(err)
	}
	h := srv.Routes()

	w := doJSON(t, h, http.MethodDelete, "/api/v1/documents/doc1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d (%s)", w.Code, w.Body.String())
	}
	n, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("DocCount = %d after delete, want 0", n)
	}
}

func TestHandleDeleteDocument_Failure(t *testing.T) {
	srv := NewServer(dictionary.NewRegistry(), failingIndex{}, &config.ServerConfig{}, zap.NewNop())
	w := doJSON(t, srv.Routes(), http.MethodDelete, "/api/v1/documents/doc1", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d", w.Code)
	}
}
