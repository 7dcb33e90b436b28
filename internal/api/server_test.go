package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleScore(t *testing.T) {
	srv := NewServer(nil)
	body := map[string]interface{}{
		"subnet": map[string]interface{}{
			"id": "s1",
			"nodes": []map[string]interface{}{
				{"id": "n1", "dfinity_owned": true, "features": map[string]string{"country": "US"}},
				{"id": "n2", "features": map[string]string{"country": "CH"}},
			},
		},
	}
	rec := postJSON(t, srv.Handler(), "/api/subnets/score", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var score map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &score); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := score["min"]; !ok {
		t.Errorf("response missing min field: %v", score)
	}
}

func TestHandleCheck_ReportsViolation(t *testing.T) {
	srv := NewServer(nil)
	body := map[string]interface{}{
		"subnet": map[string]interface{}{
			"id": "s1",
			"nodes": []map[string]interface{}{
				{"id": "n1", "features": map[string]string{"country": "US"}},
				{"id": "n2", "features": map[string]string{"country": "CH"}},
			},
		},
	}
	rec := postJSON(t, srv.Handler(), "/api/subnets/check", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp checkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Violation == nil {
		t.Fatal("expected a violation for a subnet with no DFINITY node")
	}
	if resp.Violation["type"] != "dfinity_owned_node_missing" {
		t.Errorf("violation type = %v, want dfinity_owned_node_missing", resp.Violation["type"])
	}
}

func TestHandleExtend_InsufficientCandidatesIs422(t *testing.T) {
	srv := NewServer(nil)
	body := map[string]interface{}{
		"subnet": map[string]interface{}{
			"id":    "s1",
			"nodes": []map[string]interface{}{{"id": "n1", "dfinity_owned": true}},
		},
		"k":    2,
		"pool": []map[string]interface{}{{"id": "c1"}},
	}
	rec := postJSON(t, srv.Handler(), "/api/subnets/extend", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleScore_BadBody(t *testing.T) {
	srv := NewServer(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/subnets/score", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleListNodes_NoStore(t *testing.T) {
	srv := NewServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/nodes/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHealthAndVersion(t *testing.T) {
	srv := NewServer(nil)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/health status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/version status = %d", rec.Code)
	}
}
