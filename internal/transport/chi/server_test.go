package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/metadex/internal/db"
	domitem "github.com/kailas-cloud/metadex/internal/domain/item"
	"github.com/kailas-cloud/metadex/internal/query"
	itemuc "github.com/kailas-cloud/metadex/internal/usecase/item"
)

// mockRepo implements itemuc.Repository for handler tests.
type mockRepo struct {
	lookupIDs  []string
	refIDs     []string
	searchRes  *db.SearchResult
	countRes   int
	insertErr  error
	replaceErr error
	removeErr  error

	statusDocID string
	statusSet   domitem.Status
	statusErr   error

	missingParents []string
}

func (m *mockRepo) LookupByIDType(_ context.Context, _ string, _ []domitem.Type) ([]string, error) {
	return m.lookupIDs, nil
}

func (m *mockRepo) LookupByID(_ context.Context, _ string) ([]string, error) {
	return m.lookupIDs, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, docID string, status domitem.Status) error {
	m.statusDocID = docID
	m.statusSet = status
	return m.statusErr
}

func (m *mockRepo) InstanceExists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (m *mockRepo) MissingParents(_ context.Context, _ *domitem.Item) ([]string, error) {
	return m.missingParents, nil
}

func (m *mockRepo) ListReferences(_ context.Context, _ string) ([]string, error) {
	return m.refIDs, nil
}

func (m *mockRepo) UniqueTupleExists(_ context.Context, _ *domitem.Item) (bool, error) {
	return false, nil
}

func (m *mockRepo) Insert(_ context.Context, _ map[string]any) (string, error) {
	return "es-doc-1", m.insertErr
}

func (m *mockRepo) Replace(_ context.Context, _ string, _ map[string]any) error {
	return m.replaceErr
}

func (m *mockRepo) Remove(_ context.Context, _ string) error {
	return m.removeErr
}

func (m *mockRepo) Search(_ context.Context, _ *query.Model) (*db.SearchResult, error) {
	if m.searchRes != nil {
		return m.searchRes, nil
	}
	return &db.SearchResult{}, nil
}

func (m *mockRepo) Count(_ context.Context, _ *query.Model) (int, error) {
	return m.countRes, nil
}

const testItemID = "0b9a3c1e-8a6f-4d2b-9f0e-1c2d3e4f5a6b"

// stubPinger fakes backend connectivity for the health endpoint.
type stubPinger struct{ err error }

func (p *stubPinger) Ping(_ context.Context) error { return p.err }

func newTestServer(repo *mockRepo) http.Handler {
	svc := itemuc.New(repo, nil, nil)
	return NewServer(svc, &stubPinger{}, nil, zap.NewNop()).Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return body
}

func ownerBody(id string) string {
	doc := map[string]any{
		"type":        "cat:Owner",
		"name":        "acme",
		"description": "Acme Corp",
	}
	if id != "" {
		doc["id"] = id
	}
	raw, _ := json.Marshal(doc)
	return string(raw)
}

func TestHealth(t *testing.T) {
	h := newTestServer(&mockRepo{})

	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHealth_BackendDegraded(t *testing.T) {
	svc := itemuc.New(&mockRepo{}, nil, nil)
	h := NewServer(svc, &stubPinger{err: errors.New("backend down")}, nil, zap.NewNop()).Routes()

	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if decodeBody(t, rec)["status"] != "degraded" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCreateItem_Created(t *testing.T) {
	h := newTestServer(&mockRepo{})

	rec := do(t, h, http.MethodPost, "/api/v1/items", ownerBody(testItemID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["id"] != testItemID {
		t.Errorf("returned id = %v", body["id"])
	}
	if body["itemCreatedAt"] == nil {
		t.Error("createdAt missing from response")
	}
}

func TestCreateItem_SchemaFailure(t *testing.T) {
	h := newTestServer(&mockRepo{})

	rec := do(t, h, http.MethodPost, "/api/v1/items", `{"type":"cat:Owner","name":"acme"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "invalid_schema" {
		t.Errorf("error code = %v", decodeBody(t, rec)["error"])
	}
}

func TestCreateItem_MissingID(t *testing.T) {
	h := newTestServer(&mockRepo{})

	rec := do(t, h, http.MethodPost, "/api/v1/items", ownerBody(""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "invalid_syntax" {
		t.Errorf("error code = %v", decodeBody(t, rec)["error"])
	}
}

func TestCreateItem_Duplicate(t *testing.T) {
	h := newTestServer(&mockRepo{lookupIDs: []string{"es-1"}})

	rec := do(t, h, http.MethodPost, "/api/v1/items", ownerBody(testItemID))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "already_exists" {
		t.Errorf("error code = %v", decodeBody(t, rec)["error"])
	}
}

func TestCreateItem_MissingParentForbidden(t *testing.T) {
	const owner = "1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f"
	h := newTestServer(&mockRepo{missingParents: []string{"owner " + owner}})

	body := `{"id":"` + testItemID + `","type":"cat:COS","name":"central","description":"Central COS","owner":"` + owner + `"}`
	rec := do(t, h, http.MethodPost, "/api/v1/items", body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 (body %s)", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["error"] != "operation_not_allowed" {
		t.Errorf("error code = %v", decodeBody(t, rec)["error"])
	}
}

func TestUpdateItem_NotFound(t *testing.T) {
	h := newTestServer(&mockRepo{})

	rec := do(t, h, http.MethodPut, "/api/v1/items", ownerBody(testItemID))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUpdateItem_OK(t *testing.T) {
	h := newTestServer(&mockRepo{lookupIDs: []string{"es-1"}})

	rec := do(t, h, http.MethodPut, "/api/v1/items", ownerBody(testItemID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestDeleteItem_OK(t *testing.T) {
	h := newTestServer(&mockRepo{refIDs: []string{"es-1"}})

	rec := do(t, h, http.MethodDelete, "/api/v1/items/"+testItemID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if decodeBody(t, rec)["id"] != testItemID {
		t.Errorf("deleted id = %v", decodeBody(t, rec)["id"])
	}
}

func TestDeleteItem_DependentsForbidden(t *testing.T) {
	h := newTestServer(&mockRepo{refIDs: []string{"es-1", "es-2"}})

	rec := do(t, h, http.MethodDelete, "/api/v1/items/"+testItemID, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "operation_not_allowed" {
		t.Errorf("error code = %v", decodeBody(t, rec)["error"])
	}
}

func TestSetItemStatus_OK(t *testing.T) {
	repo := &mockRepo{lookupIDs: []string{"es-1"}}
	h := newTestServer(repo)

	rec := do(t, h, http.MethodPatch, "/api/v1/items/"+testItemID+"/status", `{"itemStatus":"INACTIVE"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if repo.statusSet != domitem.StatusInactive {
		t.Errorf("status = %q, want INACTIVE", repo.statusSet)
	}
	if decodeBody(t, rec)["itemStatus"] != "INACTIVE" {
		t.Errorf("response = %s", rec.Body.String())
	}
}

func TestSetItemStatus_Unknown(t *testing.T) {
	h := newTestServer(&mockRepo{lookupIDs: []string{"es-1"}})

	rec := do(t, h, http.MethodPatch, "/api/v1/items/"+testItemID+"/status", `{"itemStatus":"PAUSED"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "invalid_schema" {
		t.Errorf("error code = %v", decodeBody(t, rec)["error"])
	}
}

func TestSetItemStatus_NotFound(t *testing.T) {
	h := newTestServer(&mockRepo{})

	rec := do(t, h, http.MethodPatch, "/api/v1/items/"+testItemID+"/status", `{"itemStatus":"ACTIVE"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSearchItems(t *testing.T) {
	h := newTestServer(&mockRepo{searchRes: &db.SearchResult{
		Total: 1,
		Hits:  []db.Hit{{DocID: "es-1", Source: map[string]any{"id": testItemID}}},
	}})

	rec := do(t, h, http.MethodPost, "/api/v1/search",
		`{"query": {"kind": "term", "field": "id", "value": "`+testItemID+`"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["totalHits"] != float64(1) {
		t.Errorf("totalHits = %v", body["totalHits"])
	}
	results, ok := body["results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("results = %v", body["results"])
	}
}

func TestSearchItems_BadQuery(t *testing.T) {
	h := newTestServer(&mockRepo{})

	rec := do(t, h, http.MethodPost, "/api/v1/search", `{"query": {"kind": "warp"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchItems_UnknownFilter(t *testing.T) {
	h := newTestServer(&mockRepo{})

	rec := do(t, h, http.MethodPost, "/api/v1/search",
		`{"query": {"kind": "match_all"}, "filter": "everything"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCountItems(t *testing.T) {
	h := newTestServer(&mockRepo{countRes: 12})

	rec := do(t, h, http.MethodPost, "/api/v1/count", `{"query": {"kind": "match_all"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["totalHits"] != float64(12) {
		t.Errorf("totalHits = %v", decodeBody(t, rec)["totalHits"])
	}
}
