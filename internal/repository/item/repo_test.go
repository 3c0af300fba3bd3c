package item

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/metadex/internal/db"
	domitem "github.com/kailas-cloud/metadex/internal/domain/item"
	"github.com/kailas-cloud/metadex/internal/query"
)

const (
	testID   = "0b9a3c1e-8a6f-4d2b-9f0e-1c2d3e4f5a6b"
	parentID = "1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f"
)

func makeItem(t *testing.T, doc map[string]any) *domitem.Item {
	t.Helper()
	it, err := domitem.FromJSON(doc)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	return &it
}

func TestLookupByIDType(t *testing.T) {
	gw := &mockGateway{searchFn: func(_ context.Context, _ string, _ *query.Model) (*db.SearchResult, error) {
		return hits("es-1", "es-2"), nil
	}}
	repo := New(gw, "catalogue")

	ids, err := repo.LookupByIDType(context.Background(), testID, []domitem.Type{domitem.TypeOwner})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "es-1" {
		t.Errorf("ids = %v", ids)
	}
	if gw.lastIndex != "catalogue" {
		t.Errorf("index = %q, want catalogue", gw.lastIndex)
	}

	q := gw.lastQuery
	if q.Kind() != query.KindBool || len(q.Must()) != 2 {
		t.Fatalf("existence query shape: kind=%v must=%d", q.Kind(), len(q.Must()))
	}
	if q.Must()[0].Field() != domitem.FieldID || q.Must()[0].Value() != testID {
		t.Errorf("first must clause = %s:%s", q.Must()[0].Field(), q.Must()[0].Value())
	}
	if q.Must()[1].Kind() != query.KindTerms || q.Must()[1].Field() != domitem.FieldType {
		t.Errorf("second must clause = %v on %s", q.Must()[1].Kind(), q.Must()[1].Field())
	}
}

func TestInstanceExists(t *testing.T) {
	gw := &mockGateway{searchFn: func(_ context.Context, _ string, _ *query.Model) (*db.SearchResult, error) {
		return hits("es-1"), nil
	}}
	repo := New(gw, "catalogue")

	exists, err := repo.InstanceExists(context.Background(), "eu-west")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("stored instance reported as missing")
	}

	q := gw.lastQuery
	if len(q.Must()) != 2 {
		t.Fatalf("instance query must clauses = %d, want 2", len(q.Must()))
	}
	if q.Must()[0].Value() != string(domitem.TypeInstance) {
		t.Errorf("type clause = %q", q.Must()[0].Value())
	}
	if q.Must()[1].Field() != domitem.FieldName || q.Must()[1].Value() != "eu-west" {
		t.Errorf("name clause = %s:%s", q.Must()[1].Field(), q.Must()[1].Value())
	}
}

func TestInstanceExists_NoHits(t *testing.T) {
	repo := New(&mockGateway{}, "catalogue")

	exists, err := repo.InstanceExists(context.Background(), "nowhere")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("missing instance reported as stored")
	}
}

func TestListReferences_QueryShape(t *testing.T) {
	gw := &mockGateway{}
	repo := New(gw, "catalogue")

	if _, err := repo.ListReferences(context.Background(), testID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := gw.lastQuery
	// One should clause for the id itself plus one per parent-key field.
	wantClauses := 1 + len(domitem.ParentKeyFields)
	if len(q.Should()) != wantClauses {
		t.Fatalf("should clauses = %d, want %d", len(q.Should()), wantClauses)
	}
	n, set := q.MinimumShouldMatch()
	if !set || n != 1 {
		t.Errorf("minimum_should_match = %d (set=%v), want explicit 1", n, set)
	}

	fields := make(map[string]bool, wantClauses)
	for _, sub := range q.Should() {
		if sub.Value() != testID {
			t.Errorf("should clause value = %q, want the probed id", sub.Value())
		}
		fields[sub.Field()] = true
	}
	for _, f := range append([]string{domitem.FieldID}, domitem.ParentKeyFields...) {
		if !fields[f] {
			t.Errorf("no should clause probes %q", f)
		}
	}
}

func TestUniqueTupleExists_ResourceGroup(t *testing.T) {
	gw := &mockGateway{searchFn: func(_ context.Context, _ string, _ *query.Model) (*db.SearchResult, error) {
		return hits("es-1"), nil
	}}
	repo := New(gw, "catalogue")

	it, err := domitem.FromJSON(map[string]any{
		domitem.FieldID:          testID,
		domitem.FieldType:        "cat:ResourceGroup",
		domitem.FieldName:        "billing",
		domitem.FieldDescription: "Billing resources",
		domitem.FieldProvider:    parentID,
	})
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	taken, err := repo.UniqueTupleExists(context.Background(), &it)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !taken {
		t.Error("occupied tuple reported free")
	}

	values := map[string]string{}
	for _, sub := range gw.lastQuery.Must() {
		values[sub.Field()] = sub.Value()
	}
	if values[domitem.FieldType] != "cat:ResourceGroup" {
		t.Errorf("type clause = %q", values[domitem.FieldType])
	}
	if values[domitem.FieldProvider] != parentID || values[domitem.FieldName] != "billing" {
		t.Errorf("tuple clauses = %v", values)
	}
}

func TestUniqueTupleExists_Provider_NoURL(t *testing.T) {
	gw := &mockGateway{}
	repo := New(gw, "catalogue")

	it := makeItem(t, map[string]any{
		domitem.FieldID:             testID,
		domitem.FieldType:           "cat:Provider",
		domitem.FieldName:           "acme-provider",
		domitem.FieldDescription:    "Acme provider",
		domitem.FieldResourceServer: parentID,
		domitem.FieldOwnerUserID:    "user-42",
	})

	if _, err := repo.UniqueTupleExists(context.Background(), it); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields := map[string]string{}
	for _, sub := range gw.lastQuery.Must() {
		fields[sub.Field()] = sub.Value()
	}
	if _, present := fields[domitem.FieldResourceServerURL]; present {
		t.Error("empty resourceServerUrl emitted as a term clause")
	}
	if fields[domitem.FieldResourceServer] != parentID || fields[domitem.FieldOwnerUserID] != "user-42" {
		t.Errorf("tuple clauses = %v", fields)
	}
}

func TestMissingParents_QueryPerParent(t *testing.T) {
	it := makeItem(t, map[string]any{
		"id":             testID,
		"type":           "cat:Resource",
		"name":           "sensor-feed",
		"description":    "Sensor feed",
		"resourceServer": "2d3e4f5a-6b7c-4d8e-9f0a-1b2c3d4e5f6a",
		"provider":       "3e4f5a6b-7c8d-4e9f-0a1b-2c3d4e5f6a7b",
		"resourceGroup":  "4f5a6b7c-8d9e-4f0a-1b2c-3d4e5f6a7b8c",
	})

	probed := make(map[string]string)
	gw := &mockGateway{searchFn: func(_ context.Context, _ string, q *query.Model) (*db.SearchResult, error) {
		probed[q.Must()[0].Value()] = q.Must()[1].Values()[0]
		return hits("es-1"), nil
	}}
	repo := New(gw, "catalogue")

	missing, err := repo.MissingParents(context.Background(), it)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("missing = %v, want none", missing)
	}

	want := map[string]string{
		"2d3e4f5a-6b7c-4d8e-9f0a-1b2c3d4e5f6a": "cat:ResourceServer",
		"3e4f5a6b-7c8d-4e9f-0a1b-2c3d4e5f6a7b": "cat:Provider",
		"4f5a6b7c-8d9e-4f0a-1b2c-3d4e5f6a7b8c": "cat:ResourceGroup",
	}
	if len(probed) != len(want) {
		t.Fatalf("probed %d parents, want %d (%v)", len(probed), len(want), probed)
	}
	for id, typ := range want {
		if probed[id] != typ {
			t.Errorf("parent %s probed as %q, want %q", id, probed[id], typ)
		}
	}
}

func TestMissingParents_Unresolved(t *testing.T) {
	it := makeItem(t, map[string]any{
		"id":          testID,
		"type":        "cat:COS",
		"name":        "central",
		"description": "Central COS",
		"owner":       parentID,
	})

	gw := &mockGateway{}
	repo := New(gw, "catalogue")

	missing, err := repo.MissingParents(context.Background(), it)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(missing) != 1 || missing[0] != "owner "+parentID {
		t.Errorf("missing = %v, want [owner %s]", missing, parentID)
	}
}

func TestUniqueTupleExists_VariantWithoutTuple(t *testing.T) {
	gw := &mockGateway{}
	repo := New(gw, "catalogue")

	it, err := domitem.FromJSON(map[string]any{
		domitem.FieldID:          testID,
		domitem.FieldType:        "cat:Owner",
		domitem.FieldName:        "acme",
		domitem.FieldDescription: "Acme Corp",
	})
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	taken, err := repo.UniqueTupleExists(context.Background(), &it)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if taken {
		t.Error("owner reported an occupied tuple")
	}
	if gw.lastQuery != nil {
		t.Error("gateway queried for a variant without a tuple")
	}
}

func TestInsert(t *testing.T) {
	gw := &mockGateway{createFn: func(_ context.Context, _ string, doc map[string]any) (string, error) {
		if doc["name"] != "acme" {
			t.Errorf("stored doc = %v", doc)
		}
		return "es-new", nil
	}}
	repo := New(gw, "catalogue")

	docID, err := repo.Insert(context.Background(), map[string]any{"name": "acme"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docID != "es-new" {
		t.Errorf("doc id = %q, want es-new", docID)
	}
}

func TestLookupByID_QueryShape(t *testing.T) {
	gw := &mockGateway{searchFn: func(_ context.Context, _ string, _ *query.Model) (*db.SearchResult, error) {
		return hits("es-1"), nil
	}}
	repo := New(gw, "catalogue")

	ids, err := repo.LookupByID(context.Background(), testID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "es-1" {
		t.Errorf("ids = %v", ids)
	}

	q := gw.lastQuery
	if q.Kind() != query.KindTerm || q.Field() != domitem.FieldID || q.Value() != testID {
		t.Errorf("id query = %v %s:%s", q.Kind(), q.Field(), q.Value())
	}
}

func TestUpdateStatus_ScriptShape(t *testing.T) {
	var patched string
	gw := &mockGateway{patchFn: func(_ context.Context, _, docID string, _ *query.Model) error {
		patched = docID
		return nil
	}}
	repo := New(gw, "catalogue")

	if err := repo.UpdateStatus(context.Background(), "es-1", domitem.StatusInactive); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patched != "es-1" {
		t.Errorf("patched = %q, want es-1", patched)
	}

	s := gw.lastQuery.UpdateScript()
	if s == nil {
		t.Fatal("no update script attached")
	}
	if s.Source() != "ctx._source.itemStatus = params.status" {
		t.Errorf("script source = %q", s.Source())
	}
	if s.Params()["status"] != "INACTIVE" {
		t.Errorf("script params = %v", s.Params())
	}
}

func TestReplace_PropagatesError(t *testing.T) {
	gw := &mockGateway{updateFn: func(_ context.Context, _, _ string, _ map[string]any) error {
		return &db.Error{Op: db.OpUpdate, Err: db.ErrDocNotFound}
	}}
	repo := New(gw, "catalogue")

	err := repo.Replace(context.Background(), "es-1", map[string]any{})
	if !errors.Is(err, db.ErrDocNotFound) {
		t.Fatalf("error = %v, want ErrDocNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	var removed string
	gw := &mockGateway{deleteFn: func(_ context.Context, _, docID string) error {
		removed = docID
		return nil
	}}
	repo := New(gw, "catalogue")

	if err := repo.Remove(context.Background(), "es-9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != "es-9" {
		t.Errorf("removed = %q, want es-9", removed)
	}
}

func TestSearch_PropagatesError(t *testing.T) {
	gw := &mockGateway{searchFn: func(_ context.Context, _ string, _ *query.Model) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrBadQuery}
	}}
	repo := New(gw, "catalogue")

	_, err := repo.Search(context.Background(), query.MatchAll())
	if !errors.Is(err, db.ErrBadQuery) {
		t.Fatalf("error = %v, want ErrBadQuery", err)
	}
}

func TestCount(t *testing.T) {
	gw := &mockGateway{countFn: func(_ context.Context, _ string, _ *query.Model) (int, error) {
		return 7, nil
	}}
	repo := New(gw, "catalogue")

	n, err := repo.Count(context.Background(), query.MatchAll())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Errorf("count = %d, want 7", n)
	}
}
