package item

import (
	"testing"

	"github.com/kailas-cloud/metadex/internal/db"
)

func TestParseResultFilter(t *testing.T) {
	tests := []struct {
		in   string
		want ResultFilter
	}{
		{"", FilterSourceOnly},
		{"source", FilterSourceOnly},
		{"doc_id", FilterDocIDOnly},
		{"source_and_doc_id", FilterSourceAndDocID},
		{"ids", FilterIDsOnly},
		{"source_without_embedding", FilterSourceWithoutEmbedding},
	}
	for _, tt := range tests {
		got, err := ParseResultFilter(tt.in)
		if err != nil {
			t.Errorf("ParseResultFilter(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseResultFilter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseResultFilter("everything"); err == nil {
		t.Error("unknown filter accepted")
	}
}

func TestShapeHit(t *testing.T) {
	hit := db.Hit{
		DocID: "es-1",
		Source: map[string]any{
			"id":           "item-a",
			"name":         "svc",
			"_word_vector": []any{0.1, 0.2},
		},
	}

	source := shapeHit(hit, FilterSourceOnly)
	if len(source) != 3 || source["name"] != "svc" {
		t.Errorf("source projection = %v", source)
	}

	docID := shapeHit(hit, FilterDocIDOnly)
	if len(docID) != 1 || docID["doc_id"] != "es-1" {
		t.Errorf("doc_id projection = %v", docID)
	}

	both := shapeHit(hit, FilterSourceAndDocID)
	if both["doc_id"] != "es-1" || both["name"] != "svc" {
		t.Errorf("source_and_doc_id projection = %v", both)
	}

	ids := shapeHit(hit, FilterIDsOnly)
	if len(ids) != 1 || ids["id"] != "item-a" {
		t.Errorf("ids projection = %v", ids)
	}

	slim := shapeHit(hit, FilterSourceWithoutEmbedding)
	if _, present := slim["_word_vector"]; present {
		t.Error("embedding present in slim projection")
	}
	if slim["name"] != "svc" {
		t.Errorf("slim projection lost fields: %v", slim)
	}
}
