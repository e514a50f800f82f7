package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/memoro/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query:     "test query",
		IDs:       []int64{7},
		Total:     1,
		QueryTime: 42,
		Hits: []*models.SearchHit{{
			Rank:     1,
			NoteID:   7,
			Distance: 0.25,
			Note: &models.Note{
				ID:        7,
				Content:   "Content here",
				Summary:   "short",
				Tags:      []string{"a", "b"},
				Timestamp: "2024-01-02T09:00:00.000000Z",
			},
		}},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "JSON": OutputJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != "test query" || len(decoded.Hits) != 1 || decoded.Hits[0].NoteID != 7 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 results in 42ms", "#1  note 7  distance 0.2500", "tags: a, b", "Content here"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteNote_Text(t *testing.T) {
	var buf bytes.Buffer
	n := sampleResponse().Hits[0].Note
	n.Embedding = []float32{1, 2, 3}
	if err := WriteNote(&buf, n, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Embedding: yes (3 dims)") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestWriteDays_Text(t *testing.T) {
	var buf bytes.Buffer
	days := []models.DayGroup{{Date: "2024-01-02", Notes: []*models.Note{{ID: 1, Content: "hello\nworld"}}}}
	if err := WriteDays(&buf, days, OutputText); err != nil {
		t.Fatal(err)
	}
	want := "== 2024-01-02 (1) ==\n[1] hello world\n\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	_ = WriteNotes(&buf, nil, OutputText)
	if buf.String() != "No notes.\n" {
		t.Errorf("empty list output %q", buf.String())
	}
}
