package embedding

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHashTokenizer_Tokenize(t *testing.T) {
	tok := &HashTokenizer{}
	ids, attn, types := tok.Tokenize("hello world", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths = %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != clsID || ids[3] != sepID {
		t.Errorf("expected [CLS] w w [SEP], got %v", ids[:4])
	}
	if attn[3] != 1 || attn[4] != 0 {
		t.Errorf("attention mask = %v", attn)
	}
}

func TestFrame_Truncates(t *testing.T) {
	ids, attn, _ := frame([]int64{5, 6, 7, 8, 9}, 4)
	want := []int64{clsID, 5, 6, sepID}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
		if attn[i] != 1 {
			t.Fatalf("attn = %v", attn)
		}
	}
}

func TestBasicSplit(t *testing.T) {
	got := basicSplit("  Hello, World!  ")
	want := []string{"hello", ",", "world", "!"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("basicSplit = %v, want %v", got, want)
	}
	if basicSplit("") != nil {
		t.Error("empty string should return nil")
	}
}

func TestWordPieceTokenizer(t *testing.T) {
	dir := t.TempDir()
	vocab := filepath.Join(dir, "vocab.txt")
	lines := []string{"[PAD]", "play", "##ing", "the", "##s"}
	if err := os.WriteFile(vocab, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatal(err)
	}
	tok, err := LoadWordPiece(vocab)
	if err != nil {
		t.Fatal(err)
	}
	ids, _, _ := tok.Tokenize("playing the xyz", 8)
	want := []int64{clsID, 1, 2, 3, unkID, sepID, padID, padID}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}

	if _, err := LoadWordPiece(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing vocab")
	}
}
