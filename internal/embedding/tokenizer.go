package embedding

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// BERT special token ids shared by the MiniLM family.
const (
	padID = 0
	unkID = 100
	clsID = 101
	sepID = 102
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// HashTokenizer maps words to hashed ids. Used when no vocabulary file ships with the model.
type HashTokenizer struct{}

// Tokenize implements Tokenizer.
func (t *HashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	words := basicSplit(text)
	ids := make([]int64, 0, len(words))
	for _, w := range words {
		ids = append(ids, int64(hashWord(w)%29000)+1000)
	}
	return frame(ids, maxTokens)
}

// WordPieceTokenizer is a greedy longest-match-first tokenizer over a BERT vocab.txt.
type WordPieceTokenizer struct {
	vocab map[string]int64
}

// LoadWordPiece reads a vocab.txt file (one token per line, id = line number).
func LoadWordPiece(path string) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	sc := bufio.NewScanner(f)
	var id int64
	for sc.Scan() {
		vocab[strings.TrimRight(sc.Text(), "\r")] = id
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("vocab %s is empty", path)
	}
	return &WordPieceTokenizer{vocab: vocab}, nil
}

// Tokenize implements Tokenizer.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	var ids []int64
	for _, w := range basicSplit(text) {
		ids = append(ids, t.wordPieces(w)...)
	}
	return frame(ids, maxTokens)
}

func (t *WordPieceTokenizer) wordPieces(word string) []int64 {
	runes := []rune(word)
	if len(runes) > 100 {
		return []int64{unkID}
	}
	var out []int64
	for start := 0; start < len(runes); {
		end := len(runes)
		found := int64(-1)
		for ; end > start; end-- {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := t.vocab[piece]; ok {
				found = id
				break
			}
		}
		if found < 0 {
			return []int64{unkID}
		}
		out = append(out, found)
		start = end
	}
	return out
}

// basicSplit lowercases, splits on whitespace and isolates punctuation.
func basicSplit(text string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

// frame wraps ids in [CLS] ... [SEP], truncates and pads to maxTokens.
func frame(ids []int64, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens < 2 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	if len(ids) > maxTokens-2 {
		ids = ids[:maxTokens-2]
	}
	inputIDs[0] = clsID
	copy(inputIDs[1:], ids)
	inputIDs[len(ids)+1] = sepID
	for i := 0; i < len(ids)+2; i++ {
		attentionMask[i] = 1
	}
	for i := len(ids) + 2; i < maxTokens; i++ {
		inputIDs[i] = padID
	}
	return inputIDs, attentionMask, tokenTypeIDs
}
