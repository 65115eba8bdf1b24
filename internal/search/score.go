package search

import (
	"math"
	"strings"
	"unicode"
)

// Okapi BM25 parameters. These are the textbook defaults and are not tuned
// per corpus.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// Tokenize lowercases the text, replaces every non-alphanumeric rune with a
// space, splits on whitespace and drops tokens of length 2 or less.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}

	fields := strings.Fields(builder.String())
	tokens := make([]string, 0, len(fields))
	for _, token := range fields {
		if len(token) <= 2 {
			continue
		}
		tokens = append(tokens, token)
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// Cosine returns the cosine similarity of two vectors, or 0 when either is
// empty, mismatched in length, or all-zero.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// bm25Corpus holds the statistics BM25 needs over the candidate slice being
// ranked. Document frequency is computed over this slice, not the whole
// corpus: the semantic candidate pass defines the BM25 corpus.
type bm25Corpus struct {
	docs      [][]string
	docFreq   map[string]int
	avgDocLen float64
}

// newBM25Corpus tokenizes the candidate documents and precomputes statistics.
func newBM25Corpus(documents []string) *bm25Corpus {
	corpus := &bm25Corpus{
		docs:    make([][]string, len(documents)),
		docFreq: make(map[string]int),
	}

	totalLen := 0
	for i, doc := range documents {
		tokens := Tokenize(doc)
		corpus.docs[i] = tokens
		totalLen += len(tokens)

		seen := make(map[string]struct{}, len(tokens))
		for _, token := range tokens {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			corpus.docFreq[token]++
		}
	}
	if len(documents) > 0 {
		corpus.avgDocLen = float64(totalLen) / float64(len(documents))
	}
	return corpus
}

// score computes the Okapi BM25 score of document i for the query tokens.
func (c *bm25Corpus) score(i int, queryTokens []string) float64 {
	doc := c.docs[i]
	if len(doc) == 0 || len(queryTokens) == 0 {
		return 0
	}

	termFreq := make(map[string]int, len(doc))
	for _, token := range doc {
		termFreq[token]++
	}

	n := float64(len(c.docs))
	docLen := float64(len(doc))

	var total float64
	for _, token := range queryTokens {
		tf := float64(termFreq[token])
		if tf == 0 {
			continue
		}
		df := float64(c.docFreq[token])
		idf := math.Log((n-df+0.5)/(df+0.5) + 1)
		total += idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*(1-bm25B+bm25B*docLen/c.avgDocLen))
	}
	return total
}
