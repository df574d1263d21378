package matcher

import (
	"errors"
	"math"
	"sort"
	"unicode/utf8"
)

// ErrNoCandidates is returned when an Index is built over nothing.
var ErrNoCandidates = errors.New("matcher: no candidates")

// minTermRunes drops single-character terms from the vector space.
const minTermRunes = 2

// Index ranks candidate labels against a query by TF-IDF cosine similarity.
// Candidate labels are normalized once; the vector space itself is rebuilt
// for every query because the query takes part in the document frequencies.
type Index struct {
	norm   *Normalizer
	labels []string
	docs   [][]string
}

// NewIndex normalizes labels into an Index. The order of labels is the
// tie-break order of Best.
func NewIndex(n *Normalizer, labels []string) (*Index, error) {
	if len(labels) == 0 {
		return nil, ErrNoCandidates
	}
	ix := &Index{
		norm:   n,
		labels: append([]string(nil), labels...),
		docs:   make([][]string, len(labels)),
	}
	for i, l := range labels {
		ix.docs[i] = terms(n.Tokens(l))
	}
	return ix, nil
}

// Len returns the number of candidates.
func (ix *Index) Len() int { return len(ix.labels) }

// Label returns the i-th candidate label.
func (ix *Index) Label(i int) string { return ix.labels[i] }

// Scores returns the cosine similarity of query against every candidate, in
// candidate order.
func (ix *Index) Scores(query string) []float64 {
	q := terms(ix.norm.Tokens(query))

	// Vocabulary and document frequencies over candidates plus the query.
	df := make(map[string]int)
	countDF := func(doc []string) {
		seen := make(map[string]bool, len(doc))
		for _, t := range doc {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}
	for _, d := range ix.docs {
		countDF(d)
	}
	countDF(q)

	vocab := make([]string, 0, len(df))
	for t := range df {
		vocab = append(vocab, t)
	}
	sort.Strings(vocab)

	n := float64(len(ix.docs) + 1)
	pos := make(map[string]int, len(vocab))
	idf := make([]float64, len(vocab))
	for i, t := range vocab {
		pos[t] = i
		idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	qv := vectorize(q, pos, idf)
	scores := make([]float64, len(ix.docs))
	for i, d := range ix.docs {
		scores[i] = dot(qv, vectorize(d, pos, idf))
	}
	return scores
}

// Best returns the index and score of the candidate most similar to query.
// The first candidate wins ties, so a query sharing no terms with any
// candidate resolves to candidate 0.
func (ix *Index) Best(query string) (int, float64) {
	best, bestScore := 0, math.Inf(-1)
	for i, s := range ix.Scores(query) {
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore
}

func terms(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if utf8.RuneCountInString(t) >= minTermRunes {
			out = append(out, t)
		}
	}
	return out
}

// vectorize builds an L2-normalized tf-idf vector. An empty document yields
// the zero vector.
func vectorize(doc []string, pos map[string]int, idf []float64) []float64 {
	v := make([]float64, len(idf))
	for _, t := range doc {
		v[pos[t]]++
	}
	var sum float64
	for i := range v {
		v[i] *= idf[i]
		sum += v[i] * v[i]
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
	return v
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
