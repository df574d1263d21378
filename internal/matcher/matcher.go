// Package matcher resolves free-text learner input to curriculum entries.
//
// Resolution runs in two stages. Explicit topic mentions are found by
// substring containment, in the raw text or in its normalized form. Anything
// else is ranked against the knowledge entries by TF-IDF cosine similarity,
// which always yields a candidate.
package matcher

import (
	"strings"
)

// Kind tells which stage produced a Result.
type Kind int

const (
	// KindTopic is an explicit topic mention.
	KindTopic Kind = iota
	// KindEntry is a knowledge entry picked by similarity ranking.
	KindEntry
)

func (k Kind) String() string {
	switch k {
	case KindTopic:
		return "topic"
	case KindEntry:
		return "entry"
	default:
		return "unknown"
	}
}

// Result is a resolved candidate.
type Result struct {
	Kind  Kind
	Index int
	Label string
	Score float64
}

// Matcher resolves utterances against one catalog's topics and entries.
type Matcher struct {
	norm      *Normalizer
	topics    []string
	topicsLow []string
	entries   *Index
}

// New creates a Matcher. Topic order decides which topic wins when several
// are mentioned; entry order breaks similarity ties. entries must not be
// empty.
func New(n *Normalizer, topics, entries []string) (*Matcher, error) {
	idx, err := NewIndex(n, entries)
	if err != nil {
		return nil, err
	}

	m := &Matcher{
		norm:      n,
		topics:    append([]string(nil), topics...),
		topicsLow: make([]string, len(topics)),
		entries:   idx,
	}
	for i, t := range topics {
		m.topicsLow[i] = strings.ToLower(t)
	}
	return m, nil
}

// MatchTopic returns the first topic whose lowercased name is a substring of
// the lowercased utterance or of its normalized form. Topic names are
// matched as written; they are never normalized.
func (m *Matcher) MatchTopic(utterance string) (Result, bool) {
	raw := strings.ToLower(utterance)
	var normalized string
	haveNormalized := false
	for i, low := range m.topicsLow {
		if low == "" {
			continue
		}
		if strings.Contains(raw, low) {
			return Result{Kind: KindTopic, Index: i, Label: m.topics[i], Score: 1}, true
		}
		if !haveNormalized {
			normalized = m.norm.Normalize(utterance)
			haveNormalized = true
		}
		if strings.Contains(normalized, low) {
			return Result{Kind: KindTopic, Index: i, Label: m.topics[i], Score: 1}, true
		}
	}
	return Result{}, false
}

// BestEntry ranks every knowledge entry against the utterance and returns
// the most similar one.
func (m *Matcher) BestEntry(utterance string) Result {
	i, score := m.entries.Best(utterance)
	return Result{Kind: KindEntry, Index: i, Label: m.entries.Label(i), Score: score}
}

// Resolve tries an explicit topic mention first and falls back to entry
// ranking.
func (m *Matcher) Resolve(utterance string) Result {
	if r, ok := m.MatchTopic(utterance); ok {
		return r
	}
	return m.BestEntry(utterance)
}
