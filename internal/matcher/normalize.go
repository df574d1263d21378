package matcher

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Lemmatizer reduces a lowercase word to its dictionary base form.
type Lemmatizer interface {
	Lemma(word string) string
}

// LemmatizerFunc adapts a plain function to Lemmatizer.
type LemmatizerFunc func(string) string

func (f LemmatizerFunc) Lemma(word string) string { return f(word) }

// Identity leaves every word unchanged.
var Identity = LemmatizerFunc(func(w string) string { return w })

// englishLemmatizer loads the golem English dictionary once. Loading takes a
// noticeable moment, so every Normalizer in the process shares it.
var englishLemmatizer = sync.OnceValues(func() (*golem.Lemmatizer, error) {
	return golem.New(en.New())
})

// EnglishLemmatizer returns the shared English dictionary lemmatizer.
func EnglishLemmatizer() (Lemmatizer, error) {
	lem, err := englishLemmatizer()
	if err != nil {
		return nil, fmt.Errorf("loading english lemmatizer: %w", err)
	}
	return lem, nil
}

// Normalizer turns free text into comparable tokens. It is safe for
// concurrent use.
type Normalizer struct {
	lem       Lemmatizer
	stopwords map[string]struct{}
}

// NewNormalizer creates a Normalizer using lem. A nil lem leaves tokens
// unlemmatized.
func NewNormalizer(lem Lemmatizer) *Normalizer {
	if lem == nil {
		lem = Identity
	}
	return &Normalizer{lem: lem, stopwords: englishStopwords}
}

// NewEnglishNormalizer creates a Normalizer backed by the English dictionary.
func NewEnglishNormalizer() (*Normalizer, error) {
	lem, err := EnglishLemmatizer()
	if err != nil {
		return nil, err
	}
	return NewNormalizer(lem), nil
}

// Tokens lowercases s, splits it into words, drops stop words and reduces
// the rest to their base form.
func (n *Normalizer) Tokens(s string) []string {
	s = cases.Lower(language.English).String(norm.NFKC.String(s))
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := n.stopwords[w]; stop {
			continue
		}
		lemma := strings.ToLower(n.lem.Lemma(w))
		if lemma == "" || !isAlnum(lemma) {
			continue
		}
		tokens = append(tokens, lemma)
	}
	return tokens
}

// Normalize returns the tokens of s joined by single spaces.
func (n *Normalizer) Normalize(s string) string {
	return strings.Join(n.Tokens(s), " ")
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
