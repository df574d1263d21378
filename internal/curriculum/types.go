package curriculum

import (
	"strings"

	"github.com/samber/lo"
)

// DefaultExitCommands are used when a catalog does not declare its own.
var DefaultExitCommands = []string{"exit", "quit", "stop", "bye", "goodbye"}

// Catalog is one tutorial: an ordered topic tree with its knowledge entries
// and quiz bank. Catalogs are immutable once loaded.
type Catalog struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	ExitCommands []string `yaml:"exit_commands"`
	Topics       []Topic  `yaml:"topics"`
}

// Topic is a top-level curriculum unit.
type Topic struct {
	Name      string     `yaml:"name"`
	Subtopics []Subtopic `yaml:"subtopics"`
	Quiz      []QuizItem `yaml:"quiz"`
}

// Subtopic is an ordered unit within a topic. Content.Value() is nil when the
// knowledge base has nothing for it.
type Subtopic struct {
	Name    string `yaml:"name"`
	Content Entry  `yaml:"content"`
}

// QuizItem is a single question with its expected answer.
type QuizItem struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// EntryRef points at one knowledge entry inside the topic tree.
type EntryRef struct {
	Topic    string
	Subtopic string
}

// TopicNames returns topic names in curriculum order.
func (c *Catalog) TopicNames() []string {
	return lo.Map(c.Topics, func(t Topic, _ int) string { return t.Name })
}

// Topic returns the topic with the given name.
func (c *Catalog) Topic(name string) (*Topic, bool) {
	for i := range c.Topics {
		if c.Topics[i].Name == name {
			return &c.Topics[i], true
		}
	}
	return nil, false
}

// SubtopicNames returns the ordered subtopic names of a topic, or nil.
func (c *Catalog) SubtopicNames(topic string) []string {
	t, ok := c.Topic(topic)
	if !ok {
		return nil
	}
	return lo.Map(t.Subtopics, func(s Subtopic, _ int) string { return s.Name })
}

// Quiz returns the quiz bank for a topic. A topic without questions, or an
// unknown topic, yields an empty slice.
func (c *Catalog) Quiz(topic string) []QuizItem {
	t, ok := c.Topic(topic)
	if !ok {
		return nil
	}
	return t.Quiz
}

// Lookup resolves the content of a subtopic. The scope topic is searched
// first so that a name shared by several topics resolves to the one the
// learner is currently studying; the rest of the tree is searched in order.
func (c *Catalog) Lookup(scope, subtopic string) (Content, bool) {
	if t, ok := c.Topic(scope); ok {
		for _, s := range t.Subtopics {
			if s.Name == subtopic {
				return s.Content.Value(), s.Content.Value() != nil
			}
		}
	}
	for _, t := range c.Topics {
		for _, s := range t.Subtopics {
			if s.Name == subtopic && s.Content.Value() != nil {
				return s.Content.Value(), true
			}
		}
	}
	return nil, false
}

// Entries lists every subtopic of every topic in curriculum order. These are
// the candidates for fallback matching.
func (c *Catalog) Entries() []EntryRef {
	var refs []EntryRef
	for _, t := range c.Topics {
		for _, s := range t.Subtopics {
			refs = append(refs, EntryRef{Topic: t.Name, Subtopic: s.Name})
		}
	}
	return refs
}

// IsExitCommand reports whether the utterance contains one of the catalog's
// exit keywords.
func (c *Catalog) IsExitCommand(utterance string) bool {
	cmds := c.ExitCommands
	if len(cmds) == 0 {
		cmds = DefaultExitCommands
	}
	u := strings.ToLower(utterance)
	return lo.ContainsBy(cmds, func(cmd string) bool {
		return cmd != "" && strings.Contains(u, strings.ToLower(cmd))
	})
}
