package curriculum

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Content is renderable knowledge for a subtopic. It is either Text or
// Lesson; callers only ever need Render.
type Content interface {
	Render() string
	isContent()
}

// Text is a plain explanation.
type Text string

func (t Text) Render() string { return strings.TrimSpace(string(t)) }
func (Text) isContent()        {}

// Example is a named code sample inside a Lesson.
type Example struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// Lesson is structured knowledge: a description with optional examples and
// best practices.
type Lesson struct {
	Description   string    `yaml:"description"`
	Examples      []Example `yaml:"examples"`
	BestPractices []string  `yaml:"best_practices"`
}

func (Lesson) isContent() {}

// Render lays the lesson out as plain text.
func (l Lesson) Render() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(l.Description))

	if len(l.Examples) > 0 {
		b.WriteString("\n\nExamples:")
		for _, ex := range l.Examples {
			b.WriteString("\n\n")
			if ex.Name != "" {
				b.WriteString(humanize(ex.Name))
				b.WriteString(":\n")
			}
			b.WriteString(strings.TrimRight(ex.Code, "\n"))
		}
	}

	if len(l.BestPractices) > 0 {
		b.WriteString("\n\nBest practices:")
		for _, p := range l.BestPractices {
			b.WriteString("\n- ")
			b.WriteString(p)
		}
	}
	return b.String()
}

// Entry holds an optional Content value and decodes it from either YAML
// shape: a scalar string or a lesson mapping.
type Entry struct {
	value Content
}

// NewEntry wraps c.
func NewEntry(c Content) Entry { return Entry{value: c} }

// Value returns the wrapped content, or nil.
func (e Entry) Value() Content { return e.value }

func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			e.value = nil
			return nil
		}
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			e.value = nil
			return nil
		}
		e.value = Text(s)
		return nil
	case yaml.MappingNode:
		var l Lesson
		if err := node.Decode(&l); err != nil {
			return err
		}
		e.value = l
		return nil
	default:
		return fmt.Errorf("line %d: content must be a string or a mapping", node.Line)
	}
}

func humanize(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
