package curriculum_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/p-n-ai/pai-tutor/internal/curriculum"
)

func sharedNameCatalog() *curriculum.Catalog {
	return &curriculum.Catalog{
		ID:   "test",
		Name: "Test",
		Topics: []curriculum.Topic{
			{Name: "alpha", Subtopics: []curriculum.Subtopic{
				{Name: "classes", Content: curriculum.NewEntry(curriculum.Text("alpha classes"))},
				{Name: "empty"},
			}},
			{Name: "beta", Subtopics: []curriculum.Subtopic{
				{Name: "classes", Content: curriculum.NewEntry(curriculum.Text("beta classes"))},
				{Name: "empty", Content: curriculum.NewEntry(curriculum.Text("beta empty"))},
			}},
		},
	}
}

func TestCatalog_Lookup_PrefersScope(t *testing.T) {
	c := sharedNameCatalog()

	tests := []struct {
		scope, subtopic string
		want            string
		found           bool
	}{
		{"alpha", "classes", "alpha classes", true},
		{"beta", "classes", "beta classes", true},
		{"", "classes", "alpha classes", true},
		{"alpha", "empty", "", false},
		{"", "empty", "beta empty", true},
		{"alpha", "missing", "", false},
	}

	for _, tt := range tests {
		got, ok := c.Lookup(tt.scope, tt.subtopic)
		if ok != tt.found {
			t.Errorf("Lookup(%q, %q) found = %v, want %v", tt.scope, tt.subtopic, ok, tt.found)
			continue
		}
		if ok && got.Render() != tt.want {
			t.Errorf("Lookup(%q, %q) = %q, want %q", tt.scope, tt.subtopic, got.Render(), tt.want)
		}
	}
}

func TestCatalog_Entries(t *testing.T) {
	got := sharedNameCatalog().Entries()
	want := []curriculum.EntryRef{
		{Topic: "alpha", Subtopic: "classes"},
		{Topic: "alpha", Subtopic: "empty"},
		{Topic: "beta", Subtopic: "classes"},
		{Topic: "beta", Subtopic: "empty"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_TopicLookups(t *testing.T) {
	c := sharedNameCatalog()

	if diff := cmp.Diff([]string{"alpha", "beta"}, c.TopicNames()); diff != "" {
		t.Errorf("TopicNames() mismatch (-want +got):\n%s", diff)
	}
	if got := c.SubtopicNames("gamma"); got != nil {
		t.Errorf("SubtopicNames(gamma) = %v, want nil", got)
	}
	if got := c.Quiz("alpha"); len(got) != 0 {
		t.Errorf("Quiz(alpha) = %v, want empty", got)
	}
}

func TestCatalog_IsExitCommand(t *testing.T) {
	c := sharedNameCatalog()

	tests := []struct {
		input string
		want  bool
	}{
		{"exit", true},
		{"Goodbye!", true},
		{"I want to quit now", true},
		{"stopwatch", true},
		{"next", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := c.IsExitCommand(tt.input); got != tt.want {
			t.Errorf("IsExitCommand(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}

	c.ExitCommands = []string{"adios"}
	if c.IsExitCommand("bye") {
		t.Error("custom exit commands should replace the defaults")
	}
	if !c.IsExitCommand("ADIOS amigo") {
		t.Error("IsExitCommand should match custom commands case-insensitively")
	}
}

func TestLesson_Render(t *testing.T) {
	l := curriculum.Lesson{
		Description: "Named references to values.",
		Examples: []curriculum.Example{
			{Name: "basic_variables", Code: "x = 1\n"},
			{Code: "y = 2"},
		},
		BestPractices: []string{"Use descriptive names", "Use snake_case"},
	}

	want := strings.Join([]string{
		"Named references to values.",
		"",
		"Examples:",
		"",
		"Basic variables:",
		"x = 1",
		"",
		"y = 2",
		"",
		"Best practices:",
		"- Use descriptive names",
		"- Use snake_case",
	}, "\n")

	if diff := cmp.Diff(want, l.Render()); diff != "" {
		t.Errorf("Render() mismatch (-want +got):\n%s", diff)
	}
}

func TestEntry_DecodeShapes(t *testing.T) {
	doc := `
id: shapes
name: Shapes
topics:
  - name: t
    subtopics:
      - name: text
        content: "  plain text  "
      - name: lesson
        content:
          description: structured
      - name: blank
        content: ""
      - name: absent
`
	cat, err := curriculum.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	subs := cat.Topics[0].Subtopics
	if got, ok := subs[0].Content.Value().(curriculum.Text); !ok || got.Render() != "plain text" {
		t.Errorf("text content = %#v", subs[0].Content.Value())
	}
	if got, ok := subs[1].Content.Value().(curriculum.Lesson); !ok || got.Description != "structured" {
		t.Errorf("lesson content = %#v", subs[1].Content.Value())
	}
	if subs[2].Content.Value() != nil {
		t.Errorf("blank content = %#v, want nil", subs[2].Content.Value())
	}
	if subs[3].Content.Value() != nil {
		t.Errorf("absent content = %#v, want nil", subs[3].Content.Value())
	}
}
