package tutor_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/p-n-ai/pai-tutor/internal/curriculum"
	"github.com/p-n-ai/pai-tutor/internal/tutor"
)

func eightSubtopics() *curriculum.Catalog {
	subs := make([]curriculum.Subtopic, 8)
	for i := range subs {
		subs[i] = curriculum.Subtopic{Name: string(rune('a' + i))}
	}
	return &curriculum.Catalog{
		ID:   "eight",
		Name: "Eight",
		Topics: []curriculum.Topic{
			{Name: "letters", Subtopics: subs},
			{Name: "empty"},
		},
	}
}

func TestProgress_StartsEmpty(t *testing.T) {
	p := tutor.NewProgress(eightSubtopics())
	if c, total := p.Count("letters"); c != 0 || total != 8 {
		t.Errorf("Count(letters) = %d/%d, want 0/8", c, total)
	}
	if p.IsCompleted("letters", "a") {
		t.Error("IsCompleted(letters, a) = true on a fresh ledger")
	}
}

func TestProgress_MarkCompleted(t *testing.T) {
	p := tutor.NewProgress(eightSubtopics())

	if !p.MarkCompleted("letters", "a") {
		t.Error("first MarkCompleted should report a change")
	}
	if p.MarkCompleted("letters", "a") {
		t.Error("second MarkCompleted should be a no-op")
	}
	if p.MarkCompleted("letters", "zz") || p.MarkCompleted("nope", "a") {
		t.Error("unknown subtopics must be ignored")
	}
	if c, _ := p.Count("letters"); c != 1 {
		t.Errorf("Count(letters) = %d, want 1", c)
	}
}

func TestProgress_Percent(t *testing.T) {
	tests := []struct {
		completed int
		want      int
	}{
		{0, 0},
		{1, 12}, // 12.5 rounds to even
		{2, 25},
		{3, 38}, // 37.5 rounds to even
		{5, 62}, // 62.5 rounds to even
		{7, 88}, // 87.5 rounds to even
		{8, 100},
	}

	for _, tt := range tests {
		p := tutor.NewProgress(eightSubtopics())
		for i := 0; i < tt.completed; i++ {
			p.MarkCompleted("letters", string(rune('a'+i)))
		}
		if got := p.Percent("letters"); got != tt.want {
			t.Errorf("Percent with %d/8 = %d, want %d", tt.completed, got, tt.want)
		}
	}

	if got := tutor.NewProgress(eightSubtopics()).Percent("empty"); got != 0 {
		t.Errorf("Percent(empty) = %d, want 0", got)
	}
}

func TestProgress_Snapshot(t *testing.T) {
	cat := &curriculum.Catalog{
		Topics: []curriculum.Topic{
			{Name: "one", Subtopics: []curriculum.Subtopic{{Name: "x"}, {Name: "y"}, {Name: "z"}}},
		},
	}
	p := tutor.NewProgress(cat)
	p.MarkCompleted("one", "y")

	want := []tutor.TopicProgress{{
		Topic:     "one",
		Completed: 1,
		Total:     3,
		Percent:   33,
		Subtopics: []tutor.SubtopicProgress{
			{Name: "x"},
			{Name: "y", Completed: true},
			{Name: "z"},
		},
	}}
	if diff := cmp.Diff(want, p.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}
