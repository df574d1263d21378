package tutor

import (
	"math"

	"github.com/p-n-ai/pai-tutor/internal/curriculum"
)

// Progress records which subtopics a learner has been taught. Entries only
// ever go from false to true.
type Progress struct {
	topics []string
	subs   map[string][]string
	done   map[string]map[string]bool
}

// NewProgress creates an all-false ledger for every subtopic in cat.
func NewProgress(cat *curriculum.Catalog) *Progress {
	p := &Progress{
		subs: make(map[string][]string, len(cat.Topics)),
		done: make(map[string]map[string]bool, len(cat.Topics)),
	}
	for _, t := range cat.Topics {
		p.topics = append(p.topics, t.Name)
		names := cat.SubtopicNames(t.Name)
		p.subs[t.Name] = names
		p.done[t.Name] = make(map[string]bool, len(names))
		for _, s := range names {
			p.done[t.Name][s] = false
		}
	}
	return p
}

// MarkCompleted sets the flag for a subtopic. It reports whether the flag
// changed; unknown subtopics are ignored.
func (p *Progress) MarkCompleted(topic, subtopic string) bool {
	flags, ok := p.done[topic]
	if !ok {
		return false
	}
	done, ok := flags[subtopic]
	if !ok || done {
		return false
	}
	flags[subtopic] = true
	return true
}

// IsCompleted reports whether a subtopic has been taught.
func (p *Progress) IsCompleted(topic, subtopic string) bool {
	return p.done[topic][subtopic]
}

// Count returns the completed and total subtopic counts of a topic.
func (p *Progress) Count(topic string) (completed, total int) {
	for _, s := range p.subs[topic] {
		if p.done[topic][s] {
			completed++
		}
	}
	return completed, len(p.subs[topic])
}

// Percent returns the rounded completion percentage of a topic. Halves round
// to even; a topic without subtopics is at 0%.
func (p *Progress) Percent(topic string) int {
	c, t := p.Count(topic)
	return percent(c, t)
}

func percent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.RoundToEven(100 * float64(completed) / float64(total)))
}

// TopicProgress is a read-only snapshot of one topic's progress.
type TopicProgress struct {
	Topic     string
	Completed int
	Total     int
	Percent   int
	Subtopics []SubtopicProgress
}

// SubtopicProgress is one row of a TopicProgress.
type SubtopicProgress struct {
	Name      string
	Completed bool
}

// Snapshot copies the ledger in curriculum order.
func (p *Progress) Snapshot() []TopicProgress {
	out := make([]TopicProgress, 0, len(p.topics))
	for _, t := range p.topics {
		c, total := p.Count(t)
		tp := TopicProgress{Topic: t, Completed: c, Total: total, Percent: percent(c, total)}
		for _, s := range p.subs[t] {
			tp.Subtopics = append(tp.Subtopics, SubtopicProgress{Name: s, Completed: p.done[t][s]})
		}
		out = append(out, tp)
	}
	return out
}
