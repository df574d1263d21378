// Package tutor implements the dialogue state machine of a tutoring
// conversation: topic selection, the subtopic walkthrough, quizzes and the
// progress ledger.
package tutor

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/p-n-ai/pai-tutor/internal/curriculum"
	"github.com/p-n-ai/pai-tutor/internal/matcher"
)

// Tutorial binds a catalog to its matcher. It is immutable and shared by
// every Session on the same catalog.
type Tutorial struct {
	Catalog *curriculum.Catalog

	matcher *matcher.Matcher
	entries []curriculum.EntryRef
}

// NewTutorial prepares cat for conversations. Topic and entry labels are
// normalized once here.
func NewTutorial(cat *curriculum.Catalog, n *matcher.Normalizer) (*Tutorial, error) {
	entries := cat.Entries()
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.Subtopic
	}

	m, err := matcher.New(n, cat.TopicNames(), labels)
	if err != nil {
		return nil, fmt.Errorf("building matcher for %s: %w", cat.ID, err)
	}
	return &Tutorial{Catalog: cat, matcher: m, entries: entries}, nil
}

// NewSession starts a fresh conversation in the Idle state.
func (t *Tutorial) NewSession() *Session {
	return &Session{
		tut:      t,
		cat:      t.Catalog,
		subtopic: -1,
		progress: NewProgress(t.Catalog),
	}
}

// Reply is the outcome of one turn.
type Reply struct {
	Text   string
	Intent Intent
	// Exit is set when the learner asked to leave; the caller should end
	// the conversation after showing Text.
	Exit bool
	// Completed is the subtopic newly marked as taught this turn.
	Completed *curriculum.EntryRef
	// Graded is the quiz answer evaluated this turn.
	Graded *Grade
}

// Grade describes one evaluated quiz answer.
type Grade struct {
	Topic    string
	Question string
	Expected string
	Given    string
	Correct  bool
}

// Session is one learner's conversation. It is not safe for concurrent use.
type Session struct {
	tut *Tutorial
	cat *curriculum.Catalog

	state    State
	topic    string
	subtopic int

	quiz      []curriculum.QuizItem
	quizTopic string
	quizIndex int
	score     int

	progress *Progress
	ended    bool
}

// State returns the current dialogue state.
func (s *Session) State() State { return s.state }

// Mode returns ModeQuiz while a question is pending, ModeTutorial otherwise.
func (s *Session) Mode() Mode {
	if s.state == Quizzing {
		return ModeQuiz
	}
	return ModeTutorial
}

// Topic returns the current topic, or "".
func (s *Session) Topic() string { return s.topic }

// Subtopic returns the subtopic being taught, or "".
func (s *Session) Subtopic() string {
	if s.topic == "" || s.subtopic < 0 {
		return ""
	}
	subs := s.cat.SubtopicNames(s.topic)
	if s.subtopic >= len(subs) {
		return ""
	}
	return subs[s.subtopic]
}

// Progress returns the live progress ledger.
func (s *Session) Progress() *Progress { return s.progress }

// Catalog returns the catalog this session teaches.
func (s *Session) Catalog() *curriculum.Catalog { return s.cat }

// Ended reports whether the learner has exited.
func (s *Session) Ended() bool { return s.ended }

// IsExitCommand reports whether utterance would end the conversation.
func (s *Session) IsExitCommand(utterance string) bool {
	return s.cat.IsExitCommand(utterance)
}

// HandleInput processes one utterance and returns the reply text.
func (s *Session) HandleInput(utterance string) string {
	return s.Respond(utterance).Text
}

// Respond processes one utterance. Rules are tried in priority order and the
// first one that applies produces the reply.
func (s *Session) Respond(utterance string) Reply {
	u := strings.ToLower(strings.TrimSpace(utterance))

	if s.cat.IsExitCommand(u) {
		s.ended = true
		return Reply{Text: farewell(s.cat), Intent: IntentExit, Exit: true}
	}

	if s.state == Quizzing {
		return s.answer(u)
	}

	if s.state == AwaitingMenuChoice {
		switch u {
		case "1":
			return s.withIntent(s.startQuiz(), IntentMenuChoice)
		case "2":
			s.clearTopic()
			return Reply{Text: "Sure, let's choose a new topic.\n" + s.ListTopics(), Intent: IntentMenuChoice}
		case "3":
			return Reply{Text: s.ShowProgress(), Intent: IntentMenuChoice}
		}
	}

	if strings.Contains(u, "progress") {
		return Reply{Text: s.ShowProgress(), Intent: IntentProgress}
	}

	if strings.Contains(u, "topic") {
		return Reply{Text: s.ListTopics(), Intent: IntentTopicList}
	}

	if isDigits(u) && s.state != AwaitingMenuChoice {
		return Reply{Text: s.selectByIndex(u), Intent: IntentTopicIndex}
	}

	if s.topic != "" {
		switch {
		case u == "start" || strings.Contains(u, "next"):
			return s.withIntent(s.step(), IntentNext)
		case u == "quiz" || u == "1":
			return s.withIntent(s.startQuiz(), IntentQuiz)
		case u == "new topic" || u == "2":
			s.clearTopic()
			return Reply{Text: s.ListTopics(), Intent: IntentNewTopic}
		}
	}

	if r, ok := s.tut.matcher.MatchTopic(u); ok {
		return Reply{Text: s.selectTopic(r.Label), Intent: IntentTopicName}
	}

	return Reply{Text: s.fallback(u), Intent: IntentFallback}
}

// ListTopics renders the numbered topic list.
func (s *Session) ListTopics() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nAvailable %s Topics:\n", s.cat.Name)
	for i, t := range s.cat.Topics {
		fmt.Fprintf(&b, "%d. %s\n", i+1, capitalize(t.Name))
	}
	b.WriteString("\nWhich topic would you like to explore? (Type the topic name or number)")
	return b.String()
}

// NextSubtopic advances the walkthrough of the current topic.
func (s *Session) NextSubtopic() string {
	return s.NextSubtopicReply().Text
}

// NextSubtopicReply is NextSubtopic with the full turn outcome.
func (s *Session) NextSubtopicReply() Reply {
	if s.topic == "" {
		return Reply{Text: "Please choose a topic first. " + s.ListTopics(), Intent: IntentNext}
	}
	return s.withIntent(s.step(), IntentNext)
}

// StartQuiz starts the quiz of the current topic.
func (s *Session) StartQuiz() string {
	return s.startQuiz().Text
}

// ShowProgress renders the per-topic progress report.
func (s *Session) ShowProgress() string {
	var b strings.Builder
	b.WriteString("Here's your learning progress:\n")
	for _, tp := range s.progress.Snapshot() {
		fmt.Fprintf(&b, "%s: %d/%d subtopics completed (%d%%)\n", capitalize(tp.Topic), tp.Completed, tp.Total, tp.Percent)
	}
	return b.String()
}

// Greet returns the opening line of a conversation.
func (s *Session) Greet() string {
	return fmt.Sprintf("Hello! I'm your %s Tutorial Agent. How can I help you today? Type 'topics' to see what I can teach you.", s.cat.Name)
}

// Help explains how to drive the conversation.
func (s *Session) Help() string {
	return "You can ask me about programming topics, or use /topics, /next, /quiz and /progress. " +
		"Type 'topics' to see available topics, 'next' to move to the next subtopic, " +
		"or 'quiz' to start a quiz on the current topic."
}

func (s *Session) withIntent(r Reply, i Intent) Reply {
	r.Intent = i
	return r
}

func (s *Session) selectByIndex(u string) string {
	n, err := strconv.Atoi(u)
	if err != nil || n < 1 || n > len(s.cat.Topics) {
		return fmt.Sprintf("Please enter a number between 1 and %d.", len(s.cat.Topics))
	}
	return s.selectTopic(s.cat.Topics[n-1].Name)
}

func (s *Session) selectTopic(name string) string {
	s.topic = name
	s.subtopic = -1
	s.state = TopicSelected
	return fmt.Sprintf("Great! Let's learn about %s. We'll cover: %s.\nType 'start' when you're ready to begin, or ask me anything about %s.",
		name, strings.Join(s.cat.SubtopicNames(name), ", "), name)
}

func (s *Session) clearTopic() {
	s.topic = ""
	s.subtopic = -1
	s.state = Idle
}

// resting is the state to return to when a quiz or menu is over.
func (s *Session) resting() State {
	if s.topic == "" {
		return Idle
	}
	return TopicSelected
}

// step moves the walkthrough forward by one subtopic.
func (s *Session) step() Reply {
	subs := s.cat.SubtopicNames(s.topic)
	next := s.subtopic + 1
	if next >= len(subs) {
		s.subtopic = -1
		s.state = AwaitingMenuChoice
		return Reply{Text: menuText}
	}

	s.subtopic = next
	s.state = TopicSelected
	name := subs[next]

	r := Reply{}
	if s.progress.MarkCompleted(s.topic, name) {
		r.Completed = &curriculum.EntryRef{Topic: s.topic, Subtopic: name}
	}

	content, ok := s.cat.Lookup(s.topic, name)
	if !ok {
		r.Text = fmt.Sprintf("Information about %s is not available at the moment. Type 'next' to continue.", name)
		return r
	}
	r.Text = fmt.Sprintf("Let's learn about %s:\n\n%s\n\nWhat would you like to know more about %s, or type 'next' to continue?",
		name, content.Render(), name)
	return r
}

func (s *Session) fallback(u string) string {
	best := s.tut.matcher.BestEntry(u)
	ref := s.tut.entries[best.Index]

	info := "Information not available for this subtopic."
	if content, ok := s.cat.Lookup(s.topic, ref.Subtopic); ok {
		info = content.Render()
	}
	return fmt.Sprintf("Based on your question, I think you might be interested in %s. Here's what I know:\n\n%s\n\nDo you want to know more about this, or shall we move to the next topic? Type 'next' to continue or ask me anything else.",
		ref.Subtopic, info)
}

func isDigits(u string) bool {
	if u == "" {
		return false
	}
	for i := 0; i < len(u); i++ {
		if u[i] < '0' || u[i] > '9' {
			return false
		}
	}
	return true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func farewell(cat *curriculum.Catalog) string {
	return fmt.Sprintf("Thank you for using the %s Tutorial Agent. Goodbye!", cat.Name)
}

const menuText = "We've covered all subtopics in this area. Great job!\n" +
	"Would you like to:\n" +
	"1. Take a quiz on this topic\n" +
	"2. Choose a new topic to learn about\n" +
	"3. See your overall progress\n" +
	"Type the number of your choice or ask me anything!"
