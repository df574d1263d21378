package tutor

// State is the position of a Session in the dialogue.
type State int

const (
	// Idle means no topic is selected.
	Idle State = iota
	// TopicSelected means a topic is chosen and the walkthrough may be in
	// progress.
	TopicSelected
	// AwaitingMenuChoice means the walkthrough is exhausted and the
	// quiz/new topic/progress menu is pending.
	AwaitingMenuChoice
	// Quizzing means a quiz question is waiting for an answer.
	Quizzing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case TopicSelected:
		return "topic_selected"
	case AwaitingMenuChoice:
		return "awaiting_menu_choice"
	case Quizzing:
		return "quizzing"
	default:
		return "unknown"
	}
}

// Mode is the coarse tutorial/quiz mode derived from State.
type Mode string

const (
	ModeTutorial Mode = "tutorial"
	ModeQuiz     Mode = "quiz"
)

// Intent names the rule that handled an utterance.
type Intent string

const (
	IntentExit       Intent = "exit"
	IntentQuizAnswer Intent = "quiz_answer"
	IntentMenuChoice Intent = "menu_choice"
	IntentProgress   Intent = "progress"
	IntentTopicList  Intent = "topic_list"
	IntentTopicIndex Intent = "topic_index"
	IntentNext       Intent = "next"
	IntentQuiz       Intent = "quiz"
	IntentNewTopic   Intent = "new_topic"
	IntentTopicName  Intent = "topic_name"
	IntentFallback   Intent = "fallback"
)
