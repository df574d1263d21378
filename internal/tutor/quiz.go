package tutor

import (
	"fmt"
	"strings"
)

// startQuiz loads the quiz bank of the current topic and asks the first
// question. A topic without questions leaves the session in tutorial mode.
func (s *Session) startQuiz() Reply {
	s.quiz = s.cat.Quiz(s.topic)
	s.quizTopic = s.topic
	s.quizIndex = 0
	s.score = 0

	if len(s.quiz) == 0 {
		s.state = s.resting()
		return Reply{Text: "Sorry, there are no quiz questions available for this topic."}
	}
	s.state = Quizzing
	return Reply{Text: s.question()}
}

func (s *Session) question() string {
	return fmt.Sprintf("Quiz Question %d: %s", s.quizIndex+1, s.quiz[s.quizIndex].Question)
}

// answer grades u against the pending question and moves on.
func (s *Session) answer(u string) Reply {
	item := s.quiz[s.quizIndex]
	expected := strings.TrimSpace(item.Answer)
	correct := u == strings.ToLower(expected)

	r := Reply{
		Intent: IntentQuizAnswer,
		Graded: &Grade{
			Topic:    s.quizTopic,
			Question: item.Question,
			Expected: expected,
			Given:    u,
			Correct:  correct,
		},
	}

	var b strings.Builder
	if correct {
		s.score++
		b.WriteString("Correct!")
	} else {
		b.WriteString("Sorry, the correct answer is: ")
		b.WriteString(expected)
	}
	b.WriteString("\n\n")

	s.quizIndex++
	if s.quizIndex < len(s.quiz) {
		b.WriteString(s.question())
	} else {
		b.WriteString(s.finishQuiz())
	}
	r.Text = b.String()
	return r
}

func (s *Session) finishQuiz() string {
	total := len(s.quiz)
	s.quiz = nil
	s.quizIndex = 0
	s.state = s.resting()
	return fmt.Sprintf("Quiz completed! You answered %d of %d questions correctly. Well done! Type 'next' to continue with the tutorial or choose a new topic.",
		s.score, total)
}

// Score returns the correct answers and questions asked in the current or
// most recent quiz.
func (s *Session) Score() (correct, asked int) {
	if s.state == Quizzing {
		return s.score, s.quizIndex
	}
	return s.score, len(s.cat.Quiz(s.quizTopic))
}
