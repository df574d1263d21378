// Package report renders what a learner did in a session: the chat log as
// plain text and the progress ledger as a spreadsheet.
package report

import (
	"bufio"
	"fmt"
	"io"
)

// Speaker labels used in transcripts.
const (
	SpeakerLearner = "You"
	SpeakerAgent   = "Agent"
)

// Line is one displayed chat message.
type Line struct {
	Speaker string
	Text    string
}

// WriteTranscript writes lines as "Speaker: text", each followed by a
// blank line.
func WriteTranscript(w io.Writer, lines []Line) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := fmt.Fprintf(bw, "%s: %s\n\n", l.Speaker, l.Text); err != nil {
			return fmt.Errorf("writing transcript: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	return nil
}
