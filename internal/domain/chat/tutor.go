package chat

import (
	"fmt"
	"strings"

	"github.com/paperfinder/paperfinder/internal/domain"
)

// SolutionMarker ends the reply that completes a guided solution.
const SolutionMarker = "[SOLUTION COMPLETE]"

// ErrorReply is stored when a tutor turn fails.
const ErrorReply = "Sorry, I encountered an error. Please check your OpenAI API key and try again."

var stepTriggers = []string{"step by step", "explain how"}

// Action is a canned tutor request.
type Action string

// Action constants.
const (
	ActionExplain Action = "explain"
	ActionHint    Action = "hint"
	ActionConcept Action = "concept"
	ActionNext    Action = "next"
)

// QuickAction returns the user message for a canned action and whether it
// advances the guided solution.
func QuickAction(a Action) (text string, stepRequest bool, err error) {
	switch a {
	case ActionExplain:
		return "Please explain how to solve this question step by step, one step at a time.", false, nil
	case ActionHint:
		return "Can you give me a hint to get started on this question?", false, nil
	case ActionConcept:
		return "What mathematical concepts do I need to know for this question?", false, nil
	case ActionNext:
		return "I understand, let's move to the next step.", true, nil
	default:
		return "", false, fmt.Errorf("%w: unknown tutor action %q", domain.ErrInvalidInput, a)
	}
}

// Transcript is the tutor conversation about one question.
type Transcript struct {
	labelID          string
	messages         []Message
	stepMode         bool
	step             int
	solutionComplete bool
}

// NewTranscript creates an empty transcript.
func NewTranscript() Transcript { return Transcript{} }

// RestoreTranscript rebuilds a transcript from storage.
func RestoreTranscript(labelID string, messages []Message, stepMode bool, step int, solutionComplete bool) Transcript {
	return Transcript{
		labelID:          labelID,
		messages:         messages,
		stepMode:         stepMode,
		step:             step,
		solutionComplete: solutionComplete,
	}
}

// LabelID returns the question being discussed.
func (t Transcript) LabelID() string { return t.labelID }

// Messages returns the user and assistant turns so far.
func (t Transcript) Messages() []Message { return append([]Message(nil), t.messages...) }

// StepMode reports whether a guided solution is in progress.
func (t Transcript) StepMode() bool { return t.stepMode }

// Step returns the current step number, 0 outside step mode.
func (t Transcript) Step() int { return t.step }

// SolutionComplete reports whether the final step was delivered.
func (t Transcript) SolutionComplete() bool { return t.solutionComplete }

// Focus switches the transcript to another question, wiping it when the
// question changes.
func (t *Transcript) Focus(labelID string) {
	if labelID == t.labelID {
		return
	}
	*t = Transcript{labelID: labelID}
}

// Turn is what must be sent upstream for one user message.
type Turn struct {
	Messages []Message
	Step     int
}

// Begin records a user message and builds the upstream conversation. The
// question image, when given as a data URL, rides along with the user turn.
func (t *Transcript) Begin(text string, stepRequest bool, imageURL string) (Turn, error) {
	if strings.TrimSpace(text) == "" {
		return Turn{}, fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}
	if t.labelID == "" {
		return Turn{}, fmt.Errorf("%w: no question selected", domain.ErrInvalidInput)
	}

	trigger := isStepTrigger(text)
	var system string
	step := 0
	if t.stepMode || trigger {
		step = 1
		if stepRequest {
			step = t.step + 1
		}
		system = StepPrompt(step)
	} else {
		system = HintPrompt()
	}

	msgs := make([]Message, 0, len(t.messages)+2)
	msgs = append(msgs, TextMessage(RoleSystem, system))
	msgs = append(msgs, t.messages...)
	if imageURL != "" {
		msgs = append(msgs, Message{Role: RoleUser, Parts: []Part{
			{Type: PartImageURL, ImageURL: imageURL},
			{Type: PartText, Text: text},
		}})
	} else {
		msgs = append(msgs, TextMessage(RoleUser, text))
	}

	t.messages = append(t.messages, TextMessage(RoleUser, text))
	switch {
	case trigger:
		t.stepMode = true
		t.step = 1
	case stepRequest:
		t.step++
	}

	return Turn{Messages: msgs, Step: step}, nil
}

// Complete stores the assistant reply, stripping the solution marker.
// Returns the stored text.
func (t *Transcript) Complete(reply string) string {
	if strings.Contains(reply, SolutionMarker) {
		t.solutionComplete = true
		reply = strings.TrimSpace(strings.Replace(reply, SolutionMarker, "", 1))
	}
	t.messages = append(t.messages, TextMessage(RoleAssistant, reply))
	return reply
}

// Fail stores the canned error reply.
func (t *Transcript) Fail() {
	t.messages = append(t.messages, TextMessage(RoleAssistant, ErrorReply))
}

func isStepTrigger(text string) bool {
	lower := strings.ToLower(text)
	for _, s := range stepTriggers {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
