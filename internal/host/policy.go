package host

import (
	"context"
	"sync"

	"github.com/vk/formrun/internal/ctxlog"
)

// AutoPolicy is a non-interactive Policy. Message boxes are logged and
// recorded; YesNo questions get Answer.
type AutoPolicy struct {
	Calculations bool
	Validations  bool
	Answer       Choice

	mu       sync.Mutex
	messages []Message
}

// NewAutoPolicy returns a policy with calculations and validations enabled
// that answers No to every question.
func NewAutoPolicy() *AutoPolicy {
	return &AutoPolicy{Calculations: true, Validations: true, Answer: ChoiceNo}
}

func (p *AutoPolicy) CalculationsEnabled() bool { return p.Calculations }

func (p *AutoPolicy) ValidationsEnabled() bool { return p.Validations }

// ShowMessage records msg and answers it without user interaction.
func (p *AutoPolicy) ShowMessage(ctx context.Context, msg Message) Choice {
	p.mu.Lock()
	p.messages = append(p.messages, msg)
	p.mu.Unlock()

	answer := ChoiceOK
	if msg.Buttons == ButtonsYesNo {
		answer = p.Answer
	}
	logger := ctxlog.FromContext(ctx)
	if msg.Severity == SeverityStatus {
		logger.Info("Message box.", "severity", msg.Severity, "text", msg.Text, "answer", answer)
	} else {
		logger.Warn("Message box.", "severity", msg.Severity, "text", msg.Text, "answer", answer)
	}
	return answer
}

// Messages returns the messages shown so far.
func (p *AutoPolicy) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

// Reset forgets recorded messages.
func (p *AutoPolicy) Reset() {
	p.mu.Lock()
	p.messages = nil
	p.mu.Unlock()
}
