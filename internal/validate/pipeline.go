package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/formrun/internal/activity"
	"github.com/vk/formrun/internal/ctxlog"
	"github.com/vk/formrun/internal/formdoc"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/host"
	"github.com/vk/formrun/internal/script"
)

// Flags modify a validation pass.
type Flags uint8

// BatchNullMsgs collects null-test messages instead of showing them.
const BatchNullMsgs Flags = 0x01

// MaxNullMessages is the number of collected null-test messages shown at
// once.
const MaxNullMessages = 7

// Locale checks raw values against picture clauses.
type Locale interface {
	Matches(value, picture, locale string) bool
}

// ScriptRunner executes a validation script on behalf of a node.
type ScriptRunner interface {
	ExecuteScript(ctx context.Context, node formtree.NodeID, act activity.Activity, src formtree.Script) (script.Value, activity.Status)
}

// Pipeline validates nodes of one document.
type Pipeline struct {
	doc    *formdoc.Document
	runner ScriptRunner
	policy host.Policy
	locale Locale
	queue  *Queue
	title  string
	ready  func() bool

	nullMsgs []string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTitle sets the title of the message boxes.
func WithTitle(title string) Option {
	return func(p *Pipeline) { p.title = title }
}

// WithReadiness tells the pipeline whether the document finished its
// initial layout. Before that, script results on empty nodes are ignored.
func WithReadiness(ready func() bool) Option {
	return func(p *Pipeline) { p.ready = ready }
}

// New returns a pipeline. queue may be shared with the calculation engine.
func New(doc *formdoc.Document, runner ScriptRunner, policy host.Policy, locale Locale, queue *Queue, opts ...Option) *Pipeline {
	p := &Pipeline{
		doc:    doc,
		runner: runner,
		policy: policy,
		locale: locale,
		queue:  queue,
		title:  "Form",
		ready:  func() bool { return true },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessValidate runs the tests of node and returns the OR of the parts
// that ran.
func (p *Pipeline) ProcessValidate(ctx context.Context, node formtree.NodeID, flags Flags) activity.Status {
	n := p.doc.Form.Node(node)
	if n == nil || n.Element == formtree.ElementDraw || n.Validate == nil {
		return activity.NotExist
	}
	v := n.Validate
	initDoc := v.NeedsInit
	raw := p.doc.RawValue(node)

	status := activity.NotExist
	var (
		result    script.Value
		useResult bool
	)
	if !v.Script.Empty() {
		result, status = p.runner.ExecuteScript(ctx, node, activity.Validate, v.Script)
		useResult = !((initDoc || !p.ready()) && raw == "")
	}

	format := activity.NotExist
	if initDoc {
		v.NeedsInit = false
	} else {
		format = p.formatTest(ctx, node, n, raw)
		status |= p.nullTest(ctx, n, raw, flags)
	}
	if format != activity.Success && useResult {
		p.scriptTest(ctx, n, status, result)
	}

	ctxlog.FromContext(ctx).Debug("Validated node.",
		"node", p.doc.Form.Path(node), "status", status|format, "init", initDoc)
	return status | format
}

// scriptTest reports a validation script that returned false.
func (p *Pipeline) scriptTest(ctx context.Context, n *formtree.Node, status activity.Status, result script.Value) {
	if status != activity.Success || result.Kind() != script.KindBool || result.Truthy() {
		return
	}
	v := n.Validate
	switch v.ScriptTest {
	case formtree.TestWarning:
		if n.UserInteractive {
			return
		}
		msg := v.ScriptMessage
		if msg == "" {
			msg = invalidMessage(n, false)
		}
		p.ask(ctx, n, msg)
	case formtree.TestError:
		msg := v.ScriptMessage
		if msg == "" {
			msg = invalidMessage(n, true)
		}
		p.show(ctx, msg, host.SeverityError)
	}
}

// formatTest checks a non-empty raw value against the picture clause. A
// reported mismatch returns Success.
func (p *Pipeline) formatTest(ctx context.Context, node formtree.NodeID, n *formtree.Node, raw string) activity.Status {
	v := n.Validate
	if raw == "" || v.Picture == "" || p.locale == nil || v.FormatTest == formtree.TestDisabled {
		return activity.NotExist
	}
	if p.locale.Matches(raw, v.Picture, n.Locale) {
		return activity.NotExist
	}
	ctxlog.FromContext(ctx).Debug("Format test failed.", "node", p.doc.Form.Path(node), "picture", v.Picture)

	msg := v.FormatMessage
	if v.FormatTest == formtree.TestError {
		if msg == "" {
			msg = invalidMessage(n, true)
		}
		p.show(ctx, msg, host.SeverityError)
		return activity.Success
	}
	if n.UserInteractive {
		return activity.NotExist
	}
	if msg == "" {
		msg = invalidMessage(n, false)
	}
	p.ask(ctx, n, msg)
	return activity.Success
}

// nullTest applies only to an empty value that did not stay empty.
func (p *Pipeline) nullTest(ctx context.Context, n *formtree.Node, raw string, flags Flags) activity.Status {
	if raw != "" {
		return activity.NotExist
	}
	if n.IsNull && n.PreNull == n.IsNull {
		return activity.NotExist
	}
	v := n.Validate
	if v.NullTest == formtree.TestDisabled {
		return activity.Success
	}
	name := captionName(n)

	if flags&BatchNullMsgs != 0 {
		msg := v.NullMessage
		if msg == "" {
			msg = fmt.Sprintf("%s cannot be blank.", name)
		}
		p.nullMsgs = append(p.nullMsgs, msg)
		return activity.Error
	}

	msg := v.NullMessage
	switch v.NullTest {
	case formtree.TestError:
		if msg == "" {
			msg = fmt.Sprintf("%s cannot be blank.", name)
		}
		p.show(ctx, msg, host.SeverityStatus)
	case formtree.TestWarning:
		if n.UserInteractive {
			return activity.Success
		}
		if msg == "" {
			msg = fmt.Sprintf("%s cannot be blank. To ignore validations for %s, click Ignore.", name, name)
		}
		p.ask(ctx, n, msg)
	}
	return activity.Error
}

func (p *Pipeline) show(ctx context.Context, text string, severity host.Severity) {
	p.policy.ShowMessage(ctx, host.Message{Title: p.title, Text: text, Severity: severity, Buttons: host.ButtonsOK})
}

// ask offers to ignore further warnings on n.
func (p *Pipeline) ask(ctx context.Context, n *formtree.Node, text string) {
	choice := p.policy.ShowMessage(ctx, host.Message{
		Title:    p.title,
		Text:     text,
		Severity: host.SeverityWarning,
		Buttons:  host.ButtonsYesNo,
	})
	if choice == host.ChoiceYes {
		n.UserInteractive = true
	}
}

// ShowNullTestMsg shows the collected null-test messages in one status box
// and clears them.
func (p *Pipeline) ShowNullTestMsg(ctx context.Context) {
	count := len(p.nullMsgs)
	if count == 0 {
		return
	}
	remain := max(count-MaxNullMessages, 0)
	var sb strings.Builder
	for _, m := range p.nullMsgs[:count-remain] {
		sb.WriteString(m)
		sb.WriteString("\n")
	}
	if remain > 0 {
		fmt.Fprintf(&sb, "\nMessage limit exceeded. Remaining %d validation errors not reported.", remain)
	}
	p.nullMsgs = nil
	p.show(ctx, sb.String(), host.SeverityStatus)
}

// NullMessages returns the collected null-test messages.
func (p *Pipeline) NullMessages() []string {
	return append([]string(nil), p.nullMsgs...)
}

// RunValidate validates every queued node still in the form and clears the
// queue. It reports false, leaving the queue alone, when validations are
// disabled.
func (p *Pipeline) RunValidate(ctx context.Context) bool {
	if !p.policy.ValidationsEnabled() {
		return false
	}
	for _, node := range p.queue.Pending() {
		if p.doc.Alive(node) {
			p.ProcessValidate(ctx, node, 0)
		}
	}
	p.queue.Clear()
	return true
}

// Queue returns the pipeline's validation queue.
func (p *Pipeline) Queue() *Queue {
	return p.queue
}

func captionName(n *formtree.Node) string {
	if n.Caption != "" {
		return n.Caption
	}
	return n.Name
}

func invalidMessage(n *formtree.Node, isError bool) string {
	name := captionName(n)
	if isError {
		return fmt.Sprintf("The value you entered for %s is invalid.", name)
	}
	return fmt.Sprintf("The value you entered for %s is invalid. To ignore validations for %s, click Ignore.", name, name)
}
