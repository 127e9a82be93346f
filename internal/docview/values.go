package docview

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/vk/formrun/internal/activity"
	"github.com/vk/formrun/internal/ctxlog"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/registry"
)

// ErrValidationFailed is returned by Submit when a validation reported an
// error.
var ErrValidationFailed = errors.New("validation failed")

// DataContentType is the content type of exported data packets.
const DataContentType = "application/yaml"

// SetValue writes text to node as a user edit would and flushes the
// resulting calculations and validations.
func (v *View) SetValue(ctx context.Context, node formtree.NodeID, text string) error {
	n := v.doc.Form.Node(node)
	if n == nil || !v.doc.Alive(node) {
		return fmt.Errorf("set value: node %d: %w", node, formtree.ErrNoSuchNode)
	}
	if !n.Element.HoldsValue() || n.Element == formtree.ElementDraw {
		return fmt.Errorf("set value: %s %q holds no value", n.Element, v.doc.Form.Path(node))
	}
	if !v.doc.SetValue(node, text) {
		return nil
	}
	ctxlog.FromContext(ctx).Debug("Value changed.", "node", v.doc.Form.Path(node), "value", text)
	v.OnValueChanged(node)
	v.UpdateDocView(ctx)
	return nil
}

// OnValueChanged queues the work a changed value of node causes: its own
// calculation, the calculations that read its data and its validation.
// node is queued first so draining it does not queue a dependent twice.
func (v *View) OnValueChanged(node formtree.NodeID) {
	v.calc.AddCalculateWidgetAcc(node)
	for _, data := range v.doc.Bind.AllBound(node) {
		v.calc.AddCalculateNodeNotify(data)
	}
	v.valid.Queue().AddValidateWidget(node)
}

// RunDocClose runs DocClose over the form.
func (v *View) RunDocClose(ctx context.Context) activity.Status {
	return v.deep(ctx, v.doc.Root, activity.DocClose, false)
}

// ResetData restores the template values in the subtree of node, or the
// whole form for formtree.None, and flushes.
func (v *View) ResetData(ctx context.Context, node formtree.NodeID) {
	if node == formtree.None {
		node = v.doc.Root
	}
	v.LockUpdate()
	v.doc.Form.Walk(node, func(id formtree.NodeID) bool {
		n := v.doc.Form.Node(id)
		if !n.Element.HoldsValue() || n.Element == formtree.ElementDraw {
			return true
		}
		if v.doc.SetValue(id, v.defaultValue(n)) {
			v.OnValueChanged(id)
		}
		if n.Calculate != nil {
			v.calc.AddCalculateWidgetAcc(id)
		}
		if n.Validate != nil {
			v.valid.Queue().AddValidateWidget(id)
		}
		return true
	})
	ctxlog.FromContext(ctx).Debug("Reset data.", "node", v.doc.Form.Path(node))
	v.UnlockUpdate(ctx)
}

func (v *View) defaultValue(n *formtree.Node) string {
	if t := v.doc.Form.Node(n.Template); t != nil {
		return t.Value
	}
	return n.Default
}

// Submit validates the form and hands the exported data packet to
// transport. PreSubmit runs first and PostSubmit after a successful
// delivery.
func (v *View) Submit(ctx context.Context, transport registry.Transport) error {
	logger := ctxlog.FromContext(ctx)
	root := v.doc.Root

	v.deep(ctx, root, activity.PreSubmit, false)
	if v.policy.ValidationsEnabled() {
		status := v.deep(ctx, root, activity.Validate, false)
		v.valid.ShowNullTestMsg(ctx)
		if status.Has(activity.Error) {
			logger.Warn("Submit blocked by validation.", "status", status)
			return fmt.Errorf("submit: %w", ErrValidationFailed)
		}
	}

	var buf bytes.Buffer
	if err := v.doc.Data.EncodeYAML(&buf); err != nil {
		return fmt.Errorf("submit: export data: %w", err)
	}
	if err := transport.Submit(ctx, DataContentType, buf.Bytes()); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	logger.Info("Submitted form data.", "bytes", buf.Len())
	v.deep(ctx, root, activity.PostSubmit, false)
	return nil
}
