package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/formrun/internal/activity"
	"github.com/vk/formrun/internal/ctxlog"
	"github.com/vk/formrun/internal/formdoc"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/host"
	"github.com/vk/formrun/internal/script"
	"github.com/vk/formrun/internal/validate"
)

// ErrUnknownActivity is returned for activity names missing from the
// by-name table.
var ErrUnknownActivity = errors.New("unknown activity")

// Calculator runs calculations and scripts.
type Calculator interface {
	ProcessCalculate(ctx context.Context, node formtree.NodeID) activity.Status
	ExecuteScript(ctx context.Context, node formtree.NodeID, act activity.Activity, src formtree.Script) (script.Value, activity.Status)
}

// Validator runs the validation tests of a node.
type Validator interface {
	ProcessValidate(ctx context.Context, node formtree.NodeID, flags validate.Flags) activity.Status
}

// Dispatcher routes activities to nodes.
type Dispatcher struct {
	doc    *formdoc.Document
	calc   Calculator
	valid  Validator
	policy host.Policy
}

// New returns a dispatcher for doc.
func New(doc *formdoc.Document, calc Calculator, valid Validator, policy host.Policy) *Dispatcher {
	return &Dispatcher{doc: doc, calc: calc, valid: valid, policy: policy}
}

// ExecEventActivityByDeepFirst runs act on root and, when recursive, first on
// every container below it. Variables and Draw children are not visited and
// IndexChange never runs on fields. Reaching exclude returns NotExist.
func (d *Dispatcher) ExecEventActivityByDeepFirst(ctx context.Context, root formtree.NodeID, act activity.Activity, isFormReady, recursive bool, exclude formtree.NodeID) activity.Status {
	status := activity.NotExist
	if root == exclude {
		return status
	}
	n := d.doc.Form.Node(root)
	if n == nil {
		return status
	}
	if n.Element == formtree.ElementField {
		if act == activity.IndexChange {
			return status
		}
		return d.ProcessEvent(ctx, root, act, isFormReady)
	}
	if recursive {
		for _, c := range d.doc.Form.Children(root) {
			e := d.doc.Form.Node(c).Element
			if !e.IsContainer() || e == formtree.ElementVariables || e == formtree.ElementDraw {
				continue
			}
			status |= d.ExecEventActivityByDeepFirst(ctx, c, act, isFormReady, recursive, exclude)
		}
	}
	if !hasWidget(n.Element) {
		return status
	}
	return status | d.ProcessEvent(ctx, root, act, isFormReady)
}

// ProcessEvent runs act on node alone.
func (d *Dispatcher) ProcessEvent(ctx context.Context, node formtree.NodeID, act activity.Activity, isFormReady bool) activity.Status {
	n := d.doc.Form.Node(node)
	if n == nil || act == activity.Unknown || n.Element == formtree.ElementDraw {
		return activity.NotExist
	}
	switch act {
	case activity.Calculate:
		return d.calc.ProcessCalculate(ctx, node)
	case activity.Validate:
		if !d.policy.ValidationsEnabled() {
			return activity.Disabled
		}
		return d.valid.ProcessValidate(ctx, node, validate.BatchNullMsgs)
	case activity.InitCalculate:
		if n.Calculate == nil {
			return activity.NotExist
		}
		if n.UserInteractive {
			return activity.Disabled
		}
		_, status := d.calc.ExecuteScript(ctx, node, activity.InitCalculate, n.Calculate.Script)
		return status
	}

	status := activity.NotExist
	for i, ev := range n.EventsFor(act, isFormReady) {
		_, r := d.calc.ExecuteScript(ctx, node, act, ev.Script)
		if i == 0 || r == activity.Success {
			status = r
		}
	}
	return status
}

// ExecEventByName runs the activity called name on node if the by-name
// table allows it for the node's kind.
func (d *Dispatcher) ExecEventByName(ctx context.Context, node formtree.NodeID, name string) (activity.Status, error) {
	entry, ok := activity.Lookup(name)
	if !ok {
		return activity.NotExist, fmt.Errorf("exec event %q: %w", name, ErrUnknownActivity)
	}
	n := d.doc.Form.Node(node)
	if n == nil {
		return activity.NotExist, fmt.Errorf("exec event %q: %w", name, formtree.ErrNoSuchNode)
	}

	var allowed bool
	switch entry.Scope {
	case activity.ScopeDeep, activity.ScopeNode:
		allowed = true
	case activity.ScopeSubform:
		allowed = n.Element == formtree.ElementSubform
	case activity.ScopeFieldOrGroup:
		allowed = n.Element == formtree.ElementField || n.Element == formtree.ElementExclGroup
	case activity.ScopeField:
		allowed = n.Element == formtree.ElementField
	case activity.ScopeSignature:
		allowed = n.UI == formtree.UISignature
	case activity.ScopeChoiceList:
		allowed = n.UI == formtree.UIChoiceList
	}
	if !allowed {
		ctxlog.FromContext(ctx).Debug("Activity not valid for node.", "activity", name, "node", d.doc.Form.Path(node))
		return activity.NotExist, nil
	}
	return d.ExecEventActivityByDeepFirst(ctx, node, entry.Activity, false, entry.Scope.Recursive(), formtree.None), nil
}

// hasWidget reports whether nodes of kind e process activities themselves.
func hasWidget(e formtree.Element) bool {
	switch e {
	case formtree.ElementForm, formtree.ElementSubform, formtree.ElementSubformSet,
		formtree.ElementExclGroup, formtree.ElementField, formtree.ElementDraw:
		return true
	}
	return false
}
