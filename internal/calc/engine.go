package calc

import (
	"context"
	"slices"

	"github.com/vk/formrun/internal/activity"
	"github.com/vk/formrun/internal/ctxlog"
	"github.com/vk/formrun/internal/databind"
	"github.com/vk/formrun/internal/formdoc"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/host"
	"github.com/vk/formrun/internal/script"
)

const (
	// RefCountThreshold is the number of visits after which a drain stops
	// descending from a node.
	RefCountThreshold = 11
	// MaxScriptDepth bounds re-entrant script evaluation on one node.
	MaxScriptDepth = 2
)

// ValidateQueue receives nodes whose value was (re)calculated.
type ValidateQueue interface {
	AddValidateWidget(node formtree.NodeID)
}

// Engine holds the calculation worklist and the dependency records.
type Engine struct {
	doc     *formdoc.Document
	scripts script.Engine
	policy  host.Policy
	funcs   formdoc.Functions
	valid   ValidateQueue

	worklist []formtree.NodeID
	// deps lists, per data node, the nodes whose last calculation read it.
	deps map[databind.DataID][]formtree.NodeID
	// reads is the reverse of deps, used to rebuild a node's record.
	reads map[formtree.NodeID][]databind.DataID
	depth map[formtree.NodeID]int
}

// Option configures an Engine.
type Option func(*Engine)

// WithFunctions exposes host functions to the scripts the engine runs.
func WithFunctions(f formdoc.Functions) Option {
	return func(e *Engine) { e.funcs = f }
}

// WithValidateQueue sets where recalculated nodes are queued for validation.
func WithValidateQueue(q ValidateQueue) Option {
	return func(e *Engine) { e.valid = q }
}

// New returns a calculation engine over doc.
func New(doc *formdoc.Document, scripts script.Engine, policy host.Policy, opts ...Option) *Engine {
	e := &Engine{
		doc:     doc,
		scripts: scripts,
		policy:  policy,
		deps:    make(map[databind.DataID][]formtree.NodeID),
		reads:   make(map[formtree.NodeID][]databind.DataID),
		depth:   make(map[formtree.NodeID]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddCalculateWidgetAcc queues node unless it is already the last entry.
func (e *Engine) AddCalculateWidgetAcc(node formtree.NodeID) {
	if n := len(e.worklist); n > 0 && e.worklist[n-1] == node {
		return
	}
	e.worklist = append(e.worklist, node)
}

// AddCalculateNodeNotify queues every live node whose calculation read data.
func (e *Engine) AddCalculateNodeNotify(data databind.DataID) {
	for _, node := range e.deps[data] {
		if e.doc.Alive(node) {
			e.AddCalculateWidgetAcc(node)
		}
	}
}

// RunCalculateWidgets drains the worklist. It returns Disabled without
// touching the worklist when calculations are turned off.
func (e *Engine) RunCalculateWidgets(ctx context.Context) activity.Status {
	if !e.policy.CalculationsEnabled() {
		return activity.Disabled
	}
	if len(e.worklist) > 0 {
		visits := make(map[formtree.NodeID]int)
		e.drain(ctx, 0, visits)
		ctxlog.FromContext(ctx).Debug("Ran calculations.", "entries", len(e.worklist), "nodes", len(visits))
	}
	e.worklist = e.worklist[:0]
	return activity.Success
}

// drain processes the worklist from index and returns the index it stopped
// at. Entries appended while processing one node are drained by the nested
// call before the loop advances. Exceeding the threshold unwinds every
// level.
func (e *Engine) drain(ctx context.Context, index int, visits map[formtree.NodeID]int) int {
	for index < len(e.worklist) {
		node := e.worklist[index]
		e.notifyDependents(node)
		visits[node]++
		if visits[node] > RefCountThreshold {
			ctxlog.FromContext(ctx).Debug("Calculation visit limit reached.", "node", e.doc.Form.Path(node))
			break
		}
		if e.ProcessCalculate(ctx, node) == activity.Success && e.valid != nil {
			e.valid.AddValidateWidget(node)
		}
		index++
		index = e.drain(ctx, index, visits)
	}
	return index
}

func (e *Engine) notifyDependents(node formtree.NodeID) {
	for _, data := range e.doc.Bind.AllBound(node) {
		e.AddCalculateNodeNotify(data)
	}
}

// ProcessCalculate runs the calculate script of node and stores a differing
// result as its value.
func (e *Engine) ProcessCalculate(ctx context.Context, node formtree.NodeID) activity.Status {
	n := e.doc.Form.Node(node)
	if n == nil || n.Element == formtree.ElementDraw || n.Calculate == nil {
		return activity.NotExist
	}
	if n.UserInteractive {
		return activity.Disabled
	}
	// Past the depth bound the evaluation is skipped and the value kept.
	if e.depth[node] > MaxScriptDepth {
		return activity.Success
	}
	v, status := e.ExecuteScript(ctx, node, activity.Calculate, n.Calculate.Script)
	if status != activity.Success {
		return status
	}
	if text := v.String(); text != e.doc.RawValue(node) {
		e.doc.SetValue(node, text)
	}
	return activity.Success
}

// ExecuteScript evaluates src on behalf of node. Calculate and
// InitCalculate evaluations rebuild the node's dependency record from the
// data nodes the script read.
func (e *Engine) ExecuteScript(ctx context.Context, node formtree.NodeID, act activity.Activity, src formtree.Script) (script.Value, activity.Status) {
	if e.depth[node] > MaxScriptDepth {
		return script.Undefined(), activity.Success
	}
	if src.Empty() {
		return script.Undefined(), activity.NotExist
	}
	if src.RunAt == formtree.RunAtServer {
		return script.Undefined(), activity.Disabled
	}

	scope := e.doc.NewScope(node, e.funcs)
	e.depth[node]++
	v, err := e.scripts.Evaluate(ctx, src, scope)
	e.depth[node]--
	if e.depth[node] == 0 {
		delete(e.depth, node)
	}
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Script failed.",
			"node", e.doc.Form.Path(node), "activity", act.String(), "error", err)
		return script.Undefined(), activity.Error
	}
	if act != activity.Calculate && act != activity.InitCalculate {
		return v, activity.Success
	}

	status := activity.Success
	if v.IsUndefined() {
		status = activity.Error
	}
	if act == activity.InitCalculate && status == activity.Success {
		if text := v.String(); text != e.doc.RawValue(node) {
			e.doc.SetValue(node, text)
			if e.valid != nil {
				e.valid.AddValidateWidget(node)
			}
		}
	}
	e.record(node, scope.Reads())
	return v, status
}

// record replaces the dependency record of node with reads, leaving out the
// node's own data.
func (e *Engine) record(node formtree.NodeID, reads []databind.DataID) {
	for _, data := range e.reads[node] {
		deps := slices.DeleteFunc(e.deps[data], func(n formtree.NodeID) bool { return n == node })
		if len(deps) == 0 {
			delete(e.deps, data)
			continue
		}
		e.deps[data] = deps
	}
	delete(e.reads, node)

	own := e.doc.Bind.AllBound(node)
	var kept []databind.DataID
	for _, data := range reads {
		if slices.Contains(own, data) || slices.Contains(kept, data) {
			continue
		}
		kept = append(kept, data)
		e.deps[data] = append(e.deps[data], node)
	}
	if len(kept) > 0 {
		e.reads[node] = kept
	}
}

// Dependents returns the nodes whose last calculation read data.
func (e *Engine) Dependents(data databind.DataID) []formtree.NodeID {
	return slices.Clone(e.deps[data])
}

// Pending returns the queued nodes.
func (e *Engine) Pending() []formtree.NodeID {
	return slices.Clone(e.worklist)
}

// Reset drops the worklist and every dependency record.
func (e *Engine) Reset() {
	e.worklist = nil
	clear(e.deps)
	clear(e.reads)
	clear(e.depth)
}
