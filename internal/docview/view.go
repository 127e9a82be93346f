package docview

import (
	"context"
	"slices"

	"github.com/vk/formrun/internal/activity"
	"github.com/vk/formrun/internal/calc"
	"github.com/vk/formrun/internal/ctxlog"
	"github.com/vk/formrun/internal/event"
	"github.com/vk/formrun/internal/formdoc"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/host"
	"github.com/vk/formrun/internal/instancemgr"
	"github.com/vk/formrun/internal/picture"
	"github.com/vk/formrun/internal/registry"
	"github.com/vk/formrun/internal/script"
	"github.com/vk/formrun/internal/validate"
)

// View is the runtime state of one document.
type View struct {
	doc    *formdoc.Document
	policy host.Policy
	layout host.LayoutSink
	funcs  *registry.Registry

	calc   *calc.Engine
	valid  *validate.Pipeline
	events *event.Dispatcher
	im     *instancemgr.Manager

	ready bool
	lock  int
	// structural is set when instances were added, removed or moved since
	// the last flush.
	structural   bool
	newNodes     []formtree.NodeID
	indexChanged []formtree.NodeID
	splits       map[formtree.NodeID][]split
}

type options struct {
	layout host.LayoutSink
	funcs  *registry.Registry
	locale validate.Locale
	title  string
}

// Option configures a View.
type Option func(*options)

// WithLayout sets the sink receiving layout signals. The default logs them.
func WithLayout(s host.LayoutSink) Option {
	return func(o *options) { o.layout = s }
}

// WithRegistry sets the function registry the view adds its host functions
// to. A registry can serve one view only.
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) { o.funcs = r }
}

// WithLocale replaces the picture-clause matcher used by format tests.
func WithLocale(l validate.Locale) Option {
	return func(o *options) { o.locale = l }
}

// WithTitle sets the title of message boxes.
func WithTitle(title string) Option {
	return func(o *options) { o.title = title }
}

// New returns a view over doc. Scripts are evaluated by scripts.
func New(doc *formdoc.Document, scripts script.Engine, policy host.Policy, opts ...Option) *View {
	o := options{layout: host.LogSink{}, title: "Form"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.funcs == nil {
		o.funcs = registry.New()
	}
	if o.locale == nil {
		o.locale = picture.NewValidator()
	}

	v := &View{
		doc:    doc,
		policy: policy,
		layout: o.layout,
		funcs:  o.funcs,
		splits: make(map[formtree.NodeID][]split),
	}
	queue := validate.NewQueue()
	v.calc = calc.New(doc, scripts, policy, calc.WithFunctions(o.funcs), calc.WithValidateQueue(queue))
	v.valid = validate.New(doc, v.calc, policy, o.locale, queue,
		validate.WithTitle(o.title), validate.WithReadiness(v.IsReady))
	v.events = event.New(doc, v.calc, v.valid, policy)
	v.im = instancemgr.New(doc,
		instancemgr.WithInitializer(v),
		instancemgr.WithIndexChanger(indexHook{v}),
		instancemgr.WithLayout(o.layout),
	)
	v.registerFunctions(o.funcs)
	return v
}

// Doc returns the document.
func (v *View) Doc() *formdoc.Document { return v.doc }

// Calc returns the calculation engine.
func (v *View) Calc() *calc.Engine { return v.calc }

// Validation returns the validation pipeline.
func (v *View) Validation() *validate.Pipeline { return v.valid }

// Events returns the event dispatcher.
func (v *View) Events() *event.Dispatcher { return v.events }

// Instances returns the instance manager.
func (v *View) Instances() *instancemgr.Manager { return v.im }

// IsReady reports whether StartLayout finished.
func (v *View) IsReady() bool { return v.ready }

// StartLayout runs the initial activity sequence over the whole form and
// marks the document ready.
func (v *View) StartLayout(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	root := v.doc.Root

	v.lock++
	v.initLayout(ctx, root)
	v.initCalculate(ctx, root)
	v.initValidate(ctx, root)
	v.deep(ctx, root, activity.Ready, true)

	v.calc.RunCalculateWidgets(ctx)
	v.valid.RunValidate(ctx)
	v.deep(ctx, root, activity.Ready, false)
	v.deep(ctx, root, activity.DocReady, false)
	v.calc.RunCalculateWidgets(ctx)
	v.valid.RunValidate(ctx)
	v.valid.ShowNullTestMsg(ctx)
	v.lock--

	v.ready = true
	v.newNodes = v.newNodes[:0]
	v.indexChanged = v.indexChanged[:0]
	v.structural = false
	v.changed(ctx)
	logger.Info("Form ready.", "form", v.doc.Form.Node(root).Name)
}

// UpdateDocView flushes pending work: new nodes get their init
// activities, queued index changes run, then calculations and validations.
// It does nothing while updates are locked.
func (v *View) UpdateDocView(ctx context.Context) {
	if v.IsUpdateLocked() {
		return
	}
	v.lock++
	defer func() { v.lock-- }()

	nodes := v.newNodes
	v.newNodes = nil
	for _, node := range nodes {
		if !v.doc.Alive(node) {
			continue
		}
		v.initCalculate(ctx, node)
		v.initValidate(ctx, node)
		v.deep(ctx, node, activity.Ready, true)
	}
	v.RunSubformIndexChange(ctx)
	if v.structural {
		v.structural = false
		v.queueAllCalculations()
	}
	v.calc.RunCalculateWidgets(ctx)
	v.valid.RunValidate(ctx)
	v.valid.ShowNullTestMsg(ctx)
	v.changed(ctx)
}

// LockUpdate defers flushes until the matching UnlockUpdate.
func (v *View) LockUpdate() {
	v.lock++
}

// UnlockUpdate releases one lock. Releasing the outermost lock of a ready
// document flushes.
func (v *View) UnlockUpdate(ctx context.Context) {
	if v.lock == 0 {
		return
	}
	v.lock--
	if v.lock == 0 && v.ready {
		v.UpdateDocView(ctx)
	}
}

// IsUpdateLocked reports whether flushes are deferred.
func (v *View) IsUpdateLocked() bool {
	return v.lock > 0
}

// AddNewFormNode queues node for the init activities of the next flush and
// runs Initialize and IndexChange on it now.
func (v *View) AddNewFormNode(ctx context.Context, node formtree.NodeID) {
	v.newNodes = append(v.newNodes, node)
	v.structural = true
	v.initLayout(ctx, node)
}

// RunNodeInitialize implements instancemgr.Initializer.
func (v *View) RunNodeInitialize(ctx context.Context, node formtree.NodeID) {
	v.AddNewFormNode(ctx, node)
}

// AddIndexChangedSubform queues an IndexChange for the subform node.
func (v *View) AddIndexChangedSubform(node formtree.NodeID) {
	n := v.doc.Form.Node(node)
	if n == nil || n.Element != formtree.ElementSubform || slices.Contains(v.indexChanged, node) {
		return
	}
	v.indexChanged = append(v.indexChanged, node)
}

// RunSubformIndexChange runs IndexChange on every queued subform still in
// the form and clears the queue.
func (v *View) RunSubformIndexChange(ctx context.Context) {
	nodes := v.indexChanged
	v.indexChanged = nil
	for _, node := range nodes {
		if v.doc.Alive(node) {
			v.events.ProcessEvent(ctx, node, activity.IndexChange, false)
		}
	}
}

// indexHook queues the index changes reported by the instance manager.
type indexHook struct{ v *View }

func (h indexHook) RunSubformIndexChange(_ context.Context, node formtree.NodeID) {
	h.v.AddIndexChangedSubform(node)
}

func (v *View) initLayout(ctx context.Context, node formtree.NodeID) {
	v.deep(ctx, node, activity.Initialize, false)
	v.deep(ctx, node, activity.IndexChange, false)
}

func (v *View) initCalculate(ctx context.Context, node formtree.NodeID) {
	v.deep(ctx, node, activity.InitCalculate, false)
}

// initValidate runs the first validation pass over node. Its queue entries
// are dropped since the pass already covered them.
func (v *View) initValidate(ctx context.Context, node formtree.NodeID) {
	if !v.policy.ValidationsEnabled() {
		return
	}
	v.deep(ctx, node, activity.Validate, false)
	v.valid.Queue().Clear()
}

func (v *View) deep(ctx context.Context, node formtree.NodeID, act activity.Activity, isFormReady bool) activity.Status {
	return v.events.ExecEventActivityByDeepFirst(ctx, node, act, isFormReady, true, formtree.None)
}

// queueAllCalculations queues every calculated node of the form. Runs
// selected with name[*] change membership on structural changes, which
// per-data dependencies cannot see.
func (v *View) queueAllCalculations() {
	v.doc.Form.Walk(v.doc.Root, func(id formtree.NodeID) bool {
		n := v.doc.Form.Node(id)
		if n.Calculate != nil && n.Element != formtree.ElementDraw {
			v.calc.AddCalculateWidgetAcc(id)
		}
		return true
	})
}

func (v *View) changed(ctx context.Context) {
	v.layout.ContainerChanged(ctx, v.doc.Root, v.doc.Form.Path(v.doc.Root))
}
