package docview

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/formrun/internal/activity"
	"github.com/vk/formrun/internal/formdoc"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/registry"
	"github.com/vk/formrun/internal/script"
)

// registerFunctions adds the form manipulation functions to r. The first
// argument of every function is a reference resolved from the calling node.
func (v *View) registerFunctions(r *registry.Registry) {
	r.RegisterFunction("instance_count", &registry.RegisteredFunction{MinArgs: 1, MaxArgs: 1, Fn: v.fnInstanceCount})
	r.RegisterFunction("add_instance", &registry.RegisteredFunction{MinArgs: 1, MaxArgs: 2, Fn: v.fnAddInstance})
	r.RegisterFunction("insert_instance", &registry.RegisteredFunction{MinArgs: 2, MaxArgs: 3, Fn: v.fnInsertInstance})
	r.RegisterFunction("remove_instance", &registry.RegisteredFunction{MinArgs: 2, MaxArgs: 2, Fn: v.fnRemoveInstance})
	r.RegisterFunction("move_instance", &registry.RegisteredFunction{MinArgs: 3, MaxArgs: 3, Fn: v.fnMoveInstance})
	r.RegisterFunction("set_instances", &registry.RegisteredFunction{MinArgs: 2, MaxArgs: 2, Fn: v.fnSetInstances})
	r.RegisterFunction("set_value", &registry.RegisteredFunction{MinArgs: 2, MaxArgs: 2, Fn: v.fnSetValue})
	r.RegisterFunction("exec_event", &registry.RegisteredFunction{MinArgs: 2, MaxArgs: 2, Fn: v.fnExecEvent})
	r.RegisterFunction("exec_calculate", &registry.RegisteredFunction{MinArgs: 1, MaxArgs: 1, Fn: v.fnExecCalculate})
	r.RegisterFunction("exec_validate", &registry.RegisteredFunction{MinArgs: 1, MaxArgs: 1, Fn: v.fnExecValidate})
	r.RegisterFunction("exec_initialize", &registry.RegisteredFunction{MinArgs: 1, MaxArgs: 1, Fn: v.fnExecInitialize})
	r.RegisterFunction("values", &registry.RegisteredFunction{MinArgs: 1, MaxArgs: 2, Fn: v.fnValues})
	r.RegisterFunction("sum", &registry.RegisteredFunction{MinArgs: 1, MaxArgs: registry.Variadic, Fn: v.fnSum})
}

func (v *View) manager(call registry.Call) (formtree.NodeID, error) {
	return v.doc.InstanceManager(call.Self, call.Args[0].String())
}

func (v *View) node(call registry.Call) (formtree.NodeID, error) {
	return v.doc.Resolve(call.Self, call.Args[0].String())
}

func intArg(call registry.Call, i int) (int, error) {
	n, ok := call.Args[i].AsNumber()
	if !ok {
		return 0, fmt.Errorf("argument %d: %q is not a number", i+1, call.Args[i].String())
	}
	return int(n), nil
}

// bindArg reads the optional bind flag at i, or returns def when absent.
func bindArg(call registry.Call, i int, def bool) bool {
	if len(call.Args) <= i {
		return def
	}
	return call.Args[i].Truthy()
}

func (v *View) fnInstanceCount(_ context.Context, call registry.Call) (script.Value, error) {
	im, err := v.manager(call)
	if err != nil {
		return script.Undefined(), err
	}
	return script.Number(float64(v.im.Count(im))), nil
}

func (v *View) fnAddInstance(ctx context.Context, call registry.Call) (script.Value, error) {
	im, err := v.manager(call)
	if err != nil {
		return script.Undefined(), err
	}
	if _, err := v.AddInstance(ctx, im, bindArg(call, 1, true)); err != nil {
		return script.Undefined(), err
	}
	return script.Number(float64(v.im.Count(im) - 1)), nil
}

func (v *View) fnInsertInstance(ctx context.Context, call registry.Call) (script.Value, error) {
	im, err := v.manager(call)
	if err != nil {
		return script.Undefined(), err
	}
	index, err := intArg(call, 1)
	if err != nil {
		return script.Undefined(), err
	}
	if _, err := v.InsertInstance(ctx, im, index, bindArg(call, 2, false)); err != nil {
		return script.Undefined(), err
	}
	return script.Number(float64(index)), nil
}

func (v *View) fnRemoveInstance(ctx context.Context, call registry.Call) (script.Value, error) {
	im, err := v.manager(call)
	if err != nil {
		return script.Undefined(), err
	}
	index, err := intArg(call, 1)
	if err != nil {
		return script.Undefined(), err
	}
	return script.Null(), v.RemoveInstance(ctx, im, index)
}

func (v *View) fnMoveInstance(ctx context.Context, call registry.Call) (script.Value, error) {
	im, err := v.manager(call)
	if err != nil {
		return script.Undefined(), err
	}
	from, err := intArg(call, 1)
	if err != nil {
		return script.Undefined(), err
	}
	to, err := intArg(call, 2)
	if err != nil {
		return script.Undefined(), err
	}
	return script.Null(), v.MoveInstance(ctx, im, from, to)
}

func (v *View) fnSetInstances(ctx context.Context, call registry.Call) (script.Value, error) {
	im, err := v.manager(call)
	if err != nil {
		return script.Undefined(), err
	}
	count, err := intArg(call, 1)
	if err != nil {
		return script.Undefined(), err
	}
	return script.Null(), v.SetInstances(ctx, im, count)
}

func (v *View) fnSetValue(ctx context.Context, call registry.Call) (script.Value, error) {
	node, err := v.node(call)
	if err != nil {
		return script.Undefined(), err
	}
	return script.Null(), v.SetValue(ctx, node, call.Args[1].String())
}

func (v *View) fnExecEvent(ctx context.Context, call registry.Call) (script.Value, error) {
	node, err := v.node(call)
	if err != nil {
		return script.Undefined(), err
	}
	if _, err := v.events.ExecEventByName(ctx, node, call.Args[1].String()); err != nil {
		return script.Undefined(), err
	}
	return script.Null(), nil
}

func (v *View) fnExecCalculate(ctx context.Context, call registry.Call) (script.Value, error) {
	node, err := v.node(call)
	if err != nil {
		return script.Undefined(), err
	}
	v.deep(ctx, node, activity.Calculate, false)
	return script.Null(), nil
}

// fnExecValidate returns false when any validation below the node failed.
func (v *View) fnExecValidate(ctx context.Context, call registry.Call) (script.Value, error) {
	node, err := v.node(call)
	if err != nil {
		return script.Undefined(), err
	}
	status := v.deep(ctx, node, activity.Validate, false)
	return script.Bool(!status.Has(activity.Error)), nil
}

func (v *View) fnExecInitialize(ctx context.Context, call registry.Call) (script.Value, error) {
	node, err := v.node(call)
	if err != nil {
		return script.Undefined(), err
	}
	v.deep(ctx, node, activity.Initialize, false)
	return script.Null(), nil
}

// fnValues joins the values of every node the reference selects, separated
// by the optional second argument (default ", ").
func (v *View) fnValues(ctx context.Context, call registry.Call) (script.Value, error) {
	nodes, err := v.doc.ResolveAll(call.Self, call.Args[0].String())
	if err != nil {
		return script.Undefined(), err
	}
	sep := ", "
	if len(call.Args) > 1 {
		sep = call.Args[1].String()
	}
	scope := formdoc.ScopeFrom(ctx)
	var parts []string
	for _, node := range nodes {
		if scope != nil {
			scope.Record(node)
		}
		parts = append(parts, v.doc.RawValue(node))
	}
	return script.Text(strings.Join(parts, sep)), nil
}

// fnSum adds up the numeric values of every node the references select.
// Empty and non-numeric values count as zero.
func (v *View) fnSum(ctx context.Context, call registry.Call) (script.Value, error) {
	scope := formdoc.ScopeFrom(ctx)
	var total float64
	for _, arg := range call.Args {
		nodes, err := v.doc.ResolveAll(call.Self, arg.String())
		if err != nil {
			return script.Undefined(), err
		}
		for _, node := range nodes {
			if scope != nil {
				scope.Record(node)
			}
			if n, ok := script.FromRaw(v.doc.RawValue(node)).AsNumber(); ok {
				total += n
			}
		}
	}
	return script.Number(total), nil
}
