package script

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/nodeid"
)

// ErrEvaluationFailed is matched by every EvalError.
var ErrEvaluationFailed = errors.New("script evaluation failed")

// EvalError reports a script that could not be parsed or run.
type EvalError struct {
	Language string
	Source   string
	Err      error
}

func (e *EvalError) Error() string {
	src := e.Source
	if len(src) > 60 {
		src = src[:57] + "..."
	}
	return fmt.Sprintf("%s script %q: %v", e.Language, src, e.Err)
}

func (e *EvalError) Unwrap() []error {
	return []error{ErrEvaluationFailed, e.Err}
}

// Scope is what an engine sees of the document while evaluating one script.
type Scope interface {
	// Materialize returns nested values for the given references, keyed by
	// RootKey. Containers are map[string]any, repeatable runs are []any and
	// leaves are Value. Unresolvable references are left out.
	Materialize(ctx context.Context, refs []*nodeid.Address) (map[string]any, error)
	// Call invokes a host function.
	Call(ctx context.Context, name string, args []Value) (Value, error)
	// Functions lists the host function names.
	Functions() []string
}

// Engine evaluates scripts of one language.
type Engine interface {
	Evaluate(ctx context.Context, src formtree.Script, scope Scope) (Value, error)
}

// Identifiers scripts use for the anchored roots.
const (
	SelfRoot = "self"
	FormRoot = "form"
	DataRoot = "data"
)

// AnchorFor maps a root identifier to its anchor.
func AnchorFor(ident string) nodeid.Anchor {
	switch ident {
	case SelfRoot:
		return nodeid.AnchorSelf
	case FormRoot:
		return nodeid.AnchorForm
	case DataRoot:
		return nodeid.AnchorData
	}
	return nodeid.AnchorScope
}

// RootKey returns the identifier under which Materialize stores the value
// for addr.
func RootKey(addr *nodeid.Address) string {
	switch addr.Anchor {
	case nodeid.AnchorSelf:
		return SelfRoot
	case nodeid.AnchorForm:
		return FormRoot
	case nodeid.AnchorData:
		return DataRoot
	}
	if len(addr.Path) == 0 {
		return ""
	}
	return addr.Path[0].Name
}

// NewAddress builds an address from a root identifier and the segments that
// follow it.
func NewAddress(root string, rest ...nodeid.PathSegment) *nodeid.Address {
	addr := &nodeid.Address{Anchor: AnchorFor(root)}
	if addr.Anchor == nodeid.AnchorScope {
		addr.Path = append(addr.Path, nodeid.NewPathSegment(root))
	}
	addr.Path = append(addr.Path, rest...)
	return addr
}

// Registry maps script languages to engines.
type Registry struct {
	engines  map[string]Engine
	fallback string
}

// NewRegistry returns a registry whose default language is fallback.
func NewRegistry(fallback string) *Registry {
	return &Registry{engines: map[string]Engine{}, fallback: fallback}
}

// Register adds an engine for a language.
func (r *Registry) Register(language string, e Engine) {
	r.engines[strings.ToLower(language)] = e
}

// Default returns the language used for scripts that name none.
func (r *Registry) Default() string {
	return r.fallback
}

// Languages returns the registered language names, sorted.
func (r *Registry) Languages() []string {
	out := make([]string, 0, len(r.engines))
	for k := range r.engines {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Evaluate dispatches src to the engine for its language.
func (r *Registry) Evaluate(ctx context.Context, src formtree.Script, scope Scope) (Value, error) {
	lang := strings.ToLower(src.Language)
	if lang == "" {
		lang = r.fallback
	}
	e, ok := r.engines[lang]
	if !ok {
		return Undefined(), &EvalError{Language: lang, Source: src.Source, Err: fmt.Errorf("no engine for language %q", lang)}
	}
	return e.Evaluate(ctx, src, scope)
}
