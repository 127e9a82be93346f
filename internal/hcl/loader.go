package hcl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/formrun/internal/activity"
	"github.com/vk/formrun/internal/ctxlog"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/fsutil"
	"github.com/vk/formrun/internal/hclscript"
	"github.com/zclconf/go-cty/cty"
)

// Template is a loaded form template.
type Template struct {
	Tree *formtree.Tree
	Root formtree.NodeID
	Name string
	// ScriptLanguage is the language of scripts that name none.
	ScriptLanguage string
}

// Loader reads form templates.
type Loader struct{}

// NewLoader creates a new HCL form loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadFile reads and parses the form file at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Template, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read form file: %w", err)
	}
	return l.Parse(ctx, src, path)
}

// LoadAll loads every .hcl form file under path, which may also name a
// single file. Every file is attempted; the errors of all failing files are
// joined.
func (l *Loader) LoadAll(ctx context.Context, path string) ([]*Template, error) {
	files, err := fsutil.FindFiles(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find form files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl form files found in %s", path)
	}
	ctxlog.FromContext(ctx).Debug("Form files found.", "path", path, "count", len(files))

	var (
		out  []*Template
		errs []error
	)
	for _, f := range files {
		tmpl, err := l.LoadFile(ctx, f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, tmpl)
	}
	return out, errors.Join(errs...)
}

// Parse builds the template tree from the form file contents in src.
func (l *Loader) Parse(ctx context.Context, src []byte, filename string) (*Template, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL form loader started.", "file", filename)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	if len(root.Forms) != 1 {
		return nil, fmt.Errorf("form file %s: want exactly one form block, found %d", filename, len(root.Forms))
	}

	fb := root.Forms[0]
	t := &translator{src: src, tree: formtree.New(), lang: fb.ScriptLanguage}
	if t.lang == "" {
		t.lang = hclscript.Language
	}
	id := t.element(formtree.None, formtree.ElementForm, fb.Name, fb.Body)
	if t.diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, t.diags)
	}

	logger.Debug("HCL form loading complete.", "form", fb.Name, "nodes", t.tree.Len(), "language", t.lang)
	return &Template{Tree: t.tree, Root: id, Name: fb.Name, ScriptLanguage: t.lang}, nil
}

var blockElements = map[string]formtree.Element{
	"subform":     formtree.ElementSubform,
	"subform_set": formtree.ElementSubformSet,
	"exclgroup":   formtree.ElementExclGroup,
	"field":       formtree.ElementField,
	"draw":        formtree.ElementDraw,
	"area":        formtree.ElementArea,
	"variables":   formtree.ElementVariables,
}

// translator turns decoded blocks into template nodes, collecting every
// problem as a diagnostic.
type translator struct {
	src   []byte
	tree  *formtree.Tree
	lang  string
	diags hcl.Diagnostics
}

func (t *translator) errorf(rng hcl.Range, summary, format string, args ...any) {
	t.diags = append(t.diags, &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   fmt.Sprintf(format, args...),
		Subject:  rng.Ptr(),
	})
}

// element adds the node described by body under parent and recurses into
// its child element blocks.
func (t *translator) element(parent formtree.NodeID, elem formtree.Element, name string, body hcl.Body) formtree.NodeID {
	var nb nodeBlock
	diags := gohcl.DecodeBody(body, nil, &nb)
	t.diags = append(t.diags, diags...)
	if diags.HasErrors() {
		return formtree.None
	}
	rng := body.MissingItemRange()

	n := formtree.Node{
		Element:    elem,
		Name:       name,
		Caption:    nb.Caption,
		Locale:     nb.Locale,
		LineHeight: nb.LineHeight,
		Value:      nb.Value,
		Default:    nb.Value,
	}
	if ui, ok := formtree.ParseUI(nb.UI); ok {
		n.UI = ui
	} else {
		t.errorf(rng, "Unknown UI", "%s %q: ui %q is not one of text, numeric, password, check, choice, listbox, signature, button or static.", elem, name, nb.UI)
	}
	switch nb.Bind {
	case "", "once", "normal":
		n.Bind = formtree.BindOnce
	case "none":
		n.Bind = formtree.BindNone
	default:
		t.errorf(rng, "Unknown bind", "%s %q: bind must be \"normal\", \"once\" or \"none\", got %q.", elem, name, nb.Bind)
	}
	if nb.Occur != nil {
		if elem.IsRepeatable() {
			n.Occur = t.occur(rng, name, nb.Occur)
		} else {
			t.errorf(rng, "Occur not allowed", "%s %q cannot repeat; only subforms take an occur block.", elem, name)
		}
	}
	if nb.Calculate != nil {
		n.Calculate = &formtree.Calculate{Script: t.script(nb.Calculate.Expr, nb.Calculate.Language, nb.Calculate.RunAt)}
	}
	if nb.Validate != nil {
		n.Validate = t.validate(rng, name, nb.Validate)
	}
	for _, ev := range nb.Events {
		a, ok := activity.Parse(ev.Activity)
		if !ok || a == activity.Unknown {
			t.errorf(ev.Expr.Range, "Unknown activity", "%s %q: event %q is not a known activity.", elem, name, ev.Activity)
			continue
		}
		n.Events = append(n.Events, formtree.Event{
			Activity: a,
			Ref:      ev.Ref,
			Script:   t.script(ev.Expr, ev.Language, ev.RunAt),
		})
	}

	id := t.tree.Add(n)
	if parent != formtree.None {
		if err := t.tree.AppendChild(parent, id); err != nil {
			t.errorf(rng, "Invalid structure", "%v", err)
			return id
		}
	}

	content, diags := nb.Remain.Content(childSchema)
	t.diags = append(t.diags, diags...)
	if content == nil {
		return id
	}
	for _, b := range content.Blocks {
		childName := ""
		if len(b.Labels) > 0 {
			childName = b.Labels[0]
		}
		t.element(id, blockElements[b.Type], childName, b.Body)
	}
	return id
}

// occur applies the defaults min=1, max=min and initial=min.
func (t *translator) occur(rng hcl.Range, name string, ob *occurBlock) *formtree.Occur {
	o := formtree.DefaultOccur()
	if ob.Min != nil {
		o.Min = *ob.Min
	}
	o.Max = o.Min
	if ob.Max != nil {
		o.Max = *ob.Max
	}
	o.Initial = o.Min
	if ob.Initial != nil {
		o.Initial = *ob.Initial
	}
	switch {
	case o.Min < 0:
		t.errorf(rng, "Invalid occur", "subform %q: min must not be negative.", name)
	case o.Max >= 0 && o.Max < o.Min:
		t.errorf(rng, "Invalid occur", "subform %q: max %d is below min %d.", name, o.Max, o.Min)
	}
	return &o
}

func (t *translator) validate(rng hcl.Range, name string, vb *validateBlock) *formtree.Validate {
	v := formtree.NewValidate()
	policy := func(attr, s string, dst *formtree.TestPolicy) {
		if s == "" {
			return
		}
		p, ok := formtree.ParseTestPolicy(s)
		if !ok {
			t.errorf(rng, "Unknown test policy", "%q: %s must be \"error\", \"warning\" or \"disabled\", got %q.", name, attr, s)
			return
		}
		*dst = p
	}
	policy("null_test", vb.NullTest, &v.NullTest)
	policy("format_test", vb.FormatTest, &v.FormatTest)
	policy("script_test", vb.ScriptTest, &v.ScriptTest)

	v.Picture = vb.Picture
	v.NullMessage = vb.NullMessage
	v.FormatMessage = vb.FormatMessage
	v.ScriptMessage = vb.ScriptMessage
	if vb.Expr != nil {
		v.Script = t.script(vb.Expr, vb.Language, vb.RunAt)
	}
	return v
}

// script captures the source of attr. HCL scripts keep the expression text
// as written; other languages take the value of a string literal.
func (t *translator) script(attr *hcl.Attribute, lang, runAt string) formtree.Script {
	if lang == "" {
		lang = t.lang
	}
	s := formtree.Script{Language: lang}
	switch runAt {
	case "", "client":
		s.RunAt = formtree.RunAtClient
	case "server":
		s.RunAt = formtree.RunAtServer
	case "both":
		s.RunAt = formtree.RunAtBoth
	default:
		t.errorf(attr.Range, "Unknown run_at", "run_at must be \"client\", \"server\" or \"both\", got %q.", runAt)
	}

	if strings.EqualFold(lang, hclscript.Language) {
		s.Source = strings.TrimSpace(string(attr.Expr.Range().SliceBytes(t.src)))
		return s
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() || val.IsNull() || !val.Type().Equals(cty.String) {
		t.errorf(attr.Range, "Script must be a string", "%s scripts are written as a quoted string.", lang)
		return s
	}
	s.Source = strings.TrimSpace(val.AsString())
	return s
}
