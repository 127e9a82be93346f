package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes the top level of a form file.
type fileRoot struct {
	Forms []*formBlock `hcl:"form,block"`
}

// formBlock is the `form "name" {}` block.
type formBlock struct {
	Name           string   `hcl:"name,label"`
	ScriptLanguage string   `hcl:"script_language,optional"`
	Body           hcl.Body `hcl:",remain"`
}

// nodeBlock holds what every element block may declare. Child element
// blocks are left in Remain and decoded in source order.
type nodeBlock struct {
	UI         string  `hcl:"ui,optional"`
	Value      string  `hcl:"value,optional"`
	Bind       string  `hcl:"bind,optional"`
	Caption    string  `hcl:"caption,optional"`
	Locale     string  `hcl:"locale,optional"`
	LineHeight float64 `hcl:"line_height,optional"`

	Occur     *occurBlock    `hcl:"occur,block"`
	Calculate *scriptBlock   `hcl:"calculate,block"`
	Validate  *validateBlock `hcl:"validate,block"`
	Events    []*eventBlock  `hcl:"event,block"`

	Remain hcl.Body `hcl:",remain"`
}

// occurBlock bounds a repeatable subform. A negative max is unbounded.
type occurBlock struct {
	Min     *int `hcl:"min,optional"`
	Max     *int `hcl:"max,optional"`
	Initial *int `hcl:"initial,optional"`
}

type scriptBlock struct {
	Expr     *hcl.Attribute `hcl:"expr"`
	Language string         `hcl:"language,optional"`
	RunAt    string         `hcl:"run_at,optional"`
}

type validateBlock struct {
	NullTest   string `hcl:"null_test,optional"`
	FormatTest string `hcl:"format_test,optional"`
	ScriptTest string `hcl:"script_test,optional"`

	Picture       string `hcl:"picture,optional"`
	NullMessage   string `hcl:"null_message,optional"`
	FormatMessage string `hcl:"format_message,optional"`
	ScriptMessage string `hcl:"script_message,optional"`

	Expr     *hcl.Attribute `hcl:"expr,optional"`
	Language string         `hcl:"language,optional"`
	RunAt    string         `hcl:"run_at,optional"`
}

type eventBlock struct {
	Activity string         `hcl:"activity,label"`
	Ref      string         `hcl:"ref,optional"`
	Expr     *hcl.Attribute `hcl:"expr"`
	Language string         `hcl:"language,optional"`
	RunAt    string         `hcl:"run_at,optional"`
}

// childSchema lists the element blocks a container may hold.
var childSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "subform", LabelNames: []string{"name"}},
		{Type: "subform_set", LabelNames: []string{"name"}},
		{Type: "exclgroup", LabelNames: []string{"name"}},
		{Type: "field", LabelNames: []string{"name"}},
		{Type: "draw", LabelNames: []string{"name"}},
		{Type: "area", LabelNames: []string{"name"}},
		{Type: "variables"},
	},
}
