// Package hcl loads form templates written in HCL. A file holds one form
// block whose nested subform, field and draw blocks become the template
// tree, in source order. Script expressions are kept as source text and are
// evaluated later by the engine of their language.
package hcl
