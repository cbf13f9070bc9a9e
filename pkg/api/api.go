// Package api provides the public, programmatic entry point to the
// GLSL minifier.
//
// This package is intended for embedding the minifier in other Go
// programs. For CLI usage, see cmd/glslmin.
package api

import (
	"fmt"

	"github.com/hugodaniel/glslmin/internal/block"
	"github.com/hugodaniel/glslmin/internal/diagnostic"
	"github.com/hugodaniel/glslmin/internal/lexer"
	"github.com/hugodaniel/glslmin/internal/rewrite"
)

// Options controls minification behavior. It mirrors rewrite.Options
// directly; callers that don't need the distinction can just convert.
type Options = rewrite.Options

// Stats reports what a Crunch run actually did.
type Stats = rewrite.Stats

// Source is one shader source file to minify. Stage names a shader
// stage ("vertex", "fragment", "geometry") or "" for a generic source
// that can share names with any stage.
type Source struct {
	Name  string
	Stage string
	Text  string
}

// Output is one minified source, keyed by the Name its Source carried
// in.
type Output struct {
	Name string
	Code string
}

// Result is the outcome of a Crunch run.
type Result struct {
	Outputs     []Output
	Stats       Stats
	Diagnostics []diagnostic.Diagnostic
}

func stageOf(name string) block.Stage {
	switch name {
	case "vertex":
		return block.StageVertex
	case "fragment":
		return block.StageFragment
	case "geometry":
		return block.StageGeometry
	default:
		return block.StageGeneric
	}
}

// Crunch tokenizes, parses, and minifies every source together, so that
// varyings shared between e.g. a vertex and a fragment source are
// renamed consistently across both. InvariantError from the rewrite
// engine is returned wrapped (errors.As still finds it; never
// swallowed); a parse miss is not an
// error — the unrecognized statement survives verbatim in the output.
func Crunch(sources []Source, opts Options) (Result, error) {
	parsed := make([]*block.Source, len(sources))
	for i, s := range sources {
		toks := lexer.Tokenize(s.Text)
		parsed[i] = block.ParseSource(s.Name, stageOf(s.Stage), toks)
	}

	db := rewrite.NewDatabase(parsed)
	stats, err := db.Crunch(opts)
	if err != nil {
		return Result{}, fmt.Errorf("crunching: %w", err)
	}

	outputs := make([]Output, len(parsed))
	var diags []diagnostic.Diagnostic
	for i, src := range parsed {
		outputs[i] = Output{Name: src.Name, Code: src.Format()}
		diags = append(diags, rawStatementDiagnostics(src)...)
	}

	return Result{Outputs: outputs, Stats: stats, Diagnostics: diags}, nil
}

// rawStatementDiagnostics reports every statement that fell through to
// raw, verbatim pass-through during parsing — a recoverable parse miss,
// never fatal, but worth surfacing to a caller running verbose. Tokens carry no byte offsets, so positions are left at 0;
// the raw text itself identifies the statement.
func rawStatementDiagnostics(src *block.Source) []diagnostic.Diagnostic {
	list := diagnostic.NewList(src.Name, src.Format())
	for _, b := range block.Flatten(src) {
		if raw, ok := b.(*block.Raw); ok {
			list.AddParseMiss(0, fmt.Sprintf("unrecognized statement passed through verbatim: %q", raw.Format()))
		}
	}
	return list.Diagnostics()
}

// CrunchOne is a convenience wrapper around Crunch for the common
// single-source case.
func CrunchOne(name, stage, text string, opts Options) (string, Stats, error) {
	result, err := Crunch([]Source{{Name: name, Stage: stage, Text: text}}, opts)
	if err != nil {
		return "", Stats{}, err
	}
	return result.Outputs[0].Code, result.Stats, nil
}
