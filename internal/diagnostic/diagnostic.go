// Package diagnostic provides structured error reporting for the
// minifier: parse-miss notices (recoverable — a block parser didn't
// match, so the statement survives as raw tokens) and invariant
// violations (fatal — the rewrite engine found the tree in a state that
// should be impossible), each carrying a source position computed from
// the byte offset the caller passes in.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/hugodaniel/glslmin/internal/sourcemap"
)

// Severity represents the severity level of a diagnostic.
type Severity uint8

const (
	// Error prevents further processing of the source it applies to.
	Error Severity = iota
	// Warning is a non-blocking issue (e.g. a parse miss).
	Warning
	// Info is an informational message (e.g. the pass-count summary).
	Info
	// Note provides additional context for another diagnostic.
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Note:
		return "note"
	default:
		return "unknown"
	}
}

// Position represents a position in source code.
type Position struct {
	Offset int // Byte offset (0-based)
	Line   int // Line number (1-based)
	Column int // Column number (1-based)
}

// Range represents a range in source code.
type Range struct {
	Start Position
	End   Position
}

// RelatedInfo provides additional location information for a diagnostic.
type RelatedInfo struct {
	Range   Range
	Message string
}

// Code classifies a diagnostic's kind.
type Code string

const (
	CodeParseMiss         Code = "parse-miss"
	CodeInvariantViolation Code = "invariant-violation"
	CodeUnrecognizedStage Code = "unrecognized-stage"
)

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Source   string // the source name this diagnostic applies to
	Message  string
	Range    Range
	Related  []RelatedInfo
}

// Error returns a formatted error string.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Source, d.Range.Start.Line, d.Range.Start.Column, d.Severity, d.Message)
}

// List collects diagnostics accumulated while processing one source.
type List struct {
	diagnostics []Diagnostic
	lineIndex   *sourcemap.LineIndex
	source      string
	sourceName  string
	hasErrors   bool
}

// NewList creates a diagnostic list for the given named source text.
func NewList(sourceName, source string) *List {
	return &List{
		lineIndex:  sourcemap.NewLineIndex(source),
		source:     source,
		sourceName: sourceName,
	}
}

// Add adds a diagnostic to the list.
func (l *List) Add(d Diagnostic) {
	d.Source = l.sourceName
	l.diagnostics = append(l.diagnostics, d)
	if d.Severity == Error {
		l.hasErrors = true
	}
}

// AddParseMiss records a recoverable parse miss: the statement at
// offset fell through to raw-token pass-through.
func (l *List) AddParseMiss(offset int, message string) {
	l.Add(Diagnostic{Severity: Warning, Code: CodeParseMiss, Message: message, Range: l.MakeRange(offset, offset+1)})
}

// AddInvariantViolation records a fatal invariant violation.
func (l *List) AddInvariantViolation(offset int, message string) {
	l.Add(Diagnostic{Severity: Error, Code: CodeInvariantViolation, Message: message, Range: l.MakeRange(offset, offset+1)})
}

// AddInfo records an informational diagnostic. The CLI's verbose
// summary line does not go through it (cmd/glslmin prints
// rewrite.Stats.String() directly).
func (l *List) AddInfo(message string) {
	l.Add(Diagnostic{Severity: Info, Message: message})
}

// MakePosition converts a byte offset to a 1-based Position.
func (l *List) MakePosition(offset int) Position {
	line, col := l.lineIndex.ByteOffsetToLineColumn(offset)
	return Position{Offset: offset, Line: line + 1, Column: col + 1}
}

// MakeRange converts byte offsets to a Range.
func (l *List) MakeRange(start, end int) Range {
	return Range{Start: l.MakePosition(start), End: l.MakePosition(end)}
}

// HasErrors returns true if any error-level diagnostic was recorded.
func (l *List) HasErrors() bool { return l.hasErrors }

// Diagnostics returns every recorded diagnostic.
func (l *List) Diagnostics() []Diagnostic { return l.diagnostics }

// Count returns the total number of diagnostics.
func (l *List) Count() int { return len(l.diagnostics) }

// Format renders every diagnostic as a human-readable report.
func (l *List) Format() string {
	if len(l.diagnostics) == 0 {
		return ""
	}
	var sb strings.Builder
	for i := range l.diagnostics {
		sb.WriteString(l.FormatDiagnostic(&l.diagnostics[i]))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatDiagnostic formats a single diagnostic with source context.
func (l *List) FormatDiagnostic(d *Diagnostic) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s:%d:%d: %s: %s\n", d.Source, d.Range.Start.Line, d.Range.Start.Column, d.Severity, d.Message))

	if line := l.sourceLine(d.Range.Start.Line); line != "" {
		sb.WriteString(fmt.Sprintf("    %s\n", line))
		caret := strings.Repeat(" ", d.Range.Start.Column-1+4) + "^"
		if d.Range.End.Line == d.Range.Start.Line && d.Range.End.Column > d.Range.Start.Column {
			caret += strings.Repeat("~", d.Range.End.Column-d.Range.Start.Column-1)
		}
		sb.WriteString(caret)
		sb.WriteByte('\n')
	}

	for _, rel := range d.Related {
		sb.WriteString(fmt.Sprintf("  %d:%d: note: %s\n", rel.Range.Start.Line, rel.Range.Start.Column, rel.Message))
	}
	return sb.String()
}

func (l *List) sourceLine(line int) string {
	if line < 1 {
		return ""
	}
	lines := strings.Split(l.source, "\n")
	if line > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line-1], "\r")
}

// Clear removes all diagnostics.
func (l *List) Clear() {
	l.diagnostics = l.diagnostics[:0]
	l.hasErrors = false
}
