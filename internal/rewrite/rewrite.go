// Package rewrite orchestrates the minification pipeline: expand,
// inline, simplify, swizzle-select, rename, collapse — each gated by a
// caller-supplied iteration cap — across one or more parsed sources that
// may share cross-stage interfaces (varyings).
package rewrite

import (
	"fmt"

	"github.com/hugodaniel/glslmin/internal/block"
)

// Options configures one Crunch run. A negative cap means unbounded.
type Options struct {
	Mode         string // "none" or "full"
	MaxInlines   int
	MaxRenames   int
	MaxSimplifys int
	Verbose      bool
}

// Stats reports what a Crunch run actually did, mirroring the verbose
// summary line the original prints ("GLSL processing done: %i inlines,
// %i simplifys, %i renames, %i combines").
type Stats struct {
	Inlines   int
	Simplifys int
	Renames   int
	Combines  int
}

func (s Stats) String() string {
	return fmt.Sprintf("GLSL processing done: %d inlines, %d simplifys, %d renames, %d combines",
		s.Inlines, s.Simplifys, s.Renames, s.Combines)
}

// InvariantError reports a violated structural invariant (a member
// access outside any member list, a name with no type when renaming
// needs one, disagreeing inout merge endpoints). These are programming
// errors in the parsed tree, not recoverable parse misses, and Crunch
// never swallows them.
type InvariantError struct {
	Entity  string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation on %s: %s", e.Entity, e.Message)
}

// Database owns a set of parsed sources and drives the pass pipeline
// over them. It exclusively owns its Source children; cross-source
// merge groups computed during a pass are non-owning and discarded
// before the next pass begins.
type Database struct {
	Sources []*block.Source
}

// NewDatabase wraps already-parsed sources for rewriting.
func NewDatabase(sources []*block.Source) *Database {
	return &Database{Sources: sources}
}

// Crunch runs the full pass pipeline (or none, under Mode "none") and
// returns what it did. It is single-threaded and synchronous: callers
// must not mutate db concurrently with or during a Crunch call.
func (db *Database) Crunch(opts Options) (Stats, error) {
	var stats Stats

	// Member-access resolution is an invariant check, not a rewrite: it
	// links each `.member` use back to its declaring InoutStruct member
	// so a later rename stays consistent, and reports a genuine
	// parse-tree inconsistency as an InvariantError. It runs
	// unconditionally, even under Mode "none" — an inconsistent tree
	// aborts regardless of what passes would otherwise run.
	if err := resolveMemberAccesses(db.Sources); err != nil {
		return stats, err
	}

	if opts.Mode == "none" {
		return stats, nil
	}

	for _, src := range db.Sources {
		expandRecursive(src)
	}

	inlines, err := db.inlinePass(opts.MaxInlines)
	if err != nil {
		return stats, err
	}
	stats.Inlines = inlines

	simplifys := db.simplifyPass(opts.MaxSimplifys)
	stats.Simplifys = simplifys

	db.selectSwizzle()

	renames, err := db.renamePass(opts.MaxRenames)
	if err != nil {
		return stats, err
	}
	stats.Renames = renames

	for _, src := range db.Sources {
		stats.Combines += collapseRecursive(src)
	}

	return stats, nil
}
