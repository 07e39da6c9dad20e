package synth

import (
	"context"
	"fmt"
	"io"

	"github.com/protoverge/protoverge/internal/generator/ir"
)

// Emitter is the backend boundary: whatever consumes synthesized artifacts
// implements it. This repository ships only the dump emitter; language
// backends live in separate programs.
type Emitter interface {
	Emit(ctx context.Context, artifacts []*Artifact) error
}

// DumpEmitter writes artifacts as printed IR in artifact order, one
// function after another. Given the same artifacts the output is
// byte-identical, which is what the incremental cache hashes.
type DumpEmitter struct {
	w io.Writer
}

// NewDumpEmitter creates a dump emitter writing to w
func NewDumpEmitter(w io.Writer) *DumpEmitter {
	return &DumpEmitter{w: w}
}

// Emit writes every artifact's functions as s-expressions, each message
// under a header comment line.
func (e *DumpEmitter) Emit(ctx context.Context, artifacts []*Artifact) error {
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(e.w, "; %s (wrapper %s, %d fields)\n", a.Message, a.Wrapper, a.Fields); err != nil {
			return err
		}
		for _, f := range a.Funcs {
			if err := ir.Fprint(e.w, f); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(e.w); err != nil {
			return err
		}
	}
	return nil
}
