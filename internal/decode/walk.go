package decode

import (
	"fmt"
	"math"

	"github.com/meteodata/gobufr/internal/bufrerr"
	"github.com/meteodata/gobufr/internal/fxy"
	"github.com/meteodata/gobufr/internal/tables"
)

type leafKind int

const (
	leafElement leafKind = iota
	leafAssoc
	leafChars
	leafSkip
)

// leaf is one executed plan operation with its decoded values, one per
// subset covered by the pass.
type leaf struct {
	kind  leafKind
	code  fxy.FXY
	elem  tables.Element // valid for leafElement
	group int            // replication instance, 0 outside replications
	rep   int            // repetition index within group
	vals  []Value
}

// sig identifies a leaf's structural position, independent of data
// content. Two subset passes align when their sig sequences match.
type sig struct {
	kind  leafKind
	code  fxy.FXY
	group int
	rep   int
}

func (l leaf) sig() sig { return sig{kind: l.kind, code: l.code, group: l.group, rep: l.rep} }

type groupCtx struct {
	group int
	rep   int
}

type frameKind int

const (
	frameSlice frameKind = iota
	frameRepeat
)

// wframe is one entry of the explicit expansion work stack. Slices walk
// a descriptor list left to right; repeats re-emit a replication body.
type wframe struct {
	kind  frameKind
	descs []fxy.FXY
	idx   int
	ctx   groupCtx
	// repeat bookkeeping
	times   int
	current int
	group   int
}

// walker expands a descriptor list depth-first against the resolver and
// executes each leaf against the value source as it is produced.
// Delayed replication counts are read from the source at expansion
// time, before the repeated group is re-emitted.
type walker struct {
	res      tables.Resolver
	st       *opState
	src      source
	leaves   []leaf
	groupSeq int
}

func newWalker(res tables.Resolver, src source) *walker {
	return &walker{res: res, st: newOpState(), src: src}
}

func (w *walker) walk(descs []fxy.FXY) error {
	stack := []wframe{{kind: frameSlice, descs: descs}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.kind == frameRepeat {
			if f.current >= f.times {
				continue
			}
			stack = append(stack, wframe{
				kind: frameRepeat, descs: f.descs,
				times: f.times, current: f.current + 1, group: f.group,
			})
			stack = append(stack, wframe{
				kind: frameSlice, descs: f.descs,
				ctx: groupCtx{group: f.group, rep: f.current},
			})
			continue
		}

		if f.idx >= len(f.descs) {
			continue
		}
		des := f.descs[f.idx]
		next := wframe{kind: frameSlice, descs: f.descs, idx: f.idx + 1, ctx: f.ctx}

		switch des.F() {
		case fxy.ClassElement:
			stack = append(stack, next)
			if err := w.element(des, f.ctx); err != nil {
				return err
			}

		case fxy.ClassOperator:
			stack = append(stack, next)
			if err := w.operator(des, f.ctx); err != nil {
				return err
			}

		case fxy.ClassSequence:
			seq, ok := w.res.Sequence(des)
			if !ok {
				return fmt.Errorf("%w: %s not found in Table D", bufrerr.ErrUnknownDescriptor, des)
			}
			stack = append(stack, next)
			// The chain replaces the sequence descriptor in place.
			stack = append(stack, wframe{kind: frameSlice, descs: seq.Chain, ctx: f.ctx})

		case fxy.ClassReplication:
			x, y := int(des.X()), int(des.Y())
			bodyStart := f.idx + 1
			count := y
			if y == 0 {
				if bodyStart >= len(f.descs) {
					return fmt.Errorf("%w: delayed replication %s lacks its count descriptor",
						bufrerr.ErrMalformedMessage, des)
				}
				cd := f.descs[bodyStart]
				if !cd.IsClass31() {
					return fmt.Errorf("%w: delayed replication count %s is not a class 31 element",
						bufrerr.ErrMalformedMessage, cd)
				}
				c, err := w.readCount(cd)
				if err != nil {
					return err
				}
				count = c
				bodyStart++
			}
			bodyEnd := bodyStart + x
			if bodyEnd > len(f.descs) {
				return fmt.Errorf("%w: replication %s wraps %d descriptors, only %d follow",
					bufrerr.ErrMalformedMessage, des, x, len(f.descs)-bodyStart)
			}
			w.groupSeq++
			stack = append(stack, wframe{kind: frameSlice, descs: f.descs, idx: bodyEnd, ctx: f.ctx})
			stack = append(stack, wframe{
				kind: frameRepeat, descs: f.descs[bodyStart:bodyEnd],
				times: count, group: w.groupSeq,
			})
		}
	}
	return nil
}

// readCount decodes a delayed replication count. Under compression the
// count is read once as base plus per-subset deviations; the subsets
// must agree.
func (w *walker) readCount(cd fxy.FXY) (int, error) {
	e, ok := w.res.Element(cd)
	if !ok {
		return 0, fmt.Errorf("%w: %s not found in Table B", bufrerr.ErrUnknownDescriptor, cd)
	}
	vals, _, err := w.src.readRaw(e.Width)
	if err != nil {
		return 0, err
	}
	// Class 31 elements have no missing convention; all-ones is a count.
	c := vals[0]
	for _, v := range vals[1:] {
		if v != c {
			return 0, fmt.Errorf("%w: delayed replication counts differ across compressed subsets (%d vs %d)",
				bufrerr.ErrMalformedMessage, c, v)
		}
	}
	return int(c), nil
}

func (w *walker) element(des fxy.FXY, ctx groupCtx) error {
	// Inside a 2-03 block, element descriptors define replacement
	// reference values instead of data.
	if w.st.refDefineBits > 0 {
		return w.defineReference(des)
	}

	e, ok := w.res.Element(des)
	if !ok {
		if w.st.localOn {
			// 2-06 lets us step over a local descriptor we cannot
			// resolve: its width is known even if its meaning is not.
			vals, _, err := w.src.readRaw(w.st.localWidth)
			if err != nil {
				return err
			}
			w.st.clearOneShots()
			w.emitSkip(des, ctx, len(vals))
			return nil
		}
		return fmt.Errorf("%w: %s not found in Table B", bufrerr.ErrUnknownDescriptor, des)
	}

	if w.st.skipRemaining > 0 {
		w.st.skipRemaining--
		if !dataPresent(des) {
			w.emitSkip(des, ctx, w.subsetSpan())
			return nil
		}
	}

	// Associated fields precede their target element, outermost first.
	if len(w.st.assoc) > 0 && !des.IsClass31() {
		for _, width := range w.st.assoc {
			vals, miss, err := w.src.readRaw(width)
			if err != nil {
				return err
			}
			out := make([]Value, len(vals))
			for i := range vals {
				if miss[i] {
					out[i] = Missing()
				} else {
					out[i] = Number(float64(vals[i]))
				}
			}
			w.leaves = append(w.leaves, leaf{kind: leafAssoc, code: des, group: ctx.group, rep: ctx.rep, vals: out})
		}
	}

	if e.IsText() {
		nbytes := (e.Width + 7) / 8
		if w.st.strWidth > 0 {
			nbytes = w.st.strWidth
		}
		vals, miss, err := w.src.readText(nbytes)
		if err != nil {
			return err
		}
		out := make([]Value, len(vals))
		for i := range vals {
			if miss[i] {
				out[i] = Missing()
			} else {
				out[i] = Text(vals[i])
			}
		}
		w.st.clearOneShots()
		w.leaves = append(w.leaves, leaf{kind: leafElement, code: des, elem: e, group: ctx.group, rep: ctx.rep, vals: out})
		return nil
	}

	width, err := w.st.effectiveWidth(e)
	if err != nil {
		return err
	}
	scale := w.st.effectiveScale(e)
	ref := w.st.effectiveReference(e)
	vals, miss, err := w.src.readRaw(width)
	if err != nil {
		return err
	}
	out := make([]Value, len(vals))
	factor := math.Pow(10, -float64(scale))
	for i := range vals {
		if miss[i] && !des.IsClass31() {
			out[i] = Missing()
			continue
		}
		out[i] = Number((float64(vals[i]) + ref) * factor)
	}
	w.st.clearOneShots()
	w.leaves = append(w.leaves, leaf{kind: leafElement, code: des, elem: e, group: ctx.group, rep: ctx.rep, vals: out})
	return nil
}

func (w *walker) operator(des fxy.FXY, ctx groupCtx) error {
	// 2-05-YYY inserts a character literal into the data stream; every
	// other operator only mutates expander state.
	if des.X() == 5 {
		vals, _, err := w.src.readText(int(des.Y()))
		if err != nil {
			return err
		}
		out := make([]Value, len(vals))
		for i := range vals {
			out[i] = Text(vals[i])
		}
		w.leaves = append(w.leaves, leaf{kind: leafChars, code: des, group: ctx.group, rep: ctx.rep, vals: out})
		return nil
	}
	return w.st.apply(des)
}

// defineReference consumes one redefined reference value inside a 2-03
// block. The top bit is a sign bit over the remaining magnitude.
func (w *walker) defineReference(des fxy.FXY) error {
	bits := w.st.refDefineBits
	vals, _, err := w.src.readRaw(bits)
	if err != nil {
		return err
	}
	raw := vals[0]
	signBit := uint64(1) << (bits - 1)
	var ref int64
	if raw&signBit != 0 {
		ref = -int64(raw &^ signBit)
	} else {
		ref = int64(raw)
	}
	w.st.refOverride[des] = ref
	return nil
}

func (w *walker) emitSkip(des fxy.FXY, ctx groupCtx, n int) {
	vals := make([]Value, n)
	for i := range vals {
		vals[i] = Missing()
	}
	w.leaves = append(w.leaves, leaf{kind: leafSkip, code: des, group: ctx.group, rep: ctx.rep, vals: vals})
}

// subsetSpan reports how many subsets the current pass covers.
func (w *walker) subsetSpan() int {
	if cs, ok := w.src.(*compressedSource); ok {
		return cs.n
	}
	return 1
}
