package decode

import (
	"fmt"
	"math"

	"github.com/meteodata/gobufr/internal/bufrerr"
	"github.com/meteodata/gobufr/internal/fxy"
	"github.com/meteodata/gobufr/internal/tables"
)

// opState carries the Table C operator modifiers threaded through one
// expansion. Code/flag tables and class 31 elements are exempt from
// width and scale changes.
type opState struct {
	widthDelta  int // 2-01-YYY, value Y-128
	widthActive bool
	scaleDelta  int // 2-02-YYY, value Y-128
	scaleActive bool

	augment   int // 2-07-YYY, until 2-07-000
	augmentOn bool

	localWidth int // 2-06-YYY, next element only
	localOn    bool

	strWidth int // 2-08-YYY character width override, 0 = off

	assoc []int // 2-04-YYY associated field width stack

	refDefineBits int               // inside a 2-03-YYY definition block
	refOverride   map[fxy.FXY]int64 // reference values redefined by 2-03
	skipRemaining int               // 2-21-YYY data-not-present countdown
}

func newOpState() *opState {
	return &opState{refOverride: make(map[fxy.FXY]int64)}
}

// exempt reports whether operator width/scale changes do not apply to
// the element.
func exempt(e tables.Element) bool {
	return e.IsCodeOrFlag() || e.Code.IsClass31()
}

// effectiveWidth resolves the element's bit width under the active
// operators. The 2-06 override is one-shot; the caller clears it via
// clearOneShots after reading the element.
func (st *opState) effectiveWidth(e tables.Element) (int, error) {
	if st.localOn {
		return st.localWidth, nil
	}
	w := e.Width
	if !exempt(e) {
		if st.widthActive {
			w += st.widthDelta
		}
		if st.augmentOn {
			// 2-07-YYY widens by (10Y+2)/3 bits.
			w += (10*st.augment + 2) / 3
		}
	}
	if w <= 0 || w > 64 {
		return 0, fmt.Errorf("%w: effective width %d for %s outside 1..64",
			bufrerr.ErrInvalidOperator, w, e.Code)
	}
	return w, nil
}

// effectiveScale resolves the element's scale factor under the active
// operators.
func (st *opState) effectiveScale(e tables.Element) int {
	s := e.Scale
	if !exempt(e) {
		if st.scaleActive {
			s += st.scaleDelta
		}
		if st.augmentOn {
			s += st.augment
		}
	}
	return s
}

// effectiveReference resolves the element's reference value, honouring
// 2-03 redefinitions and the 2-07 multiplier.
func (st *opState) effectiveReference(e tables.Element) float64 {
	if r, ok := st.refOverride[e.Code]; ok {
		return float64(r)
	}
	r := float64(e.Reference)
	if !exempt(e) && st.augmentOn {
		r *= math.Pow(10, float64(st.augment))
	}
	return r
}

// clearOneShots drops the modifiers that apply to a single element.
func (st *opState) clearOneShots() {
	st.localOn = false
}

// apply mutates the state for one F=2 operator descriptor. Operators
// that consume data bits (2-05, and elements inside a 2-03 block) are
// handled by the walker, not here.
func (st *opState) apply(op fxy.FXY) error {
	x, y := op.X(), int(op.Y())
	switch x {
	case 1: // data width change
		if y == 0 {
			st.widthActive = false
		} else {
			st.widthActive = true
			st.widthDelta = y - 128
		}
	case 2: // scale change
		if y == 0 {
			st.scaleActive = false
		} else {
			st.scaleActive = true
			st.scaleDelta = y - 128
		}
	case 3: // change reference values
		switch y {
		case 255:
			if st.refDefineBits == 0 {
				return fmt.Errorf("%w: 2-03-255 with no open reference definition",
					bufrerr.ErrInvalidOperator)
			}
			st.refDefineBits = 0
		case 0:
			st.refDefineBits = 0
			st.refOverride = make(map[fxy.FXY]int64)
		default:
			st.refDefineBits = y
		}
	case 4: // associated field
		if y == 0 {
			if len(st.assoc) == 0 {
				return fmt.Errorf("%w: 2-04-000 with empty associated field stack",
					bufrerr.ErrInvalidOperator)
			}
			st.assoc = st.assoc[:len(st.assoc)-1]
		} else {
			st.assoc = append(st.assoc, y)
		}
	case 6: // width of the next (possibly local) descriptor
		st.localOn = true
		st.localWidth = y
	case 7: // increase scale, reference and width together
		if y == 0 {
			st.augmentOn = false
		} else {
			st.augmentOn = true
			st.augment = y
		}
	case 8: // string width override
		st.strWidth = y
	case 21: // data not present
		st.skipRemaining = y
	default:
		// Quality, bitmap and first-order statistics operators are
		// accepted and ignored, matching common decoder practice.
	}
	return nil
}

// dataPresent reports whether an element's value is carried in the
// data section while a 2-21 block is active. Classes 01..09 and 31 stay
// present.
func dataPresent(code fxy.FXY) bool {
	x := code.X()
	return (x >= 1 && x <= 9) || x == 31
}

func allOnes(w int) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << w) - 1
}
