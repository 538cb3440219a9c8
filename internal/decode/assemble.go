package decode

import "math"

// recordFor shapes a single leaf value into a Record. Associated fields
// and character literals carry no Table B entry, so their names stay
// empty.
func recordFor(l leaf, v Value) Record {
	switch l.kind {
	case leafElement:
		return Record{Name: l.elem.Name, Unit: l.elem.Unit, Value: v}
	case leafAssoc:
		return Record{Name: "Associated field", Unit: "Numeric", Value: v}
	case leafChars:
		return Record{Name: "Character data", Unit: "CCITT IA5", Value: v}
	default:
		return Record{Value: Missing()}
	}
}

// renderSequential flattens one subset's leaves into records in stream
// order, one record per repetition of each element. Skip leaves keep
// their place as unnamed missing records so indexing stays stable.
func renderSequential(leaves []leaf, subset int) []Record {
	out := make([]Record, 0, len(leaves))
	for _, l := range leaves {
		out = append(out, recordFor(l, l.vals[subset]))
	}
	return out
}

// assembleGrouped renders leaves whose vals span n aligned subsets.
// Runs of leaves sharing a replication group become per-field arrays
// indexed [subset][repetition] when the body is simple enough; anything
// else falls back to scalar-or-sequence per leaf.
func assembleGrouped(leaves []leaf, n int) []Record {
	var out []Record
	for i := 0; i < len(leaves); {
		l := leaves[i]
		if l.kind == leafSkip {
			out = append(out, recordFor(l, Missing()))
			i++
			continue
		}
		if l.group == 0 {
			out = append(out, scalarOrSequence(l, n))
			i++
			continue
		}
		j := i
		for j < len(leaves) && leaves[j].group == l.group {
			j++
		}
		if recs, ok := arrayRecords(leaves[i:j], n); ok {
			out = append(out, recs...)
		} else {
			for _, rl := range leaves[i:j] {
				if rl.kind == leafSkip {
					out = append(out, recordFor(rl, Missing()))
					continue
				}
				out = append(out, scalarOrSequence(rl, n))
			}
		}
		i = j
	}
	return out
}

// scalarOrSequence collapses a leaf to a single record when all subsets
// agree, and to a per-subset sequence when they differ.
func scalarOrSequence(l leaf, n int) Record {
	first := l.vals[0]
	same := true
	for _, v := range l.vals[1:] {
		if !v.Equal(first) {
			same = false
			break
		}
	}
	if same {
		return recordFor(l, first)
	}
	seq := make([]Value, n)
	copy(seq, l.vals)
	return recordFor(l, SequenceOf(seq))
}

// arrayRecords tries to render a replication group as one array record
// per body field. It applies only to flat bodies of numeric elements:
// repetition 0 defines the field pattern and every later repetition
// must repeat it exactly.
func arrayRecords(run []leaf, n int) ([]Record, bool) {
	for _, l := range run {
		if l.kind != leafElement || l.elem.IsText() {
			return nil, false
		}
	}
	reps := 0
	for _, l := range run {
		if l.rep+1 > reps {
			reps = l.rep + 1
		}
	}
	fields := 0
	for _, l := range run {
		if l.rep != 0 {
			break
		}
		fields++
	}
	if fields == 0 || len(run) != reps*fields {
		return nil, false
	}
	for k := 0; k < reps; k++ {
		for f := 0; f < fields; f++ {
			l := run[k*fields+f]
			if l.rep != k || l.code != run[f].code {
				return nil, false
			}
		}
	}

	out := make([]Record, 0, fields)
	for f := 0; f < fields; f++ {
		rows := make([][]float64, n)
		for s := 0; s < n; s++ {
			row := make([]float64, reps)
			for k := 0; k < reps; k++ {
				v := run[k*fields+f].vals[s]
				if v.IsMissing() {
					row[k] = math.NaN()
					continue
				}
				num, ok := v.Float()
				if !ok {
					return nil, false
				}
				row[k] = num
			}
			rows[s] = row
		}
		out = append(out, Record{Name: run[f].elem.Name, Unit: run[f].elem.Unit, Value: ArrayOf(rows)})
	}
	return out, true
}
