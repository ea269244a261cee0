package numeric

// Run is a maximal block of consecutive samples on the same side of zero.
// Value is the first sample of the block.
type Run struct {
	Value  float64
	Start  int
	Length int
}

// Positive reports whether the run lies strictly above zero.
func (r Run) Positive() bool { return r.Value > 0 }

// RunLengths encodes x as runs of positive and non-positive samples.
func RunLengths(x []float64) []Run {
	var runs []Run
	for i, v := range x {
		if len(runs) > 0 {
			last := &runs[len(runs)-1]
			if (v > 0) == last.Positive() {
				last.Length++
				continue
			}
		}
		runs = append(runs, Run{Value: v, Start: i, Length: 1})
	}
	return runs
}
