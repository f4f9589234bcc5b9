// Package coverage holds the counter pairs every report node carries and the
// one place where raw hit counts are turned into covered/total counters.
package coverage

import (
	"fmt"
	"sort"
)

// Counters is a {count, covered} pair for one metric kind.
type Counters struct {
	Count   uint64 `json:"count"`
	Covered uint64 `json:"covered"`
}

// NewCounters creates a Counters value.
func NewCounters(count, covered uint64) Counters {
	return Counters{Count: count, Covered: covered}
}

// Add returns the element-wise sum.
func (c Counters) Add(o Counters) Counters {
	return Counters{Count: c.Count + o.Count, Covered: c.Covered + o.Covered}
}

// Percentage returns covered/count*100. ok is false when count is zero.
func (c Counters) Percentage() (pct float64, ok bool) {
	if c.Count == 0 {
		return 0, false
	}
	return float64(c.Covered) / float64(c.Count) * 100, true
}

// String renders "covered/count".
func (c Counters) String() string {
	return fmt.Sprintf("%d/%d", c.Covered, c.Count)
}

// Aggregated carries the counters for lines, functions and branches.
type Aggregated struct {
	Lines     Counters `json:"lines"`
	Functions Counters `json:"functions"`
	Branches  Counters `json:"branches"`
}

// Add returns the element-wise sum. It is associative and commutative, so
// records can be inserted or merged in any order.
func (a Aggregated) Add(o Aggregated) Aggregated {
	return Aggregated{
		Lines:     a.Lines.Add(o.Lines),
		Functions: a.Functions.Add(o.Functions),
		Branches:  a.Branches.Add(o.Branches),
	}
}

// IsZero reports whether nothing has been counted.
func (a Aggregated) IsZero() bool {
	return a == Aggregated{}
}

// Sum adds all values together.
func Sum(values ...Aggregated) Aggregated {
	var total Aggregated
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// BranchID identifies one branch outcome as LCOV's BRDA records do.
type BranchID struct {
	Line   uint32 `json:"line"`
	Block  uint32 `json:"block"`
	Branch uint32 `json:"branch"`
}

// RawRecord is one source file's hit data as read from a tracefile.
// A nil entry in Branches means the branch was never evaluated ("-" in LCOV).
type RawRecord struct {
	Path      string
	Lines     map[uint32]uint64
	Functions map[string]uint64
	Branches  map[BranchID]*uint64
}

// NewRawRecord creates an empty record for path.
func NewRawRecord(path string) RawRecord {
	return RawRecord{
		Path:      path,
		Lines:     map[uint32]uint64{},
		Functions: map[string]uint64{},
		Branches:  map[BranchID]*uint64{},
	}
}

// Merge folds o's hits into r by summing counts per line, function and
// branch. A branch stays absent only when it is absent on both sides.
func (r *RawRecord) Merge(o RawRecord) {
	if r.Lines == nil {
		r.Lines = map[uint32]uint64{}
	}
	if r.Functions == nil {
		r.Functions = map[string]uint64{}
	}
	if r.Branches == nil {
		r.Branches = map[BranchID]*uint64{}
	}
	for line, hits := range o.Lines {
		r.Lines[line] += hits
	}
	for name, hits := range o.Functions {
		r.Functions[name] += hits
	}
	for id, taken := range o.Branches {
		existing, seen := r.Branches[id]
		switch {
		case taken == nil && !seen:
			r.Branches[id] = nil
		case taken == nil:
		case existing == nil:
			v := *taken
			r.Branches[id] = &v
		default:
			v := *existing + *taken
			r.Branches[id] = &v
		}
	}
}

// FromRawRecord interprets hit counts: a line or function is covered when
// it was hit at least once, a branch when its taken count is present and
// positive.
func FromRawRecord(r RawRecord) Aggregated {
	var a Aggregated

	a.Lines.Count = uint64(len(r.Lines))
	for _, hits := range r.Lines {
		if hits > 0 {
			a.Lines.Covered++
		}
	}

	a.Functions.Count = uint64(len(r.Functions))
	for _, hits := range r.Functions {
		if hits > 0 {
			a.Functions.Covered++
		}
	}

	a.Branches.Count = uint64(len(r.Branches))
	for _, taken := range r.Branches {
		if taken != nil && *taken > 0 {
			a.Branches.Covered++
		}
	}

	return a
}

// LineHit is one entry of a per-line hit table.
type LineHit struct {
	Line uint32
	Hits uint64
}

// SortedLines returns the line hits ordered by line number.
func SortedLines(lines map[uint32]uint64) []LineHit {
	out := make([]LineHit, 0, len(lines))
	for line, hits := range lines {
		out = append(out, LineHit{Line: line, Hits: hits})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// FunctionHit is one entry of a per-function hit table.
type FunctionHit struct {
	Name string
	Hits uint64
}

// SortedFunctions returns the function hits ordered by name.
func SortedFunctions(functions map[string]uint64) []FunctionHit {
	out := make([]FunctionHit, 0, len(functions))
	for name, hits := range functions {
		out = append(out, FunctionHit{Name: name, Hits: hits})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
