package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taken(v uint64) *uint64 { return &v }

func TestCountersAdd(t *testing.T) {
	a := NewCounters(10, 5)
	b := NewCounters(20, 10)

	assert.Equal(t, NewCounters(30, 15), a.Add(b))
	assert.Equal(t, NewCounters(10, 5), a, "Add must not mutate its receiver")
	assert.Equal(t, NewCounters(20, 10), b)
}

func TestPercentage(t *testing.T) {
	_, ok := Counters{}.Percentage()
	assert.False(t, ok, "zero count has no percentage")

	pct, ok := NewCounters(4, 3).Percentage()
	require.True(t, ok)
	assert.InDelta(t, 75.0, pct, 1e-9)

	pct, ok = NewCounters(3, 0).Percentage()
	require.True(t, ok)
	assert.Zero(t, pct)
}

func TestAggregatedAddIsOrderIndependent(t *testing.T) {
	a := Aggregated{Lines: NewCounters(4, 3), Functions: NewCounters(2, 1)}
	b := Aggregated{Lines: NewCounters(2, 2), Branches: NewCounters(6, 1)}
	c := Aggregated{Functions: NewCounters(1, 1), Branches: NewCounters(2, 2)}

	assert.Equal(t, a.Add(b), b.Add(a))
	assert.Equal(t, a.Add(b).Add(c), a.Add(b.Add(c)))
	assert.Equal(t, a.Add(b).Add(c), Sum(c, a, b))
	assert.True(t, Sum().IsZero())
}

func TestFromRawRecord(t *testing.T) {
	tests := []struct {
		name   string
		record RawRecord
		want   Aggregated
	}{
		{
			name:   "empty record",
			record: NewRawRecord("a.cpp"),
			want:   Aggregated{},
		},
		{
			name:   "one line hit three times",
			record: RawRecord{Lines: map[uint32]uint64{1: 3}},
			want:   Aggregated{Lines: NewCounters(1, 1)},
		},
		{
			name:   "one line never hit",
			record: RawRecord{Lines: map[uint32]uint64{1: 0}},
			want:   Aggregated{Lines: NewCounters(1, 0)},
		},
		{
			name:   "three lines two covered",
			record: RawRecord{Lines: map[uint32]uint64{1: 0, 2: 3, 3: 1}},
			want:   Aggregated{Lines: NewCounters(3, 2)},
		},
		{
			name:   "three functions two covered",
			record: RawRecord{Functions: map[string]uint64{"f1": 0, "f2": 3, "f3": 1}},
			want:   Aggregated{Functions: NewCounters(3, 2)},
		},
		{
			name: "branches count only positive taken values",
			record: RawRecord{Branches: map[BranchID]*uint64{
				{Line: 1}:            taken(0),
				{Line: 2}:            taken(3),
				{Line: 3}:            taken(1),
				{Line: 3, Branch: 1}: nil,
			}},
			want: Aggregated{Branches: NewCounters(4, 2)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromRawRecord(tt.record))
		})
	}
}

func TestRawRecordMerge(t *testing.T) {
	r := NewRawRecord("a.cpp")
	r.Lines[1] = 1
	r.Functions["f"] = 0
	r.Branches[BranchID{Line: 1}] = nil
	r.Branches[BranchID{Line: 2}] = taken(2)

	r.Merge(RawRecord{
		Lines:     map[uint32]uint64{1: 2, 5: 0},
		Functions: map[string]uint64{"f": 4, "g": 0},
		Branches: map[BranchID]*uint64{
			{Line: 1}: taken(1),
			{Line: 2}: nil,
			{Line: 3}: nil,
		},
	})

	assert.Equal(t, map[uint32]uint64{1: 3, 5: 0}, r.Lines)
	assert.Equal(t, map[string]uint64{"f": 4, "g": 0}, r.Functions)
	require.NotNil(t, r.Branches[BranchID{Line: 1}])
	assert.Equal(t, uint64(1), *r.Branches[BranchID{Line: 1}])
	assert.Equal(t, uint64(2), *r.Branches[BranchID{Line: 2}])
	v, ok := r.Branches[BranchID{Line: 3}]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestSortedTables(t *testing.T) {
	lines := SortedLines(map[uint32]uint64{3: 0, 1: 2, 2: 5})
	assert.Equal(t, []LineHit{{1, 2}, {2, 5}, {3, 0}}, lines)

	fns := SortedFunctions(map[string]uint64{"b": 1, "a": 0})
	assert.Equal(t, []FunctionHit{{"a", 0}, {"b", 1}}, fns)
}
