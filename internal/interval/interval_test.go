package interval

import (
	"math"
	"math/rand"
	"slices"
	"sync"
	"testing"
)

func TestQueryReturnsCoveringValuesInInsertionOrder(t *testing.T) {
	m := New[uint32, string]()
	mustInsert(t, m, 10, 20, "a")
	mustInsert(t, m, 0, 5, "b")
	mustInsert(t, m, 15, 30, "c")
	mustInsert(t, m, 0, 100, "d")

	cases := []struct {
		point uint32
		want  []string
	}{
		{0, []string{"b", "d"}},
		{5, []string{"b", "d"}},
		{6, []string{"d"}},
		{10, []string{"a", "d"}},
		{15, []string{"a", "c", "d"}},
		{20, []string{"a", "c", "d"}},
		{21, []string{"c", "d"}},
		{100, []string{"d"}},
		{101, nil},
	}
	for _, tc := range cases {
		got := m.Query(tc.point)
		if !slices.Equal(got, tc.want) {
			t.Errorf("Query(%d) = %v, want %v", tc.point, got, tc.want)
		}
	}
}

func TestFirstPrefersEarliestInserted(t *testing.T) {
	m := New[uint32, float32]()
	mustInsert(t, m, 4, math.MaxUint32, 0.25)
	mustInsert(t, m, 0, 4, 0.75)

	if v, ok := m.First(4); !ok || v != 0.25 {
		t.Fatalf("First(4) = %v,%v, want 0.25,true", v, ok)
	}
	if v, ok := m.First(3); !ok || v != 0.75 {
		t.Fatalf("First(3) = %v,%v, want 0.75,true", v, ok)
	}
	if v, ok := m.First(math.MaxUint32); !ok || v != 0.25 {
		t.Fatalf("First(max) = %v,%v, want 0.25,true", v, ok)
	}
}

func TestEmptyMap(t *testing.T) {
	var m Map[uint32, int]
	if got := m.Query(7); got != nil {
		t.Fatalf("Query on empty map = %v, want nil", got)
	}
	if _, ok := m.First(7); ok {
		t.Fatalf("First on empty map should report no match")
	}
	if m.Len() != 0 {
		t.Fatalf("Len = %d, want 0", m.Len())
	}
}

func TestInsertRejectsInvertedRange(t *testing.T) {
	m := New[uint32, int]()
	if err := m.Insert(5, 4, 1); err != ErrInvalidRange {
		t.Fatalf("Insert(5,4) err = %v, want ErrInvalidRange", err)
	}
	if m.Len() != 0 {
		t.Fatalf("rejected interval was stored")
	}
}

func TestInsertAfterQueryReindexes(t *testing.T) {
	m := New[uint32, int]()
	mustInsert(t, m, 0, 9, 1)
	if got := m.Query(12); got != nil {
		t.Fatalf("Query(12) = %v, want nil", got)
	}
	mustInsert(t, m, 10, 19, 2)
	if got := m.Query(12); !slices.Equal(got, []int{2}) {
		t.Fatalf("Query(12) after insert = %v, want [2]", got)
	}
}

func TestQueryMatchesLinearScan(t *testing.T) {
	type iv struct{ start, end uint32 }
	rng := rand.New(rand.NewSource(7))
	m := New[uint32, int]()
	var all []iv
	for i := 0; i < 500; i++ {
		s := uint32(rng.Intn(1000))
		e := s + uint32(rng.Intn(50))
		all = append(all, iv{s, e})
		mustInsert(t, m, s, e, i)
	}
	for p := uint32(0); p < 1100; p += 3 {
		var want []int
		for i, v := range all {
			if v.start <= p && p <= v.end {
				want = append(want, i)
			}
		}
		if got := m.Query(p); !slices.Equal(got, want) {
			t.Fatalf("Query(%d) = %v, want %v", p, got, want)
		}
	}
}

func TestConcurrentQueriesAfterBuild(t *testing.T) {
	m := New[uint32, int]()
	for i := 0; i < 64; i++ {
		mustInsert(t, m, uint32(i*10), uint32(i*10+15), i)
	}
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := uint32(0); p < 640; p++ {
				if len(m.Query(p)) == 0 {
					t.Errorf("Query(%d) returned no values", p)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func mustInsert[V any](t *testing.T, m *Map[uint32, V], start, end uint32, v V) {
	t.Helper()
	if err := m.Insert(start, end, v); err != nil {
		t.Fatalf("Insert(%d, %d): %v", start, end, err)
	}
}
