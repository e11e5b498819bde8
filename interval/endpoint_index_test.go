package interval

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func scanAll(us *UnionScanner, limit PosType) []PosType {
	var (
		start, end PosType
		got        []PosType
	)
	for us.Scan(&start, &end, limit) {
		got = append(got, start, end)
	}
	return got
}

func TestUnionScanner(t *testing.T) {
	us := NewUnionScanner([]PosType{5, 17, 20, 25})
	expect.EQ(t, us.Pos(), PosType(5))
	expect.EQ(t, scanAll(&us, 22), []PosType{5, 17, 20, 22})
	expect.EQ(t, us.Pos(), PosType(22))
	expect.EQ(t, scanAll(&us, 30), []PosType{22, 25})
	expect.EQ(t, us.Pos(), PosType(PosTypeMax))
}

func TestUnionScannerSkipsEmpty(t *testing.T) {
	us := NewUnionScanner([]PosType{3, 3, 5, 9, 9, 9, 12, 14})
	expect.EQ(t, scanAll(&us, PosTypeMax), []PosType{5, 9, 12, 14})

	us = NewUnionScanner([]PosType{4, 4})
	expect.EQ(t, us.Pos(), PosType(PosTypeMax))
	expect.EQ(t, len(scanAll(&us, PosTypeMax)), 0)

	us = NewUnionScanner(nil)
	expect.EQ(t, len(scanAll(&us, PosTypeMax)), 0)
}

func TestEndpointIndex(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for iter := 0; iter < 100; iter++ {
		endpoints := make([]PosType, 2*r.Intn(8))
		for i := range endpoints {
			endpoints[i] = PosType(r.Intn(100))
		}
		sort.Slice(endpoints, func(i, j int) bool { return endpoints[i] < endpoints[j] })

		idx := NewEndpointIndex(-1, endpoints)
		for pos := PosType(0); pos < 110; pos++ {
			idx.Update(pos, endpoints)
			expect.EQ(t, idx, NewEndpointIndex(pos, endpoints))
			n := 0
			for _, e := range endpoints {
				if e <= pos {
					n++
				}
			}
			expect.EQ(t, int(idx), n, "endpoints %v pos %d", endpoints, pos)
		}
	}
}
