package las

import "fmt"

// Order selects how records in a file are ordered.
type Order int

const (
	// PileOrder sorts by (aread, bread, orientation, abpos, ...), so that all
	// the alignments of a read pair are adjacent.
	PileOrder Order = iota
	// MapOrder sorts by (aread, abpos, ...), for reference-mapping use.
	MapOrder
)

// String implements fmt.Stringer.
func (o Order) String() string {
	switch o {
	case PileOrder:
		return "pile"
	case MapOrder:
		return "map"
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// ParseOrder converts "pile" or "map" into an Order.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "pile", "":
		return PileOrder, nil
	case "map":
		return MapOrder, nil
	}
	return PileOrder, fmt.Errorf("las.ParseOrder: unknown order %q", s)
}
