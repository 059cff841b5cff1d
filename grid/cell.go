package grid

// QuantityShift is the bit position of the lowest quantity bit in a packed cell.
const QuantityShift = 10

// MaxQuantity is the largest quantity a cell can hold.
const MaxQuantity uint32 = 1<<(32-QuantityShift) - 1

// Cell is one grid location: kind flags and a resource quantity.
// Kind and Quantity are independent; changing one never touches the other.
type Cell struct {
	Kind     Kind
	Quantity uint32
}

// NewCell returns a cell with the given kind and a clamped quantity.
func NewCell(k Kind, q uint32) Cell {
	c := Cell{Kind: k & KindMask}
	c.SetQuantity(q)
	return c
}

// SetQuantity stores q, clamped to MaxQuantity.
func (c *Cell) SetQuantity(q uint32) {
	c.Quantity = min(q, MaxQuantity)
}

// Take removes up to n units and returns how many were removed.
func (c *Cell) Take(n uint32) uint32 {
	taken := min(c.Quantity, n)
	c.Quantity -= taken
	return taken
}

// Give adds up to n units without exceeding limit (or MaxQuantity) and returns how many were added.
func (c *Cell) Give(n, limit uint32) uint32 {
	limit = min(limit, MaxQuantity)
	if c.Quantity >= limit {
		return 0
	}
	added := min(n, limit-c.Quantity)
	c.Quantity += added
	return added
}

// Empty reports whether the cell has no flags and no quantity.
func (c Cell) Empty() bool {
	return c.Kind.IsEmpty() && c.Quantity == 0
}

// Pack encodes the cell as kind bits in the low word and quantity above QuantityShift.
func (c Cell) Pack() uint32 {
	return uint32(c.Kind&KindMask) | min(c.Quantity, MaxQuantity)<<QuantityShift
}

// Unpack decodes a packed cell.
func Unpack(v uint32) Cell {
	return Cell{
		Kind:     Kind(v) & KindMask,
		Quantity: v >> QuantityShift,
	}
}
