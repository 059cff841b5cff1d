// Package grid holds the fixed-size world grid: per-cell kind flags plus a
// bounded resource quantity, and the persisted map format.
package grid

import (
	"errors"
	"strings"
)

// Kind is a set of terrain and occupancy flags.
type Kind uint16

// Kind flags. The bit positions are part of the persisted cell encoding.
const (
	Flower Kind = 1 << iota
	Tree
	Volcano
	ColonyC
	ColonyM
	ColonyY
	Router
	Wire
	Outpost
	Connected
)

// Flag groups.
const (
	Empty      Kind = 0
	HiveFood        = Flower
	RouterFood      = Flower | Tree | Volcano
	Wall            = Tree | Volcano
	ColonyAll       = ColonyC | ColonyM | ColonyY
	KindMask   Kind = 1<<QuantityShift - 1
)

// ErrInvalidIdentity is returned when a colony identity is not exactly one colony flag.
var ErrInvalidIdentity = errors.New("grid: colony identity must be exactly one colony flag")

var kindNames = [...]string{
	"flower", "tree", "volcano", "colony_c", "colony_m", "colony_y",
	"router", "wire", "outpost", "connected",
}

// Intersects reports whether k shares any flag with o.
func (k Kind) Intersects(o Kind) bool { return k&o != 0 }

// Contains reports whether k has every flag of o.
func (k Kind) Contains(o Kind) bool { return k&o == o }

// IsEmpty reports whether no flag is set.
func (k Kind) IsEmpty() bool { return k&KindMask == 0 }

// Valid reports whether k only uses defined bits and does not mix wall-like
// flags with floor-like ones (food or colony).
func (k Kind) Valid() bool {
	if k&^KindMask != 0 {
		return false
	}
	return !(k.Intersects(Wall) && k.Intersects(HiveFood|ColonyAll))
}

// ColonyIdentity returns the single colony flag carried by k.
func (k Kind) ColonyIdentity() (Kind, error) {
	id := k & ColonyAll
	switch id {
	case ColonyC, ColonyM, ColonyY:
		return id, nil
	}
	return Empty, ErrInvalidIdentity
}

// ParseIdentity maps "c", "m" or "y" to its colony flag.
func ParseIdentity(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "c":
		return ColonyC, nil
	case "m":
		return ColonyM, nil
	case "y":
		return ColonyY, nil
	}
	return Empty, ErrInvalidIdentity
}

func (k Kind) String() string {
	if k.IsEmpty() {
		return "empty"
	}
	var parts []string
	for i, name := range kindNames {
		if k&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}
