package grid

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// Load errors.
var (
	ErrDimensionMismatch = errors.New("grid: map dimensions do not match the world")
	ErrDataLength        = errors.New("grid: map data length does not match its dimensions")
	ErrInvalidKind       = errors.New("grid: map contains an invalid kind combination")
)

// SaveMap is the persisted form of a grid: packed cells in row-major order.
type SaveMap struct {
	Width  int      `yaml:"width"`
	Height int      `yaml:"height"`
	Data   []uint32 `yaml:"data,flow"`
}

// ToSaveMap packs every cell.
func (g *Grid) ToSaveMap() SaveMap {
	m := SaveMap{Width: g.width, Height: g.height, Data: make([]uint32, len(g.cells))}
	for i, c := range g.cells {
		m.Data[i] = c.Pack()
	}
	return m
}

// FromSaveMap rebuilds a grid. When width and height are positive the map
// must have exactly those dimensions.
func FromSaveMap(m SaveMap, width, height int) (*Grid, error) {
	if width > 0 && height > 0 && (m.Width != width || m.Height != height) {
		return nil, fmt.Errorf("%w: map is %dx%d, world is %dx%d", ErrDimensionMismatch, m.Width, m.Height, width, height)
	}
	g, err := New(m.Width, m.Height)
	if err != nil {
		return nil, err
	}
	if len(m.Data) != len(g.cells) {
		return nil, fmt.Errorf("%w: got %d cells, want %d", ErrDataLength, len(m.Data), len(g.cells))
	}
	for i, v := range m.Data {
		c := Unpack(v)
		if !c.Kind.Valid() {
			return nil, fmt.Errorf("%w: cell (%d,%d) is %s", ErrInvalidKind, i%m.Width, i/m.Width, c.Kind)
		}
		g.cells[i] = c
	}
	return g, nil
}

// Encode writes the grid as YAML.
func (g *Grid) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(g.ToSaveMap()); err != nil {
		return fmt.Errorf("encoding map: %w", err)
	}
	return enc.Close()
}

// Decode reads a YAML map. See FromSaveMap for the dimension rules.
func Decode(r io.Reader, width, height int) (*Grid, error) {
	var m SaveMap
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding map: %w", err)
	}
	return FromSaveMap(m, width, height)
}

// SaveFile writes the grid to path. A ".zst" suffix compresses the YAML.
func (g *Grid) SaveFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating map file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if !isCompressed(path) {
		return g.Encode(f)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if err := g.Encode(enc); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// LoadFile reads a map written by SaveFile.
func LoadFile(path string, width, height int) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening map file: %w", err)
	}
	defer f.Close()

	if !isCompressed(path) {
		return Decode(f, width, height)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer dec.Close()
	return Decode(dec, width, height)
}

func isCompressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// ApplyTerrainDefaults fills loaded flowers and trees to their maximum
// quantity and, when border is set, turns empty border cells into trees.
func (g *Grid) ApplyTerrainDefaults(flowerMax, treeMax uint32, border bool) {
	for i := range g.cells {
		c := &g.cells[i]
		p := Point{i % g.width, i / g.width}
		switch {
		case c.Kind.Intersects(Flower):
			c.SetQuantity(flowerMax)
		case c.Kind.Intersects(Tree):
			c.SetQuantity(treeMax)
		case border && g.OnBorder(p) && c.Kind.IsEmpty():
			*c = NewCell(Tree, treeMax)
		}
	}
}
