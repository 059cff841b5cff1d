// Package inspector turns ECS components and cell data into labelled
// key/value reports for presentation clients.
package inspector

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Section groups the fields of one entity or data source.
type Section struct {
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Report describes everything found at one grid cell.
type Report struct {
	X        int       `json:"x"`
	Y        int       `json:"y"`
	Sections []Section `json:"sections"`
}

// NewReport starts a report for the cell at (x, y).
func NewReport(x, y int) Report {
	return Report{X: x, Y: y, Sections: []Section{}}
}

// Add appends a section built from the fields of each component in order.
func (r *Report) Add(title string, components ...any) {
	s := Section{Title: title}
	for _, c := range components {
		s.Fields = append(s.Fields, ExtractFields(c)...)
	}
	r.Sections = append(r.Sections, s)
}

// AddValue appends a single named value to the section with the given
// title, creating the section if needed.
func (r *Report) AddValue(title, name string, value any) {
	f := newField(name, value, WidgetLabel, nil)
	for i := range r.Sections {
		if r.Sections[i].Title == title {
			r.Sections[i].Fields = append(r.Sections[i].Fields, f)
			return
		}
	}
	r.Sections = append(r.Sections, Section{Title: title, Fields: []Field{f}})
}

// Section returns the section with the given title.
func (r Report) Section(title string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Title == title {
			return s, true
		}
	}
	return Section{}, false
}

// Field returns the named field of a section.
func (s Section) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Picker finds the closest candidate to a target within a hit radius.
type Picker[T any] struct {
	target    r2.Vec
	maxDistSq float64

	best     T
	bestDist float64
	found    bool
}

// NewPicker returns a picker for candidates within radius of target.
func NewPicker[T any](target r2.Vec, radius float64) *Picker[T] {
	return &Picker[T]{target: target, maxDistSq: radius * radius}
}

// Offer considers a candidate at pos.
func (p *Picker[T]) Offer(pos r2.Vec, v T) {
	d := r2.Sub(pos, p.target)
	dist := r2.Dot(d, d)
	if dist > p.maxDistSq {
		return
	}
	if !p.found || dist < p.bestDist {
		p.best, p.bestDist, p.found = v, dist, true
	}
}

// Best returns the closest candidate offered so far.
func (p *Picker[T]) Best() (T, bool) { return p.best, p.found }
