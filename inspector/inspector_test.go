package inspector

import (
	"encoding/json"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

type sample struct {
	Energy  float64 `inspect:"bar,max:200"`
	Heading float64 `inspect:"angle,fmt:%.1f"`
	Alive   bool
	Secret  int `inspect:"skip"`
	Dir     r2.Vec
	hidden  int
}

type state uint8

func (s state) String() string { return "resting" }

func TestParseTag(t *testing.T) {
	tests := []struct {
		tag    string
		widget Widget
		opts   map[string]string
	}{
		{"", WidgetAuto, map[string]string{}},
		{"bar", WidgetBar, map[string]string{}},
		{"bar,max:200", WidgetBar, map[string]string{"max": "200"}},
		{"label, fmt:%.1f", WidgetLabel, map[string]string{"fmt": "%.1f"}},
		{"skip", WidgetSkip, map[string]string{}},
		{"mystery", WidgetAuto, map[string]string{}},
	}
	for _, tt := range tests {
		w, opts := ParseTag(tt.tag)
		if w != tt.widget {
			t.Errorf("ParseTag(%q) widget = %v, want %v", tt.tag, w, tt.widget)
		}
		if len(opts) != len(tt.opts) {
			t.Errorf("ParseTag(%q) options = %v, want %v", tt.tag, opts, tt.opts)
			continue
		}
		for k, v := range tt.opts {
			if opts[k] != v {
				t.Errorf("ParseTag(%q)[%s] = %q, want %q", tt.tag, k, opts[k], v)
			}
		}
	}
}

func TestExtractFields(t *testing.T) {
	fields := ExtractFields(sample{Energy: 150, Heading: 1.25, Alive: true, Dir: r2.Vec{X: 1, Y: -0.5}, hidden: 3})

	want := []struct {
		name, value string
		widget      Widget
	}{
		{"Energy", "150.00", WidgetBar},
		{"Heading", "1.2", WidgetAngle},
		{"Alive", "true", WidgetBool},
		{"Dir", "(1.00, -0.50)", WidgetLabel},
	}
	if len(fields) != len(want) {
		t.Fatalf("got %d fields, want %d: %+v", len(fields), len(want), fields)
	}
	for i, w := range want {
		f := fields[i]
		if f.Name != w.name || f.Value != w.value || f.Widget != w.widget {
			t.Errorf("field %d = %s %q %v, want %s %q %v", i, f.Name, f.Value, f.Widget, w.name, w.value, w.widget)
		}
	}
	if fields[0].Max != "200" {
		t.Errorf("Energy max = %q, want 200", fields[0].Max)
	}

	if got := ExtractFields(state(2)); len(got) != 1 || got[0].Name != "state" || got[0].Value != "resting" {
		t.Errorf("non-struct value = %+v", got)
	}
	if got := ExtractFields(nil); got != nil {
		t.Errorf("nil = %+v, want nil", got)
	}
}

func TestReport(t *testing.T) {
	r := NewReport(2, 3)
	r.Add("entity", sample{Energy: 1}, state(0))
	r.AddValue("fields", "food", 0.5)
	r.AddValue("fields", "wall", 0.0)

	s, ok := r.Section("entity")
	if !ok || len(s.Fields) != 5 {
		t.Fatalf("entity section = %+v", s)
	}
	fs, _ := r.Section("fields")
	if f, ok := fs.Field("food"); !ok || f.Value != "0.50" {
		t.Errorf("food = %+v", f)
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Report
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.X != 2 || len(back.Sections) != 2 || back.Sections[0].Fields[0].Widget != WidgetBar {
		t.Errorf("decoded report = %+v", back)
	}
}

func TestPicker(t *testing.T) {
	p := NewPicker[string](r2.Vec{X: 5, Y: 5}, 1.5)
	if _, ok := p.Best(); ok {
		t.Fatal("empty picker found a candidate")
	}
	p.Offer(r2.Vec{X: 9, Y: 9}, "far")
	p.Offer(r2.Vec{X: 6, Y: 5}, "near")
	p.Offer(r2.Vec{X: 5.2, Y: 5}, "nearest")
	p.Offer(r2.Vec{X: 4, Y: 5}, "near again")

	if got, ok := p.Best(); !ok || got != "nearest" {
		t.Errorf("Best() = %q, %v, want nearest", got, ok)
	}
}
