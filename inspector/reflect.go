package inspector

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// Widget is a display hint for a field.
type Widget int

const (
	WidgetAuto Widget = iota
	WidgetLabel
	WidgetBar
	WidgetAngle
	WidgetBool
	WidgetSkip
)

var widgetNames = [...]string{"auto", "label", "bar", "angle", "bool", "skip"}

func (w Widget) String() string {
	if int(w) < len(widgetNames) {
		return widgetNames[w]
	}
	return fmt.Sprintf("widget(%d)", int(w))
}

// MarshalText encodes the widget by name.
func (w Widget) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

// UnmarshalText decodes a widget name; unknown names become WidgetAuto.
func (w *Widget) UnmarshalText(b []byte) error {
	*w = WidgetAuto
	if i := slices.Index(widgetNames[:], string(b)); i >= 0 {
		*w = Widget(i)
	}
	return nil
}

// Field is one formatted component field.
type Field struct {
	Name   string            `json:"name"`
	Value  string            `json:"value"`
	Widget Widget            `json:"widget"`
	Max    string            `json:"max,omitempty"`
	Raw    any               `json:"-"`
	Opts   map[string]string `json:"-"`
}

// ParseTag splits an inspect tag of the form "widget[,key:value...]", for
// example `inspect:"bar,max:200"` or `inspect:"label,fmt:%.1f"`.
func ParseTag(tag string) (Widget, map[string]string) {
	opts := make(map[string]string)
	name, rest, _ := strings.Cut(tag, ",")

	var w Widget
	_ = w.UnmarshalText([]byte(strings.TrimSpace(name)))

	for rest != "" {
		var part string
		part, rest, _ = strings.Cut(rest, ",")
		if k, v, ok := strings.Cut(strings.TrimSpace(part), ":"); ok {
			opts[k] = v
		}
	}
	return w, opts
}

// ExtractFields lists the exported fields of a component. A value that is
// not a struct becomes a single field named after its type.
func ExtractFields(component any) []Field {
	v := reflect.ValueOf(component)
	if !v.IsValid() {
		return nil
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct || isLeaf(v) {
		return []Field{newField(v.Type().Name(), v.Interface(), autoDetectWidget(v), nil)}
	}

	t := v.Type()
	var fields []Field

	for i := 0; i < v.NumField(); i++ {
		sf := t.Field(i)
		fv := v.Field(i)

		if !sf.IsExported() {
			continue
		}

		// Embedded structs contribute their own fields
		if sf.Anonymous && fv.Kind() == reflect.Struct && !isLeaf(fv) {
			fields = append(fields, ExtractFields(fv.Interface())...)
			continue
		}

		widget, options := ParseTag(sf.Tag.Get("inspect"))
		if widget == WidgetSkip {
			continue
		}
		if widget == WidgetAuto {
			widget = autoDetectWidget(fv)
		}

		fields = append(fields, newField(sf.Name, fv.Interface(), widget, options))
	}

	return fields
}

func newField(name string, value any, w Widget, options map[string]string) Field {
	return Field{
		Name:   name,
		Value:  FormatValue(value, options["fmt"]),
		Widget: w,
		Max:    options["max"],
		Raw:    value,
		Opts:   options,
	}
}

// isLeaf reports whether a struct value is printed whole rather than by field.
func isLeaf(v reflect.Value) bool {
	if _, ok := v.Interface().(r2.Vec); ok {
		return true
	}
	_, ok := v.Interface().(fmt.Stringer)
	return ok
}

// autoDetectWidget chooses a widget based on the field type.
func autoDetectWidget(v reflect.Value) Widget {
	switch v.Kind() {
	case reflect.Bool:
		return WidgetBool
	case reflect.Array, reflect.Slice:
		return WidgetBar
	default:
		return WidgetLabel
	}
}

// FormatValue formats a field value as a string.
func FormatValue(value any, fmtStr string) string {
	if fmtStr != "" {
		return fmt.Sprintf(fmtStr, value)
	}
	switch v := value.(type) {
	case float32:
		return fmt.Sprintf("%.2f", v)
	case float64:
		return fmt.Sprintf("%.2f", v)
	case r2.Vec:
		return fmt.Sprintf("(%.2f, %.2f)", v.X, v.Y)
	default:
		return fmt.Sprintf("%v", value)
	}
}
