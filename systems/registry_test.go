package systems

import "testing"

func TestRegistryPhaseOrder(t *testing.T) {
	reg := NewSystemRegistry()
	want := []string{"commands", "classify", "diffuse", "drones", "feedback", "clocks", "telemetry"}
	ids := reg.IDs()
	if len(ids) != len(want) {
		t.Fatalf("IDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("phase %d = %q, want %q", i, ids[i], want[i])
		}
	}
	if reg.GetName("diffuse") != "Diffuse" {
		t.Errorf("GetName(diffuse) = %q", reg.GetName("diffuse"))
	}
	if reg.GetName("missing") != "missing" {
		t.Error("unknown IDs should fall back to the ID")
	}
	if got := len(reg.ByCategory("drones")); got != 2 {
		t.Errorf("drones category has %d systems, want 2", got)
	}
}

func TestRegistryReplace(t *testing.T) {
	reg := NewSystemRegistry()
	n := len(reg.All())
	reg.Register(SystemInfo{ID: "diffuse", Name: "Spread", Category: "fields"})
	if len(reg.All()) != n {
		t.Fatalf("re-registering grew the registry to %d", len(reg.All()))
	}
	if reg.GetName("diffuse") != "Spread" {
		t.Errorf("GetName(diffuse) = %q, want Spread", reg.GetName("diffuse"))
	}
	if _, ok := reg.Get("missing"); ok {
		t.Error("Get(missing) should fail")
	}
}
