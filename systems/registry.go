package systems

// SystemInfo describes one tick phase.
type SystemInfo struct {
	ID          string // perf phase key
	Name        string
	Description string
	Category    string
}

// tickPhases lists every phase of Game.Tick in execution order.
var tickPhases = []SystemInfo{
	{"commands", "Commands", "Applies placements, cheat and speed requests", "input"},
	{"classify", "Classify", "Mirrors grid terrain into the fields", "fields"},
	{"diffuse", "Diffuse", "Diffuses, advects and decays every field", "fields"},
	{"drones", "Drones", "Steers drones and runs their state machine", "drones"},
	{"feedback", "Feedback", "Lays trails, gathers and deposits food", "drones"},
	{"clocks", "Clocks", "Colony spawns, routers, outposts and reloads", "structures"},
	{"telemetry", "Telemetry", "Collects window statistics", "internal"},
}

// SystemRegistry names the tick phases so perf output and logs agree.
type SystemRegistry struct {
	phases []SystemInfo
	index  map[string]int
}

// NewSystemRegistry returns a registry holding every tick phase.
func NewSystemRegistry() *SystemRegistry {
	r := &SystemRegistry{index: make(map[string]int, len(tickPhases))}
	for _, info := range tickPhases {
		r.Register(info)
	}
	return r
}

// Register appends info, replacing any phase with the same ID in place.
func (r *SystemRegistry) Register(info SystemInfo) {
	if i, ok := r.index[info.ID]; ok {
		r.phases[i] = info
		return
	}
	r.index[info.ID] = len(r.phases)
	r.phases = append(r.phases, info)
}

// Get looks up a phase by ID.
func (r *SystemRegistry) Get(id string) (SystemInfo, bool) {
	i, ok := r.index[id]
	if !ok {
		return SystemInfo{}, false
	}
	return r.phases[i], true
}

// GetName returns the display name of id, or id itself when unknown.
func (r *SystemRegistry) GetName(id string) string {
	if info, ok := r.Get(id); ok {
		return info.Name
	}
	return id
}

// All returns the phases in execution order.
func (r *SystemRegistry) All() []SystemInfo { return r.phases }

// ByCategory returns the phases in category, in execution order.
func (r *SystemRegistry) ByCategory(category string) []SystemInfo {
	var out []SystemInfo
	for _, info := range r.phases {
		if info.Category == category {
			out = append(out, info)
		}
	}
	return out
}

// IDs returns the phase IDs in execution order.
func (r *SystemRegistry) IDs() []string {
	ids := make([]string, len(r.phases))
	for i, info := range r.phases {
		ids[i] = info.ID
	}
	return ids
}
