package components

// String returns the display name for a DroneState.
func (s DroneState) String() string {
	names := DroneStateNames()
	if int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// DroneStateNames returns the display names for all drone states.
// The order matches the DroneState constants.
func DroneStateNames() []string {
	return []string{"ToHome", "ToHomeNoFood", "ToFood", "Exploring", "Gathering", "Depositing", "Resting", "Dead"}
}

// DroneStateCount returns the number of drone states.
func DroneStateCount() int {
	return len(DroneStateNames())
}

// Moving reports whether drones in this state steer by field signal.
func (s DroneState) Moving() bool {
	switch s {
	case ToHome, ToHomeNoFood, ToFood, Exploring:
		return true
	}
	return false
}

// CarriesFood reports whether the drone is on its way home with food.
func (s DroneState) CarriesFood() bool { return s == ToHome }
