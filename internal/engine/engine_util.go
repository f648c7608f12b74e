package engine

import "slices"

func NewState(roles []Role) State {
	roles = slices.Clone(roles)
	return State{
		Roles:        roles,
		Availability: NewAvailability(roles),
		Ready:        NewReadyRegistry(),
	}
}

// Snapshot builds the current status without changing anything.
func (s State) Snapshot() Snapshot {
	return *statusEvent(s, CheckLaunchConditions(s)).Status
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// FindEvents returns the events of the given type, in order.
func FindEvents(events []Event, eventType EventType) []Event {
	var out []Event
	for _, event := range events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}
