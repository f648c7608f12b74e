package engine

import "slices"

// RolePool lists the users available for one role.
type RolePool struct {
	Role  string   `json:"role"`
	Users []string `json:"users"`
}

// Snapshot is an immutable view of the launch status. Nothing in it aliases
// registry state.
type Snapshot struct {
	Availability []RolePool  `json:"availability"`
	Captains     []string    `json:"captains"`
	Deficits     []Deficit   `json:"deficits"`
	Unmet        []Condition `json:"unmet"`
	InProgress   bool        `json:"inProgress"`
}

// Roster is the finalized launch handed to the draft.
type Roster struct {
	Players  map[string][]string `json:"players"`
	Captains []string            `json:"captains"`
}

// Users returns every distinct user in the roster, sorted.
func (r Roster) Users() []string {
	all := NewUserSet(r.Captains...)
	for _, ids := range r.Players {
		for _, id := range ids {
			all.Add(id)
		}
	}
	return all.Sorted()
}

func buildSnapshot(roles []Role, pools []UserSet, captains UserSet, unmet []Condition, inProgress bool) Snapshot {
	snap := Snapshot{
		Availability: make([]RolePool, len(roles)),
		Captains:     captains.Sorted(),
		Deficits:     Deficits(roles, pools),
		Unmet:        slices.Clone(unmet),
		InProgress:   inProgress,
	}
	for i, role := range roles {
		snap.Availability[i] = RolePool{Role: role.Name, Users: pools[i].Sorted()}
	}
	if snap.Deficits == nil {
		snap.Deficits = []Deficit{}
	}
	return snap
}

func buildRoster(roles []Role, pools []UserSet, captains UserSet) Roster {
	r := Roster{Players: make(map[string][]string, len(roles)), Captains: captains.Sorted()}
	for i, role := range roles {
		r.Players[role.Name] = pools[i].Sorted()
	}
	return r
}
