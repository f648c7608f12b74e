package engine

// Membership is a user's resulting flags after an availability change, keyed
// by role name.
type Membership struct {
	Roles   map[string]bool `json:"roles"`
	Captain bool            `json:"captain"`
}

// Availability holds one pool per configured role, in role order, plus the
// captain pool.
type Availability struct {
	roles    []Role
	pools    []UserSet
	captains UserSet
}

func NewAvailability(roles []Role) *Availability {
	pools := make([]UserSet, len(roles))
	for i := range pools {
		pools[i] = make(UserSet)
	}
	return &Availability{roles: roles, pools: pools, captains: make(UserSet)}
}

// Update applies a user's declared roles and captaincy. A user denied start is
// cleared regardless of the payload; a user denied captain is never a captain.
// Role names that are not configured are ignored.
func (a *Availability) Update(userID string, desired []string, wantsCaptain bool, r Restrictions) Membership {
	if r.Denies(AspectStart) {
		a.Clear(userID)
		return a.Membership(userID)
	}

	want := NewUserSet(desired...)
	for i, role := range a.roles {
		a.pools[i].Set(userID, want.Has(role.Name))
	}

	a.captains.Set(userID, wantsCaptain && !r.Denies(AspectCaptain))
	return a.Membership(userID)
}

// Clear removes the user from every pool.
func (a *Availability) Clear(userID string) {
	for _, p := range a.pools {
		p.Remove(userID)
	}
	a.captains.Remove(userID)
}

func (a *Availability) Membership(userID string) Membership {
	m := Membership{Roles: make(map[string]bool, len(a.roles)), Captain: a.captains.Has(userID)}
	for i, role := range a.roles {
		m.Roles[role.Name] = a.pools[i].Has(userID)
	}
	return m
}

func (a *Availability) Pools() []UserSet  { return a.pools }
func (a *Availability) Captains() UserSet { return a.captains }

// Pruned returns copies of the pools and the captain pool restricted to ready.
func (a *Availability) Pruned(ready UserSet) ([]UserSet, UserSet) {
	pools := make([]UserSet, len(a.pools))
	for i, p := range a.pools {
		pools[i] = p.Intersect(ready)
	}
	return pools, a.captains.Intersect(ready)
}
