package engine

// Deficit is a role combination whose pools cannot field the required
// number of distinct users.
type Deficit struct {
	Roles     []string `json:"roles"`
	Shortfall int      `json:"shortfall"`
}

// Deficits checks every non-empty subset of roles against pools (indexed like
// roles) and returns each subset whose distinct users fall short of the summed
// requirement. Every deficient subset is reported, not only the minimal ones,
// so a user counted for several roles surfaces in the combined subsets.
//
// The enumeration is 2^n-1 subsets for n roles. Role counts are single digits,
// so this stays small.
func Deficits(roles []Role, pools []UserSet) []Deficit {
	n := len(roles)
	if n == 0 {
		return nil
	}
	if n > MaxRoles {
		panic("engine: too many roles for subset enumeration")
	}

	var out []Deficit
	union := make(UserSet)
	for mask := 1; mask < 1<<n; mask++ {
		clear(union)
		required := 0
		var names []string
		for i := 0; i < n; i++ {
			if mask&(1<<i) == 0 {
				continue
			}
			names = append(names, roles[i].Name)
			required += roles[i].Required()
			if i < len(pools) {
				for id := range pools[i] {
					union.Add(id)
				}
			}
		}
		if union.Len() < required {
			out = append(out, Deficit{Roles: names, Shortfall: required - union.Len()})
		}
	}
	return out
}

// MaxRoles bounds the subset enumeration. Configuration rejects more.
const MaxRoles = 16
