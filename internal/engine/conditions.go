package engine

// Condition tags an unmet launch condition.
type Condition string

const (
	CondNotAvailable    Condition = "notAvailable"
	CondReadyNotChecked Condition = "readyNotChecked"
	CondNotReady        Condition = "notReady"
)

// MinCaptains is the number of captains a launch needs, one per team.
const MinCaptains = 2

// CheckLaunchConditions returns the unmet launch conditions in evaluation
// order. An empty result means the launch can proceed.
func CheckLaunchConditions(s State) []Condition {
	unmet := []Condition{}

	if s.Availability.Captains().Len() < MinCaptains {
		return append(unmet, CondNotAvailable)
	}
	if len(Deficits(s.Roles, s.Availability.Pools())) > 0 {
		return append(unmet, CondNotAvailable)
	}

	if !s.InProgress {
		return append(unmet, CondReadyNotChecked)
	}

	pools, captains := s.Availability.Pruned(s.Ready.Users())
	if captains.Len() < MinCaptains || len(Deficits(s.Roles, pools)) > 0 {
		unmet = append(unmet, CondNotReady)
	}
	return unmet
}

func without(conds []Condition, drop Condition) []Condition {
	out := make([]Condition, 0, len(conds))
	for _, c := range conds {
		if c != drop {
			out = append(out, c)
		}
	}
	return out
}
