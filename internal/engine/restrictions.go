package engine

// Aspect is a capability a user can be denied.
type Aspect string

const (
	// AspectStart forbids any availability or captain declaration.
	AspectStart Aspect = "start"
	// AspectCaptain forbids captaincy only.
	AspectCaptain Aspect = "captain"
)

// Restrictions is the set of aspects denied to a user. The zero value denies
// nothing.
type Restrictions map[Aspect]bool

func NewRestrictions(aspects ...Aspect) Restrictions {
	r := make(Restrictions, len(aspects))
	for _, a := range aspects {
		r[a] = true
	}
	return r
}

func (r Restrictions) Denies(a Aspect) bool {
	return r[a]
}

// ParseAspect accepts the configured aspect names only.
func ParseAspect(s string) (Aspect, bool) {
	switch a := Aspect(s); a {
	case AspectStart, AspectCaptain:
		return a, true
	default:
		return "", false
	}
}
