package engine

// Role is one configured role with the headcount each team needs.
type Role struct {
	Name           string `yaml:"name" json:"name"`
	MinimumPerTeam int    `yaml:"min" json:"min"`
}

// Required is the headcount across both teams.
func (r Role) Required() int {
	return r.MinimumPerTeam * 2
}
