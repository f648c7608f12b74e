package engine

// ReadyRegistry holds the users who affirmed readiness in the open window.
type ReadyRegistry struct {
	users UserSet
}

func NewReadyRegistry() *ReadyRegistry {
	return &ReadyRegistry{users: make(UserSet)}
}

func (r *ReadyRegistry) Set(userID string, ready bool) { r.users.Set(userID, ready) }
func (r *ReadyRegistry) Has(userID string) bool        { return r.users.Has(userID) }
func (r *ReadyRegistry) Len() int                      { return r.users.Len() }
func (r *ReadyRegistry) Users() UserSet                { return r.users }

// Reset empties the registry for a new window.
func (r *ReadyRegistry) Reset() { clear(r.users) }
