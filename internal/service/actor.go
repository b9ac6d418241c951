package service

// SystemActor is recorded when no operator is attached to a call.
const SystemActor = "System"

// Actor identifies who performs a core operation. It is passed explicitly on
// every call instead of being read from process-wide state.
type Actor struct {
	UserID   *uint
	Username string
	Role     string
}

// Name is the value written into created_by audit columns.
func (a Actor) Name() string {
	if a.Username == "" {
		return SystemActor
	}
	return a.Username
}
