package domain

// ID is used across domain entities.
type ID int64

// Caller identifies the authenticated user a request acts on behalf of.
// It is resolved once by the auth middleware and passed down explicitly;
// the resource layer never reads it from ambient state.
type Caller struct {
	ID    ID
	Roles []string
}

// HasRole reports whether the caller carries the named role.
func (c Caller) HasRole(name string) bool {
	for _, r := range c.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the caller carries at least one of the names.
// An empty list accepts any caller.
func (c Caller) HasAnyRole(names ...string) bool {
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if c.HasRole(n) {
			return true
		}
	}
	return false
}

// Anonymous reports whether no identity was attached to the request.
func (c Caller) Anonymous() bool { return c.ID == 0 }

// CallerContextKey is where the auth middleware stores the resolved
// Caller in the request context.
const CallerContextKey = "auth_caller"
