package domain

// Identity is the result of resolving a request's credentials. It is either
// Authenticated or Anonymous; callers switch on the concrete type.
type Identity interface {
	identity()
}

// Authenticated is a caller the identity provider vouched for.
type Authenticated struct {
	UserID   string
	Email    string
	Metadata map[string]interface{}
}

// Anonymous is a caller without credentials.
type Anonymous struct{}

func (Authenticated) identity() {}
func (Anonymous) identity()     {}

// RequireUser returns the authenticated caller or ErrNotAuthenticated.
func RequireUser(id Identity) (Authenticated, error) {
	switch v := id.(type) {
	case Authenticated:
		if v.UserID == "" {
			return Authenticated{}, ErrNotAuthenticated
		}
		return v, nil
	case *Authenticated:
		if v == nil || v.UserID == "" {
			return Authenticated{}, ErrNotAuthenticated
		}
		return *v, nil
	case Anonymous, *Anonymous, nil:
		return Authenticated{}, ErrNotAuthenticated
	default:
		return Authenticated{}, ErrNotAuthenticated
	}
}
