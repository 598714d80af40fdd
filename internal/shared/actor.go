package shared

import "slices"

// Actor identifies who is requesting an action. It is immutable for the
// lifetime of a request.
type Actor struct {
	ID         string   `json:"id"`
	Role       Role     `json:"role"`
	AccountIDs []string `json:"account_ids,omitempty"`
}

// NewActor copies accountIDs so the returned actor does not alias caller state.
func NewActor(id string, role Role, accountIDs ...string) *Actor {
	return &Actor{ID: id, Role: role, AccountIDs: slices.Clone(accountIDs)}
}

// InAccount reports whether the actor is associated with accountID.
// An empty account id never matches.
func (a *Actor) InAccount(accountID string) bool {
	if a == nil || accountID == "" {
		return false
	}
	return slices.Contains(a.AccountIDs, accountID)
}

// Is reports whether id names this actor. An empty id never matches.
func (a *Actor) Is(id string) bool {
	return a != nil && a.ID != "" && a.ID == id
}
