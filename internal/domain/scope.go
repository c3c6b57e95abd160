package domain

// BusinessScope is the ownership capability for every store access. It can only
// be constructed from a verified identity, so a repository call without a scope
// does not typecheck and cross-tenant reads are unreachable by construction.
type BusinessScope struct {
	businessID string
}

// NewBusinessScope creates a scope for the given business identity.
func NewBusinessScope(businessID string) BusinessScope {
	return BusinessScope{businessID: businessID}
}

// BusinessID returns the owning business identifier.
func (s BusinessScope) BusinessID() string {
	return s.businessID
}

// Valid reports whether the scope carries an identity.
func (s BusinessScope) Valid() bool {
	return s.businessID != ""
}
