package domain

// Scope selects whose snippets a query may see.
//
// An owner scope sees every snippet belonging to OwnerID, recycled or not.
// The public scope sees only active snippets flagged public, from any owner,
// and has no notion of favorites or pins.
type Scope struct {
	OwnerID string
	Public  bool
}

// OwnerScope returns the scope for a single owner's collection.
func OwnerScope(ownerID string) Scope {
	return Scope{OwnerID: ownerID}
}

// PublicScope returns the scope for the public read path.
func PublicScope() Scope {
	return Scope{Public: true}
}

// String returns a stable name for the scope, used in cache signatures.
func (s Scope) String() string {
	if s.Public {
		return "public"
	}
	return "owner:" + s.OwnerID
}

// Contains reports whether the snippet is readable in this scope, ignoring
// any filter.
func (s Scope) Contains(sn *Snippet) bool {
	if s.Public {
		return sn.IsPublic && !sn.IsRecycled()
	}
	return sn.OwnerID == s.OwnerID
}
