package models

import "time"

// FilterRule is a predicate + action pair controlling which candidates
// are acceptable. ShowID zero means the rule is global; a non-zero ShowID
// scopes it to one show, where it takes precedence over global rules of
// equal priority.
type FilterRule struct {
	ID     uint64 `boltholdKey:"ID"`
	ShowID uint64 `boltholdIndex:"ShowID"` // 0 = global

	Name    string
	Field   FilterField
	Op      FilterOp
	Pattern string
	Action  FilterAction

	Priority int
	Enabled  bool

	CreatedAt time.Time
}

// Global reports whether the rule applies to every show
func (r *FilterRule) Global() bool {
	return r.ShowID == 0
}
