package model

import "time"

// Group is a collaborative unit of members sharing one ledger spreadsheet.
// A member belongs to at most one group at a time; the store enforces that
// invariant across all groups.
type Group struct {
	CreatedAt     time.Time `json:"created_at"`
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	SpreadsheetID string    `json:"spreadsheet_id"`
	InviteCode    string    `json:"invite_code,omitempty"`
	Language      string    `json:"language,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	Members       []int64   `json:"members"`
	OwnerID       int64     `json:"owner_id"`
}

// HasMember reports whether the given member id belongs to the group.
func (g *Group) HasMember(id int64) bool {
	for _, m := range g.Members {
		if m == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can hold a group snapshot without
// racing store mutations.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	c := *g
	c.Members = append([]int64(nil), g.Members...)
	return &c
}
