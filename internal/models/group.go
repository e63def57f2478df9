package models

// Role is a member's permission level within a group.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Member is one user's membership record within a single group.
type Member struct {
	// UserID references the user account.
	UserID string `json:"userId"`

	// Email is the member's email address at join time.
	Email string `json:"email"`

	// DisplayName is the member's display name.
	DisplayName string `json:"displayName"`

	// Role is the member's permission level in this group.
	Role Role `json:"role"`

	// JoinedAt is the Unix timestamp when the member joined.
	JoinedAt int64 `json:"joinedAt"`
}

// Group is a named collection of members who share expenses.
// Membership is owned by the group and indexed by user ID so that a user
// is represented by exactly one record per group.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group.
	Name string `json:"name"`

	// Description is an optional longer description.
	Description string `json:"description,omitempty"`

	// Members maps user ID to that user's membership record.
	Members map[string]Member `json:"members"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"createdAt"`
}

// IsMember reports whether userID belongs to the group.
func (g *Group) IsMember(userID string) bool {
	_, ok := g.Members[userID]
	return ok
}

// CanManage reports whether userID may administer the group
// (add or remove members, delete the group).
func (g *Group) CanManage(userID string) bool {
	m, ok := g.Members[userID]
	return ok && (m.Role == RoleOwner || m.Role == RoleAdmin)
}

// MemberIDs returns the user IDs of all current members.
func (g *Group) MemberIDs() []string {
	ids := make([]string, 0, len(g.Members))
	for id := range g.Members {
		ids = append(ids, id)
	}
	return ids
}
