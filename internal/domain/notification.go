package domain

import (
	"encoding/json"
	"time"
)

// Invitation statuses as reported by the identity API.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRejected = "rejected"
)

// Invitation asks a user to join an organization in a role.
type Invitation struct {
	Organization string    `json:"organization"`
	Role         string    `json:"role"`
	User         string    `json:"user"`
	Status       string    `json:"status"`
	Created      time.Time `json:"created"`
}

// Key identifies an invitation within one user's notification set.
func (i Invitation) Key() string {
	return i.Organization + "/" + i.Role
}

// IsPending reports whether the invitation still awaits an answer.
func (i Invitation) IsPending() bool {
	return i.Status == InvitationPending
}

// Notifications is everything waiting on a user's attention. Approvals and
// contract requests are only counted and listed, so they stay raw.
type Notifications struct {
	Invitations      []Invitation      `json:"invitations"`
	Approvals        []json.RawMessage `json:"approvals"`
	ContractRequests []json.RawMessage `json:"contractRequests"`
}

// PendingCount returns how many invitations still await an answer.
func PendingCount(invitations []Invitation) int {
	count := 0
	for _, inv := range invitations {
		if inv.IsPending() {
			count++
		}
	}
	return count
}
