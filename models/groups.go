package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultGroupType = "general"

// Group is a user defined tag that profiles can be joined to. MemberCount is
// advisory only: it is set when the group is created and never maintained.
type Group struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	MemberCount int       `json:"memberCount"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type GroupInput struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

func (in GroupInput) Validate() error {
	if blank(in.Name) {
		return invalid("group name is required")
	}
	return nil
}

// GroupPatch is a partial update; nil fields are left untouched.
type GroupPatch struct {
	Name        *string `json:"name,omitempty"`
	Type        *string `json:"type,omitempty"`
	Description *string `json:"description,omitempty"`
	MemberCount *int    `json:"memberCount,omitempty"`
}

func (p GroupPatch) Validate() error {
	if p.Name != nil && blank(*p.Name) {
		return invalid("group name cannot be empty")
	}
	if p.MemberCount != nil && *p.MemberCount < 0 {
		return invalid("memberCount cannot be negative")
	}
	return nil
}

func (p GroupPatch) Apply(g *Group) {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.Type != nil {
		g.Type = *p.Type
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.MemberCount != nil {
		g.MemberCount = *p.MemberCount
	}
}

// ProfileGroup joins a profile to a group. At most one row per
// (ProfileID, GroupID) pair is meaningful.
type ProfileGroup struct {
	ID         uuid.UUID `json:"id"`
	ProfileID  uuid.UUID `json:"profileID"`
	GroupID    uuid.UUID `json:"groupID"`
	JoinedDate time.Time `json:"joinedDate"`
	Owner      string    `json:"owner"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type GroupsResponse struct {
	Groups    []Group `json:"groups"`
	NextToken string  `json:"nextToken,omitempty"`
}
