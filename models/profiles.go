package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a person in the directory. PhotoKey is the source of truth for the
// photo; PhotoURL is always derived from it.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Description string    `json:"description,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
	PhotoKey    string    `json:"photoKey,omitempty"`
	Owner       string    `json:"owner"`
	Deleted     bool      `json:"deleted,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProfileInput holds the caller supplied, mutable fields of a Profile.
type ProfileInput struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Description string `json:"description"`
	Bio         string `json:"bio"`
}

func (in ProfileInput) Validate() error {
	if blank(in.FirstName) {
		return invalid("firstName is required")
	}
	if blank(in.LastName) {
		return invalid("lastName is required")
	}
	return nil
}

// Apply copies the full mutable field set onto p.
func (in ProfileInput) Apply(p *Profile) {
	p.FirstName = in.FirstName
	p.LastName = in.LastName
	p.Description = in.Description
	p.Bio = in.Bio
}

// ProfileWithGroups is a profile decorated with its resolved groups.
type ProfileWithGroups struct {
	Profile
	Groups []Group `json:"groups"`
}

// ExtendedData holds relations resolved separately from the profile row.
type ExtendedData struct {
	InsightsData []Insight `json:"insightsData"`
	GroupsData   []Group   `json:"groupsData"`
}

type ProfileDetails struct {
	Profile      Profile       `json:"profile"`
	ExtendedData *ExtendedData `json:"extendedData,omitempty"`
}

// ProfilesResponse holds a page of profiles.
type ProfilesResponse struct {
	Profiles  []ProfileWithGroups `json:"profiles"`
	NextToken string              `json:"nextToken,omitempty"`
}
