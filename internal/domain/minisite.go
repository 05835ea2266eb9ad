package domain

import (
	"strings"
	"time"
)

// Minisite publish lifecycle statuses.
const (
	MinisiteStatusDraft     = "draft"
	MinisiteStatusPublished = "published"
	MinisiteStatusArchived  = "archived"
)

// Minisite represents a business microsite addressed by a two-part slug.
// Pre-publish the slugs hold a temporary placeholder; publishing assigns
// the permanent pair.
type Minisite struct {
	ID               string    `json:"id"`
	BusinessSlug     string    `json:"businessSlug"`
	LocationSlug     string    `json:"locationSlug"`
	Status           string    `json:"status"`
	CreatedBy        string    `json:"createdBy"`
	CurrentVersionID *string   `json:"currentVersionId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Slugs returns the minisite's current slug pair.
func (m *Minisite) Slugs() SlugPair {
	return SlugPair{Business: m.BusinessSlug, Location: m.LocationSlug}
}

// SlugPair is a business/location slug combination.
type SlugPair struct {
	Business string `json:"business"`
	Location string `json:"location"`
}

// ParseSlugPath splits a "business/location" path into its parts.
// The location part is optional; the business part is not.
func ParseSlugPath(path string) (SlugPair, error) {
	parts := strings.SplitN(path, "/", 2)
	pair := SlugPair{Business: parts[0]}
	if len(parts) == 2 {
		pair.Location = parts[1]
	}
	if pair.Business == "" {
		return SlugPair{}, ErrBadRequest("invalid slug format")
	}
	return pair, nil
}

// Path renders the pair as a "business/location" path, or just the
// business slug when there is no location part.
func (p SlugPair) Path() string {
	if p.Location == "" {
		return p.Business
	}
	return p.Business + "/" + p.Location
}

// PublishContext is returned to pre-fill the publish form: the minisite
// plus its current (possibly placeholder) slug pair.
type PublishContext struct {
	Minisite     *Minisite `json:"minisite"`
	CurrentSlugs SlugPair  `json:"currentSlugs"`
}

// CheckSlugRequest is the validated input for an availability check.
type CheckSlugRequest struct {
	BusinessSlug string `json:"businessSlug" validate:"required"`
	LocationSlug string `json:"locationSlug"`
}

// ReserveSlugRequest is the validated input for reserving a slug pair.
type ReserveSlugRequest struct {
	BusinessSlug string `json:"businessSlug" validate:"required"`
	LocationSlug string `json:"locationSlug"`
}

// PublishRequest is the validated input for publishing a minisite.
type PublishRequest struct {
	BusinessSlug  string `json:"businessSlug" validate:"required"`
	LocationSlug  string `json:"locationSlug"`
	ReservationID string `json:"reservationId"`
}
