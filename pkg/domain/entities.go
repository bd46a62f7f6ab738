// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by spycats.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence tables.
const (
	// EntityBreed identifies a validated cat breed.
	EntityBreed EntityType = "breed"
	// EntitySpyCat identifies a spy cat record.
	EntitySpyCat EntityType = "spy_cat"
	// EntityCountry identifies a country a target is located in.
	EntityCountry EntityType = "country"
	// EntityMission identifies a mission record.
	EntityMission EntityType = "mission"
	// EntityTarget identifies a mission target record.
	EntityTarget EntityType = "target"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Field limits inherited from the relational schema.
const (
	MaxNameLength        = 100
	MaxTargetsPerMission = 3
	MinTargetsPerMission = 1
	SalaryMaxDigits      = 10
	SalaryDecimalPlaces  = 2
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Breed is a catalog-validated breed name. Names are unique by exact match.
type Breed struct {
	Base
	Name string `json:"name"`
}

// SpyCat is an agent that can be assigned to at most one active mission.
type SpyCat struct {
	Base
	Name              string          `json:"name"`
	YearsOfExperience int             `json:"years_of_experience"`
	BreedID           string          `json:"breed_id"`
	Breed             *Breed          `json:"breed,omitempty"`
	Salary            decimal.Decimal `json:"salary"`
}

// Country is a get-or-create lookup record keyed by unique name.
type Country struct {
	Base
	Name string `json:"name"`
}

// Mission groups one to three targets and optionally references the cat
// carrying it out.
type Mission struct {
	Base
	CatID      *string  `json:"cat_id"`
	IsComplete bool     `json:"is_complete"`
	Targets    []Target `json:"targets"`
}

// Target is a single objective of a mission, located in a country.
type Target struct {
	Base
	MissionID  string   `json:"mission_id"`
	Name       string   `json:"name"`
	CountryID  string   `json:"country_id"`
	Country    *Country `json:"country,omitempty"`
	Notes      string   `json:"notes"`
	IsComplete bool     `json:"is_complete"`
}

// HasCat reports whether a cat is assigned to the mission.
func (m Mission) HasCat() bool {
	return m.CatID != nil && *m.CatID != ""
}

// AssignedTo reports whether the mission is assigned to the given cat.
func (m Mission) AssignedTo(catID string) bool {
	return m.HasCat() && *m.CatID == catID
}

// Active reports whether the mission is still in progress.
func (m Mission) Active() bool {
	return !m.IsComplete
}

// Change describes a mutation applied within a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// EntityID returns the identifier of the record touched by the change.
func (c Change) EntityID() string {
	for _, v := range []any{c.After, c.Before} {
		switch rec := v.(type) {
		case Breed:
			return rec.ID
		case SpyCat:
			return rec.ID
		case Country:
			return rec.ID
		case Mission:
			return rec.ID
		case Target:
			return rec.ID
		}
	}
	return ""
}

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the non-blocking violations.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity != SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
