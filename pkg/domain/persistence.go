package domain

import "context"

// TransactionView provides read-only access to a consistent snapshot of the
// store. Lookups of missing records return ErrNotFound.
type TransactionView interface {
	GetBreed(id string) (Breed, error)
	ListBreeds() ([]Breed, error)
	GetCountry(id string) (Country, error)
	ListCountries() ([]Country, error)
	GetCat(id string) (SpyCat, error)
	ListCats() ([]SpyCat, error)
	// GetMission returns the mission with its targets populated.
	GetMission(id string) (Mission, error)
	ListMissions() ([]Mission, error)
	GetTarget(id string) (Target, error)
	// ListTargets returns the mission's targets in creation order.
	ListTargets(missionID string) ([]Target, error)
	// ActiveMissionsForCat returns the incomplete missions assigned to a cat.
	ActiveMissionsForCat(catID string) ([]Mission, error)
}

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	TransactionView
	// GetOrCreateBreed returns the breed with the exact name, creating it on
	// first use. Concurrent callers observe the same record.
	GetOrCreateBreed(name string) (Breed, error)
	// GetOrCreateCountry follows the same contract as GetOrCreateBreed.
	GetOrCreateCountry(name string) (Country, error)
	CreateCat(SpyCat) (SpyCat, error)
	UpdateCat(id string, mutator func(*SpyCat) error) (SpyCat, error)
	// DeleteCat removes the cat and clears it from any mission referencing it.
	DeleteCat(id string) error
	// CreateMission stores the mission row only; targets are created separately.
	CreateMission(Mission) (Mission, error)
	UpdateMission(id string, mutator func(*Mission) error) (Mission, error)
	// DeleteMission removes the mission and all of its targets.
	DeleteMission(id string) error
	CreateTarget(Target) (Target, error)
	UpdateTarget(id string, mutator func(*Target) error) (Target, error)
}

// PersistentStore is a minimal abstraction over durable backends.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	Close() error
}
