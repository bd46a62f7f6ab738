package core

import (
	"context"
	"strings"

	"spycats/pkg/domain"
)

// SpyCatManager implements spy cat CRUD. Breed names are validated against
// the catalog before the write transaction opens.
type SpyCatManager struct {
	store  PersistentStore
	breeds *BreedValidator
}

// NewSpyCatManager constructs a manager.
func NewSpyCatManager(store PersistentStore, breeds *BreedValidator) *SpyCatManager {
	return &SpyCatManager{store: store, breeds: breeds}
}

// Create validates a complete draft, resolves its breed and stores the cat.
func (m *SpyCatManager) Create(ctx context.Context, draft domain.CatDraft) (SpyCat, Result, error) {
	if err := draft.RequireComplete(); err != nil {
		return SpyCat{}, Result{}, err
	}
	candidate := SpyCat{
		Name:              strings.TrimSpace(draft.Name),
		YearsOfExperience: *draft.YearsOfExperience,
		Salary:            *draft.Salary,
	}
	if err := domain.ValidateCat(candidate); err != nil {
		return SpyCat{}, Result{}, err
	}
	breedName := strings.TrimSpace(draft.BreedName)
	if err := m.breeds.Check(ctx, breedName); err != nil {
		return SpyCat{}, Result{}, err
	}
	var created SpyCat
	res, err := m.store.RunInTransaction(ctx, func(tx Transaction) error {
		breed, err := tx.GetOrCreateBreed(breedName)
		if err != nil {
			return err
		}
		candidate.BreedID = breed.ID
		created, err = tx.CreateCat(candidate)
		return err
	})
	return created, res, err
}

// Update applies the fields present in patch. A non-empty breed name is
// re-validated against the catalog.
func (m *SpyCatManager) Update(ctx context.Context, id string, patch domain.CatPatch) (SpyCat, Result, error) {
	if err := rejectNullFields(patch); err != nil {
		return SpyCat{}, Result{}, err
	}
	if _, err := m.Get(ctx, id); err != nil {
		return SpyCat{}, Result{}, err
	}
	breedName := ""
	if patch.BreedName.Set && !patch.BreedName.Null {
		breedName = strings.TrimSpace(patch.BreedName.Value)
	}
	if breedName != "" {
		if err := m.breeds.Check(ctx, breedName); err != nil {
			return SpyCat{}, Result{}, err
		}
	}
	var updated SpyCat
	res, err := m.store.RunInTransaction(ctx, func(tx Transaction) error {
		breedID := ""
		if breedName != "" {
			breed, err := tx.GetOrCreateBreed(breedName)
			if err != nil {
				return err
			}
			breedID = breed.ID
		}
		var err error
		updated, err = tx.UpdateCat(id, func(cat *SpyCat) error {
			if patch.Name.Set {
				cat.Name = strings.TrimSpace(patch.Name.Value)
			}
			if patch.YearsOfExperience.Set {
				cat.YearsOfExperience = patch.YearsOfExperience.Value
			}
			if patch.Salary.Set {
				cat.Salary = patch.Salary.Value
			}
			if breedID != "" {
				cat.BreedID = breedID
			}
			return domain.ValidateCat(*cat)
		})
		return err
	})
	return updated, res, err
}

func rejectNullFields(patch domain.CatPatch) error {
	switch {
	case patch.Name.Null:
		return domain.NewError(domain.ErrInvalidField, "name", "may not be null")
	case patch.YearsOfExperience.Null:
		return domain.NewError(domain.ErrInvalidField, "years_of_experience", "may not be null")
	case patch.Salary.Null:
		return domain.NewError(domain.ErrInvalidField, "salary", "may not be null")
	}
	return nil
}

// Replace overwrites every field of an existing cat.
func (m *SpyCatManager) Replace(ctx context.Context, id string, draft domain.CatDraft) (SpyCat, Result, error) {
	if _, err := m.Get(ctx, id); err != nil {
		return SpyCat{}, Result{}, err
	}
	if err := draft.RequireComplete(); err != nil {
		return SpyCat{}, Result{}, err
	}
	return m.Update(ctx, id, draft.Patch())
}

// Delete removes a cat. Missions it was assigned to are kept without a cat.
func (m *SpyCatManager) Delete(ctx context.Context, id string) (Result, error) {
	return m.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteCat(id)
	})
}

// Get returns a cat with its breed.
func (m *SpyCatManager) Get(ctx context.Context, id string) (SpyCat, error) {
	var cat SpyCat
	err := m.store.View(ctx, func(view TransactionView) error {
		var err error
		cat, err = view.GetCat(id)
		return err
	})
	return cat, err
}

// List returns every cat.
func (m *SpyCatManager) List(ctx context.Context) ([]SpyCat, error) {
	var cats []SpyCat
	err := m.store.View(ctx, func(view TransactionView) error {
		var err error
		cats, err = view.ListCats()
		return err
	})
	return cats, err
}
