package core

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/cases"

	"spycats/internal/catalog"
	"spycats/pkg/domain"
)

// BreedValidator checks breed names against the external catalog and
// resolves them to stored Breed records.
type BreedValidator struct {
	catalog catalog.Client
	store   PersistentStore
}

// NewBreedValidator wires a validator to a catalog client and store.
func NewBreedValidator(client catalog.Client, store PersistentStore) *BreedValidator {
	return &BreedValidator{catalog: client, store: store}
}

// Check confirms the name appears in the catalog, ignoring case. It performs
// one catalog call and never touches the store.
func (v *BreedValidator) Check(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.NewError(domain.ErrMissingField, "breed_name", "")
	}
	if v.catalog == nil {
		return domain.WrapError(domain.ErrExternalService, errors.New("breed catalog not configured"))
	}
	names, err := v.catalog.FetchBreedNames(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrExternalService) {
			return err
		}
		return domain.WrapError(domain.ErrExternalService, err)
	}
	fold := cases.Fold()
	want := fold.String(name)
	for _, candidate := range names {
		if fold.String(strings.TrimSpace(candidate)) == want {
			return nil
		}
	}
	return domain.ErrInvalidBreed
}

// Resolve checks the name and returns the breed stored under the exact
// submitted name, creating it on first use.
func (v *BreedValidator) Resolve(ctx context.Context, name string) (Breed, error) {
	if err := v.Check(ctx, name); err != nil {
		return Breed{}, err
	}
	var breed Breed
	_, err := v.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		breed, err = tx.GetOrCreateBreed(strings.TrimSpace(name))
		return err
	})
	return breed, err
}
