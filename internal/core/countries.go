package core

import (
	"strings"

	"spycats/pkg/domain"
)

// CountryRegistry resolves target countries inside a transaction.
type CountryRegistry struct{}

// NewCountryRegistry returns a registry.
func NewCountryRegistry() *CountryRegistry { return &CountryRegistry{} }

// ResolveOrCreate returns the country with the exact name, creating it if absent.
func (r *CountryRegistry) ResolveOrCreate(tx Transaction, name string) (Country, error) {
	return tx.GetOrCreateCountry(name)
}

// ResolveRef resolves either variant of a country reference. An id reference
// must name an existing country.
func (r *CountryRegistry) ResolveRef(tx Transaction, ref domain.CountryRef) (Country, error) {
	if id := strings.TrimSpace(ref.ByID); id != "" {
		country, err := tx.GetCountry(id)
		if domain.IsNotFound(err, domain.EntityCountry) {
			return Country{}, domain.NewError(domain.ErrCountryNotFound, "", "country %s does not exist", id)
		}
		return country, err
	}
	name := strings.TrimSpace(ref.ByName)
	if name == "" {
		return Country{}, domain.ErrMissingCountry
	}
	return r.ResolveOrCreate(tx, name)
}
