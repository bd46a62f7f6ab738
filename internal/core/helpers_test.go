package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"spycats/internal/catalog"
	"spycats/internal/core"
	"spycats/pkg/domain"
)

type countingCatalog struct {
	names []string
	err   error
	calls atomic.Int32
}

func (c *countingCatalog) FetchBreedNames(context.Context) ([]string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return append([]string(nil), c.names...), nil
}

func newService(t *testing.T, opts ...core.Option) (*core.Service, *countingCatalog) {
	t.Helper()
	cat := &countingCatalog{names: []string{"Siamese", "Bengal", "Maine Coon"}}
	return core.NewInMemoryService(core.NewDefaultRulesEngine(), cat, opts...), cat
}

var _ catalog.Client = (*countingCatalog)(nil)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func whiskers() domain.CatDraft {
	return domain.CatDraft{Name: "Whiskers", YearsOfExperience: intPtr(5), Salary: money("60000.00"), BreedName: "Siamese"}
}

func mustCat(t *testing.T, svc *core.Service, name string) domain.SpyCat {
	t.Helper()
	draft := whiskers()
	draft.Name = name
	cat, _, err := svc.CreateCat(context.Background(), draft)
	if err != nil {
		t.Fatalf("create cat %s: %v", name, err)
	}
	return cat
}

func target(name, country string) domain.TargetInput {
	return domain.TargetInput{Name: domain.Some(name), Country: domain.CountryByName(country)}
}

func mustMission(t *testing.T, svc *core.Service, catID *string, targets ...domain.TargetInput) domain.Mission {
	t.Helper()
	m, _, err := svc.CreateMission(context.Background(), domain.MissionDraft{CatID: catID, Targets: domain.NewTargetBatch(targets...)})
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	return m
}

func decodePatch(t *testing.T, body string) domain.MissionPatch {
	t.Helper()
	var patch domain.MissionPatch
	if err := json.Unmarshal([]byte(body), &patch); err != nil {
		t.Fatalf("decode patch: %v", err)
	}
	return patch
}

func expectKind(t *testing.T, err error, sentinel *domain.Error) {
	t.Helper()
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected %s, got %v", sentinel.Kind, err)
	}
}

func countMissions(t *testing.T, svc *core.Service) int {
	t.Helper()
	missions, err := svc.ListMissions(context.Background())
	if err != nil {
		t.Fatalf("list missions: %v", err)
	}
	return len(missions)
}

func countCountries(t *testing.T, svc *core.Service) int {
	t.Helper()
	var n int
	err := svc.Store().View(context.Background(), func(view domain.TransactionView) error {
		countries, err := view.ListCountries()
		n = len(countries)
		return err
	})
	if err != nil {
		t.Fatalf("list countries: %v", err)
	}
	return n
}
