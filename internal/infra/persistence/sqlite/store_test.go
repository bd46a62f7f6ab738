package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"spycats/pkg/domain"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createCat(t *testing.T, store *Store, name string) domain.SpyCat {
	t.Helper()
	var cat domain.SpyCat
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		breed, err := tx.GetOrCreateBreed("Siamese")
		if err != nil {
			return err
		}
		cat, err = tx.CreateCat(domain.SpyCat{Name: name, YearsOfExperience: 2, BreedID: breed.ID, Salary: decimal.RequireFromString("1234.5")})
		return err
	})
	if err != nil {
		t.Fatalf("create cat: %v", err)
	}
	return cat
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "spycats.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	cat := createCat(t, store, "Whiskers")
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openStore(t, path)
	if reopened.Path() != path {
		t.Fatalf("expected path %s, got %s", path, reopened.Path())
	}
	err = reopened.View(context.Background(), func(view domain.TransactionView) error {
		got, err := view.GetCat(cat.ID)
		if err != nil {
			return err
		}
		if got.Breed == nil || got.Breed.Name != "Siamese" {
			t.Fatalf("expected breed join, got %+v", got.Breed)
		}
		if !got.Salary.Equal(decimal.RequireFromString("1234.50")) {
			t.Fatalf("unexpected salary %s", got.Salary)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestSQLiteGetOrCreateIsIdempotentUnderConcurrency(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "spycats.db"))
	const workers = 8
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
				c, err := tx.GetOrCreateCountry("Canada")
				ids[i] = c.ID
				return err
			})
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("expected single country id, got %v", ids)
		}
	}
	_ = store.View(context.Background(), func(view domain.TransactionView) error {
		countries, err := view.ListCountries()
		if err != nil {
			t.Fatalf("list countries: %v", err)
		}
		if len(countries) != 1 {
			t.Fatalf("expected one country, got %d", len(countries))
		}
		return nil
	})
}

func TestSQLiteActiveMissionIndex(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "spycats.db"))
	cat := createCat(t, store, "Whiskers")
	var first domain.Mission
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		first, err = tx.CreateMission(domain.Mission{CatID: &cat.ID})
		return err
	})
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateMission(domain.Mission{CatID: &cat.ID})
		return err
	})
	if !errors.Is(err, domain.ErrCatAlreadyAssigned) {
		t.Fatalf("expected cat already assigned, got %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.UpdateMission(first.ID, func(m *domain.Mission) error {
			m.IsComplete = true
			return nil
		}); err != nil {
			return err
		}
		_, err := tx.CreateMission(domain.Mission{CatID: &cat.ID})
		return err
	})
	if err != nil {
		t.Fatalf("expected reassignment after completion, got %v", err)
	}
}

func TestSQLiteTargetsOrderAndCascade(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "spycats.db"))
	cat := createCat(t, store, "Whiskers")
	var mission domain.Mission
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		mission, err = tx.CreateMission(domain.Mission{CatID: &cat.ID})
		if err != nil {
			return err
		}
		for _, row := range []struct{ name, country string }{{"Alpha", "USA"}, {"Bravo", "Canada"}, {"Charlie", "USA"}} {
			country, err := tx.GetOrCreateCountry(row.country)
			if err != nil {
				return err
			}
			if _, err := tx.CreateTarget(domain.Target{MissionID: mission.ID, Name: row.name, CountryID: country.ID}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	_ = store.View(context.Background(), func(view domain.TransactionView) error {
		targets, err := view.ListTargets(mission.ID)
		if err != nil {
			t.Fatalf("list targets: %v", err)
		}
		if len(targets) != 3 || targets[0].Name != "Alpha" || targets[1].Name != "Bravo" || targets[2].Name != "Charlie" {
			t.Fatalf("unexpected target order %+v", targets)
		}
		if targets[1].Country == nil || targets[1].Country.Name != "Canada" {
			t.Fatalf("expected country join")
		}
		countries, _ := view.ListCountries()
		if len(countries) != 2 {
			t.Fatalf("expected 2 countries, got %d", len(countries))
		}
		return nil
	})

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.DeleteCat(cat.ID); err != nil {
			return err
		}
		m, err := tx.GetMission(mission.ID)
		if err != nil {
			return err
		}
		if m.HasCat() {
			t.Fatalf("expected mission cat cleared")
		}
		return tx.DeleteMission(mission.ID)
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	_ = store.View(context.Background(), func(view domain.TransactionView) error {
		var n int
		if err := store.DB().QueryRow(`SELECT COUNT(*) FROM targets`).Scan(&n); err != nil {
			t.Fatalf("count targets: %v", err)
		}
		if n != 0 {
			t.Fatalf("expected cascade delete, found %d targets", n)
		}
		if _, err := view.GetCat(cat.ID); !domain.IsNotFound(err, domain.EntitySpyCat) {
			t.Fatalf("expected cat not found, got %v", err)
		}
		return nil
	})
}

func TestSQLiteRollbackAndRuleViolation(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(rejectCountries{})
	store := openStore(t, filepath.Join(t.TempDir(), "spycats.db"))
	blocked, err := NewStore(store.Path(), engine)
	if err != nil {
		t.Fatalf("open blocked store: %v", err)
	}
	t.Cleanup(func() { _ = blocked.Close() })

	_, err = blocked.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.GetOrCreateCountry("USA")
		return err
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}

	boom := errors.New("boom")
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.GetOrCreateCountry("USA"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	_ = store.View(context.Background(), func(view domain.TransactionView) error {
		countries, _ := view.ListCountries()
		if len(countries) != 0 {
			t.Fatalf("expected rollback, got %d countries", len(countries))
		}
		return nil
	})
}

type rejectCountries struct{}

func (rejectCountries) Name() string { return "reject_countries" }

func (rejectCountries) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, c := range changes {
		if c.Entity == domain.EntityCountry {
			res.Violations = append(res.Violations, domain.Violation{Rule: "reject_countries", Severity: domain.SeverityBlock, Entity: c.Entity, EntityID: c.EntityID()})
		}
	}
	return res, nil
}

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(nil) {
		t.Fatalf("nil is not a violation")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: breeds.name")) {
		t.Fatalf("expected message fallback to match")
	}
	if IsUniqueViolation(errors.New("no such table")) {
		t.Fatalf("unexpected match")
	}
}
