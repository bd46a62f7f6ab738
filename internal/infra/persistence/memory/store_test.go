package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spycats/pkg/domain"
)

func seedCat(t *testing.T, store *Store, name string) domain.SpyCat {
	t.Helper()
	var cat domain.SpyCat
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		breed, err := tx.GetOrCreateBreed("Siamese")
		if err != nil {
			return err
		}
		cat, err = tx.CreateCat(domain.SpyCat{Name: name, YearsOfExperience: 3, BreedID: breed.ID, Salary: decimal.RequireFromString("1000.50")})
		return err
	})
	if err != nil {
		t.Fatalf("seed cat: %v", err)
	}
	return cat
}

func TestStoreRunInTransactionCommitsAndDecorates(t *testing.T) {
	store := NewStore(nil)
	cat := seedCat(t, store, "Whiskers")
	if cat.ID == "" || cat.Breed == nil || cat.Breed.Name != "Siamese" {
		t.Fatalf("expected generated id and decorated breed, got %+v", cat)
	}
	err := store.View(context.Background(), func(view domain.TransactionView) error {
		got, err := view.GetCat(cat.ID)
		if err != nil {
			return err
		}
		if got.Name != "Whiskers" || !got.Salary.Equal(decimal.RequireFromString("1000.5")) {
			t.Fatalf("unexpected cat %+v", got)
		}
		cats, err := view.ListCats()
		if err != nil {
			return err
		}
		if len(cats) != 1 {
			t.Fatalf("expected 1 cat, got %d", len(cats))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestStoreRollsBackOnError(t *testing.T) {
	store := NewStore(nil)
	boom := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
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
			t.Fatalf("expected rollback, found %d countries", len(countries))
		}
		return nil
	})
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	if len(changes) == 0 {
		return domain.Result{}, nil
	}
	return domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock}}}, nil
}

type failingRule struct{}

func (failingRule) Name() string { return "fail" }

func (failingRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{}, fmt.Errorf("rule exploded")
}

func TestStoreRuleViolationBlocksCommit(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockingRule{})
	store := NewStore(engine)
	res, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.GetOrCreateBreed("Bengal")
		return e
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
	_ = store.View(context.Background(), func(view domain.TransactionView) error {
		breeds, _ := view.ListBreeds()
		if len(breeds) != 0 {
			t.Fatalf("expected blocked transaction to leave no breeds")
		}
		return nil
	})

	failing := domain.NewRulesEngine()
	failing.Register(failingRule{})
	if _, err := NewStore(failing).RunInTransaction(context.Background(), func(domain.Transaction) error { return nil }); err == nil {
		t.Fatalf("expected rule evaluation error")
	}
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	store := NewStore(nil)
	var first, second domain.Country
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		if first, err = tx.GetOrCreateCountry("USA"); err != nil {
			return err
		}
		second, err = tx.GetOrCreateCountry("USA")
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same country, got %s and %s", first.ID, second.ID)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.GetOrCreateCountry(""); !errors.Is(err, domain.ErrMissingCountry) {
			t.Fatalf("expected missing country, got %v", err)
		}
		if _, err := tx.GetOrCreateBreed(""); !errors.Is(err, domain.ErrMissingField) {
			t.Fatalf("expected missing field, got %v", err)
		}
		other, err := tx.GetOrCreateCountry("usa")
		if err != nil {
			return err
		}
		if other.ID == first.ID {
			t.Fatalf("expected exact-name uniqueness")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestMissionTargetsAndCascade(t *testing.T) {
	store := NewStore(nil)
	cat := seedCat(t, store, "Whiskers")
	var mission domain.Mission
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		mission, err = tx.CreateMission(domain.Mission{CatID: &cat.ID})
		if err != nil {
			return err
		}
		for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
			country, err := tx.GetOrCreateCountry("USA")
			if err != nil {
				return err
			}
			if _, err := tx.CreateTarget(domain.Target{MissionID: mission.ID, Name: name, CountryID: country.ID}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	_ = store.View(context.Background(), func(view domain.TransactionView) error {
		got, err := view.GetMission(mission.ID)
		if err != nil {
			t.Fatalf("get mission: %v", err)
		}
		if len(got.Targets) != 3 || got.Targets[0].Name != "Alpha" || got.Targets[2].Name != "Charlie" {
			t.Fatalf("expected targets in creation order, got %+v", got.Targets)
		}
		if got.Targets[0].Country == nil || got.Targets[0].Country.Name != "USA" {
			t.Fatalf("expected decorated country")
		}
		active, _ := view.ActiveMissionsForCat(cat.ID)
		if len(active) != 1 {
			t.Fatalf("expected one active mission, got %d", len(active))
		}
		return nil
	})

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteMission(mission.ID)
	})
	if err != nil {
		t.Fatalf("delete mission: %v", err)
	}
	_ = store.View(context.Background(), func(view domain.TransactionView) error {
		if _, err := view.GetMission(mission.ID); !domain.IsNotFound(err, domain.EntityMission) {
			t.Fatalf("expected mission not found, got %v", err)
		}
		if _, err := view.ListTargets(mission.ID); !domain.IsNotFound(err, domain.EntityMission) {
			t.Fatalf("expected not found listing targets, got %v", err)
		}
		return nil
	})
}

func TestSingleActiveMissionConstraint(t *testing.T) {
	store := NewStore(nil)
	cat := seedCat(t, store, "Whiskers")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		first, err := tx.CreateMission(domain.Mission{CatID: &cat.ID})
		if err != nil {
			return err
		}
		if _, err := tx.CreateMission(domain.Mission{CatID: &cat.ID}); !errors.Is(err, domain.ErrCatAlreadyAssigned) {
			t.Fatalf("expected already assigned, got %v", err)
		}
		if _, err := tx.UpdateMission(first.ID, func(m *domain.Mission) error {
			m.IsComplete = true
			return nil
		}); err != nil {
			return err
		}
		_, err = tx.CreateMission(domain.Mission{CatID: &cat.ID})
		return err
	})
	if err != nil {
		t.Fatalf("expected assignment after completion, got %v", err)
	}
	missing := "missing"
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateMission(domain.Mission{CatID: &missing})
		return err
	})
	if !domain.IsNotFound(err, domain.EntitySpyCat) {
		t.Fatalf("expected cat not found, got %v", err)
	}
}

func TestDeleteCatClearsMissionReference(t *testing.T) {
	store := NewStore(nil)
	cat := seedCat(t, store, "Whiskers")
	var mission domain.Mission
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		mission, err = tx.CreateMission(domain.Mission{CatID: &cat.ID})
		if err != nil {
			return err
		}
		return tx.DeleteCat(cat.ID)
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	_ = store.View(context.Background(), func(view domain.TransactionView) error {
		got, err := view.GetMission(mission.ID)
		if err != nil {
			t.Fatalf("get mission: %v", err)
		}
		if got.HasCat() {
			t.Fatalf("expected cat reference cleared")
		}
		return nil
	})
}

func TestUpdateErrorsAndImmutableFields(t *testing.T) {
	store := NewStore(nil)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return fixed })
	cat := seedCat(t, store, "Whiskers")
	if !cat.CreatedAt.Equal(fixed) {
		t.Fatalf("expected injected clock, got %v", cat.CreatedAt)
	}
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.UpdateCat("missing", func(*domain.SpyCat) error { return nil }); !domain.IsNotFound(err, domain.EntitySpyCat) {
			t.Fatalf("expected not found, got %v", err)
		}
		if _, err := tx.UpdateCat(cat.ID, func(*domain.SpyCat) error { return fmt.Errorf("boom") }); err == nil {
			t.Fatalf("expected mutator error")
		}
		updated, err := tx.UpdateCat(cat.ID, func(c *domain.SpyCat) error {
			c.ID = "other"
			c.Salary = decimal.RequireFromString("2000")
			return nil
		})
		if err != nil {
			return err
		}
		if updated.ID != cat.ID || !updated.Salary.Equal(decimal.NewFromInt(2000)) {
			t.Fatalf("unexpected update result %+v", updated)
		}
		if _, err := tx.UpdateTarget("missing", func(*domain.Target) error { return nil }); !domain.IsNotFound(err, domain.EntityTarget) {
			t.Fatalf("expected target not found, got %v", err)
		}
		if err := tx.DeleteMission("missing"); !domain.IsNotFound(err, domain.EntityMission) {
			t.Fatalf("expected mission not found, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}
