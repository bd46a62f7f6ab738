package integration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"spycats/internal/blob"
	"spycats/internal/catalog"
	"spycats/internal/core"
	"spycats/internal/dossier"
	"spycats/pkg/domain"
)

// TestIntegrationSmoke runs a cat and mission lifecycle against every
// in-process store and blob backend pairing.
func TestIntegrationSmoke(t *testing.T) {
	ctx := context.Background()

	storeVariants := []struct {
		name string
		open func(t *testing.T) core.PersistentStore
	}{
		{
			name: "memory-store",
			open: func(*testing.T) core.PersistentStore {
				store, err := core.OpenPersistentStore(core.StorageConfig{Driver: core.StorageMemory}, nil)
				if err != nil {
					t.Fatalf("open memory store: %v", err)
				}
				return store
			},
		},
		{
			name: "sqlite-store",
			open: func(t *testing.T) core.PersistentStore {
				path := filepath.Join(t.TempDir(), "spycats.db")
				store, err := core.OpenPersistentStore(core.StorageConfig{Driver: core.StorageSQLite, SQLitePath: path}, nil)
				if err != nil {
					t.Fatalf("open sqlite store: %v", err)
				}
				return store
			},
		},
	}
	blobVariants := []struct {
		name string
		open func(t *testing.T) blob.Store
	}{
		{name: "memory-blob", open: func(*testing.T) blob.Store { return blob.NewMemory() }},
		{
			name: "filesystem-blob",
			open: func(t *testing.T) blob.Store {
				store, err := blob.Open(ctx, blob.Config{Driver: blob.DriverFilesystem, FSRoot: t.TempDir()})
				if err != nil {
					t.Fatalf("open fs blob: %v", err)
				}
				return store
			},
		},
	}

	for _, sv := range storeVariants {
		for _, bv := range blobVariants {
			t.Run(sv.name+"/"+bv.name, func(t *testing.T) {
				store := sv.open(t)
				t.Cleanup(func() { _ = store.Close() })
				svc := core.NewService(store, catalog.NewStatic("Siamese,Bengal"))
				archiver := dossier.NewArchiver(svc, bv.open(t))
				runLifecycle(ctx, t, svc, archiver)
			})
		}
	}
}

func runLifecycle(ctx context.Context, t *testing.T, svc *core.Service, archiver *dossier.Archiver) {
	t.Helper()
	years := 4
	salary := decimal.RequireFromString("4200.00")
	cat, _, err := svc.CreateCat(ctx, domain.CatDraft{Name: "Whiskers", YearsOfExperience: &years, Salary: &salary, BreedName: "siamese"})
	if err != nil {
		t.Fatalf("create cat: %v", err)
	}
	mission, _, err := svc.CreateMission(ctx, domain.MissionDraft{
		CatID: &cat.ID,
		Targets: domain.NewTargetBatch(
			domain.TargetInput{Name: domain.Some("Dr. Claw"), Country: domain.CountryByName("Spain")},
			domain.TargetInput{Name: domain.Some("Mr. Jinks"), Country: domain.CountryByName("Spain")},
		),
	})
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	if len(mission.Targets) != 2 || mission.Targets[0].CountryID != mission.Targets[1].CountryID {
		t.Fatalf("expected both targets to share one country, got %+v", mission.Targets)
	}
	if _, _, err := svc.CreateMission(ctx, domain.MissionDraft{
		CatID:   &cat.ID,
		Targets: domain.NewTargetBatch(domain.TargetInput{Name: domain.Some("x"), Country: domain.CountryByName("Spain")}),
	}); !errors.Is(err, domain.ErrCatAlreadyAssigned) {
		t.Fatalf("expected cat already assigned, got %v", err)
	}

	var patch domain.MissionPatch
	for _, target := range mission.Targets {
		patch.Targets = domain.NewTargetBatch(domain.TargetInput{ID: target.ID, IsComplete: domain.Some(true)})
		if _, _, err := svc.UpdateMission(ctx, mission.ID, patch); err != nil {
			t.Fatalf("complete target %s: %v", target.ID, err)
		}
	}
	done, err := svc.GetMission(ctx, mission.ID)
	if err != nil {
		t.Fatalf("get mission: %v", err)
	}
	if !done.IsComplete {
		t.Fatalf("expected mission completed by cascade")
	}

	entry, err := archiver.Archive(ctx, mission.ID)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	doc, err := archiver.Load(ctx, entry.Key)
	if err != nil {
		t.Fatalf("load dossier: %v", err)
	}
	if !doc.Mission.IsComplete || doc.Cat == nil || doc.Cat.Name != "Whiskers" || doc.Cat.Salary != "4200.00" {
		t.Fatalf("unexpected dossier %+v", doc)
	}
	entries, err := archiver.List(ctx, mission.ID)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one dossier, got %d %v", len(entries), err)
	}

	// A completed mission frees the cat for new work.
	if _, _, err := svc.CreateMission(ctx, domain.MissionDraft{
		CatID:   &cat.ID,
		Targets: domain.NewTargetBatch(domain.TargetInput{Name: domain.Some("Next"), Country: domain.CountryByName("Peru")}),
	}); err != nil {
		t.Fatalf("reassign cat: %v", err)
	}
	if _, err := svc.DeleteCat(ctx, cat.ID); err != nil {
		t.Fatalf("delete cat: %v", err)
	}
	missions, err := svc.ListMissions(ctx)
	if err != nil || len(missions) != 2 {
		t.Fatalf("missions must survive cat deletion: %d %v", len(missions), err)
	}
	for _, m := range missions {
		if m.HasCat() {
			t.Fatalf("expected nulled cat on mission %s", m.ID)
		}
	}
}
