package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"spycats/pkg/domain"
)

// MissionLifecycle owns mission and target mutations. Every operation runs in
// a single store transaction, so a failure at any step leaves no partial state.
type MissionLifecycle struct {
	store     PersistentStore
	countries *CountryRegistry
}

// NewMissionLifecycle constructs the lifecycle over a store.
func NewMissionLifecycle(store PersistentStore, countries *CountryRegistry) *MissionLifecycle {
	if countries == nil {
		countries = NewCountryRegistry()
	}
	return &MissionLifecycle{store: store, countries: countries}
}

// Create stores a mission together with its targets.
func (l *MissionLifecycle) Create(ctx context.Context, draft domain.MissionDraft) (Mission, Result, error) {
	var created Mission
	res, err := l.store.RunInTransaction(ctx, func(tx Transaction) error {
		catID := normalizeID(draft.CatID)
		if catID != nil {
			if err := l.checkAssignable(tx, *catID, ""); err != nil {
				return err
			}
		}
		if err := draft.Targets.Err(); err != nil {
			return err
		}
		entries := draft.Targets.Entries()
		if n := len(entries); n < domain.MinTargetsPerMission || n > domain.MaxTargetsPerMission {
			return domain.NewError(domain.ErrTargetCount, "", "mission must have between %d and %d targets, got %d",
				domain.MinTargetsPerMission, domain.MaxTargetsPerMission, n)
		}
		mission, err := tx.CreateMission(Mission{CatID: catID})
		if err != nil {
			return err
		}
		for i, entry := range entries {
			if _, err := l.createTarget(tx, mission.ID, i, entry); err != nil {
				return err
			}
		}
		if err := l.cascade(tx, mission.ID); err != nil {
			return err
		}
		created, err = tx.GetMission(mission.ID)
		return err
	})
	return created, res, err
}

// Update applies a partial update to an active mission and upserts targets
// in input order.
func (l *MissionLifecycle) Update(ctx context.Context, id string, patch domain.MissionPatch) (Mission, Result, error) {
	var updated Mission
	res, err := l.store.RunInTransaction(ctx, func(tx Transaction) error {
		current, err := tx.GetMission(id)
		if err != nil {
			return err
		}
		if current.IsComplete {
			return domain.NewError(domain.ErrMissionLocked, "", "mission %s is complete", id)
		}
		if patch.IsComplete.Set && patch.IsComplete.Null {
			return domain.NewError(domain.ErrInvalidField, "is_complete", "may not be null")
		}

		if patch.Cat.Set || patch.IsComplete.Set {
			var catID *string
			if patch.Cat.Set {
				catID = normalizeID(patch.Cat.Value)
				if catID != nil {
					if err := l.checkAssignable(tx, *catID, id); err != nil {
						return err
					}
				}
			}
			if _, err := tx.UpdateMission(id, func(m *Mission) error {
				if patch.Cat.Set {
					m.CatID = catID
				}
				if patch.IsComplete.Set {
					m.IsComplete = patch.IsComplete.Value
				}
				return nil
			}); err != nil {
				return err
			}
		}

		if patch.Targets.Present() {
			if err := patch.Targets.Err(); err != nil {
				return err
			}
			for i, entry := range patch.Targets.Entries() {
				if entry.ID != "" {
					err = l.updateTarget(tx, id, i, entry)
				} else {
					err = l.addTarget(tx, id, i, entry)
				}
				if err != nil {
					return err
				}
			}
		}
		updated, err = tx.GetMission(id)
		return err
	})
	return updated, res, err
}

// Delete removes a mission and its targets. Missions assigned to a cat cannot
// be deleted.
func (l *MissionLifecycle) Delete(ctx context.Context, id string) (Result, error) {
	return l.store.RunInTransaction(ctx, func(tx Transaction) error {
		mission, err := tx.GetMission(id)
		if err != nil {
			return err
		}
		if mission.HasCat() {
			return domain.NewError(domain.ErrMissionHasCat, "", "mission %s is assigned to cat %s", id, *mission.CatID)
		}
		return tx.DeleteMission(id)
	})
}

// Get returns a mission with its targets.
func (l *MissionLifecycle) Get(ctx context.Context, id string) (Mission, error) {
	var mission Mission
	err := l.store.View(ctx, func(view TransactionView) error {
		var err error
		mission, err = view.GetMission(id)
		return err
	})
	return mission, err
}

// List returns every mission with its targets.
func (l *MissionLifecycle) List(ctx context.Context) ([]Mission, error) {
	var missions []Mission
	err := l.store.View(ctx, func(view TransactionView) error {
		var err error
		missions, err = view.ListMissions()
		return err
	})
	return missions, err
}

// checkAssignable verifies the cat exists and has no active mission other
// than exclude.
func (l *MissionLifecycle) checkAssignable(tx Transaction, catID, exclude string) error {
	if _, err := tx.GetCat(catID); err != nil {
		if domain.IsNotFound(err, domain.EntitySpyCat) {
			return domain.NewError(domain.ErrCatNotFound, "", "cat %s does not exist", catID)
		}
		return err
	}
	active, err := tx.ActiveMissionsForCat(catID)
	if err != nil {
		return err
	}
	for _, m := range active {
		if m.ID != exclude {
			return domain.NewError(domain.ErrCatAlreadyAssigned, "", "cat %s is already assigned to mission %s", catID, m.ID)
		}
	}
	return nil
}

func (l *MissionLifecycle) createTarget(tx Transaction, missionID string, index int, entry domain.TargetInput) (Target, error) {
	country, err := l.countries.ResolveRef(tx, entry.Country)
	if err != nil {
		return Target{}, indexed(err, index)
	}
	name, err := targetName(entry.Name, index)
	if err != nil {
		return Target{}, err
	}
	return tx.CreateTarget(Target{
		MissionID:  missionID,
		Name:       name,
		CountryID:  country.ID,
		Notes:      entry.Notes.Value,
		IsComplete: entry.IsComplete.Set && entry.IsComplete.Value,
	})
}

func (l *MissionLifecycle) addTarget(tx Transaction, missionID string, index int, entry domain.TargetInput) error {
	mission, err := tx.GetMission(missionID)
	if err != nil {
		return err
	}
	if mission.IsComplete {
		return domain.NewError(domain.ErrMissionLocked, fmt.Sprintf("targets[%d]", index), "cannot add targets to a completed mission")
	}
	if len(mission.Targets) >= domain.MaxTargetsPerMission {
		return domain.NewError(domain.ErrTargetCap, "", "cannot have more than %d targets in a mission", domain.MaxTargetsPerMission)
	}
	if _, err := l.createTarget(tx, missionID, index, entry); err != nil {
		return err
	}
	return l.cascade(tx, missionID)
}

func (l *MissionLifecycle) updateTarget(tx Transaction, missionID string, index int, entry domain.TargetInput) error {
	target, err := tx.GetTarget(entry.ID)
	if err != nil && !domain.IsNotFound(err, domain.EntityTarget) {
		return err
	}
	if err != nil || target.MissionID != missionID {
		return domain.NewError(domain.ErrTargetNotFound, "", "target %s does not exist in this mission", entry.ID)
	}
	mission, err := tx.GetMission(missionID)
	if err != nil {
		return err
	}
	if entry.ChangesNotes() && domain.NotesLocked(target, mission) {
		return domain.NewError(domain.ErrNotesLocked, "", "cannot update notes of target %s", target.ID)
	}

	var name string
	if entry.Name.Set {
		if name, err = targetName(entry.Name, index); err != nil {
			return err
		}
	}
	countryID := ""
	if !entry.Country.IsZero() {
		country, err := l.countries.ResolveRef(tx, entry.Country)
		if err != nil {
			return indexed(err, index)
		}
		countryID = country.ID
	}
	if entry.IsComplete.Set && entry.IsComplete.Null {
		return domain.NewError(domain.ErrInvalidField, fmt.Sprintf("targets[%d].is_complete", index), "may not be null")
	}
	updated, err := tx.UpdateTarget(target.ID, func(t *Target) error {
		if entry.Name.Set {
			t.Name = name
		}
		if countryID != "" {
			t.CountryID = countryID
		}
		if entry.Notes.Set {
			t.Notes = entry.Notes.Value
		}
		if entry.IsComplete.Set {
			t.IsComplete = entry.IsComplete.Value
		}
		return nil
	})
	if err != nil {
		return err
	}
	if updated.IsComplete {
		return l.cascade(tx, missionID)
	}
	return nil
}

// cascade marks the mission complete once every target is complete. It
// never reopens a mission.
func (l *MissionLifecycle) cascade(tx Transaction, missionID string) error {
	mission, err := tx.GetMission(missionID)
	if err != nil {
		return err
	}
	if mission.IsComplete || len(mission.Targets) == 0 || !domain.MissionCompleted(mission.Targets) {
		return nil
	}
	_, err = tx.UpdateMission(missionID, func(m *Mission) error {
		m.IsComplete = true
		return nil
	})
	return err
}

func targetName(name domain.Optional[string], index int) (string, error) {
	field := fmt.Sprintf("targets[%d].name", index)
	value := strings.TrimSpace(name.Value)
	if !name.Set || name.Null || value == "" {
		return "", domain.NewError(domain.ErrMissingField, field, "")
	}
	if utf8.RuneCountInString(value) > domain.MaxNameLength {
		return "", domain.NewError(domain.ErrInvalidField, field, "ensure this field has no more than %d characters", domain.MaxNameLength)
	}
	return value, nil
}

// indexed prefixes the error field with the target position.
func indexed(err error, index int) error {
	var de *domain.Error
	if !errors.As(err, &de) {
		return err
	}
	out := *de
	out.Field = fmt.Sprintf("targets[%d].%s", index, de.Field)
	return &out
}

func normalizeID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
