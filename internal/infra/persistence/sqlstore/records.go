package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spycats/pkg/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

const (
	catColumns     = `c.id, c.name, c.years_of_experience, c.breed_id, c.salary, c.created_at, c.updated_at, b.id, b.name, b.created_at, b.updated_at`
	catFrom        = ` FROM spy_cats c JOIN breeds b ON b.id = c.breed_id`
	missionColumns = `id, cat_id, is_complete, created_at, updated_at`
	targetColumns  = `t.id, t.mission_id, t.name, t.country_id, t.notes, t.is_complete, t.created_at, t.updated_at, co.id, co.name, co.created_at, co.updated_at`
	targetFrom     = ` FROM targets t JOIN countries co ON co.id = t.country_id`
)

func scanNamed(row scanner) (domain.Base, string, error) {
	var (
		base             domain.Base
		name             string
		created, updated int64
	)
	if err := row.Scan(&base.ID, &name, &created, &updated); err != nil {
		return domain.Base{}, "", err
	}
	base.CreatedAt = fromMillis(created)
	base.UpdatedAt = fromMillis(updated)
	return base, name, nil
}

func scanCat(row scanner) (domain.SpyCat, error) {
	var (
		cat                        domain.SpyCat
		breed                      domain.Breed
		salary                     decimal.Decimal
		created, updated           int64
		breedCreated, breedUpdated int64
	)
	if err := row.Scan(&cat.ID, &cat.Name, &cat.YearsOfExperience, &cat.BreedID, &salary, &created, &updated,
		&breed.ID, &breed.Name, &breedCreated, &breedUpdated); err != nil {
		return domain.SpyCat{}, err
	}
	cat.Salary = salary
	cat.CreatedAt = fromMillis(created)
	cat.UpdatedAt = fromMillis(updated)
	breed.CreatedAt = fromMillis(breedCreated)
	breed.UpdatedAt = fromMillis(breedUpdated)
	cat.Breed = &breed
	return cat, nil
}

func scanMission(row scanner) (domain.Mission, error) {
	var (
		mission          domain.Mission
		catID            sql.NullString
		created, updated int64
	)
	if err := row.Scan(&mission.ID, &catID, &mission.IsComplete, &created, &updated); err != nil {
		return domain.Mission{}, err
	}
	if catID.Valid {
		id := catID.String
		mission.CatID = &id
	}
	mission.CreatedAt = fromMillis(created)
	mission.UpdatedAt = fromMillis(updated)
	return mission, nil
}

func scanTarget(row scanner) (domain.Target, error) {
	var (
		target                         domain.Target
		country                        domain.Country
		created, updated               int64
		countryCreated, countryUpdated int64
	)
	if err := row.Scan(&target.ID, &target.MissionID, &target.Name, &target.CountryID, &target.Notes, &target.IsComplete,
		&created, &updated, &country.ID, &country.Name, &countryCreated, &countryUpdated); err != nil {
		return domain.Target{}, err
	}
	target.CreatedAt = fromMillis(created)
	target.UpdatedAt = fromMillis(updated)
	country.CreatedAt = fromMillis(countryCreated)
	country.UpdatedAt = fromMillis(countryUpdated)
	target.Country = &country
	return target, nil
}

func nullableID(id *string) any {
	if id == nil || *id == "" {
		return nil
	}
	return *id
}

func salaryValue(v decimal.Decimal) string {
	return v.StringFixed(domain.SalaryDecimalPlaces)
}

// GetBreed loads a breed by id.
func (t *transaction) GetBreed(id string) (domain.Breed, error) {
	base, name, err := scanNamed(t.queryRow(`SELECT id, name, created_at, updated_at FROM breeds WHERE id = ?`, id))
	if err != nil {
		return domain.Breed{}, notFound(err, domain.EntityBreed, id)
	}
	return domain.Breed{Base: base, Name: name}, nil
}

// ListBreeds returns every breed ordered by creation.
func (t *transaction) ListBreeds() ([]domain.Breed, error) {
	rows, err := t.query(`SELECT id, name, created_at, updated_at FROM breeds ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list breeds: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Breed
	for rows.Next() {
		base, name, err := scanNamed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan breed: %w", err)
		}
		out = append(out, domain.Breed{Base: base, Name: name})
	}
	return out, rows.Err()
}

// GetCountry loads a country by id.
func (t *transaction) GetCountry(id string) (domain.Country, error) {
	base, name, err := scanNamed(t.queryRow(`SELECT id, name, created_at, updated_at FROM countries WHERE id = ?`, id))
	if err != nil {
		return domain.Country{}, notFound(err, domain.EntityCountry, id)
	}
	return domain.Country{Base: base, Name: name}, nil
}

// ListCountries returns every country ordered by creation.
func (t *transaction) ListCountries() ([]domain.Country, error) {
	rows, err := t.query(`SELECT id, name, created_at, updated_at FROM countries ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Country
	for rows.Next() {
		base, name, err := scanNamed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		out = append(out, domain.Country{Base: base, Name: name})
	}
	return out, rows.Err()
}

// GetCat loads a spy cat with its breed.
func (t *transaction) GetCat(id string) (domain.SpyCat, error) {
	cat, err := scanCat(t.queryRow(`SELECT `+catColumns+catFrom+` WHERE c.id = ?`, id))
	if err != nil {
		return domain.SpyCat{}, notFound(err, domain.EntitySpyCat, id)
	}
	return cat, nil
}

// ListCats returns every spy cat ordered by creation.
func (t *transaction) ListCats() ([]domain.SpyCat, error) {
	rows, err := t.query(`SELECT ` + catColumns + catFrom + ` ORDER BY c.created_at, c.id`)
	if err != nil {
		return nil, fmt.Errorf("list spy cats: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.SpyCat
	for rows.Next() {
		cat, err := scanCat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan spy cat: %w", err)
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (t *transaction) missionRow(id string) (domain.Mission, error) {
	m, err := scanMission(t.queryRow(`SELECT `+missionColumns+` FROM missions WHERE id = ?`, id))
	if err != nil {
		return domain.Mission{}, notFound(err, domain.EntityMission, id)
	}
	return m, nil
}

func (t *transaction) targetsOf(missionID string) ([]domain.Target, error) {
	rows, err := t.query(`SELECT `+targetColumns+targetFrom+` WHERE t.mission_id = ? ORDER BY t.position, t.id`, missionID)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := make([]domain.Target, 0, domain.MaxTargetsPerMission)
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		out = append(out, target)
	}
	return out, rows.Err()
}

func (t *transaction) decorate(missions []domain.Mission) ([]domain.Mission, error) {
	for i := range missions {
		targets, err := t.targetsOf(missions[i].ID)
		if err != nil {
			return nil, err
		}
		missions[i].Targets = targets
	}
	return missions, nil
}

func (t *transaction) listMissions(where string, args ...any) ([]domain.Mission, error) {
	rows, err := t.query(`SELECT `+missionColumns+` FROM missions`+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}
	var out []domain.Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan mission: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// Target queries reuse the connection, so the cursor must be closed first.
	_ = rows.Close()
	return t.decorate(out)
}

// GetMission loads a mission with its targets.
func (t *transaction) GetMission(id string) (domain.Mission, error) {
	m, err := t.missionRow(id)
	if err != nil {
		return domain.Mission{}, err
	}
	if m.Targets, err = t.targetsOf(id); err != nil {
		return domain.Mission{}, err
	}
	return m, nil
}

// ListMissions returns every mission ordered by creation.
func (t *transaction) ListMissions() ([]domain.Mission, error) {
	return t.listMissions("")
}

// GetTarget loads a target with its country.
func (t *transaction) GetTarget(id string) (domain.Target, error) {
	target, err := scanTarget(t.queryRow(`SELECT `+targetColumns+targetFrom+` WHERE t.id = ?`, id))
	if err != nil {
		return domain.Target{}, notFound(err, domain.EntityTarget, id)
	}
	return target, nil
}

// ListTargets returns the mission's targets in creation order.
func (t *transaction) ListTargets(missionID string) ([]domain.Target, error) {
	if _, err := t.missionRow(missionID); err != nil {
		return nil, err
	}
	return t.targetsOf(missionID)
}

// ActiveMissionsForCat returns incomplete missions assigned to the cat.
func (t *transaction) ActiveMissionsForCat(catID string) ([]domain.Mission, error) {
	return t.listMissions(` WHERE cat_id = ? AND is_complete = ?`, catID, false)
}

func (t *transaction) getOrCreateNamed(table string, entity domain.EntityType, name string) (domain.Base, bool, error) {
	id := uuid.NewString()
	res, err := t.exec(`INSERT INTO `+table+` (id, name, created_at, updated_at) VALUES (?, ?, ?, ?) ON CONFLICT (name) DO NOTHING`,
		id, name, toMillis(t.now), toMillis(t.now))
	if err != nil {
		return domain.Base{}, false, fmt.Errorf("insert %s: %w", entity, err)
	}
	created := false
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		created = true
	}
	base, _, err := scanNamed(t.queryRow(`SELECT id, name, created_at, updated_at FROM `+table+` WHERE name = ?`, name))
	if err != nil {
		return domain.Base{}, false, fmt.Errorf("load %s %q: %w", entity, name, err)
	}
	return base, created && base.ID == id, nil
}

// GetOrCreateBreed returns the breed with the exact name, inserting it when absent.
func (t *transaction) GetOrCreateBreed(name string) (domain.Breed, error) {
	if name == "" {
		return domain.Breed{}, domain.NewError(domain.ErrMissingField, "breed_name", "")
	}
	base, created, err := t.getOrCreateNamed("breeds", domain.EntityBreed, name)
	if err != nil {
		return domain.Breed{}, err
	}
	breed := domain.Breed{Base: base, Name: name}
	if created {
		t.recordChange(domain.Change{Entity: domain.EntityBreed, Action: domain.ActionCreate, After: breed})
	}
	return breed, nil
}

// GetOrCreateCountry returns the country with the exact name, inserting it when absent.
func (t *transaction) GetOrCreateCountry(name string) (domain.Country, error) {
	if name == "" {
		return domain.Country{}, domain.ErrMissingCountry
	}
	base, created, err := t.getOrCreateNamed("countries", domain.EntityCountry, name)
	if err != nil {
		return domain.Country{}, err
	}
	country := domain.Country{Base: base, Name: name}
	if created {
		t.recordChange(domain.Change{Entity: domain.EntityCountry, Action: domain.ActionCreate, After: country})
	}
	return country, nil
}

// CreateCat inserts a spy cat.
func (t *transaction) CreateCat(c domain.SpyCat) (domain.SpyCat, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	ok, err := t.exists("breeds", c.BreedID)
	if err != nil {
		return domain.SpyCat{}, err
	}
	if !ok {
		return domain.SpyCat{}, domain.ErrNotFound{Entity: domain.EntityBreed, ID: c.BreedID}
	}
	if _, err := t.exec(`INSERT INTO spy_cats (id, name, years_of_experience, breed_id, salary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.YearsOfExperience, c.BreedID, salaryValue(c.Salary), toMillis(t.now), toMillis(t.now)); err != nil {
		if t.dialect.uniqueViolation(err) {
			return domain.SpyCat{}, fmt.Errorf("spy cat %q already exists", c.ID)
		}
		return domain.SpyCat{}, fmt.Errorf("insert spy cat: %w", err)
	}
	created, err := t.GetCat(c.ID)
	if err != nil {
		return domain.SpyCat{}, err
	}
	t.recordChange(domain.Change{Entity: domain.EntitySpyCat, Action: domain.ActionCreate, After: created})
	return created, nil
}

// UpdateCat applies mutator to the stored cat and writes it back.
func (t *transaction) UpdateCat(id string, mutator func(*domain.SpyCat) error) (domain.SpyCat, error) {
	before, err := t.GetCat(id)
	if err != nil {
		return domain.SpyCat{}, err
	}
	current := before
	current.Breed = nil
	if err := mutator(&current); err != nil {
		return domain.SpyCat{}, err
	}
	ok, err := t.exists("breeds", current.BreedID)
	if err != nil {
		return domain.SpyCat{}, err
	}
	if !ok {
		return domain.SpyCat{}, domain.ErrNotFound{Entity: domain.EntityBreed, ID: current.BreedID}
	}
	if _, err := t.exec(`UPDATE spy_cats SET name = ?, years_of_experience = ?, breed_id = ?, salary = ?, updated_at = ? WHERE id = ?`,
		current.Name, current.YearsOfExperience, current.BreedID, salaryValue(current.Salary), toMillis(t.now), id); err != nil {
		return domain.SpyCat{}, fmt.Errorf("update spy cat: %w", err)
	}
	updated, err := t.GetCat(id)
	if err != nil {
		return domain.SpyCat{}, err
	}
	t.recordChange(domain.Change{Entity: domain.EntitySpyCat, Action: domain.ActionUpdate, Before: before, After: updated})
	return updated, nil
}

// DeleteCat removes the cat after clearing it from every mission.
func (t *transaction) DeleteCat(id string) error {
	before, err := t.GetCat(id)
	if err != nil {
		return err
	}
	assigned, err := t.listMissions(` WHERE cat_id = ?`, id)
	if err != nil {
		return err
	}
	if _, err := t.exec(`UPDATE missions SET cat_id = NULL, updated_at = ? WHERE cat_id = ?`, toMillis(t.now), id); err != nil {
		return fmt.Errorf("unassign spy cat: %w", err)
	}
	for _, m := range assigned {
		after := m
		after.CatID = nil
		after.UpdatedAt = t.now
		t.recordChange(domain.Change{Entity: domain.EntityMission, Action: domain.ActionUpdate, Before: m, After: after})
	}
	if _, err := t.exec(`DELETE FROM spy_cats WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete spy cat: %w", err)
	}
	t.recordChange(domain.Change{Entity: domain.EntitySpyCat, Action: domain.ActionDelete, Before: before})
	return nil
}

func (t *transaction) checkCat(m domain.Mission) error {
	if !m.HasCat() {
		return nil
	}
	ok, err := t.exists("spy_cats", *m.CatID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntitySpyCat, ID: *m.CatID}
	}
	return nil
}

// CreateMission inserts the mission row.
func (t *transaction) CreateMission(m domain.Mission) (domain.Mission, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := t.checkCat(m); err != nil {
		return domain.Mission{}, err
	}
	if _, err := t.exec(`INSERT INTO missions (id, cat_id, is_complete, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, nullableID(m.CatID), m.IsComplete, toMillis(t.now), toMillis(t.now)); err != nil {
		if t.dialect.uniqueViolation(err) {
			return domain.Mission{}, domain.WrapError(domain.ErrCatAlreadyAssigned, err)
		}
		return domain.Mission{}, fmt.Errorf("insert mission: %w", err)
	}
	created, err := t.GetMission(m.ID)
	if err != nil {
		return domain.Mission{}, err
	}
	t.recordChange(domain.Change{Entity: domain.EntityMission, Action: domain.ActionCreate, After: created})
	return created, nil
}

// UpdateMission applies mutator to the mission row. Targets on the mutated value are ignored.
func (t *transaction) UpdateMission(id string, mutator func(*domain.Mission) error) (domain.Mission, error) {
	before, err := t.GetMission(id)
	if err != nil {
		return domain.Mission{}, err
	}
	working := before
	working.Targets = append([]domain.Target(nil), before.Targets...)
	if before.CatID != nil {
		catID := *before.CatID
		working.CatID = &catID
	}
	if err := mutator(&working); err != nil {
		return domain.Mission{}, err
	}
	if err := t.checkCat(working); err != nil {
		return domain.Mission{}, err
	}
	if _, err := t.exec(`UPDATE missions SET cat_id = ?, is_complete = ?, updated_at = ? WHERE id = ?`,
		nullableID(working.CatID), working.IsComplete, toMillis(t.now), id); err != nil {
		if t.dialect.uniqueViolation(err) {
			return domain.Mission{}, domain.WrapError(domain.ErrCatAlreadyAssigned, err)
		}
		return domain.Mission{}, fmt.Errorf("update mission: %w", err)
	}
	updated, err := t.GetMission(id)
	if err != nil {
		return domain.Mission{}, err
	}
	t.recordChange(domain.Change{Entity: domain.EntityMission, Action: domain.ActionUpdate, Before: before, After: updated})
	return updated, nil
}

// DeleteMission removes the mission and its targets.
func (t *transaction) DeleteMission(id string) error {
	before, err := t.GetMission(id)
	if err != nil {
		return err
	}
	if _, err := t.exec(`DELETE FROM targets WHERE mission_id = ?`, id); err != nil {
		return fmt.Errorf("delete targets: %w", err)
	}
	for _, target := range before.Targets {
		t.recordChange(domain.Change{Entity: domain.EntityTarget, Action: domain.ActionDelete, Before: target})
	}
	if _, err := t.exec(`DELETE FROM missions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete mission: %w", err)
	}
	t.recordChange(domain.Change{Entity: domain.EntityMission, Action: domain.ActionDelete, Before: before})
	return nil
}

// CreateTarget inserts a target after the mission's existing targets.
func (t *transaction) CreateTarget(target domain.Target) (domain.Target, error) {
	if target.ID == "" {
		target.ID = uuid.NewString()
	}
	if _, err := t.missionRow(target.MissionID); err != nil {
		return domain.Target{}, err
	}
	ok, err := t.exists("countries", target.CountryID)
	if err != nil {
		return domain.Target{}, err
	}
	if !ok {
		return domain.Target{}, domain.ErrNotFound{Entity: domain.EntityCountry, ID: target.CountryID}
	}
	if _, err := t.exec(`INSERT INTO targets (id, mission_id, name, country_id, notes, is_complete, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM targets WHERE mission_id = ?), ?, ?)`,
		target.ID, target.MissionID, target.Name, target.CountryID, target.Notes, target.IsComplete,
		target.MissionID, toMillis(t.now), toMillis(t.now)); err != nil {
		return domain.Target{}, fmt.Errorf("insert target: %w", err)
	}
	created, err := t.GetTarget(target.ID)
	if err != nil {
		return domain.Target{}, err
	}
	t.recordChange(domain.Change{Entity: domain.EntityTarget, Action: domain.ActionCreate, After: created})
	return created, nil
}

// UpdateTarget applies mutator to the target. The owning mission cannot change.
func (t *transaction) UpdateTarget(id string, mutator func(*domain.Target) error) (domain.Target, error) {
	before, err := t.GetTarget(id)
	if err != nil {
		return domain.Target{}, err
	}
	current := before
	current.Country = nil
	if err := mutator(&current); err != nil {
		return domain.Target{}, err
	}
	ok, err := t.exists("countries", current.CountryID)
	if err != nil {
		return domain.Target{}, err
	}
	if !ok {
		return domain.Target{}, domain.ErrNotFound{Entity: domain.EntityCountry, ID: current.CountryID}
	}
	if _, err := t.exec(`UPDATE targets SET name = ?, country_id = ?, notes = ?, is_complete = ?, updated_at = ? WHERE id = ?`,
		current.Name, current.CountryID, current.Notes, current.IsComplete, toMillis(t.now), id); err != nil {
		return domain.Target{}, fmt.Errorf("update target: %w", err)
	}
	updated, err := t.GetTarget(id)
	if err != nil {
		return domain.Target{}, err
	}
	t.recordChange(domain.Change{Entity: domain.EntityTarget, Action: domain.ActionUpdate, Before: before, After: updated})
	return updated, nil
}
