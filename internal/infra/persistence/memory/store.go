// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"spycats/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Breed aliases domain.Breed for in-memory persistence operations.
	Breed = domain.Breed
	// SpyCat aliases domain.SpyCat.
	SpyCat = domain.SpyCat
	// Country aliases domain.Country.
	Country = domain.Country
	// Mission aliases domain.Mission.
	Mission = domain.Mission
	// Target aliases domain.Target.
	Target = domain.Target
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// memoryState holds normalized records. Missions are stored without targets
// and targets without their country; reads decorate them.
type memoryState struct {
	breeds    map[string]Breed
	countries map[string]Country
	cats      map[string]SpyCat
	missions  map[string]Mission
	targets   map[string]Target

	breedNames   map[string]string
	countryNames map[string]string

	// seq records insertion order so listings are stable within a timestamp.
	seq  map[string]uint64
	next uint64
}

func newMemoryState() memoryState {
	return memoryState{
		breeds:       make(map[string]Breed),
		countries:    make(map[string]Country),
		cats:         make(map[string]SpyCat),
		missions:     make(map[string]Mission),
		targets:      make(map[string]Target),
		breedNames:   make(map[string]string),
		countryNames: make(map[string]string),
		seq:          make(map[string]uint64),
	}
}

func (s memoryState) clone() memoryState {
	cp := memoryState{
		breeds:       make(map[string]Breed, len(s.breeds)),
		countries:    make(map[string]Country, len(s.countries)),
		cats:         make(map[string]SpyCat, len(s.cats)),
		missions:     make(map[string]Mission, len(s.missions)),
		targets:      make(map[string]Target, len(s.targets)),
		breedNames:   make(map[string]string, len(s.breedNames)),
		countryNames: make(map[string]string, len(s.countryNames)),
		seq:          make(map[string]uint64, len(s.seq)),
		next:         s.next,
	}
	for k, v := range s.breeds {
		cp.breeds[k] = v
	}
	for k, v := range s.countries {
		cp.countries[k] = v
	}
	for k, v := range s.cats {
		cp.cats[k] = cloneCat(v)
	}
	for k, v := range s.missions {
		cp.missions[k] = cloneMission(v)
	}
	for k, v := range s.targets {
		cp.targets[k] = v
	}
	for k, v := range s.breedNames {
		cp.breedNames[k] = v
	}
	for k, v := range s.countryNames {
		cp.countryNames[k] = v
	}
	for k, v := range s.seq {
		cp.seq[k] = v
	}
	return cp
}

func (s *memoryState) stamp(id string) {
	s.next++
	s.seq[id] = s.next
}

func cloneCat(c SpyCat) SpyCat {
	c.Breed = nil
	return c
}

func cloneMission(m Mission) Mission {
	if m.CatID != nil {
		id := *m.CatID
		m.CatID = &id
	}
	m.Targets = nil
	return m
}

func cloneTarget(t Target) Target {
	t.Country = nil
	return t
}

func decorateCat(state *memoryState, cat SpyCat) SpyCat {
	cat = cloneCat(cat)
	if breed, ok := state.breeds[cat.BreedID]; ok {
		cat.Breed = &breed
	}
	return cat
}

func decorateTarget(state *memoryState, target Target) Target {
	target = cloneTarget(target)
	if country, ok := state.countries[target.CountryID]; ok {
		target.Country = &country
	}
	return target
}

func decorateMission(state *memoryState, mission Mission) Mission {
	mission = cloneMission(mission)
	mission.Targets = missionTargets(state, mission.ID)
	return mission
}

func missionTargets(state *memoryState, missionID string) []Target {
	out := make([]Target, 0, domain.MaxTargetsPerMission)
	for _, t := range state.targets {
		if t.MissionID == missionID {
			out = append(out, decorateTarget(state, t))
		}
	}
	sortBySeq(state, out, func(t Target) string { return t.ID })
	return out
}

func sortBySeq[T any](state *memoryState, items []T, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return state.seq[id(items[i])] < state.seq[id(items[j])]
	})
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// RulesEngine exposes the configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// SetNowFunc overrides the clock used to stamp records.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// RunInTransaction applies fn against a private copy of the state and
// publishes it only when fn succeeds and no blocking rule fires.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against the committed state under a read lock.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(newTransactionView(&s.state))
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) GetBreed(id string) (Breed, error) {
	b, ok := v.state.breeds[id]
	if !ok {
		return Breed{}, domain.ErrNotFound{Entity: domain.EntityBreed, ID: id}
	}
	return b, nil
}

func (v transactionView) ListBreeds() ([]Breed, error) {
	out := make([]Breed, 0, len(v.state.breeds))
	for _, b := range v.state.breeds {
		out = append(out, b)
	}
	sortBySeq(v.state, out, func(b Breed) string { return b.ID })
	return out, nil
}

func (v transactionView) GetCountry(id string) (Country, error) {
	c, ok := v.state.countries[id]
	if !ok {
		return Country{}, domain.ErrNotFound{Entity: domain.EntityCountry, ID: id}
	}
	return c, nil
}

func (v transactionView) ListCountries() ([]Country, error) {
	out := make([]Country, 0, len(v.state.countries))
	for _, c := range v.state.countries {
		out = append(out, c)
	}
	sortBySeq(v.state, out, func(c Country) string { return c.ID })
	return out, nil
}

func (v transactionView) GetCat(id string) (SpyCat, error) {
	c, ok := v.state.cats[id]
	if !ok {
		return SpyCat{}, domain.ErrNotFound{Entity: domain.EntitySpyCat, ID: id}
	}
	return decorateCat(v.state, c), nil
}

func (v transactionView) ListCats() ([]SpyCat, error) {
	out := make([]SpyCat, 0, len(v.state.cats))
	for _, c := range v.state.cats {
		out = append(out, decorateCat(v.state, c))
	}
	sortBySeq(v.state, out, func(c SpyCat) string { return c.ID })
	return out, nil
}

func (v transactionView) GetMission(id string) (Mission, error) {
	m, ok := v.state.missions[id]
	if !ok {
		return Mission{}, domain.ErrNotFound{Entity: domain.EntityMission, ID: id}
	}
	return decorateMission(v.state, m), nil
}

func (v transactionView) ListMissions() ([]Mission, error) {
	out := make([]Mission, 0, len(v.state.missions))
	for _, m := range v.state.missions {
		out = append(out, decorateMission(v.state, m))
	}
	sortBySeq(v.state, out, func(m Mission) string { return m.ID })
	return out, nil
}

func (v transactionView) GetTarget(id string) (Target, error) {
	t, ok := v.state.targets[id]
	if !ok {
		return Target{}, domain.ErrNotFound{Entity: domain.EntityTarget, ID: id}
	}
	return decorateTarget(v.state, t), nil
}

func (v transactionView) ListTargets(missionID string) ([]Target, error) {
	if _, ok := v.state.missions[missionID]; !ok {
		return nil, domain.ErrNotFound{Entity: domain.EntityMission, ID: missionID}
	}
	return missionTargets(v.state, missionID), nil
}

func (v transactionView) ActiveMissionsForCat(catID string) ([]Mission, error) {
	var out []Mission
	for _, m := range v.state.missions {
		if m.Active() && m.AssignedTo(catID) {
			out = append(out, decorateMission(v.state, m))
		}
	}
	sortBySeq(v.state, out, func(m Mission) string { return m.ID })
	return out, nil
}

// transaction represents a mutation set applied to a cloned store state.
type transaction struct {
	state   memoryState
	changes []Change
	now     time.Time
}

func (tx *transaction) view() transactionView { return transactionView{state: &tx.state} }

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) GetBreed(id string) (Breed, error)     { return tx.view().GetBreed(id) }
func (tx *transaction) ListBreeds() ([]Breed, error)          { return tx.view().ListBreeds() }
func (tx *transaction) GetCountry(id string) (Country, error) { return tx.view().GetCountry(id) }
func (tx *transaction) ListCountries() ([]Country, error)     { return tx.view().ListCountries() }
func (tx *transaction) GetCat(id string) (SpyCat, error)      { return tx.view().GetCat(id) }
func (tx *transaction) ListCats() ([]SpyCat, error)           { return tx.view().ListCats() }
func (tx *transaction) GetMission(id string) (Mission, error) { return tx.view().GetMission(id) }
func (tx *transaction) ListMissions() ([]Mission, error)      { return tx.view().ListMissions() }
func (tx *transaction) GetTarget(id string) (Target, error)   { return tx.view().GetTarget(id) }

func (tx *transaction) ListTargets(missionID string) ([]Target, error) {
	return tx.view().ListTargets(missionID)
}

func (tx *transaction) ActiveMissionsForCat(catID string) ([]Mission, error) {
	return tx.view().ActiveMissionsForCat(catID)
}

// GetOrCreateBreed returns the breed with the exact name, creating it when absent.
func (tx *transaction) GetOrCreateBreed(name string) (Breed, error) {
	if name == "" {
		return Breed{}, domain.NewError(domain.ErrMissingField, "breed_name", "")
	}
	if id, ok := tx.state.breedNames[name]; ok {
		return tx.state.breeds[id], nil
	}
	b := Breed{Base: domain.Base{ID: uuid.NewString(), CreatedAt: tx.now, UpdatedAt: tx.now}, Name: name}
	tx.state.breeds[b.ID] = b
	tx.state.breedNames[name] = b.ID
	tx.state.stamp(b.ID)
	tx.recordChange(Change{Entity: domain.EntityBreed, Action: domain.ActionCreate, After: b})
	return b, nil
}

// GetOrCreateCountry returns the country with the exact name, creating it when absent.
func (tx *transaction) GetOrCreateCountry(name string) (Country, error) {
	if name == "" {
		return Country{}, domain.ErrMissingCountry
	}
	if id, ok := tx.state.countryNames[name]; ok {
		return tx.state.countries[id], nil
	}
	c := Country{Base: domain.Base{ID: uuid.NewString(), CreatedAt: tx.now, UpdatedAt: tx.now}, Name: name}
	tx.state.countries[c.ID] = c
	tx.state.countryNames[name] = c.ID
	tx.state.stamp(c.ID)
	tx.recordChange(Change{Entity: domain.EntityCountry, Action: domain.ActionCreate, After: c})
	return c, nil
}

// CreateCat stores a new spy cat within the transaction.
func (tx *transaction) CreateCat(c SpyCat) (SpyCat, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, exists := tx.state.cats[c.ID]; exists {
		return SpyCat{}, fmt.Errorf("spy cat %q already exists", c.ID)
	}
	if _, ok := tx.state.breeds[c.BreedID]; !ok {
		return SpyCat{}, domain.ErrNotFound{Entity: domain.EntityBreed, ID: c.BreedID}
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.cats[c.ID] = cloneCat(c)
	tx.state.stamp(c.ID)
	created := decorateCat(&tx.state, c)
	tx.recordChange(Change{Entity: domain.EntitySpyCat, Action: domain.ActionCreate, After: created})
	return created, nil
}

// UpdateCat mutates a spy cat using the provided mutator function.
func (tx *transaction) UpdateCat(id string, mutator func(*SpyCat) error) (SpyCat, error) {
	current, ok := tx.state.cats[id]
	if !ok {
		return SpyCat{}, domain.ErrNotFound{Entity: domain.EntitySpyCat, ID: id}
	}
	before := decorateCat(&tx.state, current)
	if err := mutator(&current); err != nil {
		return SpyCat{}, err
	}
	if _, ok := tx.state.breeds[current.BreedID]; !ok {
		return SpyCat{}, domain.ErrNotFound{Entity: domain.EntityBreed, ID: current.BreedID}
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.cats[id] = cloneCat(current)
	updated := decorateCat(&tx.state, current)
	tx.recordChange(Change{Entity: domain.EntitySpyCat, Action: domain.ActionUpdate, Before: before, After: updated})
	return updated, nil
}

// DeleteCat removes a spy cat and clears it from referencing missions.
func (tx *transaction) DeleteCat(id string) error {
	current, ok := tx.state.cats[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntitySpyCat, ID: id}
	}
	for missionID, m := range tx.state.missions {
		if !m.AssignedTo(id) {
			continue
		}
		before := decorateMission(&tx.state, m)
		m.CatID = nil
		m.UpdatedAt = tx.now
		tx.state.missions[missionID] = m
		tx.recordChange(Change{Entity: domain.EntityMission, Action: domain.ActionUpdate, Before: before, After: decorateMission(&tx.state, m)})
	}
	delete(tx.state.cats, id)
	delete(tx.state.seq, id)
	tx.recordChange(Change{Entity: domain.EntitySpyCat, Action: domain.ActionDelete, Before: decorateCat(&tx.state, current)})
	return nil
}

// checkAssignment mirrors the single active mission per cat constraint.
func (tx *transaction) checkAssignment(m Mission) error {
	if !m.HasCat() {
		return nil
	}
	if _, ok := tx.state.cats[*m.CatID]; !ok {
		return domain.ErrNotFound{Entity: domain.EntitySpyCat, ID: *m.CatID}
	}
	if !m.Active() {
		return nil
	}
	for id, other := range tx.state.missions {
		if id != m.ID && other.Active() && other.AssignedTo(*m.CatID) {
			return domain.ErrCatAlreadyAssigned
		}
	}
	return nil
}

// CreateMission stores a new mission row.
func (tx *transaction) CreateMission(m Mission) (Mission, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if _, exists := tx.state.missions[m.ID]; exists {
		return Mission{}, fmt.Errorf("mission %q already exists", m.ID)
	}
	if err := tx.checkAssignment(m); err != nil {
		return Mission{}, err
	}
	m.CreatedAt = tx.now
	m.UpdatedAt = tx.now
	tx.state.missions[m.ID] = cloneMission(m)
	tx.state.stamp(m.ID)
	created := decorateMission(&tx.state, m)
	tx.recordChange(Change{Entity: domain.EntityMission, Action: domain.ActionCreate, After: created})
	return created, nil
}

// UpdateMission mutates a mission row. Targets on the mutated value are ignored.
func (tx *transaction) UpdateMission(id string, mutator func(*Mission) error) (Mission, error) {
	current, ok := tx.state.missions[id]
	if !ok {
		return Mission{}, domain.ErrNotFound{Entity: domain.EntityMission, ID: id}
	}
	before := decorateMission(&tx.state, current)
	working := decorateMission(&tx.state, current)
	if err := mutator(&working); err != nil {
		return Mission{}, err
	}
	working.ID = id
	working.CreatedAt = before.CreatedAt
	working.UpdatedAt = tx.now
	if err := tx.checkAssignment(working); err != nil {
		return Mission{}, err
	}
	tx.state.missions[id] = cloneMission(working)
	updated := decorateMission(&tx.state, working)
	tx.recordChange(Change{Entity: domain.EntityMission, Action: domain.ActionUpdate, Before: before, After: updated})
	return updated, nil
}

// DeleteMission removes a mission along with its targets.
func (tx *transaction) DeleteMission(id string) error {
	current, ok := tx.state.missions[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityMission, ID: id}
	}
	before := decorateMission(&tx.state, current)
	for _, t := range before.Targets {
		delete(tx.state.targets, t.ID)
		delete(tx.state.seq, t.ID)
		tx.recordChange(Change{Entity: domain.EntityTarget, Action: domain.ActionDelete, Before: t})
	}
	delete(tx.state.missions, id)
	delete(tx.state.seq, id)
	tx.recordChange(Change{Entity: domain.EntityMission, Action: domain.ActionDelete, Before: before})
	return nil
}

// CreateTarget stores a new target under an existing mission.
func (tx *transaction) CreateTarget(t Target) (Target, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, exists := tx.state.targets[t.ID]; exists {
		return Target{}, fmt.Errorf("target %q already exists", t.ID)
	}
	if _, ok := tx.state.missions[t.MissionID]; !ok {
		return Target{}, domain.ErrNotFound{Entity: domain.EntityMission, ID: t.MissionID}
	}
	if _, ok := tx.state.countries[t.CountryID]; !ok {
		return Target{}, domain.ErrNotFound{Entity: domain.EntityCountry, ID: t.CountryID}
	}
	t.CreatedAt = tx.now
	t.UpdatedAt = tx.now
	tx.state.targets[t.ID] = cloneTarget(t)
	tx.state.stamp(t.ID)
	created := decorateTarget(&tx.state, t)
	tx.recordChange(Change{Entity: domain.EntityTarget, Action: domain.ActionCreate, After: created})
	return created, nil
}

// UpdateTarget mutates a target. The owning mission cannot change.
func (tx *transaction) UpdateTarget(id string, mutator func(*Target) error) (Target, error) {
	current, ok := tx.state.targets[id]
	if !ok {
		return Target{}, domain.ErrNotFound{Entity: domain.EntityTarget, ID: id}
	}
	before := decorateTarget(&tx.state, current)
	if err := mutator(&current); err != nil {
		return Target{}, err
	}
	if _, ok := tx.state.countries[current.CountryID]; !ok {
		return Target{}, domain.ErrNotFound{Entity: domain.EntityCountry, ID: current.CountryID}
	}
	current.ID = id
	current.MissionID = before.MissionID
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.targets[id] = cloneTarget(current)
	updated := decorateTarget(&tx.state, current)
	tx.recordChange(Change{Entity: domain.EntityTarget, Action: domain.ActionUpdate, Before: before, After: updated})
	return updated, nil
}
