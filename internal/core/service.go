package core

import (
	"context"
	"time"

	"spycats/internal/catalog"
	"spycats/internal/infra/persistence/memory"
	"spycats/pkg/domain"
)

// Logger is the structured logging surface consumed by the service.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// MetricsRecorder observes the outcome of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended with the operation error, if any.
type TraceSpan interface {
	End(err error)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for operation timing.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetricsRecorder installs a metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// Service exposes the transactional spy cat and mission operations.
type Service struct {
	store     PersistentStore
	breeds    *BreedValidator
	countries *CountryRegistry
	cats      *SpyCatManager
	missions  *MissionLifecycle

	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
}

// NewService constructs a service backed by the supplied store and breed catalog.
func NewService(store PersistentStore, breedCatalog catalog.Client, opts ...Option) *Service {
	breeds := NewBreedValidator(breedCatalog, store)
	countries := NewCountryRegistry()
	svc := &Service{
		store:     store,
		breeds:    breeds,
		countries: countries,
		cats:      NewSpyCatManager(store, breeds),
		missions:  NewMissionLifecycle(store, countries),
		logger:    noopLogger{},
		clock:     ClockFunc(func() time.Time { return time.Now().UTC() }),
		metrics:   noopMetricsRecorder{},
		tracer:    noopTracer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(engine *RulesEngine, breedCatalog catalog.Client, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), breedCatalog, opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// Breeds returns the breed validator.
func (s *Service) Breeds() *BreedValidator { return s.breeds }

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) (Result, error)) (Result, error) {
	ctx, span := s.tracer.Start(ctx, op)
	start := s.clock.Now()
	res, err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "error", err, "duration", duration)
		return res, err
	}
	for _, v := range res.Warnings() {
		s.logger.Warn("rule warning", "operation", op, "rule", v.Rule, "entity", v.Entity, "entity_id", v.EntityID, "message", v.Message)
	}
	s.logger.Debug("operation completed", "operation", op, "duration", duration)
	return res, nil
}

// ResolveBreed validates a breed name against the catalog and returns the stored breed.
func (s *Service) ResolveBreed(ctx context.Context, name string) (Breed, Result, error) {
	var breed Breed
	res, err := s.run(ctx, "resolve_breed", func(ctx context.Context) (Result, error) {
		var err error
		breed, err = s.breeds.Resolve(ctx, name)
		return Result{}, err
	})
	return breed, res, err
}

// CreateCat validates and persists a new spy cat.
func (s *Service) CreateCat(ctx context.Context, draft domain.CatDraft) (SpyCat, Result, error) {
	var created SpyCat
	res, err := s.run(ctx, "create_cat", func(ctx context.Context) (Result, error) {
		var (
			r   Result
			err error
		)
		created, r, err = s.cats.Create(ctx, draft)
		return r, err
	})
	return created, res, err
}

// UpdateCat applies a partial update to a spy cat.
func (s *Service) UpdateCat(ctx context.Context, id string, patch domain.CatPatch) (SpyCat, Result, error) {
	var updated SpyCat
	res, err := s.run(ctx, "update_cat", func(ctx context.Context) (Result, error) {
		var (
			r   Result
			err error
		)
		updated, r, err = s.cats.Update(ctx, id, patch)
		return r, err
	})
	return updated, res, err
}

// ReplaceCat applies a full update; every field is required.
func (s *Service) ReplaceCat(ctx context.Context, id string, draft domain.CatDraft) (SpyCat, Result, error) {
	var updated SpyCat
	res, err := s.run(ctx, "replace_cat", func(ctx context.Context) (Result, error) {
		var (
			r   Result
			err error
		)
		updated, r, err = s.cats.Replace(ctx, id, draft)
		return r, err
	})
	return updated, res, err
}

// DeleteCat removes a spy cat; its missions keep a nulled cat reference.
func (s *Service) DeleteCat(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_cat", func(ctx context.Context) (Result, error) {
		return s.cats.Delete(ctx, id)
	})
}

// GetCat returns one spy cat with its breed.
func (s *Service) GetCat(ctx context.Context, id string) (SpyCat, error) {
	var cat SpyCat
	_, err := s.run(ctx, "get_cat", func(ctx context.Context) (Result, error) {
		var err error
		cat, err = s.cats.Get(ctx, id)
		return Result{}, err
	})
	return cat, err
}

// ListCats returns every spy cat.
func (s *Service) ListCats(ctx context.Context) ([]SpyCat, error) {
	var cats []SpyCat
	_, err := s.run(ctx, "list_cats", func(ctx context.Context) (Result, error) {
		var err error
		cats, err = s.cats.List(ctx)
		return Result{}, err
	})
	return cats, err
}

// CreateMission creates a mission with its targets atomically.
func (s *Service) CreateMission(ctx context.Context, draft domain.MissionDraft) (Mission, Result, error) {
	var created Mission
	res, err := s.run(ctx, "create_mission", func(ctx context.Context) (Result, error) {
		var (
			r   Result
			err error
		)
		created, r, err = s.missions.Create(ctx, draft)
		return r, err
	})
	return created, res, err
}

// UpdateMission applies a partial mission update including target upserts.
func (s *Service) UpdateMission(ctx context.Context, id string, patch domain.MissionPatch) (Mission, Result, error) {
	var updated Mission
	res, err := s.run(ctx, "update_mission", func(ctx context.Context) (Result, error) {
		var (
			r   Result
			err error
		)
		updated, r, err = s.missions.Update(ctx, id, patch)
		return r, err
	})
	return updated, res, err
}

// DeleteMission removes an unassigned mission and its targets.
func (s *Service) DeleteMission(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_mission", func(ctx context.Context) (Result, error) {
		return s.missions.Delete(ctx, id)
	})
}

// GetMission returns one mission with its targets.
func (s *Service) GetMission(ctx context.Context, id string) (Mission, error) {
	var mission Mission
	_, err := s.run(ctx, "get_mission", func(ctx context.Context) (Result, error) {
		var err error
		mission, err = s.missions.Get(ctx, id)
		return Result{}, err
	})
	return mission, err
}

// ListMissions returns every mission with its targets.
func (s *Service) ListMissions(ctx context.Context) ([]Mission, error) {
	var missions []Mission
	_, err := s.run(ctx, "list_missions", func(ctx context.Context) (Result, error) {
		var err error
		missions, err = s.missions.List(ctx)
		return Result{}, err
	})
	return missions, err
}

// ListBreeds returns every breed validated so far.
func (s *Service) ListBreeds(ctx context.Context) ([]Breed, error) {
	var breeds []Breed
	_, err := s.run(ctx, "list_breeds", func(ctx context.Context) (Result, error) {
		return Result{}, s.store.View(ctx, func(view TransactionView) error {
			var err error
			breeds, err = view.ListBreeds()
			return err
		})
	})
	return breeds, err
}
