// Package dossier archives point-in-time JSON snapshots of missions into the
// blob store.
package dossier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"spycats/internal/blob"
	"spycats/pkg/domain"
)

// KeyPrefix is the blob prefix under which every dossier is stored.
const KeyPrefix = "dossiers/missions/"

const contentType = "application/json"

// Source loads the records rendered into a dossier. *core.Service satisfies it.
type Source interface {
	GetMission(ctx context.Context, id string) (domain.Mission, error)
	GetCat(ctx context.Context, id string) (domain.SpyCat, error)
}

// Document is the archived JSON shape.
type Document struct {
	ArchivedAt time.Time       `json:"archived_at"`
	Mission    MissionSnapshot `json:"mission"`
	Cat        *CatSnapshot    `json:"cat"`
}

// MissionSnapshot captures a mission and its targets.
type MissionSnapshot struct {
	ID         string           `json:"id"`
	IsComplete bool             `json:"is_complete"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	Targets    []TargetSnapshot `json:"targets"`
}

// TargetSnapshot captures one target.
type TargetSnapshot struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Country    string `json:"country"`
	Notes      string `json:"notes"`
	IsComplete bool   `json:"is_complete"`
}

// CatSnapshot captures the assigned cat.
type CatSnapshot struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Breed             string `json:"breed"`
	YearsOfExperience int    `json:"years_of_experience"`
	Salary            string `json:"salary"`
}

// Entry describes an archived dossier.
type Entry struct {
	MissionID string    `json:"mission_id"`
	Key       string    `json:"key"`
	Size      int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithClock overrides the archive timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) {
		if now != nil {
			a.now = now
		}
	}
}

// Archiver writes dossiers to a blob store.
type Archiver struct {
	source Source
	store  blob.Store
	now    func() time.Time
}

// NewArchiver constructs an archiver.
func NewArchiver(source Source, store blob.Store, opts ...Option) *Archiver {
	a := &Archiver{source: source, store: store, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Archive snapshots the mission and stores it. A missing mission surfaces the
// store's domain.ErrNotFound.
func (a *Archiver) Archive(ctx context.Context, missionID string) (Entry, error) {
	mission, err := a.source.GetMission(ctx, missionID)
	if err != nil {
		return Entry{}, err
	}
	doc := Document{ArchivedAt: a.now(), Mission: snapshotMission(mission)}
	if mission.HasCat() {
		cat, err := a.source.GetCat(ctx, *mission.CatID)
		if err != nil && !domain.IsNotFound(err, domain.EntitySpyCat) {
			return Entry{}, err
		}
		if err == nil {
			doc.Cat = snapshotCat(cat)
		}
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Entry{}, fmt.Errorf("encode dossier: %w", err)
	}
	key := Key(mission.ID, doc.ArchivedAt)
	info, err := a.store.Put(ctx, key, bytes.NewReader(body), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"mission_id": mission.ID},
	})
	if err != nil {
		return Entry{}, fmt.Errorf("store dossier: %w", err)
	}
	return Entry{MissionID: mission.ID, Key: info.Key, Size: info.Size, CreatedAt: doc.ArchivedAt}, nil
}

// List returns archived dossiers, optionally restricted to one mission.
func (a *Archiver) List(ctx context.Context, missionID string) ([]Entry, error) {
	prefix := KeyPrefix
	if missionID != "" {
		prefix += missionID + "/"
	}
	infos, err := a.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list dossiers: %w", err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		id, created, ok := ParseKey(info.Key)
		if !ok {
			continue
		}
		entries = append(entries, Entry{MissionID: id, Key: info.Key, Size: info.Size, CreatedAt: created})
	}
	return entries, nil
}

// Load reads one archived document back.
func (a *Archiver) Load(ctx context.Context, key string) (Document, error) {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return Document{}, err
	}
	defer func() { _ = rc.Close() }()
	var doc Document
	data, err := io.ReadAll(rc)
	if err != nil {
		return Document{}, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode dossier %s: %w", key, err)
	}
	return doc, nil
}

// Key builds the blob key for a mission snapshot.
func Key(missionID string, at time.Time) string {
	return fmt.Sprintf("%s%s/%d.json", KeyPrefix, missionID, at.UnixNano())
}

// ParseKey extracts the mission id and timestamp from a dossier key.
func ParseKey(key string) (string, time.Time, bool) {
	rest, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok {
		return "", time.Time{}, false
	}
	missionID, file, ok := strings.Cut(rest, "/")
	if !ok || missionID == "" {
		return "", time.Time{}, false
	}
	stamp, ok := strings.CutSuffix(file, ".json")
	if !ok {
		return "", time.Time{}, false
	}
	var nanos int64
	if _, err := fmt.Sscanf(stamp, "%d", &nanos); err != nil || fmt.Sprint(nanos) != stamp {
		return "", time.Time{}, false
	}
	return missionID, time.Unix(0, nanos).UTC(), true
}

func snapshotMission(m domain.Mission) MissionSnapshot {
	out := MissionSnapshot{
		ID:         m.ID,
		IsComplete: m.IsComplete,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		Targets:    make([]TargetSnapshot, 0, len(m.Targets)),
	}
	for _, t := range m.Targets {
		ts := TargetSnapshot{ID: t.ID, Name: t.Name, Notes: t.Notes, IsComplete: t.IsComplete}
		if t.Country != nil {
			ts.Country = t.Country.Name
		}
		out.Targets = append(out.Targets, ts)
	}
	return out
}

func snapshotCat(c domain.SpyCat) *CatSnapshot {
	out := &CatSnapshot{
		ID:                c.ID,
		Name:              c.Name,
		YearsOfExperience: c.YearsOfExperience,
		Salary:            c.Salary.StringFixed(domain.SalaryDecimalPlaces),
	}
	if c.Breed != nil {
		out.Breed = c.Breed.Name
	}
	return out
}
