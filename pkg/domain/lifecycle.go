package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Optional distinguishes an absent JSON key from a key set to null or a value.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// UnmarshalJSON marks the option as set, including for JSON null.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Null = false
	var zero T
	o.Value = zero
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON encodes the held value, or null when unset.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// CountryRef identifies a target's country either by name, resolved through
// get-or-create, or by the id of an existing country record.
type CountryRef struct {
	ByName string
	ByID   string
}

// CountryByName builds a name reference.
func CountryByName(name string) CountryRef { return CountryRef{ByName: name} }

// CountryByID builds an id reference.
func CountryByID(id string) CountryRef { return CountryRef{ByID: id} }

// IsZero reports whether neither variant is populated.
func (r CountryRef) IsZero() bool {
	return r.ByName == "" && r.ByID == ""
}

// TargetInput is a single entry of a target batch. An entry with an ID
// updates an existing target; without one it creates a new target.
type TargetInput struct {
	ID         string
	Name       Optional[string]
	Country    CountryRef
	Notes      Optional[string]
	IsComplete Optional[bool]
}

// ChangesNotes reports whether the entry carries a notes field.
func (in TargetInput) ChangesNotes() bool {
	return in.Notes.Set
}

type targetWire struct {
	ID          json.RawMessage  `json:"id"`
	Name        Optional[string] `json:"name"`
	CountryName Optional[string] `json:"country_name"`
	Country     json.RawMessage  `json:"country"`
	Notes       Optional[string] `json:"notes"`
	IsComplete  Optional[bool]   `json:"is_complete"`
}

// TargetBatch is the targets payload of a mission request. Decoding never
// fails: shape problems are retained and reported by Err so the lifecycle can
// check them in its own order.
type TargetBatch struct {
	present bool
	entries []TargetInput
	err     error
}

// NewTargetBatch builds a present batch from typed entries.
func NewTargetBatch(entries ...TargetInput) TargetBatch {
	return TargetBatch{present: true, entries: entries}
}

// Present reports whether the payload carried a non-null targets value.
func (b TargetBatch) Present() bool { return b.present }

// Entries returns the decoded entries in input order.
func (b TargetBatch) Entries() []TargetInput {
	out := make([]TargetInput, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of entries.
func (b TargetBatch) Len() int { return len(b.entries) }

// Err returns the first decoding problem, if any.
func (b TargetBatch) Err() error { return b.err }

// UnmarshalJSON implements lenient decoding of a list of target objects.
func (b *TargetBatch) UnmarshalJSON(data []byte) error {
	*b = TargetBatch{}
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	b.present = true
	var raw []json.RawMessage
	if len(trimmed) == 0 || trimmed[0] != '[' {
		b.err = ErrInvalidTargetsShape
		return nil
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		b.err = WrapError(ErrInvalidTargetsShape, err)
		return nil
	}
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			b.err = NewError(ErrInvalidTargetsShape, "", "each target must be an object")
			b.entries = nil
			return nil
		}
	}
	entries := make([]TargetInput, 0, len(raw))
	for i, item := range raw {
		entry, err := decodeTarget(item)
		if err != nil {
			b.err = NewError(ErrInvalidField, fmt.Sprintf("targets[%d]", i), "%v", err)
			return nil
		}
		entries = append(entries, entry)
	}
	b.entries = entries
	return nil
}

func decodeTarget(item json.RawMessage) (TargetInput, error) {
	var wire targetWire
	if err := json.Unmarshal(item, &wire); err != nil {
		return TargetInput{}, err
	}
	id, err := decodeIdentifier(wire.ID)
	if err != nil {
		return TargetInput{}, fmt.Errorf("id: %w", err)
	}
	countryID, err := decodeIdentifier(wire.Country)
	if err != nil {
		return TargetInput{}, fmt.Errorf("country: %w", err)
	}
	return TargetInput{
		ID:         id,
		Name:       wire.Name,
		Country:    CountryRef{ByName: strings.TrimSpace(wire.CountryName.Value), ByID: countryID},
		Notes:      wire.Notes,
		IsComplete: wire.IsComplete,
	}, nil
}

// decodeIdentifier accepts a string, a number, or an object carrying an id.
func decodeIdentifier(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	case '{':
		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", err
		}
		return decodeIdentifier(obj.ID)
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("unsupported identifier %s", raw)
		}
		return n.String(), nil
	}
}

// MissionDraft is the input for creating a mission with its targets.
type MissionDraft struct {
	CatID   *string     `json:"cat"`
	Targets TargetBatch `json:"targets"`
}

// MissionPatch is a partial mission update. Unset fields are left unchanged;
// a set Cat with a nil value unassigns the cat.
type MissionPatch struct {
	Cat        Optional[*string] `json:"cat"`
	IsComplete Optional[bool]    `json:"is_complete"`
	Targets    TargetBatch       `json:"targets"`
}

// MissionCompleted is the completion rule: a mission is complete when none of
// its targets is incomplete.
func MissionCompleted(targets []Target) bool {
	for _, t := range targets {
		if !t.IsComplete {
			return false
		}
	}
	return true
}

// NotesLocked reports whether a target's notes can no longer change.
func NotesLocked(target Target, mission Mission) bool {
	return target.IsComplete || mission.IsComplete
}
