package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestOptionalDistinguishesAbsentNullAndValue(t *testing.T) {
	var patch MissionPatch
	if err := json.Unmarshal([]byte(`{"is_complete":false}`), &patch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if patch.Cat.Set || !patch.IsComplete.Set || patch.IsComplete.Null || patch.IsComplete.Value {
		t.Fatalf("unexpected patch %+v", patch)
	}
	if patch.Targets.Present() {
		t.Fatalf("absent targets must not be present")
	}

	patch = MissionPatch{}
	if err := json.Unmarshal([]byte(`{"cat":null,"targets":null}`), &patch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !patch.Cat.Set || patch.Cat.Value != nil || patch.Targets.Present() {
		t.Fatalf("expected null cat and absent targets, got %+v", patch)
	}

	out, err := json.Marshal(struct {
		A Optional[int] `json:"a"`
		B Optional[int] `json:"b"`
	}{A: Some(3)})
	if err != nil || string(out) != `{"a":3,"b":null}` {
		t.Fatalf("unexpected marshal %s %v", out, err)
	}
}

func TestTargetBatchDecoding(t *testing.T) {
	var draft MissionDraft
	body := `{"cat":"c1","targets":[
		{"name":"T1","country_name":" USA "},
		{"id":7,"country":{"id":"k1"},"notes":"n","is_complete":true},
		{"id":"t3","country":"k2","notes":null}
	]}`
	if err := json.Unmarshal([]byte(body), &draft); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if draft.CatID == nil || *draft.CatID != "c1" {
		t.Fatalf("unexpected cat %v", draft.CatID)
	}
	if err := draft.Targets.Err(); err != nil {
		t.Fatalf("unexpected batch error %v", err)
	}
	entries := draft.Targets.Entries()
	if draft.Targets.Len() != 3 || len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Country != CountryByName("USA") || entries[0].ID != "" || !entries[0].Name.Set {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].ID != "7" || entries[1].Country != CountryByID("k1") || !entries[1].ChangesNotes() || !entries[1].IsComplete.Value {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
	if entries[2].Country.ByID != "k2" || !entries[2].Notes.Null || entries[2].Name.Set {
		t.Fatalf("unexpected third entry %+v", entries[2])
	}
	entries[0].ID = "mutated"
	if draft.Targets.Entries()[0].ID != "" {
		t.Fatalf("Entries must return a copy")
	}
}

func TestTargetBatchShapeErrors(t *testing.T) {
	cases := []struct {
		body string
		want *Error
	}{
		{`{"targets":"nope"}`, ErrInvalidTargetsShape},
		{`{"targets":{"name":"x"}}`, ErrInvalidTargetsShape},
		{`{"targets":[1,2]}`, ErrInvalidTargetsShape},
		{`{"targets":[{"name":"a"},"b"]}`, ErrInvalidTargetsShape},
		{`{"targets":[{"id":true}]}`, ErrInvalidField},
		{`{"targets":[{"name":5}]}`, ErrInvalidField},
	}
	for _, tc := range cases {
		var draft MissionDraft
		if err := json.Unmarshal([]byte(tc.body), &draft); err != nil {
			t.Fatalf("decoding %s must not fail: %v", tc.body, err)
		}
		if !draft.Targets.Present() {
			t.Fatalf("%s: expected present batch", tc.body)
		}
		if err := draft.Targets.Err(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %s, got %v", tc.body, tc.want.Kind, err)
		}
		if draft.Targets.Len() != 0 {
			t.Fatalf("%s: shape errors must not yield entries", tc.body)
		}
	}
}

func TestCompletionAndNotesLock(t *testing.T) {
	if !MissionCompleted(nil) {
		t.Fatalf("no targets means nothing incomplete")
	}
	targets := []Target{{IsComplete: true}, {IsComplete: false}}
	if MissionCompleted(targets) {
		t.Fatalf("expected incomplete mission")
	}
	targets[1].IsComplete = true
	if !MissionCompleted(targets) {
		t.Fatalf("expected complete mission")
	}

	if NotesLocked(Target{}, Mission{}) {
		t.Fatalf("active target on active mission must be editable")
	}
	if !NotesLocked(Target{IsComplete: true}, Mission{}) || !NotesLocked(Target{}, Mission{IsComplete: true}) {
		t.Fatalf("completed target or mission must lock notes")
	}
}

func TestMissionAssignment(t *testing.T) {
	empty := ""
	cat := "c1"
	if (Mission{}).HasCat() || (Mission{CatID: &empty}).HasCat() {
		t.Fatalf("nil or empty cat id means unassigned")
	}
	m := Mission{CatID: &cat}
	if !m.AssignedTo("c1") || m.AssignedTo("c2") || !m.Active() {
		t.Fatalf("unexpected assignment state")
	}
	if !(CountryRef{}).IsZero() || CountryByName("x").IsZero() {
		t.Fatalf("unexpected CountryRef zero state")
	}
}
