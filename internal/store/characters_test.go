package store

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"storyd/pkg/types"
)

func TestCharactersCreateDefaultsAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "characters.json")
	s, err := OpenCharacters(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	c, err := s.Create(types.CharacterCreate{Name: "Mira", Description: "a cartographer"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == uuid.Nil {
		t.Fatalf("expected a generated id")
	}
	if c.Status != types.CharacterStatusDefault {
		t.Fatalf("expected default status, got %q", c.Status)
	}

	// A fresh store over the same file sees the record.
	s2, err := OpenCharacters(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := s2.Character(c.ID)
	if !ok {
		t.Fatalf("character not persisted")
	}
	if got != c {
		t.Fatalf("got %+v want %+v", got, c)
	}
}

func TestCharactersUpdatePartial(t *testing.T) {
	s, err := OpenCharacters("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	c, err := s.Create(types.CharacterCreate{Name: "Mira", Description: "a cartographer", Status: "Alive"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	status := "Missing"
	upd, found, err := s.Update(c.ID, types.CharacterUpdate{Status: &status})
	if err != nil || !found {
		t.Fatalf("update: found=%v err=%v", found, err)
	}
	if upd.Status != "Missing" {
		t.Fatalf("status not updated: %+v", upd)
	}
	if upd.Name != "Mira" || upd.Description != "a cartographer" {
		t.Fatalf("nil fields must stay untouched: %+v", upd)
	}

	if _, found, err := s.Update(uuid.New(), types.CharacterUpdate{Status: &status}); err != nil || found {
		t.Fatalf("unknown id: found=%v err=%v", found, err)
	}
}

func TestCharactersDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "characters.json")
	s, err := OpenCharacters(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	c, err := s.Create(types.CharacterCreate{Name: "Bo"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	found, err := s.Delete(c.ID)
	if err != nil || !found {
		t.Fatalf("delete: found=%v err=%v", found, err)
	}
	if found, _ := s.Delete(c.ID); found {
		t.Fatalf("second delete must report not found")
	}
	if got := s.List(); len(got) != 0 {
		t.Fatalf("expected empty list, got %+v", got)
	}

	s2, err := OpenCharacters(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := s2.List(); len(got) != 0 {
		t.Fatalf("deletion not persisted, got %+v", got)
	}
}
