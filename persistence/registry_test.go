package persistence

import (
	"testing"
	"time"

	"github.com/texelmux/texelmux/session"
)

func TestRegistryRecordAndList(t *testing.T) {
	withTempDataDir(t)

	reg, err := OpenRegistry()
	if err != nil {
		t.Fatalf("OpenRegistry: %v", err)
	}
	defer reg.Close()

	s := session.New("main")
	now := time.Unix(1700000000, 0)
	if err := reg.RecordCreated(s, now); err != nil {
		t.Fatalf("RecordCreated: %v", err)
	}

	entries, err := reg.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Name != "main" || entries[0].WindowCount != 1 {
		t.Fatalf("entry = %+v, unexpected", entries[0])
	}
}

func TestRegistryRecordAttachedUpdatesTimestamp(t *testing.T) {
	withTempDataDir(t)

	reg, err := OpenRegistry()
	if err != nil {
		t.Fatalf("OpenRegistry: %v", err)
	}
	defer reg.Close()

	s := session.New("main")
	created := time.Unix(1700000000, 0)
	reg.RecordCreated(s, created)

	s.AddWindow("logs")
	attached := time.Unix(1700000500, 0)
	if err := reg.RecordAttached(s, attached); err != nil {
		t.Fatalf("RecordAttached: %v", err)
	}

	entries, err := reg.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].WindowCount != 2 {
		t.Fatalf("WindowCount = %d, want 2", entries[0].WindowCount)
	}
	if !entries[0].LastAttachedAt.Equal(attached) {
		t.Fatalf("LastAttachedAt = %v, want %v", entries[0].LastAttachedAt, attached)
	}
}

func TestRegistryRemove(t *testing.T) {
	withTempDataDir(t)

	reg, err := OpenRegistry()
	if err != nil {
		t.Fatalf("OpenRegistry: %v", err)
	}
	defer reg.Close()

	s := session.New("main")
	reg.RecordCreated(s, time.Unix(1700000000, 0))
	if err := reg.Remove(s.ID.String()); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	entries, err := reg.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty registry after Remove, got %v", entries)
	}
}
