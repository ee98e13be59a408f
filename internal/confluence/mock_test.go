package confluence

import (
	"context"
	"testing"
)

func TestMockClientTitleUniqueness(t *testing.T) {
	m := NewMockClient()
	m.AddSpace("1", "ENG", "Engineering")
	ctx := context.Background()

	if _, err := m.CreatePage(ctx, CreatePageInput{SpaceID: "1", Title: "Plan", Body: "<p/>"}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := m.CreatePage(ctx, CreatePageInput{SpaceID: "1", Title: " Plan ", Body: "<p/>"})
	if !IsKind(err, KindConflict) {
		t.Fatalf("Expected Conflict on duplicate title, got %v", err)
	}
	if len(m.CreateCalls) != 1 {
		t.Errorf("Expected 1 recorded create, got %d", len(m.CreateCalls))
	}
}

func TestMockClientVersionCheck(t *testing.T) {
	m := NewMockClient()
	m.AddPage("10", "1", "Home", "<p>v1</p>", 1)
	ctx := context.Background()

	p, err := m.UpdatePage(ctx, UpdatePageInput{ID: "10", Body: "<p>v2</p>", ExpectedVersion: 1})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if p.VersionNumber() != 2 {
		t.Errorf("Expected version 2, got %d", p.VersionNumber())
	}

	_, err = m.UpdatePage(ctx, UpdatePageInput{ID: "10", Body: "<p>again</p>", ExpectedVersion: 1})
	if !IsKind(err, KindVersionConflict) {
		t.Fatalf("Expected VersionConflict, got %v", err)
	}
	got, _ := m.GetPage(ctx, "10", true)
	if got.StorageBody() != "<p>v2</p>" {
		t.Errorf("stale update must not change the body, got %q", got.StorageBody())
	}
}

func TestMockClientPaging(t *testing.T) {
	m := NewMockClient()
	for _, id := range []string{"1", "2", "3"} {
		m.AddSpace(id, "K"+id, "Space "+id)
	}
	ctx := context.Background()

	first, err := m.ListSpaces(ctx, ListSpacesOptions{Limit: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(first.Results) != 2 || first.Cursor == "" {
		t.Fatalf("Expected 2 results and a cursor, got %d/%q", len(first.Results), first.Cursor)
	}
	second, err := m.ListSpaces(ctx, ListSpacesOptions{Limit: 2, Cursor: first.Cursor})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(second.Results) != 1 || second.Cursor != "" {
		t.Errorf("Expected final page of 1 without cursor, got %d/%q", len(second.Results), second.Cursor)
	}
}
