package automation

import (
	"context"
	"errors"
	"testing"
)

func TestSQLiteRepository_SaveAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	m := &StoredModel{Name: "lighting.rules", Content: lightingModel, Checksum: Checksum([]byte(lightingModel))}
	created, err := repo.Save(ctx, m)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !created {
		t.Error("first Save() created = false")
	}
	if m.CreatedAt.IsZero() || m.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}

	got, err := repo.Get(ctx, "lighting.rules")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Content != lightingModel || got.Checksum != m.Checksum {
		t.Errorf("Get() = %+v", got)
	}

	m.Content = "rules: []"
	m.Checksum = Checksum([]byte(m.Content))
	created, err = repo.Save(ctx, m)
	if err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	if created {
		t.Error("update reported created = true")
	}
	got, _ = repo.Get(ctx, "lighting.rules")
	if got.Content != "rules: []" {
		t.Errorf("content = %q after update", got.Content)
	}
}

func TestSQLiteRepository_GetNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	if _, err := repo.Get(context.Background(), "missing.rules"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Get() error = %v, want ErrModelNotFound", err)
	}
}

func TestSQLiteRepository_ListOrdered(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	for _, name := range []string{"c.rules", "a.rules", "b.rules"} {
		if _, err := repo.Save(ctx, &StoredModel{Name: name, Content: "rules: []", Checksum: "x"}); err != nil {
			t.Fatalf("Save(%s) error = %v", name, err)
		}
	}

	models, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(models) != 3 {
		t.Fatalf("List() returned %d models, want 3", len(models))
	}
	for i, want := range []string{"a.rules", "b.rules", "c.rules"} {
		if models[i].Name != want {
			t.Errorf("models[%d] = %q, want %q", i, models[i].Name, want)
		}
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if _, err := repo.Save(ctx, &StoredModel{Name: "a.rules", Content: "rules: []", Checksum: "x"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Delete(ctx, "a.rules"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "a.rules"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("second Delete() error = %v, want ErrModelNotFound", err)
	}
}

func TestIsUniqueConstraintError(t *testing.T) {
	if isUniqueConstraintError(nil) {
		t.Error("nil reported as unique constraint error")
	}
	if !isUniqueConstraintError(errors.New("UNIQUE constraint failed: rule_models.name")) {
		t.Error("sqlite message not recognised")
	}
}
