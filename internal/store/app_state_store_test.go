package store

import (
	"context"
	"path/filepath"
	"testing"

	"ragdash/internal/types"
)

func TestAppStateStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")
	repo, err := NewBboltRepository(path)
	if err != nil {
		t.Fatalf("NewBboltRepository: %v", err)
	}

	state, err := repo.AppState().Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if state.ActiveSessionID != "" || len(state.CompareEvaluationIDs) != 0 {
		t.Fatalf("expected empty state, got %+v", state)
	}

	state.ActiveSessionID = "s1"
	state.ActiveJobID = "j1"
	state.LastFolder = "/docs"
	state.CompareEvaluationIDs = []string{"e1", "e2"}
	if err := repo.AppState().Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	repo, err = NewBboltRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	loaded, err := repo.AppState().Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.ActiveSessionID != "s1" || loaded.ActiveJobID != "j1" || loaded.LastFolder != "/docs" {
		t.Fatalf("unexpected reload state %+v", loaded)
	}
	if len(loaded.CompareEvaluationIDs) != 2 || loaded.CompareEvaluationIDs[1] != "e2" {
		t.Fatalf("unexpected comparison ids %v", loaded.CompareEvaluationIDs)
	}
}

func TestAppStateStoreRejectsNil(t *testing.T) {
	repo, err := NewBboltRepository(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("NewBboltRepository: %v", err)
	}
	defer repo.Close()
	var state *types.AppState
	if err := repo.AppState().Save(context.Background(), state); err == nil {
		t.Fatalf("expected error for nil state")
	}
}

func TestNewBboltRepositoryRequiresPath(t *testing.T) {
	if _, err := NewBboltRepository("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
