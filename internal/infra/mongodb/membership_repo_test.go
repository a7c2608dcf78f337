//go:build integration

package mongodb

import (
	"context"
	"testing"
)

func TestMembershipRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewMembershipRepo(testDB)

	t.Run("should add idempotently and count tracked bots", func(t *testing.T) {
		cleanup(t)

		if err := repo.Add(ctx, "-100X", 42, "@alpha_bot"); err != nil {
			t.Fatalf("add: %v", err)
		}
		if err := repo.Add(ctx, "-100X", 42, "@alpha_bot"); err != nil {
			t.Fatalf("repeat add: %v", err)
		}
		if n, err := repo.Count(ctx, "-100X"); err != nil || n != 1 {
			t.Errorf("expected 1 tracked bot, got %d (err=%v)", n, err)
		}
	})

	t.Run("should remove a tracked id exactly once", func(t *testing.T) {
		cleanup(t)
		if err := repo.Add(ctx, "-100X", 42, "@alpha_bot"); err != nil {
			t.Fatalf("add: %v", err)
		}

		removed, err := repo.Remove(ctx, "-100X", 42)
		if err != nil {
			t.Fatalf("remove: %v", err)
		}
		if !removed {
			t.Error("expected removal of a tracked id to be reported")
		}
		removed, err = repo.Remove(ctx, "-100X", 42)
		if err != nil {
			t.Fatalf("second remove: %v", err)
		}
		if removed {
			t.Error("second removal of the same id reported as removed")
		}
	})

	t.Run("should not report removal when the channel tracks other bots only", func(t *testing.T) {
		cleanup(t)
		// The membership document exists but holds a different id. The
		// bookkeeping write alone must not count as a removal.
		if err := repo.Add(ctx, "-100X", 7, "@other_bot"); err != nil {
			t.Fatalf("add: %v", err)
		}

		removed, err := repo.Remove(ctx, "-100X", 42)
		if err != nil {
			t.Fatalf("remove: %v", err)
		}
		if removed {
			t.Error("removal reported for an id that was never tracked")
		}
		if n, _ := repo.Count(ctx, "-100X"); n != 1 {
			t.Errorf("tracked set changed: %d", n)
		}
	})
}
