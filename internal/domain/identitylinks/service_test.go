package identitylinks

import (
	"context"
	"errors"
	"testing"
	"time"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

var errRepoNotFound = errors.New("repo: not found")

type testRepo struct {
	byID map[string]Link
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Link{}}
}

func (r *testRepo) Create(ctx context.Context, l Link) error {
	for _, have := range r.byID {
		if have.AnimalID == l.AnimalID {
			return errors.New("repo: animal already linked")
		}
	}
	r.byID[l.ID] = l
	return nil
}

func (r *testRepo) Update(ctx context.Context, l Link) error {
	if _, ok := r.byID[l.ID]; !ok {
		return errRepoNotFound
	}
	r.byID[l.ID] = l
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Link, error) {
	l, ok := r.byID[id]
	if !ok {
		return Link{}, errRepoNotFound
	}
	return l, nil
}

func (r *testRepo) GetByAnimal(ctx context.Context, animalID string) (Link, error) {
	for _, l := range r.byID {
		if l.AnimalID == animalID {
			return l, nil
		}
	}
	return Link{}, errRepoNotFound
}

func (r *testRepo) ListByIdentity(ctx context.Context, identityID string) ([]Link, error) {
	out := make([]Link, 0)
	for _, l := range r.byID {
		if l.IdentityID == identityID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return errRepoNotFound
	}
	delete(r.byID, id)
	return nil
}

// -------------------------
// Tests
// -------------------------

func TestService_Link_OneSlotPerAnimal(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }

	l1, err := svc.Link(context.Background(), LinkInput{
		AnimalID:   "animal-1",
		IdentityID: "identity-a",
		Confidence: 0.95,
		MatchedOn:  []string{"MICROCHIP"},
	})
	if err != nil {
		t.Fatalf("Link error: %v", err)
	}

	// Re-link explícito a otra identidad reusa el mismo slot.
	l2, err := svc.Link(context.Background(), LinkInput{
		AnimalID:   "animal-1",
		IdentityID: "identity-b",
		Confidence: 1.0,
	})
	if err != nil {
		t.Fatalf("re-link error: %v", err)
	}
	if l2.ID != l1.ID {
		t.Fatalf("expected same slot, got %s vs %s", l2.ID, l1.ID)
	}
	if l2.IdentityID != "identity-b" {
		t.Fatalf("expected identity-b, got %s", l2.IdentityID)
	}
	if len(repo.byID) != 1 {
		t.Fatalf("expected exactly 1 link row, got %d", len(repo.byID))
	}
}

func TestService_Link_SameIdentityRefreshKeepsConfirmation(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	now1 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now1 }

	l, _ := svc.Link(context.Background(), LinkInput{
		AnimalID: "animal-1", IdentityID: "identity-a", Confidence: 0.9,
	})
	if _, err := svc.Confirm(context.Background(), l.ID, "user-1"); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}

	// Mismo destino otra vez: refresca evidencia, la confirmación queda.
	refreshed, err := svc.Link(context.Background(), LinkInput{
		AnimalID: "animal-1", IdentityID: "identity-a", Confidence: 0.99,
		MatchedOn: []string{"MICROCHIP", "REGISTRY", "MICROCHIP"},
	})
	if err != nil {
		t.Fatalf("refresh error: %v", err)
	}
	if !refreshed.Confirmed() {
		t.Fatalf("refresh must not drop confirmation")
	}
	if refreshed.Confidence != 0.99 {
		t.Fatalf("expected refreshed confidence, got %v", refreshed.Confidence)
	}
	if len(refreshed.MatchedOn) != 2 {
		t.Fatalf("expected deduped MatchedOn, got %v", refreshed.MatchedOn)
	}
}

func TestService_Link_AutoMatchNeverOverridesConfirmed(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }

	l, _ := svc.Link(context.Background(), LinkInput{
		AnimalID: "animal-1", IdentityID: "identity-a", Confidence: 1.0,
	})
	_, _ = svc.Confirm(context.Background(), l.ID, "user-1")

	_, err := svc.Link(context.Background(), LinkInput{
		AnimalID: "animal-1", IdentityID: "identity-b", Confidence: 0.95,
		AutoMatched: true,
	})
	if err != ErrAlreadyLinked {
		t.Fatalf("expected ErrAlreadyLinked, got %v", err)
	}

	// Un re-link explícito sí puede pisar, y limpia la confirmación vieja.
	moved, err := svc.Link(context.Background(), LinkInput{
		AnimalID: "animal-1", IdentityID: "identity-b", Confidence: 1.0,
	})
	if err != nil {
		t.Fatalf("explicit re-link error: %v", err)
	}
	if moved.Confirmed() {
		t.Fatalf("confirmation must not survive a re-link to another identity")
	}
}

func TestService_Confirm_Idempotent(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	now1 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now1 }

	l, _ := svc.Link(context.Background(), LinkInput{
		AnimalID: "animal-1", IdentityID: "identity-a", Confidence: 0.95, AutoMatched: true,
	})

	c1, err := svc.Confirm(context.Background(), l.ID, "user-1")
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}

	svc.now = func() time.Time { return now1.Add(time.Hour) }
	c2, err := svc.Confirm(context.Background(), l.ID, "user-2")
	if err != nil {
		t.Fatalf("Confirm #2 error: %v", err)
	}
	if c2.ConfirmedBy != c1.ConfirmedBy || !c2.ConfirmedAt.Equal(*c1.ConfirmedAt) {
		t.Fatalf("re-confirm must keep the original confirmation")
	}
}
