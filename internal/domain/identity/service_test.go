package identity

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
	identities  map[string]GlobalIdentity
	identifiers map[string]Identifier

	failCreateIdentifier error
}

func newTestRepo() *testRepo {
	return &testRepo{
		identities:  map[string]GlobalIdentity{},
		identifiers: map[string]Identifier{},
	}
}

func (r *testRepo) CreateIdentity(ctx context.Context, gi GlobalIdentity) error {
	if gi.ID == "" {
		return errors.New("repo: id required")
	}
	r.identities[gi.ID] = gi
	return nil
}

func (r *testRepo) UpdateIdentity(ctx context.Context, gi GlobalIdentity) error {
	if _, ok := r.identities[gi.ID]; !ok {
		return errRepoNotFound
	}
	r.identities[gi.ID] = gi
	return nil
}

func (r *testRepo) GetIdentity(ctx context.Context, id string) (GlobalIdentity, error) {
	gi, ok := r.identities[id]
	if !ok {
		return GlobalIdentity{}, errRepoNotFound
	}
	return gi, nil
}

func (r *testRepo) GetIdentityByGAID(ctx context.Context, gaid string) (GlobalIdentity, error) {
	for _, gi := range r.identities {
		if gi.GAID == gaid {
			return gi, nil
		}
	}
	return GlobalIdentity{}, errRepoNotFound
}

func (r *testRepo) CreateIdentifier(ctx context.Context, id Identifier) error {
	if r.failCreateIdentifier != nil {
		return r.failCreateIdentifier
	}
	r.identifiers[id.ID] = id
	return nil
}

func (r *testRepo) UpdateIdentifier(ctx context.Context, id Identifier) error {
	if _, ok := r.identifiers[id.ID]; !ok {
		return errRepoNotFound
	}
	r.identifiers[id.ID] = id
	return nil
}

func (r *testRepo) GetIdentifier(ctx context.Context, id string) (Identifier, error) {
	out, ok := r.identifiers[id]
	if !ok {
		return Identifier{}, errRepoNotFound
	}
	return out, nil
}

func (r *testRepo) GetIdentifierByValue(ctx context.Context, t IdentifierType, normalized string) (Identifier, error) {
	for _, id := range r.identifiers {
		if id.Type == t && id.NormalizedValue == normalized {
			return id, nil
		}
	}
	return Identifier{}, errRepoNotFound
}

func (r *testRepo) ListIdentifiersByIdentity(ctx context.Context, identityID string) ([]Identifier, error) {
	out := make([]Identifier, 0)
	for _, id := range r.identifiers {
		if id.IdentityID == identityID {
			out = append(out, id)
		}
	}
	return out, nil
}

// -------------------------
// Tests
// -------------------------

func TestService_ResolveOrCreate_CreatesNewIdentity(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	res, err := svc.ResolveOrCreate(context.Background(), "tenant-a", []CandidateIdentifier{
		{Type: TypeMicrochip, Value: "985-112-000123456", SelfReported: true},
	}, DeclaredAttributes{Species: "dog", Sex: "female", Name: "Nova"})
	if err != nil {
		t.Fatalf("ResolveOrCreate error: %v", err)
	}
	if !res.Created {
		t.Fatalf("expected Created=true for first resolve")
	}
	if res.Identity.GAID == "" {
		t.Fatalf("expected a GAID to be assigned")
	}
	if len(res.MatchedOn) != 0 {
		t.Fatalf("expected no matches on create, got %v", res.MatchedOn)
	}
	// chip auto-reportado: 0.95 * 1.0 >= umbral de auto-match
	if !res.AutoMatch {
		t.Fatalf("expected AutoMatch with self-reported microchip, confidence=%v", res.Confidence)
	}
}

func TestService_ResolveOrCreate_MatchesExistingByMicrochip(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

	first, err := svc.ResolveOrCreate(context.Background(), "tenant-a", []CandidateIdentifier{
		{Type: TypeMicrochip, Value: "985112000123456", SelfReported: true},
	}, DeclaredAttributes{Species: "dog"})
	if err != nil {
		t.Fatalf("first resolve error: %v", err)
	}

	// Otro tenant, mismo chip con otro formato.
	second, err := svc.ResolveOrCreate(context.Background(), "tenant-b", []CandidateIdentifier{
		{Type: TypeMicrochip, Value: "985-112-000123456", SelfReported: true},
	}, DeclaredAttributes{Species: "dog"})
	if err != nil {
		t.Fatalf("second resolve error: %v", err)
	}

	if second.Created {
		t.Fatalf("expected match, not a new identity")
	}
	if second.Identity.ID != first.Identity.ID {
		t.Fatalf("expected same identity, got %s vs %s", second.Identity.ID, first.Identity.ID)
	}
	if len(second.MatchedOn) != 1 || second.MatchedOn[0] != TypeMicrochip {
		t.Fatalf("expected MatchedOn=[MICROCHIP], got %v", second.MatchedOn)
	}
}

func TestService_ResolveOrCreate_RegistryAloneIsNotAutoMatch(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

	if _, err := svc.ResolveOrCreate(context.Background(), "tenant-a", []CandidateIdentifier{
		{Type: TypeRegistry, Value: "FCI LOE-123456", SelfReported: true},
	}, DeclaredAttributes{}); err != nil {
		t.Fatalf("seed error: %v", err)
	}

	res, err := svc.ResolveOrCreate(context.Background(), "tenant-b", []CandidateIdentifier{
		{Type: TypeRegistry, Value: "fci loe-123456", SelfReported: true},
	}, DeclaredAttributes{})
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if res.Created {
		t.Fatalf("expected registry match")
	}
	// Peso de registry (0.85) bajo el umbral: requiere confirmación humana.
	if res.AutoMatch {
		t.Fatalf("registry alone must not auto-match, confidence=%v", res.Confidence)
	}
}

func TestService_ResolveOrCreate_ProvenanceWriteFailurePropagates(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

	if _, err := svc.ResolveOrCreate(context.Background(), "tenant-a", []CandidateIdentifier{
		{Type: TypeMicrochip, Value: "985112000123456", SelfReported: true},
	}, DeclaredAttributes{Species: "dog"}); err != nil {
		t.Fatalf("seed error: %v", err)
	}

	errWrite := errors.New("repo: write failed")
	repo.failCreateIdentifier = errWrite

	// El registry nuevo no se pudo persistir: el resolve falla en vez de
	// perder el identificador en silencio.
	_, err := svc.ResolveOrCreate(context.Background(), "tenant-b", []CandidateIdentifier{
		{Type: TypeMicrochip, Value: "985-112-000123456", SelfReported: true},
		{Type: TypeRegistry, Value: "FCI LOE-777", SelfReported: true},
	}, DeclaredAttributes{})
	if !errors.Is(err, errWrite) {
		t.Fatalf("expected the repo error to propagate, got %v", err)
	}
}

func TestService_ResolveOrCreate_ConflictAcrossTypes(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

	a, err := svc.ResolveOrCreate(context.Background(), "tenant-a", []CandidateIdentifier{
		{Type: TypeMicrochip, Value: "985112000111111", SelfReported: true},
	}, DeclaredAttributes{})
	if err != nil {
		t.Fatalf("seed a error: %v", err)
	}
	b, err := svc.ResolveOrCreate(context.Background(), "tenant-b", []CandidateIdentifier{
		{Type: TypeRegistry, Value: "AKC WS-999", SelfReported: true},
	}, DeclaredAttributes{})
	if err != nil {
		t.Fatalf("seed b error: %v", err)
	}

	// Chip de A + registry de B: dos identidades distintas, nunca se fusiona.
	_, err = svc.ResolveOrCreate(context.Background(), "tenant-c", []CandidateIdentifier{
		{Type: TypeMicrochip, Value: "985112000111111", SelfReported: true},
		{Type: TypeRegistry, Value: "AKC WS-999", SelfReported: true},
	}, DeclaredAttributes{})

	var conflict *IdentifierConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected IdentifierConflictError, got %v", err)
	}
	if conflict.IdentityByType[TypeMicrochip] != a.Identity.ID {
		t.Fatalf("expected microchip to map to identity a")
	}
	if conflict.IdentityByType[TypeRegistry] != b.Identity.ID {
		t.Fatalf("expected registry to map to identity b")
	}
}

func TestService_AddIdentifier_IdempotentAndConflicting(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

	a, _ := svc.ResolveOrCreate(context.Background(), "tenant-a", []CandidateIdentifier{
		{Type: TypeMicrochip, Value: "985112000222222", SelfReported: true},
	}, DeclaredAttributes{})
	b, _ := svc.ResolveOrCreate(context.Background(), "tenant-b", []CandidateIdentifier{
		{Type: TypeMicrochip, Value: "985112000333333", SelfReported: true},
	}, DeclaredAttributes{})

	// Mismo valor sobre la misma identidad: idempotente.
	id1, err := svc.AddIdentifier(context.Background(), a.Identity.ID, "tenant-a", CandidateIdentifier{
		Type: TypeMicrochip, Value: "985-112-000222222", SelfReported: true,
	})
	if err != nil {
		t.Fatalf("AddIdentifier idempotent error: %v", err)
	}
	id2, err := svc.AddIdentifier(context.Background(), a.Identity.ID, "tenant-a", CandidateIdentifier{
		Type: TypeMicrochip, Value: "985112000222222", SelfReported: true,
	})
	if err != nil || id2.ID != id1.ID {
		t.Fatalf("expected same identifier back, got %v / %v", id2.ID, err)
	}

	// Mismo valor sobre otra identidad: conflicto, nunca re-apuntar.
	_, err = svc.AddIdentifier(context.Background(), b.Identity.ID, "tenant-b", CandidateIdentifier{
		Type: TypeMicrochip, Value: "985112000222222", SelfReported: true,
	})
	var conflict *IdentifierConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected IdentifierConflictError, got %v", err)
	}
}

func TestService_VerifyIdentifier_RaisesConfidence(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	res, _ := svc.ResolveOrCreate(context.Background(), "tenant-a", []CandidateIdentifier{
		{Type: TypeTattoo, Value: "ab 123", SelfReported: false},
	}, DeclaredAttributes{})

	ids, _ := svc.ListIdentifiers(context.Background(), res.Identity.ID)
	if len(ids) != 1 {
		t.Fatalf("expected 1 identifier, got %d", len(ids))
	}
	if ids[0].Confidence != inferredConfidence {
		t.Fatalf("expected inferred confidence %v, got %v", inferredConfidence, ids[0].Confidence)
	}

	verified, err := svc.VerifyIdentifier(context.Background(), ids[0].ID, "user-1")
	if err != nil {
		t.Fatalf("VerifyIdentifier error: %v", err)
	}
	if verified.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0 after verify, got %v", verified.Confidence)
	}
	if verified.VerifiedBy != "user-1" || verified.VerifiedAt == nil {
		t.Fatalf("expected verifier recorded")
	}
}

func TestService_SetParent_RejectsCycles(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

	mk := func(chip string) GlobalIdentity {
		res, err := svc.ResolveOrCreate(context.Background(), "tenant-a", []CandidateIdentifier{
			{Type: TypeMicrochip, Value: chip, SelfReported: true},
		}, DeclaredAttributes{})
		if err != nil {
			t.Fatalf("seed error: %v", err)
		}
		return res.Identity
	}

	child := mk("985112000444441")
	dam := mk("985112000444442")
	grandDam := mk("985112000444443")

	if _, err := svc.SetParent(context.Background(), child.ID, RoleDam, dam.ID); err != nil {
		t.Fatalf("SetParent child<-dam error: %v", err)
	}
	if _, err := svc.SetParent(context.Background(), dam.ID, RoleDam, grandDam.ID); err != nil {
		t.Fatalf("SetParent dam<-grandDam error: %v", err)
	}

	// Cerrar el ciclo: la abuela no puede tener al nieto de madre.
	if _, err := svc.SetParent(context.Background(), grandDam.ID, RoleDam, child.ID); err != ErrLineageCycle {
		t.Fatalf("expected ErrLineageCycle, got %v", err)
	}

	// Self-parent.
	if _, err := svc.SetParent(context.Background(), child.ID, RoleSire, child.ID); err != ErrLineageCycle {
		t.Fatalf("expected ErrLineageCycle for self-parent, got %v", err)
	}
}
