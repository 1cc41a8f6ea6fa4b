package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"breeder-exchange/internal/domain/animals"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

var errRepoNotFound = errors.New("repo: not found")

type testRepo struct {
	grants map[string]Grant
	codes  map[string]ShareCode
}

func newTestRepo() *testRepo {
	return &testRepo{
		grants: map[string]Grant{},
		codes:  map[string]ShareCode{},
	}
}

func (r *testRepo) CreateGrant(ctx context.Context, g Grant) error {
	for _, have := range r.grants {
		if have.AnimalID == g.AnimalID && have.AccessorTenantID == g.AccessorTenantID {
			return ErrDuplicateGrant
		}
	}
	r.grants[g.ID] = g
	return nil
}

func (r *testRepo) UpdateGrant(ctx context.Context, g Grant) error {
	if _, ok := r.grants[g.ID]; !ok {
		return errRepoNotFound
	}
	r.grants[g.ID] = g
	return nil
}

func (r *testRepo) GetGrant(ctx context.Context, id string) (Grant, error) {
	g, ok := r.grants[id]
	if !ok {
		return Grant{}, errRepoNotFound
	}
	return g, nil
}

func (r *testRepo) GetGrantByAnimalAccessor(ctx context.Context, animalID, accessorTenantID string) (Grant, error) {
	for _, g := range r.grants {
		if g.AnimalID == animalID && g.AccessorTenantID == accessorTenantID {
			return g, nil
		}
	}
	return Grant{}, errRepoNotFound
}

func (r *testRepo) ListGrantsByAnimal(ctx context.Context, animalID string) ([]Grant, error) {
	out := make([]Grant, 0)
	for _, g := range r.grants {
		if g.AnimalID == animalID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *testRepo) ListGrantsByAccessor(ctx context.Context, accessorTenantID string) ([]Grant, error) {
	out := make([]Grant, 0)
	for _, g := range r.grants {
		if g.AccessorTenantID == accessorTenantID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *testRepo) CreateShareCode(ctx context.Context, c ShareCode) error {
	r.codes[c.ID] = c
	return nil
}

func (r *testRepo) UpdateShareCode(ctx context.Context, c ShareCode) error {
	if _, ok := r.codes[c.ID]; !ok {
		return errRepoNotFound
	}
	r.codes[c.ID] = c
	return nil
}

func (r *testRepo) GetShareCode(ctx context.Context, id string) (ShareCode, error) {
	c, ok := r.codes[id]
	if !ok {
		return ShareCode{}, errRepoNotFound
	}
	return c, nil
}

func (r *testRepo) GetShareCodeByCode(ctx context.Context, code string) (ShareCode, error) {
	for _, c := range r.codes {
		if c.Code == code {
			return c, nil
		}
	}
	return ShareCode{}, errRepoNotFound
}

func (r *testRepo) ListShareCodesByOwner(ctx context.Context, ownerTenantID string) ([]ShareCode, error) {
	out := make([]ShareCode, 0)
	for _, c := range r.codes {
		if c.OwnerTenantID == ownerTenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *testRepo) ConsumeAndApplyGrants(ctx context.Context, id string, now time.Time, grants []Grant) (ShareCode, error) {
	c, ok := r.codes[id]
	if !ok {
		return ShareCode{}, errRepoNotFound
	}
	if c.Status != CodeActive {
		return ShareCode{}, ErrCodeExhausted
	}
	if c.MaxUses > 0 && c.UsesCount >= c.MaxUses {
		return ShareCode{}, ErrCodeExhausted
	}
	for _, g := range grants {
		for id, have := range r.grants {
			if have.AnimalID == g.AnimalID && have.AccessorTenantID == g.AccessorTenantID && id != g.ID {
				delete(r.grants, id)
			}
		}
		r.grants[g.ID] = g
	}
	c.UsesCount++
	if c.MaxUses > 0 && c.UsesCount >= c.MaxUses {
		c.Status = CodeMaxUsesReached
	}
	c.UpdatedAt = now
	r.codes[id] = c
	return c, nil
}

func (r *testRepo) ExpireGrantsBefore(ctx context.Context, now time.Time) (int, error) {
	n := 0
	for id, g := range r.grants {
		if g.Status == StatusActive && g.ExpiresAt != nil && !now.Before(*g.ExpiresAt) {
			g.Status = StatusExpired
			g.UpdatedAt = now
			r.grants[id] = g
			n++
		}
	}
	return n, nil
}

func (r *testRepo) ExpireShareCodesBefore(ctx context.Context, now time.Time) (int, error) {
	n := 0
	for id, c := range r.codes {
		if c.Status == CodeActive && c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
			c.Status = CodeExpired
			c.UpdatedAt = now
			r.codes[id] = c
			n++
		}
	}
	return n, nil
}

// -------------------------
// Fixture
// -------------------------

type fakeAnimals struct {
	byID map[string]animals.Animal
}

func (f *fakeAnimals) GetByID(ctx context.Context, id string) (animals.Animal, error) {
	a, ok := f.byID[id]
	if !ok {
		return animals.Animal{}, errRepoNotFound
	}
	return a, nil
}

// flakyAnimals falla el lookup número failOn y delega el resto.
type flakyAnimals struct {
	inner  *fakeAnimals
	calls  int
	failOn int
}

func (f *flakyAnimals) GetByID(ctx context.Context, id string) (animals.Animal, error) {
	f.calls++
	if f.calls == f.failOn {
		return animals.Animal{}, errRepoNotFound
	}
	return f.inner.GetByID(ctx, id)
}

type fixture struct {
	svc  *Service
	repo *testRepo
	an   *fakeAnimals
	now  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	an := &fakeAnimals{
		byID: map[string]animals.Animal{
			"an-1": {ID: "an-1", TenantID: "tenant-a", Name: "Luna", Species: "dog", Sex: "female"},
			"an-2": {ID: "an-2", TenantID: "tenant-a", Name: "Max", Species: "dog", Sex: "male"},
		},
	}
	repo := newTestRepo()
	svc := NewService(repo, an)
	svc.now = func() time.Time { return now }

	return &fixture{svc: svc, repo: repo, an: an, now: now}
}

func (f *fixture) grant(t *testing.T, animalID string, tier Tier) Grant {
	t.Helper()
	g, err := f.svc.GrantAccess(context.Background(), GrantInput{
		OwnerTenantID:    "tenant-a",
		AccessorTenantID: "tenant-b",
		AnimalID:         animalID,
		Tier:             tier,
		Source:           SourceInquiry,
	})
	if err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}
	return g
}

// -------------------------
// Grants
// -------------------------

func TestGrantAccessCreates(t *testing.T) {
	f := newFixture(t)

	g := f.grant(t, "an-1", TierGenetics)

	if g.Status != StatusActive || g.Tier != TierGenetics {
		t.Fatalf("grant = %+v", g)
	}
	if g.AnimalName != "Luna" || g.AnimalSpecies != "dog" {
		t.Fatalf("snapshot = (%s, %s), want (Luna, dog)", g.AnimalName, g.AnimalSpecies)
	}
}

func TestGrantAccessUpsertCombinesTiers(t *testing.T) {
	f := newFixture(t)

	first := f.grant(t, "an-1", TierGenetics)
	second := f.grant(t, "an-1", TierLineage)

	if second.ID != first.ID {
		t.Fatalf("re-otorgar debe actualizar la misma fila")
	}
	if second.Tier != TierFull {
		t.Fatalf("tier = %s, want FULL (GENETICS + LINEAGE)", second.Tier)
	}
	if len(f.repo.grants) != 1 {
		t.Fatalf("grants = %d, want 1", len(f.repo.grants))
	}

	// Nunca se degrada en silencio.
	third := f.grant(t, "an-1", TierBasic)
	if third.Tier != TierFull {
		t.Fatalf("tier = %s, want FULL (no degradar)", third.Tier)
	}
}

func TestGrantAccessReactivatesRevoked(t *testing.T) {
	f := newFixture(t)

	g := f.grant(t, "an-1", TierFull)
	if _, err := f.svc.RevokeAccess(context.Background(), g.ID, "tenant-a", "user-a"); err != nil {
		t.Fatalf("RevokeAccess: %v", err)
	}

	again := f.grant(t, "an-1", TierBasic)
	if again.ID != g.ID {
		t.Fatalf("reactivación debe reusar la fila")
	}
	if again.Status != StatusActive || again.Tier != TierBasic {
		t.Fatalf("grant reactivado = %+v", again)
	}
	if again.RevokedAt != nil || again.RevokedBy != "" {
		t.Fatalf("la reactivación limpia la revocación")
	}
	if !again.CreatedAt.Equal(g.CreatedAt) {
		t.Fatalf("CreatedAt original se preserva")
	}
}

func TestGrantAccessSelfGrantRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GrantAccess(context.Background(), GrantInput{
		OwnerTenantID:    "tenant-a",
		AccessorTenantID: "tenant-a",
		AnimalID:         "an-1",
		Tier:             TierBasic,
		Source:           SourceInquiry,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestGrantAccessOwnershipRequired(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GrantAccess(context.Background(), GrantInput{
		OwnerTenantID:    "tenant-b", // no es dueño de an-1
		AccessorTenantID: "tenant-c",
		AnimalID:         "an-1",
		Tier:             TierBasic,
		Source:           SourceInquiry,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestRevokeAccessOwnerOnlyIdempotent(t *testing.T) {
	f := newFixture(t)
	g := f.grant(t, "an-1", TierBasic)

	// El accessor no puede revocar.
	if _, err := f.svc.RevokeAccess(context.Background(), g.ID, "tenant-b", "user-b"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	got, err := f.svc.RevokeAccess(context.Background(), g.ID, "tenant-a", "user-a")
	if err != nil {
		t.Fatalf("RevokeAccess: %v", err)
	}
	if got.Status != StatusRevoked || got.RevokedBy != "user-a" {
		t.Fatalf("got = %+v", got)
	}

	again, err := f.svc.RevokeAccess(context.Background(), g.ID, "tenant-a", "user-zzz")
	if err != nil {
		t.Fatalf("segundo RevokeAccess: %v", err)
	}
	if again.RevokedBy != "user-a" {
		t.Fatalf("RevokedBy = %s, want user-a (idempotente)", again.RevokedBy)
	}
}

func TestGetGrantPairScoped(t *testing.T) {
	f := newFixture(t)
	g := f.grant(t, "an-1", TierBasic)

	if _, err := f.svc.GetGrant(context.Background(), g.ID, "tenant-a"); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if _, err := f.svc.GetGrant(context.Background(), g.ID, "tenant-b"); err != nil {
		t.Fatalf("accessor: %v", err)
	}
	// Un tercer tenant recibe not found, nunca forbidden.
	if _, err := f.svc.GetGrant(context.Background(), g.ID, "tenant-c"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("tercer tenant: err = %v, want ErrNotFound", err)
	}
}

func TestGetGrantAppliesLazyExpiry(t *testing.T) {
	f := newFixture(t)

	exp := f.now.Add(time.Hour)
	g, err := f.svc.GrantAccess(context.Background(), GrantInput{
		OwnerTenantID:    "tenant-a",
		AccessorTenantID: "tenant-b",
		AnimalID:         "an-1",
		Tier:             TierBasic,
		Source:           SourceInquiry,
		ExpiresAt:        &exp,
	})
	if err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}

	f.svc.now = func() time.Time { return exp.Add(time.Minute) }

	got, err := f.svc.GetGrant(context.Background(), g.ID, "tenant-b")
	if err != nil {
		t.Fatalf("GetGrant: %v", err)
	}
	if got.Status != StatusExpired {
		t.Fatalf("status = %s, want EXPIRED", got.Status)
	}
	// Lazy: el row persistido no cambió.
	if f.repo.grants[g.ID].Status != StatusActive {
		t.Fatalf("el row persistido no debe mutar en la lectura")
	}
}

func TestMarkOwnerDeleted(t *testing.T) {
	f := newFixture(t)
	f.grant(t, "an-1", TierBasic)

	g2, err := f.svc.GrantAccess(context.Background(), GrantInput{
		OwnerTenantID:    "tenant-a",
		AccessorTenantID: "tenant-c",
		AnimalID:         "an-1",
		Tier:             TierFull,
		Source:           SourceQRScan,
	})
	if err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}

	n, err := f.svc.MarkOwnerDeleted(context.Background(), "an-1", "tenant-a")
	if err != nil {
		t.Fatalf("MarkOwnerDeleted: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	if f.repo.grants[g2.ID].Status != StatusOwnerDeleted {
		t.Fatalf("status = %s, want OWNER_DELETED", f.repo.grants[g2.ID].Status)
	}
	// El snapshot queda legible.
	if f.repo.grants[g2.ID].AnimalName != "Luna" {
		t.Fatalf("snapshot perdido")
	}

	// Segunda pasada: nada que tocar.
	n, err = f.svc.MarkOwnerDeleted(context.Background(), "an-1", "tenant-a")
	if err != nil {
		t.Fatalf("segundo MarkOwnerDeleted: %v", err)
	}
	if n != 0 {
		t.Fatalf("n = %d, want 0", n)
	}
}

func TestListByAnimalOwnerOnly(t *testing.T) {
	f := newFixture(t)
	f.grant(t, "an-1", TierBasic)

	if _, err := f.svc.ListByAnimal(context.Background(), "an-1", "tenant-b"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	items, err := f.svc.ListByAnimal(context.Background(), "an-1", "tenant-a")
	if err != nil {
		t.Fatalf("ListByAnimal: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
}

// -------------------------
// Share codes
// -------------------------

func TestCreateShareCode(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.CreateShareCode(context.Background(), CreateShareCodeInput{
		OwnerTenantID: "tenant-a",
		DefaultTier:   TierBasic,
		AnimalIDs:     []string{"an-1", "an-2", "an-1"}, // duplicado se colapsa
		TierOverrides: map[string]Tier{"an-2": TierFull},
		MaxUses:       3,
	})
	if err != nil {
		t.Fatalf("CreateShareCode: %v", err)
	}
	if len(c.Code) != shareCodeLen {
		t.Fatalf("len(code) = %d, want %d", len(c.Code), shareCodeLen)
	}
	if len(c.AnimalIDs) != 2 {
		t.Fatalf("AnimalIDs = %v, want 2 únicos", c.AnimalIDs)
	}
	if c.Status != CodeActive {
		t.Fatalf("status = %s, want ACTIVE", c.Status)
	}
}

func TestCreateShareCodeOwnershipRequired(t *testing.T) {
	f := newFixture(t)
	f.an.byID["an-x"] = animals.Animal{ID: "an-x", TenantID: "tenant-b"}

	_, err := f.svc.CreateShareCode(context.Background(), CreateShareCodeInput{
		OwnerTenantID: "tenant-a",
		DefaultTier:   TierBasic,
		AnimalIDs:     []string{"an-1", "an-x"},
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestRedeemShareCode(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.CreateShareCode(context.Background(), CreateShareCodeInput{
		OwnerTenantID: "tenant-a",
		DefaultTier:   TierBasic,
		AnimalIDs:     []string{"an-1", "an-2"},
		TierOverrides: map[string]Tier{"an-2": TierGenetics},
	})
	if err != nil {
		t.Fatalf("CreateShareCode: %v", err)
	}

	grants, err := f.svc.RedeemShareCode(context.Background(), c.Code, "tenant-b")
	if err != nil {
		t.Fatalf("RedeemShareCode: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("grants = %d, want 2", len(grants))
	}

	byAnimal := map[string]Grant{}
	for _, g := range grants {
		byAnimal[g.AnimalID] = g
	}
	if byAnimal["an-1"].Tier != TierBasic {
		t.Fatalf("an-1 tier = %s, want BASIC (default)", byAnimal["an-1"].Tier)
	}
	if byAnimal["an-2"].Tier != TierGenetics {
		t.Fatalf("an-2 tier = %s, want GENETICS (override)", byAnimal["an-2"].Tier)
	}
	for _, g := range grants {
		if g.Source != SourceShareCode {
			t.Fatalf("source = %s, want SHARE_CODE", g.Source)
		}
	}

	got, _ := f.repo.GetShareCode(context.Background(), c.ID)
	if got.UsesCount != 1 {
		t.Fatalf("UsesCount = %d, want 1", got.UsesCount)
	}
}

func TestRedeemShareCodeOwnerCannotSelfRedeem(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.CreateShareCode(context.Background(), CreateShareCodeInput{
		OwnerTenantID: "tenant-a",
		DefaultTier:   TierBasic,
		AnimalIDs:     []string{"an-1"},
	})
	if err != nil {
		t.Fatalf("CreateShareCode: %v", err)
	}

	_, err = f.svc.RedeemShareCode(context.Background(), c.Code, "tenant-a")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRedeemShareCodeMaxUses(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.CreateShareCode(context.Background(), CreateShareCodeInput{
		OwnerTenantID: "tenant-a",
		DefaultTier:   TierBasic,
		AnimalIDs:     []string{"an-1"},
		MaxUses:       1,
	})
	if err != nil {
		t.Fatalf("CreateShareCode: %v", err)
	}

	if _, err := f.svc.RedeemShareCode(context.Background(), c.Code, "tenant-b"); err != nil {
		t.Fatalf("primer canje: %v", err)
	}

	_, err = f.svc.RedeemShareCode(context.Background(), c.Code, "tenant-c")
	if !errors.Is(err, ErrCodeExhausted) {
		t.Fatalf("err = %v, want ErrCodeExhausted", err)
	}
}

func TestRedeemShareCodeExpired(t *testing.T) {
	f := newFixture(t)
	exp := f.now.Add(time.Hour)
	c, err := f.svc.CreateShareCode(context.Background(), CreateShareCodeInput{
		OwnerTenantID: "tenant-a",
		DefaultTier:   TierBasic,
		AnimalIDs:     []string{"an-1"},
		ExpiresAt:     &exp,
	})
	if err != nil {
		t.Fatalf("CreateShareCode: %v", err)
	}

	f.svc.now = func() time.Time { return exp.Add(time.Minute) }

	_, err = f.svc.RedeemShareCode(context.Background(), c.Code, "tenant-b")
	if !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("err = %v, want ErrCodeExpired", err)
	}
}

func TestRedeemShareCodeRevoked(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.CreateShareCode(context.Background(), CreateShareCodeInput{
		OwnerTenantID: "tenant-a",
		DefaultTier:   TierBasic,
		AnimalIDs:     []string{"an-1"},
	})
	if err != nil {
		t.Fatalf("CreateShareCode: %v", err)
	}
	if _, err := f.svc.RevokeShareCode(context.Background(), c.ID, "tenant-a", "user-a"); err != nil {
		t.Fatalf("RevokeShareCode: %v", err)
	}

	_, err = f.svc.RedeemShareCode(context.Background(), c.Code, "tenant-b")
	if !errors.Is(err, ErrCodeRevoked) {
		t.Fatalf("err = %v, want ErrCodeRevoked", err)
	}
}

func TestRedeemShareCodeUnknownAnimalAllOrNothing(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.CreateShareCode(context.Background(), CreateShareCodeInput{
		OwnerTenantID: "tenant-a",
		DefaultTier:   TierBasic,
		AnimalIDs:     []string{"an-1", "an-2"},
	})
	if err != nil {
		t.Fatalf("CreateShareCode: %v", err)
	}

	// El dueño borra uno de los animales del bundle.
	delete(f.an.byID, "an-2")

	_, err = f.svc.RedeemShareCode(context.Background(), c.Code, "tenant-b")
	if !errors.Is(err, ErrUnknownAnimalInBundle) {
		t.Fatalf("err = %v, want ErrUnknownAnimalInBundle", err)
	}

	// Nada se emitió ni se consumió.
	if len(f.repo.grants) != 0 {
		t.Fatalf("grants = %d, want 0", len(f.repo.grants))
	}
	got, _ := f.repo.GetShareCode(context.Background(), c.ID)
	if got.UsesCount != 0 {
		t.Fatalf("UsesCount = %d, want 0", got.UsesCount)
	}
}

func TestRedeemShareCodeLookupFailureMidBundle(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.CreateShareCode(context.Background(), CreateShareCodeInput{
		OwnerTenantID: "tenant-a",
		DefaultTier:   TierBasic,
		AnimalIDs:     []string{"an-1", "an-2"},
	})
	if err != nil {
		t.Fatalf("CreateShareCode: %v", err)
	}

	// El lookup del segundo animal del bundle falla a mitad del canje.
	f.svc.animals = &flakyAnimals{inner: f.an, failOn: 2}

	_, err = f.svc.RedeemShareCode(context.Background(), c.Code, "tenant-b")
	if !errors.Is(err, ErrUnknownAnimalInBundle) {
		t.Fatalf("err = %v, want ErrUnknownAnimalInBundle", err)
	}

	// Todo-o-nada: ni grants parciales ni uso quemado.
	if len(f.repo.grants) != 0 {
		t.Fatalf("grants = %d, want 0", len(f.repo.grants))
	}
	got, _ := f.repo.GetShareCode(context.Background(), c.ID)
	if got.UsesCount != 0 {
		t.Fatalf("UsesCount = %d, want 0", got.UsesCount)
	}
	if got.Status != CodeActive {
		t.Fatalf("status = %s, want ACTIVE", got.Status)
	}
}

func TestReconcileExpiredMaterializes(t *testing.T) {
	f := newFixture(t)

	exp := f.now.Add(time.Hour)
	g, err := f.svc.GrantAccess(context.Background(), GrantInput{
		OwnerTenantID:    "tenant-a",
		AccessorTenantID: "tenant-b",
		AnimalID:         "an-1",
		Tier:             TierBasic,
		Source:           SourceInquiry,
		ExpiresAt:        &exp,
	})
	if err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}
	if _, err := f.svc.CreateShareCode(context.Background(), CreateShareCodeInput{
		OwnerTenantID: "tenant-a",
		DefaultTier:   TierBasic,
		AnimalIDs:     []string{"an-2"},
		ExpiresAt:     &exp,
	}); err != nil {
		t.Fatalf("CreateShareCode: %v", err)
	}

	f.svc.now = func() time.Time { return exp.Add(time.Minute) }

	n, err := f.svc.ReconcileExpired(context.Background())
	if err != nil {
		t.Fatalf("ReconcileExpired: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2 (grant + code)", n)
	}
	if f.repo.grants[g.ID].Status != StatusExpired {
		t.Fatalf("el grant quedó materializado EXPIRED")
	}

	n, err = f.svc.ReconcileExpired(context.Background())
	if err != nil {
		t.Fatalf("segundo ReconcileExpired: %v", err)
	}
	if n != 0 {
		t.Fatalf("n = %d, want 0", n)
	}
}
