package agreements

import (
	"context"
	"errors"
	"testing"
	"time"

	"breeder-exchange/internal/domain/access"
	"breeder-exchange/internal/domain/plans"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

var errRepoNotFound = errors.New("repo: not found")

type testRepo struct {
	byID map[string]Agreement
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Agreement{}}
}

func (r *testRepo) Create(ctx context.Context, a Agreement) error {
	r.byID[a.ID] = a
	return nil
}

func (r *testRepo) Update(ctx context.Context, a Agreement) error {
	if _, ok := r.byID[a.ID]; !ok {
		return errRepoNotFound
	}
	r.byID[a.ID] = a
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Agreement, error) {
	a, ok := r.byID[id]
	if !ok {
		return Agreement{}, errRepoNotFound
	}
	return a, nil
}

func (r *testRepo) GetByPlanAccess(ctx context.Context, planID, accessID string) (Agreement, error) {
	for _, a := range r.byID {
		if a.PlanID == planID && a.AccessID == accessID {
			return a, nil
		}
	}
	return Agreement{}, errRepoNotFound
}

func (r *testRepo) ListByPlan(ctx context.Context, planID string) ([]Agreement, error) {
	out := make([]Agreement, 0)
	for _, a := range r.byID {
		if a.PlanID == planID {
			out = append(out, a)
		}
	}
	return out, nil
}

// -------------------------
// Fakes de los puertos
// -------------------------

// fakeGrants emula el scope por par del service real: un tenant ajeno
// al grant recibe not found.
type fakeGrants struct {
	byID map[string]access.Grant
}

func (f *fakeGrants) GetGrant(ctx context.Context, grantID, tenantID string) (access.Grant, error) {
	g, ok := f.byID[grantID]
	if !ok {
		return access.Grant{}, errRepoNotFound
	}
	if g.OwnerTenantID != tenantID && g.AccessorTenantID != tenantID {
		return access.Grant{}, errRepoNotFound
	}
	return g, nil
}

type fakePlans struct {
	byID map[string]plans.Plan
}

func (f *fakePlans) GetByID(ctx context.Context, id string) (plans.Plan, error) {
	p, ok := f.byID[id]
	if !ok {
		return plans.Plan{}, errRepoNotFound
	}
	return p, nil
}

// -------------------------
// Fixture
// -------------------------

type fixture struct {
	svc    *Service
	repo   *testRepo
	grants *fakeGrants
	now    time.Time
}

// tenant-a tiene el plan; tenant-b es dueño del animal compartido.
// grant-1: tenant-b otorgó acceso a tenant-a sobre su animal.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2025, 5, 20, 15, 0, 0, 0, time.UTC)
	grants := &fakeGrants{
		byID: map[string]access.Grant{
			"grant-1": {
				ID:               "grant-1",
				AnimalID:         "an-sire",
				OwnerTenantID:    "tenant-b",
				AccessorTenantID: "tenant-a",
				Tier:             access.TierLineage,
				Status:           access.StatusActive,
			},
		},
	}
	pl := &fakePlans{
		byID: map[string]plans.Plan{
			"plan-1": {ID: "plan-1", TenantID: "tenant-a", Name: "Camada otoño"},
		},
	}
	repo := newTestRepo()
	svc := NewService(repo, grants, pl)
	svc.now = func() time.Time { return now }

	return &fixture{svc: svc, repo: repo, grants: grants, now: now}
}

func (f *fixture) request(t *testing.T) Agreement {
	t.Helper()
	a, err := f.svc.Request(context.Background(), RequestInput{
		TenantID: "tenant-a",
		UserID:   "user-a",
		PlanID:   "plan-1",
		AccessID: "grant-1",
		Role:     RoleSire,
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	return a
}

// -------------------------
// Request
// -------------------------

func TestRequestCreatesPending(t *testing.T) {
	f := newFixture(t)

	a := f.request(t)

	if a.Status != StatusPending || a.Role != RoleSire {
		t.Fatalf("agreement = %+v", a)
	}
	if want := f.now.Add(DefaultAgreementTTL); !a.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", a.ExpiresAt, want)
	}
}

func TestRequestPlanOwnerOnly(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Request(context.Background(), RequestInput{
		TenantID: "tenant-b", // el plan es de tenant-a
		PlanID:   "plan-1",
		AccessID: "grant-1",
		Role:     RoleSire,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestRequestRequiresActiveGrant(t *testing.T) {
	f := newFixture(t)

	g := f.grants.byID["grant-1"]
	g.Status = access.StatusRevoked
	f.grants.byID["grant-1"] = g

	_, err := f.svc.Request(context.Background(), RequestInput{
		TenantID: "tenant-a",
		PlanID:   "plan-1",
		AccessID: "grant-1",
		Role:     RoleSire,
	})
	if !errors.Is(err, ErrAccessNotEstablished) {
		t.Fatalf("err = %v, want ErrAccessNotEstablished", err)
	}
}

func TestRequestGrantPairMustMatchPlanTenant(t *testing.T) {
	f := newFixture(t)

	// Grant cuyo accessor no es el tenant del plan.
	f.grants.byID["grant-x"] = access.Grant{
		ID:               "grant-x",
		OwnerTenantID:    "tenant-b",
		AccessorTenantID: "tenant-c",
		Status:           access.StatusActive,
	}

	_, err := f.svc.Request(context.Background(), RequestInput{
		TenantID: "tenant-a",
		PlanID:   "plan-1",
		AccessID: "grant-x",
		Role:     RoleSire,
	})
	if !errors.Is(err, ErrAccessNotEstablished) {
		t.Fatalf("err = %v, want ErrAccessNotEstablished", err)
	}
}

func TestRequestUpsertSingleRow(t *testing.T) {
	f := newFixture(t)
	a := f.request(t)

	// Rechazado: re-pedir reabre la misma fila en PENDING.
	if _, err := f.svc.Respond(context.Background(), a.ID, "tenant-b", "user-b", false); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	again, err := f.svc.Request(context.Background(), RequestInput{
		TenantID: "tenant-a",
		UserID:   "user-a2",
		PlanID:   "plan-1",
		AccessID: "grant-1",
		Role:     RoleDam,
		Message:  "segundo intento",
	})
	if err != nil {
		t.Fatalf("segundo Request: %v", err)
	}
	if again.ID != a.ID {
		t.Fatalf("re-pedir debe reusar la fila (plan, access)")
	}
	if again.Status != StatusPending || again.Role != RoleDam {
		t.Fatalf("agreement reabierto = %+v", again)
	}
	if again.RespondedBy != "" || again.RespondedAt != nil {
		t.Fatalf("la reapertura limpia la respuesta previa")
	}
	if len(f.repo.byID) != 1 {
		t.Fatalf("agreements = %d, want 1", len(f.repo.byID))
	}
}

func TestRequestApprovedReturnsAsIs(t *testing.T) {
	f := newFixture(t)
	a := f.request(t)

	if _, err := f.svc.Respond(context.Background(), a.ID, "tenant-b", "user-b", true); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	again, err := f.svc.Request(context.Background(), RequestInput{
		TenantID: "tenant-a",
		PlanID:   "plan-1",
		AccessID: "grant-1",
		Role:     RoleSire,
	})
	if err != nil {
		t.Fatalf("segundo Request: %v", err)
	}
	if again.Status != StatusApproved {
		t.Fatalf("status = %s, want APPROVED (no se re-pide lo aprobado)", again.Status)
	}
}

// -------------------------
// Respond
// -------------------------

func TestRespondApprove(t *testing.T) {
	f := newFixture(t)
	a := f.request(t)

	got, err := f.svc.Respond(context.Background(), a.ID, "tenant-b", "user-b", true)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if got.Status != StatusApproved || got.RespondedBy != "user-b" || got.RespondedAt == nil {
		t.Fatalf("got = %+v", got)
	}
}

func TestRespondGrantOwnerOnly(t *testing.T) {
	f := newFixture(t)
	a := f.request(t)

	// El accessor (tenant del plan) no puede auto-aprobarse.
	_, err := f.svc.Respond(context.Background(), a.ID, "tenant-a", "user-a", true)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestRespondIdempotentSameDecision(t *testing.T) {
	f := newFixture(t)
	a := f.request(t)

	if _, err := f.svc.Respond(context.Background(), a.ID, "tenant-b", "user-b", true); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	got, err := f.svc.Respond(context.Background(), a.ID, "tenant-b", "user-zzz", true)
	if err != nil {
		t.Fatalf("re-aprobar: %v", err)
	}
	if got.RespondedBy != "user-b" {
		t.Fatalf("RespondedBy = %s, want user-b (idempotente)", got.RespondedBy)
	}

	// Cambiar la decisión sobre un terminal no está permitido.
	_, err = f.svc.Respond(context.Background(), a.ID, "tenant-b", "user-b", false)
	if !errors.Is(err, ErrAgreementClosed) {
		t.Fatalf("err = %v, want ErrAgreementClosed", err)
	}
}

func TestRespondExpiredAgreement(t *testing.T) {
	f := newFixture(t)
	a := f.request(t)

	f.svc.now = func() time.Time { return f.now.Add(DefaultAgreementTTL + time.Hour) }

	_, err := f.svc.Respond(context.Background(), a.ID, "tenant-b", "user-b", true)
	if !errors.Is(err, ErrAgreementClosed) {
		t.Fatalf("err = %v, want ErrAgreementClosed", err)
	}
}

// -------------------------
// Lecturas con scope
// -------------------------

func TestGetScopedToGrantPair(t *testing.T) {
	f := newFixture(t)
	a := f.request(t)

	if _, err := f.svc.Get(context.Background(), a.ID, "tenant-a"); err != nil {
		t.Fatalf("accessor: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), a.ID, "tenant-b"); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), a.ID, "tenant-c"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("tercer tenant: err = %v, want ErrNotFound", err)
	}
}

func TestListByPlanAppliesLazyExpiry(t *testing.T) {
	f := newFixture(t)
	f.request(t)

	f.svc.now = func() time.Time { return f.now.Add(DefaultAgreementTTL + time.Hour) }

	items, err := f.svc.ListByPlan(context.Background(), "plan-1", "tenant-a")
	if err != nil {
		t.Fatalf("ListByPlan: %v", err)
	}
	if len(items) != 1 || items[0].Status != StatusExpired {
		t.Fatalf("items = %+v, want 1 EXPIRED", items)
	}

	// Otro tenant no lista planes ajenos.
	if _, err := f.svc.ListByPlan(context.Background(), "plan-1", "tenant-b"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}
