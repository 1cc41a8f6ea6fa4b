package router

import (
	"database/sql"
	"net/http"
	"os"
	"strconv"

	mem "breeder-exchange/internal/adapters/storage/memory"
	pg "breeder-exchange/internal/adapters/storage/postgres"
	"breeder-exchange/internal/domain/access"
	"breeder-exchange/internal/domain/agreements"
	"breeder-exchange/internal/domain/animals"
	"breeder-exchange/internal/domain/identity"
	"breeder-exchange/internal/domain/identitylinks"
	"breeder-exchange/internal/domain/linkrequests"
	"breeder-exchange/internal/domain/plans"
	"breeder-exchange/internal/middleware"
	"breeder-exchange/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "breeder-exchange/docs" // registra la spec generada para /swagger/doc.json
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	var (
		animalRepo     animals.Repository
		identityRepo   identity.Repository
		idLinksRepo    identitylinks.Repository
		requestsRepo   linkrequests.Repository
		accessRepo     access.Repository
		plansRepo      plans.Repository
		agreementsRepo agreements.Repository
	)

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			}
		}
	}

	if db != nil {
		animalRepo = pg.NewAnimalsRepo(db)
		identityRepo = pg.NewIdentityRepo(db)
		idLinksRepo = pg.NewIdentityLinksRepo(db)
		requestsRepo = pg.NewLinkRequestsRepo(db)
		accessRepo = pg.NewAccessRepo(db)
		plansRepo = pg.NewPlansRepo(db)
		agreementsRepo = pg.NewAgreementsRepo(db)
	} else {
		animalRepo = mem.NewAnimalsRepo()
		identityRepo = mem.NewIdentityRepo()
		idLinksRepo = mem.NewIdentityLinksRepo()
		requestsRepo = mem.NewLinkRequestsRepo()
		accessRepo = mem.NewAccessRepo()
		plansRepo = mem.NewPlansRepo()
		agreementsRepo = mem.NewAgreementsRepo()
	}

	// Services por módulo
	animalsSvc := animals.NewService(animalRepo)
	identitySvc := identity.NewService(identityRepo)
	idLinksSvc := identitylinks.NewService(idLinksRepo)
	requestsSvc := linkrequests.NewService(requestsRepo, animalsSvc, identitySvc, idLinksSvc)
	accessSvc := access.NewService(accessRepo, animalsSvc)
	plansSvc := plans.NewService(plansRepo)
	agreementsSvc := agreements.NewService(agreementsRepo, accessSvc, plansSvc)

	// Rutas por módulo
	animals.RegisterRoutes(r, animalsSvc, accessSvc)
	identity.RegisterRoutes(r, identitySvc)
	identitylinks.RegisterRoutes(r, idLinksSvc, animalsSvc, identitySvc)
	linkrequests.RegisterRoutes(r, requestsSvc)
	access.RegisterRoutes(r, accessSvc)
	plans.RegisterRoutes(r, plansSvc)
	agreements.RegisterRoutes(r, agreementsSvc)

	// Materializa expiraciones pendientes (lo pega un cron externo).
	r.Post("/internal/reconcile-expired", func(w http.ResponseWriter, req *http.Request) {
		total := 0
		if n, err := requestsSvc.ReconcileExpired(req.Context()); err == nil {
			total += n
		}
		if n, err := accessSvc.ReconcileExpired(req.Context()); err == nil {
			total += n
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reconciled":` + strconv.Itoa(total) + `}`))
	})

	return r
}
