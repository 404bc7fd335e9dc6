package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shopkit/shopkit/modules/catalog"
	"github.com/shopkit/shopkit/modules/orders"
	"github.com/shopkit/shopkit/modules/tenants"
	"github.com/shopkit/shopkit/modules/users"
	"github.com/shopkit/shopkit/pkg/config"
	"github.com/shopkit/shopkit/pkg/guard"
	"github.com/shopkit/shopkit/pkg/httpserver"
	"github.com/shopkit/shopkit/pkg/identity"
	"github.com/shopkit/shopkit/pkg/idtoken"
	"github.com/shopkit/shopkit/pkg/keycloakadmin"
	"github.com/shopkit/shopkit/pkg/keyset"
	"github.com/shopkit/shopkit/pkg/logger"
	"github.com/shopkit/shopkit/pkg/pg"
)

func main() {
	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.NewFromConfig(logCfg,
		logger.WithContextExtractors(identity.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	if err := run(context.Background(), log); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		pgCfg     pg.Config
		httpCfg   httpserver.Config
		keysetCfg keyset.Config
		tokenCfg  idtoken.Config
		kcCfg     keycloakadmin.Config
	)
	config.MustLoad(&pgCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&keysetCfg)
	config.MustLoad(&tokenCfg)
	config.MustLoad(&kcCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	// Token verification is active only when a key set endpoint is
	// configured. Without it only the development debug header can
	// authenticate, which is the local-stack setup.
	var verifier identity.TokenVerifier
	if keysetCfg.URL != "" {
		keys, err := keyset.NewFromConfig(keysetCfg)
		if err != nil {
			return err
		}
		verifier, err = idtoken.NewFromConfig(keys, tokenCfg)
		if err != nil {
			return err
		}
	} else {
		log.Warn("no key set endpoint configured, bearer tokens will be rejected")
	}

	resolver := identity.NewResolver(verifier, identity.WithLogger(log))
	g := guard.New(resolver, guard.WithLogger(log))

	kc, err := keycloakadmin.NewFromConfig(kcCfg)
	if err != nil {
		return err
	}

	tenantStore := tenants.NewPGStorage(pool)
	tenantSvc := tenants.NewService(tenantStore)
	catalogSvc := catalog.NewService(catalog.NewPGStorage(pool), tenantSvc)
	orderSvc := orders.NewService(orders.NewPGStorage(pool), tenantSvc)
	userSvc := users.NewService(users.NewPGStorage(pool), tenantSvc, catalogSvc, kc, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", httpserver.HealthCheckHandler(ctx, log, pg.Healthcheck(pool)))

	r.Mount("/products", catalog.GlobalRouter(catalogSvc, log))
	r.Mount("/users", users.Router(g, userSvc, log))
	r.Mount("/tenants", tenants.Router(g, tenantSvc, log, func(r chi.Router) {
		r.Mount("/products", catalog.TenantRouter(g, catalogSvc, log))
		r.Mount("/orders", orders.Router(g, orderSvc, log))
		r.Mount("/users", users.TenantRouter(g, userSvc, log))
	}))

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, r)
}
