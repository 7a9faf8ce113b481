package app

import (
	"context"
	"net/http"
	"time"

	firestoreapi "cloud.google.com/go/firestore"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/checkout"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/coupon"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/order"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/pix"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/tracking"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/user"
	"github.com/uiliambrandao/nammos-checkout/internal/handler"
	"github.com/uiliambrandao/nammos-checkout/internal/repository"
	fsrepo "github.com/uiliambrandao/nammos-checkout/internal/repository/firestore"
	"github.com/uiliambrandao/nammos-checkout/pkg/health"
	"github.com/uiliambrandao/nammos-checkout/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	deliveryFee, err := parseFee(cfg.DeliveryFee)
	if err != nil {
		return errors.Wrap(err, "parse delivery fee")
	}

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := repository.NewProductRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	cashbackRepo := repository.NewCashbackRepository(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)

	userRepo, cleanup, err := buildUserRepo(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "create user repository")
	}
	defer cleanup()

	// Domain services.
	couponValidator := coupon.NewRepoValidator(couponRepo)
	orderSvc := order.NewService(orderRepo, order.ServiceConfig{
		AutoAdvance: cfg.Tracking.AutoAdvance,
	})
	defer orderSvc.Close()

	checkoutSvc := checkout.NewService(productRepo, couponValidator, cashbackRepo, orderRepo, checkout.Config{
		DeliveryFee: deliveryFee,
	})

	pixManager := pix.NewManager(pix.ManagerConfig{
		Merchant:      cfg.Pix.Merchant,
		City:          cfg.Pix.City,
		TTL:           cfg.Pix.TTL,
		RedirectDelay: cfg.Pix.RedirectDelay,
		OnPaid: func(orderID string) {
			// Payment cleared: open the tracking timeline and move the order
			// from received to accepted.
			orderSvc.StartTracking(orderID, tracking.StatusReceived)
			if _, err := orderSvc.Advance(ctx, orderID); err != nil {
				lg.Warn("Post-payment tracking advance failed",
					zap.String("order_id", orderID), zap.Error(err))
			}
		},
	})
	defer pixManager.Close()

	// HTTP handlers.
	securityHandler := handler.NewSecurityHandler(apikeyRepo, []byte(cfg.APIKeyPepper))
	h := handler.NewHandler(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL},
		productRepo,
		checkoutSvc,
		orderSvc,
		pixManager,
		userRepo,
		cashbackRepo,
		securityHandler,
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	instrumented := otelhttp.NewHandler(mux, "nammos-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(instrumented,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// buildUserRepo selects the configured user backend. The returned cleanup
// closes backend resources and is always safe to call.
func buildUserRepo(ctx context.Context, cfg *Config) (user.Repository, func(), error) {
	switch cfg.Users.Backend {
	case "firestore":
		client, err := firestoreapi.NewClient(ctx, cfg.Users.FirestoreProject)
		if err != nil {
			return nil, func() {}, errors.Wrap(err, "create firestore client")
		}
		repo, err := fsrepo.NewUserRepository(client)
		if err != nil {
			_ = client.Close()
			return nil, func() {}, err
		}
		return repo, func() { _ = client.Close() }, nil
	case "postgres", "":
		pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, func() {}, errors.Wrap(err, "create user db pool")
		}
		return repository.NewUserRepository(pool), pool.Close, nil
	default:
		return nil, func() {}, errors.Errorf("unknown user backend %q", cfg.Users.Backend)
	}
}

func parseFee(s string) (money.Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	fee := money.FromDecimal(d)
	if fee < 0 {
		return 0, errors.New("delivery fee must not be negative")
	}
	return fee, nil
}
