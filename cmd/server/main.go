package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/inventory"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/order"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/promotion"
	"github.com/Skotchmaster/storefront/internal/trending"
	"github.com/Skotchmaster/storefront/internal/wishlist"
	"github.com/Skotchmaster/storefront/pkg/config"
	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustAllOrNone(map[string]string{
		"RAZORPAY_KEY_ID":     cfg.RazorpayKeyID,
		"RAZORPAY_KEY_SECRET": cfg.RazorpayKeySecret,
	})

	fee, err := decimal.NewFromString(cfg.DeliveryCharge)
	if err != nil || fee.IsNegative() {
		log.Fatalf("DELIVERY_CHARGE must be a non-negative amount, got %q", cfg.DeliveryCharge)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.OrderTopic, cfg.ServiceName)
	}

	var store trending.Store
	if cfg.RedisAddr != "" {
		rdb := trending.NewRedisClient(cfg.RedisAddr)
		defer rdb.Close()
		store = trending.NewRedisStore(rdb, 10*cfg.TrendingInterval)
	}

	gateways := []payment.Gateway{payment.COD{}}
	if cfg.StripeSecretKey != "" {
		gateways = append(gateways, payment.NewStripe(cfg.StripeSecretKey, cfg.Currency))
	}
	if cfg.RazorpayKeyID != "" {
		gateways = append(gateways, payment.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.Currency))
	}

	ledger := inventory.NewLedger(db)
	sweeper := promotion.NewSweeper(db, cfg.PromotionSweepInterval)
	catalogSvc := catalog.NewService(db, ledger, sweeper)
	cartSvc := cart.NewService(db)
	wishlistSvc := wishlist.NewService(db)
	orderSvc := order.NewService(db, ledger, payment.NewRegistry(gateways...), cartSvc, pub, fee)
	scorer := trending.NewScorer(catalogSvc, orderSvc, store, cfg.TrendingInterval)
	orderSvc.Listener = scorer
	reconciler := order.NewReconciler(orderSvc, cfg.ReconcileInterval, cfg.AbandonedOrderTimeout)

	e := echo.New()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		CatalogHandler:  &httpserver.CatalogHTTP{Svc: catalogSvc},
		CartHandler:     &httpserver.CartHTTP{Svc: cartSvc},
		WishlistHandler: &httpserver.WishlistHTTP{Svc: wishlistSvc},
		OrderHandler:    &httpserver.OrderHTTP{Svc: orderSvc},
		TrendingHandler: &httpserver.TrendingHTTP{Scorer: scorer},
		JWTSecret:       cfg.JWTAccessSecret,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	bgCtx := logging.IntoContext(runCtx, logger)

	g, gctx := errgroup.WithContext(bgCtx)
	g.Go(func() error { return sweeper.Run(gctx) })
	g.Go(func() error { return scorer.Run(gctx) })
	g.Go(func() error { return reconciler.Run(gctx) })
	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server_stopped", "error", err)
	}

	if err := pub.Close(); err != nil {
		logger.Warn("publisher_close_error", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("storefront stopped")
}
