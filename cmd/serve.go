package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lumeo-sites/ms-go-entitlements/app/controller"
	"github.com/lumeo-sites/ms-go-entitlements/app/repository"
	"github.com/lumeo-sites/ms-go-entitlements/app/service"
	"github.com/lumeo-sites/ms-go-entitlements/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for the entitlements service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db := mustOpenDatabase(cfg)
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logrus.WithError(err).Fatal("Failed to ping redis")
	}

	entitlementController := buildController(cfg, db, rdb)

	e := setupHTTPServer(entitlementController)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func mustOpenDatabase(cfg *config.Config) *sql.DB {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}
	return db
}

func buildController(cfg *config.Config, db *sql.DB, rdb *redis.Client) *controller.EntitlementController {
	orderService, pointsService, subscriptionService, entitlementService := buildServices(cfg, db, rdb)
	return controller.NewEntitlementController(orderService, pointsService, subscriptionService, entitlementService)
}

func buildServices(cfg *config.Config, db *sql.DB, rdb *redis.Client) (
	*service.OrderService,
	*service.PointsService,
	*service.SubscriptionService,
	*service.EntitlementService,
) {
	orderRepo := repository.NewOrderRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	tierRepo := repository.NewTierRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	nonceStore := repository.NewNonceStore(rdb, cfg.App.ServiceName)

	auditWriter := service.NewAuditWriter(auditRepo)
	orderService := service.NewOrderService(orderRepo, auditWriter, cfg.Signing, cfg.Orders)
	pointsService := service.NewPointsService(pointsRepo, auditWriter)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, tierRepo, auditWriter, cfg.Subscriptions)
	entitlementService := service.NewEntitlementService(
		nonceStore,
		orderService,
		pointsService,
		subscriptionService,
		auditWriter,
		cfg.Signing,
		cfg.Points,
	)

	return orderService, pointsService, subscriptionService, entitlementService
}

func setupHTTPServer(entitlementController *controller.EntitlementController) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string {
			return fmt.Sprintf("rest-%s", uuid.New().String())
		},
	}))

	e.GET("/health", entitlementController.Health)

	orders := e.Group("/orders")
	orders.POST("", entitlementController.CreateOrder)
	orders.GET("", entitlementController.ListOrders)
	orders.GET("/:orderNo", entitlementController.GetOrder)
	orders.POST("/:orderNo/cancel", entitlementController.CancelOrder)

	points := e.Group("/points")
	points.GET("/balance", entitlementController.GetBalance)
	points.GET("/history", entitlementController.GetPointsHistory)
	points.POST("/spend", entitlementController.SpendPoints)

	subscriptions := e.Group("/subscriptions")
	subscriptions.GET("/tiers", entitlementController.ListTiers)
	subscriptions.GET("/current", entitlementController.GetCurrentSubscription)
	subscriptions.POST("/cancel", entitlementController.CancelSubscription)
	subscriptions.POST("/resume", entitlementController.ResumeSubscription)

	webhooks := e.Group("/webhooks")
	webhooks.POST("/payment-callback", entitlementController.PaymentCallback)

	return e
}
