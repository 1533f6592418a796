package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lumeo-sites/ms-go-entitlements/app/service"
	"github.com/lumeo-sites/ms-go-entitlements/config"

	_ "github.com/go-sql-driver/mysql"
)

var (
	expireOrdersWorker        bool
	expireSubscriptionsWorker bool
)

var expireOrdersCmd = &cobra.Command{
	Use:   "expire-orders",
	Short: "Mark overdue pending orders as expired",
	Run: func(_ *cobra.Command, _ []string) {
		runSweep(
			"expire_orders",
			expireOrdersWorker,
			func(cfg *config.Config) string { return cfg.Jobs.OrderExpirySweepSpec },
			func(ctx context.Context, svc *services) (int64, error) {
				return svc.orders.ExpireStaleOrders(ctx)
			},
		)
	},
}

var expireSubscriptionsCmd = &cobra.Command{
	Use:   "expire-subscriptions",
	Short: "Settle subscriptions whose paid period has ended",
	Run: func(_ *cobra.Command, _ []string) {
		runSweep(
			"expire_subscriptions",
			expireSubscriptionsWorker,
			func(cfg *config.Config) string { return cfg.Jobs.SubscriptionExpirySweepSpec },
			func(ctx context.Context, svc *services) (int64, error) {
				return svc.subscriptions.ExpireDue(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(expireOrdersCmd)
	rootCmd.AddCommand(expireSubscriptionsCmd)

	expireOrdersCmd.Flags().BoolVar(&expireOrdersWorker, "worker", false, "Run continuously on the configured schedule")
	expireSubscriptionsCmd.Flags().BoolVar(&expireSubscriptionsWorker, "worker", false, "Run continuously on the configured schedule")
}

type services struct {
	orders        *service.OrderService
	subscriptions *service.SubscriptionService
}

func runSweep(
	name string,
	worker bool,
	specResolver func(cfg *config.Config) string,
	fn func(ctx context.Context, svc *services) (int64, error),
) {
	cfg, svc, cleanup := mustCreateServices()
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !worker {
		runJob(name, func() (int64, error) { return fn(ctx, svc) })
		return
	}

	scheduler := cron.New()
	_, err := scheduler.AddFunc(specResolver(cfg), func() {
		runJob(name, func() (int64, error) { return fn(ctx, svc) })
	})
	if err != nil {
		logrus.WithError(err).WithField("job", name).Fatal("invalid cron spec")
	}
	scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.WithField("job", name).Info("Worker shutdown requested")

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
}

func mustCreateServices() (*config.Config, *services, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db := mustOpenDatabase(cfg)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	orderService, _, subscriptionService, _ := buildServices(cfg, db, rdb)

	cleanup := func() {
		if err := rdb.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis client")
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, &services{orders: orderService, subscriptions: subscriptionService}, cleanup
}

func runJob(name string, fn func() (int64, error)) {
	start := time.Now()
	affected, err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).
		WithField("affected", affected).
		WithField("latency", latency.String()).
		Info("job_completed")
}
