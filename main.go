package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/config"
	"auction-engine/internal/eligibility"
	"auction-engine/internal/notify"
	orders "auction-engine/internal/orderService"
	"auction-engine/internal/repository"
	"auction-engine/internal/repository/postgres"
	"auction-engine/internal/server"
	"auction-engine/internal/sweeper"
	"auction-engine/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", os.Getenv("AUCTION_CONFIG"), "path to the configuration file")
	flag.Parse()

	cfg, v, err := config.Load(*configPath)
	if err != nil {
		utils.Fatal("failed to load configuration", map[string]any{"error": err.Error()})
	}
	if err := utils.ConfigureLogger(cfg.Log.Level); err != nil {
		utils.Fatal("invalid log level", map[string]any{"error": err.Error()})
	}

	if *configPath != "" {
		// auction.* keys are read per bid, so edits apply without a restart
		v.WatchConfig()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, config.NewSettings(v)); err != nil {
		utils.Fatal("server stopped with error", map[string]any{"error": err.Error()})
	}
	utils.Info("server stopped", nil)
}

func run(ctx context.Context, cfg *config.Config, settings config.AuctionSettings) error {
	repo, closeRepo, err := openLedger(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeRepo()

	notifier, closeNotifier, err := openNotifier(cfg.Notify)
	if err != nil {
		return err
	}
	defer closeNotifier()

	cancelPolicy, err := orders.NewCancelPolicy(cfg.Order.CancellableStatuses)
	if err != nil {
		return err
	}
	feedbackPolicy, err := orders.ParseFeedbackPolicy(cfg.Feedback.Policy)
	if err != nil {
		return err
	}

	biddingSvc := bidding.NewBiddingService(repo,
		bidding.WithSettings(settings),
		bidding.WithEligibility(eligibility.NewReputationPolicy(repo, cfg.Eligibility.MinSamples, cfg.Eligibility.MinRatio)),
		bidding.WithNotifier(notifier),
	)
	sw := sweeper.New(repo,
		sweeper.WithNotifier(notifier),
		sweeper.WithInterval(cfg.Sweeper.Interval),
	)
	orderSvc := orders.NewOrderService(repo, repo, repo, sw,
		orders.WithNotifier(notifier),
		orders.WithCancelPolicy(cancelPolicy),
		orders.WithFeedbackPolicy(feedbackPolicy),
	)

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: server.SetupRouter(biddingSvc, orderSvc, sw, cfg.Server.AdminUsers),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sw.Run(gctx)
	})
	g.Go(func() error {
		utils.Info("starting auction server", map[string]any{"addr": srv.Addr, "storage": cfg.Storage.Driver})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openLedger returns the configured store and a function releasing it
func openLedger(ctx context.Context, cfg config.StorageConfig) (repository.Ledger, func(), error) {
	if cfg.Driver != "postgres" {
		return repository.NewMemoryRepo(), func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	store := postgres.New(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, func() { db.Close() }, nil
}

// openNotifier logs every event and also publishes to RabbitMQ when a broker is configured
func openNotifier(cfg config.NotifyConfig) (notify.Notifier, func(), error) {
	if cfg.AMQPURL == "" {
		return notify.LogNotifier{}, func() {}, nil
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, nil, err
	}
	publisher, err := notify.NewAMQPNotifier(conn, cfg.Queue)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	closers := []io.Closer{publisher, conn}
	return notify.Multi{notify.LogNotifier{}, publisher}, func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				utils.Warn("failed to close notifier", map[string]any{"error": err.Error()})
			}
		}
	}, nil
}
