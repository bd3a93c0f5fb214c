package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shipops/rate-shopper/internal/app"
	"github.com/shipops/rate-shopper/internal/carrier/fedex"
	"github.com/shipops/rate-shopper/internal/carrier/ups"
	"github.com/shipops/rate-shopper/internal/carrier/usps"
	"github.com/shipops/rate-shopper/internal/config"
	"github.com/shipops/rate-shopper/internal/events"
	"github.com/shipops/rate-shopper/internal/handler"
	"github.com/shipops/rate-shopper/internal/metrics"
	"github.com/shipops/rate-shopper/internal/normalize"
	"github.com/shipops/rate-shopper/internal/pipeline"
	"github.com/shipops/rate-shopper/internal/postgres"
	"github.com/shipops/rate-shopper/internal/repo"
	"github.com/shipops/rate-shopper/internal/shipstation"
	"github.com/shipops/rate-shopper/pkg/cache"
	"github.com/shipops/rate-shopper/pkg/trm"
)

var (
	flagOnce     bool
	flagInterval time.Duration
	flagAccount  string
)

func main() {
	root := &cobra.Command{
		Use:   "rateshop",
		Short: "Multi-carrier rate shopping for awaiting-shipment orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
		SilenceUsage: true,
	}
	root.Flags().BoolVar(&flagOnce, "once", false, "run a single batch and exit the scheduler")
	root.Flags().DurationVar(&flagInterval, "interval", time.Hour, "delay between batches")
	root.Flags().StringVar(&flagAccount, "account", "", "process a single account instead of all configured ones")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	godotenv.Load()
}

func run(ctx context.Context) error {
	conf := config.New()
	logger := newLogger(conf.Env)
	if err := conf.Validate(); err != nil {
		logger.Error("invalid config", slog.Any("error", err))
		return err
	}

	metrics.Register()

	quoteCache := cache.NewLRUCache(conf.Cache.Capacity, conf.Cache.TTL)

	fedexClient, err := fedex.New(logger, fedex.Config{
		BaseURL:       conf.FedEx.BaseURL,
		AccountNumber: conf.FedEx.AccountNumber,
		ClientID:      conf.FedEx.ClientID,
		ClientSecret:  conf.FedEx.ClientSecret,
	}, quoteCache)
	if err != nil {
		return err
	}
	upsClient, err := ups.New(logger, ups.Config{
		BaseURL:      conf.UPS.BaseURL,
		ClientID:     conf.UPS.ClientID,
		ClientSecret: conf.UPS.ClientSecret,
	}, quoteCache)
	if err != nil {
		return err
	}
	uspsClient, err := usps.New(logger, usps.Config{
		BaseURL:  conf.USPS.BaseURL,
		UserID:   conf.USPS.UserID,
		Password: conf.USPS.Password,
	}, quoteCache)
	if err != nil {
		return err
	}

	application := app.New(logger, conf)
	opsHandler := handler.NewOpsHandler(logger)
	application.SetHTTPHandlers(opsHandler)
	application.SetStarters(quoteCache)

	var archiver pipeline.Archiver
	if conf.Postgres.Enabled() {
		db, err := postgres.New(conf.Postgres)
		if err != nil {
			logger.Error("failed to connect to db", slog.Any("error", err))
			return err
		}
		defer db.Close()
		archiver = repo.NewCustomerLog(db, trm.NewManager(db))
		logger.Info("postgres connected")
	}

	var publisher pipeline.Publisher
	if conf.Kafka.Enabled() {
		kafkaPublisher := events.NewPublisher(logger, events.Config{
			Brokers:      conf.Kafka.Brokers,
			Topic:        conf.Kafka.Topic,
			BatchTimeout: conf.Kafka.BatchTimeout,
		})
		application.SetClosers(kafkaPublisher)
		publisher = kafkaPublisher
	}

	norm := normalize.New(logger)
	var runners []app.BatchRunner
	for _, account := range conf.Accounts {
		if flagAccount != "" && account.Name != flagAccount {
			continue
		}
		platform, err := shipstation.New(logger, shipstation.Config{
			BaseURL:   conf.ShipStation.BaseURL,
			Account:   account.Name,
			APIKey:    account.APIKey,
			APISecret: account.APISecret,
			Timeout:   conf.ShipStation.Timeout,
		})
		if err != nil {
			logger.Error("failed to build platform client",
				slog.String("account", account.Name), slog.Any("error", err))
			return err
		}
		processor := pipeline.NewProcessor(logger, platform, upsClient, uspsClient, fedexClient)
		runners = append(runners, pipeline.NewRunner(logger, platform, norm, processor, archiver, publisher))
	}
	application.SetSchedule(flagOnce, flagInterval, opsHandler.RecordRun, runners...)

	application.Start(ctx)
	<-ctx.Done()
	application.Stop()
	return nil
}

func newLogger(env string) *slog.Logger {
	switch env {
	case "production":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
