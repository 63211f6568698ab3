package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apiserver "github.com/dataforge/dataset-pipeline/internal/api_server"
	"github.com/dataforge/dataset-pipeline/internal/blob"
	"github.com/dataforge/dataset-pipeline/internal/config"
	"github.com/dataforge/dataset-pipeline/internal/events"
	handlers "github.com/dataforge/dataset-pipeline/internal/handlers/v1alpha1"
	"github.com/dataforge/dataset-pipeline/internal/scheduler"
	"github.com/dataforge/dataset-pipeline/internal/service"
	"github.com/dataforge/dataset-pipeline/internal/store"
	"github.com/dataforge/dataset-pipeline/pkg/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline api and the job scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, teardown, err := setup()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}
		defer teardown()

		zap.S().Info("Starting API service")
		defer zap.S().Info("API service stopped")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			return fmt.Errorf("initializing data store: %w", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := migrate(db, s, cfg); err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		blobStore, blobHandler, err := newBlobStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initializing blob store: %w", err)
		}
		zap.S().Infow("blob store initialized", "type", blobStore.Type())

		notifier, closeNotifier, err := newNotifier(cfg)
		if err != nil {
			return fmt.Errorf("initializing events writer: %w", err)
		}
		defer closeNotifier()

		sched := scheduler.New(s, blobStore,
			scheduler.WithConcurrency(cfg.Scheduler.Concurrency),
			scheduler.WithBatchSize(cfg.Scheduler.BatchSize),
			scheduler.WithPollInterval(cfg.Scheduler.PollInterval),
			scheduler.WithLogCap(cfg.Scheduler.LogCap),
			scheduler.WithOutputKeyPrefix(cfg.Scheduler.OutputKeyPrefix),
			scheduler.WithDatasetTTL(time.Duration(cfg.Scheduler.DatasetTTLSeconds)*time.Second),
			scheduler.WithRecoverStuckJobs(cfg.Scheduler.RecoverStuckJobs),
			scheduler.WithNotifier(notifier),
		)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer func() {
			stopCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stop()
			if err := sched.Stop(stopCtx); err != nil {
				zap.S().Named("scheduler").Warnw("failed to stop scheduler", "error", err)
			}
		}()

		presignTTL := time.Duration(cfg.Storage.PresignTTLSeconds) * time.Second
		h := handlers.NewServiceHandler(
			service.NewJobService(s, sched),
			service.NewDataSourceService(s, blobStore, presignTTL),
			service.NewSchemaMappingService(s),
			service.NewDatasetService(s, blobStore, presignTTL),
			service.NewPreviewService(),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				return fmt.Errorf("creating listener: %w", err)
			}
			return apiserver.New(cfg, h, blobHandler, listener).Run(gctx)
		})
		g.Go(func() error {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				return fmt.Errorf("creating metrics listener: %w", err)
			}
			return apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener, metrics.NewJobStatsCollector(s)).Run(gctx)
		})

		return g.Wait()
	},
}

// newBlobStore returns the configured store and, for the local store, the
// handler serving its presigned URLs.
func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, http.Handler, error) {
	switch cfg.Storage.Type {
	case config.StorageTypeLocal:
		local, err := blob.NewLocalStore(cfg.Storage.LocalRoot, cfg.Storage.LocalBaseURL, []byte(cfg.Storage.LocalSecret))
		if err != nil {
			return nil, nil, err
		}
		return local, local.Handler(), nil
	case config.StorageTypeMinio:
		minio, err := blob.NewMinioStore(
			blob.WithEndpoint(cfg.Storage.Endpoint),
			blob.WithBucket(cfg.Storage.Bucket),
			blob.WithAccessKey(cfg.Storage.AccessKey),
			blob.WithSecretKey(cfg.Storage.SecretKey),
			blob.WithRegion(cfg.Storage.Region),
			blob.WithSSL(cfg.Storage.UseSSL),
		)
		if err != nil {
			return nil, nil, err
		}
		if err := minio.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		return minio, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

// newNotifier builds the progress event producer. The returned func flushes
// and closes it.
func newNotifier(cfg *config.Config) (events.Notifier, func(), error) {
	var w events.Writer
	switch cfg.Events.Writer {
	case config.EventsWriterNone:
		return events.NopNotifier{}, func() {}, nil
	case config.EventsWriterStdout:
		w = events.NewStdoutWriter()
	case config.EventsWriterKafka:
		kafka, err := events.NewKafkaWriter(cfg.Events.KafkaBrokers)
		if err != nil {
			return nil, nil, err
		}
		w = kafka
	default:
		return nil, nil, fmt.Errorf("unknown events writer %q", cfg.Events.Writer)
	}

	producer := events.NewEventProducer(w, events.WithOutputTopic(cfg.Events.KafkaTopic))
	return producer, func() {
		if err := producer.Close(); err != nil {
			zap.S().Named("events").Warnw("failed to close event producer", "error", err)
		}
	}, nil
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
