package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	otellib "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/j4b6ski/oioioi/cmd/server/internal/aggregate"
	"github.com/j4b6ski/oioioi/cmd/server/internal/cli"
	"github.com/j4b6ski/oioioi/cmd/server/internal/contests"
	"github.com/j4b6ski/oioioi/cmd/server/internal/database"
	"github.com/j4b6ski/oioioi/cmd/server/internal/jobs"
	servermiddleware "github.com/j4b6ski/oioioi/cmd/server/internal/middleware"
	"github.com/j4b6ski/oioioi/cmd/server/internal/migrations"
	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/cmd/server/internal/routes"
	"github.com/j4b6ski/oioioi/cmd/server/internal/routes/admin"
	routesjudging "github.com/j4b6ski/oioioi/cmd/server/internal/routes/judging"
	routesv1 "github.com/j4b6ski/oioioi/cmd/server/internal/routes/v1"
	"github.com/j4b6ski/oioioi/cmd/server/internal/taskrunner"
	"github.com/j4b6ski/oioioi/internal/blobstore"
	"github.com/j4b6ski/oioioi/internal/config"
	"github.com/j4b6ski/oioioi/internal/exiterr"
	"github.com/j4b6ski/oioioi/internal/judging"
	"github.com/j4b6ski/oioioi/internal/logger"
	"github.com/j4b6ski/oioioi/internal/otel"
	"github.com/j4b6ski/oioioi/internal/policy"
	"github.com/j4b6ski/oioioi/internal/queue"
)

const name string = "github.com/j4b6ski/oioioi/cmd/server"

var tracer = otellib.Tracer(name)

type server struct {
	router        *echo.Echo
	config        *config.Config
	db            *gorm.DB
	aggregator    *aggregate.Aggregator
	taskRunner    *taskrunner.Client
	otelShutdown  func(context.Context) error
	monitorCancel func()
}

func queuer(ctx context.Context, cfg *config.Config, queueName string) (*queue.AzureQueuer, error) {
	qr, err := queue.NewAzureQueuer(
		cfg.Azure.StorageAccount.Name,
		cfg.Azure.StorageAccount.Key,
		cfg.Azure.StorageAccount.Queues.URL,
		queueName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue client for %s: %w", queueName, err)
	}

	if cfg.Azure.Dev {
		if err := qr.EnsureExists(ctx); err != nil {
			return nil, fmt.Errorf("failed to create queue %s: %w", queueName, err)
		}
	}
	return qr, nil
}

func sourceStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	switch cfg.SourceStore.Backend {
	case config.SourceStoreAzure:
		store, err := blobstore.NewAzureStore(
			cfg.Azure.StorageAccount.Name,
			cfg.Azure.StorageAccount.Key,
			cfg.SourceStore.BlobURL,
			cfg.SourceStore.Container,
		)
		if err != nil {
			return nil, err
		}
		if cfg.Azure.Dev {
			if err := store.EnsureExists(ctx); err != nil {
				return nil, err
			}
		}
		return blobstore.NewRetryStore(store, nil), nil
	case config.SourceStoreMinio:
		m := cfg.SourceStore.Minio
		store, err := blobstore.NewMinioStore(m.Endpoint, m.AccessKey, m.SecretKey, m.SSL, m.Bucket)
		if err != nil {
			return nil, err
		}
		return blobstore.NewRetryStore(store, nil), nil
	default:
		return nil, fmt.Errorf("unknown source store %q", cfg.SourceStore.Backend)
	}
}

func judgingBackend(ctx context.Context, cfg *config.Config) (judging.Backend, error) {
	var backend judging.Backend
	switch cfg.Judging.Backend {
	case config.JudgingBackendHTTP:
		httpBackend, err := judging.NewHTTPBackend(cfg.Judging.URL, cfg.Judging.Token, cfg.Judging.MaxRetries)
		if err != nil {
			return nil, err
		}
		backend = httpBackend
	case config.JudgingBackendQueue:
		qr, err := queuer(ctx, cfg, cfg.Azure.StorageAccount.Queues.JudgeRequests)
		if err != nil {
			return nil, err
		}
		backend = judging.NewQueueBackend(qr)
	default:
		return nil, fmt.Errorf("unknown judging backend %q", cfg.Judging.Backend)
	}

	if cfg.SourceStore == nil {
		logger.Logger.Warn("no source store configured, the judging backend reads sources elsewhere")
		return backend, nil
	}

	store, err := sourceStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize source store: %w", err)
	}
	return judging.NewSourceBackend(backend, store, cfg.SourceStore.URLTTL), nil
}

func initServer(ctx context.Context) (*server, error) {
	server := new(server)

	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize server config: %w", err)
	}
	server.config = cfg

	shutdownOTel, err := otel.SetupOTelSDK(ctx, cfg.Logging.UseOTLP, "server")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OTEL SDK: %w", err)
	}
	defer func() {
		// Something failed to initialize, make sure everything gets flushed to the server
		if server.otelShutdown == nil {
			otelShutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				time.Second*time.Duration(cfg.GracefulShutdownSecs),
			)
			defer cancel()

			if err = shutdownOTel(otelShutdownCtx); err != nil {
				logger.Logger.Error("failed to flush otel data", "error", err)
			}
		}
	}()

	ctx, span := tracer.Start(ctx, "initServer")
	defer span.End()

	logger.LogLevel.Set(slog.Level(cfg.Logging.App.Level))

	db, err := database.Open(ctx, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open database")
		return nil, err
	}

	err = migrations.Up(ctx, db)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to preform database migrations")
		return nil, fmt.Errorf("failed to perform database migrations: %w", err)
	}

	span.AddEvent("migrated database to latest version")

	if err = models.LoadUsersFromConfig(ctx, db, cfg.Users); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load users from config")
		return nil, fmt.Errorf("failed to load users from config: %w", err)
	}

	span.AddEvent("loaded users from config")

	judge, err := judgingBackend(ctx, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to initialize judging backend")
		return nil, fmt.Errorf("failed to initialize judging backend: %w", err)
	}

	span.AddEvent("initialized judging backend")

	policies := policy.Builtin()
	aggregator, err := aggregate.New(db, policies, judge, aggregate.OptionsFromConfig(cfg)...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to initialize aggregator")
		return nil, fmt.Errorf("failed to initialize aggregator: %w", err)
	}
	service := contests.NewService(db, policies, judge)

	e, err := routes.BuildEcho(logger.Logger, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "error building router")
		return nil, fmt.Errorf("error building router: %w", err)
	}

	span.AddEvent("created echo router")

	middlewareHandler := servermiddleware.Handler{DB: db}
	v1Handler := routesv1.NewHandler(service, cfg)
	adminHandler := admin.NewHandler(service, aggregator)
	judgingHandler := routesjudging.NewHandler(aggregator)

	v1Handler.AddRoutes(e, &middlewareHandler)
	adminHandler.AddRoutes(e, &middlewareHandler)
	judgingHandler.AddRoutes(e, &middlewareHandler)

	server.otelShutdown = shutdownOTel
	server.router = e
	server.db = db
	server.aggregator = aggregator
	server.taskRunner = taskrunner.Create()

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "initialized server")
	return server, nil
}

func (s *server) Start(ctx context.Context) error {
	monitorCtx, monitorCancel := context.WithCancel(ctx)
	s.monitorCancel = monitorCancel

	if s.config.Azure != nil {
		qr, err := queuer(ctx, s.config, s.config.Azure.StorageAccount.Queues.Judged)
		if err != nil {
			return err
		}

		handler := jobs.NewJudgedMsgHandler(s.aggregator)
		s.taskRunner.Run(monitorCtx, "monitor-judged-queue", func(ctx context.Context) {
			jobs.MonitorJudgedQueue(ctx, qr, handler, s.config.Judging.HandlerTimeout)
		})
	} else {
		logger.Logger.Warn("no azure storage account configured, judged events only arrive over http")
	}

	logger.Logger.Info("Starting services...")

	err := s.router.Start(s.config.ListenAddress)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *server) Shutdown() error {
	var errs error

	ctx, cancelTimeout := context.WithTimeout(
		context.Background(),
		time.Second*time.Duration(s.config.GracefulShutdownSecs),
	)
	defer cancelTimeout()

	if s.monitorCancel != nil {
		s.monitorCancel()
	}

	if err := s.router.Shutdown(ctx); err != nil {
		errs = errors.Join(errs, err)
	}

	if err := s.taskRunner.Shutdown(ctx); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to shutdown taskRunner gracefully: %w", err))
	}

	if s.otelShutdown != nil {
		errs = errors.Join(errs, s.otelShutdown(ctx))
	}

	return errs
}

// serve runs the api until ctx is done
func serve(ctx context.Context) error {
	server, err := initServer(ctx)
	if err != nil {
		return err
	}

	errch := make(chan error, 1)
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Got shutdown signal!")
		errch <- server.Shutdown()
		close(errch)
	}()

	if err := server.Start(ctx); err != nil {
		return err
	}

	if err := <-errch; err != nil {
		logger.Logger.Error("Error shutting down server", "error", err)
	}
	return nil
}

func main() {
	ctx, cancelSignal := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)

	logger.InitSlog(slog.LevelInfo)

	err := cli.Execute(ctx, serve)
	cancelSignal()
	if err != nil {
		logger.Logger.Error(err.Error())
		os.Exit(exiterr.Code(err))
	}
}
