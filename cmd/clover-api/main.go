package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/clover/config"
	tradelinerepo "github.com/Ramsey-B/clover/internal/repositories/tradeline"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/normalize"
	"github.com/Ramsey-B/clover/pkg/processor"
	healthroutes "github.com/Ramsey-B/clover/pkg/routes/health"
	tradelineroutes "github.com/Ramsey-B/clover/pkg/routes/tradeline"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	shutdownTracing := tracing.Init(cfg.AppName)

	db, err := database.Connect(ctx, logger, database.ConnectConfig{
		URL:             databaseURL(cfg),
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}

	if err := runMigrations(db, logger, cfg); err != nil {
		logger.WithError(err).Error("Failed to run migrations")
		os.Exit(1)
	}

	repo := tradelinerepo.NewRepository(db, logger)
	normalizer := normalize.New()
	comparator := matching.NewComparator(normalizer)

	thresholds := matching.DefaultThresholds()
	thresholds.CreditorMin = cfg.MatchCreditorMin
	thresholds.AccountMin = cfg.MatchAccountMin
	thresholds.OverallMin = cfg.MatchOverallMin
	thresholds.RequireDateMatch = cfg.MatchRequireDateMatch
	engine := matching.NewEngine(logger, comparator, thresholds)

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)

	emitter := events.NewEmitter(producer, logger)
	proc := processor.NewProcessor(logger, repo, engine, normalizer, emitter)

	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaInputTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger, ingestHandler(logger, proc))

		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Error("Failed to start Kafka consumer")
			os.Exit(1)
		}
	}

	if err := registerDependencies(repo, proc); err != nil {
		logger.WithError(err).Error("Failed to register dependencies")
		os.Exit(1)
	}

	var consumerCheck healthroutes.Consumer
	if consumer != nil {
		consumerCheck = consumer
	}
	checker := healthroutes.NewChecker(db, consumerCheck, cfg.Version)

	e := newServer(cfg, logger, checker)
	checker.SetReady(true)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server stopped unexpectedly")
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.WithField("signal", sig.String()).Info("Shutting down")

	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.WithError(err).Error("Failed to stop Kafka consumer")
		}
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down HTTP server")
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Error("Failed to close Kafka producer")
	}
	if err := db.Close(); err != nil {
		logger.WithError(err).Error("Failed to close database")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to flush traces")
	}
}

func newLogger(cfg config.Config) ectologger.Logger {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		level = parsed
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func databaseURL(cfg config.Config) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
		cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)
}

func runMigrations(db *database.DatabaseInstance, logger ectologger.Logger, cfg config.Config) error {
	driver, err := migratepg.WithInstance(db.DB.DB, &migratepg.Config{})
	if err != nil {
		return err
	}

	ms := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             cfg.DatabaseMigrationVersion,
	})
	return ms.Migrate(cfg.DatabaseName, driver)
}

func registerDependencies(repo *tradelinerepo.Repository, proc *processor.Processor) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[*tradelinerepo.Repository](container, repo); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*processor.Processor](container, proc)
}

// ingestHandler processes extraction messages from the document pipeline.
// A message with no owner cannot be processed and is dropped; processing
// failures return the error so the message is retried.
func ingestHandler(logger ectologger.Logger, proc *processor.Processor) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.IncomingMessage) error {
		ownerID := msg.GetOwnerID()
		if ownerID == "" {
			logger.WithContext(ctx).WithFields(map[string]any{
				"topic":  msg.Topic,
				"offset": msg.Offset,
			}).Error("Extraction message has no owner id, dropping")
			return nil
		}

		_, err := proc.ProcessBatch(ctx, ownerID, msg.GetDocumentID(), msg.Extraction.Tradelines)
		return err
	}
}

func newServer(cfg config.Config, logger ectologger.Logger, checker *healthroutes.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(echomw.Recover())

	checker.RegisterRoutes(e)
	tradelineroutes.Register(e.Group("/api/v1/tradelines"))

	return e
}
