package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/nijaru/skryba/config"
	"github.com/nijaru/skryba/handlers/api"
	"github.com/nijaru/skryba/jobs"
	"github.com/nijaru/skryba/language"
	"github.com/nijaru/skryba/logger"
	"github.com/nijaru/skryba/repository/sqlite"
	"github.com/nijaru/skryba/scribe"
	"github.com/nijaru/skryba/scripts"
	"github.com/nijaru/skryba/storage"
	"github.com/nijaru/skryba/summary"
	"github.com/nijaru/skryba/translation"
	"github.com/nijaru/skryba/validation"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log, err := logger.New(logger.Options{
		Dir:   cfg.LogDir,
		File:  "skryba.log",
		Level: cfg.LogLevel,
		Debug: cfg.Debug,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Server stopped with error")
	}
	log.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	dbConfig := sqlite.DefaultDBConfig()
	dbConfig.MaxConnections = cfg.Database.MaxConnections
	dbConfig.MaxIdleConnections = cfg.Database.MaxIdleConnections
	dbConfig.ConnMaxLifetime = cfg.Database.ConnMaxLifetime

	db, err := sqlite.Open(ctx, cfg.Database.Path, dbConfig)
	if err != nil {
		return err
	}
	defer db.Close()

	manager := jobs.NewManager(sqlite.NewRepository(db), jobs.Config{
		BaseDir:       cfg.Workspace.BaseDir,
		ArchivePrefix: cfg.Workspace.ArchivePrefix,
	})
	defer manager.Wait()

	if cfg.Workspace.PurgeOnStart {
		if err := manager.PurgeAll(ctx); err != nil {
			return err
		}
	}

	runner, err := scripts.NewScriptRunner(scripts.Config{
		PythonPath:   cfg.Scripts.PythonPath,
		ScriptsPath:  cfg.Scripts.ScriptsPath,
		Device:       cfg.Scripts.Device,
		BatchSize:    cfg.Scripts.BatchSize,
		SummaryModel: cfg.Summary.ModelName,
		Environment:  cfg.Scripts.Environment,
	})
	if err != nil {
		return err
	}

	pipeline, err := newPipeline(ctx, cfg, runner)
	if err != nil {
		return err
	}

	var exporter jobs.Exporter
	if cfg.Storage.Enabled {
		spaces, err := storage.NewSpacesClient(ctx, storage.SpacesConfig{
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			Bucket:    cfg.Storage.Bucket,
		})
		if err != nil {
			return err
		}
		exporter = spaces
	}

	processor := jobs.NewProcessor(manager, pipeline, exporter)

	sweeper, err := jobs.NewSweeper(manager, cfg.Cleanup.SweepCron, cfg.Cleanup.OrphanTTL)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	validator := validation.NewValidator(cfg.Workspace.MaxUploadSize)
	server := api.NewServer(cfg,
		api.WithLogger(log),
		api.WithHealthCheck(db),
		api.WithHandlers(
			api.NewScribeHandler(manager, processor, validator, cfg.Workspace.MaxUploadSize),
			api.NewJobHandler(manager),
		),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newPipeline(ctx context.Context, cfg *config.Config, runner *scripts.ScriptRunner) (*scribe.Pipeline, error) {
	var detector language.Detector = language.NewWhatlangDetector()
	if cfg.Pipeline.Detector == config.DetectorScript {
		detector = runner
	}

	var summaryModel summary.Model = runner
	if cfg.Summary.Backend == config.SummaryBackendGemini {
		gemini, err := summary.NewGeminiModel(ctx, cfg.Summary.GeminiAPIKey, cfg.Summary.GeminiModel)
		if err != nil {
			return nil, err
		}
		summaryModel = gemini
	}

	model := translation.NewRemoteModel(cfg.Translation.ModelURL, cfg.Translation.Timeout)

	return scribe.NewFromModels(scribe.Config{
		SummarizationBackend:       cfg.Summary.Backend,
		TranslationEnabled:         cfg.Pipeline.TranslationEnabled,
		ChunkCharBudget:            cfg.Pipeline.ChunkCharBudget,
		ChunkTokenBudget:           cfg.Pipeline.ChunkTokenBudget,
		GroupSize:                  cfg.Pipeline.GroupSize,
		DetectSampleChars:          cfg.Pipeline.DetectSampleChars,
		CanonicalLanguage:          cfg.Pipeline.CanonicalLanguage,
		LineWiseSummaryTranslation: cfg.Pipeline.LineWiseSummaryTranslation,
		DefaultModel:               cfg.Pipeline.DefaultModel,
	}, scribe.Models{
		Transcriber:  runner,
		Detector:     detector,
		Tokenizer:    model,
		Generator:    model,
		SummaryModel: summaryModel,
	}), nil
}
