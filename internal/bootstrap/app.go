package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"jurisrag/internal/ai"
	"jurisrag/internal/app"
	"jurisrag/internal/cache"
	"jurisrag/internal/config"
	"jurisrag/internal/embedding"
	"jurisrag/internal/extract"
	"jurisrag/internal/langdetect"
	"jurisrag/internal/logger"
	"jurisrag/internal/metrics"
	mysqlClient "jurisrag/internal/platform/mysql"
	"jurisrag/internal/platform/objectstore"
	rabbitmqClient "jurisrag/internal/platform/rabbitmq"
	redisClient "jurisrag/internal/platform/redis"
	"jurisrag/internal/repository"
	"jurisrag/internal/vectorstore"
	"jurisrag/internal/worker"
)

type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Metrics

	MySQL   *gorm.DB
	Redis   *redis.Client
	MQConn  *amqp.Connection
	Objects *objectstore.Store

	Embedder *embedding.Chain
	Vectors  *vectorstore.Store
	Ingest   *app.IngestService
	QA       *app.QAService

	IngestWorker *worker.IngestWorker
	Dispatcher   *worker.LocalDispatcher

	StartedAt time.Time
}

// New wires the service from configuration. MySQL is required. Redis, RabbitMQ and
// the object store are optional and the service degrades without them.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	a := &App{
		Config:    cfg,
		Logger:    log,
		Metrics:   metrics.New(),
		StartedAt: time.Now(),
	}

	a.MySQL, err = mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlClient.Migrate(a.MySQL); err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		if a.Redis, err = redisClient.New(ctx, cfg.Redis); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, caches stay in process")
			a.Redis = nil
		}
	}
	if cfg.RabbitMQ.URL != "" {
		if a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL); err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, ingestion runs in process")
			a.MQConn = nil
		}
	}
	if cfg.Storage.Endpoint != "" {
		if a.Objects, err = objectstore.New(ctx, cfg.Storage); err != nil {
			log.Warn().Err(err).Msg("object store unavailable, raw files are not kept")
			a.Objects = nil
		}
	}

	a.Embedder = a.buildEmbedder()
	a.Vectors = a.openVectorStore(ctx)
	a.Ingest = a.buildIngest()
	a.QA = a.buildQA()
	return a, nil
}

func (a *App) buildEmbedder() *embedding.Chain {
	cfg := a.Config.Embedding
	log := logger.Component(a.Logger, "embedding")

	var providers []embedding.Provider
	for _, name := range cfg.Providers {
		switch name {
		case "remote":
			if cfg.APIKey == "" {
				log.Warn().Msg("remote embedding provider skipped: no api key")
				continue
			}
			client := ai.NewOpenAICompatibleClient(time.Duration(a.Config.LLM.TimeoutSeconds) * time.Second)
			providers = append(providers, embedding.NewRemoteProvider(client, embedding.RemoteConfig{
				BaseURL:           cfg.BaseURL,
				APIKey:            cfg.APIKey,
				Model:             cfg.Model,
				MaxRetries:        cfg.MaxRetries,
				RequestsPerSecond: cfg.RequestsPerSecond,
			}, log, a.Metrics))
		case "local":
			providers = append(providers, embedding.NewLocalProvider(embedding.LocalConfig{
				ModelPath:     cfg.LocalModelPath,
				VocabPath:     cfg.LocalVocabPath,
				SharedLibPath: cfg.ONNXSharedLibPath,
			}))
		case "hash":
			providers = append(providers, embedding.NewHashProvider(cfg.HashDimension))
		default:
			log.Warn().Str("provider", name).Msg("unknown embedding provider ignored")
		}
	}
	providers = embedding.EnsureFallback(providers, cfg.HashDimension)

	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	log.Info().Strs("providers", names).Int("dimension", cfg.Dimension).Msg("embedding chain ready")

	return embedding.NewChain(providers,
		embedding.WithDimension(cfg.Dimension),
		embedding.WithLogger(log),
		embedding.WithMetrics(a.Metrics),
	)
}

func (a *App) openVectorStore(ctx context.Context) *vectorstore.Store {
	opts := []vectorstore.Option{
		vectorstore.WithLogger(logger.Component(a.Logger, "vectorstore")),
		vectorstore.WithMetrics(a.Metrics),
	}
	if a.Redis != nil {
		ttl := time.Duration(a.Config.Redis.QueryVectorTTLSeconds) * time.Second
		opts = append(opts, vectorstore.WithQueryCache(cache.NewQueryVectorCache(a.Redis, a.Config.Embedding.Model, ttl)))
	}
	return vectorstore.Open(ctx, a.Config.Vector, a.Embedder, opts...)
}

func (a *App) buildIngest() *app.IngestService {
	cfg := a.Config
	detectorOpts := []langdetect.Option{langdetect.WithLogger(logger.Component(a.Logger, "langdetect"))}
	if a.Redis != nil {
		ttl := time.Duration(cfg.Redis.LanguageTTLSeconds) * time.Second
		detectorOpts = append(detectorOpts, langdetect.WithStore(cache.NewLanguageCache(a.Redis, ttl)))
	}

	var jobs app.JobPublisher
	if a.MQConn != nil {
		jobs = rabbitmqClient.NewIngestPublisher(a.MQConn, cfg.RabbitMQ.IngestQueue)
	} else {
		a.Dispatcher = worker.NewLocalDispatcher(cfg.Ingest.Workers, 0, a.Logger)
		jobs = a.Dispatcher
	}

	deps := app.IngestDeps{
		Documents: repository.NewLegalDocumentRepository(a.MySQL),
		Versions:  repository.NewDocumentVersionRepository(a.MySQL),
		Chunks:    repository.NewDocumentChunkRepository(a.MySQL),
		Relations: repository.NewDocumentRelationRepository(a.MySQL),
		Vectors:   a.Vectors,
		Jobs:      jobs,
		Extractor: extract.New(),
		Detector:  langdetect.New(detectorOpts...),
		Logger:    a.Logger,
		Metrics:   a.Metrics,
	}
	// a nil *objectstore.Store must not become a non-nil interface
	if a.Objects != nil {
		deps.Objects = a.Objects
	}

	return app.NewIngestService(deps, app.IngestConfig{
		ChunkSize:      cfg.Ingest.ChunkSize,
		ChunkOverlap:   cfg.Ingest.ChunkOverlap,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Workers:        cfg.Ingest.Workers,
		StripURLs:      cfg.Ingest.StripURLs,
		PresignTTL:     time.Duration(cfg.Storage.PresignTTLSeconds) * time.Second,
		StaleAfter:     cfg.StaleAfter(),
	})
}

func (a *App) buildQA() *app.QAService {
	cfg := a.Config.LLM
	opts := []app.QAOption{
		app.WithMaxContextTokens(cfg.MaxContextTokens),
		app.WithDefaultTopK(cfg.DefaultTopK),
		app.WithQALogger(logger.Component(a.Logger, "qa")),
		app.WithQAMetrics(a.Metrics),
	}
	if counter, err := app.NewTiktokenCounter(); err != nil {
		a.Logger.Warn().Err(err).Msg("tiktoken encoding unavailable, estimating context tokens")
	} else {
		opts = append(opts, app.WithTokenCounter(counter))
	}

	client := ai.NewOpenAICompatibleClient(time.Duration(cfg.TimeoutSeconds) * time.Second)
	chatCfg := ai.ChatConfig{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Model: cfg.Model}
	return app.NewQAService(a.Vectors, client, chatCfg, opts...)
}

// StartWorkers begins consuming ingestion jobs, from RabbitMQ when connected and
// from the in-process queue otherwise, then requeues documents an earlier run
// left pending or stuck in processing.
func (a *App) StartWorkers(ctx context.Context) error {
	if a.MQConn != nil {
		a.IngestWorker = worker.NewIngestWorker(a.MQConn, a.Ingest, a.Config.RabbitMQ.IngestQueue, a.Config.Ingest.Workers, a.Logger)
		if err := a.IngestWorker.Start(ctx); err != nil {
			return fmt.Errorf("start ingest worker failed: %w", err)
		}
	} else if a.Dispatcher != nil {
		a.Dispatcher.Start(ctx, a.Ingest)
	}

	if _, err := a.Ingest.Recover(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("requeue unfinished documents failed")
	}
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
	}
	if a.Vectors != nil {
		a.Vectors.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
