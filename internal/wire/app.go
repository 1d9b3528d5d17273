// Package wire 提供依赖装配
package wire

import (
	"context"

	einoembedding "github.com/cloudwego/eino/components/embedding"

	"z-carousel-ai-api/internal/application/agent"
	"z-carousel-ai-api/internal/application/pipeline"
	"z-carousel-ai-api/internal/application/retrieval"
	"z-carousel-ai-api/internal/application/tooling"
	"z-carousel-ai-api/internal/config"
	"z-carousel-ai-api/internal/domain/entity"
	"z-carousel-ai-api/internal/domain/repository"
	infraembedding "z-carousel-ai-api/internal/infrastructure/embedding"
	"z-carousel-ai-api/internal/infrastructure/imagegen"
	"z-carousel-ai-api/internal/infrastructure/llm"
	"z-carousel-ai-api/internal/infrastructure/messaging"
	"z-carousel-ai-api/internal/infrastructure/persistence/milvus"
	"z-carousel-ai-api/internal/infrastructure/persistence/postgres"
	persistredis "z-carousel-ai-api/internal/infrastructure/persistence/redis"
	"z-carousel-ai-api/internal/infrastructure/research"
	obseino "z-carousel-ai-api/internal/observability/eino"
	wfchain "z-carousel-ai-api/internal/workflow/chain"
	"z-carousel-ai-api/pkg/logger"
)

// App 应用依赖容器，api-gateway 与 job-worker 共用同一套装配
type App struct {
	Config *config.Config

	Postgres *postgres.Client
	Redis    *persistredis.Client
	Milvus   *milvus.Client

	Cache       *persistredis.Cache
	RateLimiter *persistredis.RateLimiter
	Producer    *messaging.Producer

	KnowledgeRepo *postgres.KnowledgeRepository
	AssetRepo     *postgres.AssetRepository
	RunRepo       *postgres.RunRepository

	Engine     *retrieval.Engine
	Dispatcher *tooling.Dispatcher
	Service    *pipeline.Service
}

// NewApp 装配应用依赖。
// Milvus 与 Embedding 是可选增强，初始化失败只降级不中断启动。
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	// LLM 全局回调只注册一次
	obseino.Init()

	pg, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	if err := pg.AutoMigrate(
		&entity.KnowledgeDocument{},
		&entity.BrandAsset{},
		&entity.CarouselRun{},
	); err != nil {
		_ = pg.Close()
		return nil, err
	}

	rdb, err := persistredis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	cache := persistredis.NewCache(rdb)
	rateLimiter := persistredis.NewRateLimiter(rdb)
	producer := messaging.NewProducer(rdb.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))

	knowledgeRepo := postgres.NewKnowledgeRepository(pg)
	assetRepo := postgres.NewAssetRepository(pg)
	runRepo := postgres.NewRunRepository(pg)

	// 可选：风格参考向量库
	var (
		milvusClient *milvus.Client
		inspirations repository.InspirationRepository
	)
	if cfg.Vector.Milvus.Enabled {
		milvusClient, err = milvus.NewClient(ctx, &cfg.Vector.Milvus)
		if err != nil {
			logger.Warn(ctx, "milvus unavailable, inspiration store disabled", "error", err)
		} else {
			repo := milvus.NewInspirationRepository(milvusClient)
			if err := repo.EnsureCollection(ctx); err != nil {
				logger.Warn(ctx, "failed to prepare inspiration collection, store disabled", "error", err)
				_ = milvusClient.Close()
				milvusClient = nil
			} else {
				inspirations = repo
			}
		}
	}

	// 可选：embedding 客户端，缺失时策略师跳过风格参考
	var embedder einoembedding.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder, err = infraembedding.NewEinoEmbedder(ctx, &cfg.Embedding)
		if err != nil {
			logger.Warn(ctx, "embedder unavailable, inspiration retrieval disabled", "error", err)
			embedder = nil
		}
	}

	factory := llm.NewEinoFactory(cfg)
	strategistChain := wfchain.NewStrategistChain(factory)
	copywriterChain := wfchain.NewCopywriterChain(factory)
	reviewerChain := wfchain.NewReviewerChain(factory)

	engine := retrieval.NewEngine(knowledgeRepo)

	// 可选外部协作方：未配置端点时分发器返回结构化失败
	var imageGen tooling.ImageGenerator
	if cfg.ImageGen.Endpoint != "" {
		imageGen = imagegen.NewClient(&cfg.ImageGen)
	}
	var researcher tooling.Researcher
	if cfg.Research.Endpoint != "" {
		researcher = tooling.NewCachedResearcher(research.NewClient(&cfg.Research), cache, cfg.Research.CacheTTL)
	}

	dispatcher := tooling.NewDispatcher(engine, assetRepo, imageGen, researcher)

	strategist := agent.NewStrategist(strategistChain, engine, researcher, embedder, inspirations, &cfg.Brand, cfg.Pipeline.InspirationTopK)
	copywriter := agent.NewCopywriter(copywriterChain, engine, &cfg.Brand)
	designer := agent.NewDesigner(dispatcher, &cfg.Brand)
	reviewer := agent.NewReviewer(reviewerChain, &cfg.Brand)

	orchestrator := pipeline.NewOrchestrator(strategist, copywriter, designer, reviewer, runRepo, inspirations, &cfg.Pipeline)
	service := pipeline.NewService(orchestrator, runRepo, producer, &cfg.Pipeline)

	return &App{
		Config:        cfg,
		Postgres:      pg,
		Redis:         rdb,
		Milvus:        milvusClient,
		Cache:         cache,
		RateLimiter:   rateLimiter,
		Producer:      producer,
		KnowledgeRepo: knowledgeRepo,
		AssetRepo:     assetRepo,
		RunRepo:       runRepo,
		Engine:        engine,
		Dispatcher:    dispatcher,
		Service:       service,
	}, nil
}

// Close 释放全部持有的连接
func (a *App) Close(ctx context.Context) {
	if a.Milvus != nil {
		if err := a.Milvus.Close(); err != nil {
			logger.Warn(ctx, "failed to close milvus client", "error", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warn(ctx, "failed to close redis client", "error", err)
		}
	}
	if a.Postgres != nil {
		if err := a.Postgres.Close(); err != nil {
			logger.Warn(ctx, "failed to close postgres client", "error", err)
		}
	}
}
