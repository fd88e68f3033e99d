package di

import (
	"context"
	"fmt"
	"os"
	"time"

	"CycleScope/internal/domain/repository"
	"CycleScope/internal/domain/service"
	"CycleScope/internal/handler/api"
	internalrepo "CycleScope/internal/repository"
	"CycleScope/internal/service/notify"
	"CycleScope/internal/service/ratelimit"
	"CycleScope/internal/services/scoring"
	"CycleScope/internal/services/sources"
	"CycleScope/internal/usecase"
	"CycleScope/pkg/cache"
	pkgch "CycleScope/pkg/clickhouse"
	"CycleScope/pkg/config"
	xhttp "CycleScope/pkg/http"
	pkgkafka "CycleScope/pkg/kafka"
	"CycleScope/pkg/logger"
	"CycleScope/pkg/metrics"
	"CycleScope/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("service", cfg.App.Name), logger.String("env", cfg.App.Environment)), nil
}

// ProvideMetrics creates the Prometheus recorder on the default registry.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New(nil)
}

// ProvideKafkaProducer creates a Kafka producer and ships warn/error logs
// through it. It returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}

	l.AddCollector(&logger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          cfg.Logging.Topic,
		Service:        cfg.App.Name,
		Publisher:      producer,
	})

	cleanup := func() {
		l.RemoveCollector()
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", logger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideKafkaConsumer creates the pushed-records consumer. It returns nil
// when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook{Log: l})
	return consumer, nil
}

// ProvideCache builds the cache selected by cache.type.
func ProvideCache(cfg *config.Config, l *logger.Logger) (cache.Service, func(), error) {
	memory := func() *cache.MemoryCache {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			cache.WithMemoryCleanup(cfg.Cache.CleanupInterval),
		)
	}
	redis := func() (*cache.RedisCache, error) {
		return cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPool(cfg.Redis.PoolSize, 2, 4*time.Second),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
	}

	switch cfg.Cache.Type {
	case "redis":
		rc, err := redis()
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, func() { _ = rc.Close() }, nil
	case "layered":
		rc, err := redis()
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		lc := cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
			cache.WithLayeredMemoryTTL(cfg.Cache.MemoryTTL),
		)
		return lc, func() { _ = lc.Close() }, nil
	default:
		mc := memory()
		l.Debug("using in-memory cache", logger.Int("max_size", cfg.Cache.MemoryMaxSize))
		return mc, func() { _ = mc.Close() }, nil
	}
}

// ProvideClassifier returns the built-in classifier.
func ProvideClassifier() *scoring.Classifier {
	return scoring.DefaultClassifier()
}

// ProvideWeightTable builds the table from config overrides, or the built-in
// declarations when none are set, and checks every entry has a ladder.
func ProvideWeightTable(cfg *config.Config, c *scoring.Classifier) (*scoring.WeightTable, error) {
	decls := scoring.DefaultDeclarations()
	if len(cfg.Scoring.Weights) > 0 {
		decls = make([]scoring.WeightDeclaration, 0, len(cfg.Scoring.Weights))
		for _, w := range cfg.Scoring.Weights {
			decls = append(decls, scoring.WeightDeclaration{
				ID:             w.ID,
				Name:           w.Name,
				DeclaredWeight: w.Weight,
				Rank:           w.Rank,
				Description:    w.Description,
				DataSource:     w.DataSource,
			})
		}
	}
	table, err := scoring.BuildWeightTable(decls)
	if err != nil {
		return nil, fmt.Errorf("weight table: %w", err)
	}
	if err := c.Validate(table); err != nil {
		return nil, fmt.Errorf("weight table: %w", err)
	}
	return table, nil
}

// ProvideScorer binds the weight table to a scorer.
func ProvideScorer(table *scoring.WeightTable) *scoring.Scorer {
	return scoring.NewScorer(table)
}

// ProvidePushSource creates the store for records pushed over Kafka.
func ProvidePushSource(cfg *config.Config, c *scoring.Classifier) *sources.PushSource {
	return sources.NewPushSource(cfg.Sources.Push.TTL, sources.WithClassifier(c))
}

// SourceSet is the enabled sources in registration order plus the names of
// the ones switched off.
type SourceSet struct {
	Enabled  []repository.IndicatorSource
	Disabled []string
}

// ProvideSources builds every upstream source from config. HTTP sources are
// wrapped in a cache with their own TTL; the push source is not.
func ProvideSources(cfg *config.Config, svc cache.Service, push *sources.PushSource, c *scoring.Classifier, l *logger.Logger) SourceSet {
	type entry struct {
		sc  config.SourceConfig
		new func(opts ...sources.Option) repository.IndicatorSource
	}
	entries := []entry{
		{cfg.Sources.Sentiment, func(o ...sources.Option) repository.IndicatorSource { return sources.NewSentimentSource(o...) }},
		{cfg.Sources.Market, func(o ...sources.Option) repository.IndicatorSource { return sources.NewMarketSource(o...) }},
		{cfg.Sources.Network, func(o ...sources.Option) repository.IndicatorSource { return sources.NewNetworkSource(o...) }},
		{cfg.Sources.Mempool, func(o ...sources.Option) repository.IndicatorSource { return sources.NewMempoolSource(o...) }},
		{cfg.Sources.Derivatives, func(o ...sources.Option) repository.IndicatorSource { return sources.NewDerivativesSource(o...) }},
		{cfg.Sources.Premium, func(o ...sources.Option) repository.IndicatorSource { return sources.NewPremiumSource(o...) }},
		{cfg.Sources.Onchain, func(o ...sources.Option) repository.IndicatorSource { return sources.NewOnchainSource(o...) }},
	}

	var set SourceSet
	for _, e := range entries {
		opts := []sources.Option{
			sources.WithLogger(l),
			sources.WithClassifier(c),
			sources.WithFallback(e.sc.Fallback),
		}
		if e.sc.BaseURL != "" {
			opts = append(opts, sources.WithBaseURL(e.sc.BaseURL))
		}
		if e.sc.APIKey != "" {
			opts = append(opts, sources.WithAPIKey(e.sc.APIKey))
		}
		src := e.new(opts...)
		if !e.sc.Enabled {
			set.Disabled = append(set.Disabled, src.Name())
			continue
		}
		set.Enabled = append(set.Enabled, sources.NewCachedSource(src, svc, e.sc.TTL, l))
	}

	// push goes last so pushed records override polled ones with the same id
	if cfg.Sources.Push.Enabled {
		set.Enabled = append(set.Enabled, push)
	} else {
		set.Disabled = append(set.Disabled, push.Name())
	}
	return set
}

// ProvideCollector creates the source fan-out.
func ProvideCollector(cfg *config.Config, set SourceSet, m repository.Metrics, l *logger.Logger) *usecase.IndicatorCollector {
	return usecase.NewIndicatorCollector(set.Enabled, m, l,
		usecase.WithSourceTimeout(cfg.Scoring.SourceTimeout),
		usecase.WithDisabledSources(set.Disabled...),
	)
}

// ProvideScoreStore opens ClickHouse when enabled and falls back to the
// in-memory ring otherwise.
func ProvideScoreStore(cfg *config.Config, l *logger.Logger) (repository.ScoreStore, func(), error) {
	if !cfg.ClickHouse.Enabled {
		l.Info("clickhouse disabled, keeping history in memory")
		return internalrepo.NewMemoryScoreStore(0), func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithDSN(cfg.ClickHouse.DSN),
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	store := internalrepo.NewCHScoreStore(client, cfg.ClickHouse.Database, l)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

// ProvideScorePublisher publishes to Kafka when a producer exists.
func ProvideScorePublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.ScorePublisher {
	if producer == nil {
		return internalrepo.NoopPublisher{}
	}
	return internalrepo.NewKafkaScorePublisher(producer, cfg.Kafka.ScoresTopic)
}

// ProvideNotifier sends signal changes to Telegram when enabled and only
// logs them otherwise.
func ProvideNotifier(cfg *config.Config, l *logger.Logger) (service.Notifier, error) {
	if !cfg.Telegram.Enabled {
		return notify.NewLogNotifier(l), nil
	}
	n, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, l)
	if err != nil {
		return nil, fmt.Errorf("telegram notifier: %w", err)
	}
	return n, nil
}

// ProvideScoreService creates the scoring loop.
func ProvideScoreService(
	cfg *config.Config,
	collector *usecase.IndicatorCollector,
	scorer *scoring.Scorer,
	c *scoring.Classifier,
	store repository.ScoreStore,
	publisher repository.ScorePublisher,
	notifier service.Notifier,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.ScoreService {
	return usecase.NewScoreService(collector, scorer, store, publisher, notifier, m, l,
		usecase.WithInterval(cfg.Scoring.Interval),
		usecase.WithDebounce(cfg.Scoring.Debounce),
		usecase.WithClassifier(c),
	)
}

// ProvideRecordsHandler handles records pushed on the records topic.
func ProvideRecordsHandler(cfg *config.Config, push *sources.PushSource, svc *usecase.ScoreService, m repository.Metrics, l *logger.Logger) *usecase.RecordsHandler {
	return usecase.NewRecordsHandler(cfg.Kafka.RecordsTopic, push, svc, m, l)
}

// ProvideRateLimiter bounds manual refreshes.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.HTTP.RefreshRate, cfg.HTTP.RefreshBurst)
}

// ProvideScoreHandler creates the HTTP/WS handler.
func ProvideScoreHandler(
	l *logger.Logger,
	svc *usecase.ScoreService,
	store repository.ScoreStore,
	c *scoring.Classifier,
	rl *ratelimit.Limiter,
	m repository.Metrics,
	responses cache.Service,
) *api.ScoreHandler {
	return api.NewScoreHandler(l, svc, store, c, rl, m, api.WithResponseCache(responses))
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h *api.ScoreHandler, rec *metrics.Recorder, l *logger.Logger) *xhttp.Server {
	return xhttp.NewServer(h, l,
		xhttp.WithPort(cfg.HTTP.Port),
		xhttp.WithTimeouts(cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout, cfg.HTTP.ShutdownTimeout),
		xhttp.WithMetrics(cfg.HTTP.MetricsPath, rec.Handler()),
		xhttp.WithCORS(cfg.HTTP.CORSOrigins...),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	svc *usecase.ScoreService,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	records *usecase.RecordsHandler,
) *server.App {
	host, _ := os.Hostname()
	l.Info("application wired",
		logger.String("host", host),
		logger.Bool("kafka", cfg.Kafka.Enabled),
		logger.Bool("clickhouse", cfg.ClickHouse.Enabled),
		logger.Bool("telegram", cfg.Telegram.Enabled),
		logger.String("cache", cfg.Cache.Type),
	)
	return server.New(cfg, l, svc, srv, consumer, records)
}
