//go:build wireinject
// +build wireinject

package di

import (
	"CycleScope/internal/domain/repository"
	"CycleScope/pkg/config"
	"CycleScope/pkg/metrics"
	"CycleScope/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,
		ProvideScoreStore,
		ProvideScorePublisher,
		ProvideNotifier,

		// Scoring core
		ProvideClassifier,
		ProvideWeightTable,
		ProvideScorer,

		// Sources and use cases
		ProvidePushSource,
		ProvideSources,
		ProvideCollector,
		ProvideScoreService,
		ProvideRecordsHandler,

		// HTTP
		ProvideRateLimiter,
		ProvideScoreHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
