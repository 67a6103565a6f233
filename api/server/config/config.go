package config

import (
	"os"

	"github.com/porter-dev/matrix-agent/internal/envconf"
	"github.com/porter-dev/matrix-agent/internal/repository"
	"github.com/porter-dev/matrix-agent/pkg/logstore"
	"github.com/porter-dev/matrix-agent/pkg/metrics"
	"github.com/porter-dev/matrix-agent/pkg/queue"
	"github.com/porter-dev/matrix-agent/pkg/runner"
	"github.com/porter-dev/matrix-agent/pkg/workflow"
	"github.com/porter-dev/porter/api/server/shared/apierrors/alerter"
	"github.com/porter-dev/porter/pkg/logger"
)

type Config struct {
	// Logger for logging
	Logger *logger.Logger

	// Alerter to send alerts to a third-party aggregator
	Alerter alerter.Alerter

	Repository *repository.Repository

	LogStore     logstore.LogStore
	LogStoreKind string

	// Dispatcher plans incoming events and queues the resulting runs
	Dispatcher *runner.Dispatcher
	Queue      queue.Queue

	Workflow     *workflow.Workflow
	ExecutorKind string

	Metrics *metrics.Metrics
}

func GetConfig(envConf *envconf.EnvDecoderConf, repo *repository.Repository, ls logstore.LogStore, dispatcher *runner.Dispatcher) (*Config, error) {
	var err error

	res := &Config{
		Logger:       logger.New(envConf.Debug, os.Stdout),
		Alerter:      alerter.NoOpAlerter{},
		Repository:   repo,
		LogStore:     ls,
		LogStoreKind: envConf.LogStoreConf.LogStoreKind,
		Dispatcher:   dispatcher,
		Queue:        dispatcher.Queue,
		Workflow:     dispatcher.Runner.Planner.Workflow(),
		ExecutorKind: dispatcher.Runner.Executor.Kind(),
		Metrics:      dispatcher.Runner.Metrics,
	}

	if envConf.SentryDSN != "" {
		res.Alerter, err = alerter.NewSentryAlerter(envConf.SentryDSN, envConf.SentryEnv)

		if err != nil {
			return nil, err
		}
	}

	return res, nil
}
