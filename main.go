package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"k8s.io/client-go/kubernetes"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// to ensure that exec-entrypoint and run can make use of them.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/joeshaw/envdecode"
	"github.com/porter-dev/matrix-agent/api/server/config"
	"github.com/porter-dev/matrix-agent/api/server/router"
	"github.com/porter-dev/matrix-agent/internal/adapter"
	"github.com/porter-dev/matrix-agent/internal/envconf"
	"github.com/porter-dev/matrix-agent/internal/logger"
	"github.com/porter-dev/matrix-agent/internal/repository"
	"github.com/porter-dev/matrix-agent/pkg/alerter"
	"github.com/porter-dev/matrix-agent/pkg/consumer"
	"github.com/porter-dev/matrix-agent/pkg/executor"
	"github.com/porter-dev/matrix-agent/pkg/httpclient"
	"github.com/porter-dev/matrix-agent/pkg/logstore"
	"github.com/porter-dev/matrix-agent/pkg/logstore/lokistore"
	"github.com/porter-dev/matrix-agent/pkg/logstore/memorystore"
	"github.com/porter-dev/matrix-agent/pkg/metrics"
	"github.com/porter-dev/matrix-agent/pkg/planner"
	"github.com/porter-dev/matrix-agent/pkg/pulsar"
	"github.com/porter-dev/matrix-agent/pkg/queue"
	"github.com/porter-dev/matrix-agent/pkg/runner"
	"github.com/porter-dev/matrix-agent/pkg/schedule"
	"github.com/porter-dev/matrix-agent/pkg/workflow"
)

func main() {
	var envDecoderConf envconf.EnvDecoderConf = envconf.EnvDecoderConf{}

	if err := envdecode.StrictDecode(&envDecoderConf); err != nil {
		logger.NewErrorConsole(true).Fatal().Caller().Msgf("could not decode env conf: %v", err)

		os.Exit(1)
	}

	l := logger.NewConsole(envDecoderConf.Debug)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w := workflow.Default()

	if envDecoderConf.WorkflowPath != "" {
		var err error

		w, err = workflow.Load(envDecoderConf.WorkflowPath)

		if err != nil {
			l.Fatal().Caller().Msgf("could not load workflow: %v", err)
		}
	}

	if envDecoderConf.ExecutorConf.Shell != "" && w.Defaults.Run.Shell == "" {
		w.Defaults.Run.Shell = envDecoderConf.ExecutorConf.Shell
	}

	p, err := planner.New(w)

	if err != nil {
		l.Fatal().Caller().Msgf("could not create planner: %v", err)
	}

	// create database connection through adapter
	db, err := adapter.New(&envDecoderConf.DBConf)

	if err != nil {
		l.Fatal().Caller().Msgf("could not create database connection: %v", err)
	}

	if err := repository.AutoMigrate(db, envDecoderConf.Debug); err != nil {
		l.Fatal().Caller().Msgf("auto migration failed: %v", err)
	}

	repo := repository.NewRepository(db)

	var logStore logstore.LogStore
	logStoreKind := envDecoderConf.LogStoreConf.LogStoreKind

	switch logStoreKind {
	case "memory":
		logStore, err = memorystore.New("matrix", memorystore.Options{Dir: envDecoderConf.LogStoreConf.LogStoreDir})
	case "loki":
		var lokiStore *lokistore.LokiStore

		lokiStore, err = lokistore.New("matrix", lokistore.LogStoreConfig{
			Address: envDecoderConf.LogStoreConf.LogStoreAddress,
		})

		if err == nil && !lokiStore.Reachable() {
			l.Warn().Caller().Msgf("loki at %s is not ready yet", envDecoderConf.LogStoreConf.LogStoreAddress)
		}

		logStore = lokiStore
	default:
		err = fmt.Errorf("unknown log store kind")
	}

	if err != nil {
		l.Fatal().Caller().Msgf("%s-based log store setup failed: %v", logStoreKind, err)
	}

	var exec executor.Executor

	switch envDecoderConf.ExecutorConf.ExecutorKind {
	case executor.KindLocal:
		exec = executor.NewLocalExecutor(envDecoderConf.ExecutorConf.CheckoutDir, l)
	case executor.KindKubernetes:
		kubeClient := kubernetes.NewForConfigOrDie(ctrl.GetConfigOrDie())

		exec = executor.NewKubernetesExecutor(
			kubeClient,
			envDecoderConf.ExecutorConf.KubeNamespace,
			envDecoderConf.ExecutorConf.KubeImage,
			envDecoderConf.ExecutorConf.KubeClaimName,
			l,
		)
	default:
		l.Fatal().Caller().Msgf("unknown executor kind %s", envDecoderConf.ExecutorConf.ExecutorKind)
	}

	var q queue.Queue

	switch envDecoderConf.QueueConf.QueueKind {
	case queue.KindMemory:
		q = queue.NewMemoryQueue()
	case queue.KindRedis:
		q = queue.NewRedisQueue(
			envDecoderConf.QueueConf.RedisHost,
			envDecoderConf.QueueConf.RedisPort,
			envDecoderConf.QueueConf.RedisUser,
			envDecoderConf.QueueConf.RedisPassword,
			envDecoderConf.QueueConf.RedisDB,
		)
	default:
		l.Fatal().Caller().Msgf("unknown queue kind %s", envDecoderConf.QueueConf.QueueKind)
	}

	client := httpclient.NewClient(&envDecoderConf.HTTPClientConf, l)

	runAlerter := &alerter.Alerter{
		AlertConf: &envDecoderConf.AlertConf,
		Client:    client,
		Logger:    l,
	}

	m := metrics.New()

	m.WatchQueue(func() (int64, error) {
		return q.Len(ctx)
	})

	r := &runner.Runner{
		Planner:     p,
		Repository:  repo,
		Executor:    exec,
		LogStore:    logStore,
		Metrics:     m,
		Alerter:     runAlerter,
		Logger:      l,
		Parallelism: envDecoderConf.ExecutorConf.Parallelism,
	}

	dispatcher := &runner.Dispatcher{
		Runner: r,
		Queue:  q,
	}

	runConsumer := consumer.NewRunConsumer(
		q,
		&consumer.RunnerExecutor{Runner: r},
		time.Duration(envDecoderConf.QueueConf.PollSeconds)*time.Second,
		l,
	)

	go runConsumer.Start(ctx)

	scheduler := schedule.NewScheduler(w, envDecoderConf.ScheduleBranch, dispatcher, time.Minute, l)

	go scheduler.Start(ctx)

	go cleanupFinishedRuns(ctx, repo, time.Duration(envDecoderConf.RunRetentionHours)*time.Hour, l)

	conf, err := config.GetConfig(&envDecoderConf, repo, logStore, dispatcher)

	if err != nil {
		l.Fatal().Caller().Msgf("server config loading failed: %v", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", envDecoderConf.ServerPort),
		Handler: router.NewAPIRouter(conf),
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		srv.Shutdown(shutdownCtx)
	}()

	l.Info().Caller().Msgf("serving %s workflow with %s executor on port %d", w.Name, exec.Kind(), envDecoderConf.ServerPort)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		l.Error().Caller().Msgf("error starting API server: %v", err)
	}
}

func cleanupFinishedRuns(ctx context.Context, repo *repository.Repository, retention time.Duration, l *logger.Logger) {
	p := pulsar.NewPulsar(time.Hour)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	for range p.Pulsate() {
		l.Info().Caller().Msgf("cleaning up finished runs")

		numDeleted, err := repo.Run.DeleteRunsFinishedBefore(time.Now().Add(-retention))

		if err != nil {
			l.Error().Caller().Msgf("error deleting finished runs: %v", err)
			continue
		}

		l.Info().Caller().Msgf("deleted %d finished runs from database", numDeleted)
	}
}
