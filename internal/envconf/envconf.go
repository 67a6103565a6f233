package envconf

import (
	"github.com/porter-dev/matrix-agent/pkg/alerter"
	"github.com/porter-dev/matrix-agent/pkg/httpclient"
	"github.com/porter-dev/porter/api/server/shared/config/env"
)

type LogStoreConf struct {
	LogStoreAddress string `env:"LOG_STORE_ADDRESS,default=http://loki:3100"`
	LogStoreKind    string `env:"LOG_STORE_KIND,default=memory"`
	LogStoreDir     string `env:"LOG_STORE_DIR"`
}

type QueueConf struct {
	QueueKind     string `env:"QUEUE_KIND,default=memory"`
	RedisHost     string `env:"REDIS_HOST,default=matrix-redis-master"`
	RedisPort     string `env:"REDIS_PORT,default=6379"`
	RedisUser     string `env:"REDIS_USER"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	// PollSeconds is how often the consumer checks the queue for pending runs
	PollSeconds int `env:"QUEUE_POLL_SECONDS,default=2"`
}

type ExecutorConf struct {
	ExecutorKind  string `env:"EXECUTOR_KIND,default=local"`
	CheckoutDir   string `env:"CHECKOUT_DIR,default=."`
	Shell         string `env:"SHELL_COMMAND,default=bash -e -c"`
	Parallelism   int    `env:"PARALLELISM,default=4"`
	KubeNamespace string `env:"KUBE_NAMESPACE,default=default"`
	KubeImage     string `env:"KUBE_IMAGE,default=rust:latest"`
	KubeClaimName string `env:"KUBE_CHECKOUT_CLAIM"`
}

type EnvDecoderConf struct {
	Debug        bool   `env:"DEBUG,default=true"`
	SentryDSN    string `env:"SENTRY_DSN"`
	SentryEnv    string `env:"SENTRY_ENV,default=dev"`
	ServerPort   uint   `env:"SERVER_PORT,default=10001"`
	WorkflowPath string `env:"WORKFLOW_PATH"`

	// ScheduleBranch is the branch scheduled runs are created for
	ScheduleBranch string `env:"SCHEDULE_BRANCH,default=master"`

	// RunRetentionHours is how long finished runs are kept
	RunRetentionHours int `env:"RUN_RETENTION_HOURS,default=720"`

	LogStoreConf   LogStoreConf
	QueueConf      QueueConf
	ExecutorConf   ExecutorConf
	AlertConf      alerter.AlertConf
	HTTPClientConf httpclient.HTTPClientConf
	DBConf         env.DBConf
}
