package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/joeshaw/envdecode"
	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/matrix-agent/internal/adapter"
	"github.com/porter-dev/matrix-agent/internal/envconf"
	"github.com/porter-dev/matrix-agent/internal/logger"
	"github.com/porter-dev/matrix-agent/internal/models"
	"github.com/porter-dev/matrix-agent/internal/repository"
	"github.com/porter-dev/matrix-agent/pkg/executor"
	"github.com/porter-dev/matrix-agent/pkg/logstore"
	"github.com/porter-dev/matrix-agent/pkg/logstore/lokistore"
	"github.com/porter-dev/matrix-agent/pkg/logstore/memorystore"
	"github.com/porter-dev/matrix-agent/pkg/planner"
	"github.com/porter-dev/matrix-agent/pkg/queue"
	"github.com/porter-dev/matrix-agent/pkg/runner"
	"github.com/porter-dev/matrix-agent/pkg/workflow"
	"github.com/porter-dev/porter/api/server/shared/config/env"
	flag "github.com/spf13/pflag"
)

type options struct {
	workflowPath string
	event        string
	branch       string
	commit       string
	dir          string
	parallelism  int
	dryRun       bool
	jobs         []string
	debug        bool

	out io.Writer
}

type logsOptions struct {
	runID  string
	jobID  string
	since  string
	limit  uint32
	follow bool

	out io.Writer
}

// stdoutWriter prints job output as it arrives, prefixed with the job name.
type stdoutWriter struct {
	prefix string
	out    io.Writer
}

func (w *stdoutWriter) Write(timestamp *time.Time, log string) error {
	_, err := fmt.Fprintf(w.out, "[%s] %s\n", w.prefix, log)
	return err
}

// echoExecutor wraps an executor and mirrors each job's output to out.
type echoExecutor struct {
	executor.Executor

	out io.Writer
}

func (e *echoExecutor) Execute(ctx context.Context, id string, job *planner.Job, w logstore.Writer) *executor.Result {
	return e.Executor.Execute(ctx, id, job, logstore.MultiWriter(w, &stdoutWriter{prefix: job.Name, out: e.out}))
}

// lineWriter prints stored log lines with their timestamp.
type lineWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *lineWriter) Write(timestamp *time.Time, log string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ts := ""

	if timestamp != nil {
		ts = timestamp.Format(time.RFC3339Nano)
	}

	_, err := fmt.Fprintf(w.out, "%s %s\n", ts, log)

	return err
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "logs" {
		os.Exit(logsMain(os.Args[2:]))
	}

	opts := &options{out: os.Stdout}

	flag.StringVar(&opts.workflowPath, "workflow", "", "path to the workflow file, defaults to the built-in workflow")
	flag.StringVar(&opts.event, "event", string(types.EventTypePush), "triggering event: push, pull_request or schedule")
	flag.StringVar(&opts.branch, "branch", "master", "branch the event happened on")
	flag.StringVar(&opts.commit, "commit", "", "commit the event refers to")
	flag.StringVar(&opts.dir, "dir", ".", "source checkout to run the jobs in")
	flag.IntVar(&opts.parallelism, "parallelism", runner.DefaultParallelism, "number of jobs to run at once")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "print the planned jobs without running them")
	flag.StringSliceVar(&opts.jobs, "job", []string{}, "only run the given workflow jobs")
	flag.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	flag.Parse()

	l := logger.NewErrorConsole(opts.debug)

	os.Exit(run(opts, l))
}

func logsMain(args []string) int {
	opts := &logsOptions{out: os.Stdout}

	fs := flag.NewFlagSet("logs", flag.ExitOnError)

	fs.StringVar(&opts.runID, "run", "", "id of the run to print the output of")
	fs.StringVar(&opts.jobID, "job", "", "only print the output of this job of the run")
	fs.StringVar(&opts.since, "since", "", "only print lines after this RFC 3339 time")
	fs.Uint32Var(&opts.limit, "limit", 0, "maximum number of lines to print, ignored with --follow")
	fs.BoolVarP(&opts.follow, "follow", "f", false, "keep printing new lines until interrupted")

	fs.Parse(args)

	envDecoderConf := &envconf.EnvDecoderConf{}

	if err := envdecode.StrictDecode(envDecoderConf); err != nil {
		logger.NewErrorConsole(true).Error().Caller().Msgf("could not decode env conf: %v", err)
		return 2
	}

	l := logger.NewErrorConsole(envDecoderConf.Debug)

	logStore, err := newLogStore(envDecoderConf.LogStoreConf)

	if err != nil {
		l.Error().Caller().Msgf("%s-based log store setup failed: %v", envDecoderConf.LogStoreConf.LogStoreKind, err)
		return 2
	}

	stopCh := make(chan struct{})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sig
		close(stopCh)
	}()

	return runLogs(opts, logStore, l, stopCh)
}

func newLogStore(conf envconf.LogStoreConf) (logstore.LogStore, error) {
	switch conf.LogStoreKind {
	case "memory":
		return memorystore.New("matrix", memorystore.Options{Dir: conf.LogStoreDir})
	case "loki":
		return lokistore.New("matrix", lokistore.LogStoreConfig{Address: conf.LogStoreAddress})
	default:
		return nil, fmt.Errorf("unknown log store kind")
	}
}

func runLogs(opts *logsOptions, logStore logstore.LogStore, l *logger.Logger, stopCh <-chan struct{}) int {
	if opts.runID == "" {
		l.Error().Caller().Msg("--run must be provided")
		return 2
	}

	var start time.Time

	if opts.since != "" {
		var err error

		if start, err = time.Parse(time.RFC3339, opts.since); err != nil {
			l.Error().Caller().Msgf("valid RFC 3339 time must be provided: %v", err)
			return 2
		}
	}

	labels := map[string]string{"run": opts.runID}

	if opts.jobID != "" {
		labels["job"] = opts.jobID
	}

	w := &lineWriter{out: opts.out}

	var err error

	if opts.follow {
		err = logStore.Tail(logstore.TailOptions{Labels: labels, Start: start}, w, stopCh)
	} else {
		err = logStore.Query(logstore.QueryOptions{
			Labels: labels,
			Start:  start,
			End:    time.Now(),
			Limit:  opts.limit,
		}, w, stopCh)
	}

	if err != nil {
		l.Error().Caller().Msgf("could not read logs: %v", err)
		return 2
	}

	return 0
}

func run(opts *options, l *logger.Logger) int {
	if !types.EventType(opts.event).Valid() {
		l.Error().Caller().Msgf("unknown event %q, must be push, pull_request or schedule", opts.event)
		return 2
	}

	w := workflow.Default()

	if opts.workflowPath != "" {
		var err error

		if w, err = workflow.Load(opts.workflowPath); err != nil {
			l.Error().Caller().Msgf("%v", err)
			return 2
		}
	}

	if unknown := unknownJobs(w, opts.jobs); len(unknown) > 0 {
		l.Error().Caller().Msgf("no workflow job matches %s", strings.Join(unknown, ", "))
		return 2
	}

	p, err := planner.New(w)

	if err != nil {
		l.Error().Caller().Msgf("%v", err)
		return 2
	}

	ev := workflow.Event{
		Type:   types.EventType(opts.event),
		Branch: opts.branch,
		Commit: opts.commit,
		Time:   time.Now(),
	}

	if opts.dryRun {
		plan, err := p.Plan(ev)

		if err != nil {
			l.Error().Caller().Msgf("%v", err)
			return 2
		}

		printPlan(opts.out, plan.Filter(opts.jobs))

		return 0
	}

	tmpDir, err := os.MkdirTemp("", "matrix-cli")

	if err != nil {
		l.Error().Caller().Msgf("%v", err)
		return 2
	}

	defer os.RemoveAll(tmpDir)

	db, err := adapter.New(&env.DBConf{
		SQLLite:     true,
		SQLLitePath: filepath.Join(tmpDir, "matrix.db"),
	})

	if err != nil {
		l.Error().Caller().Msgf("%v", err)
		return 2
	}

	if err := repository.AutoMigrate(db, false); err != nil {
		l.Error().Caller().Msgf("%v", err)
		return 2
	}

	logStore, err := memorystore.New("cli", memorystore.Options{Dir: tmpDir})

	if err != nil {
		l.Error().Caller().Msgf("%v", err)
		return 2
	}

	r := &runner.Runner{
		Planner:     p,
		Repository:  repository.NewRepository(db),
		Executor:    &echoExecutor{Executor: executor.NewLocalExecutor(opts.dir, l), out: opts.out},
		LogStore:    logStore,
		Logger:      l,
		Parallelism: opts.parallelism,
		Jobs:        opts.jobs,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dispatcher := &runner.Dispatcher{Runner: r, Queue: queue.NewMemoryQueue()}

	queued, err := dispatcher.Dispatch(ctx, ev)

	if err != nil {
		l.Error().Caller().Msgf("%v", err)
		return 2
	}

	if queued == nil {
		fmt.Fprintf(opts.out, "%s event on %s matches no trigger of %s\n", ev.Type, ev.Branch, w.Name)
		return 0
	}

	item, err := dispatcher.Queue.Dequeue(ctx)

	if err != nil {
		l.Error().Caller().Msgf("%v", err)
		return 2
	}

	finished, err := r.Execute(ctx, item.RunID)

	if err != nil {
		l.Error().Caller().Msgf("%v", err)
		return 2
	}

	printRun(opts.out, finished)

	if finished.Status == types.RunStatusFailed {
		return 1
	}

	return 0
}

func unknownJobs(w *workflow.Workflow, ids []string) []string {
	var unknown []string

	for _, id := range ids {
		if w.Jobs.Get(id) == nil {
			unknown = append(unknown, id)
		}
	}

	return unknown
}

func printPlan(out io.Writer, plan *planner.Plan) {
	if plan == nil {
		fmt.Fprintln(out, "no trigger matches, nothing to run")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "JOB\tTOOLCHAIN\tSTEPS")

	for _, job := range plan.Jobs {
		var steps []string

		for _, step := range job.Steps {
			name := step.Name

			if step.Skipped {
				name = "(" + name + ")"
			}

			steps = append(steps, name)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\n", job.Name, job.Toolchain, strings.Join(steps, ", "))
	}

	tw.Flush()
}

func printRun(out io.Writer, run *models.Run) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "JOB\tSTATUS\tFAILURE\tEXIT CODE\tDURATION")

	for _, job := range run.Jobs {
		status := color.GreenString(string(job.Status))

		if job.Status == types.JobStatusFailed {
			status = color.RedString(string(job.Status))
		}

		var duration time.Duration

		if job.StartedAt != nil && job.FinishedAt != nil {
			duration = job.FinishedAt.Sub(*job.StartedAt).Round(time.Millisecond)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", job.Name, status, job.FailureKind, job.ExitCode, duration)
	}

	tw.Flush()

	fmt.Fprintf(out, "\nrun %s %s: %d of %d jobs failed\n", run.UniqueID, run.Status, run.NumFailed(), len(run.Jobs))
}
