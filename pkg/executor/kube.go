package executor

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/matrix-agent/internal/logger"
	"github.com/porter-dev/matrix-agent/pkg/logstore"
	"github.com/porter-dev/matrix-agent/pkg/planner"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const (
	LabelJobID       = "matrix-agent/job-id"
	LabelWorkflowJob = "matrix-agent/workflow-job"

	// failedCommandExitCode is the container exit code of a rendered script
	// whose command failed. The failed command is named by the exit marker.
	failedCommandExitCode = 3

	checkoutMountPath = "/checkout"
)

var exitMarker = regexp.MustCompile(`^::exit::(\d+)::(\d+)$`)

// KubernetesExecutor renders a job into a single batch/v1 Job running every
// step in one container.
type KubernetesExecutor struct {
	Client    kubernetes.Interface
	Namespace string
	Image     string

	// ClaimName, if set, is a PVC with the source checkout mounted at
	// /checkout
	ClaimName string

	PollInterval time.Duration
	Logger       *logger.Logger
}

func NewKubernetesExecutor(client kubernetes.Interface, namespace, image, claimName string, l *logger.Logger) *KubernetesExecutor {
	return &KubernetesExecutor{
		Client:       client,
		Namespace:    namespace,
		Image:        image,
		ClaimName:    claimName,
		PollInterval: 5 * time.Second,
		Logger:       l,
	}
}

func (e *KubernetesExecutor) Kind() string {
	return KindKubernetes
}

// commandRef locates a command of the rendered script.
type commandRef struct {
	step int
	cmd  int
}

// RenderScript returns the shell script executing job and the lookup table
// from command sequence number to command.
func RenderScript(job *planner.Job) (string, map[int]commandRef) {
	var sb strings.Builder

	refs := make(map[int]commandRef)
	seq := 0

	sb.WriteString("set +e\n")

	for i, step := range job.Steps {
		if step.Skipped {
			continue
		}

		fmt.Fprintf(&sb, "echo %s\n", shellQuote("##[step] "+step.Name))

		prefix := envPrefix(step.Env)

		if step.Commands == nil {
			seq++
			refs[seq] = commandRef{step: i}

			args := append(append([]string{}, job.Shell...), step.Script)
			writeCommand(&sb, prefix, args, seq)

			continue
		}

		for j, cmd := range step.Commands {
			seq++
			refs[seq] = commandRef{step: i, cmd: j}

			fmt.Fprintf(&sb, "echo %s\n", shellQuote("$ "+strings.Join(cmd.Args, " ")))
			writeCommand(&sb, prefix, cmd.Args, seq)
		}
	}

	return sb.String(), refs
}

func writeCommand(sb *strings.Builder, prefix string, args []string, seq int) {
	quoted := make([]string, 0, len(args))

	for _, arg := range args {
		quoted = append(quoted, shellQuote(arg))
	}

	fmt.Fprintf(sb, "%s%s\n", prefix, strings.Join(quoted, " "))
	fmt.Fprintf(sb, "rc=$?; if [ $rc -ne 0 ]; then echo \"::exit::%d::$rc\"; exit %d; fi\n", seq, failedCommandExitCode)
}

func envPrefix(env map[string]string) string {
	var sb strings.Builder

	for _, k := range sortedKeys(env) {
		fmt.Fprintf(&sb, "%s=%s ", k, shellQuote(env[k]))
	}

	return sb.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func (e *KubernetesExecutor) renderJob(id string, job *planner.Job, script string) *batchv1.Job {
	var backoffLimit int32 = 0

	labels := map[string]string{
		LabelJobID:       id,
		LabelWorkflowJob: job.WorkflowJob,
	}

	env := make([]corev1.EnvVar, 0, len(job.Env))

	for _, k := range sortedKeys(job.Env) {
		env = append(env, corev1.EnvVar{Name: k, Value: job.Env[k]})
	}

	container := corev1.Container{
		Name:    "job",
		Image:   e.Image,
		Command: []string{"sh", "-c", script},
		Env:     env,

		// the exit marker is the last line written before a failed exit
		TerminationMessagePolicy: corev1.TerminationMessageFallbackToLogsOnError,
	}

	podSpec := corev1.PodSpec{
		RestartPolicy: corev1.RestartPolicyNever,
	}

	if e.ClaimName != "" {
		container.WorkingDir = checkoutMountPath
		container.VolumeMounts = []corev1.VolumeMount{{Name: "checkout", MountPath: checkoutMountPath}}

		podSpec.Volumes = []corev1.Volume{{
			Name: "checkout",
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{ClaimName: e.ClaimName},
			},
		}}
	}

	podSpec.Containers = []corev1.Container{container}

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "matrix-" + uuid.NewString(),
			Namespace: e.Namespace,
			Labels:    labels,
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: &backoffLimit,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec:       podSpec,
			},
		},
	}
}

func (e *KubernetesExecutor) Execute(ctx context.Context, id string, job *planner.Job, w logstore.Writer) *Result {
	res := newResult(job)

	script, refs := RenderScript(job)

	kubeJob, err := e.Client.BatchV1().Jobs(e.Namespace).Create(ctx, e.renderJob(id, job, script), metav1.CreateOptions{})

	if err != nil {
		res.fail(firstPending(res), types.FailureKindInfrastructure, -1, fmt.Errorf("could not create job: %w", err))
		return res
	}

	defer e.cleanup(kubeJob.Name)

	e.Logger.Debug().Caller().Msgf("created job %s for %s (%s)", kubeJob.Name, job.Name, id)

	startedAt := now()

	succeeded, err := e.wait(ctx, kubeJob.Name)

	finishedAt := now()

	if err != nil {
		res.fail(firstPending(res), types.FailureKindInfrastructure, -1, err)
		return res
	}

	pod, err := e.findPod(ctx, kubeJob.Name)

	if err != nil {
		res.fail(firstPending(res), types.FailureKindInfrastructure, -1, err)
		return res
	}

	lines, err := e.streamLogs(ctx, pod.Name, w)

	if err != nil {
		e.Logger.Warn().Caller().Msgf("could not read logs of pod %s: %v", pod.Name, err)
	}

	for i := range res.Steps {
		res.Steps[i].StartedAt = startedAt
		res.Steps[i].FinishedAt = finishedAt
	}

	if succeeded {
		for i := range res.Steps {
			if res.Steps[i].Status == types.StepStatusPending {
				res.Steps[i].Status = types.StepStatusSucceeded
			}
		}

		return res
	}

	terminated := containerTerminated(pod)

	if terminated == nil || terminated.ExitCode != failedCommandExitCode {
		code := -1

		if terminated != nil {
			code = int(terminated.ExitCode)
		}

		res.fail(firstPending(res), types.FailureKindInfrastructure, code, fmt.Errorf("pod %s failed with exit code %d", pod.Name, code))
		return res
	}

	seq, rc, found := failedCommand(strings.Split(terminated.Message, "\n"))

	if !found {
		seq, rc, found = failedCommand(lines)
	}

	ref, known := refs[seq]

	if !found || !known {
		res.fail(firstPending(res), types.FailureKindInfrastructure, int(terminated.ExitCode), fmt.Errorf("pod %s failed without naming a known command", pod.Name))
		return res
	}

	for i := 0; i < ref.step; i++ {
		if res.Steps[i].Status == types.StepStatusPending {
			res.Steps[i].Status = types.StepStatusSucceeded
		}
	}

	step := job.Steps[ref.step]

	res.fail(ref.step, step.FailureKind(ref.cmd), rc, fmt.Errorf("step %s exited with %d", step.Name, rc))

	return res
}

func firstPending(res *Result) int {
	for i, s := range res.Steps {
		if s.Status == types.StepStatusPending {
			return i
		}
	}

	return -1
}

// wait blocks until the job completes and reports whether it succeeded.
func (e *KubernetesExecutor) wait(ctx context.Context, name string) (bool, error) {
	interval := e.PollInterval

	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		kubeJob, err := e.Client.BatchV1().Jobs(e.Namespace).Get(ctx, name, metav1.GetOptions{})

		if err != nil {
			return false, fmt.Errorf("could not get job %s: %w", name, err)
		}

		if kubeJob.Status.Succeeded > 0 {
			return true, nil
		}

		if kubeJob.Status.Failed > 0 {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *KubernetesExecutor) findPod(ctx context.Context, jobName string) (*corev1.Pod, error) {
	pods, err := e.Client.CoreV1().Pods(e.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "job-name=" + jobName,
	})

	if err != nil {
		return nil, fmt.Errorf("could not list pods of job %s: %w", jobName, err)
	}

	if len(pods.Items) == 0 {
		return nil, fmt.Errorf("job %s has no pods", jobName)
	}

	return &pods.Items[0], nil
}

func (e *KubernetesExecutor) streamLogs(ctx context.Context, podName string, w logstore.Writer) ([]string, error) {
	req := e.Client.
		CoreV1().
		Pods(e.Namespace).
		GetLogs(podName, &corev1.PodLogOptions{})

	podLogs, err := req.Stream(ctx)
	if err != nil {
		return nil, err
	}
	defer podLogs.Close()

	var lines []string

	scanner := bufio.NewScanner(podLogs)

	for scanner.Scan() {
		line := scanner.Text()
		lines = append(lines, line)

		if !exitMarker.MatchString(line) {
			writeLine(w, line)
		}
	}

	return lines, scanner.Err()
}

func (e *KubernetesExecutor) cleanup(name string) {
	propagation := metav1.DeletePropagationBackground

	err := e.Client.BatchV1().Jobs(e.Namespace).Delete(context.Background(), name, metav1.DeleteOptions{
		PropagationPolicy: &propagation,
	})

	if err != nil {
		e.Logger.Warn().Caller().Msgf("could not delete job %s: %v", name, err)
	}
}

func containerTerminated(pod *corev1.Pod) *corev1.ContainerStateTerminated {
	for _, status := range pod.Status.ContainerStatuses {
		if status.State.Terminated != nil {
			return status.State.Terminated
		}
	}

	return nil
}

// failedCommand returns the sequence number and exit code of the failed
// command as printed by the rendered script.
func failedCommand(lines []string) (seq, rc int, found bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		m := exitMarker.FindStringSubmatch(strings.TrimSpace(lines[i]))

		if m == nil {
			continue
		}

		s, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		code, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}

		return s, code, true
	}

	return 0, 0, false
}
