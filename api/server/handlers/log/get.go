package log

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/porter-dev/matrix-agent/api/server/config"
	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/matrix-agent/pkg/logstore"
	"github.com/porter-dev/porter/api/server/shared"
	"github.com/porter-dev/porter/api/server/shared/apierrors"
)

const defaultLimit = 1000

type GetLogHandler struct {
	decoderValidator shared.RequestDecoderValidator
	resultWriter     shared.ResultWriter

	Config *config.Config
}

func NewGetLogHandler(config *config.Config) *GetLogHandler {
	return &GetLogHandler{
		resultWriter:     shared.NewDefaultResultWriter(config.Logger, config.Alerter),
		decoderValidator: shared.NewDefaultRequestDecoderValidator(config.Logger, config.Alerter),
		Config:           config,
	}
}

func (h *GetLogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := &types.GetLogRequest{}

	if ok := h.decoderValidator.DecodeAndValidate(w, r, req); !ok {
		return
	}

	if req.StartRange == nil {
		days29 := time.Now().Add(-29 * 24 * time.Hour)
		req.StartRange = &days29
	}

	labels := map[string]string{
		"run": req.RunID,
	}

	if req.JobID != "" {
		labels["job"] = req.JobID
	}

	if req.Follow {
		h.follow(w, r, labels, *req.StartRange)
		return
	}

	if req.EndRange == nil {
		now := time.Now()
		req.EndRange = &now
	}

	if req.Limit == 0 {
		req.Limit = defaultLimit
	}

	lb := &logBuffer{}
	stopCh := make(chan struct{})

	err := h.Config.LogStore.Query(logstore.QueryOptions{
		Start:  *req.StartRange,
		End:    *req.EndRange,
		Limit:  uint32(req.Limit),
		Labels: labels,
	}, lb, stopCh)

	if err != nil {
		apierrors.HandleAPIError(h.Config.Logger, h.Config.Alerter, w, r, apierrors.NewErrInternal(err), true)
		return
	}

	res := &types.GetLogResponse{
		Logs: lb.Lines,
	}

	// a full page means there may be more lines after the last one. Ranges
	// are inclusive, so the next page starts just after it.
	if uint(len(lb.Lines)) >= req.Limit && lb.LatestTimestamp != nil {
		next := lb.LatestTimestamp.Add(time.Nanosecond)
		res.ContinueTime = &next
	}

	h.resultWriter.WriteResult(w, r, res)
}

func (h *GetLogHandler) follow(w http.ResponseWriter, r *http.Request, labels map[string]string, start time.Time) {
	flusher, ok := w.(http.Flusher)

	if !ok {
		apierrors.HandleAPIError(h.Config.Logger, h.Config.Alerter, w, r, apierrors.NewErrInternal(fmt.Errorf("streaming is not supported")), true)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stopCh := make(chan struct{})
	done := make(chan struct{})

	go func() {
		select {
		case <-r.Context().Done():
		case <-done:
		}

		close(stopCh)
	}()

	sw := &streamWriter{enc: json.NewEncoder(w), flusher: flusher}

	err := h.Config.LogStore.Tail(logstore.TailOptions{
		Labels: labels,
		Start:  start,
	}, sw, stopCh)

	close(done)

	if err != nil {
		h.Config.Logger.Warn().Caller().Msgf("log stream for %v ended: %v", labels, err)
	}
}

// streamWriter encodes each line as one JSON object and flushes it.
type streamWriter struct {
	mu      sync.Mutex
	enc     *json.Encoder
	flusher http.Flusher
}

func (s *streamWriter) Write(timestamp *time.Time, log string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(&types.LogLine{Timestamp: timestamp, Line: log}); err != nil {
		return err
	}

	s.flusher.Flush()

	return nil
}

type logBuffer struct {
	Lines           []types.LogLine
	LatestTimestamp *time.Time
}

func (l *logBuffer) Write(timestamp *time.Time, log string) error {
	if l.Lines == nil {
		l.Lines = make([]types.LogLine, 0)
	}

	l.Lines = append(l.Lines, types.LogLine{
		Timestamp: timestamp,
		Line:      log,
	})

	l.LatestTimestamp = timestamp

	return nil
}
