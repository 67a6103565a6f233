package run

import (
	"net/http"
	"time"

	"github.com/porter-dev/matrix-agent/api/server/config"
	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/matrix-agent/pkg/workflow"
	"github.com/porter-dev/porter/api/server/shared"
	"github.com/porter-dev/porter/api/server/shared/apierrors"
)

type TriggerRunHandler struct {
	decoderValidator shared.RequestDecoderValidator
	resultWriter     shared.ResultWriter
	config           *config.Config
}

func NewTriggerRunHandler(config *config.Config) *TriggerRunHandler {
	return &TriggerRunHandler{
		resultWriter:     shared.NewDefaultResultWriter(config.Logger, config.Alerter),
		decoderValidator: shared.NewDefaultRequestDecoderValidator(config.Logger, config.Alerter),
		config:           config,
	}
}

func (h *TriggerRunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := &types.TriggerRunRequest{}

	if ok := h.decoderValidator.DecodeAndValidate(w, r, req); !ok {
		return
	}

	run, err := h.config.Dispatcher.Dispatch(r.Context(), workflow.Event{
		Type:   req.Event,
		Branch: req.Branch,
		Commit: req.Commit,
		Time:   time.Now(),
	})

	if err != nil {
		apierrors.HandleAPIError(h.config.Logger, h.config.Alerter, w, r, apierrors.NewErrInternal(err), true)
		return
	}

	res := &types.TriggerRunResponse{
		Skipped: run == nil,
	}

	if run != nil {
		res.Run = run.ToAPITypeMeta()
	}

	h.resultWriter.WriteResult(w, r, res)
}
