package status

import (
	"net/http"

	"github.com/porter-dev/matrix-agent/api/server/config"
	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/porter/api/server/shared"
	"github.com/porter-dev/porter/api/server/shared/apierrors"
)

type GetStatusHandler struct {
	resultWriter shared.ResultWriter
	config       *config.Config
}

func NewGetStatusHandler(config *config.Config) *GetStatusHandler {
	return &GetStatusHandler{
		resultWriter: shared.NewDefaultResultWriter(config.Logger, config.Alerter),
		config:       config,
	}
}

func (h *GetStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	depth, err := h.config.Queue.Len(r.Context())

	if err != nil {
		apierrors.HandleAPIError(h.config.Logger, h.config.Alerter, w, r, apierrors.NewErrInternal(err), true)
		return
	}

	h.resultWriter.WriteResult(w, r, &types.GetStatusResponse{
		QueueKind:    h.config.Queue.Kind(),
		QueueDepth:   depth,
		LogStoreKind: h.config.LogStoreKind,
		ExecutorKind: h.config.ExecutorKind,
		WorkflowName: h.config.Workflow.Name,
		WorkflowJobs: len(h.config.Workflow.Jobs),
	})
}
