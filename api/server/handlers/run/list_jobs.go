package run

import (
	"net/http"

	"github.com/porter-dev/matrix-agent/api/server/config"
	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/matrix-agent/internal/utils"
	"github.com/porter-dev/porter/api/server/shared"
	"github.com/porter-dev/porter/api/server/shared/apierrors"
)

type ListJobsHandler struct {
	decoderValidator shared.RequestDecoderValidator
	resultWriter     shared.ResultWriter
	config           *config.Config
}

func NewListJobsHandler(config *config.Config) *ListJobsHandler {
	return &ListJobsHandler{
		resultWriter:     shared.NewDefaultResultWriter(config.Logger, config.Alerter),
		decoderValidator: shared.NewDefaultRequestDecoderValidator(config.Logger, config.Alerter),
		config:           config,
	}
}

func (h *ListJobsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := &types.ListJobsRequest{}

	if ok := h.decoderValidator.DecodeAndValidate(w, r, req); !ok {
		return
	}

	run, reqErr := readRun(h.config, r)

	if reqErr != nil {
		apierrors.HandleAPIError(h.config.Logger, h.config.Alerter, w, r, reqErr, true)
		return
	}

	jobs, err := h.config.Repository.Job.ListJobsForRun(run.ID, &utils.ListJobsFilter{
		Status:      req.Status,
		WorkflowJob: req.WorkflowJob,
	})

	if err != nil {
		apierrors.HandleAPIError(h.config.Logger, h.config.Alerter, w, r, apierrors.NewErrInternal(err), true)
		return
	}

	res := &types.ListJobsResponse{
		Jobs: make([]*types.Job, 0, len(jobs)),
	}

	for _, job := range jobs {
		res.Jobs = append(res.Jobs, job.ToAPIType())
	}

	h.resultWriter.WriteResult(w, r, res)
}
