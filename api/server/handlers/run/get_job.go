package run

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/porter-dev/matrix-agent/api/server/config"
	"github.com/porter-dev/porter/api/server/shared"
	"github.com/porter-dev/porter/api/server/shared/apierrors"
	"gorm.io/gorm"
)

type GetJobHandler struct {
	resultWriter shared.ResultWriter
	config       *config.Config
}

func NewGetJobHandler(config *config.Config) *GetJobHandler {
	return &GetJobHandler{
		resultWriter: shared.NewDefaultResultWriter(config.Logger, config.Alerter),
		config:       config,
	}
}

func (h *GetJobHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	run, reqErr := readRun(h.config, r)

	if reqErr != nil {
		apierrors.HandleAPIError(h.config.Logger, h.config.Alerter, w, r, reqErr, true)
		return
	}

	jobUID := chi.URLParam(r, "job_id")

	job, err := h.config.Repository.Job.ReadJob(jobUID)

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		apierrors.HandleAPIError(h.config.Logger, h.config.Alerter, w, r, apierrors.NewErrInternal(err), true)
		return
	}

	// jobs of other runs are not found under this run
	if job == nil || job.RunID != run.ID {
		apierrors.HandleAPIError(h.config.Logger, h.config.Alerter, w, r,
			apierrors.NewErrPassThroughToClient(fmt.Errorf("job %s not found in run %s", jobUID, run.UniqueID), http.StatusNotFound), true)
		return
	}

	h.resultWriter.WriteResult(w, r, job.ToAPIType())
}
