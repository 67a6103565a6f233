package run

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/porter-dev/matrix-agent/api/server/config"
	"github.com/porter-dev/matrix-agent/internal/models"
	"github.com/porter-dev/porter/api/server/shared"
	"github.com/porter-dev/porter/api/server/shared/apierrors"
	"gorm.io/gorm"
)

type GetRunHandler struct {
	resultWriter shared.ResultWriter
	config       *config.Config
}

func NewGetRunHandler(config *config.Config) *GetRunHandler {
	return &GetRunHandler{
		resultWriter: shared.NewDefaultResultWriter(config.Logger, config.Alerter),
		config:       config,
	}
}

func (h *GetRunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	run, reqErr := readRun(h.config, r)

	if reqErr != nil {
		apierrors.HandleAPIError(h.config.Logger, h.config.Alerter, w, r, reqErr, true)
		return
	}

	h.resultWriter.WriteResult(w, r, run.ToAPIType())
}

// readRun loads the run named by the uid URL parameter.
func readRun(config *config.Config, r *http.Request) (*models.Run, apierrors.RequestError) {
	runUID := chi.URLParam(r, "uid")

	if runUID == "" {
		return nil, apierrors.NewErrPassThroughToClient(fmt.Errorf("empty run id"), http.StatusBadRequest)
	}

	run, err := config.Repository.Run.ReadRun(runUID)

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NewErrPassThroughToClient(fmt.Errorf("run %s not found", runUID), http.StatusNotFound)
		}

		return nil, apierrors.NewErrInternal(err)
	}

	return run, nil
}
