package run

import (
	"net/http"

	"github.com/porter-dev/matrix-agent/api/server/config"
	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/matrix-agent/internal/utils"
	"github.com/porter-dev/porter/api/server/shared"
	"github.com/porter-dev/porter/api/server/shared/apierrors"
)

const pageSize = 50

type ListRunsHandler struct {
	decoderValidator shared.RequestDecoderValidator
	resultWriter     shared.ResultWriter
	config           *config.Config
}

func NewListRunsHandler(config *config.Config) *ListRunsHandler {
	return &ListRunsHandler{
		resultWriter:     shared.NewDefaultResultWriter(config.Logger, config.Alerter),
		decoderValidator: shared.NewDefaultRequestDecoderValidator(config.Logger, config.Alerter),
		config:           config,
	}
}

func (h *ListRunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := &types.ListRunsRequest{
		PaginationRequest: &types.PaginationRequest{},
	}

	if ok := h.decoderValidator.DecodeAndValidate(w, r, req); !ok {
		return
	}

	runs, paginatedResult, err := h.config.Repository.Run.ListRuns(
		&utils.ListRunsFilter{
			Status: req.Status,
			Event:  req.Event,
			Branch: req.Branch,
		},
		utils.WithSortBy("created_at"),
		utils.WithOrder(utils.OrderDesc),
		utils.WithLimit(pageSize),
		utils.WithOffset(uint(req.Page)*pageSize),
	)

	if err != nil {
		apierrors.HandleAPIError(h.config.Logger, h.config.Alerter, w, r, apierrors.NewErrInternal(err), true)
		return
	}

	res := &types.ListRunsResponse{
		Runs: make([]*types.RunMeta, 0, len(runs)),
		Pagination: &types.PaginationResponse{
			NumPages:    paginatedResult.NumPages,
			CurrentPage: paginatedResult.CurrentPage,
			NextPage:    paginatedResult.NextPage,
		},
	}

	for _, run := range runs {
		res.Runs = append(res.Runs, run.ToAPITypeMeta())
	}

	h.resultWriter.WriteResult(w, r, res)
}
