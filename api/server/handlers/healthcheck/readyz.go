package healthcheck

import (
	"context"
	"fmt"
	"net/http"

	"github.com/porter-dev/matrix-agent/api/server/config"
	"github.com/porter-dev/porter/api/server/shared/apierrors"
)

type ReadyzHandler struct {
	config *config.Config
}

func NewReadyzHandler(config *config.Config) *ReadyzHandler {
	return &ReadyzHandler{
		config: config,
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (h *ReadyzHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.checkDB(); err != nil {
		apierrors.HandleAPIError(h.config.Logger, h.config.Alerter, w, r, err, true)
		return
	}

	// the redis queue must be reachable for runs to be picked up
	if p, ok := h.config.Queue.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			apierrors.HandleAPIError(h.config.Logger, h.config.Alerter, w, r, apierrors.NewErrInternal(err), true)
			return
		}
	}

	writeHealthy(w)
}

func (h *ReadyzHandler) checkDB() apierrors.RequestError {
	db := h.config.Repository.DB

	switch db.Dialector.Name() {
	case "sqlite":
		return nil
	case "postgres":
		sqlDB, err := db.DB()

		if err != nil {
			return apierrors.NewErrInternal(err)
		}

		if err := sqlDB.Ping(); err != nil {
			return apierrors.NewErrInternal(err)
		}

		return nil
	}

	return apierrors.NewErrPassThroughToClient(
		fmt.Errorf("database is not supported"),
		http.StatusBadRequest,
	)
}

func writeHealthy(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("."))
}
