package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mcoot/fiteval/internal/api/apierr"
	"github.com/mcoot/fiteval/internal/api/middleware"
	"github.com/mcoot/fiteval/internal/api/response"
	"github.com/mcoot/fiteval/internal/model"
)

// AssetReceiver turns an upload request into an asset on disk
type AssetReceiver interface {
	Receive(w http.ResponseWriter, r *http.Request) (*model.UploadedAsset, error)
}

// Evaluator evaluates an asset and removes it
type Evaluator interface {
	Evaluate(ctx context.Context, asset *model.UploadedAsset) (model.EvaluationResult, error)
}

// UploadHandler handles video uploads
type UploadHandler struct {
	receiver  AssetReceiver
	evaluator Evaluator
	logger    *slog.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(receiver AssetReceiver, evaluator Evaluator, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		receiver:  receiver,
		evaluator: evaluator,
		logger:    logger,
	}
}

// Upload handles POST /upload
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	asset, err := h.receiver.Receive(w, r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "evaluating upload",
		"username", session.Username,
		"test_type", asset.TestType,
		"size", asset.Size,
	)

	result, err := h.evaluator.Evaluate(r.Context(), asset)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}
