package upload

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"repairdesk/internal/auth"
	"repairdesk/internal/commons"
	"repairdesk/internal/dto"
	apperrors "repairdesk/internal/errors"
)

// multipart framing allowance on top of the file size limit
const formOverhead = 1 << 20

type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	MaxBytes() int64
}

type Controller struct {
	store  FileStore
	logger *zap.Logger
}

func NewController(store FileStore, logger *zap.Logger) *Controller {
	return &Controller{
		store:  store,
		logger: logger,
	}
}

func (c *Controller) HandleUpload(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))
	if actor := auth.ActorFromContext(r.Context()); actor != nil {
		logger = logger.With(zap.Uint("actorId", actor.ID))
	}

	r.Body = http.MaxBytesReader(w, r.Body, c.store.MaxBytes()+formOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		logger.Warn("invalid upload form", zap.Error(err))
		c.writeError(w, traceID, apperrors.NewValidationError("file is required", apperrors.ValidationDetail{
			Field:   "file",
			Message: "multipart field file is required and must fit the size limit",
		}), logger)
		return
	}
	defer file.Close()

	ref, err := c.store.Save(r.Context(), header.Filename, file)
	if err != nil {
		c.writeError(w, traceID, err, logger)
		return
	}

	logger.Info("file uploaded", zap.String("url", ref))
	resp := dto.OK("file uploaded", dto.UploadResponse{URL: ref})
	resp.TraceID = traceID
	c.writeJSON(w, http.StatusCreated, resp)
}

func (c *Controller) writeError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	status, message, details, ok := commons.ErrorStatus(err)
	if !ok {
		logger.Error("upload failed", zap.Error(err))
	}

	resp := dto.Fail(message, details...)
	resp.TraceID = traceID
	c.writeJSON(w, status, resp)
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
