package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tradejournal/internal/middleware"
	"github.com/tradejournal/internal/repository"
	"github.com/tradejournal/internal/service"
	"github.com/tradejournal/internal/statement"
	"github.com/tradejournal/pkg/response"
)

// ImportHandler handles statement upload and import batch API requests
type ImportHandler struct {
	importService *service.ImportService
	batchRepo     *repository.ImportBatchRepository
	maxUploadSize int64
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(importService *service.ImportService, batchRepo *repository.ImportBatchRepository, maxUploadMB int) *ImportHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &ImportHandler{
		importService: importService,
		batchRepo:     batchRepo,
		maxUploadSize: int64(maxUploadMB) * 1024 * 1024,
	}
}

// RegisterRoutes registers import routes
func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	imports := rg.Group("/imports")
	imports.Use(authMiddleware)
	{
		imports.POST("", middleware.UploadLoggerMiddleware(), h.Upload)
		imports.GET("", h.List)
		imports.GET("/:id", h.GetBatch)
	}
}

// Upload ingests one broker statement file
// POST /api/v1/imports
func (h *ImportHandler) Upload(c *gin.Context) {
	userID := middleware.GetUserID(c)

	broker := c.PostForm("broker")
	if broker == "" {
		response.BadRequest(c, "broker is required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > h.maxUploadSize {
		response.BadRequest(c, "file too large")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, "failed to read upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadSize+1))
	if err != nil {
		response.InternalError(c, "failed to read upload")
		return
	}
	if int64(len(data)) > h.maxUploadSize {
		response.BadRequest(c, "file too large")
		return
	}

	result, err := h.importService.Import(c.Request.Context(), &service.ImportRequest{
		UserID:   userID,
		Broker:   broker,
		Filename: fileHeader.Filename,
		Comment:  c.PostForm("comment"),
		Data:     data,
	})
	if err != nil {
		batchID := ""
		if result != nil {
			batchID = result.ImportBatchID
		}
		response.ErrorWithData(c, errorStatus(err), err.Error(), gin.H{"import_batch_id": batchID})
		return
	}

	response.Created(c, result)
}

// GetBatch returns the status of one import batch
// GET /api/v1/imports/:id
func (h *ImportHandler) GetBatch(c *gin.Context) {
	userID := middleware.GetUserID(c)

	batch, err := h.batchRepo.GetByPublicID(userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrImportBatchNotFound) {
			response.NotFound(c, "import batch not found")
			return
		}
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, batch)
}

// List returns the user's recent import batches
// GET /api/v1/imports
func (h *ImportHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	batches, err := h.batchRepo.GetByUserID(userID, limit)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, batches)
}

// errorStatus maps import failures to HTTP status codes: malformed uploads
// are the caller's problem, persistence failures are ours.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, statement.ErrUnrecognizedFormat),
		errors.Is(err, statement.ErrHeaderNotFound),
		errors.Is(err, statement.ErrEmptyStatement),
		errors.Is(err, service.ErrEmptyUpload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
