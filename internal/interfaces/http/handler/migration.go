package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/application/pipeline"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"github.com/shopmigrate/backend/internal/domain/shared"
	"github.com/shopmigrate/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// MigrationHandler handles connection, premapping and run endpoints
type MigrationHandler struct {
	BaseHandler
	connections migration.ConnectionRepository
	runs        *pipeline.RunService
	premapping  *pipeline.PremappingService
	cleanup     *pipeline.CleanupHandler
	mediaFiles  *pipeline.MediaFileService
	logger      *zap.Logger
}

// NewMigrationHandler creates a new MigrationHandler
func NewMigrationHandler(
	connections migration.ConnectionRepository,
	runs *pipeline.RunService,
	premapping *pipeline.PremappingService,
	cleanup *pipeline.CleanupHandler,
	mediaFiles *pipeline.MediaFileService,
	logger *zap.Logger,
) *MigrationHandler {
	return &MigrationHandler{
		connections: connections,
		runs:        runs,
		premapping:  premapping,
		cleanup:     cleanup,
		mediaFiles:  mediaFiles,
		logger:      logger,
	}
}

// CreateConnectionRequest represents a request to register a source system
type CreateConnectionRequest struct {
	Name        string            `json:"name" binding:"required,min=1,max=200"`
	ProfileName string            `json:"profile_name" binding:"required,min=1,max=100"`
	GatewayName string            `json:"gateway_name" binding:"required,min=1,max=100"`
	Credentials map[string]string `json:"credentials"`
}

// CreateRunRequest represents a request to create a migration run
type CreateRunRequest struct {
	ConnectionID uuid.UUID `json:"connection_id" binding:"required"`
}

// AbortRunRequest represents a request to abort a run
type AbortRunRequest struct {
	Reason string `json:"reason"`
}

// WritePremappingRequest carries the operator's premapping choices
type WritePremappingRequest struct {
	Premapping []migration.PremappingStruct `json:"premapping" binding:"required"`
}

// ConnectionResponse represents a connection in API responses
type ConnectionResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ProfileName string    `json:"profile_name"`
	GatewayName string    `json:"gateway_name"`
}

// MediaFileResponse represents a staged media asset in API responses
type MediaFileResponse struct {
	ID        uuid.UUID `json:"id"`
	RunID     uuid.UUID `json:"run_id"`
	EntityID  uuid.UUID `json:"entity_id"`
	URI       string    `json:"uri"`
	FileSize  int64     `json:"file_size"`
	Processed bool      `json:"processed"`
}

// RunResponse represents a run in API responses
type RunResponse struct {
	ID           uuid.UUID             `json:"id"`
	ConnectionID uuid.UUID             `json:"connection_id"`
	Status       string                `json:"status"`
	Progress     migration.RunProgress `json:"progress"`
	ErrorMessage string                `json:"error_message,omitempty"`
}

func toConnectionResponse(connection *migration.Connection) ConnectionResponse {
	return ConnectionResponse{
		ID:          connection.ID,
		Name:        connection.Name,
		ProfileName: connection.ProfileName,
		GatewayName: connection.GatewayName,
	}
}

func toRunResponse(run *migration.Run) RunResponse {
	return RunResponse{
		ID:           run.ID,
		ConnectionID: run.ConnectionID,
		Status:       run.Status.String(),
		Progress:     run.Progress,
		ErrorMessage: run.ErrorMessage,
	}
}

// CreateConnection registers a source system connection
func (h *MigrationHandler) CreateConnection(c *gin.Context) {
	var req CreateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	connection, err := migration.NewConnection(req.Name, req.ProfileName, req.GatewayName, req.Credentials)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if err := h.connections.Save(c.Request.Context(), connection); err != nil {
		h.handleError(c, err)
		return
	}
	h.Created(c, toConnectionResponse(connection))
}

// GetConnection returns one connection
func (h *MigrationHandler) GetConnection(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid connection ID")
		return
	}
	connection, err := h.connections.FindByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.Success(c, toConnectionResponse(connection))
}

// GetPremapping assembles the premapping choice tables for a connection
func (h *MigrationHandler) GetPremapping(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid connection ID")
		return
	}
	connection, err := h.connections.FindByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	migrationCtx := migration.NewMigrationContext(uuid.Nil, connection, "", 0, 0)
	premapping, err := h.premapping.GetPremapping(c.Request.Context(), migrationCtx)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.Success(c, premapping)
}

// WritePremapping persists the operator's premapping choices
func (h *MigrationHandler) WritePremapping(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid connection ID")
		return
	}
	var req WritePremappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	connection, err := h.connections.FindByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if err := h.premapping.WritePremapping(c.Request.Context(), connection, req.Premapping); err != nil {
		h.handleError(c, err)
		return
	}
	h.NoContent(c)
}

// CreateRun creates a migration run for a connection
func (h *MigrationHandler) CreateRun(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	run, err := h.runs.CreateRun(c.Request.Context(), req.ConnectionID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.Created(c, toRunResponse(run))
}

// GetRun returns run status and progress
func (h *MigrationHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid run ID")
		return
	}
	run, err := h.runs.GetRun(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.Success(c, toRunResponse(run))
}

// ListMediaFiles returns staged media assets of a run awaiting download
func (h *MigrationHandler) ListMediaFiles(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid run ID")
		return
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.BadRequest(c, "Invalid limit")
			return
		}
		limit = parsed
	}
	files, err := h.mediaFiles.NextUnprocessed(c.Request.Context(), id, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	responses := make([]MediaFileResponse, 0, len(files))
	for _, file := range files {
		responses = append(responses, MediaFileResponse{
			ID:        file.ID,
			RunID:     file.RunID,
			EntityID:  file.EntityID,
			URI:       file.URI,
			FileSize:  file.FileSize,
			Processed: file.Processed,
		})
	}
	h.Success(c, responses)
}

// StartRun starts processing a run in the background; progress is observed
// through GetRun
func (h *MigrationHandler) StartRun(c *gin.Context) {
	h.controlRun(c, "start", h.runs.StartRun)
}

// ResumeRun continues a paused run
func (h *MigrationHandler) ResumeRun(c *gin.Context) {
	h.controlRun(c, "resume", h.runs.ResumeRun)
}

// PauseRun requests a pause at the next page boundary
func (h *MigrationHandler) PauseRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid run ID")
		return
	}
	if err := h.runs.PauseRun(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	h.NoContent(c)
}

// AbortRun terminates a run
func (h *MigrationHandler) AbortRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid run ID")
		return
	}
	// body is optional
	var req AbortRunRequest
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "aborted by operator"
	}
	if err := h.runs.AbortRun(c.Request.Context(), id, req.Reason); err != nil {
		h.handleError(c, err)
		return
	}
	h.NoContent(c)
}

// RequestCleanup starts the table cleanup cascade
func (h *MigrationHandler) RequestCleanup(c *gin.Context) {
	if err := h.cleanup.RequestCleanup(c.Request.Context()); err != nil {
		h.handleError(c, err)
		return
	}
	h.Accepted(c, gin.H{"status": "cleanup started"})
}

// controlRun kicks off a long-running lifecycle action in the background so
// the request returns immediately. Failures are recorded on the run itself.
func (h *MigrationHandler) controlRun(c *gin.Context, name string, action func(ctx context.Context, runID uuid.UUID) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid run ID")
		return
	}
	go func() {
		if err := action(context.Background(), id); err != nil {
			h.logger.Error("run processing failed",
				zap.String("action", name),
				zap.String("run_id", id.String()),
				zap.Error(err))
		}
	}()
	h.Accepted(c, gin.H{"status": "processing", "run_id": id.String()})
}

// RegisterRoutes registers all migration routes
func (h *MigrationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	connections := rg.Group("/connections")
	{
		connections.POST("", h.CreateConnection)
		connections.GET("/:id", h.GetConnection)
		connections.GET("/:id/premapping", h.GetPremapping)
		connections.PUT("/:id/premapping", h.WritePremapping)
	}

	runs := rg.Group("/runs")
	{
		runs.POST("", h.CreateRun)
		runs.GET("/:id", h.GetRun)
		runs.POST("/:id/start", h.StartRun)
		runs.POST("/:id/pause", h.PauseRun)
		runs.POST("/:id/resume", h.ResumeRun)
		runs.POST("/:id/abort", h.AbortRun)
		runs.GET("/:id/media-files", h.ListMediaFiles)
	}

	rg.POST("/cleanup", h.RequestCleanup)
}

// handleError maps domain errors to API responses
func (h *MigrationHandler) handleError(c *gin.Context, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		h.NotFound(c, err.Error())
		return
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.ErrorWithCode(c, dto.NormalizeErrorCode(domainErr.Code), domainErr.Message)
		return
	}
	h.InternalError(c, err.Error())
}
