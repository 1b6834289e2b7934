// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package guardian

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/guardian/pkg/validation"
	"github.com/AleutianAI/guardian/services/guardian/detect"
	"github.com/AleutianAI/guardian/services/guardian/hierarchy"
	"github.com/AleutianAI/guardian/services/guardian/poll"
	"github.com/AleutianAI/guardian/services/guardian/scene"
	"github.com/AleutianAI/guardian/services/guardian/snapshot"
	"github.com/AleutianAI/guardian/services/guardian/solo"
	"github.com/AleutianAI/guardian/services/guardian/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ServiceVersion is the guardian service version.
const ServiceVersion = "0.1.0"

// eventWriteTimeout bounds one websocket write.
const eventWriteTimeout = 5 * time.Second

// Handlers contains the HTTP handlers for guardian.
type Handlers struct {
	session  *Session
	upgrader websocket.Upgrader
}

// NewHandlers creates handlers for the given session.
func NewHandlers(session *Session) *Handlers {
	return &Handlers{
		session: session,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

// HandleHealth handles GET /v1/guardian/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
	defer cancel()

	status := "healthy"
	if open, err := h.session.HasDocument(ctx); err != nil || !open {
		status = "degraded"
	}
	c.JSON(http.StatusOK, HealthResponse{Status: status, Version: ServiceVersion})
}

// HandleGetChecks handles GET /v1/guardian/checks.
//
// Description:
//
//	Returns the report most recently published by the poller or by
//	POST /checks/run. It does not touch the scene.
//
// Response:
//
//	200 OK: ReportResponse
//	404 Not Found: No report published yet
func (h *Handlers) HandleGetChecks(c *gin.Context) {
	rep, err := h.session.Latest()
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NO_REPORT"})
		return
	}
	c.JSON(http.StatusOK, NewReportResponse(rep))
}

// HandleRunChecks handles POST /v1/guardian/checks/run.
//
// Response:
//
//	200 OK: ReportResponse
//	409 Conflict: No document open
func (h *Handlers) HandleRunChecks(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := requestLogger(c, requestID, "HandleRunChecks")

	rep, err := h.session.Check(c.Request.Context())
	if err != nil {
		writeError(c, logger, err, "CHECK_FAILED")
		return
	}
	logger.Info("Checks run", "offenders", rep.Offenders(), "faults", len(rep.Faults))
	c.JSON(http.StatusOK, NewReportResponse(rep))
}

// HandleGetDetectors handles GET /v1/guardian/checks/detectors.
func (h *Handlers) HandleGetDetectors(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := requestLogger(c, requestID, "HandleGetDetectors")

	kinds, err := h.session.Enabled(c.Request.Context())
	if err != nil {
		writeError(c, logger, err, "DETECTORS_FAILED")
		return
	}
	c.JSON(http.StatusOK, DetectorsResponse{Enabled: kinds})
}

// HandleSetDetector handles PUT /v1/guardian/checks/:kind.
//
// Request Body:
//
//	DetectorRequest
//
// Response:
//
//	200 OK: DetectorsResponse
//	400 Bad Request: Invalid body or unknown detector kind
func (h *Handlers) HandleSetDetector(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := requestLogger(c, requestID, "HandleSetDetector")

	kind, err := detect.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "UNKNOWN_DETECTOR"})
		return
	}
	var req DetectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	ctx := c.Request.Context()
	if err := h.session.SetEnabled(ctx, kind, *req.Enabled); err != nil {
		writeError(c, logger, err, "DETECTORS_FAILED")
		return
	}
	logger.Info("Detector toggled", "kind", kind, "enabled", *req.Enabled)

	kinds, err := h.session.Enabled(ctx)
	if err != nil {
		writeError(c, logger, err, "DETECTORS_FAILED")
		return
	}
	c.JSON(http.StatusOK, DetectorsResponse{Enabled: kinds})
}

// HandleSync handles POST /v1/guardian/sync.
//
// Description:
//
//	Synchronizes the group hierarchy into containers. Top-level nodes
//	outside any group abort the operation before anything changes.
//
// Response:
//
//	200 OK: hierarchy.Result
//	409 Conflict: No document open
//	422 Unprocessable Entity: Orphan nodes; Details lists their names
func (h *Handlers) HandleSync(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := requestLogger(c, requestID, "HandleSync")

	res, err := h.session.Synchronize(c.Request.Context())
	if err != nil {
		var orphans *hierarchy.OrphanError
		if errors.As(err, &orphans) {
			logger.Warn("Synchronization aborted", "orphans", orphans.Total)
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Error:   err.Error(),
				Code:    "ORPHAN_NODES",
				Details: orphans.Names,
			})
			return
		}
		writeError(c, logger, err, "SYNC_FAILED")
		return
	}
	logger.Info("Hierarchy synchronized", "created", len(res.Created), "synced_nodes", res.SyncedNodes)
	c.JSON(http.StatusOK, res)
}

// HandleGetSolo handles GET /v1/guardian/solo.
func (h *Handlers) HandleGetSolo(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := requestLogger(c, requestID, "HandleGetSolo")

	st, err := h.session.Mode(c.Request.Context())
	if err != nil {
		writeError(c, logger, err, "SOLO_FAILED")
		return
	}
	c.JSON(http.StatusOK, st)
}

// HandleSolo handles POST /v1/guardian/solo.
//
// Request Body:
//
//	SoloRequest
//
// Response:
//
//	200 OK: solo.Result
//	400 Bad Request: Empty selection
//	404 Not Found: Unknown container
func (h *Handlers) HandleSolo(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := requestLogger(c, requestID, "HandleSolo")

	var req SoloRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Select at least one container",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	res, err := h.session.Solo(c.Request.Context(), req.Containers)
	if err != nil {
		writeError(c, logger, err, "SOLO_FAILED")
		return
	}
	logger.Info("Solo entered", "selected", res.Selected, "containers_changed", res.ContainersChanged)
	c.JSON(http.StatusOK, res)
}

// HandleRestore handles POST /v1/guardian/restore.
func (h *Handlers) HandleRestore(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := requestLogger(c, requestID, "HandleRestore")

	res, err := h.session.Restore(c.Request.Context())
	if err != nil {
		writeError(c, logger, err, "RESTORE_FAILED")
		return
	}
	logger.Info("Scene restored", "containers_changed", res.ContainersChanged, "nodes_changed", res.NodesChanged)
	c.JSON(http.StatusOK, res)
}

// HandleToggle handles POST /v1/guardian/toggle.
//
// Request Body:
//
//	ToggleRequest (optional; the selection is needed to enter solo)
func (h *Handlers) HandleToggle(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := requestLogger(c, requestID, "HandleToggle")

	var req ToggleRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
			return
		}
	}

	res, err := h.session.Toggle(c.Request.Context(), req.Containers)
	if err != nil {
		writeError(c, logger, err, "TOGGLE_FAILED")
		return
	}
	logger.Info("Solo toggled", "mode", res.Mode.String())
	c.JSON(http.StatusOK, res)
}

// HandleGetShot handles GET /v1/guardian/shot.
func (h *Handlers) HandleGetShot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := requestLogger(c, requestID, "HandleGetShot")

	info, err := h.session.Shot(c.Request.Context())
	if err != nil {
		writeError(c, logger, err, "SHOT_FAILED")
		return
	}
	c.JSON(http.StatusOK, info)
}

// HandleSetShot handles PUT /v1/guardian/shot.
//
// Response:
//
//	200 OK: ShotInfo
//	404 Not Found: The document has no shot by that name
func (h *Handlers) HandleSetShot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := requestLogger(c, requestID, "HandleSetShot")

	var req ShotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	ctx := c.Request.Context()
	if err := h.session.SetShot(ctx, req.Shot); err != nil {
		writeError(c, logger, err, "SHOT_FAILED")
		return
	}
	info, err := h.session.Shot(ctx)
	if err != nil {
		writeError(c, logger, err, "SHOT_FAILED")
		return
	}
	c.JSON(http.StatusOK, info)
}

// HandleGetArtist handles GET /v1/guardian/artist.
func (h *Handlers) HandleGetArtist(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := requestLogger(c, requestID, "HandleGetArtist")

	name, err := h.session.Artist()
	if err != nil {
		writeError(c, logger, err, "ARTIST_FAILED")
		return
	}
	c.JSON(http.StatusOK, ArtistResponse{Artist: name})
}

// HandleSetArtist handles PUT /v1/guardian/artist.
//
// Response:
//
//	200 OK: ArtistResponse with the stored (trimmed) name
//	400 Bad Request: Invalid name
//	503 Service Unavailable: No settings store
func (h *Handlers) HandleSetArtist(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := requestLogger(c, requestID, "HandleSetArtist")

	var req ArtistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	name, err := h.session.SetArtist(req.Artist)
	if err != nil {
		writeError(c, logger, err, "ARTIST_FAILED")
		return
	}
	logger.Info("Artist saved", "artist", name)
	c.JSON(http.StatusOK, ArtistResponse{Artist: name})
}

// HandleSnapshot handles POST /v1/guardian/snapshot.
//
// Description:
//
//	Files the newest render snapshot for the open document under
//	<document dir>/Output/<artist>/<YYMMDD>/<scene>.png.
//
// Response:
//
//	200 OK: snapshot.Result
//	404 Not Found: No snapshot
//	409 Conflict: Newest snapshot already processed
//	502 Bad Gateway: Converter failed
//	503 Service Unavailable: Snapshots not configured
func (h *Handlers) HandleSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := requestLogger(c, requestID, "HandleSnapshot")

	res, err := h.session.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, logger, err, "SNAPSHOT_FAILED")
		return
	}
	logger.Info("Snapshot saved", "output", res.Output)
	c.JSON(http.StatusOK, res)
}

// HandleEvents handles GET /v1/guardian/events.
//
// Description:
//
//	Upgrades to a websocket and streams every published report as a
//	ReportResponse JSON message, starting with the latest one if any. A
//	slow client skips intermediate reports. The stream ends when the
//	client disconnects.
func (h *Handlers) HandleEvents(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := requestLogger(c, requestID, "HandleEvents")

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	reports, unsubscribe := h.session.Subscribe()
	defer unsubscribe()
	logger.Info("Event stream opened")

	// The client sends nothing; reading detects the disconnect.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(r Report) bool {
		_ = ws.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
		if err := ws.WriteJSON(NewReportResponse(r)); err != nil {
			logger.Info("Event stream closed", "error", err)
			return false
		}
		return true
	}

	if rep, err := h.session.Latest(); err == nil && !send(rep) {
		return
	}
	for {
		select {
		case <-closed:
			logger.Info("Event stream closed by client")
			return
		case <-c.Request.Context().Done():
			return
		case rep, ok := <-reports:
			if !ok || !send(rep) {
				return
			}
		}
	}
}

// writeError maps service errors to HTTP status codes.
func writeError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	status := http.StatusInternalServerError
	code := fallback

	switch {
	case errors.Is(err, ErrNoDocument):
		status, code = http.StatusConflict, "NO_DOCUMENT"
	case errors.Is(err, ErrSettingsUnavailable), errors.Is(err, ErrSnapshotsUnavailable):
		status, code = http.StatusServiceUnavailable, "NOT_CONFIGURED"
	case errors.Is(err, solo.ErrEmptySelection):
		status, code = http.StatusBadRequest, "EMPTY_SELECTION"
	case errors.Is(err, solo.ErrUnknownContainer):
		status, code = http.StatusNotFound, "UNKNOWN_CONTAINER"
	case errors.Is(err, scene.ErrUnknownShot):
		status, code = http.StatusNotFound, "UNKNOWN_SHOT"
	case errors.Is(err, scene.ErrTransactionOpen):
		status, code = http.StatusConflict, "TRANSACTION_OPEN"
	case errors.Is(err, detect.ErrUnknownKind):
		status, code = http.StatusBadRequest, "UNKNOWN_DETECTOR"
	case errors.Is(err, validation.ErrInvalidName):
		status, code = http.StatusBadRequest, "INVALID_NAME"
	case errors.Is(err, snapshot.ErrNoSnapshots):
		status, code = http.StatusNotFound, "NO_SNAPSHOTS"
	case errors.Is(err, snapshot.ErrAlreadyProcessed):
		status, code = http.StatusConflict, "ALREADY_PROCESSED"
	case errors.Is(err, snapshot.ErrNoOutputRoot):
		status, code = http.StatusUnprocessableEntity, "NO_OUTPUT_ROOT"
	case errors.Is(err, snapshot.ErrConversionFailed):
		status, code = http.StatusBadGateway, "CONVERSION_FAILED"
	case errors.Is(err, poll.ErrStopped):
		status, code = http.StatusServiceUnavailable, "STOPPED"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "TIMEOUT"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err, "code", code)
	} else {
		logger.Warn("Request rejected", "error", err, "code", code)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// getOrCreateRequestID returns the caller's X-Request-ID or a new one, and
// echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// requestLogger tags the default logger with the request ID and handler
// name. When the otelgin middleware started a trace, its ID is added to
// the log and echoed as X-Trace-ID.
func requestLogger(c *gin.Context, requestID, handler string) *slog.Logger {
	ctx := c.Request.Context()
	if traceID := telemetry.TraceID(ctx); traceID != "" {
		c.Header("X-Trace-ID", traceID)
	}
	logger := slog.With("request_id", requestID, "handler", handler)
	return telemetry.LoggerWithTrace(ctx, logger)
}
