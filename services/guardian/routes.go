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
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers all guardian routes with the router.
//
// Description:
//
//	Registers all /v1/guardian/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Validation Endpoints:
//
//	GET  /v1/guardian/checks - Latest published report
//	POST /v1/guardian/checks/run - Run a validation pass now
//	GET  /v1/guardian/checks/detectors - Enabled detectors
//	PUT  /v1/guardian/checks/:kind - Enable or disable one detector
//	GET  /v1/guardian/events - Websocket stream of published reports
//
// Scene Endpoints:
//
//	POST /v1/guardian/sync - Synchronize hierarchy into containers
//	GET  /v1/guardian/solo - Current isolation state
//	POST /v1/guardian/solo - Solo the selected containers
//	POST /v1/guardian/restore - Leave solo mode
//	POST /v1/guardian/toggle - Solo or restore
//	GET  /v1/guardian/shot - Active shot and shot list
//	PUT  /v1/guardian/shot - Activate a shot
//
// Artist and Snapshot Endpoints:
//
//	GET  /v1/guardian/artist - Saved artist name
//	PUT  /v1/guardian/artist - Save the artist name
//	POST /v1/guardian/snapshot - File the newest render snapshot
//
// Health Endpoints:
//
//	GET  /v1/guardian/health - Health check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	g := rg.Group("/guardian")
	{
		// Validation
		g.GET("/checks", handlers.HandleGetChecks)
		g.POST("/checks/run", handlers.HandleRunChecks)
		g.GET("/checks/detectors", handlers.HandleGetDetectors)
		g.PUT("/checks/:kind", handlers.HandleSetDetector)
		g.GET("/events", handlers.HandleEvents)

		// Scene operations
		g.POST("/sync", handlers.HandleSync)
		g.GET("/solo", handlers.HandleGetSolo)
		g.POST("/solo", handlers.HandleSolo)
		g.POST("/restore", handlers.HandleRestore)
		g.POST("/toggle", handlers.HandleToggle)
		g.GET("/shot", handlers.HandleGetShot)
		g.PUT("/shot", handlers.HandleSetShot)

		// Artist and snapshots
		g.GET("/artist", handlers.HandleGetArtist)
		g.PUT("/artist", handlers.HandleSetArtist)
		g.POST("/snapshot", handlers.HandleSnapshot)

		// Health
		g.GET("/health", handlers.HandleHealth)
	}
}

// NewRouter builds the guardian HTTP server: recovery and tracing
// middleware, the /v1/guardian routes, and metrics at /metrics when
// metrics is non-nil.
func NewRouter(handlers *Handlers, metrics http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("guardian"))

	RegisterRoutes(router.Group("/v1"), handlers)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}
	return router
}
