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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/guardian/services/guardian/detect"
	"github.com/AleutianAI/guardian/services/guardian/hierarchy"
	"github.com/AleutianAI/guardian/services/guardian/scene"
	"github.com/AleutianAI/guardian/services/guardian/scene/memhost"
	"github.com/AleutianAI/guardian/services/guardian/settings"
	"github.com/AleutianAI/guardian/services/guardian/solo"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestRouter creates a test router backed by a running session.
func setupTestRouter(t *testing.T, doc scene.Document, opts ...SessionOption) (*gin.Engine, *Session) {
	t.Helper()
	session := startSession(t, doc, opts...)
	router := gin.New()
	RegisterRoutes(router.Group("/v1"), NewHandlers(session))
	return router, session
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// =============================================================================
// Health and checks
// =============================================================================

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name   string
		doc    scene.Document
		status string
	}{
		{name: "document open", doc: memhost.New("a.c4d"), status: "healthy"},
		{name: "no document", doc: nil, status: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := setupTestRouter(t, tt.doc)
			w := doRequest(router, http.MethodGet, "/v1/guardian/health", "")

			assert.Equal(t, http.StatusOK, w.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, ServiceVersion, resp.Version)
		})
	}
}

func TestHandleChecks(t *testing.T) {
	router, _ := setupTestRouter(t, testScene(t))

	w := doRequest(router, http.MethodGet, "/v1/guardian/checks", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NO_REPORT", decodeError(t, w).Code)

	w = doRequest(router, http.MethodPost, "/v1/guardian/checks/run", "")
	require.Equal(t, http.StatusOK, w.Code)
	var run ReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.False(t, run.OK)
	assert.Equal(t, 3, run.Offenders)
	assert.Len(t, run.Results, 5)
	assert.Empty(t, run.Faults)

	w = doRequest(router, http.MethodGet, "/v1/guardian/checks", "")
	require.Equal(t, http.StatusOK, w.Code)
	var latest ReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &latest))
	assert.Equal(t, run.Document, latest.Document)
	assert.Equal(t, 1, latest.Results[detect.KindPresets].Count)
}

func TestHandleRunChecks_NoDocument(t *testing.T) {
	router, _ := setupTestRouter(t, nil)

	w := doRequest(router, http.MethodPost, "/v1/guardian/checks/run", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NO_DOCUMENT", decodeError(t, w).Code)
}

func TestHandleRunChecks_Fault(t *testing.T) {
	router, _ := setupTestRouter(t, failingSettings{testScene(t)})

	w := doRequest(router, http.MethodPost, "/v1/guardian/checks/run", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp ReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Faults[detect.KindPresets], "render data locked")
}

func TestHandleSetDetector(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		errCode  string
	}{
		{name: "disable", path: "/v1/guardian/checks/lights", body: `{"enabled":false}`, wantCode: http.StatusOK},
		{name: "case insensitive", path: "/v1/guardian/checks/CAMERA", body: `{"enabled":false}`, wantCode: http.StatusOK},
		{name: "unknown kind", path: "/v1/guardian/checks/fog", body: `{"enabled":true}`, wantCode: http.StatusBadRequest, errCode: "UNKNOWN_DETECTOR"},
		{name: "missing enabled", path: "/v1/guardian/checks/lights", body: `{}`, wantCode: http.StatusBadRequest, errCode: "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := setupTestRouter(t, testScene(t))
			w := doRequest(router, http.MethodPut, tt.path, tt.body)

			require.Equal(t, tt.wantCode, w.Code)
			if tt.errCode != "" {
				assert.Equal(t, tt.errCode, decodeError(t, w).Code)
				return
			}
			var resp DetectorsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Len(t, resp.Enabled, 4)
		})
	}
}

func TestHandleGetDetectors(t *testing.T) {
	router, _ := setupTestRouter(t, nil)

	w := doRequest(router, http.MethodGet, "/v1/guardian/checks/detectors", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp DetectorsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, detect.Kinds(), resp.Enabled)
}

// =============================================================================
// Scene operations
// =============================================================================

func TestHandleSync(t *testing.T) {
	router, _ := setupTestRouter(t, testScene(t))

	w := doRequest(router, http.MethodPost, "/v1/guardian/sync", "")
	require.Equal(t, http.StatusOK, w.Code)
	var res hierarchy.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, []string{"Props"}, res.Created)
	assert.NotEmpty(t, res.TransactionID)
}

func TestHandleSync_Orphans(t *testing.T) {
	doc := testScene(t)
	doc.Add(0, "floor", scene.TypePolygon)
	doc.Add(0, "wall", scene.TypePolygon)
	router, _ := setupTestRouter(t, doc)

	w := doRequest(router, http.MethodPost, "/v1/guardian/sync", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "ORPHAN_NODES", resp.Code)
	assert.Equal(t, []string{"floor", "wall"}, resp.Details)
	assert.Zero(t, doc.Mutations())
}

func TestHandleSolo(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		errCode  string
	}{
		{name: "solo", body: `{"containers":["Props"]}`, wantCode: http.StatusOK},
		{name: "empty selection", body: `{"containers":[]}`, wantCode: http.StatusBadRequest, errCode: "INVALID_REQUEST"},
		{name: "missing body", body: `{}`, wantCode: http.StatusBadRequest, errCode: "INVALID_REQUEST"},
		{name: "unknown container", body: `{"containers":["Ghosts"]}`, wantCode: http.StatusNotFound, errCode: "UNKNOWN_CONTAINER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := setupTestRouter(t, soloTestScene(t))
			require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/v1/guardian/sync", "").Code)

			w := doRequest(router, http.MethodPost, "/v1/guardian/solo", tt.body)
			require.Equal(t, tt.wantCode, w.Code)
			if tt.errCode != "" {
				assert.Equal(t, tt.errCode, decodeError(t, w).Code)
				return
			}
			var res solo.Result
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, []string{"Props"}, res.Selected)
			assert.Equal(t, 1, res.ContainersChanged)
			assert.Equal(t, 2, res.NodesChanged)
		})
	}
}

func TestHandleSoloLifecycle(t *testing.T) {
	router, _ := setupTestRouter(t, soloTestScene(t))
	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/v1/guardian/sync", "").Code)

	mode := func() string {
		w := doRequest(router, http.MethodGet, "/v1/guardian/solo", "")
		require.Equal(t, http.StatusOK, w.Code)
		var st map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
		return st["mode"].(string)
	}

	assert.Equal(t, "normal", mode())

	w := doRequest(router, http.MethodPost, "/v1/guardian/toggle", `{"containers":["Props"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "solo", mode())

	w = doRequest(router, http.MethodPost, "/v1/guardian/restore", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "normal", mode())

	// Toggling from normal mode without a selection has nothing to solo.
	w = doRequest(router, http.MethodPost, "/v1/guardian/toggle", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EMPTY_SELECTION", decodeError(t, w).Code)
}

func TestHandleShot(t *testing.T) {
	router, _ := setupTestRouter(t, testScene(t))

	w := doRequest(router, http.MethodGet, "/v1/guardian/shot", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info ShotInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "sh010", info.Active)

	w = doRequest(router, http.MethodPut, "/v1/guardian/shot", `{"shot":"sh020"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "sh020", info.Active)

	w = doRequest(router, http.MethodPut, "/v1/guardian/shot", `{"shot":"sh999"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "UNKNOWN_SHOT", decodeError(t, w).Code)

	w = doRequest(router, http.MethodPut, "/v1/guardian/shot", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =============================================================================
// Artist and snapshots
// =============================================================================

func TestHandleArtist(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		router, _ := setupTestRouter(t, testScene(t))
		w := doRequest(router, http.MethodGet, "/v1/guardian/artist", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "NOT_CONFIGURED", decodeError(t, w).Code)
	})

	t.Run("save and read", func(t *testing.T) {
		store := settings.New(t.TempDir())
		router, _ := setupTestRouter(t, testScene(t), WithSettings(store))

		w := doRequest(router, http.MethodPut, "/v1/guardian/artist", `{"artist":"  Ana Lima  "}`)
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(router, http.MethodGet, "/v1/guardian/artist", "")
		require.Equal(t, http.StatusOK, w.Code)
		var resp ArtistResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Ana Lima", resp.Artist)
		assert.Equal(t, "Ana Lima", store.Artist())
	})

	t.Run("invalid name", func(t *testing.T) {
		router, _ := setupTestRouter(t, testScene(t), WithSettings(settings.New(t.TempDir())))
		w := doRequest(router, http.MethodPut, "/v1/guardian/artist", `{"artist":"../etc"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_NAME", decodeError(t, w).Code)
	})
}

func TestHandleSnapshot_NotConfigured(t *testing.T) {
	router, _ := setupTestRouter(t, testScene(t))

	w := doRequest(router, http.MethodPost, "/v1/guardian/snapshot", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "NOT_CONFIGURED", decodeError(t, w).Code)
}

// =============================================================================
// Events
// =============================================================================

func TestHandleEvents(t *testing.T) {
	router, session := setupTestRouter(t, testScene(t))
	server := httptest.NewServer(router)
	defer server.Close()

	// Publish before connecting so the stream opens with the latest report.
	_, err := session.Check(t.Context())
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/guardian/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var got ReportResponse
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, 3, got.Offenders)
	assert.Len(t, got.Results, 5)

	// Later reports arrive on the same stream. The subscription is taken
	// after the handshake, so keep publishing until one is received.
	next := make(chan ReportResponse, 1)
	go func() {
		var r ReportResponse
		if conn.ReadJSON(&r) == nil {
			next <- r
		}
	}()
	deadline := time.After(5 * time.Second)
	for {
		_, err := session.Check(t.Context())
		require.NoError(t, err)
		select {
		case r := <-next:
			assert.Equal(t, got.Document, r.Document)
			return
		case <-deadline:
			t.Fatal("no report streamed after the first")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
