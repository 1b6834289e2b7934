// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memhost

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/guardian/services/guardian/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `
name: shot010.c4d
shots: [main, alt]
active_shot: main
render_settings: [Previz, Render]
containers:
  - name: set
    color: {r: 1, g: 0, b: 0}
    flags: {view: true, render: true, manager: true, generators: true, deformers: true, expressions: true, animation: true}
nodes:
  - name: lights
    type: group
    children:
      - name: key
        type: area_light
        render: off
  - name: set
    type: group
    container: set
    children:
      - name: floor
        type: polygon
        container: set
        tracks: [position.x, rot.h, scale]
  - name: cam
    type: camera
    attrs: {film_offset_x: 0.001}
`

func TestDecode(t *testing.T) {
	doc, err := Decode(strings.NewReader(fixture))
	require.NoError(t, err)

	assert.Equal(t, "shot010.c4d", doc.Name())

	top, err := doc.TopLevel()
	require.NoError(t, err)
	require.Len(t, top, 3)

	key, ok := doc.Find("key")
	require.True(t, ok)
	n, err := doc.Node(key)
	require.NoError(t, err)
	assert.Equal(t, scene.TypeAreaLight, n.Type)
	assert.Equal(t, scene.VisibilityOff, n.RenderVisibility)
	assert.Equal(t, scene.VisibilityInherit, n.EditorVisibility)
	assert.Equal(t, top[0], n.Parent)

	floor, _ := doc.Find("floor")
	tracks, err := doc.Tracks(floor)
	require.NoError(t, err)
	assert.Equal(t, []scene.Track{
		{Property: scene.PropertyPosition, Axis: scene.AxisX},
		{Property: scene.PropertyRotation, Axis: scene.AxisX},
		{Property: scene.PropertyScale, Axis: scene.AxisNone},
	}, tracks)

	name, ok, err := doc.ContainerOf(floor)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "set", name)

	cam, _ := doc.Find("cam")
	v, err := doc.Attr(cam, scene.AttrFilmOffsetX)
	require.NoError(t, err)
	assert.InDelta(t, 0.001, v, 1e-12)

	_, err = doc.Attr(cam, scene.AttrFilmOffsetY)
	assert.ErrorIs(t, err, scene.ErrAttributeUnavailable)

	shot, err := doc.ActiveShot()
	require.NoError(t, err)
	assert.Equal(t, "main", shot)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown type", "nodes: [{name: a, type: teapot}]"},
		{"bad visibility", "nodes: [{name: a, type: group, editor: sometimes}]"},
		{"unknown container", "nodes: [{name: a, type: group, container: nope}]"},
		{"unknown field", "nodez: []"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidFixture)
		})
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	doc, err := Decode(strings.NewReader(fixture))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "shot010.yaml")
	require.NoError(t, doc.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, loaded.ID(), again.ID(), "identity is stable per file")
	assert.Equal(t, filepath.Dir(path), loaded.Path())

	wantContainers, _ := doc.Containers()
	gotContainers, _ := loaded.Containers()
	assert.Equal(t, wantContainers, gotContainers)
	assert.Equal(t, doc.Membership(), loaded.Membership())

	floor, _ := loaded.Find("floor")
	tracks, _ := loaded.Tracks(floor)
	assert.Len(t, tracks, 3)
}

func TestTxn_UndoRevertsWholeTransaction(t *testing.T) {
	doc := New("undo.c4d")
	a := doc.Add(0, "a", scene.TypeNull)
	b := doc.Add(a, "b", scene.TypePolygon)

	txn, err := doc.Begin("test")
	require.NoError(t, err)
	assert.NotEmpty(t, txn.ID())

	_, err = doc.Begin("nested")
	assert.ErrorIs(t, err, scene.ErrTransactionOpen)

	require.NoError(t, txn.CreateContainer(scene.Container{Name: "a", Flags: scene.DefaultContainerFlags()}))
	require.NoError(t, txn.AssignContainer(a, "a"))
	require.NoError(t, txn.AssignContainer(b, "a"))
	require.NoError(t, txn.SetNodeEnabled(b, false))
	require.NoError(t, txn.SetContainerFlags("a", scene.DefaultContainerFlags().WithIsolation(false)))
	require.NoError(t, txn.End())

	assert.Equal(t, 5, doc.Mutations())
	assert.Equal(t, 1, doc.UndoDepth())
	assert.ErrorIs(t, txn.AssignContainer(a, "a"), scene.ErrTransactionClosed)

	require.NoError(t, doc.Undo())

	containers, _ := doc.Containers()
	assert.Empty(t, containers)
	assert.Empty(t, doc.Membership())
	n, _ := doc.Node(b)
	assert.True(t, n.Enabled)

	assert.ErrorIs(t, doc.Undo(), ErrNothingToUndo)
}

func TestTxn_DeleteContainerUndo(t *testing.T) {
	doc := New("delete.c4d")
	a := doc.Add(0, "a", scene.TypeNull)
	doc.AddContainer(scene.Container{Name: "a", Flags: scene.DefaultContainerFlags()})
	doc.Assign(a, "a")

	txn, err := doc.Begin("delete")
	require.NoError(t, err)
	require.NoError(t, txn.DeleteContainer("a"))
	assert.ErrorIs(t, txn.DeleteContainer("a"), scene.ErrContainerNotFound)
	require.NoError(t, txn.End())

	assert.Empty(t, doc.Membership())
	require.NoError(t, doc.Undo())
	assert.Equal(t, map[scene.NodeID]string{a: "a"}, doc.Membership())
}

func TestFaultHooks(t *testing.T) {
	doc := New("faults.c4d")
	a := doc.Add(0, "a", scene.TypeNull)
	boom := errors.New("boom")

	doc.FailNode(a, boom)
	_, err := doc.Node(a)
	assert.ErrorIs(t, err, boom)

	doc.AddContainer(scene.Container{Name: "a"})
	doc.FailAssign(a, boom)
	txn, err := doc.Begin("assign")
	require.NoError(t, err)
	assert.ErrorIs(t, txn.AssignContainer(a, "a"), boom)
	require.NoError(t, txn.End())
	assert.Equal(t, 0, doc.UndoDepth(), "empty transactions record no undo step")

	doc.FailTypeName(scene.TypeLight, boom)
	_, err = doc.TypeName(scene.TypeLight)
	assert.ErrorIs(t, err, boom)

	_, err = doc.TypeName(scene.TypeID(42))
	assert.ErrorIs(t, err, scene.ErrFeatureUnavailable)
}

func TestSetActiveShot(t *testing.T) {
	doc := New("shots.c4d")
	doc.SetShots("a", "a", "b")

	require.NoError(t, doc.SetActiveShot("b"))
	shot, _ := doc.ActiveShot()
	assert.Equal(t, "b", shot)

	assert.ErrorIs(t, doc.SetActiveShot("c"), scene.ErrUnknownShot)
}

func TestParseTrack(t *testing.T) {
	tests := []struct {
		in   string
		want scene.Track
	}{
		{"position.y", scene.Track{Property: scene.PropertyPosition, Axis: scene.AxisY}},
		{"rot.b", scene.Track{Property: scene.PropertyRotation, Axis: scene.AxisZ}},
		{"scale.z", scene.Track{Property: scene.PropertyScale, Axis: scene.AxisZ}},
		{"position", scene.Track{Property: scene.PropertyPosition, Axis: scene.AxisNone}},
		{"color.r", scene.Track{Property: scene.PropertyOther, Axis: scene.AxisNone}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTrack(tt.in))
		})
	}
}
