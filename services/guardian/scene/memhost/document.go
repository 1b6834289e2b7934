// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memhost is an in-memory scene host.
//
// A Document implements scene.Document on plain Go data. It is the host the
// CLI and HTTP server run against (scenes are loaded from YAML fixtures) and
// the host every package test builds its graphs with.
//
// Mutations go through undo-recordable transactions: each transaction keeps
// the inverse of every change it made, and Undo reverts the most recent
// transaction as one step.
//
// Fault hooks (FailNode, FailAssign, FailTypeName) let tests exercise the
// per-node error paths of the engine.
//
// # Thread Safety
//
// Not safe for concurrent use, like a real host graph. Access it from the
// goroutine that owns it.
package memhost

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/AleutianAI/guardian/services/guardian/scene"
	"github.com/google/uuid"
)

type node struct {
	info      scene.Node
	children  []scene.NodeID
	tracks    []scene.Track
	attrs     map[string]float64
	container string
}

// Document is an in-memory scene.Document.
type Document struct {
	id   scene.DocumentID
	path string
	name string

	nodes    map[scene.NodeID]*node
	topLevel []scene.NodeID
	nextID   scene.NodeID

	typeNames      map[scene.TypeID]string
	renderSettings []scene.RenderSetting
	containers     []*scene.Container

	shots      []string
	activeShot string

	open      *txn
	undo      [][]func()
	mutations int

	nodeFaults     map[scene.NodeID]error
	assignFaults   map[scene.NodeID]error
	typeNameFaults map[scene.TypeID]error
}

// Option configures a Document.
type Option func(*Document)

// WithID sets the document identity. Default: a random uuid.
func WithID(id scene.DocumentID) Option {
	return func(d *Document) {
		d.id = id
	}
}

// WithPath sets the directory the document is saved in.
func WithPath(path string) Option {
	return func(d *Document) {
		d.path = path
	}
}

// New creates an empty document.
//
// Inputs:
//   - name: The document file name (may be empty for an unsaved document).
//   - opts: Optional configuration.
//
// Outputs:
//   - *Document: The document. Never nil.
func New(name string, opts ...Option) *Document {
	d := &Document{
		id:             scene.DocumentID("mem:" + uuid.NewString()),
		name:           name,
		nodes:          make(map[scene.NodeID]*node),
		nextID:         1,
		typeNames:      defaultTypeNames(),
		nodeFaults:     make(map[scene.NodeID]error),
		assignFaults:   make(map[scene.NodeID]error),
		typeNameFaults: make(map[scene.TypeID]error),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// =============================================================================
// Fixture construction
// =============================================================================

// Add appends a node under parent (0 for top level) and returns its id.
// New nodes are enabled with inherited visibility.
//
// Add panics if parent is non-zero and unknown; it is meant for fixture
// construction where that is a programming error.
func (d *Document) Add(parent scene.NodeID, name string, typ scene.TypeID) scene.NodeID {
	id := d.nextID
	d.nextID++

	d.nodes[id] = &node{
		info: scene.Node{
			ID:      id,
			Type:    typ,
			Name:    name,
			Parent:  parent,
			Enabled: true,
		},
		attrs: make(map[string]float64),
	}

	if parent == 0 {
		d.topLevel = append(d.topLevel, id)
		return id
	}
	p, ok := d.nodes[parent]
	if !ok {
		panic(fmt.Sprintf("memhost: parent %s does not exist", parent))
	}
	p.children = append(p.children, id)
	return id
}

// SetVisibility sets a node's editor and render visibility.
func (d *Document) SetVisibility(id scene.NodeID, editor, render scene.Visibility) {
	if n, ok := d.nodes[id]; ok {
		n.info.EditorVisibility = editor
		n.info.RenderVisibility = render
	}
}

// AddTrack appends an animation track to a node.
func (d *Document) AddTrack(id scene.NodeID, tr scene.Track) {
	if n, ok := d.nodes[id]; ok {
		n.tracks = append(n.tracks, tr)
	}
}

// SetAttr sets a numeric attribute on a node.
func (d *Document) SetAttr(id scene.NodeID, name string, value float64) {
	if n, ok := d.nodes[id]; ok {
		n.attrs[name] = value
	}
}

// SetEnabled sets a node's enable switch outside any transaction.
func (d *Document) SetEnabled(id scene.NodeID, enabled bool) {
	if n, ok := d.nodes[id]; ok {
		n.info.Enabled = enabled
	}
}

// AddContainer adds a container outside any transaction.
func (d *Document) AddContainer(c scene.Container) {
	cp := c
	d.containers = append(d.containers, &cp)
}

// Assign assigns a node to a container outside any transaction.
func (d *Document) Assign(id scene.NodeID, container string) {
	if n, ok := d.nodes[id]; ok {
		n.container = container
	}
}

// SetRenderSettings replaces the render-configuration entries.
func (d *Document) SetRenderSettings(names ...string) {
	d.renderSettings = d.renderSettings[:0]
	for _, name := range names {
		d.renderSettings = append(d.renderSettings, scene.RenderSetting{Name: name})
	}
}

// SetShots replaces the shot list and the active shot.
func (d *Document) SetShots(active string, names ...string) {
	d.shots = append([]string(nil), names...)
	d.activeShot = active
}

// RegisterType sets the display name of a type id.
func (d *Document) RegisterType(t scene.TypeID, name string) {
	d.typeNames[t] = name
}

// FailNode makes Node(id) return err.
func (d *Document) FailNode(id scene.NodeID, err error) {
	d.nodeFaults[id] = err
}

// FailAssign makes AssignContainer(id, …) return err.
func (d *Document) FailAssign(id scene.NodeID, err error) {
	d.assignFaults[id] = err
}

// FailTypeName makes TypeName(t) return err.
func (d *Document) FailTypeName(t scene.TypeID, err error) {
	d.typeNameFaults[t] = err
}

// Find returns the first node with the given name in depth-first order.
func (d *Document) Find(name string) (scene.NodeID, bool) {
	stack := slices.Clone(d.topLevel)
	slices.Reverse(stack)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := d.nodes[id]
		if n.info.Name == name {
			return id, true
		}
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}
	return 0, false
}

// Membership returns every node's container assignment.
func (d *Document) Membership() map[scene.NodeID]string {
	out := make(map[scene.NodeID]string, len(d.nodes))
	for id, n := range d.nodes {
		if n.container != "" {
			out[id] = n.container
		}
	}
	return out
}

// Mutations returns how many mutations have been applied through
// transactions since the document was created.
func (d *Document) Mutations() int {
	return d.mutations
}

// UndoDepth returns the number of recorded undo steps.
func (d *Document) UndoDepth() int {
	return len(d.undo)
}

// Undo reverts the most recent transaction as a single step.
func (d *Document) Undo() error {
	if d.open != nil {
		return scene.ErrTransactionOpen
	}
	if len(d.undo) == 0 {
		return ErrNothingToUndo
	}
	step := d.undo[len(d.undo)-1]
	d.undo = d.undo[:len(d.undo)-1]
	for i := len(step) - 1; i >= 0; i-- {
		step[i]()
	}
	return nil
}

// =============================================================================
// scene.Document
// =============================================================================

// ID implements scene.Document.
func (d *Document) ID() scene.DocumentID { return d.id }

// Path implements scene.Document.
func (d *Document) Path() string { return d.path }

// Name implements scene.Document.
func (d *Document) Name() string { return d.name }

// FullPath returns the document's file path, or "" when unsaved.
func (d *Document) FullPath() string {
	if d.path == "" || d.name == "" {
		return ""
	}
	return filepath.Join(d.path, d.name)
}

// TopLevel implements scene.Reader.
func (d *Document) TopLevel() ([]scene.NodeID, error) {
	return slices.Clone(d.topLevel), nil
}

// Node implements scene.Reader.
func (d *Document) Node(id scene.NodeID) (scene.Node, error) {
	if err := d.nodeFaults[id]; err != nil {
		return scene.Node{}, err
	}
	n, ok := d.nodes[id]
	if !ok {
		return scene.Node{}, fmt.Errorf("%w: %s", scene.ErrNodeNotFound, id)
	}
	return n.info, nil
}

// Children implements scene.Reader.
func (d *Document) Children(id scene.NodeID) ([]scene.NodeID, error) {
	n, ok := d.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", scene.ErrNodeNotFound, id)
	}
	return slices.Clone(n.children), nil
}

// Tracks implements scene.Reader.
func (d *Document) Tracks(id scene.NodeID) ([]scene.Track, error) {
	n, ok := d.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", scene.ErrNodeNotFound, id)
	}
	return slices.Clone(n.tracks), nil
}

// Attr implements scene.Reader.
func (d *Document) Attr(id scene.NodeID, name string) (float64, error) {
	n, ok := d.nodes[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", scene.ErrNodeNotFound, id)
	}
	v, ok := n.attrs[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s on %s", scene.ErrAttributeUnavailable, name, id)
	}
	return v, nil
}

// TypeName implements scene.Reader.
func (d *Document) TypeName(t scene.TypeID) (string, error) {
	if err := d.typeNameFaults[t]; err != nil {
		return "", err
	}
	name, ok := d.typeNames[t]
	if !ok {
		return "", fmt.Errorf("%w: no display name for type %d", scene.ErrFeatureUnavailable, t)
	}
	return name, nil
}

// RenderSettings implements scene.Reader.
func (d *Document) RenderSettings() ([]scene.RenderSetting, error) {
	return slices.Clone(d.renderSettings), nil
}

// Containers implements scene.Reader.
func (d *Document) Containers() ([]scene.Container, error) {
	out := make([]scene.Container, len(d.containers))
	for i, c := range d.containers {
		out[i] = *c
	}
	return out, nil
}

// ContainerOf implements scene.Reader.
func (d *Document) ContainerOf(id scene.NodeID) (string, bool, error) {
	n, ok := d.nodes[id]
	if !ok {
		return "", false, fmt.Errorf("%w: %s", scene.ErrNodeNotFound, id)
	}
	return n.container, n.container != "", nil
}

// ActiveShot implements scene.ShotRegistry.
func (d *Document) ActiveShot() (string, error) {
	return d.activeShot, nil
}

// SetActiveShot implements scene.ShotRegistry.
func (d *Document) SetActiveShot(name string) error {
	if !slices.Contains(d.shots, name) {
		return fmt.Errorf("%w: %q", scene.ErrUnknownShot, name)
	}
	d.activeShot = name
	return nil
}

// Shots implements scene.ShotRegistry.
func (d *Document) Shots() ([]string, error) {
	return slices.Clone(d.shots), nil
}

func (d *Document) container(name string) (*scene.Container, int) {
	for i, c := range d.containers {
		if c.Name == name {
			return c, i
		}
	}
	return nil, -1
}

var _ scene.Document = (*Document)(nil)
