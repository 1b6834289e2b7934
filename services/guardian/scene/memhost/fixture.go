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
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AleutianAI/guardian/services/guardian/scene"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Fixture format
// =============================================================================

// sceneFile is the YAML layout of a scene fixture.
//
// Example:
//
//	name: shot010.c4d
//	shots: [main, alt]
//	active_shot: main
//	render_settings: [Previz, Render]
//	nodes:
//	  - name: lights
//	    type: group
//	    children:
//	      - name: key
//	        type: area_light
//	  - name: cam
//	    type: camera
//	    attrs: {film_offset_x: 0.001}
type sceneFile struct {
	Name           string            `yaml:"name"`
	Shots          []string          `yaml:"shots,omitempty"`
	ActiveShot     string            `yaml:"active_shot,omitempty"`
	RenderSettings []string          `yaml:"render_settings,omitempty"`
	Types          map[int32]string  `yaml:"types,omitempty"`
	Containers     []scene.Container `yaml:"containers,omitempty"`
	Nodes          []nodeFile        `yaml:"nodes"`
}

type nodeFile struct {
	Name      string             `yaml:"name"`
	Type      string             `yaml:"type"`
	Editor    string             `yaml:"editor,omitempty"`
	Render    string             `yaml:"render,omitempty"`
	Disabled  bool               `yaml:"disabled,omitempty"`
	Container string             `yaml:"container,omitempty"`
	Tracks    []string           `yaml:"tracks,omitempty"`
	Attrs     map[string]float64 `yaml:"attrs,omitempty"`
	Children  []nodeFile         `yaml:"children,omitempty"`
}

var typeKeywords = map[string]scene.TypeID{
	"polygon":       scene.TypePolygon,
	"light":         scene.TypeLight,
	"camera":        scene.TypeCamera,
	"group":         scene.TypeNull,
	"sky":           scene.TypeSky,
	"area_light":    scene.TypeAreaLight,
	"sun_light":     scene.TypeSunLight,
	"dome_light":    scene.TypeDomeLight,
	"ies_light":     scene.TypeIESLight,
	"portal_light":  scene.TypePortalLight,
	"render_camera": scene.TypeRenderCamera,
}

var typeKeywordOf = func() map[scene.TypeID]string {
	m := make(map[scene.TypeID]string, len(typeKeywords))
	for k, v := range typeKeywords {
		m[v] = k
	}
	return m
}()

func defaultTypeNames() map[scene.TypeID]string {
	return map[scene.TypeID]string{
		scene.TypePolygon:      "Polygon",
		scene.TypeLight:        "Light",
		scene.TypeCamera:       "Camera",
		scene.TypeNull:         "Null",
		scene.TypeSky:          "Sky",
		scene.TypeAreaLight:    "RS Area Light",
		scene.TypeSunLight:     "RS Sun Light",
		scene.TypeDomeLight:    "RS Dome Light",
		scene.TypeIESLight:     "RS IES Light",
		scene.TypePortalLight:  "RS Portal Light",
		scene.TypeRenderCamera: "RS Camera",
	}
}

// ParseType parses a fixture type keyword ("group", "area_light", …) or a
// numeric type id. An empty type is a group: an unquoted YAML `null`
// decodes to "".
func ParseType(s string) (scene.TypeID, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" || key == "null" {
		return scene.TypeNull, nil
	}
	if t, ok := typeKeywords[key]; ok {
		return t, nil
	}
	n, err := strconv.ParseInt(key, 10, 32)
	if err != nil {
		return scene.TypeUnknown, fmt.Errorf("%w: type %q", ErrInvalidFixture, s)
	}
	return scene.TypeID(n), nil
}

// FormatType is the inverse of ParseType.
func FormatType(t scene.TypeID) string {
	if k, ok := typeKeywordOf[t]; ok {
		return k
	}
	return strconv.FormatInt(int64(t), 10)
}

// ParseTrack parses "position.x", "rot.h" or "scale". Rotation accepts the
// heading/pitch/bank letters h, p, b for x, y, z. A missing or unknown
// component yields AxisNone.
func ParseTrack(s string) scene.Track {
	prop, comp, _ := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ".")

	var tr scene.Track
	switch prop {
	case "position", "pos", "p":
		tr.Property = scene.PropertyPosition
	case "rotation", "rot", "r":
		tr.Property = scene.PropertyRotation
	case "scale", "s":
		tr.Property = scene.PropertyScale
	}

	switch comp {
	case "x", "h":
		tr.Axis = scene.AxisX
	case "y", "p":
		tr.Axis = scene.AxisY
	case "z", "b":
		tr.Axis = scene.AxisZ
	}
	return tr
}

// FormatTrack is the inverse of ParseTrack.
func FormatTrack(tr scene.Track) string {
	if tr.Axis == scene.AxisNone {
		return tr.Property.String()
	}
	return tr.Property.String() + "." + tr.Axis.String()
}

// =============================================================================
// Load / Save
// =============================================================================

// Load reads a scene fixture from path. The document's Path and Name are
// taken from path and its identity is the absolute file path, so reloading
// the same file yields the same DocumentID.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	doc, err := Decode(bytes.NewReader(data),
		WithID(scene.DocumentID("file:"+abs)),
		WithPath(filepath.Dir(abs)))
	if err != nil {
		return nil, fmt.Errorf("parsing scene %s: %w", path, err)
	}
	if doc.name == "" {
		doc.name = filepath.Base(abs)
	}
	return doc, nil
}

// Decode builds a document from a YAML fixture stream.
func Decode(r io.Reader, opts ...Option) (*Document, error) {
	var f sceneFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}

	doc := New(f.Name, opts...)
	for t, name := range f.Types {
		doc.RegisterType(scene.TypeID(t), name)
	}
	for _, c := range f.Containers {
		doc.AddContainer(c)
	}
	doc.SetRenderSettings(f.RenderSettings...)
	doc.SetShots(f.ActiveShot, f.Shots...)

	for _, n := range f.Nodes {
		if err := doc.addFileNode(0, n); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (d *Document) addFileNode(parent scene.NodeID, n nodeFile) error {
	typ, err := ParseType(n.Type)
	if err != nil {
		return fmt.Errorf("node %q: %w", n.Name, err)
	}
	editor, err := scene.ParseVisibility(n.Editor)
	if err != nil {
		return fmt.Errorf("%w: node %q: %v", ErrInvalidFixture, n.Name, err)
	}
	render, err := scene.ParseVisibility(n.Render)
	if err != nil {
		return fmt.Errorf("%w: node %q: %v", ErrInvalidFixture, n.Name, err)
	}
	if n.Container != "" {
		if c, _ := d.container(n.Container); c == nil {
			return fmt.Errorf("%w: node %q references unknown container %q",
				ErrInvalidFixture, n.Name, n.Container)
		}
	}

	id := d.Add(parent, n.Name, typ)
	d.SetVisibility(id, editor, render)
	d.SetEnabled(id, !n.Disabled)
	d.Assign(id, n.Container)
	for _, tr := range n.Tracks {
		d.AddTrack(id, ParseTrack(tr))
	}
	for k, v := range n.Attrs {
		d.SetAttr(id, k, v)
	}

	for _, child := range n.Children {
		if err := d.addFileNode(id, child); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the document to path atomically (temp file + rename).
func (d *Document) Save(path string) error {
	f := sceneFile{
		Name:       d.name,
		Shots:      d.shots,
		ActiveShot: d.activeShot,
	}
	for _, rs := range d.renderSettings {
		f.RenderSettings = append(f.RenderSettings, rs.Name)
	}
	defaults := defaultTypeNames()
	for t, name := range d.typeNames {
		if defaults[t] != name {
			if f.Types == nil {
				f.Types = make(map[int32]string)
			}
			f.Types[int32(t)] = name
		}
	}
	for _, c := range d.containers {
		f.Containers = append(f.Containers, *c)
	}
	for _, id := range d.topLevel {
		f.Nodes = append(f.Nodes, d.fileNode(id))
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("encoding scene: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing scene: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing scene: %w", err)
	}
	return nil
}

func (d *Document) fileNode(id scene.NodeID) nodeFile {
	n := d.nodes[id]
	out := nodeFile{
		Name:      n.info.Name,
		Type:      FormatType(n.info.Type),
		Disabled:  !n.info.Enabled,
		Container: n.container,
	}
	if n.info.EditorVisibility != scene.VisibilityInherit {
		out.Editor = n.info.EditorVisibility.String()
	}
	if n.info.RenderVisibility != scene.VisibilityInherit {
		out.Render = n.info.RenderVisibility.String()
	}
	for _, tr := range n.tracks {
		out.Tracks = append(out.Tracks, FormatTrack(tr))
	}
	if len(n.attrs) > 0 {
		out.Attrs = n.attrs
	}
	for _, child := range n.children {
		out.Children = append(out.Children, d.fileNode(child))
	}
	return out
}
