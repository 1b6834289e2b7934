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
	"fmt"
	"slices"

	"github.com/AleutianAI/guardian/services/guardian/scene"
	"github.com/google/uuid"
)

// txn records the inverse of every mutation it applies so the whole
// transaction can be reverted as one undo step.
type txn struct {
	doc    *Document
	id     string
	label  string
	undo   []func()
	closed bool
}

// Begin implements scene.Mutator.
func (d *Document) Begin(label string) (scene.Txn, error) {
	if d.open != nil {
		return nil, fmt.Errorf("%w: %q", scene.ErrTransactionOpen, d.open.label)
	}
	t := &txn{
		doc:   d,
		id:    uuid.NewString(),
		label: label,
	}
	d.open = t
	return t, nil
}

// ID implements scene.Txn.
func (t *txn) ID() string { return t.id }

func (t *txn) check() error {
	if t.closed {
		return scene.ErrTransactionClosed
	}
	return nil
}

func (t *txn) record(inverse func()) {
	t.undo = append(t.undo, inverse)
	t.doc.mutations++
}

// CreateContainer implements scene.Txn.
func (t *txn) CreateContainer(c scene.Container) error {
	if err := t.check(); err != nil {
		return err
	}
	if existing, _ := t.doc.container(c.Name); existing != nil {
		return fmt.Errorf("%w: %q", scene.ErrContainerExists, c.Name)
	}
	cp := c
	t.doc.containers = append(t.doc.containers, &cp)
	t.record(func() {
		if _, i := t.doc.container(cp.Name); i >= 0 {
			t.doc.containers = slices.Delete(t.doc.containers, i, i+1)
		}
	})
	return nil
}

// DeleteContainer implements scene.Txn. Members of the deleted container
// become unassigned.
func (t *txn) DeleteContainer(name string) error {
	if err := t.check(); err != nil {
		return err
	}
	c, i := t.doc.container(name)
	if c == nil {
		return fmt.Errorf("%w: %q", scene.ErrContainerNotFound, name)
	}
	var members []scene.NodeID
	for id, n := range t.doc.nodes {
		if n.container == name {
			members = append(members, id)
			n.container = ""
		}
	}
	t.doc.containers = slices.Delete(t.doc.containers, i, i+1)
	t.record(func() {
		idx := min(i, len(t.doc.containers))
		t.doc.containers = slices.Insert(t.doc.containers, idx, c)
		for _, id := range members {
			t.doc.nodes[id].container = name
		}
	})
	return nil
}

// SetContainerFlags implements scene.Txn.
func (t *txn) SetContainerFlags(name string, flags scene.ContainerFlags) error {
	if err := t.check(); err != nil {
		return err
	}
	c, _ := t.doc.container(name)
	if c == nil {
		return fmt.Errorf("%w: %q", scene.ErrContainerNotFound, name)
	}
	prev := c.Flags
	c.Flags = flags
	t.record(func() { c.Flags = prev })
	return nil
}

// AssignContainer implements scene.Txn.
func (t *txn) AssignContainer(id scene.NodeID, container string) error {
	if err := t.check(); err != nil {
		return err
	}
	if err := t.doc.assignFaults[id]; err != nil {
		return err
	}
	n, ok := t.doc.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", scene.ErrNodeNotFound, id)
	}
	if c, _ := t.doc.container(container); c == nil {
		return fmt.Errorf("%w: %q", scene.ErrContainerNotFound, container)
	}
	prev := n.container
	n.container = container
	t.record(func() { n.container = prev })
	return nil
}

// SetNodeEnabled implements scene.Txn.
func (t *txn) SetNodeEnabled(id scene.NodeID, enabled bool) error {
	if err := t.check(); err != nil {
		return err
	}
	n, ok := t.doc.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", scene.ErrNodeNotFound, id)
	}
	prev := n.info.Enabled
	n.info.Enabled = enabled
	t.record(func() { n.info.Enabled = prev })
	return nil
}

// End implements scene.Txn. An empty transaction records no undo step.
func (t *txn) End() error {
	if err := t.check(); err != nil {
		return err
	}
	t.closed = true
	t.doc.open = nil
	if len(t.undo) > 0 {
		t.doc.undo = append(t.doc.undo, t.undo)
	}
	return nil
}
