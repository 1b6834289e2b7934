// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scene

// DocumentID is a stable identity for an open document.
//
// The result cache keys every entry by DocumentID and drops all entries
// when the active document's identity changes.
type DocumentID string

// Reader is the read side of a host scene graph.
//
// Errors returned for a single node (ErrNodeNotFound or any host error)
// are local to that node; callers skip the node and carry on.
type Reader interface {
	// TopLevel returns the top-level nodes in document order.
	TopLevel() ([]NodeID, error)

	// Node returns a snapshot of the node.
	Node(id NodeID) (Node, error)

	// Children returns the node's children in sibling order.
	Children(id NodeID) ([]NodeID, error)

	// Tracks returns the node's animation tracks.
	Tracks(id NodeID) ([]Track, error)

	// Attr reads a named numeric attribute. Returns
	// ErrAttributeUnavailable when the host has no such attribute path.
	Attr(id NodeID, name string) (float64, error)

	// TypeName returns the display name of a type. This may be slow;
	// callers memoize per TypeID.
	TypeName(t TypeID) (string, error)

	// RenderSettings returns the document's render-configuration entries.
	RenderSettings() ([]RenderSetting, error)

	// Containers returns every container in the document.
	Containers() ([]Container, error)

	// ContainerOf returns the container a node is assigned to.
	// The bool is false when the node has no container.
	ContainerOf(id NodeID) (string, bool, error)
}

// Txn is an undo-recordable mutation transaction.
//
// Every mutation made through a Txn is reverted by a single user-level
// undo once End has been called.
type Txn interface {
	// ID identifies the transaction in logs.
	ID() string

	CreateContainer(c Container) error
	DeleteContainer(name string) error
	SetContainerFlags(name string, flags ContainerFlags) error

	// AssignContainer moves a node into the named container, replacing any
	// previous assignment.
	AssignContainer(id NodeID, container string) error

	SetNodeEnabled(id NodeID, enabled bool) error

	// End closes the transaction and records it as one undo step.
	End() error
}

// Mutator opens mutation transactions.
type Mutator interface {
	// Begin opens a transaction. Only one transaction may be open at a
	// time; Begin returns ErrTransactionOpen otherwise.
	Begin(label string) (Txn, error)
}

// ShotRegistry exposes the document's single active named scene variant.
type ShotRegistry interface {
	ActiveShot() (string, error)
	SetActiveShot(name string) error
	Shots() ([]string, error)
}

// Document is an open host document.
type Document interface {
	Reader
	Mutator
	ShotRegistry

	// ID is the document's stable identity.
	ID() DocumentID

	// Path is the directory the document is saved in, or "" when unsaved.
	Path() string

	// Name is the document's file name, or "" when unsaved.
	Name() string
}
