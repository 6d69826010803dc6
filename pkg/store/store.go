// Package store persists document snapshots taken on every successful save.
//
// A snapshot is the full serialized document plus metadata describing the
// change batch that produced it. The history lets operators inspect how a
// config evolved and recover content overwritten by a bad edit.
package store

import (
	"context"
	"time"
)

// Snapshot is one archived document revision.
type Snapshot struct {
	ID       string    `bson:"_id" json:"id"`
	ConfigID string    `bson:"config_id" json:"configId"`
	Name     string    `bson:"name" json:"name"`
	Content  []byte    `bson:"content" json:"content"`
	Summary  Summary   `bson:"summary" json:"summary"`
	SavedAt  time.Time `bson:"saved_at" json:"savedAt"`
}

// Summary counts what a change batch did to the document.
type Summary struct {
	NodesMoved   int `bson:"nodes_moved" json:"nodesMoved"`
	NodesResized int `bson:"nodes_resized" json:"nodesResized"`
	NodesUpdated int `bson:"nodes_updated" json:"nodesUpdated"`
	NodesDeleted int `bson:"nodes_deleted" json:"nodesDeleted"`
	EdgesCreated int `bson:"edges_created" json:"edgesCreated"`
	EdgesDeleted int `bson:"edges_deleted" json:"edgesDeleted"`
}

// Store archives and retrieves document snapshots.
type Store interface {
	// Save archives a snapshot. The snapshot ID must be unique.
	Save(ctx context.Context, snap Snapshot) error
	// List returns snapshots for a config, newest first, up to limit.
	// A limit <= 0 returns all snapshots.
	List(ctx context.Context, configID string, limit int) ([]Snapshot, error)
	// Get retrieves a single snapshot by ID.
	Get(ctx context.Context, id string) (Snapshot, error)
	// Close releases backend resources.
	Close(ctx context.Context) error
}
