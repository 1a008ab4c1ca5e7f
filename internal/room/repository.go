package room

import (
	"context"
	"errors"
)

// ErrRoomNotFound is returned by lookups that never create.
var ErrRoomNotFound = errors.New("room not found")

// Repo is the room registry. Implementations return clones; callers
// mutate their copy and persist it with Save.
type Repo interface {
	// GetOrCreate returns the room, lazily creating it with the given
	// connection as creator on first sight of the id.
	GetOrCreate(ctx context.Context, roomID, creatorConn string) (*Room, error)
	// Get is a read-only lookup; ErrRoomNotFound when absent.
	Get(ctx context.Context, roomID string) (*Room, error)
	// Save persists a mutated room and refreshes its idle clock.
	Save(ctx context.Context, r *Room) error
	// RoomsFor is the reverse index: which rooms hold this connection.
	RoomsFor(ctx context.Context, connID string) ([]string, error)
	// RemoveParticipant drops the connection from every room holding it
	// and returns the affected rooms, post-removal.
	RemoveParticipant(ctx context.Context, connID string) ([]*Room, error)
}
