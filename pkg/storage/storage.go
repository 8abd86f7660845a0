package storage

import (
	"context"

	"github.com/jwebster45206/narrative-engine/pkg/player"
	"github.com/jwebster45206/narrative-engine/pkg/progress"
)

// Storage defines the persistence operations the narrative engine needs.
// Loads return (nil, nil) when the record does not exist.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Progress operations
	GetProgress(ctx context.Context, playerID string) (*progress.Progress, error)
	SaveProgress(ctx context.Context, p *progress.Progress) error

	// Player aggregate operations
	GetPlayer(ctx context.Context, playerID string) (*player.Player, error)
	SavePlayer(ctx context.Context, p *player.Player) error

	// Relationship operations
	GetRelationship(ctx context.Context, playerID, npcID string) (*player.Relationship, error)
	SaveRelationship(ctx context.Context, r *player.Relationship) error

	// Faction standing operations
	GetFactionStandings(ctx context.Context, playerID string) (map[string]int, error)
	SetFactionStanding(ctx context.Context, playerID, factionID string, value int) error

	// Event participant operations. AddEventParticipant reports whether the
	// player was newly added.
	AddEventParticipant(ctx context.Context, eventID, playerID string) (bool, error)
	RemoveEventParticipant(ctx context.Context, eventID, playerID string) error
	ListEventParticipants(ctx context.Context, eventID string) ([]string, error)
}
