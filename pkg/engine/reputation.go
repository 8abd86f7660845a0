package engine

import (
	"context"
	"fmt"

	"github.com/jwebster45206/narrative-engine/pkg/player"
	"github.com/jwebster45206/narrative-engine/pkg/progress"
	"github.com/jwebster45206/narrative-engine/pkg/storage"
)

// StorageReputation keeps affinity on relationship records and faction
// standing in the storage faction table, both clamped to [-100, 100].
// Callers hold the player's lock.
type StorageReputation struct {
	store storage.Storage
}

func NewStorageReputation(store storage.Storage) *StorageReputation {
	return &StorageReputation{store: store}
}

func (s *StorageReputation) AdjustAffinity(ctx context.Context, playerID, npcID string, delta int) (int, error) {
	rel, err := s.store.GetRelationship(ctx, playerID, npcID)
	if err != nil {
		return 0, fmt.Errorf("failed to load relationship: %w", err)
	}
	if rel == nil {
		rel = player.NewRelationship(playerID, npcID)
	}
	v := rel.AdjustAffinity(delta)
	if err := s.store.SaveRelationship(ctx, rel); err != nil {
		return 0, fmt.Errorf("failed to save relationship: %w", err)
	}
	return v, nil
}

func (s *StorageReputation) AdjustFaction(ctx context.Context, playerID, factionID string, delta int) (int, error) {
	standings, err := s.store.GetFactionStandings(ctx, playerID)
	if err != nil {
		return 0, fmt.Errorf("failed to load faction standings: %w", err)
	}
	v := progress.Clamp(standings[factionID]+delta, progress.MinAffinity, progress.MaxAffinity)
	if err := s.store.SetFactionStanding(ctx, playerID, factionID, v); err != nil {
		return 0, fmt.Errorf("failed to save faction standing: %w", err)
	}
	return v, nil
}
