package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ ChannelRepository = (*ChannelRepositoryImpl)(nil)

type ChannelRepositoryImpl struct {
	db *DB
}

func NewChannelRepository(db *DB) *ChannelRepositoryImpl {
	return &ChannelRepositoryImpl{db: db}
}

// UpsertChannel registers a configured channel subscription, updating the
// YouTube channel ID if the configuration changed.
func (r *ChannelRepositoryImpl) UpsertChannel(name, channelID string) (string, error) {
	existing, err := r.GetChannel(name)
	if err != nil {
		return "", fmt.Errorf("failed to check existing channel: %w", err)
	}

	now := time.Now().UTC()

	if existing != nil {
		_, err = r.db.Exec(`
			UPDATE channels SET channel_id = ?, updated_at = ? WHERE name = ?
		`, channelID, now, name)
		if err != nil {
			return "", fmt.Errorf("failed to update channel: %w", err)
		}
		return existing.ID, nil
	}

	id := uuid.NewString()
	_, err = r.db.Exec(`
		INSERT INTO channels (id, name, channel_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, name, channelID, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to insert channel: %w", err)
	}

	return id, nil
}

func (r *ChannelRepositoryImpl) GetChannel(name string) (*Channel, error) {
	var channel Channel
	var lastSynced, nextSync sql.NullTime

	err := r.db.QueryRow(`
		SELECT id, name, channel_id, last_synced_at, next_sync_at, created_at, updated_at
		FROM channels WHERE name = ?
	`, name).Scan(&channel.ID, &channel.Name, &channel.ChannelID,
		&lastSynced, &nextSync, &channel.CreatedAt, &channel.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	if lastSynced.Valid {
		channel.LastSyncedAt = &lastSynced.Time
	}
	if nextSync.Valid {
		channel.NextSyncAt = &nextSync.Time
	}

	return &channel, nil
}

func (r *ChannelRepositoryImpl) UpdateChannelSynced(name string, nextSync time.Time) error {
	now := time.Now().UTC()

	_, err := r.db.Exec(`
		UPDATE channels SET last_synced_at = ?, next_sync_at = ?, updated_at = ? WHERE name = ?
	`, now, nextSync, now, name)

	if err != nil {
		return fmt.Errorf("failed to update channel sync time: %w", err)
	}

	return nil
}

func (r *ChannelRepositoryImpl) GetChannelCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM channels`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count channels: %w", err)
	}
	return count, nil
}
