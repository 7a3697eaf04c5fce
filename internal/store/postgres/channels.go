package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/regulens/alertfabric/internal/errs"
	"github.com/regulens/alertfabric/pkg/models"
)

func (s *Store) CreateChannel(ctx context.Context, channel *models.NotificationChannel) error {
	cfg, err := s.marshalChannelConfig(channel.Config)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO notification_channels
			(channel_id, channel_type, channel_name, configuration, is_enabled, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		channel.ChannelID, channel.Type, channel.Name, cfg, channel.Enabled, channel.CreatedAt)
	if err != nil {
		return errs.NewStoreError("create_channel", err)
	}
	return nil
}

func (s *Store) GetChannel(ctx context.Context, channelID string) (*models.NotificationChannel, error) {
	row := s.pool.QueryRow(ctx, channelSelect+" WHERE channel_id = $1", channelID)
	ch, err := s.scanChannel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.NewStoreError("get_channel", err)
	}
	return ch, nil
}

func (s *Store) ListChannels(ctx context.Context) ([]*models.NotificationChannel, error) {
	rows, err := s.pool.Query(ctx, channelSelect+" ORDER BY created_at")
	if err != nil {
		return nil, errs.NewStoreError("list_channels", err)
	}
	defer rows.Close()

	var out []*models.NotificationChannel
	for rows.Next() {
		ch, err := s.scanChannel(rows)
		if err != nil {
			return nil, errs.NewStoreError("list_channels_scan", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (s *Store) UpdateChannel(ctx context.Context, channel *models.NotificationChannel) error {
	cfg, err := s.marshalChannelConfig(channel.Config)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_channels SET
			channel_type=$2, channel_name=$3, configuration=$4, is_enabled=$5,
			last_tested_at=$6, test_status=$7
		WHERE channel_id=$1`,
		channel.ChannelID, channel.Type, channel.Name, cfg, channel.Enabled,
		channel.LastTestedAt, channel.TestStatus)
	if err != nil {
		return errs.NewStoreError("update_channel", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteChannel(ctx context.Context, channelID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notification_channels WHERE channel_id=$1`, channelID)
	if err != nil {
		return errs.NewStoreError("delete_channel", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

const channelSelect = `
	SELECT channel_id, channel_type, channel_name, configuration, is_enabled,
	       last_tested_at, test_status, created_at
	FROM notification_channels`

// marshalChannelConfig serializes a channel's config map and, if a
// sealer is attached, encrypts it before it ever reaches the database
// — SMTP passwords, Slack webhook URLs and PagerDuty keys never sit
// in the configuration column as plaintext. The configuration column
// is JSONB, so a sealed value is re-wrapped as a JSON string rather
// than stored as raw base64 bytes.
func (s *Store) marshalChannelConfig(config map[string]any) ([]byte, error) {
	plain, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshaling channel config: %w", err)
	}
	if s.sealer == nil {
		return plain, nil
	}
	sealed, err := s.sealer.Seal(plain)
	if err != nil {
		return nil, fmt.Errorf("sealing channel config: %w", err)
	}
	return json.Marshal(sealed)
}

// unmarshalChannelConfig reverses marshalChannelConfig: opens the
// sealed blob if a sealer is attached, then decodes the JSON config map.
func (s *Store) unmarshalChannelConfig(cfg []byte) (map[string]any, error) {
	if len(cfg) == 0 || string(cfg) == "null" {
		return nil, nil
	}
	plain := cfg
	if s.sealer != nil {
		var sealed string
		if err := json.Unmarshal(cfg, &sealed); err != nil {
			return nil, fmt.Errorf("unwrapping sealed channel config: %w", err)
		}
		opened, err := s.sealer.Open(sealed)
		if err != nil {
			return nil, fmt.Errorf("opening channel config: %w", err)
		}
		plain = opened
	}
	var config map[string]any
	if err := json.Unmarshal(plain, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling channel config: %w", err)
	}
	return config, nil
}

func (s *Store) scanChannel(row rowScanner) (*models.NotificationChannel, error) {
	var c models.NotificationChannel
	var cfg []byte
	if err := row.Scan(
		&c.ChannelID, &c.Type, &c.Name, &cfg, &c.Enabled,
		&c.LastTestedAt, &c.TestStatus, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	config, err := s.unmarshalChannelConfig(cfg)
	if err != nil {
		return nil, err
	}
	c.Config = config
	return &c, nil
}
