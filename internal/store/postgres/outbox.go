package postgres

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gooleh/Hotel-Management-App/internal/models"
	"github.com/gooleh/Hotel-Management-App/internal/store"

	"github.com/jackc/pgx/v5"
)

func (s *Store) AppendNotification(ctx context.Context, record models.NotificationRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO issue_reports (notification_id, message, recipient, created_at)
		VALUES ($1,$2,$3,$4)
	`, record.NotificationID, record.Message, record.Recipient, record.CreatedAt)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, recipient string, limit int) ([]models.NotificationRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT notification_id, message, recipient, created_at
		FROM issue_reports
		WHERE recipient = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, recipient, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.NotificationRecord
	for rows.Next() {
		var record models.NotificationRecord
		if err := rows.Scan(&record.NotificationID, &record.Message, &record.Recipient, &record.CreatedAt); err != nil {
			decodeErrors.Add(1)
			log.Printf("notification decode error: %v", err)
			continue
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Events strictly after the offset, ordered so repeated polls with the same
// offset always see the same prefix.
func (s *Store) ListOutboxEvents(ctx context.Context, offset store.OutboxOffset, limit int) ([]store.OutboxEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, type, payload, created_at
		FROM outbox_events
		WHERE (created_at, event_id) > ($1, $2)
		ORDER BY created_at, event_id
		LIMIT $3
	`, offset.LastEventTime, offset.LastEventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.OutboxEvent
	for rows.Next() {
		var event store.OutboxEvent
		if err := rows.Scan(&event.EventID, &event.Type, &event.Payload, &event.CreatedAt); err != nil {
			decodeErrors.Add(1)
			log.Printf("outbox decode error: %v", err)
			continue
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) GetOffset(ctx context.Context) (store.OutboxOffset, error) {
	var offset store.OutboxOffset
	row := s.pool.QueryRow(ctx, `
		SELECT last_event_time, last_event_id
		FROM realtime_offsets
		WHERE id = 1
	`)
	if err := row.Scan(&offset.LastEventTime, &offset.LastEventID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.OutboxOffset{}, nil
		}
		return store.OutboxOffset{}, err
	}
	return offset, nil
}

func (s *Store) UpdateOffset(ctx context.Context, offset store.OutboxOffset) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO realtime_offsets (id, last_event_time, last_event_id)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET last_event_time = $1, last_event_id = $2
	`, offset.LastEventTime, offset.LastEventID)
	return err
}

func (s *Store) CleanupOutbox(ctx context.Context, before time.Time) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM outbox_events WHERE created_at < $1`, before)
	return err
}
