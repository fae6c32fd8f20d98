package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/gooleh/Hotel-Management-App/internal/models"
	"github.com/gooleh/Hotel-Management-App/internal/store"

	"github.com/jackc/pgx/v5"
)

const roomColumns = `number, checked_in, occupied, status, last_cleaned, notes, maintenance_notes, supplies, room_services`

func (s *Store) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Room
	for rows.Next() {
		room, ok := scanRoom(rows)
		if !ok {
			continue
		}
		result = append(result, room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) GetRoom(ctx context.Context, number string) (models.Room, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE number = $1`, number)
	return scanRoomRow(row)
}

func (s *Store) UpdateRoomStatus(ctx context.Context, input store.RoomStatusInput) (models.Room, error) {
	lastCleaned := sql.NullTime{}
	if input.LastCleaned != nil {
		lastCleaned = sql.NullTime{Time: *input.LastCleaned, Valid: true}
	} else if input.Status == models.RoomClean || input.Status == models.RoomInspected {
		lastCleaned = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}
	return s.updateRoom(ctx, "room.updated", `
		UPDATE rooms
		SET status = $2, last_cleaned = COALESCE($3, last_cleaned)
		WHERE number = $1
		RETURNING `+roomColumns, input.RoomNumber, input.Status, lastCleaned)
}

func (s *Store) UpdateCheckIn(ctx context.Context, number string, checkedIn bool) (models.Room, error) {
	return s.updateRoom(ctx, "room.updated", `
		UPDATE rooms SET checked_in = $2
		WHERE number = $1
		RETURNING `+roomColumns, number, checkedIn)
}

func (s *Store) UpdateOccupancy(ctx context.Context, input store.OccupancyInput) (models.Room, error) {
	// A vacated room needs cleaning before the next guest.
	if input.Occupied {
		return s.updateRoom(ctx, "room.updated", `
			UPDATE rooms SET occupied = true
			WHERE number = $1
			RETURNING `+roomColumns, input.RoomNumber)
	}
	return s.updateRoom(ctx, "room.updated", `
		UPDATE rooms SET occupied = false, status = $2
		WHERE number = $1
		RETURNING `+roomColumns, input.RoomNumber, models.RoomDirty)
}

func (s *Store) UpdateNotes(ctx context.Context, number, notes string) (models.Room, error) {
	return s.updateRoom(ctx, "room.updated", `
		UPDATE rooms SET notes = $2
		WHERE number = $1
		RETURNING `+roomColumns, number, notes)
}

func (s *Store) UpdateMaintenanceNotes(ctx context.Context, number, notes string) (models.Room, error) {
	return s.updateRoom(ctx, "room.updated", `
		UPDATE rooms SET maintenance_notes = $2
		WHERE number = $1
		RETURNING `+roomColumns, number, notes)
}

func (s *Store) updateRoom(ctx context.Context, eventType, query string, args ...interface{}) (models.Room, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Room{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, query, args...)
	var room models.Room
	room, err = scanRoomRow(row)
	if err != nil {
		return models.Room{}, err
	}

	if err = insertOutboxEvent(ctx, tx, eventType, room); err != nil {
		return models.Room{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

func scanRoom(rows pgx.Rows) (models.Room, bool) {
	room, err := scanRoomFrom(rows)
	if err != nil {
		decodeErrors.Add(1)
		log.Printf("room decode error: %v", err)
		return models.Room{}, false
	}
	return room, true
}

func scanRoomRow(row pgx.Row) (models.Room, error) {
	room, err := scanRoomFrom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Room{}, store.ErrRoomNotFound
		}
		return models.Room{}, err
	}
	return room, nil
}

func scanRoomFrom(row pgx.Row) (models.Room, error) {
	var room models.Room
	var lastCleaned sql.NullTime
	var notes, maintenance sql.NullString
	if err := row.Scan(&room.Number, &room.CheckedIn, &room.Occupied, &room.Status, &lastCleaned, &notes, &maintenance, &room.Supplies, &room.RoomServices); err != nil {
		return models.Room{}, err
	}
	if lastCleaned.Valid {
		room.LastCleaned = lastCleaned.Time
	}
	room.Notes = notes.String
	room.MaintenanceNotes = maintenance.String
	if room.Status == "" {
		room.Status = models.RoomUnknown
	}
	return room, nil
}
