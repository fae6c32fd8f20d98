package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"expvar"
	"log"
	"time"

	"github.com/gooleh/Hotel-Management-App/internal/models"
	"github.com/gooleh/Hotel-Management-App/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Malformed rows are counted and skipped, never silently dropped.
var decodeErrors = expvar.NewInt("store_decode_errors_total")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateRequest(ctx context.Context, input store.CreateRequestInput) (models.Request, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Request{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	request := models.Request{
		RequestID:  uuid.NewString(),
		Type:       input.Type,
		Item:       input.Item,
		RoomNumber: input.RoomNumber,
		CreatedAt:  createdAt,
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO requests (request_id, type, item, room_number, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, request.RequestID, request.Type, request.Item, request.RoomNumber, request.CreatedAt); err != nil {
		return models.Request{}, err
	}

	if err = insertOutboxEvent(ctx, tx, "request.created", request); err != nil {
		return models.Request{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Request{}, err
	}
	return request, nil
}

func (s *Store) ListRequests(ctx context.Context) ([]models.Request, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT request_id, type, item, room_number, created_at, assigned_to
		FROM requests
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.Request
	for rows.Next() {
		request, ok := scanRequest(rows)
		if !ok {
			continue
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

func (s *Store) AssignRequest(ctx context.Context, requestID, staffName string) (models.Request, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Request{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Last write wins on purpose: staff coordinate assignment socially and
	// the store does not arbitrate the race.
	var request models.Request
	var assignedTo sql.NullString
	row := tx.QueryRow(ctx, `
		UPDATE requests SET assigned_to = $2
		WHERE request_id = $1
		RETURNING request_id, type, item, room_number, created_at, assigned_to
	`, requestID, staffName)
	if err = row.Scan(&request.RequestID, &request.Type, &request.Item, &request.RoomNumber, &request.CreatedAt, &assignedTo); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrRequestNotFound
		}
		return models.Request{}, err
	}
	if assignedTo.Valid {
		request.AssignedTo = &assignedTo.String
	}

	if err = insertOutboxEvent(ctx, tx, "request.assigned", request); err != nil {
		return models.Request{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Request{}, err
	}
	return request, nil
}

func (s *Store) CompleteRequest(ctx context.Context, requestID string) (models.Request, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Request{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var request models.Request
	var assignedTo sql.NullString
	row := tx.QueryRow(ctx, `
		DELETE FROM requests
		WHERE request_id = $1
		RETURNING request_id, type, item, room_number, created_at, assigned_to
	`, requestID)
	if err = row.Scan(&request.RequestID, &request.Type, &request.Item, &request.RoomNumber, &request.CreatedAt, &assignedTo); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrRequestNotFound
		}
		return models.Request{}, err
	}
	if assignedTo.Valid {
		request.AssignedTo = &assignedTo.String
	}

	// Copy and delete commit together; the archive can never hold a
	// duplicate of a still-active request via this path.
	if _, err = tx.Exec(ctx, `
		INSERT INTO completed_orders (record_id, type, item, room_number, created_at, assigned_to, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (record_id) DO NOTHING
	`, request.RequestID, request.Type, request.Item, request.RoomNumber, request.CreatedAt, assignedTo, time.Now().UTC()); err != nil {
		return models.Request{}, err
	}

	if err = insertOutboxEvent(ctx, tx, "request.completed", request); err != nil {
		return models.Request{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Request{}, err
	}
	return request, nil
}

func (s *Store) ListCompletedRequests(ctx context.Context) ([]models.Request, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT record_id, type, item, room_number, created_at, assigned_to
		FROM completed_orders
		ORDER BY completed_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.Request
	for rows.Next() {
		request, ok := scanRequest(rows)
		if !ok {
			continue
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

func (s *Store) CreateOrder(ctx context.Context, input store.CreateOrderInput) (models.Order, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Order{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	order := models.Order{
		OrderID:     uuid.NewString(),
		Item:        input.Item,
		RoomNumber:  input.RoomNumber,
		RequestedBy: input.RequestedBy,
		Status:      models.StatusPending,
		CreatedAt:   createdAt,
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO room_service_orders (order_id, item, room_number, requested_by, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, order.OrderID, order.Item, order.RoomNumber, order.RequestedBy, order.Status, order.CreatedAt); err != nil {
		return models.Order{}, err
	}

	if err = insertOutboxEvent(ctx, tx, "order.created", order); err != nil {
		return models.Order{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *Store) ListOrders(ctx context.Context, status string) ([]models.Order, error) {
	query := `
		SELECT order_id, item, room_number, requested_by, status, estimated_time, created_at
		FROM room_service_orders
	`
	args := []interface{}{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		var estimated sql.NullString
		if err := rows.Scan(&order.OrderID, &order.Item, &order.RoomNumber, &order.RequestedBy, &order.Status, &estimated, &order.CreatedAt); err != nil {
			decodeErrors.Add(1)
			log.Printf("order decode error: %v", err)
			continue
		}
		if estimated.Valid {
			order.EstimatedTime = estimated.String
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) AcceptOrder(ctx context.Context, input store.AcceptOrderInput) (models.Order, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Order{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var current string
	row := tx.QueryRow(ctx, `SELECT status FROM room_service_orders WHERE order_id = $1 FOR UPDATE`, input.OrderID)
	if err = row.Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrOrderNotFound
		}
		return models.Order{}, err
	}
	if !store.ValidTransition("accept", current) {
		err = store.ErrInvalidState
		return models.Order{}, err
	}

	var order models.Order
	var estimated sql.NullString
	row = tx.QueryRow(ctx, `
		UPDATE room_service_orders
		SET status = $2, estimated_time = $3
		WHERE order_id = $1
		RETURNING order_id, item, room_number, requested_by, status, estimated_time, created_at
	`, input.OrderID, models.StatusAccepted, input.EstimatedTime)
	if err = row.Scan(&order.OrderID, &order.Item, &order.RoomNumber, &order.RequestedBy, &order.Status, &estimated, &order.CreatedAt); err != nil {
		return models.Order{}, err
	}
	if estimated.Valid {
		order.EstimatedTime = estimated.String
	}

	if err = insertOutboxEvent(ctx, tx, "order.accepted", order); err != nil {
		return models.Order{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *Store) CompleteOrder(ctx context.Context, orderID string) (models.Order, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Order{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var current string
	row := tx.QueryRow(ctx, `SELECT status FROM room_service_orders WHERE order_id = $1 FOR UPDATE`, orderID)
	if err = row.Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrOrderNotFound
		}
		return models.Order{}, err
	}
	if !store.ValidTransition("complete", current) {
		err = store.ErrInvalidState
		return models.Order{}, err
	}

	var order models.Order
	var estimated sql.NullString
	row = tx.QueryRow(ctx, `
		DELETE FROM room_service_orders
		WHERE order_id = $1
		RETURNING order_id, item, room_number, requested_by, status, estimated_time, created_at
	`, orderID)
	if err = row.Scan(&order.OrderID, &order.Item, &order.RoomNumber, &order.RequestedBy, &order.Status, &estimated, &order.CreatedAt); err != nil {
		return models.Order{}, err
	}
	if estimated.Valid {
		order.EstimatedTime = estimated.String
	}
	order.Status = models.StatusCompleted

	if _, err = tx.Exec(ctx, `
		INSERT INTO completed_orders (record_id, type, item, room_number, created_at, assigned_to, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (record_id) DO NOTHING
	`, order.OrderID, models.TypeRoomService, order.Item, order.RoomNumber, order.CreatedAt, order.RequestedBy, time.Now().UTC()); err != nil {
		return models.Order{}, err
	}

	if err = insertOutboxEvent(ctx, tx, "order.completed", order); err != nil {
		return models.Order{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// ReconcileArchive removes active rows that already exist in the archive,
// left behind when an older writer's copy landed but its delete did not.
func (s *Store) ReconcileArchive(ctx context.Context) (int, error) {
	total := 0
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM requests
		WHERE request_id IN (SELECT record_id FROM completed_orders)
	`)
	if err != nil {
		return 0, err
	}
	total += int(tag.RowsAffected())

	tag, err = s.pool.Exec(ctx, `
		DELETE FROM room_service_orders
		WHERE order_id IN (SELECT record_id FROM completed_orders)
	`)
	if err != nil {
		return total, err
	}
	total += int(tag.RowsAffected())
	return total, nil
}

func (s *Store) ListMenus(ctx context.Context) ([]models.Menu, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT menu_id, name, section, price
		FROM room_service_menus
		ORDER BY section, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var menus []models.Menu
	for rows.Next() {
		var menu models.Menu
		if err := rows.Scan(&menu.MenuID, &menu.Name, &menu.Section, &menu.Price); err != nil {
			decodeErrors.Add(1)
			log.Printf("menu decode error: %v", err)
			continue
		}
		menus = append(menus, menu)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return menus, nil
}

func scanRequest(rows pgx.Rows) (models.Request, bool) {
	var request models.Request
	var assignedTo sql.NullString
	if err := rows.Scan(&request.RequestID, &request.Type, &request.Item, &request.RoomNumber, &request.CreatedAt, &assignedTo); err != nil {
		decodeErrors.Add(1)
		log.Printf("request decode error: %v", err)
		return models.Request{}, false
	}
	if assignedTo.Valid {
		request.AssignedTo = &assignedTo.String
	}
	return request, true
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, type, payload, created_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), eventType, body, time.Now().UTC())
	return err
}
