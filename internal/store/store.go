package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gooleh/Hotel-Management-App/internal/models"
)

type CreateRequestInput struct {
	Type       string
	Item       string
	RoomNumber string
	CreatedAt  time.Time
}

type CreateOrderInput struct {
	Item        string
	RoomNumber  string
	RequestedBy string
	CreatedAt   time.Time
}

type AcceptOrderInput struct {
	OrderID       string
	EstimatedTime string
	OccurredAt    time.Time
}

type OccupancyInput struct {
	RoomNumber string
	Occupied   bool
	Report     string
}

type RoomStatusInput struct {
	RoomNumber  string
	Status      string
	LastCleaned *time.Time
}

type RequestStore interface {
	CreateRequest(ctx context.Context, input CreateRequestInput) (models.Request, error)
	ListRequests(ctx context.Context) ([]models.Request, error)
	AssignRequest(ctx context.Context, requestID, staffName string) (models.Request, error)
	CompleteRequest(ctx context.Context, requestID string) (models.Request, error)
	ListCompletedRequests(ctx context.Context) ([]models.Request, error)

	CreateOrder(ctx context.Context, input CreateOrderInput) (models.Order, error)
	ListOrders(ctx context.Context, status string) ([]models.Order, error)
	AcceptOrder(ctx context.Context, input AcceptOrderInput) (models.Order, error)
	CompleteOrder(ctx context.Context, orderID string) (models.Order, error)
	ReconcileArchive(ctx context.Context) (int, error)

	ListMenus(ctx context.Context) ([]models.Menu, error)
}

type RoomStore interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	GetRoom(ctx context.Context, number string) (models.Room, error)
	UpdateRoomStatus(ctx context.Context, input RoomStatusInput) (models.Room, error)
	UpdateCheckIn(ctx context.Context, number string, checkedIn bool) (models.Room, error)
	UpdateOccupancy(ctx context.Context, input OccupancyInput) (models.Room, error)
	UpdateNotes(ctx context.Context, number, notes string) (models.Room, error)
	UpdateMaintenanceNotes(ctx context.Context, number, notes string) (models.Room, error)
}

type AccessStore interface {
	Login(ctx context.Context, phone, password string, expiresAt time.Time) (models.Session, error)
	GetSession(ctx context.Context, sessionID string) (models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ListApprovedNumbers(ctx context.Context) ([]models.ApprovedNumber, error)
	AddApprovedNumber(ctx context.Context, number models.ApprovedNumber, password string) error
	DeleteApprovedNumber(ctx context.Context, phone string) error
}

type NotificationStore interface {
	AppendNotification(ctx context.Context, record models.NotificationRecord) error
	ListNotifications(ctx context.Context, recipient string, limit int) ([]models.NotificationRecord, error)
}

// Store is everything the HTTP layer and the fan-out layer need from the
// backing database.
type Store interface {
	RequestStore
	RoomStore
	AccessStore
	NotificationStore
	OutboxStore
}

type OutboxEvent struct {
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type OutboxOffset struct {
	LastEventTime time.Time
	LastEventID   string
}

type OutboxStore interface {
	ListOutboxEvents(ctx context.Context, offset OutboxOffset, limit int) ([]OutboxEvent, error)
	GetOffset(ctx context.Context) (OutboxOffset, error)
	UpdateOffset(ctx context.Context, offset OutboxOffset) error
	CleanupOutbox(ctx context.Context, before time.Time) error
}
