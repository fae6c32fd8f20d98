package notify

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"time"

	"github.com/gooleh/Hotel-Management-App/internal/hub"
	"github.com/gooleh/Hotel-Management-App/internal/models"
	"github.com/gooleh/Hotel-Management-App/internal/store"

	"github.com/google/uuid"
)

var logWriteErrors = expvar.NewInt("notify_log_write_errors_total")

// Publisher is the realtime side of the fan-out. *hub.Hub satisfies it.
type Publisher interface {
	Publish(env hub.Envelope) int
}

const (
	TopicRequest      = "request"
	TopicOrder        = "order"
	TopicNotification = "notification"
)

// Router couples a store mutation to a realtime push and a durable
// notification log entry. The log entry is written unconditionally by the
// sender, whether or not anyone was connected to see the push, so nothing
// is lost while a department view is closed.
type Router struct {
	channel Publisher
	log     store.NotificationStore
	now     func() time.Time
}

func NewRouter(channel Publisher, logStore store.NotificationStore) *Router {
	return &Router{channel: channel, log: logStore, now: func() time.Time { return time.Now().UTC() }}
}

// RequestCreated routes a freshly stored request to the department that owns
// its type. Generic orders land with housekeeping, same as supplies.
func (r *Router) RequestCreated(ctx context.Context, req models.Request) {
	switch req.Type {
	case models.TypeMaintenance:
		r.MaintenanceReported(ctx, req.RoomNumber, req.Item)
	default:
		r.SupplyRequested(ctx, req.Item, req.RoomNumber)
	}
}

func (r *Router) SupplyRequested(ctx context.Context, item, roomNumber string) {
	message := fmt.Sprintf("Supply request for %s from room %s", item, roomNumber)
	r.dispatch(ctx, TopicRequest, message, models.DeptHousekeeping)
}

func (r *Router) MaintenanceReported(ctx context.Context, roomNumber, report string) {
	message := fmt.Sprintf("Maintenance issue in room %s: %s", roomNumber, report)
	r.dispatch(ctx, TopicRequest, message, models.DeptFacility)
}

func (r *Router) OrderPlaced(ctx context.Context, item, roomNumber string) {
	message := fmt.Sprintf("New room service request from room %s for %s", roomNumber, item)
	r.dispatch(ctx, TopicOrder, message, models.DeptKitchen)
}

func (r *Router) OrderAccepted(ctx context.Context, estimatedTime string) {
	message := fmt.Sprintf("Order accepted with estimated time: %s minutes", estimatedTime)
	r.dispatch(ctx, TopicOrder, message, models.TopicRoomService)
}

func (r *Router) OrderCompleted(ctx context.Context, roomNumber string) {
	message := fmt.Sprintf("Order completed for room %s", roomNumber)
	r.dispatch(ctx, TopicOrder, message, models.TopicRoomService)
}

// OccupancyChanged fans out to both departments that track occupancy.
func (r *Router) OccupancyChanged(ctx context.Context, roomNumber string, occupied bool) {
	state := "Available"
	if occupied {
		state = "Occupied"
	}
	message := fmt.Sprintf("Room %s occupancy changed to %s", roomNumber, state)
	r.dispatch(ctx, TopicNotification, message, models.DeptHousekeeping, models.DeptFrontDesk)
}

// Notify publishes an arbitrary message, used for client-originated
// sendRequest frames relayed by the realtime endpoint.
func (r *Router) Notify(ctx context.Context, topic, message string, recipients ...string) {
	r.dispatch(ctx, topic, message, recipients...)
}

func (r *Router) dispatch(ctx context.Context, topic, message string, recipients ...string) {
	for _, recipient := range recipients {
		r.channel.Publish(hub.Envelope{Message: message, Topic: topic, Recipient: recipient})

		record := models.NotificationRecord{
			NotificationID: uuid.NewString(),
			Message:        message,
			Recipient:      recipient,
			CreatedAt:      r.now(),
		}
		if err := r.log.AppendNotification(ctx, record); err != nil {
			logWriteErrors.Add(1)
			log.Printf("notification log write error recipient=%s: %v", recipient, err)
		}
	}
}
