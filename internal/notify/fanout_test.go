package notify

import (
	"context"
	"testing"

	"github.com/gooleh/Hotel-Management-App/internal/hub"
	"github.com/gooleh/Hotel-Management-App/internal/models"
)

type fakeChannel struct {
	published []hub.Envelope
}

func (f *fakeChannel) Publish(env hub.Envelope) int {
	f.published = append(f.published, env)
	return 1
}

type fakeLog struct {
	records []models.NotificationRecord
	err     error
}

func (f *fakeLog) AppendNotification(ctx context.Context, record models.NotificationRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeLog) ListNotifications(ctx context.Context, recipient string, limit int) ([]models.NotificationRecord, error) {
	return f.records, nil
}

func TestSupplyRequestFanOut(t *testing.T) {
	channel := &fakeChannel{}
	logStore := &fakeLog{}
	router := NewRouter(channel, logStore)

	router.SupplyRequested(context.Background(), "Water", "501")

	if len(channel.published) != 1 {
		t.Fatalf("published %d envelopes, want 1", len(channel.published))
	}
	env := channel.published[0]
	if env.Recipient != models.DeptHousekeeping {
		t.Fatalf("recipient=%s, want housekeeping", env.Recipient)
	}
	if env.Message != "Supply request for Water from room 501" {
		t.Fatalf("unexpected message: %s", env.Message)
	}

	if len(logStore.records) != 1 {
		t.Fatalf("logged %d records, want 1", len(logStore.records))
	}
	record := logStore.records[0]
	if record.Recipient != models.DeptHousekeeping || record.Message != env.Message {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.NotificationID == "" || record.CreatedAt.IsZero() {
		t.Fatalf("record missing id or timestamp: %+v", record)
	}
}

func TestOccupancyChangeFansOutToBothDepartments(t *testing.T) {
	channel := &fakeChannel{}
	logStore := &fakeLog{}
	router := NewRouter(channel, logStore)

	router.OccupancyChanged(context.Background(), "302", true)

	if len(channel.published) != 2 {
		t.Fatalf("published %d envelopes, want 2", len(channel.published))
	}
	recipients := map[string]bool{}
	for _, env := range channel.published {
		recipients[env.Recipient] = true
		if env.Message != "Room 302 occupancy changed to Occupied" {
			t.Fatalf("unexpected message: %s", env.Message)
		}
	}
	if !recipients[models.DeptHousekeeping] || !recipients[models.DeptFrontDesk] {
		t.Fatalf("unexpected recipients: %v", recipients)
	}
	if len(logStore.records) != 2 {
		t.Fatalf("logged %d records, want 2", len(logStore.records))
	}
}

func TestLogWriteFailureDoesNotBlockPublish(t *testing.T) {
	channel := &fakeChannel{}
	logStore := &fakeLog{err: context.DeadlineExceeded}
	router := NewRouter(channel, logStore)

	router.OrderPlaced(context.Background(), "Pasta", "704")

	if len(channel.published) != 1 {
		t.Fatalf("published %d envelopes, want 1", len(channel.published))
	}
	if channel.published[0].Recipient != models.DeptKitchen {
		t.Fatalf("recipient=%s, want kitchen", channel.published[0].Recipient)
	}
}

func TestOrderLifecycleMessages(t *testing.T) {
	channel := &fakeChannel{}
	router := NewRouter(channel, &fakeLog{})

	router.OrderAccepted(context.Background(), "20")
	router.OrderCompleted(context.Background(), "704")

	if len(channel.published) != 2 {
		t.Fatalf("published %d envelopes, want 2", len(channel.published))
	}
	for _, env := range channel.published {
		if env.Recipient != models.TopicRoomService {
			t.Fatalf("recipient=%s, want roomService", env.Recipient)
		}
	}
	if channel.published[0].Message != "Order accepted with estimated time: 20 minutes" {
		t.Fatalf("unexpected accept message: %s", channel.published[0].Message)
	}
	if channel.published[1].Message != "Order completed for room 704" {
		t.Fatalf("unexpected complete message: %s", channel.published[1].Message)
	}
}
