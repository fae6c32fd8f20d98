package livequery

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gooleh/Hotel-Management-App/internal/hub"
	"github.com/gooleh/Hotel-Management-App/internal/models"
	"github.com/gooleh/Hotel-Management-App/internal/store"
)

const TopicSnapshot = "snapshot"

const zeroUUID = "00000000-0000-0000-0000-000000000000"

// Store is the slice of the database the publisher needs: the outbox stream
// plus the collections it materializes.
type Store interface {
	store.OutboxStore
	ListRequests(ctx context.Context) ([]models.Request, error)
	ListOrders(ctx context.Context, status string) ([]models.Order, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
}

// Publisher tails the outbox and, for every change, re-delivers the full
// current result set of the affected collection to every department view
// subscribed to it. Snapshots are whole-set, not diffs.
type Publisher struct {
	store     Store
	hub       *hub.Hub
	interval  time.Duration
	batchSize int
	retention time.Duration

	offset store.OutboxOffset
}

type Config struct {
	Interval  time.Duration
	BatchSize int
	Retention time.Duration
}

func New(st Store, h *hub.Hub, cfg Config) *Publisher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = time.Hour
	}
	return &Publisher{store: st, hub: h, interval: interval, batchSize: batch, retention: retention}
}

func (p *Publisher) Run(ctx context.Context) {
	offset, err := p.store.GetOffset(ctx)
	if err != nil {
		log.Printf("livequery load offset error: %v", err)
	}
	if offset.LastEventTime.IsZero() {
		offset.LastEventTime = time.Unix(0, 0).UTC()
	}
	if offset.LastEventID == "" {
		offset.LastEventID = zeroUUID
	}
	p.offset = offset

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Poll(ctx); err != nil {
				log.Printf("livequery poll error: %v", err)
			}
		}
	}
}

// Poll drains one batch of outbox events and republishes snapshots. Exposed
// so tests can drive the loop synchronously.
func (p *Publisher) Poll(ctx context.Context) error {
	events, err := p.store.ListOutboxEvents(ctx, p.offset, p.batchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	collections := make(map[string]struct{})
	for _, event := range events {
		p.offset.LastEventTime = event.CreatedAt
		p.offset.LastEventID = event.EventID
		collections[collectionOf(event.Type)] = struct{}{}
	}

	for collection := range collections {
		if err := p.publishSnapshot(ctx, collection); err != nil {
			log.Printf("livequery snapshot %s error: %v", collection, err)
		}
	}

	if err := p.store.UpdateOffset(ctx, p.offset); err != nil {
		return err
	}
	if err := p.store.CleanupOutbox(ctx, p.offset.LastEventTime.Add(-p.retention)); err != nil {
		log.Printf("livequery cleanup error: %v", err)
	}
	return nil
}

func collectionOf(eventType string) string {
	if idx := strings.IndexByte(eventType, '.'); idx > 0 {
		return eventType[:idx]
	}
	return eventType
}

func (p *Publisher) publishSnapshot(ctx context.Context, collection string) error {
	var (
		payload    interface{}
		recipients []string
		err        error
	)
	switch collection {
	case "request":
		payload, err = p.store.ListRequests(ctx)
		recipients = []string{models.DeptHousekeeping, models.DeptAdmin}
	case "order":
		payload, err = p.store.ListOrders(ctx, "")
		recipients = []string{models.DeptKitchen}
	case "room":
		payload, err = p.store.ListRooms(ctx)
		recipients = []string{models.DeptHousekeeping, models.DeptFrontDesk, models.DeptFacility}
	default:
		return nil
	}
	if err != nil {
		return err
	}

	body, err := json.Marshal(snapshotMessage{Collection: collection, Items: payload})
	if err != nil {
		return err
	}
	for _, recipient := range recipients {
		p.hub.Publish(hub.Envelope{Message: string(body), Topic: TopicSnapshot, Recipient: recipient})
	}
	return nil
}

type snapshotMessage struct {
	Collection string      `json:"collection"`
	Items      interface{} `json:"items"`
}
