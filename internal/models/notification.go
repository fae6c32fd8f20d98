package models

import "time"

// NotificationRecord is an append-only log entry mirroring every realtime
// push, so a department that was offline can replay what it missed.
type NotificationRecord struct {
	NotificationID string    `json:"notification_id"`
	Message        string    `json:"message"`
	Recipient      string    `json:"recipient"`
	CreatedAt      time.Time `json:"created_at"`
}
