package models

import "time"

type Request struct {
	RequestID  string    `json:"request_id"`
	Type       string    `json:"type"`
	Item       string    `json:"item"`
	RoomNumber string    `json:"room_number"`
	CreatedAt  time.Time `json:"created_at"`
	AssignedTo *string   `json:"assigned_to,omitempty"`
}

type Order struct {
	OrderID       string    `json:"order_id"`
	Item          string    `json:"item"`
	RoomNumber    string    `json:"room_number"`
	RequestedBy   string    `json:"requested_by"`
	Status        string    `json:"status"`
	EstimatedTime string    `json:"estimated_time,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type Menu struct {
	MenuID  string `json:"menu_id"`
	Name    string `json:"name"`
	Section string `json:"section"`
	Price   int    `json:"price"`
}

const (
	TypeSupply      = "supply"
	TypeRoomService = "room_service"
	TypeMaintenance = "maintenance"
	TypeOrder       = "order"
)

const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusCompleted = "completed"
)
