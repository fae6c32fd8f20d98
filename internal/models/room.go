package models

import "time"

type Room struct {
	Number           string    `json:"number"`
	CheckedIn        bool      `json:"checked_in"`
	Occupied         bool      `json:"occupied"`
	Status           string    `json:"status"`
	LastCleaned      time.Time `json:"last_cleaned"`
	Notes            string    `json:"notes"`
	MaintenanceNotes string    `json:"maintenance_notes"`
	Supplies         []string  `json:"supplies"`
	RoomServices     []string  `json:"room_services"`
}

const (
	RoomClean     = "Clean"
	RoomDirty     = "Dirty"
	RoomInspected = "Inspected"
	RoomUnknown   = "Unknown"
)

func ValidRoomStatus(status string) bool {
	switch status {
	case RoomClean, RoomDirty, RoomInspected, RoomUnknown:
		return true
	}
	return false
}
