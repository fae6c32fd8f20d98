package models

import "time"

// ApprovedNumber is the authorization record: a phone number present in the
// table may log in and belongs to exactly one department.
type ApprovedNumber struct {
	Phone      string `json:"phone"`
	Name       string `json:"name"`
	Department string `json:"department"`
}

type Session struct {
	SessionID  string    `json:"session_id"`
	Phone      string    `json:"phone"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	ExpiresAt  time.Time `json:"expires_at"`
}

const (
	DeptKitchen      = "kitchen"
	DeptHousekeeping = "housekeeping"
	DeptFacility     = "facility"
	DeptFrontDesk    = "frontdesk"
	DeptAdmin        = "admin"
	DeptGuest        = "guest"
)

// TopicRoomService is the guest-facing delivery address for order updates.
const TopicRoomService = "roomService"

func ValidDepartment(dept string) bool {
	switch dept {
	case DeptKitchen, DeptHousekeeping, DeptFacility, DeptFrontDesk, DeptAdmin, DeptGuest:
		return true
	}
	return false
}
