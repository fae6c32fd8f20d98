package store

import "github.com/gooleh/Hotel-Management-App/internal/models"

var transitionMap = map[string][]string{
	"accept":   {models.StatusPending},
	"complete": {models.StatusAccepted},
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
