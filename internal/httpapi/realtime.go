package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gooleh/Hotel-Management-App/internal/hub"
	"github.com/gooleh/Hotel-Management-App/internal/models"
	"github.com/gooleh/Hotel-Management-App/internal/notify"
	"github.com/gooleh/Hotel-Management-App/internal/store"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
)

// clientFrame is everything a connected client may send: subscription
// management or a sendRequest publish.
type clientFrame struct {
	Event     string `json:"event"`
	Action    string `json:"action"`
	Message   string `json:"message"`
	Topic     string `json:"type"`
	Recipient string `json:"recipient"`
}

type receiveFrame struct {
	Event     string `json:"event"`
	Message   string `json:"message"`
	Topic     string `json:"type"`
	Recipient string `json:"recipient"`
}

// NewRealtimeHandler serves the sockjs endpoint. A connection must present a
// valid session, may subscribe to {topic, recipient} pairs within its
// department's reach, and may emit sendRequest frames that the server fans
// out (and logs) on its behalf.
func NewRealtimeHandler(st store.AccessStore, h *hub.Hub, router *notify.Router) http.Handler {
	return sockjs.NewHandler("/realtime", sockjs.DefaultOptions, func(session sockjs.Session) {
		req := session.Request()
		sessionID := SessionIDFromRequest(req)
		if sessionID == "" {
			_ = session.Close(4001, "missing session")
			return
		}
		authSession, err := st.GetSession(context.Background(), sessionID)
		if err != nil {
			_ = session.Close(4002, "invalid session")
			return
		}
		if !authSession.ExpiresAt.IsZero() && authSession.ExpiresAt.Before(time.Now().UTC()) {
			_ = session.Close(4002, "session expired")
			return
		}

		client := hub.NewClient(uuid.NewString(), 16)
		defer h.Detach(client)

		go func() {
			for payload := range client.Send {
				var env hub.Envelope
				if err := json.Unmarshal(payload, &env); err != nil {
					log.Printf("realtime envelope decode error: %v", err)
					continue
				}
				frame, err := json.Marshal(receiveFrame{
					Event:     "receiveRequest",
					Message:   env.Message,
					Topic:     env.Topic,
					Recipient: env.Recipient,
				})
				if err != nil {
					continue
				}
				_ = session.Send(string(frame))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			var frame clientFrame
			if err := json.Unmarshal([]byte(msg), &frame); err != nil {
				continue
			}

			switch {
			case frame.Action == "subscribe":
				if !recipientAllowed(authSession, frame.Recipient) {
					_ = session.Close(4003, "access denied")
					return
				}
				h.Subscribe(client, frame.Topic, frame.Recipient)
			case frame.Action == "unsubscribe":
				h.Unsubscribe(client, frame.Topic, frame.Recipient)
			case frame.Event == "sendRequest":
				if frame.Message == "" || frame.Recipient == "" {
					continue
				}
				topic := frame.Topic
				if topic == "" {
					topic = notify.TopicNotification
				}
				router.Notify(context.Background(), topic, frame.Message, frame.Recipient)
			}
		}
	})
}

// recipientAllowed limits a subscriber to its own department's deliveries.
// Guests listen on the shared roomService address; admin sees everything.
func recipientAllowed(session models.Session, recipient string) bool {
	if recipient == "" {
		return false
	}
	switch session.Department {
	case models.DeptAdmin:
		return true
	case models.DeptGuest:
		return recipient == models.TopicRoomService
	default:
		return recipient == session.Department
	}
}
