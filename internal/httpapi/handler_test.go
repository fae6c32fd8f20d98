package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gooleh/Hotel-Management-App/internal/hub"
	"github.com/gooleh/Hotel-Management-App/internal/models"
	"github.com/gooleh/Hotel-Management-App/internal/notify"
	"github.com/gooleh/Hotel-Management-App/internal/store"
)

type fakeStore struct {
	createRequestFn    func(ctx context.Context, input store.CreateRequestInput) (models.Request, error)
	listRequestsFn     func(ctx context.Context) ([]models.Request, error)
	assignRequestFn    func(ctx context.Context, requestID, staffName string) (models.Request, error)
	completeRequestFn  func(ctx context.Context, requestID string) (models.Request, error)
	listCompletedFn    func(ctx context.Context) ([]models.Request, error)
	createOrderFn      func(ctx context.Context, input store.CreateOrderInput) (models.Order, error)
	listOrdersFn       func(ctx context.Context, status string) ([]models.Order, error)
	acceptOrderFn      func(ctx context.Context, input store.AcceptOrderInput) (models.Order, error)
	completeOrderFn    func(ctx context.Context, orderID string) (models.Order, error)
	reconcileFn        func(ctx context.Context) (int, error)
	listMenusFn        func(ctx context.Context) ([]models.Menu, error)
	listRoomsFn        func(ctx context.Context) ([]models.Room, error)
	getRoomFn          func(ctx context.Context, number string) (models.Room, error)
	updateRoomStatusFn func(ctx context.Context, input store.RoomStatusInput) (models.Room, error)
	updateCheckInFn    func(ctx context.Context, number string, checkedIn bool) (models.Room, error)
	updateOccupancyFn  func(ctx context.Context, input store.OccupancyInput) (models.Room, error)
	updateNotesFn      func(ctx context.Context, number, notes string) (models.Room, error)
	updateMaintFn      func(ctx context.Context, number, notes string) (models.Room, error)
	loginFn            func(ctx context.Context, phone, password string, expiresAt time.Time) (models.Session, error)
	getSessionFn       func(ctx context.Context, sessionID string) (models.Session, error)
	deleteSessionFn    func(ctx context.Context, sessionID string) error
	listNumbersFn      func(ctx context.Context) ([]models.ApprovedNumber, error)
	addNumberFn        func(ctx context.Context, number models.ApprovedNumber, password string) error
	deleteNumberFn     func(ctx context.Context, phone string) error
	appendFn           func(ctx context.Context, record models.NotificationRecord) error
	listNotifsFn       func(ctx context.Context, recipient string, limit int) ([]models.NotificationRecord, error)
	listEventsFn       func(ctx context.Context, offset store.OutboxOffset, limit int) ([]store.OutboxEvent, error)
	getOffsetFn        func(ctx context.Context) (store.OutboxOffset, error)
	updateOffsetFn     func(ctx context.Context, offset store.OutboxOffset) error
	cleanupFn          func(ctx context.Context, before time.Time) error
}

func (f fakeStore) CreateRequest(ctx context.Context, input store.CreateRequestInput) (models.Request, error) {
	if f.createRequestFn == nil {
		return models.Request{}, nil
	}
	return f.createRequestFn(ctx, input)
}

func (f fakeStore) ListRequests(ctx context.Context) ([]models.Request, error) {
	if f.listRequestsFn == nil {
		return nil, nil
	}
	return f.listRequestsFn(ctx)
}

func (f fakeStore) AssignRequest(ctx context.Context, requestID, staffName string) (models.Request, error) {
	if f.assignRequestFn == nil {
		return models.Request{}, nil
	}
	return f.assignRequestFn(ctx, requestID, staffName)
}

func (f fakeStore) CompleteRequest(ctx context.Context, requestID string) (models.Request, error) {
	if f.completeRequestFn == nil {
		return models.Request{}, nil
	}
	return f.completeRequestFn(ctx, requestID)
}

func (f fakeStore) ListCompletedRequests(ctx context.Context) ([]models.Request, error) {
	if f.listCompletedFn == nil {
		return nil, nil
	}
	return f.listCompletedFn(ctx)
}

func (f fakeStore) CreateOrder(ctx context.Context, input store.CreateOrderInput) (models.Order, error) {
	if f.createOrderFn == nil {
		return models.Order{}, nil
	}
	return f.createOrderFn(ctx, input)
}

func (f fakeStore) ListOrders(ctx context.Context, status string) ([]models.Order, error) {
	if f.listOrdersFn == nil {
		return nil, nil
	}
	return f.listOrdersFn(ctx, status)
}

func (f fakeStore) AcceptOrder(ctx context.Context, input store.AcceptOrderInput) (models.Order, error) {
	if f.acceptOrderFn == nil {
		return models.Order{}, nil
	}
	return f.acceptOrderFn(ctx, input)
}

func (f fakeStore) CompleteOrder(ctx context.Context, orderID string) (models.Order, error) {
	if f.completeOrderFn == nil {
		return models.Order{}, nil
	}
	return f.completeOrderFn(ctx, orderID)
}

func (f fakeStore) ReconcileArchive(ctx context.Context) (int, error) {
	if f.reconcileFn == nil {
		return 0, nil
	}
	return f.reconcileFn(ctx)
}

func (f fakeStore) ListMenus(ctx context.Context) ([]models.Menu, error) {
	if f.listMenusFn == nil {
		return nil, nil
	}
	return f.listMenusFn(ctx)
}

func (f fakeStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	if f.listRoomsFn == nil {
		return nil, nil
	}
	return f.listRoomsFn(ctx)
}

func (f fakeStore) GetRoom(ctx context.Context, number string) (models.Room, error) {
	if f.getRoomFn == nil {
		return models.Room{}, store.ErrRoomNotFound
	}
	return f.getRoomFn(ctx, number)
}

func (f fakeStore) UpdateRoomStatus(ctx context.Context, input store.RoomStatusInput) (models.Room, error) {
	if f.updateRoomStatusFn == nil {
		return models.Room{}, nil
	}
	return f.updateRoomStatusFn(ctx, input)
}

func (f fakeStore) UpdateCheckIn(ctx context.Context, number string, checkedIn bool) (models.Room, error) {
	if f.updateCheckInFn == nil {
		return models.Room{}, nil
	}
	return f.updateCheckInFn(ctx, number, checkedIn)
}

func (f fakeStore) UpdateOccupancy(ctx context.Context, input store.OccupancyInput) (models.Room, error) {
	if f.updateOccupancyFn == nil {
		return models.Room{}, nil
	}
	return f.updateOccupancyFn(ctx, input)
}

func (f fakeStore) UpdateNotes(ctx context.Context, number, notes string) (models.Room, error) {
	if f.updateNotesFn == nil {
		return models.Room{}, nil
	}
	return f.updateNotesFn(ctx, number, notes)
}

func (f fakeStore) UpdateMaintenanceNotes(ctx context.Context, number, notes string) (models.Room, error) {
	if f.updateMaintFn == nil {
		return models.Room{}, nil
	}
	return f.updateMaintFn(ctx, number, notes)
}

func (f fakeStore) Login(ctx context.Context, phone, password string, expiresAt time.Time) (models.Session, error) {
	if f.loginFn == nil {
		return models.Session{}, store.ErrNotApproved
	}
	return f.loginFn(ctx, phone, password, expiresAt)
}

func (f fakeStore) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	if f.getSessionFn == nil {
		return models.Session{}, store.ErrSessionNotFound
	}
	return f.getSessionFn(ctx, sessionID)
}

func (f fakeStore) DeleteSession(ctx context.Context, sessionID string) error {
	if f.deleteSessionFn == nil {
		return nil
	}
	return f.deleteSessionFn(ctx, sessionID)
}

func (f fakeStore) ListApprovedNumbers(ctx context.Context) ([]models.ApprovedNumber, error) {
	if f.listNumbersFn == nil {
		return nil, nil
	}
	return f.listNumbersFn(ctx)
}

func (f fakeStore) AddApprovedNumber(ctx context.Context, number models.ApprovedNumber, password string) error {
	if f.addNumberFn == nil {
		return nil
	}
	return f.addNumberFn(ctx, number, password)
}

func (f fakeStore) DeleteApprovedNumber(ctx context.Context, phone string) error {
	if f.deleteNumberFn == nil {
		return nil
	}
	return f.deleteNumberFn(ctx, phone)
}

func (f fakeStore) AppendNotification(ctx context.Context, record models.NotificationRecord) error {
	if f.appendFn == nil {
		return nil
	}
	return f.appendFn(ctx, record)
}

func (f fakeStore) ListNotifications(ctx context.Context, recipient string, limit int) ([]models.NotificationRecord, error) {
	if f.listNotifsFn == nil {
		return nil, nil
	}
	return f.listNotifsFn(ctx, recipient, limit)
}

func (f fakeStore) ListOutboxEvents(ctx context.Context, offset store.OutboxOffset, limit int) ([]store.OutboxEvent, error) {
	if f.listEventsFn == nil {
		return nil, nil
	}
	return f.listEventsFn(ctx, offset, limit)
}

func (f fakeStore) GetOffset(ctx context.Context) (store.OutboxOffset, error) {
	if f.getOffsetFn == nil {
		return store.OutboxOffset{}, nil
	}
	return f.getOffsetFn(ctx)
}

func (f fakeStore) UpdateOffset(ctx context.Context, offset store.OutboxOffset) error {
	if f.updateOffsetFn == nil {
		return nil
	}
	return f.updateOffsetFn(ctx, offset)
}

func (f fakeStore) CleanupOutbox(ctx context.Context, before time.Time) error {
	if f.cleanupFn == nil {
		return nil
	}
	return f.cleanupFn(ctx, before)
}

func staffSession(dept string) func(ctx context.Context, sessionID string) (models.Session, error) {
	return func(ctx context.Context, sessionID string) (models.Session, error) {
		if sessionID != "session-1" {
			return models.Session{}, store.ErrSessionNotFound
		}
		return models.Session{
			SessionID:  "session-1",
			Phone:      "5550100",
			Name:       "Alice",
			Department: dept,
			ExpiresAt:  time.Now().Add(time.Hour),
		}, nil
	}
}

func newTestHandler(st fakeStore) (*Handler, *hub.Hub) {
	h := hub.New()
	router := notify.NewRouter(h, st)
	return NewHandler(st, router, Options{SessionTTL: time.Hour, NotificationLimit: 50}), h
}

func doRequest(handler http.Handler, method, target, sessionID string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if sessionID != "" {
		req.Header.Set("Authorization", "Bearer "+sessionID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestLoginReturnsGuestRoom(t *testing.T) {
	st := fakeStore{
		loginFn: func(ctx context.Context, phone, password string, expiresAt time.Time) (models.Session, error) {
			if phone != "501" {
				return models.Session{}, store.ErrNotApproved
			}
			return models.Session{
				SessionID:  "session-9",
				Phone:      "501",
				Name:       "Guest 501",
				Department: models.DeptGuest,
				ExpiresAt:  expiresAt,
			}, nil
		},
		getRoomFn: func(ctx context.Context, number string) (models.Room, error) {
			if number != "501" {
				t.Fatalf("expected room lookup for 501, got %s", number)
			}
			return models.Room{Number: "501", Status: models.RoomClean}, nil
		},
	}
	handler, _ := newTestHandler(st)

	rec := doRequest(handler.Routes(), http.MethodPost, "/api/login", "", map[string]string{"phone": "501"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RoomNumber != "501" || resp.Room == nil || resp.Room.Number != "501" {
		t.Fatalf("expected guest room in response, got %+v", resp)
	}
}

func TestLoginRejectsUnknownNumber(t *testing.T) {
	handler, _ := newTestHandler(fakeStore{})

	rec := doRequest(handler.Routes(), http.MethodPost, "/api/login", "", map[string]string{"phone": "999"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error.Code != "not_approved" {
		t.Fatalf("expected not_approved, got %s", resp.Error.Code)
	}
}

func TestCreateRequestNotifiesHousekeeping(t *testing.T) {
	var logged []models.NotificationRecord
	st := fakeStore{
		getSessionFn: staffSession(models.DeptGuest),
		createRequestFn: func(ctx context.Context, input store.CreateRequestInput) (models.Request, error) {
			return models.Request{
				RequestID:  "req-1",
				Type:       input.Type,
				Item:       input.Item,
				RoomNumber: input.RoomNumber,
				CreatedAt:  input.CreatedAt,
			}, nil
		},
		appendFn: func(ctx context.Context, record models.NotificationRecord) error {
			logged = append(logged, record)
			return nil
		},
	}
	handler, h := newTestHandler(st)

	client := hub.NewClient("c1", 4)
	h.Subscribe(client, notify.TopicRequest, models.DeptHousekeeping)

	rec := doRequest(handler.Routes(), http.MethodPost, "/api/requests", "session-1", map[string]string{
		"item":        "Water",
		"room_number": "501",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	select {
	case raw := <-client.Send:
		var env hub.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if env.Recipient != models.DeptHousekeeping {
			t.Fatalf("expected housekeeping recipient, got %s", env.Recipient)
		}
		if env.Message != "Supply request for Water from room 501" {
			t.Fatalf("unexpected message: %s", env.Message)
		}
	default:
		t.Fatalf("expected a delivered envelope")
	}

	if len(logged) != 1 || logged[0].Recipient != models.DeptHousekeeping {
		t.Fatalf("expected one logged notification for housekeeping, got %+v", logged)
	}
}

func TestCreateRequestRejectsUnknownType(t *testing.T) {
	st := fakeStore{getSessionFn: staffSession(models.DeptGuest)}
	handler, _ := newTestHandler(st)

	rec := doRequest(handler.Routes(), http.MethodPost, "/api/requests", "session-1", map[string]string{
		"type": "laundry",
		"item": "Shirt",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateRequestRejectsUnknownField(t *testing.T) {
	st := fakeStore{getSessionFn: staffSession(models.DeptGuest)}
	handler, _ := newTestHandler(st)

	rec := doRequest(handler.Routes(), http.MethodPost, "/api/requests", "session-1", map[string]string{
		"item":  "Water",
		"rooms": "501",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error.Code != "invalid_json" {
		t.Fatalf("expected invalid_json, got %s", resp.Error.Code)
	}
}

func TestAssignDefaultsToSessionName(t *testing.T) {
	var gotStaff string
	st := fakeStore{
		getSessionFn: staffSession(models.DeptHousekeeping),
		assignRequestFn: func(ctx context.Context, requestID, staffName string) (models.Request, error) {
			gotStaff = staffName
			return models.Request{RequestID: requestID, AssignedTo: &staffName}, nil
		},
	}
	handler, _ := newTestHandler(st)

	rec := doRequest(handler.Routes(), http.MethodPost, "/api/requests/req-1/actions/assign", "session-1", map[string]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotStaff != "Alice" {
		t.Fatalf("expected session name as assignee, got %q", gotStaff)
	}
}

func TestAcceptOrderRequiresEstimatedTime(t *testing.T) {
	st := fakeStore{getSessionFn: staffSession(models.DeptKitchen)}
	handler, _ := newTestHandler(st)

	rec := doRequest(handler.Routes(), http.MethodPost, "/api/orders/ord-1/actions/accept", "session-1", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCompleteOrderConflictOnPending(t *testing.T) {
	st := fakeStore{
		getSessionFn: staffSession(models.DeptKitchen),
		completeOrderFn: func(ctx context.Context, orderID string) (models.Order, error) {
			return models.Order{}, store.ErrInvalidState
		},
	}
	handler, _ := newTestHandler(st)

	rec := doRequest(handler.Routes(), http.MethodPost, "/api/orders/ord-1/actions/complete", "session-1", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestOrderAcceptDeliversToRoomService(t *testing.T) {
	st := fakeStore{
		getSessionFn: staffSession(models.DeptKitchen),
		acceptOrderFn: func(ctx context.Context, input store.AcceptOrderInput) (models.Order, error) {
			return models.Order{
				OrderID:       input.OrderID,
				RoomNumber:    "204",
				Status:        models.StatusAccepted,
				EstimatedTime: input.EstimatedTime,
			}, nil
		},
	}
	handler, h := newTestHandler(st)

	client := hub.NewClient("c1", 4)
	h.Subscribe(client, notify.TopicOrder, models.TopicRoomService)

	rec := doRequest(handler.Routes(), http.MethodPost, "/api/orders/ord-1/actions/accept", "session-1", map[string]string{
		"estimated_time": "25",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	select {
	case raw := <-client.Send:
		var env hub.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if env.Message != "Order accepted with estimated time: 25 minutes" {
			t.Fatalf("unexpected message: %s", env.Message)
		}
	default:
		t.Fatalf("expected a delivered envelope")
	}
}

func TestOccupancyChangeNotifiesAndReports(t *testing.T) {
	var logged []models.NotificationRecord
	st := fakeStore{
		getSessionFn: staffSession(models.DeptFrontDesk),
		updateOccupancyFn: func(ctx context.Context, input store.OccupancyInput) (models.Room, error) {
			return models.Room{Number: input.RoomNumber, Occupied: input.Occupied}, nil
		},
		appendFn: func(ctx context.Context, record models.NotificationRecord) error {
			logged = append(logged, record)
			return nil
		},
	}
	handler, _ := newTestHandler(st)

	rec := doRequest(handler.Routes(), http.MethodPost, "/api/rooms/305/actions/occupancy", "session-1", map[string]interface{}{
		"occupied": false,
		"report":   "Broken lamp",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Occupancy fans out to housekeeping and frontdesk, the report to facility.
	recipients := map[string]int{}
	for _, record := range logged {
		recipients[record.Recipient]++
	}
	if recipients[models.DeptHousekeeping] != 1 || recipients[models.DeptFrontDesk] != 1 || recipients[models.DeptFacility] != 1 {
		t.Fatalf("unexpected recipients: %+v", recipients)
	}
}

func TestNotificationsDefaultToSessionDepartment(t *testing.T) {
	var gotRecipient string
	st := fakeStore{
		getSessionFn: staffSession(models.DeptKitchen),
		listNotifsFn: func(ctx context.Context, recipient string, limit int) ([]models.NotificationRecord, error) {
			gotRecipient = recipient
			return nil, nil
		},
	}
	handler, _ := newTestHandler(st)

	rec := doRequest(handler.Routes(), http.MethodGet, "/api/notifications", "session-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotRecipient != models.DeptKitchen {
		t.Fatalf("expected kitchen recipient, got %q", gotRecipient)
	}
}

func TestAdminNumbersRequiresAdmin(t *testing.T) {
	st := fakeStore{getSessionFn: staffSession(models.DeptKitchen)}
	handler, _ := newTestHandler(st)

	rec := doRequest(handler.Routes(), http.MethodGet, "/api/admin/numbers", "session-1", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = doRequest(handler.Routes(), http.MethodGet, "/api/admin/numbers", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}
}

func TestAddAdminNumberRequiresPassword(t *testing.T) {
	st := fakeStore{getSessionFn: staffSession(models.DeptAdmin)}
	handler, _ := newTestHandler(st)

	rec := doRequest(handler.Routes(), http.MethodPost, "/api/admin/numbers", "session-1", map[string]string{
		"phone":      "5550009",
		"name":       "Boss",
		"department": models.DeptAdmin,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestExpiredSessionRejected(t *testing.T) {
	st := fakeStore{
		getSessionFn: func(ctx context.Context, sessionID string) (models.Session, error) {
			return models.Session{
				SessionID:  sessionID,
				Department: models.DeptKitchen,
				ExpiresAt:  time.Now().Add(-time.Minute),
			}, nil
		},
	}
	handler, _ := newTestHandler(st)

	rec := doRequest(handler.Routes(), http.MethodGet, "/api/orders", "session-1", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired session, got %d", rec.Code)
	}
}
