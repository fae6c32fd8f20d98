package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gooleh/Hotel-Management-App/internal/models"
	"github.com/gooleh/Hotel-Management-App/internal/notify"
	"github.com/gooleh/Hotel-Management-App/internal/store"
)

type Handler struct {
	store             store.Store
	router            *notify.Router
	sessionTTL        time.Duration
	notificationLimit int
}

type Options struct {
	SessionTTL        time.Duration
	NotificationLimit int
}

func NewHandler(st store.Store, router *notify.Router, options Options) *Handler {
	ttl := options.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	limit := options.NotificationLimit
	if limit <= 0 {
		limit = 100
	}
	return &Handler{store: st, router: router, sessionTTL: ttl, notificationLimit: limit}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/login", h.handleLogin)
	mux.HandleFunc("/api/logout", h.handleLogout)
	mux.HandleFunc("/api/requests", h.handleRequests)
	mux.HandleFunc("/api/requests/completed", h.handleCompletedRequests)
	mux.HandleFunc("/api/requests/", h.handleRequestActions)
	mux.HandleFunc("/api/orders", h.handleOrders)
	mux.HandleFunc("/api/orders/", h.handleOrderActions)
	mux.HandleFunc("/api/rooms", h.handleRooms)
	mux.HandleFunc("/api/rooms/", h.handleRoomActions)
	mux.HandleFunc("/api/menus", h.handleMenus)
	mux.HandleFunc("/api/notifications", h.handleNotifications)
	mux.HandleFunc("/api/admin/numbers", h.handleAdminNumbers)
	mux.HandleFunc("/api/admin/numbers/", h.handleAdminNumberDelete)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionID  string       `json:"session_id"`
	ExpiresAt  string       `json:"expires_at"`
	Name       string       `json:"name"`
	Department string       `json:"department"`
	RoomNumber string       `json:"room_number,omitempty"`
	Room       *models.Room `json:"room,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Phone == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "phone is required")
		return
	}

	expiresAt := time.Now().UTC().Add(h.sessionTTL)
	session, err := h.store.Login(r.Context(), req.Phone, req.Password, expiresAt)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotApproved):
			writeError(w, http.StatusUnauthorized, "not_approved", "phone number not approved")
		case errors.Is(err, store.ErrBadCredential):
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}
		return
	}

	resp := loginResponse{
		SessionID:  session.SessionID,
		ExpiresAt:  session.ExpiresAt.Format(time.RFC3339),
		Name:       session.Name,
		Department: session.Department,
	}
	if session.Department == models.DeptGuest {
		// Guests are keyed by phone number, which doubles as their room.
		resp.RoomNumber = session.Phone
		if room, err := h.store.GetRoom(r.Context(), session.Phone); err == nil {
			resp.Room = &room
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessionID := SessionIDFromRequest(r)
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid session required")
		return
	}
	if err := h.store.DeleteSession(r.Context(), sessionID); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createRequestBody struct {
	Type       string `json:"type"`
	Item       string `json:"item"`
	RoomNumber string `json:"room_number"`
}

func (h *Handler) handleRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreateRequest(w, r)
	case http.MethodGet:
		h.handleListRequests(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	var req createRequestBody
	if !decodeBody(w, r, &req) {
		return
	}
	req.Type = strings.TrimSpace(req.Type)
	req.Item = strings.TrimSpace(req.Item)
	req.RoomNumber = strings.TrimSpace(req.RoomNumber)

	if req.Type == "" {
		req.Type = models.TypeSupply
	}
	switch req.Type {
	case models.TypeSupply, models.TypeMaintenance, models.TypeOrder:
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "type must be supply, maintenance, or order")
		return
	}
	if req.Item == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "item is required")
		return
	}
	if req.RoomNumber == "" {
		req.RoomNumber = session.Phone
	}
	if req.RoomNumber == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "room_number is required")
		return
	}

	created, err := h.store.CreateRequest(r.Context(), store.CreateRequestInput{
		Type:       req.Type,
		Item:       req.Item,
		RoomNumber: req.RoomNumber,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	h.router.RequestCreated(r.Context(), created)
	writeJSON(w, http.StatusOK, created)
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSession(w, r); !ok {
		return
	}
	requests, err := h.store.ListRequests(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

func (h *Handler) handleCompletedRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.requireSession(w, r); !ok {
		return
	}
	requests, err := h.store.ListCompletedRequests(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

type assignRequestBody struct {
	StaffName string `json:"staff_name"`
}

func (h *Handler) handleRequestActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/requests/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[1] != "actions" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	requestID := parts[0]

	switch parts[2] {
	case "assign":
		var req assignRequestBody
		if !decodeBody(w, r, &req) {
			return
		}
		staff := strings.TrimSpace(req.StaffName)
		if staff == "" {
			staff = session.Name
		}
		if staff == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "staff_name is required")
			return
		}
		updated, err := h.store.AssignRequest(r.Context(), requestID, staff)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case "complete":
		completed, err := h.store.CompleteRequest(r.Context(), requestID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, completed)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type createOrderBody struct {
	Item       string `json:"item"`
	RoomNumber string `json:"room_number"`
}

func (h *Handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreateOrder(w, r)
	case http.MethodGet:
		h.handleListOrders(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	var req createOrderBody
	if !decodeBody(w, r, &req) {
		return
	}
	req.Item = strings.TrimSpace(req.Item)
	req.RoomNumber = strings.TrimSpace(req.RoomNumber)
	if req.Item == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "item is required")
		return
	}
	if req.RoomNumber == "" {
		req.RoomNumber = session.Phone
	}
	if req.RoomNumber == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "room_number is required")
		return
	}

	created, err := h.store.CreateOrder(r.Context(), store.CreateOrderInput{
		Item:        req.Item,
		RoomNumber:  req.RoomNumber,
		RequestedBy: session.Name,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	h.router.OrderPlaced(r.Context(), created.Item, created.RoomNumber)
	writeJSON(w, http.StatusOK, created)
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSession(w, r); !ok {
		return
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && status != models.StatusPending && status != models.StatusAccepted {
		writeError(w, http.StatusBadRequest, "invalid_request", "status must be pending or accepted")
		return
	}
	orders, err := h.store.ListOrders(r.Context(), status)
	if err != nil {
		s, code, msg := mapError(err)
		writeError(w, s, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

type acceptOrderBody struct {
	EstimatedTime string `json:"estimated_time"`
}

func (h *Handler) handleOrderActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.requireSession(w, r); !ok {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/orders/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[1] != "actions" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	orderID := parts[0]

	switch parts[2] {
	case "accept":
		var req acceptOrderBody
		if !decodeBody(w, r, &req) {
			return
		}
		req.EstimatedTime = strings.TrimSpace(req.EstimatedTime)
		if req.EstimatedTime == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "estimated_time is required")
			return
		}
		order, err := h.store.AcceptOrder(r.Context(), store.AcceptOrderInput{
			OrderID:       orderID,
			EstimatedTime: req.EstimatedTime,
			OccurredAt:    time.Now().UTC(),
		})
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		h.router.OrderAccepted(r.Context(), order.EstimatedTime)
		writeJSON(w, http.StatusOK, order)
	case "complete":
		order, err := h.store.CompleteOrder(r.Context(), orderID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		h.router.OrderCompleted(r.Context(), order.RoomNumber)
		writeJSON(w, http.StatusOK, order)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.requireSession(w, r); !ok {
		return
	}
	rooms, err := h.store.ListRooms(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

type roomStatusBody struct {
	Status      string `json:"status"`
	LastCleaned bool   `json:"last_cleaned"`
}

type roomCheckInBody struct {
	CheckedIn bool `json:"checked_in"`
}

type roomOccupancyBody struct {
	Occupied bool   `json:"occupied"`
	Report   string `json:"report"`
}

type roomNotesBody struct {
	Notes string `json:"notes"`
}

func (h *Handler) handleRoomActions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if len(parts) == 1 && r.Method == http.MethodGet {
		if _, ok := h.requireSession(w, r); !ok {
			return
		}
		room, err := h.store.GetRoom(r.Context(), parts[0])
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, room)
		return
	}

	if len(parts) != 3 || parts[1] != "actions" || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if _, ok := h.requireSession(w, r); !ok {
		return
	}
	number := parts[0]

	switch parts[2] {
	case "status":
		var req roomStatusBody
		if !decodeBody(w, r, &req) {
			return
		}
		req.Status = strings.TrimSpace(req.Status)
		if !models.ValidRoomStatus(req.Status) {
			writeError(w, http.StatusBadRequest, "invalid_request", "status must be Clean, Dirty, Inspected, or Unknown")
			return
		}
		input := store.RoomStatusInput{RoomNumber: number, Status: req.Status}
		if req.LastCleaned {
			now := time.Now().UTC()
			input.LastCleaned = &now
		}
		room, err := h.store.UpdateRoomStatus(r.Context(), input)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, room)
	case "checkin":
		var req roomCheckInBody
		if !decodeBody(w, r, &req) {
			return
		}
		room, err := h.store.UpdateCheckIn(r.Context(), number, req.CheckedIn)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, room)
	case "occupancy":
		var req roomOccupancyBody
		if !decodeBody(w, r, &req) {
			return
		}
		room, err := h.store.UpdateOccupancy(r.Context(), store.OccupancyInput{
			RoomNumber: number,
			Occupied:   req.Occupied,
			Report:     strings.TrimSpace(req.Report),
		})
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		h.router.OccupancyChanged(r.Context(), number, req.Occupied)
		if report := strings.TrimSpace(req.Report); report != "" {
			h.router.MaintenanceReported(r.Context(), number, report)
		}
		writeJSON(w, http.StatusOK, room)
	case "notes":
		var req roomNotesBody
		if !decodeBody(w, r, &req) {
			return
		}
		room, err := h.store.UpdateNotes(r.Context(), number, req.Notes)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, room)
	case "maintenance":
		var req roomNotesBody
		if !decodeBody(w, r, &req) {
			return
		}
		room, err := h.store.UpdateMaintenanceNotes(r.Context(), number, req.Notes)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, room)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleMenus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.requireSession(w, r); !ok {
		return
	}
	menus, err := h.store.ListMenus(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, menus)
}

func (h *Handler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	recipient := strings.TrimSpace(r.URL.Query().Get("recipient"))
	if recipient == "" {
		recipient = session.Department
	}
	records, err := h.store.ListNotifications(r.Context(), recipient, h.notificationLimit)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type addNumberBody struct {
	Phone      string `json:"phone"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Password   string `json:"password"`
}

func (h *Handler) handleAdminNumbers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		numbers, err := h.store.ListApprovedNumbers(r.Context())
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, numbers)
	case http.MethodPost:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		var req addNumberBody
		if !decodeBody(w, r, &req) {
			return
		}
		req.Phone = strings.TrimSpace(req.Phone)
		req.Name = strings.TrimSpace(req.Name)
		req.Department = strings.TrimSpace(req.Department)
		if req.Phone == "" || req.Name == "" || req.Department == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "phone, name, and department are required")
			return
		}
		if !models.ValidDepartment(req.Department) {
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown department")
			return
		}
		if req.Department == models.DeptAdmin && req.Password == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "admin numbers require a password")
			return
		}
		number := models.ApprovedNumber{Phone: req.Phone, Name: req.Name, Department: req.Department}
		if err := h.store.AddApprovedNumber(r.Context(), number, req.Password); err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, number)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleAdminNumberDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	phone := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/admin/numbers/"), "/")
	if phone == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "phone is required")
		return
	}
	if err := h.store.DeleteApprovedNumber(r.Context(), phone); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrRequestNotFound):
		return http.StatusNotFound, "request_not_found", "request not found"
	case errors.Is(err, store.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found", "order not found"
	case errors.Is(err, store.ErrRoomNotFound):
		return http.StatusNotFound, "room_not_found", "room not found"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "order state does not allow this action"
	case errors.Is(err, store.ErrAlreadyExists):
		return http.StatusConflict, "already_exists", "record already exists"
	case errors.Is(err, store.ErrSessionNotFound):
		return http.StatusUnauthorized, "unauthorized", "valid session required"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
