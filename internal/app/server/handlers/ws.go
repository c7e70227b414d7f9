package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"lookout/internal/app/registry"
	"lookout/internal/app/server/ws"
	"lookout/internal/core/domain"
	"lookout/internal/core/services"
	"lookout/pkg/logging"
	"lookout/pkg/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type WSHandler struct {
	hub       *registry.Registry
	manager   *services.ManagerService
	heartbeat time.Duration
}

func NewWSHandler(hub *registry.Registry, manager *services.ManagerService, heartbeat time.Duration) *WSHandler {
	return &WSHandler{
		hub:       hub,
		manager:   manager,
		heartbeat: heartbeat,
	}
}

func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	span := trace.SpanFromContext(r.Context())
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		log.ErrorContext(r.Context(), "ws handler - unauthorised missing user_id")
		http.Error(w, "Unauthorized: User ID missing", http.StatusUnauthorized)
		return
	}
	span.SetAttributes(attribute.String("user.id", userID))

	kind := domain.ParseGatewayKind(r.URL.Query().Get("gateway"))
	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	// The heartbeat goroutine lives on ctx; cancel on every exit path,
	// not just graceful close frames, or a dropped connection keeps
	// refreshing activity forever.
	defer cancel()

	var upgrader = websocket.Upgrader{
		ReadBufferSize:  32,
		WriteBufferSize: 32,
		CheckOrigin: func(r *http.Request) bool {
			return true // tighten later
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade - ws upgrade failed", logging.Err(err))
		return
	}
	defer conn.Close()
	conn.SetCloseHandler(func(code int, text string) error {
		log.Info("ws handler - ws closed", logging.User(userID))
		cancel()
		return nil
	})
	socket := ws.NewWebSocket(ctx, conn)

	connID := uuid.NewString()
	s.manager.HandleConnect(ctx, userID, connID, kind)
	client := ws.NewClient(ctx, socket, userID, connID)
	s.hub.Register(client)
	defer s.manager.HandleDisconnect(sessionCtx, userID, connID)
	defer s.hub.Unregister(client)

	resp := domain.HandshakeResponse{
		Type:         domain.TypeHandshake,
		UserID:       userID,
		ConnectionID: connID,
		GatewayKind:  kind,
	}
	_ = conn.WriteJSON(resp)
	span.SetAttributes(
		attribute.String("ws.connection_id", connID),
		attribute.String("ws.gateway_kind", string(kind)),
	)
	log.InfoContext(r.Context(), "ws handler - ws connection established",
		logging.User(userID), logging.Connection(connID))

	// Heartbeat
	go s.manager.HandleHeartbeat(ctx, userID, s.heartbeat)

	// Read loop
	socket.ReadLoop(func(data []byte) {
		s.handleFrame(ctx, userID, data)
	})
}

func (s *WSHandler) handleFrame(ctx context.Context, userID string, data []byte) {
	// Any inbound frame proves the client is alive.
	s.manager.HandleActivity(userID)

	var frame domain.ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		msg, _ := json.Marshal(domain.ErrorMessage{
			Type:    domain.TypeError,
			Code:    "bad_frame",
			Message: "frame is not valid JSON",
		})
		s.hub.Push(ctx, userID, msg)
		return
	}
	switch frame.Type {
	case domain.TypeRoomJoin:
		s.manager.HandleRoomJoin(ctx, userID, frame.RoomID)
	case domain.TypeRoomLeave:
		s.manager.HandleRoomLeave(ctx, userID, frame.RoomID)
	case domain.TypePing:
		// activity already refreshed above
	}
}
