package services

import (
	"context"
	"log/slog"
	"time"

	"lookout/internal/core/contracts"
	"lookout/internal/core/domain"
	"lookout/pkg/logging"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("manager-service")

// ManagerService bridges the gateway's connection lifecycle to the presence
// tracker. All registry semantics live in the tracker; this layer adds
// logging, tracing and the heartbeat loop.
type ManagerService struct {
	presence contracts.Presence
	log      *slog.Logger
}

func NewManagerService(log *slog.Logger, presence contracts.Presence) *ManagerService {
	return &ManagerService{
		log:      log,
		presence: presence,
	}
}

func (m *ManagerService) HandleConnect(ctx context.Context, userID, connID string, kind domain.GatewayKind) {
	_, span := tracer.Start(ctx, "ManagerService.HandleConnect")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("gateway.kind", string(kind)),
	)
	m.presence.SetOnline(userID, connID, kind)
	m.log.InfoContext(ctx, "manager - handle connect - user online",
		logging.User(userID), logging.Connection(connID), "gateway", string(kind), "online", m.presence.Count())
}

func (m *ManagerService) HandleDisconnect(ctx context.Context, userID, connID string) {
	_, span := tracer.Start(ctx, "ManagerService.HandleDisconnect")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))
	m.presence.Disconnect(userID, connID)
	m.log.InfoContext(ctx, "manager - handle disconnect - connection closed",
		logging.User(userID), logging.Connection(connID), "online", m.presence.Count())
}

func (m *ManagerService) HandleRoomJoin(ctx context.Context, userID, roomID string) {
	m.presence.JoinRoom(userID, roomID)
	m.log.DebugContext(ctx, "manager - handle room join - viewer switched",
		logging.User(userID), logging.Room(roomID))
}

func (m *ManagerService) HandleRoomLeave(ctx context.Context, userID, roomID string) {
	m.presence.LeaveRoom(userID, roomID)
	m.log.DebugContext(ctx, "manager - handle room leave - viewer left",
		logging.User(userID), logging.Room(roomID))
}

func (m *ManagerService) HandleActivity(userID string) {
	m.presence.UpdateActivity(userID)
}

// HandleHeartbeat refreshes the activity stamp on a fixed period until the
// connection context is cancelled, keeping quiet-but-alive connections out
// of the sweeper's reach.
func (m *ManagerService) HandleHeartbeat(ctx context.Context, userID string, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.log.Debug("manager - handle heartbeat - stopped", logging.User(userID))
			return
		case <-ticker.C:
			m.presence.UpdateActivity(userID)
		}
	}
}

func (m *ManagerService) Status(userID string) (domain.PresenceStatus, bool) {
	return m.presence.Status(userID)
}
