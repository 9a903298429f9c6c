package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rncflow/internal/bootstrap/logging"
	"rncflow/internal/errs"
	"rncflow/internal/infrastructure/metrics"
	"rncflow/internal/ports"
)

const (
	defaultFanout      = 32
	defaultSendTimeout = 5 * time.Second

	CloseGoingAway       = 1001
	ClosePolicyViolation = 1008
	CloseInternalError   = 1011
)

var (
	ErrHubClosed    = errors.New("notification hub is closed")
	ErrUnauthorized = errs.New(errs.KindUnauthorized, "connection credential rejected")
)

// Conn is one live client. Send must honour ctx cancellation.
type Conn interface {
	Send(ctx context.Context, data []byte) error
	Close(code int, reason string) error
}

// Message is the wire frame: {"type": ..., "payload": ...}.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Audience selects recipients. All wins over Groups; a connection matched more
// than once still receives the message once.
type Audience struct {
	All     bool
	Groups  []string
	UserIDs []uint64
}

type member struct {
	id       string
	identity ports.Identity
	group    string
}

type HubConfig struct {
	Fanout      int
	SendTimeout time.Duration
}

// Hub tracks live connections by role group and by user. One mutex guards the
// registry, the groups and the user index together so they never disagree.
type Hub struct {
	auth        ports.Authenticator
	metrics     *metrics.Metrics
	fanout      int
	sendTimeout time.Duration

	mu      sync.RWMutex
	members map[Conn]*member
	groups  map[string]map[Conn]struct{}
	byUser  map[uint64]Conn
	closed  bool
}

func NewHub(auth ports.Authenticator, cfg HubConfig, m *metrics.Metrics) *Hub {
	fanout := cfg.Fanout
	if fanout <= 0 {
		fanout = defaultFanout
	}
	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &Hub{
		auth:        auth,
		metrics:     m,
		fanout:      fanout,
		sendTimeout: sendTimeout,
		members:     make(map[Conn]*member),
		groups:      make(map[string]map[Conn]struct{}),
		byUser:      make(map[uint64]Conn),
	}
}

// Register verifies credential and adds conn to every index. A later
// registration of the same user replaces the user slot but keeps the older
// connection in its group.
func (h *Hub) Register(ctx context.Context, conn Conn, credential string) (ports.Identity, error) {
	if ctx == nil {
		return ports.Identity{}, errors.New("context is required")
	}
	if conn == nil {
		return ports.Identity{}, errors.New("connection is required")
	}
	if h.auth == nil {
		return ports.Identity{}, errors.New("authenticator is required")
	}

	identity, err := h.auth.Verify(ctx, credential)
	if err != nil {
		if errs.IsKind(err, errs.KindUnauthorized) {
			return ports.Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return ports.Identity{}, errs.Wrap(err, "verify connection credential")
	}

	m := &member{
		id:       uuid.NewString(),
		identity: identity,
		group:    identity.Role.Group(),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ports.Identity{}, ErrHubClosed
	}
	if old, ok := h.members[conn]; ok {
		h.removeLocked(conn, old)
	}
	h.members[conn] = m
	set, ok := h.groups[m.group]
	if !ok {
		set = make(map[Conn]struct{})
		h.groups[m.group] = set
	}
	set[conn] = struct{}{}
	h.byUser[identity.UserID] = conn
	count := len(h.members)
	h.mu.Unlock()

	h.setConnections(count)
	logging.Info(
		h.logCtx(ctx),
		"connection registered",
		slog.String("conn_id", m.id),
		slog.Uint64("user_id", identity.UserID),
		slog.String("group", m.group),
		slog.Int("connections", count),
	)
	return identity, nil
}

// Unregister is idempotent. It reports whether conn was registered.
func (h *Hub) Unregister(conn Conn) bool {
	h.mu.Lock()
	m, ok := h.members[conn]
	if ok {
		h.removeLocked(conn, m)
	}
	count := len(h.members)
	h.mu.Unlock()

	if ok {
		h.setConnections(count)
	}
	return ok
}

func (h *Hub) removeLocked(conn Conn, m *member) {
	delete(h.members, conn)
	if set, ok := h.groups[m.group]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.groups, m.group)
		}
	}
	if current, ok := h.byUser[m.identity.UserID]; ok && current == conn {
		delete(h.byUser, m.identity.UserID)
	}
}

func (h *Hub) BroadcastAll(ctx context.Context, eventType string, payload any) (int, error) {
	return h.Deliver(ctx, Audience{All: true}, eventType, payload)
}

func (h *Hub) BroadcastGroup(ctx context.Context, group string, eventType string, payload any) (int, error) {
	return h.Deliver(ctx, Audience{Groups: []string{group}}, eventType, payload)
}

func (h *Hub) SendUser(ctx context.Context, userID uint64, eventType string, payload any) (int, error) {
	return h.Deliver(ctx, Audience{UserIDs: []uint64{userID}}, eventType, payload)
}

// Deliver sends one frame to every connection in audience and returns how many
// sends succeeded. A failed send evicts that connection and never stops the rest.
func (h *Hub) Deliver(ctx context.Context, audience Audience, eventType string, payload any) (int, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}

	frame, err := json.Marshal(Message{Type: eventType, Payload: payload})
	if err != nil {
		return 0, errs.Wrap(err, "encode hub message")
	}

	targets := h.resolve(audience)
	if len(targets) == 0 {
		return 0, nil
	}

	var (
		g         errgroup.Group
		delivered atomic.Int64
	)
	g.SetLimit(h.fanout)
	for _, conn := range targets {
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, h.sendTimeout)
			defer cancel()

			if err := conn.Send(sendCtx, frame); err != nil {
				h.evict(ctx, conn, err)
				return nil
			}
			delivered.Add(1)
			h.countDelivery("ok")
			return nil
		})
	}
	_ = g.Wait()

	return int(delivered.Load()), nil
}

func (h *Hub) resolve(audience Audience) []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if audience.All {
		out := make([]Conn, 0, len(h.members))
		for conn := range h.members {
			out = append(out, conn)
		}
		return out
	}

	seen := make(map[Conn]struct{})
	out := make([]Conn, 0)
	add := func(conn Conn) {
		if _, dup := seen[conn]; dup {
			return
		}
		seen[conn] = struct{}{}
		out = append(out, conn)
	}
	for _, group := range audience.Groups {
		for conn := range h.groups[group] {
			add(conn)
		}
	}
	for _, userID := range audience.UserIDs {
		if conn, ok := h.byUser[userID]; ok {
			add(conn)
		}
	}
	return out
}

func (h *Hub) evict(ctx context.Context, conn Conn, cause error) {
	h.mu.Lock()
	m, ok := h.members[conn]
	if ok {
		h.removeLocked(conn, m)
	}
	count := len(h.members)
	h.mu.Unlock()

	h.countDelivery("failed")
	if !ok {
		return
	}

	h.setConnections(count)
	if h.metrics != nil {
		h.metrics.HubEvictions.Inc()
	}
	_ = conn.Close(CloseInternalError, "send failed")
	logging.Warn(
		h.logCtx(ctx),
		"connection evicted after failed send",
		slog.String("conn_id", m.id),
		slog.Uint64("user_id", m.identity.UserID),
		slog.Any("err", errs.Loggable(cause)),
	)
}

// Close drains the hub: every connection is closed and the indexes are cleared.
// Later registrations fail with ErrHubClosed.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	conns := make([]Conn, 0, len(h.members))
	for conn := range h.members {
		conns = append(conns, conn)
	}
	h.members = make(map[Conn]*member)
	h.groups = make(map[string]map[Conn]struct{})
	h.byUser = make(map[uint64]Conn)
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close(CloseGoingAway, "server shutting down")
	}
	h.setConnections(0)
	logging.Info(h.logCtx(ctx), "notification hub drained", slog.Int("closed_connections", len(conns)))
	return nil
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members)
}

func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// Identity returns the tag of a registered connection.
func (h *Hub) Identity(conn Conn) (ports.Identity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.members[conn]
	if !ok {
		return ports.Identity{}, false
	}
	return m.identity, true
}

func (h *Hub) setConnections(n int) {
	if h.metrics != nil {
		h.metrics.HubConnections.Set(float64(n))
	}
}

func (h *Hub) countDelivery(result string) {
	if h.metrics != nil {
		h.metrics.HubDeliveries.WithLabelValues(result).Inc()
	}
}

func (h *Hub) logCtx(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.WithAttrs(ctx, slog.String("component", "realtime.hub"))
}
