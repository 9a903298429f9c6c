package ports

import (
	"context"

	"rncflow/internal/domain/rnc"
)

// Notifier fans committed workflow events out to live clients.
// Publish must not block the caller on delivery.
type Notifier interface {
	Publish(ctx context.Context, event rnc.Event)
}
