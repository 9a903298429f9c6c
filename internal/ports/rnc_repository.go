package ports

import (
	"context"

	"rncflow/internal/domain/rnc"
	"rncflow/internal/errs"
)

var (
	ErrNotFound        = errs.New(errs.KindNotFound, "record not found")
	ErrUniqueViolation = errs.New(errs.KindConflict, "unique constraint violated")
)

type RNCFilter struct {
	Status    *rnc.Status
	Condition *rnc.Condition
	OpenByID  *uint64
	Limit     int
	Offset    int
}

// RNCRepository persists reports. Lookups return ErrNotFound when nothing matches,
// writes return ErrUniqueViolation when a store constraint rejects them.
type RNCRepository interface {
	FindByNumber(ctx context.Context, number uint64, forUpdate bool) (rnc.RNC, error)
	FindOpenByPartCode(ctx context.Context, partCode string) (rnc.RNC, bool, error)
	Insert(ctx context.Context, r rnc.RNC) (rnc.RNC, error)
	Update(ctx context.Context, r rnc.RNC) error
	// List orders by date_of_occurrence desc, then num_rnc desc.
	List(ctx context.Context, filter RNCFilter) ([]rnc.RNC, error)
	// Scan walks every report in batches without loading the full set.
	Scan(ctx context.Context, batchSize int, fn func(batch []rnc.RNC) error) error
}

type PartRepository interface {
	FindByCode(ctx context.Context, code string) (rnc.Part, error)
	Create(ctx context.Context, part rnc.Part) (rnc.Part, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, id uint64) (rnc.User, error)
	FindByEmail(ctx context.Context, email string) (rnc.User, error)
	Create(ctx context.Context, user rnc.User) (rnc.User, error)
}

// Sequence hands out the next num_rnc. It must be called inside a UnitOfWork;
// concurrent allocations are serialized until that transaction ends.
type Sequence interface {
	Next(ctx context.Context) (uint64, error)
}
