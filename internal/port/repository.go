package port

import (
	"context"

	"github.com/google/uuid"

	"medibill/internal/domain"
)

// UserRepository defines the contract for staff user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// MutateFunc applies one ledger mutation to a locked copy of a bill and
// returns the receipt it emitted.
type MutateFunc func(bill *domain.Bill) (*domain.Receipt, error)

// BillRepository defines the contract for bill and receipt persistence.
// Bills are never deleted.
type BillRepository interface {
	// Create allocates the sequential bill number and stores the bill with its
	// creation receipt in one unit.
	Create(ctx context.Context, bill *domain.Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Bill, error)
	GetByNumber(ctx context.Context, billNumber int64) (*domain.Bill, error)
	List(ctx context.Context, filters domain.BillFilters) ([]domain.Bill, int, error)
	ListReceipts(ctx context.Context, billNumber int64) ([]domain.Receipt, error)
	// Mutate serializes writers on one bill. fn receives a copy; when it
	// returns without error the bill (version incremented) and the returned
	// receipt are saved together. On error nothing is written.
	Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (*domain.Bill, error)
	Ping(ctx context.Context) error
}
