// Package memory provides in-process repositories for single-node
// deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"medibill/internal/domain"
	"medibill/internal/ledger"
	"medibill/internal/port"
)

type billEntry struct {
	mu   sync.Mutex
	bill *domain.Bill
}

type billRepo struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]*billEntry
	byNumber map[int64]uuid.UUID
	lastNum  int64
}

// NewBillRepo creates an in-memory BillRepository. Each bill carries its own
// lock so mutations on different bills never contend.
func NewBillRepo() port.BillRepository {
	return &billRepo{
		byID:     make(map[uuid.UUID]*billEntry),
		byNumber: make(map[int64]uuid.UUID),
	}
}

func (r *billRepo) Create(ctx context.Context, bill *domain.Bill) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(bill.ReceiptHistory) != 1 || bill.ReceiptHistory[0].Type != domain.ReceiptTypeCreation {
		return fmt.Errorf("billRepo.Create: bill must carry exactly its creation receipt")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[bill.ID]; exists {
		return fmt.Errorf("billRepo.Create: bill %s already exists", bill.ID)
	}
	r.lastNum++
	ledger.AssignBillNumber(bill, r.lastNum)
	bill.Version = 1

	r.byID[bill.ID] = &billEntry{bill: bill.Clone()}
	r.byNumber[bill.BillNumber] = bill.ID
	return nil
}

func (r *billRepo) entry(id uuid.UUID) (*billEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrBillNotFound
	}
	return e, nil
}

func (e *billEntry) snapshot() *domain.Bill {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bill.Clone()
}

func (r *billRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	return e.snapshot(), nil
}

func (r *billRepo) GetByNumber(ctx context.Context, billNumber int64) (*domain.Bill, error) {
	r.mu.RLock()
	id, ok := r.byNumber[billNumber]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrBillNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *billRepo) List(ctx context.Context, filters domain.BillFilters) ([]domain.Bill, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	entries := make([]*billEntry, 0, len(r.byID))
	for _, e := range r.byID {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	var matched []domain.Bill
	for _, e := range entries {
		b := e.snapshot()
		if matches(b, filters) {
			matched = append(matched, *b)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].BillNumber > matched[j].BillNumber })

	total := len(matched)
	if filters.Offset > 0 {
		if filters.Offset >= total {
			return []domain.Bill{}, total, nil
		}
		matched = matched[filters.Offset:]
	}
	if filters.Limit > 0 && len(matched) > filters.Limit {
		matched = matched[:filters.Limit]
	}
	return matched, total, nil
}

func matches(b *domain.Bill, f domain.BillFilters) bool {
	if f.From != nil && b.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !b.CreatedAt.Before(*f.To) {
		return false
	}
	if f.DoctorID != nil && b.Doctor.ID != *f.DoctorID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	return true
}

func (r *billRepo) ListReceipts(ctx context.Context, billNumber int64) ([]domain.Receipt, error) {
	bill, err := r.GetByNumber(ctx, billNumber)
	if err != nil {
		return nil, err
	}
	return bill.ReceiptHistory, nil
}

func (r *billRepo) Mutate(ctx context.Context, id uuid.UUID, fn port.MutateFunc) (*domain.Bill, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	working := e.bill.Clone()
	receipt, err := fn(working)
	if err != nil {
		return nil, err
	}
	if err := ledger.VerifyAppend(e.bill, working, receipt); err != nil {
		return nil, fmt.Errorf("billRepo.Mutate: %w", err)
	}
	working.Version = e.bill.Version + 1
	e.bill = working
	return working.Clone(), nil
}

func (r *billRepo) Ping(ctx context.Context) error {
	return ctx.Err()
}
