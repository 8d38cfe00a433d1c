package orders

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

// fakeStore runs transactions one at a time against a copy of its state and
// only publishes the copy when the callback succeeds.
type fakeStore struct {
	mu    sync.Mutex
	state fakeState

	// failEnqueue, when set, makes EnqueueEvent fail after everything else
	// in the transaction has been written.
	failEnqueue error
	// beforeInsert runs once, just before an order is stored, against the
	// committed state. It simulates a writer that committed concurrently.
	beforeInsert func(committed *fakeState)
}

type fakeState struct {
	products    map[int64]domain.Product
	coupons     map[string]domain.Coupon
	orders      map[int64]domain.Order
	sequences   map[int]int64
	events      []domain.OrderEvent
	nextOrderID int64
	nextItemID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: fakeState{
		products:    map[int64]domain.Product{},
		coupons:     map[string]domain.Coupon{},
		orders:      map[int64]domain.Order{},
		sequences:   map[int]int64{},
		nextOrderID: 1,
		nextItemID:  1,
	}}
}

func (st fakeState) clone() fakeState {
	out := st
	out.products = make(map[int64]domain.Product, len(st.products))
	for k, v := range st.products {
		out.products[k] = v
	}
	out.coupons = make(map[string]domain.Coupon, len(st.coupons))
	for k, v := range st.coupons {
		out.coupons[k] = v
	}
	out.orders = make(map[int64]domain.Order, len(st.orders))
	for k, v := range st.orders {
		out.orders[k] = v
	}
	out.sequences = make(map[int]int64, len(st.sequences))
	for k, v := range st.sequences {
		out.sequences[k] = v
	}
	out.events = slices.Clone(st.events)
	return out
}

func (f *fakeStore) addProduct(p domain.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.products[p.ID] = p
}

func (f *fakeStore) addCoupon(c domain.Coupon) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.coupons[c.Code] = c
}

func (f *fakeStore) product(id int64) domain.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.products[id]
}

func (f *fakeStore) coupon(code string) domain.Coupon {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.coupons[code]
}

func (f *fakeStore) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.state.orders)
}

func (f *fakeStore) eventsOf(typ domain.EventType) []domain.OrderEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.OrderEvent
	for _, e := range f.state.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeStore) setDeliveryStatus(id int64, status domain.DeliveryStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.state.orders[id]
	o.DeliveryStatus = status
	f.state.orders[id] = o
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx := &fakeTx{store: f, st: f.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	f.state = tx.st
	return nil
}

func (f *fakeStore) FindOrder(_ context.Context, ref domain.OrderRef) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.find(ref), nil
}

func (f *fakeStore) ListOrders(_ context.Context, q ListQuery) ([]domain.Order, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []domain.Order
	for _, o := range f.state.orders {
		if o.UserID != q.UserID {
			continue
		}
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		matched = append(matched, o)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var less bool
		switch q.SortBy {
		case SortByTotalAmount:
			if a.TotalAmount.Equal(b.TotalAmount) {
				less = a.ID < b.ID
			} else {
				less = a.TotalAmount.LessThan(b.TotalAmount)
			}
		default:
			if a.CreatedAt.Equal(b.CreatedAt) {
				less = a.ID < b.ID
			} else {
				less = a.CreatedAt.Before(b.CreatedAt)
			}
		}
		if q.Descending {
			return !less
		}
		return less
	})

	total := len(matched)
	start := min(q.Offset(), total)
	end := min(start+q.Limit, total)
	return matched[start:end], total, nil
}

func (st fakeState) find(ref domain.OrderRef) *domain.Order {
	for _, o := range st.orders {
		if (ref.ID != 0 && o.ID == ref.ID) || (ref.Number != "" && o.OrderNumber == ref.Number) {
			o.Items = slices.Clone(o.Items)
			return &o
		}
	}
	return nil
}

type fakeTx struct {
	store *fakeStore
	st    fakeState
}

func (tx *fakeTx) LockProducts(context.Context, []int64) error { return nil }

func (tx *fakeTx) ProductForUpdate(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := tx.st.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (tx *fakeTx) AdjustStock(_ context.Context, id int64, delta int) (bool, error) {
	p, ok := tx.st.products[id]
	if !ok || p.Stock+delta < 0 {
		return false, nil
	}
	p.Stock += delta
	tx.st.products[id] = p
	return true, nil
}

func (tx *fakeTx) CouponByCode(_ context.Context, code string) (*domain.Coupon, error) {
	c, ok := tx.st.coupons[code]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (tx *fakeTx) IncrementCouponUsage(_ context.Context, id int64) (bool, error) {
	for code, c := range tx.st.coupons {
		if c.ID != id {
			continue
		}
		if c.Exhausted() {
			return false, nil
		}
		c.UsedCount++
		tx.st.coupons[code] = c
		return true, nil
	}
	return false, nil
}

func (tx *fakeTx) NextOrderSequence(_ context.Context, year int) (int64, error) {
	tx.st.sequences[year]++
	return tx.st.sequences[year], nil
}

func (tx *fakeTx) OrderForUpdate(_ context.Context, ref domain.OrderRef) (*domain.Order, error) {
	return tx.st.find(ref), nil
}

func (tx *fakeTx) OrderByIdempotencyKey(_ context.Context, userID int64, key string) (*domain.Order, error) {
	for _, o := range tx.st.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			o.Items = slices.Clone(o.Items)
			return &o, nil
		}
	}
	return nil, nil
}

func (tx *fakeTx) InsertOrder(_ context.Context, order *domain.Order) error {
	if tx.store.beforeInsert != nil {
		hook := tx.store.beforeInsert
		tx.store.beforeInsert = nil
		hook(&tx.store.state)
	}

	if order.IdempotencyKey != "" {
		for _, st := range []fakeState{tx.st, tx.store.state} {
			for _, o := range st.orders {
				if o.UserID == order.UserID && o.IdempotencyKey == order.IdempotencyKey {
					return ErrDuplicateRequest
				}
			}
		}
	}
	for _, o := range tx.st.orders {
		if o.OrderNumber == order.OrderNumber {
			return errors.New("duplicate order number")
		}
	}

	order.ID = tx.st.nextOrderID
	tx.st.nextOrderID++
	for i := range order.Items {
		order.Items[i].ID = tx.st.nextItemID
		order.Items[i].OrderID = order.ID
		tx.st.nextItemID++
	}
	if order.Payment != nil {
		order.Payment.ID = order.ID
	}

	stored := *order
	stored.Items = slices.Clone(order.Items)
	tx.st.orders[order.ID] = stored
	return nil
}

func (tx *fakeTx) UpdateOrderStatus(_ context.Context, order *domain.Order) error {
	o, ok := tx.st.orders[order.ID]
	if !ok {
		return errors.New("order row missing")
	}
	o.Status = order.Status
	o.Notes = order.Notes
	o.UpdatedAt = order.UpdatedAt
	tx.st.orders[order.ID] = o
	return nil
}

func (tx *fakeTx) EnqueueEvent(_ context.Context, event domain.OrderEvent) error {
	if tx.store.failEnqueue != nil {
		return tx.store.failEnqueue
	}
	tx.st.events = append(tx.st.events, event)
	return nil
}
