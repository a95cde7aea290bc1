package ledger

import (
	"context"
	"sync"
	"time"
)

// MemStore: implementasi Store di memori. Dipakai unit test dan mode dev
// tanpa Postgres. Mutual exclusion per entitas lewat mutex per key
// (padanan dari row lock FOR UPDATE di PGStore); akses map dijaga mu.
type MemStore struct {
	mu      sync.RWMutex
	users   map[string]*User
	pending map[string]*PendingTx
	stats   Stats

	locks sync.Map // key -> *sync.Mutex
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:   map[string]*User{},
		pending: map[string]*PendingTx{},
	}
}

func (s *MemStore) lock(key string) func() {
	v, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (s *MemStore) EnsureUser(_ context.Context, phone, name string) (*User, error) {
	defer s.lock("user:" + phone)()

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[phone]
	if !ok {
		u = &User{Phone: phone, Name: name, CreatedAt: time.Now().UTC()}
		s.users[phone] = u
		s.stats.TotalUsers++
	} else if name != "" {
		u.Name = name
	}
	return copyUser(u), nil
}

func (s *MemStore) GetUser(_ context.Context, phone string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[phone]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(u), nil
}

func (s *MemStore) CreatePendingTx(_ context.Context, p PendingTx) error {
	defer s.lock("ref:" + p.MerchantRef)()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[p.MerchantRef]; ok {
		return ErrDuplicateRef
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	cp := p
	s.pending[p.MerchantRef] = &cp
	return nil
}

func (s *MemStore) GetPendingTx(_ context.Context, merchantRef string) (*PendingTx, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pending[merchantRef]
	if !ok {
		return nil, ErrRefNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemStore) SettleTopup(_ context.Context, merchantRef string) (int64, bool, error) {
	defer s.lock("ref:" + merchantRef)()

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[merchantRef]
	if !ok {
		return 0, false, ErrRefNotFound
	}
	if p.Status == StatusPaid {
		return 0, true, nil
	}
	u, ok := s.users[p.Phone]
	if !ok {
		return 0, false, ErrUserNotFound
	}
	now := time.Now().UTC()
	p.Status = StatusPaid
	p.PaidAt = &now
	u.Balance += p.Amount
	return p.Amount, false, nil
}

func (s *MemStore) SettlePurchase(_ context.Context, merchantRef string, item PurchaseItem) (bool, error) {
	defer s.lock("ref:" + merchantRef)()

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[merchantRef]
	if !ok {
		return false, ErrRefNotFound
	}
	if p.Status == StatusPaid {
		return true, nil
	}
	u, ok := s.users[p.Phone]
	if !ok {
		return false, ErrUserNotFound
	}
	now := time.Now().UTC()
	p.Status = StatusPaid
	p.PaidAt = &now
	u.TotalSpent += p.Amount
	u.Orders = append(u.Orders, OrderRecord{
		ProductCode: item.Code,
		ProductName: item.Name,
		PricePaid:   p.Amount,
		CreatedAt:   now,
	})
	s.stats.TotalSold++
	s.stats.TotalAmount += p.Amount
	return false, nil
}

func (s *MemStore) DebitPurchase(_ context.Context, phone string, item PurchaseItem) (*User, error) {
	defer s.lock("user:" + phone)()

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[phone]
	if !ok {
		return nil, ErrUserNotFound
	}
	total := item.Total()
	if u.Balance < total {
		return nil, ErrInsufficientBalance
	}
	u.Balance -= total
	u.TotalSpent += total
	u.Orders = append(u.Orders, OrderRecord{
		ProductCode: item.Code,
		ProductName: item.Name,
		PricePaid:   total,
		CreatedAt:   time.Now().UTC(),
	})
	s.stats.TotalSold++
	s.stats.TotalAmount += total
	return copyUser(u), nil
}

func (s *MemStore) GetStats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.stats
	return &st, nil
}

func copyUser(u *User) *User {
	cp := *u
	cp.Orders = append([]OrderRecord(nil), u.Orders...)
	return &cp
}
