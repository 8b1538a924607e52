package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/annoor-shop/internal/listing"
	"github.com/MikeMC777/annoor-shop/internal/order"
	"github.com/MikeMC777/annoor-shop/internal/product"
	"github.com/MikeMC777/annoor-shop/internal/user"
)

//
// ===== in-memory stores behind the real services =====
//

// match evaluates the predicates the services build. get returns the value of
// a logical field and text the searchable content of the record.
func match(p listing.Predicate, get func(field string) any, text string) bool {
	switch p.Op {
	case listing.OpAll:
		return true
	case listing.OpText:
		return strings.Contains(strings.ToLower(text), strings.ToLower(fmt.Sprint(p.Value)))
	case listing.OpEq:
		return fmt.Sprint(get(p.Field)) == fmt.Sprint(p.Value)
	case listing.OpGt:
		d, ok := get(p.Field).(decimal.Decimal)
		return ok && d.GreaterThan(decimal.NewFromInt(int64(p.Value.(int))))
	case listing.OpAnd:
		for _, t := range p.Terms {
			if !match(t, get, text) {
				return false
			}
		}
		return true
	}
	return false
}

// page applies newest-first ordering and the window of q to records kept in
// insertion order.
func page[T any](all []T, q listing.Query) []T {
	rev := make([]T, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		rev = append(rev, all[i])
	}
	if q.Skip >= int64(len(rev)) {
		return []T{}
	}
	end := q.Skip + q.Limit
	if end > int64(len(rev)) {
		end = int64(len(rev))
	}
	return rev[q.Skip:end]
}

type memUsers struct {
	mu    sync.Mutex
	order []string
	byUID map[string]*user.User
}

func newMemUsers() *memUsers { return &memUsers{byUID: map[string]*user.User{}} }

func (m *memUsers) add(uid string, role user.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUID[uid] = &user.User{UID: uid, Role: role, Profile: user.Profile{}}
	m.order = append(m.order, uid)
}

func (m *memUsers) Upsert(_ context.Context, uid string, profile user.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byUID[uid]
	if !ok {
		u = &user.User{UID: uid, Profile: user.Profile{}}
		m.byUID[uid] = u
		m.order = append(m.order, uid)
	}
	for k, v := range profile {
		u.Profile[k] = v
	}
	return nil
}

func (m *memUsers) GetByUID(_ context.Context, uid string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byUID[uid]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) SetRole(_ context.Context, uid string, role user.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byUID[uid]
	if !ok {
		return user.ErrNotFound
	}
	u.Role = role
	return nil
}

func (m *memUsers) List(_ context.Context, q listing.Query) ([]user.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hits []user.User
	for _, uid := range m.order {
		u := m.byUID[uid]
		get := func(f string) any {
			if f == "role" {
				return u.Role.String()
			}
			return u.UID
		}
		if match(q.Predicate, get, u.UID+" "+fmt.Sprint(u.Profile["name"])) {
			hits = append(hits, *u)
		}
	}
	return page(hits, q), int64(len(hits)), nil
}

type memProducts struct {
	mu    sync.Mutex
	order []string
	byID  map[string]*product.Product
}

func newMemProducts() *memProducts { return &memProducts{byID: map[string]*product.Product{}} }

func (m *memProducts) Create(_ context.Context, p *product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.NewString()
	cp := *p
	m.byID[p.ID] = &cp
	m.order = append(m.order, p.ID)
	return nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) Update(_ context.Context, id string, f product.Fields) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	f.Apply(p)
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}

func (m *memProducts) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return false, nil
	}
	delete(m.byID, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *memProducts) List(_ context.Context, q listing.Query) ([]product.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hits []product.Product
	for _, id := range m.order {
		p := m.byID[id]
		get := func(f string) any {
			switch f {
			case "stock":
				return p.Stock
			case "discount":
				return p.Discount
			}
			return nil
		}
		if match(q.Predicate, get, p.Name+" "+p.Description+" "+p.Category) {
			hits = append(hits, *p)
		}
	}
	return page(hits, q), int64(len(hits)), nil
}

func (m *memProducts) ListByCategory(_ context.Context, category string) ([]product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []product.Product{}
	for i := len(m.order) - 1; i >= 0; i-- {
		if p := m.byID[m.order[i]]; p.Category == category {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProducts) AdjustStock(_ context.Context, id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return product.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return product.ErrInsufficientStock
	}
	p.Stock += delta
	return nil
}

func (m *memProducts) stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].Stock
}

func (m *memProducts) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type memOrders struct {
	mu    sync.Mutex
	seq   int64
	order []int64
	byID  map[int64]*order.Order
}

func newMemOrders() *memOrders { return &memOrders{byID: map[int64]*order.Order{}} }

func (m *memOrders) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	o.ID = m.seq
	cp := *o
	m.byID[o.ID] = &cp
	m.order = append(m.order, o.ID)
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id int64) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) List(_ context.Context, q listing.Query) ([]order.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hits []order.Order
	for _, id := range m.order {
		o := m.byID[id]
		get := func(f string) any {
			switch f {
			case "owner":
				return o.Owner
			case "status":
				return o.Status
			}
			return nil
		}
		if match(q.Predicate, get, o.Owner+" "+o.Status) {
			hits = append(hits, *o)
		}
	}
	return page(hits, q), int64(len(hits)), nil
}

func (m *memOrders) SetStatus(_ context.Context, id int64, status string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	if o.Status == order.StatusCanceled {
		return nil, order.ErrCanceled
	}
	prev := *o
	o.Status = status
	return &prev, nil
}

func (m *memOrders) Pay(_ context.Context, id int64, owner string, payment map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok || o.Owner != owner {
		return order.ErrNotFound
	}
	if o.Status != order.StatusPending {
		return order.ErrNotPending
	}
	if o.Payment == nil {
		o.Payment = map[string]any{}
	}
	for k, v := range payment {
		o.Payment[k] = v
	}
	o.Status = order.StatusPaid
	return nil
}

func (m *memOrders) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return false, nil
	}
	delete(m.byID, id)
	return true, nil
}

// memImages implements upload.Storage.
type memImages struct {
	mu        sync.Mutex
	stored    map[string][]byte
	deleted   []string
	deleteErr error
}

func newMemImages() *memImages { return &memImages{stored: map[string][]byte{}} }

func (m *memImages) Put(_ context.Context, name, _ string, r io.Reader, _ int64) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := "mem://" + name
	m.stored[ref] = b
	return ref, nil
}

func (m *memImages) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.stored, ref)
	m.deleted = append(m.deleted, ref)
	return nil
}

func (m *memImages) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stored)
}

// logBuffer collects log output for assertions.
type logBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
