package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"market/internal/domain/model"
	repo "market/internal/repository"
)

// memStore はテスト用のトランザクション付きインメモリストア。
// WithinTxは1本ずつ直列に実行し、fnがerrorを返したら開始前の状態に戻す。
type memStore struct {
	mu sync.Mutex

	products    map[int64]model.Product
	carts       map[int64][]model.CartItem
	orders      map[int64]model.Order
	adjustments []model.InventoryAdjustment
	audits      []model.AuditLog

	nextOrderID int64
	nextLineID  int64
	nextCartID  int64
	nextAuditID int64

	// 障害注入
	failCartClear error
	// 指定回数だけorder_code重複を返す
	duplicateCodes int
	// 事前チェック後に他の注文が在庫を取った状態を作る
	rejectDecrease map[int64]bool
	// カート行のロック待ち（読む前）と、ロックして読んだ直後に呼ぶ。
	// ロック中なのでmを直接触る
	beforeCartLock func(m *memStore)
	afterCartLock  func(m *memStore)
	txCount        int
}

func newMemStore(products ...model.Product) *memStore {
	m := &memStore{
		products: map[int64]model.Product{},
		carts:    map[int64][]model.CartItem{},
		orders:   map[int64]model.Order{},
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

type memSnapshot struct {
	products    map[int64]model.Product
	carts       map[int64][]model.CartItem
	orders      map[int64]model.Order
	adjustments []model.InventoryAdjustment
	audits      []model.AuditLog
	nextOrderID int64
	nextLineID  int64
	nextCartID  int64
	nextAuditID int64
}

func cloneOrder(o model.Order) model.Order {
	o.Lines = append([]model.OrderLine(nil), o.Lines...)
	if o.PaymentSessionID != nil {
		s := *o.PaymentSessionID
		o.PaymentSessionID = &s
	}
	if o.IdempotencyKey != nil {
		k := *o.IdempotencyKey
		o.IdempotencyKey = &k
	}
	return o
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		products:    map[int64]model.Product{},
		carts:       map[int64][]model.CartItem{},
		orders:      map[int64]model.Order{},
		adjustments: append([]model.InventoryAdjustment(nil), m.adjustments...),
		audits:      append([]model.AuditLog(nil), m.audits...),
		nextOrderID: m.nextOrderID,
		nextLineID:  m.nextLineID,
		nextCartID:  m.nextCartID,
		nextAuditID: m.nextAuditID,
	}
	for k, v := range m.products {
		s.products[k] = v
	}
	for k, v := range m.carts {
		s.carts[k] = append([]model.CartItem(nil), v...)
	}
	for k, v := range m.orders {
		s.orders[k] = cloneOrder(v)
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.products = s.products
	m.carts = s.carts
	m.orders = s.orders
	m.adjustments = s.adjustments
	m.audits = s.audits
	m.nextOrderID = s.nextOrderID
	m.nextLineID = s.nextLineID
	m.nextCartID = s.nextCartID
	m.nextAuditID = s.nextAuditID
}

func (m *memStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txCount++
	snap := m.snapshot()
	if err := fn(memTx{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// テストから状態を覗くためのヘルパー
func (m *memStore) stock(id int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *memStore) setStock(id int64, stock int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[id]
	p.Stock = stock
	m.products[id] = p
}

func (m *memStore) setPrice(id int64, price int64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[id]
	p.Price = price
	p.Name = name
	m.products[id] = p
}

func (m *memStore) deleteProduct(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
}

func (m *memStore) cart(userID int64) []model.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.CartItem(nil), m.carts[userID]...)
}

func (m *memStore) putCart(userID int64, lines ...model.CartItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range lines {
		m.nextCartID++
		l.ID = m.nextCartID
		l.UserID = userID
		m.carts[userID] = append(m.carts[userID], l)
	}
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memStore) allOrders() []model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) auditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.audits)
}

// memTx はロック済みのストアを操作する。WithinTxの中でだけ使う
type memTx struct {
	m *memStore
}

func (t memTx) Orders() repo.OrderRepository        { return memOrders(t) }
func (t memTx) Carts() repo.CartRepository          { return memCarts(t) }
func (t memTx) Inventory() repo.InventoryRepository { return memInventory(t) }
func (t memTx) Products() repo.ProductRepository    { return memProducts(t) }
func (t memTx) AuditLogs() repo.AuditLogRepository  { return memAudits(t) }

// ---- products ----

type memProducts memTx

func (r memProducts) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range r.m.products {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.Q != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Q)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r memProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := r.m.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r memProducts) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	for _, p := range r.m.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return model.Product{}, repo.ErrNotFound
}

func (r memProducts) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	out := map[int64]model.Product{}
	for _, id := range ids {
		if p, ok := r.m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r memProducts) FindByIDForUpdate(ctx context.Context, id int64) (model.Product, error) {
	return r.FindByID(ctx, id)
}

func (r memProducts) UpsertBySlug(ctx context.Context, p model.Product) error {
	r.m.products[p.ID] = p
	return nil
}

// ---- inventory ----

type memInventory memTx

// stock >= qty のときだけ減らす
func (r memInventory) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	p, ok := r.m.products[productID]
	if !ok || p.Stock < qty || r.m.rejectDecrease[productID] {
		return false, nil
	}
	p.Stock -= qty
	r.m.products[productID] = p
	return true, nil
}

func (r memInventory) SetStock(ctx context.Context, productID int64, newStock int64) error {
	p, ok := r.m.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock = newStock
	r.m.products[productID] = p
	return nil
}

func (r memInventory) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	r.m.adjustments = append(r.m.adjustments, adj)
	return nil
}

// ---- carts ----

type memCarts memTx

func (r memCarts) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	return append([]model.CartItem(nil), r.m.carts[userID]...), nil
}

func (r memCarts) ListByUserIDForUpdate(ctx context.Context, userID int64) ([]model.CartItem, error) {
	if r.m.beforeCartLock != nil {
		r.m.beforeCartLock(r.m)
	}
	items := append([]model.CartItem(nil), r.m.carts[userID]...)
	if r.m.afterCartLock != nil {
		r.m.afterCartLock(r.m)
	}
	return items, nil
}

func (r memCarts) Add(ctx context.Context, userID int64, productID int64, qty int64) error {
	lines := r.m.carts[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = min(lines[i].Quantity+qty, model.MaxCartQuantity)
			return nil
		}
	}
	r.m.nextCartID++
	r.m.carts[userID] = append(lines, model.CartItem{ID: r.m.nextCartID, UserID: userID, ProductID: productID, Quantity: qty})
	return nil
}

func (r memCarts) SetQuantity(ctx context.Context, userID int64, productID int64, qty int64) error {
	lines := r.m.carts[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = qty
			return nil
		}
	}
	r.m.nextCartID++
	r.m.carts[userID] = append(lines, model.CartItem{ID: r.m.nextCartID, UserID: userID, ProductID: productID, Quantity: qty})
	return nil
}

func (r memCarts) Remove(ctx context.Context, userID int64, productID int64) error {
	lines := r.m.carts[userID]
	out := lines[:0]
	for _, l := range lines {
		if l.ProductID != productID {
			out = append(out, l)
		}
	}
	r.m.carts[userID] = out
	return nil
}

func (r memCarts) Clear(ctx context.Context, userID int64) error {
	if r.m.failCartClear != nil {
		return r.m.failCartClear
	}
	delete(r.m.carts, userID)
	return nil
}

func (r memCarts) RemoveItems(ctx context.Context, userID int64, itemIDs []int64) error {
	if r.m.failCartClear != nil {
		return r.m.failCartClear
	}
	drop := make(map[int64]bool, len(itemIDs))
	for _, id := range itemIDs {
		drop[id] = true
	}
	var out []model.CartItem
	for _, l := range r.m.carts[userID] {
		if !drop[l.ID] {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		delete(r.m.carts, userID)
		return nil
	}
	r.m.carts[userID] = out
	return nil
}

// ---- orders ----

type memOrders memTx

func (r memOrders) Create(ctx context.Context, o *model.Order) error {
	if r.m.duplicateCodes > 0 {
		r.m.duplicateCodes--
		return repo.ErrDuplicateOrderCode
	}
	for _, ex := range r.m.orders {
		if ex.OrderCode == o.OrderCode {
			return repo.ErrDuplicateOrderCode
		}
		if o.IdempotencyKey != nil && ex.IdempotencyKey != nil &&
			ex.UserID == o.UserID && *ex.IdempotencyKey == *o.IdempotencyKey {
			return repo.ErrDuplicateIdempotencyKey
		}
	}

	r.m.nextOrderID++
	o.ID = r.m.nextOrderID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	for i := range o.Lines {
		r.m.nextLineID++
		o.Lines[i].ID = r.m.nextLineID
		o.Lines[i].OrderID = o.ID
	}
	r.m.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r memOrders) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	o, ok := r.m.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r memOrders) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	return r.FindByID(ctx, orderID)
}

func (r memOrders) FindBySessionID(ctx context.Context, userID int64, sessionID string) (model.Order, error) {
	for _, o := range r.m.orders {
		if o.UserID == userID && o.PaymentSessionID != nil && *o.PaymentSessionID == sessionID {
			return cloneOrder(o), nil
		}
	}
	return model.Order{}, repo.ErrNotFound
}

func (r memOrders) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, error) {
	for _, o := range r.m.orders {
		if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return cloneOrder(o), nil
		}
	}
	return model.Order{}, repo.ErrNotFound
}

func (r memOrders) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	var all []model.Order
	for _, o := range r.m.orders {
		if o.UserID == userID {
			all = append(all, cloneOrder(o))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r memOrders) TransitionStatus(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus) (bool, error) {
	o, ok := r.m.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	r.m.orders[orderID] = o
	return true, nil
}

func (r memOrders) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	var all []model.Order
	for _, o := range r.m.orders {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		if f.Code != "" && !strings.Contains(o.OrderCode, f.Code) {
			continue
		}
		all = append(all, cloneOrder(o))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, f.Page, f.Limit), int64(len(all)), nil
}

func paginate(all []model.Order, page int, limit int) []model.Order {
	start := (page - 1) * limit
	if start >= len(all) {
		return []model.Order{}
	}
	end := min(start+limit, len(all))
	return all[start:end]
}

// ---- audit logs ----

type memAudits memTx

func (r memAudits) Create(ctx context.Context, log model.AuditLog) error {
	r.m.nextAuditID++
	log.ID = r.m.nextAuditID
	r.m.audits = append(r.m.audits, log)
	return nil
}

func (r memAudits) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	var out []model.AuditLog
	for i := len(r.m.audits) - 1; i >= 0; i-- {
		a := r.m.audits[i]
		if f.Action != nil && a.Action != *f.Action {
			continue
		}
		if f.ResourceID != nil && a.ResourceID != *f.ResourceID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

var _ repo.TransactionManager = (*memStore)(nil)
