package service

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
)

type memOutbox struct {
	event      model.OutboxEvent
	dispatched bool
	attempts   int
}

// memRepo — хранилище в памяти с теми же правилами списания остатков,
// что и PostgresRepository.
type memRepo struct {
	mu sync.Mutex

	nextID int64

	users         map[int64]*model.User
	products      map[int64]*model.Product
	carts         map[int64][]model.CartItem
	orders        map[int64]*model.Order
	notifications []model.Notification
	outbox        []*memOutbox
	prices        model.DeliveryPrices
	subscribers   []model.Subscriber
	offers        map[int64]*model.Offer
	contacts      []model.ContactMessage

	completeErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:    map[int64]*model.User{},
		products: map[int64]*model.Product{},
		carts:    map[int64][]model.CartItem{},
		orders:   map[int64]*model.Order{},
		offers:   map[int64]*model.Offer{},
		prices: model.DeliveryPrices{
			model.DeliveryDesk:    {model.DefaultWilaya: decimal.NewFromInt(700)},
			model.DeliveryAddress: {model.DefaultWilaya: decimal.NewFromInt(1000)},
		},
	}
}

func (m *memRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func cloneProduct(p *model.Product) *model.Product {
	c := *p
	c.Stock = slices.Clone(p.Stock)
	c.Pictures = slices.Clone(p.Pictures)
	return &c
}

func cloneOrder(o *model.Order) *model.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	return &c
}

func (m *memRepo) addUser(name string, role model.Role) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.users[id] = &model.User{ID: id, Name: name, Email: fmt.Sprintf("user%d@example.com", id), Role: role}
	return id
}

func (m *memRepo) addProduct(name string, price int64, stock ...model.StockEntry) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.products[id] = &model.Product{
		ID:          id,
		Name:        name,
		Price:       decimal.NewFromInt(price),
		Category:    model.CategoryClothing,
		Subcategory: "Shirt",
		Gender:      model.GenderMen,
		Age:         model.AgeAdult,
		Season:      model.SeasonBoth,
		Stock:       stock,
	}
	return id
}

func (m *memRepo) stock(productID int64, size string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, _ := m.products[productID].StockFor(size)
	return q
}

func (m *memRepo) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memRepo) notificationsFor(userID int64) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			res = append(res, n)
		}
	}
	return res
}

func (m *memRepo) Close() error { return nil }

func (m *memRepo) CreateUser(_ context.Context, u *model.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return 0, repository.ErrUserExists
		}
	}
	id := m.id()
	c := *u
	c.ID = id
	m.users[id] = &c
	return id, nil
}

func (m *memRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *memRepo) ListAdminIDs(_ context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, u := range m.users {
		if u.Role == model.RoleAdmin {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *memRepo) CreateProduct(_ context.Context, p *model.Product) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := cloneProduct(p)
	c.ID = m.id()
	m.products[c.ID] = c
	return c.ID, nil
}

func (m *memRepo) UpdateProduct(_ context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.products[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	c := cloneProduct(p)
	for i := range c.Stock {
		if q, ok := current.StockFor(c.Stock[i].Size); ok {
			c.Stock[i].Quantity = q
		}
	}
	m.products[p.ID] = c
	return nil
}

func (m *memRepo) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memRepo) GetProduct(_ context.Context, id int64) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, repository.ErrNotFound)
	}
	return cloneProduct(p), nil
}

func (m *memRepo) ListProducts(_ context.Context, f model.ProductFilter) ([]model.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Product
	for _, p := range m.products {
		if f.Category != "" && string(p.Category) != f.Category {
			continue
		}
		all = append(all, *cloneProduct(p))
	}
	slices.SortFunc(all, func(a, b model.Product) int { return cmp.Compare(a.ID, b.ID) })

	start := min((f.Page-1)*f.Limit, len(all))
	end := min(start+f.Limit, len(all))
	return all[start:end], len(all), nil
}

func (m *memRepo) ListCategories(_ context.Context) ([]string, error) { return nil, nil }

func (m *memRepo) ListSubcategories(_ context.Context, _ string) ([]string, error) { return nil, nil }

func (m *memRepo) Restock(_ context.Context, productID int64, size string, quantity int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	for i := range p.Stock {
		if p.Stock[i].Size == size {
			p.Stock[i].Quantity += quantity
			return p.Stock[i].Quantity, nil
		}
	}
	p.Stock = append(p.Stock, model.StockEntry{Size: size, Quantity: quantity})
	return quantity, nil
}

func (m *memRepo) GetCart(_ context.Context, userID int64) (*model.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := slices.Clone(m.carts[userID])
	if items == nil {
		items = []model.CartItem{}
	}
	return &model.Cart{UserID: userID, Items: items}, nil
}

func (m *memRepo) AddCartItem(_ context.Context, userID, productID int64, size string, quantity, available int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.carts[userID]
	for i := range items {
		if items[i].ProductID == productID && items[i].Size == size {
			if items[i].Quantity+quantity > available {
				return &repository.StockError{
					ProductID: productID, Size: size, Requested: items[i].Quantity + quantity, Available: available,
				}
			}
			items[i].Quantity += quantity
			return nil
		}
	}
	if quantity > available {
		return &repository.StockError{ProductID: productID, Size: size, Requested: quantity, Available: available}
	}
	m.carts[userID] = append(items, model.CartItem{
		ID: m.id(), ProductID: productID, Size: size, Quantity: quantity, AddedAt: time.Now(),
	})
	return nil
}

func (m *memRepo) GetCartItem(_ context.Context, userID, itemID int64) (*model.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.carts[userID] {
		if it.ID == itemID {
			return &it, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRepo) UpdateCartItem(_ context.Context, userID, itemID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.carts[userID]
	for i := range items {
		if items[i].ID == itemID {
			items[i].Quantity = quantity
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memRepo) removeWhere(userID int64, match func(model.CartItem) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.carts[userID]
	n := len(items)
	items = slices.DeleteFunc(items, match)
	if len(items) == n {
		return repository.ErrNotFound
	}
	m.carts[userID] = items
	return nil
}

func (m *memRepo) RemoveCartItem(_ context.Context, userID, itemID int64) error {
	return m.removeWhere(userID, func(it model.CartItem) bool { return it.ID == itemID })
}

func (m *memRepo) RemoveCartLine(_ context.Context, userID, productID int64, size string) error {
	return m.removeWhere(userID, func(it model.CartItem) bool {
		return it.ProductID == productID && it.Size == size
	})
}

func (m *memRepo) PlaceOrder(_ context.Context, p repository.PlaceOrderParams) (*model.Order, []model.StockUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type key struct {
		productID int64
		size      string
	}
	totals := map[key]int{}
	var keys []key
	for _, it := range p.Items {
		k := key{it.ProductID, it.Size}
		if _, ok := totals[k]; !ok {
			keys = append(keys, k)
		}
		totals[k] += it.Quantity
	}

	for _, k := range keys {
		prod, ok := m.products[k.productID]
		if !ok {
			return nil, nil, fmt.Errorf("product %d: %w", k.productID, repository.ErrNotFound)
		}
		available, _ := prod.StockFor(k.size)
		if available < totals[k] {
			return nil, nil, &repository.StockError{
				ProductID: k.productID, ProductName: prod.Name, Size: k.size,
				Requested: totals[k], Available: available,
			}
		}
	}

	order := &model.Order{
		ID:             m.id(),
		UserID:         p.UserID,
		DeliveryMethod: p.DeliveryMethod,
		Wilaya:         p.Wilaya,
		Address:        p.Address,
		DeliveryFee:    p.DeliveryFee,
		Status:         model.OrderStatusPending,
		CreatedAt:      time.Now(),
	}
	subtotal := decimal.Zero
	for _, it := range p.Items {
		prod := m.products[it.ProductID]
		order.Items = append(order.Items, model.OrderItem{
			ProductID: it.ProductID, ProductName: prod.Name, Size: it.Size, Quantity: it.Quantity, UnitPrice: prod.Price,
		})
		subtotal = subtotal.Add(prod.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	order.Subtotal = subtotal
	order.Total = subtotal.Add(p.DeliveryFee)
	if p.DeclaredSubtotal != nil && !p.DeclaredSubtotal.Equal(order.Subtotal) {
		return nil, nil, repository.ErrPriceMismatch
	}
	if p.DeclaredTotal != nil && !p.DeclaredTotal.Equal(order.Total) {
		return nil, nil, repository.ErrPriceMismatch
	}

	var updates []model.StockUpdate
	for _, k := range keys {
		prod := m.products[k.productID]
		for i := range prod.Stock {
			if prod.Stock[i].Size == k.size {
				prod.Stock[i].Quantity = max(prod.Stock[i].Quantity-totals[k], 0)
				updates = append(updates, model.StockUpdate{
					ProductID: k.productID, Size: k.size, NewQuantity: prod.Stock[i].Quantity,
				})
			}
		}
	}

	m.orders[order.ID] = order
	m.carts[p.UserID] = nil
	m.enqueue(model.EventOrderPlaced, model.OrderEvent{
		OrderID: order.ID, UserID: order.UserID, Status: order.Status, Total: order.Total, StockUpdates: updates,
	})
	return cloneOrder(order), updates, nil
}

func (m *memRepo) enqueue(eventType string, event model.OrderEvent) {
	payload, _ := json.Marshal(event)
	m.outbox = append(m.outbox, &memOutbox{event: model.OutboxEvent{
		ID: uuid.New(), Type: eventType, OrderID: event.OrderID, Payload: payload, CreatedAt: time.Now(),
	}})
}

func (m *memRepo) GetOrder(_ context.Context, id int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, repository.ErrNotFound)
	}
	return cloneOrder(o), nil
}

func (m *memRepo) ListOrdersByUser(_ context.Context, userID int64) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := []model.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			res = append(res, *cloneOrder(o))
		}
	}
	return res, nil
}

func (m *memRepo) ListOrders(_ context.Context) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := []model.Order{}
	for _, o := range m.orders {
		res = append(res, *cloneOrder(o))
	}
	return res, nil
}

func (m *memRepo) UpdateOrderStatus(_ context.Context, id int64, from, to model.OrderStatus) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if o.Status != from {
		return nil, repository.ErrStatusConflict
	}
	o.Status = to
	m.enqueue(model.EventOrderStatusChanged, model.OrderEvent{
		OrderID: id, UserID: o.UserID, Status: to, PreviousStatus: from, Total: o.Total,
	})
	return cloneOrder(o), nil
}

func (m *memRepo) ListNotifications(_ context.Context, userID int64) ([]model.Notification, error) {
	return m.notificationsFor(userID), nil
}

func (m *memRepo) MarkNotificationRead(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id {
			if m.notifications[i].UserID != userID {
				return repository.ErrNotOwner
			}
			m.notifications[i].Read = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memRepo) ClaimOutboxEvents(_ context.Context, limit, maxAttempts int) ([]model.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.OutboxEvent
	for _, e := range m.outbox {
		if len(res) == limit {
			break
		}
		if !e.dispatched && e.attempts < maxAttempts {
			ev := e.event
			ev.Attempts = e.attempts
			res = append(res, ev)
		}
	}
	return res, nil
}

func (m *memRepo) CompleteOutboxEvent(_ context.Context, id uuid.UUID, notes []model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completeErr != nil {
		return m.completeErr
	}
	for _, e := range m.outbox {
		if e.event.ID != id {
			continue
		}
		if e.dispatched {
			return repository.ErrAlreadyDispatched
		}
		for _, n := range notes {
			n.ID = m.id()
			n.CreatedAt = time.Now()
			m.notifications = append(m.notifications, n)
		}
		e.dispatched = true
		return nil
	}
	return repository.ErrNotFound
}

func (m *memRepo) FailOutboxEvent(_ context.Context, id uuid.UUID, _ error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.outbox {
		if e.event.ID == id {
			e.attempts++
		}
	}
	return nil
}

func (m *memRepo) GetDeliveryPrices(_ context.Context) (model.DeliveryPrices, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := model.DeliveryPrices{}
	for method, byWilaya := range m.prices {
		res[method] = map[string]decimal.Decimal{}
		for w, p := range byWilaya {
			res[method][w] = p
		}
	}
	return res, nil
}

func (m *memRepo) SetDeliveryPrices(_ context.Context, prices model.DeliveryPrices) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for method, byWilaya := range prices {
		if m.prices[method] == nil {
			m.prices[method] = map[string]decimal.Decimal{}
		}
		for w, p := range byWilaya {
			m.prices[method][w] = p
		}
	}
	return nil
}

func (m *memRepo) Subscribe(_ context.Context, email string) (*model.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subscribers {
		if s.Email == email {
			return nil, repository.ErrAlreadySubscribed
		}
	}
	s := model.Subscriber{ID: m.id(), Email: email, CreatedAt: time.Now()}
	m.subscribers = append(m.subscribers, s)
	return &s, nil
}

func (m *memRepo) ListSubscribers(_ context.Context) ([]model.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.subscribers), nil
}

func (m *memRepo) DeleteSubscriber(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.subscribers)
	m.subscribers = slices.DeleteFunc(m.subscribers, func(s model.Subscriber) bool { return s.ID == id })
	if len(m.subscribers) == n {
		return repository.ErrNotFound
	}
	return nil
}

func (m *memRepo) DeleteSubscribers(_ context.Context, ids []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.subscribers)
	m.subscribers = slices.DeleteFunc(m.subscribers, func(s model.Subscriber) bool { return slices.Contains(ids, s.ID) })
	return int64(n - len(m.subscribers)), nil
}

func (m *memRepo) UpdateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Name = u.Name
	cur.PhoneNumber = u.PhoneNumber
	cur.Wilaya = u.Wilaya
	return nil
}

func (m *memRepo) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	for _, o := range m.orders {
		if o.UserID == id && o.Status != model.OrderStatusCompleted && o.Status != model.OrderStatusCancelled {
			return repository.ErrActiveOrders
		}
	}

	delete(m.users, id)
	delete(m.carts, id)
	m.notifications = slices.DeleteFunc(m.notifications, func(n model.Notification) bool { return n.UserID == id })
	for _, o := range m.orders {
		if o.UserID == id {
			o.UserID = 0
		}
	}
	return nil
}

func (m *memRepo) ListRelatedProducts(_ context.Context, productID int64, limit int) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.products[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	tier := func(p *model.Product) int {
		switch {
		case p.Category == src.Category && p.Subcategory == src.Subcategory:
			return 0
		case p.Category == src.Category:
			return 1
		default:
			return 2
		}
	}

	res := []model.Product{}
	for _, p := range m.products {
		if p.ID != productID {
			res = append(res, *cloneProduct(p))
		}
	}
	slices.SortFunc(res, func(a, b model.Product) int {
		if c := cmp.Compare(tier(&a), tier(&b)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *memRepo) ListOffers(_ context.Context, mainPage bool) ([]model.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := []model.Offer{}
	for _, o := range m.offers {
		if !mainPage || o.ShowOnMainPage {
			res = append(res, *o)
		}
	}
	slices.SortFunc(res, func(a, b model.Offer) int { return cmp.Compare(b.ID, a.ID) })
	if mainPage && len(res) > model.MaxMainPageOffers {
		res = res[:model.MaxMainPageOffers]
	}
	return res, nil
}

func (m *memRepo) GetOffer(_ context.Context, id int64) (*model.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *o
	return &c, nil
}

func (m *memRepo) visibleOffers() int {
	n := 0
	for _, o := range m.offers {
		if o.ShowOnMainPage {
			n++
		}
	}
	return n
}

func (m *memRepo) CreateOffer(_ context.Context, o *model.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ShowOnMainPage && m.visibleOffers() >= model.MaxMainPageOffers {
		return repository.ErrOfferLimit
	}
	o.ID = m.id()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	c := *o
	m.offers[o.ID] = &c
	return nil
}

func (m *memRepo) UpdateOffer(_ context.Context, o *model.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.offers[o.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if o.ShowOnMainPage && !cur.ShowOnMainPage && m.visibleOffers() >= model.MaxMainPageOffers {
		return repository.ErrOfferLimit
	}
	o.UpdatedAt = time.Now()
	c := *o
	m.offers[o.ID] = &c
	return nil
}

func (m *memRepo) DeleteOffer(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.offers[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.offers, id)
	return nil
}

func (m *memRepo) CreateContactMessage(_ context.Context, msg *model.ContactMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.id()
	msg.CreatedAt = time.Now()
	m.contacts = append(m.contacts, *msg)
	return nil
}

func (m *memRepo) ListContactMessages(_ context.Context) ([]model.ContactMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := slices.Clone(m.contacts)
	slices.Reverse(res)
	return res, nil
}

func (m *memRepo) DeleteContactMessage(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.contacts)
	m.contacts = slices.DeleteFunc(m.contacts, func(c model.ContactMessage) bool { return c.ID == id })
	if len(m.contacts) == n {
		return repository.ErrNotFound
	}
	return nil
}
