package bot_test

import (
	"context"
	"sort"
	"sync"

	"bot-service/internal/models"
	"bot-service/internal/repository"

	"github.com/google/uuid"
)

// In-memory двойники всех репозиториев для прогона полных сценариев
// диалога без БД. Мьютекс в WithTx воспроизводит сериализацию коммита.
type memStore struct {
	mu         sync.Mutex
	categories []models.Category
	products   map[uuid.UUID]models.Product
	cart       map[int64]map[uuid.UUID]int32
	cartOrder  map[int64][]uuid.UUID
	dialogues  map[int64]models.DialogueState
	orders     []models.Order
	items      map[uuid.UUID][]models.OrderItem
}

func newMemStore() *memStore {
	return &memStore{
		products:  map[uuid.UUID]models.Product{},
		cart:      map[int64]map[uuid.UUID]int32{},
		cartOrder: map[int64][]uuid.UUID{},
		dialogues: map[int64]models.DialogueState{},
		items:     map[uuid.UUID][]models.OrderItem{},
	}
}

func (s *memStore) addCategory(name string) models.Category {
	c := models.Category{ID: uuid.New(), Name: name, SortOrder: int32(len(s.categories)), IsActive: true}
	s.categories = append(s.categories, c)
	return c
}

func (s *memStore) addProduct(categoryID uuid.UUID, name string, price int64) models.Product {
	p := models.Product{ID: uuid.New(), CategoryID: categoryID, Name: name, Price: price, IsActive: true}
	s.products[p.ID] = p
	return p
}

func (s *memStore) repos() *repository.Repository {
	return &repository.Repository{
		Categories: &memCategoryRepo{s: s},
		Products:   &memProductRepo{s: s},
		CartItems:  &memCartRepo{s: s},
		Dialogues:  &memDialogueRepo{s: s},
		Orders:     &memOrderRepo{s: s},
		OrderItems: &memOrderItemRepo{s: s},
	}
}

type snapshot struct {
	cart      map[int64]map[uuid.UUID]int32
	cartOrder map[int64][]uuid.UUID
	dialogues map[int64]models.DialogueState
	orders    []models.Order
	items     map[uuid.UUID][]models.OrderItem
}

func (s *memStore) snapshot() snapshot {
	sn := snapshot{
		cart:      map[int64]map[uuid.UUID]int32{},
		cartOrder: map[int64][]uuid.UUID{},
		dialogues: map[int64]models.DialogueState{},
		orders:    append([]models.Order(nil), s.orders...),
		items:     map[uuid.UUID][]models.OrderItem{},
	}
	for conv, m := range s.cart {
		cp := map[uuid.UUID]int32{}
		for id, q := range m {
			cp[id] = q
		}
		sn.cart[conv] = cp
	}
	for conv, ids := range s.cartOrder {
		sn.cartOrder[conv] = append([]uuid.UUID(nil), ids...)
	}
	for conv, st := range s.dialogues {
		sn.dialogues[conv] = st
	}
	for id, its := range s.items {
		sn.items[id] = append([]models.OrderItem(nil), its...)
	}
	return sn
}

func (s *memStore) restore(sn snapshot) {
	s.cart = sn.cart
	s.cartOrder = sn.cartOrder
	s.dialogues = sn.dialogues
	s.orders = sn.orders
	s.items = sn.items
}

type memCategoryRepo struct{ s *memStore }

func (r *memCategoryRepo) ListActive(_ context.Context) ([]models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Category
	for _, c := range r.s.categories {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memCategoryRepo) GetActiveByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.categories {
		if c.ID == id && c.IsActive {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memCategoryRepo) Create(_ context.Context, c *models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.s.categories = append(r.s.categories, *c)
	return nil
}

type memProductRepo struct{ s *memStore }

func (r *memProductRepo) ListActive(_ context.Context, categoryID *uuid.UUID) ([]models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Product
	for _, p := range r.s.products {
		if !p.IsActive {
			continue
		}
		if categoryID != nil && p.CategoryID != *categoryID {
			continue
		}
		out = append(out, p)
	}
	// отсортировать по имени, как делает SQL-репозиторий
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memProductRepo) GetActiveByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok || !p.IsActive {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

func (r *memProductRepo) BatchGetByIDs(_ context.Context, ids []uuid.UUID) ([]models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Product
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProductRepo) Create(_ context.Context, p *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r *memProductRepo) UpdateFields(_ context.Context, id uuid.UUID, fields map[string]any) error {
	return nil
}

type memCartRepo struct {
	s  *memStore
	tx bool
}

func (r *memCartRepo) lock() func() {
	if r.tx {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *memCartRepo) Upsert(_ context.Context, convID int64, productID uuid.UUID, qty int32) error {
	defer r.lock()()
	if r.s.cart[convID] == nil {
		r.s.cart[convID] = map[uuid.UUID]int32{}
	}
	if _, ok := r.s.cart[convID][productID]; !ok {
		r.s.cartOrder[convID] = append(r.s.cartOrder[convID], productID)
	}
	r.s.cart[convID][productID] += qty
	return nil
}

func (r *memCartRepo) Get(_ context.Context, convID int64, productID uuid.UUID) (*models.CartItem, error) {
	defer r.lock()()
	qty, ok := r.s.cart[convID][productID]
	if !ok {
		return nil, nil
	}
	return &models.CartItem{ConversationID: convID, ProductID: productID, Quantity: qty}, nil
}

func (r *memCartRepo) UpdateQuantity(_ context.Context, convID int64, productID uuid.UUID, qty int32) (bool, error) {
	defer r.lock()()
	if _, ok := r.s.cart[convID][productID]; !ok {
		return false, nil
	}
	r.s.cart[convID][productID] = qty
	return true, nil
}

func (r *memCartRepo) Delete(_ context.Context, convID int64, productID uuid.UUID) (bool, error) {
	defer r.lock()()
	if _, ok := r.s.cart[convID][productID]; !ok {
		return false, nil
	}
	delete(r.s.cart[convID], productID)
	ids := r.s.cartOrder[convID]
	for i, id := range ids {
		if id == productID {
			r.s.cartOrder[convID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return true, nil
}

func (r *memCartRepo) ListLines(_ context.Context, convID int64) ([]repository.CartLine, error) {
	defer r.lock()()
	var lines []repository.CartLine
	for _, id := range r.s.cartOrder[convID] {
		qty, ok := r.s.cart[convID][id]
		if !ok {
			continue
		}
		p := r.s.products[id]
		lines = append(lines, repository.CartLine{
			ProductID:     id,
			ProductName:   p.Name,
			Quantity:      qty,
			UnitPrice:     p.EffectivePrice(),
			ImageURL:      p.ImageURL,
			ProductActive: p.IsActive,
		})
	}
	return lines, nil
}

func (r *memCartRepo) Clear(_ context.Context, convID int64) (int64, error) {
	defer r.lock()()
	n := int64(len(r.s.cart[convID]))
	delete(r.s.cart, convID)
	delete(r.s.cartOrder, convID)
	return n, nil
}

func (r *memCartRepo) Total(_ context.Context, convID int64) (int64, error) {
	defer r.lock()()
	var total int64
	for id, qty := range r.s.cart[convID] {
		p := r.s.products[id]
		total += int64(qty) * p.EffectivePrice()
	}
	return total, nil
}

func (r *memCartRepo) Count(_ context.Context, convID int64) (int64, error) {
	defer r.lock()()
	return int64(len(r.s.cart[convID])), nil
}

type memDialogueRepo struct {
	s  *memStore
	tx bool
}

func (r *memDialogueRepo) lock() func() {
	if r.tx {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *memDialogueRepo) Get(_ context.Context, convID int64) (*models.DialogueState, error) {
	defer r.lock()()
	st, ok := r.s.dialogues[convID]
	if !ok {
		return nil, nil
	}
	cp := st
	return &cp, nil
}

func (r *memDialogueRepo) Save(_ context.Context, st *models.DialogueState) error {
	defer r.lock()()
	r.s.dialogues[st.ConversationID] = *st
	return nil
}

func (r *memDialogueRepo) Reset(_ context.Context, convID int64) error {
	defer r.lock()()
	st := r.s.dialogues[convID]
	st.ConversationID = convID
	st.Step = models.StepBrowsing
	st.Name, st.Phone, st.Address, st.PaymentMethod = "", "", "", ""
	r.s.dialogues[convID] = st
	return nil
}

func (r *memDialogueRepo) SetLastMessageID(_ context.Context, convID int64, messageID int64) error {
	defer r.lock()()
	st := r.s.dialogues[convID]
	st.ConversationID = convID
	st.LastMessageID = messageID
	r.s.dialogues[convID] = st
	return nil
}

func (r *memDialogueRepo) ResetIfConfirmed(_ context.Context, convID int64) (bool, error) {
	defer r.lock()()
	st, ok := r.s.dialogues[convID]
	if !ok || st.Step != models.StepConfirmed {
		return false, nil
	}
	st.Step = models.StepBrowsing
	st.Name, st.Phone, st.Address, st.PaymentMethod = "", "", "", ""
	r.s.dialogues[convID] = st
	return true, nil
}

type memOrderRepo struct {
	s  *memStore
	tx bool
}

func (r *memOrderRepo) lock() func() {
	if r.tx {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *memOrderRepo) Create(_ context.Context, o *models.Order) error {
	defer r.lock()()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	r.s.orders = append(r.s.orders, *o)
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	defer r.lock()()
	for i := range r.s.orders {
		if r.s.orders[i].ID == id {
			cp := r.s.orders[i]
			cp.Items = append([]models.OrderItem(nil), r.s.items[id]...)
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memOrderRepo) ListByConversation(_ context.Context, convID int64, limit, offset int) ([]*models.Order, int64, error) {
	defer r.lock()()
	var out []*models.Order
	for i := range r.s.orders {
		if r.s.orders[i].ConversationID == convID {
			cp := r.s.orders[i]
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memOrderRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	defer r.lock()()
	for i := range r.s.orders {
		if r.s.orders[i].ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *memOrderRepo) WithTx(_ context.Context, fn func(txOrders repository.OrderRepo, txItems repository.OrderItemRepo, txCarts repository.CartRepo, txDialogues repository.DialogueRepo) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sn := r.s.snapshot()
	err := fn(
		&memOrderRepo{s: r.s, tx: true},
		&memOrderItemRepo{s: r.s, tx: true},
		&memCartRepo{s: r.s, tx: true},
		&memDialogueRepo{s: r.s, tx: true},
	)
	if err != nil {
		r.s.restore(sn)
	}
	return err
}

type memOrderItemRepo struct {
	s  *memStore
	tx bool
}

func (r *memOrderItemRepo) lock() func() {
	if r.tx {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *memOrderItemRepo) BulkCreate(_ context.Context, items []models.OrderItem) error {
	defer r.lock()()
	for _, it := range items {
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		r.s.items[it.OrderID] = append(r.s.items[it.OrderID], it)
	}
	return nil
}

func (r *memOrderItemRepo) GetByOrderID(_ context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	defer r.lock()()
	return append([]models.OrderItem(nil), r.s.items[orderID]...), nil
}

func (r *memOrderItemRepo) SumByOrder(_ context.Context, orderID uuid.UUID) (int64, error) {
	defer r.lock()()
	var total int64
	for _, it := range r.s.items[orderID] {
		total += it.LineTotal
	}
	return total, nil
}
