package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"atelier/backend/internal/domain"
	"atelier/backend/internal/store"
)

// accountState holds every collection owned by one account. Collections are
// keyed tables; budgets and sales are listed newest-first.
type accountState struct {
	materials map[string]domain.Material
	products  map[string]domain.Product
	clients   map[string]domain.Client
	pricings  map[string]domain.PricingDetail
	budgets   map[string]domain.Budget
	sales     map[string]domain.Sale
	settings  *domain.StoreSettings
	counters  map[string]int
}

func newAccountState() *accountState {
	return &accountState{
		materials: make(map[string]domain.Material),
		products:  make(map[string]domain.Product),
		clients:   make(map[string]domain.Client),
		pricings:  make(map[string]domain.PricingDetail),
		budgets:   make(map[string]domain.Budget),
		sales:     make(map[string]domain.Sale),
		counters:  make(map[string]int),
	}
}

type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*accountState
	usersByEmail map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		accounts:     make(map[string]*accountState),
		usersByEmail: make(map[string]domain.UserAccount),
	}
}

// NewSeeded builds a store with a demo account for local development. The demo
// password comes from SEED_DEMO_PASSWORD; a hardcoded dev default is used with
// a warning when unset.
func NewSeeded() *Store {
	s := New()

	password := os.Getenv("SEED_DEMO_PASSWORD")
	if password == "" {
		password = "atelier123"
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_DEMO_PASSWORD to override.")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("[memory-store] failed to hash seed password: %v", err)
	}

	accountID := "demo-atelier"
	s.usersByEmail["demo@atelier.local"] = domain.UserAccount{
		AccountID: accountID,
		Email:     "demo@atelier.local",
		Name:      "Atelier Demo",
		Password:  string(hash),
		CreatedAt: time.Now().UTC(),
	}

	state := newAccountState()
	for _, m := range []domain.Material{
		{ID: uuid.NewString(), Name: "Papel Fotográfico A4", Category: domain.MaterialCategoryPaper, Unit: domain.UnitTypePackage, QuantityPerPackage: 50, TotalValue: 45, CostPerUnit: 0.9},
		{ID: uuid.NewString(), Name: "Fita de Cetim 10mm", Category: domain.MaterialCategoryFinish, Unit: domain.UnitTypeMeter, QuantityPerPackage: 10, TotalValue: 8, CostPerUnit: 0.8},
		{ID: uuid.NewString(), Name: "Caixa Kraft P", Category: domain.MaterialCategoryPackaging, Unit: domain.UnitTypeUnit, QuantityPerPackage: 20, TotalValue: 30, CostPerUnit: 1.5},
	} {
		state.materials[m.ID] = m
	}
	for _, p := range []domain.Product{
		{ID: uuid.NewString(), Name: "Caderno Artesanal A5", Category: "papelaria", Type: domain.ProductTypePhysical, SuggestedPrice: 38, Stock: 12, MinStock: 3},
		{ID: uuid.NewString(), Name: "Convite Personalizado", Category: "convites", Type: domain.ProductTypePhysical, SuggestedPrice: 6.5, Stock: 80, MinStock: 20},
		{ID: uuid.NewString(), Name: "Arte Digital para Festa", Category: "digital", Type: domain.ProductTypeDigital, SuggestedPrice: 25},
	} {
		state.products[p.ID] = p
	}
	client := domain.Client{ID: uuid.NewString(), Name: "Cliente Exemplo", Phone: "11 99999-0000"}
	state.clients[client.ID] = client
	s.accounts[accountID] = state

	return s
}

// state returns the collections of an account, creating them on first touch.
// Callers must hold the write lock.
func (s *Store) state(accountID string) *accountState {
	st, ok := s.accounts[accountID]
	if !ok {
		st = newAccountState()
		s.accounts[accountID] = st
	}
	return st
}

func (s *Store) readState(accountID string) (*accountState, bool) {
	st, ok := s.accounts[accountID]
	return st, ok
}

func (s *Store) ListMaterials(_ context.Context, accountID string) ([]domain.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.readState(accountID)
	if !ok {
		return []domain.Material{}, nil
	}
	materials := make([]domain.Material, 0, len(st.materials))
	for _, m := range st.materials {
		materials = append(materials, m)
	}
	slices.SortFunc(materials, func(a, b domain.Material) int {
		return strings.Compare(a.Name, b.Name)
	})
	return materials, nil
}

func (s *Store) GetMaterial(_ context.Context, accountID string, id string) (*domain.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.readState(accountID)
	if !ok {
		return nil, store.ErrNotFound
	}
	material, exists := st.materials[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := material
	return &copied, nil
}

func (s *Store) PutMaterial(_ context.Context, accountID string, material domain.Material) (*domain.Material, error) {
	if material.ID == "" || material.Name == "" || material.QuantityPerPackage <= 0 || material.TotalValue < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	st.materials[material.ID] = material
	saved := material
	return &saved, nil
}

func (s *Store) DeleteMaterial(_ context.Context, accountID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	delete(st.materials, id)
	return nil
}

func (s *Store) ListProducts(_ context.Context, accountID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.readState(accountID)
	if !ok {
		return []domain.Product{}, nil
	}
	products := make([]domain.Product, 0, len(st.products))
	for _, p := range st.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, accountID string, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.readState(accountID)
	if !ok {
		return nil, store.ErrNotFound
	}
	product, exists := st.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := product
	return &copied, nil
}

func (s *Store) PutProduct(_ context.Context, accountID string, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if product.Stock < 0 || product.MinStock < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	st.products[product.ID] = product
	saved := product
	return &saved, nil
}

func (s *Store) DeleteProduct(_ context.Context, accountID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	delete(st.products, id)
	return nil
}

// AdjustStock applies one signed inventory movement. OUT clamps at zero; the
// stock level never goes negative.
func (s *Store) AdjustStock(_ context.Context, accountID string, productID string, amount int, direction domain.StockDirection) (*domain.Product, error) {
	if productID == "" || amount <= 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	product, exists := st.products[productID]
	if !exists {
		return nil, store.ErrNotFound
	}

	switch direction {
	case domain.StockIn:
		product.Stock += amount
	case domain.StockOut:
		product.Stock -= amount
		if product.Stock < 0 {
			product.Stock = 0
		}
	default:
		return nil, store.ErrInvalidInput
	}

	st.products[productID] = product
	updated := product
	return &updated, nil
}

func (s *Store) ListClients(_ context.Context, accountID string) ([]domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.readState(accountID)
	if !ok {
		return []domain.Client{}, nil
	}
	clients := make([]domain.Client, 0, len(st.clients))
	for _, c := range st.clients {
		clients = append(clients, c)
	}
	slices.SortFunc(clients, func(a, b domain.Client) int {
		return strings.Compare(a.Name, b.Name)
	})
	return clients, nil
}

func (s *Store) GetClient(_ context.Context, accountID string, id string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.readState(accountID)
	if !ok {
		return nil, store.ErrNotFound
	}
	client, exists := st.clients[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := client
	return &copied, nil
}

func (s *Store) PutClient(_ context.Context, accountID string, client domain.Client) (*domain.Client, error) {
	if client.ID == "" || client.Name == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	st.clients[client.ID] = client
	saved := client
	return &saved, nil
}

func (s *Store) DeleteClient(_ context.Context, accountID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	delete(st.clients, id)
	return nil
}

func (s *Store) ListPricings(_ context.Context, accountID string) ([]domain.PricingDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.readState(accountID)
	if !ok {
		return []domain.PricingDetail{}, nil
	}
	pricings := make([]domain.PricingDetail, 0, len(st.pricings))
	for _, p := range st.pricings {
		pricings = append(pricings, clonePricing(p))
	}
	slices.SortFunc(pricings, func(a, b domain.PricingDetail) int {
		return strings.Compare(a.ProductID, b.ProductID)
	})
	return pricings, nil
}

func (s *Store) GetPricingByProduct(_ context.Context, accountID string, productID string) (*domain.PricingDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.readState(accountID)
	if !ok {
		return nil, store.ErrNotFound
	}
	for _, p := range st.pricings {
		if p.ProductID == productID {
			copied := clonePricing(p)
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

// UpsertPricing keeps at most one breakdown per product: a save replaces any
// previous record for the same product id.
func (s *Store) UpsertPricing(_ context.Context, accountID string, pricing domain.PricingDetail) (*domain.PricingDetail, error) {
	if pricing.ID == "" || pricing.ProductID == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	for id, existing := range st.pricings {
		if existing.ProductID == pricing.ProductID && id != pricing.ID {
			delete(st.pricings, id)
		}
	}
	st.pricings[pricing.ID] = clonePricing(pricing)
	saved := clonePricing(pricing)
	return &saved, nil
}

func (s *Store) DeletePricing(_ context.Context, accountID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	delete(st.pricings, id)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, accountID string) ([]domain.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.readState(accountID)
	if !ok {
		return []domain.Budget{}, nil
	}
	budgets := make([]domain.Budget, 0, len(st.budgets))
	for _, b := range st.budgets {
		budgets = append(budgets, cloneBudget(b))
	}
	sortNewestFirst(budgets, func(b domain.Budget) (time.Time, string) { return b.Date, b.Number })
	return budgets, nil
}

func (s *Store) GetBudget(_ context.Context, accountID string, id string) (*domain.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.readState(accountID)
	if !ok {
		return nil, store.ErrNotFound
	}
	budget, exists := st.budgets[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := cloneBudget(budget)
	return &copied, nil
}

func (s *Store) PutBudget(_ context.Context, accountID string, budget domain.Budget) (*domain.Budget, error) {
	if budget.ID == "" || budget.ClientID == "" || len(budget.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	st.budgets[budget.ID] = cloneBudget(budget)
	saved := cloneBudget(budget)
	return &saved, nil
}

func (s *Store) DeleteBudget(_ context.Context, accountID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	delete(st.budgets, id)
	return nil
}

// ConvertBudgetToSale applies the two halves of the conversion under one lock:
// the sale is inserted and the source budget flips to APPROVED, or neither
// happens. There is deliberately no guard against converting the same budget
// again; each run yields an independent sale.
func (s *Store) ConvertBudgetToSale(_ context.Context, accountID string, cmd store.Conversion) (*domain.Sale, error) {
	if cmd.BudgetID == "" || cmd.Sale.ID == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	budget, exists := st.budgets[cmd.BudgetID]
	if !exists {
		return nil, store.ErrNotFound
	}

	st.sales[cmd.Sale.ID] = cloneSale(cmd.Sale)
	budget.Status = domain.BudgetStatusApproved
	st.budgets[cmd.BudgetID] = budget

	created := cloneSale(cmd.Sale)
	return &created, nil
}

func (s *Store) ListSales(_ context.Context, accountID string) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.readState(accountID)
	if !ok {
		return []domain.Sale{}, nil
	}
	sales := make([]domain.Sale, 0, len(st.sales))
	for _, sale := range st.sales {
		sales = append(sales, cloneSale(sale))
	}
	sortNewestFirst(sales, func(sale domain.Sale) (time.Time, string) { return sale.Date, sale.Number })
	return sales, nil
}

func (s *Store) GetSale(_ context.Context, accountID string, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.readState(accountID)
	if !ok {
		return nil, store.ErrNotFound
	}
	sale, exists := st.sales[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := cloneSale(sale)
	return &copied, nil
}

func (s *Store) PutSale(_ context.Context, accountID string, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" || sale.ClientID == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	st.sales[sale.ID] = cloneSale(sale)
	saved := cloneSale(sale)
	return &saved, nil
}

func (s *Store) DeleteSale(_ context.Context, accountID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	delete(st.sales, id)
	return nil
}

func (s *Store) GetSettings(_ context.Context, accountID string) (domain.StoreSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.readState(accountID)
	if !ok || st.settings == nil {
		return store.DefaultSettings(), nil
	}
	return *st.settings, nil
}

func (s *Store) PutSettings(_ context.Context, accountID string, settings domain.StoreSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	st.settings = &settings
	return nil
}

func (s *Store) NextSequence(_ context.Context, accountID string, series string) (int, error) {
	if series == "" {
		return 0, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	st.counters[series]++
	return st.counters[series], nil
}

// collectionSnapshot is the wire form exchanged with the remote document
// store: one JSON document per (account, collection).
type collectionSnapshot struct {
	Items json.RawMessage `json:"items"`
}

func (s *Store) ExportCollection(ctx context.Context, accountID string, collection string) ([]byte, error) {
	switch collection {
	case domain.CollectionSettings:
		settings, err := s.GetSettings(ctx, accountID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(settings)
	case domain.CollectionCounters:
		s.mu.RLock()
		defer s.mu.RUnlock()
		st, ok := s.readState(accountID)
		if !ok {
			return json.Marshal(map[string]int{})
		}
		return json.Marshal(st.counters)
	case domain.CollectionMaterials:
		return marshalItems(s.ListMaterials(ctx, accountID))
	case domain.CollectionProducts:
		return marshalItems(s.ListProducts(ctx, accountID))
	case domain.CollectionClients:
		return marshalItems(s.ListClients(ctx, accountID))
	case domain.CollectionPricings:
		return marshalItems(s.ListPricings(ctx, accountID))
	case domain.CollectionBudgets:
		return marshalItems(s.ListBudgets(ctx, accountID))
	case domain.CollectionSales:
		return marshalItems(s.ListSales(ctx, accountID))
	default:
		return nil, fmt.Errorf("%w: unknown collection %q", store.ErrInvalidInput, collection)
	}
}

// ImportCollection replaces a whole in-memory collection with the decoded
// snapshot. Used to hydrate an account from the remote store after sign-in.
func (s *Store) ImportCollection(_ context.Context, accountID string, collection string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(accountID)
	switch collection {
	case domain.CollectionSettings:
		var settings domain.StoreSettings
		if err := json.Unmarshal(payload, &settings); err != nil {
			return err
		}
		st.settings = &settings
	case domain.CollectionCounters:
		counters := make(map[string]int)
		if err := json.Unmarshal(payload, &counters); err != nil {
			return err
		}
		st.counters = counters
	case domain.CollectionMaterials:
		var items []domain.Material
		if err := unmarshalItems(payload, &items); err != nil {
			return err
		}
		st.materials = make(map[string]domain.Material, len(items))
		for _, m := range items {
			st.materials[m.ID] = m
		}
	case domain.CollectionProducts:
		var items []domain.Product
		if err := unmarshalItems(payload, &items); err != nil {
			return err
		}
		st.products = make(map[string]domain.Product, len(items))
		for _, p := range items {
			st.products[p.ID] = p
		}
	case domain.CollectionClients:
		var items []domain.Client
		if err := unmarshalItems(payload, &items); err != nil {
			return err
		}
		st.clients = make(map[string]domain.Client, len(items))
		for _, c := range items {
			st.clients[c.ID] = c
		}
	case domain.CollectionPricings:
		var items []domain.PricingDetail
		if err := unmarshalItems(payload, &items); err != nil {
			return err
		}
		st.pricings = make(map[string]domain.PricingDetail, len(items))
		for _, p := range items {
			st.pricings[p.ID] = p
		}
	case domain.CollectionBudgets:
		var items []domain.Budget
		if err := unmarshalItems(payload, &items); err != nil {
			return err
		}
		st.budgets = make(map[string]domain.Budget, len(items))
		for _, b := range items {
			st.budgets[b.ID] = b
		}
	case domain.CollectionSales:
		var items []domain.Sale
		if err := unmarshalItems(payload, &items); err != nil {
			return err
		}
		st.sales = make(map[string]domain.Sale, len(items))
		for _, sale := range items {
			st.sales[sale.ID] = sale
		}
	default:
		return fmt.Errorf("%w: unknown collection %q", store.ErrInvalidInput, collection)
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if user.AccountID == "" || user.Email == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[user.Email]; exists {
		return store.ErrDuplicateAccount
	}
	s.usersByEmail[user.Email] = user
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByEmail[email]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := user
	return &copied, nil
}

func marshalItems[T any](items []T, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return json.Marshal(collectionSnapshot{Items: mustRaw(items)})
}

func mustRaw[T any](items []T) json.RawMessage {
	raw, err := json.Marshal(items)
	if err != nil {
		// Domain structs only contain marshalable fields.
		return json.RawMessage("[]")
	}
	return raw
}

func unmarshalItems[T any](payload []byte, dest *[]T) error {
	var snapshot collectionSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return err
	}
	if len(snapshot.Items) == 0 {
		*dest = nil
		return nil
	}
	return json.Unmarshal(snapshot.Items, dest)
}

func sortNewestFirst[T any](items []T, key func(T) (time.Time, string)) {
	slices.SortFunc(items, func(a, b T) int {
		dateA, numberA := key(a)
		dateB, numberB := key(b)
		if dateA.Equal(dateB) {
			return strings.Compare(numberB, numberA)
		}
		if dateA.After(dateB) {
			return -1
		}
		return 1
	})
}

func cloneBudget(b domain.Budget) domain.Budget {
	b.Items = slices.Clone(b.Items)
	return b
}

func cloneSale(s domain.Sale) domain.Sale {
	s.Items = slices.Clone(s.Items)
	return s
}

func clonePricing(p domain.PricingDetail) domain.PricingDetail {
	p.Materials = slices.Clone(p.Materials)
	p.ExtraCosts = slices.Clone(p.ExtraCosts)
	return p
}
