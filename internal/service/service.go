package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"atelier/backend/internal/cache"
	"atelier/backend/internal/domain"
	"atelier/backend/internal/pricing"
	"atelier/backend/internal/store"
	"atelier/backend/internal/syncer"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo       store.Repository
	sync       *syncer.Syncer
	summaries  cache.SummaryCache
	summaryTTL time.Duration
}

func New(repo store.Repository, sync *syncer.Syncer, summaries cache.SummaryCache, summaryTTL time.Duration) *Service {
	if summaries == nil {
		summaries = cache.NoopSummaryCache{}
	}
	if summaryTTL <= 0 {
		summaryTTL = 30 * time.Second
	}

	return &Service{
		repo:       repo,
		sync:       sync,
		summaries:  summaries,
		summaryTTL: summaryTTL,
	}
}

func (s *Service) accountID(ctx context.Context) (string, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.AccountID == "" {
		return "", fmt.Errorf("authentication required")
	}
	return actor.AccountID, nil
}

// changed schedules remote snapshot writes for the touched collections and
// drops the cached dashboard summary for the account.
func (s *Service) changed(ctx context.Context, accountID string, collections ...string) {
	for _, collection := range collections {
		s.sync.Enqueue(accountID, collection)
	}
	if err := s.summaries.Invalidate(ctx, summaryKey(accountID)); err != nil {
		log.Printf("[service] WARN: invalidate summary for %s: %v", accountID, err)
	}
}

func summaryKey(accountID string) string {
	return "summary:" + accountID
}

// HydrateAccount loads every collection of the account from the remote store
// into the canonical tables; it runs on sign-in and on explicit reload. A
// successful hydrate also clears a sticky sync block.
func (s *Service) HydrateAccount(ctx context.Context, accountID string) error {
	if s.sync == nil {
		return nil
	}
	return s.sync.Hydrate(ctx, accountID)
}

// SyncBlocked reports the account-wide halted-synchronization flag raised by a
// remote permission denial.
func (s *Service) SyncBlocked(accountID string) bool {
	if s.sync == nil {
		return false
	}
	return s.sync.Blocked(accountID)
}

// --- Materials ---

func (s *Service) ListMaterials(ctx context.Context) ([]domain.Material, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListMaterials(ctx, accountID)
}

func (s *Service) CreateMaterial(ctx context.Context, req domain.MaterialCreateRequest) (*domain.Material, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.QuantityPerPackage <= 0 || req.TotalValue < 0 {
		return nil, store.ErrInvalidInput
	}

	material := domain.Material{
		ID:                 uuid.NewString(),
		Name:               req.Name,
		Category:           req.Category,
		Unit:               req.Unit,
		QuantityPerPackage: req.QuantityPerPackage,
		TotalValue:         req.TotalValue,
		CostPerUnit:        pricing.MaterialUnitCost(req.TotalValue, req.QuantityPerPackage),
	}

	created, err := s.repo.PutMaterial(ctx, accountID, material)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, accountID, domain.CollectionMaterials)
	return created, nil
}

func (s *Service) UpdateMaterial(ctx context.Context, id string, req domain.MaterialUpdateRequest) (*domain.Material, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetMaterial(ctx, accountID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		existing.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		existing.Category = *req.Category
	}
	if req.Unit != nil {
		existing.Unit = *req.Unit
	}
	if req.QuantityPerPackage != nil {
		existing.QuantityPerPackage = *req.QuantityPerPackage
	}
	if req.TotalValue != nil {
		existing.TotalValue = *req.TotalValue
	}
	// CostPerUnit is never edited directly; recompute from the canonical pair.
	existing.CostPerUnit = pricing.MaterialUnitCost(existing.TotalValue, existing.QuantityPerPackage)

	updated, err := s.repo.PutMaterial(ctx, accountID, *existing)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, accountID, domain.CollectionMaterials)
	return updated, nil
}

// DeleteMaterial removes the catalog entry without touching pricing records
// that reference it; their usage lines keep the last computed cost.
func (s *Service) DeleteMaterial(ctx context.Context, id string) error {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteMaterial(ctx, accountID, id); err != nil {
		return err
	}
	s.changed(ctx, accountID, domain.CollectionMaterials)
	return nil
}

// --- Products ---

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx, accountID)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Stock < 0 || req.MinStock < 0 {
		return nil, store.ErrInvalidInput
	}
	if req.Type == "" {
		req.Type = domain.ProductTypePhysical
	}

	product := domain.Product{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Category:       strings.TrimSpace(req.Category),
		Description:    req.Description,
		Type:           req.Type,
		CalculatedCost: req.CalculatedCost,
		SuggestedPrice: req.SuggestedPrice,
		Stock:          req.Stock,
		MinStock:       req.MinStock,
	}

	created, err := s.repo.PutProduct(ctx, accountID, product)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, accountID, domain.CollectionProducts)
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetProduct(ctx, accountID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		existing.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		existing.Category = strings.TrimSpace(*req.Category)
	}
	if req.Description != nil {
		existing.Description = *req.Description
	}
	if req.Type != nil {
		existing.Type = *req.Type
	}
	if req.CalculatedCost != nil {
		existing.CalculatedCost = *req.CalculatedCost
	}
	if req.SuggestedPrice != nil {
		existing.SuggestedPrice = *req.SuggestedPrice
	}
	if req.MinStock != nil {
		existing.MinStock = *req.MinStock
	}

	updated, err := s.repo.PutProduct(ctx, accountID, *existing)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, accountID, domain.CollectionProducts)
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return err
	}
	// No referential guard: a saved pricing for this product stays behind as
	// an orphan, same as documents that reference the product.
	if err := s.repo.DeleteProduct(ctx, accountID, id); err != nil {
		return err
	}
	s.changed(ctx, accountID, domain.CollectionProducts)
	return nil
}

// StockAdjustResult reports whether a stock movement was applied; invalid
// requests (no product selected, non-positive amount) are silent no-ops.
type StockAdjustResult struct {
	Applied bool            `json:"applied"`
	Product *domain.Product `json:"product,omitempty"`
}

func (s *Service) AdjustStock(ctx context.Context, req domain.StockAdjustRequest) (StockAdjustResult, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return StockAdjustResult{}, err
	}

	if req.ProductID == "" || req.Amount <= 0 {
		return StockAdjustResult{Applied: false}, nil
	}
	if req.Direction != domain.StockIn && req.Direction != domain.StockOut {
		return StockAdjustResult{}, store.ErrInvalidInput
	}

	product, err := s.repo.AdjustStock(ctx, accountID, req.ProductID, req.Amount, req.Direction)
	if err != nil {
		return StockAdjustResult{}, err
	}
	s.changed(ctx, accountID, domain.CollectionProducts)
	return StockAdjustResult{Applied: true, Product: product}, nil
}

// --- Clients ---

func (s *Service) ListClients(ctx context.Context) ([]domain.Client, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListClients(ctx, accountID)
}

func (s *Service) CreateClient(ctx context.Context, req domain.ClientCreateRequest) (*domain.Client, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, store.ErrInvalidInput
	}

	client := domain.Client{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Document: strings.TrimSpace(req.Document),
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.TrimSpace(req.Email),
		Notes:    req.Notes,
	}

	created, err := s.repo.PutClient(ctx, accountID, client)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, accountID, domain.CollectionClients)
	return created, nil
}

func (s *Service) UpdateClient(ctx context.Context, id string, req domain.ClientUpdateRequest) (*domain.Client, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetClient(ctx, accountID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		existing.Name = strings.TrimSpace(*req.Name)
	}
	if req.Document != nil {
		existing.Document = strings.TrimSpace(*req.Document)
	}
	if req.Phone != nil {
		existing.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		existing.Email = strings.TrimSpace(*req.Email)
	}
	if req.Notes != nil {
		existing.Notes = *req.Notes
	}

	updated, err := s.repo.PutClient(ctx, accountID, *existing)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, accountID, domain.CollectionClients)
	return updated, nil
}

// DeleteClient removes the record unconditionally; budgets and sales keep
// their denormalized client name.
func (s *Service) DeleteClient(ctx context.Context, id string) error {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteClient(ctx, accountID, id); err != nil {
		return err
	}
	s.changed(ctx, accountID, domain.CollectionClients)
	return nil
}

// --- Pricing ---

func (s *Service) ListPricings(ctx context.Context) ([]domain.PricingDetail, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPricings(ctx, accountID)
}

func (s *Service) GetPricingForProduct(ctx context.Context, productID string) (*domain.PricingDetail, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetPricingByProduct(ctx, accountID, productID)
}

func (s *Service) materialCatalog(ctx context.Context, accountID string) (pricing.CatalogMap, error) {
	materials, err := s.repo.ListMaterials(ctx, accountID)
	if err != nil {
		return nil, err
	}
	catalog := make(pricing.CatalogMap, len(materials))
	for _, m := range materials {
		catalog[m.ID] = m.CostPerUnit
	}
	return catalog, nil
}

// PreviewPricing recomputes the breakdown for an in-progress pricing form
// without persisting anything. Usage lines whose material still exists are
// refreshed against the catalog; lines pointing at deleted materials keep
// their stored cost.
func (s *Service) PreviewPricing(ctx context.Context, input domain.PricingDetail) (pricing.Breakdown, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return pricing.Breakdown{}, err
	}

	catalog, err := s.materialCatalog(ctx, accountID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	input.Materials = pricing.ResolveMaterialLines(input.Materials, catalog)
	return pricing.Compute(input), nil
}

// SavePricing upserts the breakdown for a product (at most one per product)
// and writes the computed totals back into the product record. A missing
// product selection is a silent no-op.
func (s *Service) SavePricing(ctx context.Context, input domain.PricingDetail) (*domain.PricingDetail, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	if input.ProductID == "" {
		return nil, nil
	}

	catalog, err := s.materialCatalog(ctx, accountID)
	if err != nil {
		return nil, err
	}
	input.Materials = pricing.ResolveMaterialLines(input.Materials, catalog)

	breakdown := pricing.Compute(input)
	input.TotalCost = breakdown.TotalCost
	input.SuggestedPrice = breakdown.SuggestedPrice
	input.LaborHourlyRate = pricing.EffectiveHourlyRate(input)

	if existing, err := s.repo.GetPricingByProduct(ctx, accountID, input.ProductID); err == nil {
		input.ID = existing.ID
	} else if input.ID == "" {
		input.ID = uuid.NewString()
	}

	saved, err := s.repo.UpsertPricing(ctx, accountID, input)
	if err != nil {
		return nil, err
	}

	touched := []string{domain.CollectionPricings}
	if product, err := s.repo.GetProduct(ctx, accountID, input.ProductID); err == nil {
		product.CalculatedCost = breakdown.TotalCost
		product.SuggestedPrice = breakdown.SuggestedPrice
		if _, err := s.repo.PutProduct(ctx, accountID, *product); err != nil {
			return nil, err
		}
		touched = append(touched, domain.CollectionProducts)
	}

	s.changed(ctx, accountID, touched...)
	return saved, nil
}

// DeletePricing removes a saved breakdown. The product keeps whatever
// CalculatedCost/SuggestedPrice the last save wrote to it.
func (s *Service) DeletePricing(ctx context.Context, id string) error {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePricing(ctx, accountID, id); err != nil {
		return err
	}
	s.changed(ctx, accountID, domain.CollectionPricings)
	return nil
}

// --- Budgets ---

// normalizeItems recomputes every line total from its quantity and unit
// price; the parent document total is the sum of line totals.
func normalizeItems(items []domain.BudgetItem) ([]domain.BudgetItem, float64) {
	normalized := make([]domain.BudgetItem, len(items))
	total := 0.0
	for i, item := range items {
		item.TotalPrice = item.Quantity * item.UnitPrice
		normalized[i] = item
		total += item.TotalPrice
	}
	return normalized, total
}

// clientName resolves the denormalized snapshot name, absorbing a deleted or
// unknown client into a neutral default.
func (s *Service) clientName(ctx context.Context, accountID string, clientID string) string {
	client, err := s.repo.GetClient(ctx, accountID, clientID)
	if err != nil {
		return "Unknown client"
	}
	return client.Name
}

// ResolveDocumentItem builds a document line for a product selection: name
// and unit price come from the catalog, the total from the quantity. A
// deleted product resolves to a zero-priced line rather than an error.
func (s *Service) ResolveDocumentItem(ctx context.Context, productID string, quantity float64) (domain.BudgetItem, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return domain.BudgetItem{}, err
	}
	if quantity <= 0 {
		quantity = 1
	}

	item := domain.BudgetItem{ProductID: productID, Name: "Unknown product", Quantity: quantity}
	if product, err := s.repo.GetProduct(ctx, accountID, productID); err == nil {
		item.Name = product.Name
		item.UnitPrice = product.SuggestedPrice
	}
	item.TotalPrice = item.Quantity * item.UnitPrice
	return item, nil
}

func (s *Service) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListBudgets(ctx, accountID)
}

// CreateBudget opens a new budget. A missing client selection or empty item
// list declines the save silently: no record is written and no error raised.
func (s *Service) CreateBudget(ctx context.Context, req domain.BudgetSaveRequest) (*domain.Budget, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	if req.ClientID == "" || len(req.Items) == 0 {
		return nil, nil
	}

	seq, err := s.repo.NextSequence(ctx, accountID, domain.SequenceBudget)
	if err != nil {
		return nil, err
	}

	items, total := normalizeItems(req.Items)
	budget := domain.Budget{
		ID:            uuid.NewString(),
		Number:        fmt.Sprintf("ORC-%03d", seq),
		ClientID:      req.ClientID,
		ClientName:    s.clientName(ctx, accountID, req.ClientID),
		Items:         items,
		TotalValue:    total,
		Status:        domain.BudgetStatusOpen,
		Date:          time.Now().UTC(),
		InternalNotes: req.InternalNotes,
	}

	created, err := s.repo.PutBudget(ctx, accountID, budget)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, accountID, domain.CollectionBudgets, domain.CollectionCounters)
	return created, nil
}

func (s *Service) UpdateBudget(ctx context.Context, id string, req domain.BudgetSaveRequest) (*domain.Budget, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	if req.ClientID == "" || len(req.Items) == 0 {
		return nil, nil
	}

	existing, err := s.repo.GetBudget(ctx, accountID, id)
	if err != nil {
		return nil, err
	}

	items, total := normalizeItems(req.Items)
	existing.ClientID = req.ClientID
	existing.ClientName = s.clientName(ctx, accountID, req.ClientID)
	existing.Items = items
	existing.TotalValue = total
	existing.InternalNotes = req.InternalNotes
	if req.Status != "" {
		existing.Status = req.Status
	}

	updated, err := s.repo.PutBudget(ctx, accountID, *existing)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, accountID, domain.CollectionBudgets)
	return updated, nil
}

func (s *Service) DeleteBudget(ctx context.Context, id string) error {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteBudget(ctx, accountID, id); err != nil {
		return err
	}
	s.changed(ctx, accountID, domain.CollectionBudgets)
	return nil
}

// DuplicateBudget clones a budget into a fresh OPEN one with its own id,
// number and date.
func (s *Service) DuplicateBudget(ctx context.Context, id string) (*domain.Budget, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	source, err := s.repo.GetBudget(ctx, accountID, id)
	if err != nil {
		return nil, err
	}

	seq, err := s.repo.NextSequence(ctx, accountID, domain.SequenceBudget)
	if err != nil {
		return nil, err
	}

	duplicate := *source
	duplicate.ID = uuid.NewString()
	duplicate.Number = fmt.Sprintf("ORC-%03d", seq)
	duplicate.Status = domain.BudgetStatusOpen
	duplicate.Date = time.Now().UTC()
	duplicate.Items = append([]domain.BudgetItem(nil), source.Items...)

	created, err := s.repo.PutBudget(ctx, accountID, duplicate)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, accountID, domain.CollectionBudgets, domain.CollectionCounters)
	return created, nil
}

// ConvertBudgetToSale turns a budget into a definitive sale: a new sale in
// its own number series, defaulted to PIX/PAID, items deep-copied, and the
// source budget flipped to APPROVED. Both effects are applied by a single
// repository command. Converting the same budget again produces another
// independent sale.
func (s *Service) ConvertBudgetToSale(ctx context.Context, budgetID string) (*domain.Sale, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	budget, err := s.repo.GetBudget(ctx, accountID, budgetID)
	if err != nil {
		return nil, err
	}

	seq, err := s.repo.NextSequence(ctx, accountID, domain.SequenceSale)
	if err != nil {
		return nil, err
	}

	sale := domain.Sale{
		ID:            uuid.NewString(),
		Number:        fmt.Sprintf("VEN-%03d", seq),
		ClientID:      budget.ClientID,
		ClientName:    budget.ClientName,
		BudgetID:      budget.ID,
		Items:         append([]domain.BudgetItem(nil), budget.Items...),
		TotalValue:    budget.TotalValue,
		PaymentMethod: domain.PaymentMethodPix,
		Status:        domain.SaleStatusPaid,
		Date:          time.Now().UTC(),
	}

	created, err := s.repo.ConvertBudgetToSale(ctx, accountID, store.Conversion{BudgetID: budget.ID, Sale: sale})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, accountID, domain.CollectionBudgets, domain.CollectionSales, domain.CollectionCounters)
	return created, nil
}

// --- Sales ---

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSales(ctx, accountID)
}

func (s *Service) CreateSale(ctx context.Context, req domain.SaleSaveRequest) (*domain.Sale, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	if req.ClientID == "" || len(req.Items) == 0 {
		return nil, nil
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentMethodPix
	}
	if req.Status == "" {
		req.Status = domain.SaleStatusPaid
	}

	seq, err := s.repo.NextSequence(ctx, accountID, domain.SequenceSale)
	if err != nil {
		return nil, err
	}

	items, total := normalizeItems(req.Items)
	sale := domain.Sale{
		ID:            uuid.NewString(),
		Number:        fmt.Sprintf("VEN-%03d", seq),
		ClientID:      req.ClientID,
		ClientName:    s.clientName(ctx, accountID, req.ClientID),
		Items:         items,
		TotalValue:    total,
		PaymentMethod: req.PaymentMethod,
		Status:        req.Status,
		Date:          time.Now().UTC(),
	}
	if req.PixCode != nil {
		sale.PixCode = *req.PixCode
	}

	created, err := s.repo.PutSale(ctx, accountID, sale)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, accountID, domain.CollectionSales, domain.CollectionCounters)
	return created, nil
}

func (s *Service) UpdateSale(ctx context.Context, id string, req domain.SaleSaveRequest) (*domain.Sale, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return nil, err
	}

	if req.ClientID == "" || len(req.Items) == 0 {
		return nil, nil
	}

	existing, err := s.repo.GetSale(ctx, accountID, id)
	if err != nil {
		return nil, err
	}

	items, total := normalizeItems(req.Items)
	existing.ClientID = req.ClientID
	existing.ClientName = s.clientName(ctx, accountID, req.ClientID)
	existing.Items = items
	existing.TotalValue = total
	if req.PaymentMethod != "" {
		existing.PaymentMethod = req.PaymentMethod
	}
	if req.Status != "" {
		existing.Status = req.Status
	}
	if req.PixCode != nil {
		existing.PixCode = *req.PixCode
	}

	updated, err := s.repo.PutSale(ctx, accountID, *existing)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, accountID, domain.CollectionSales)
	return updated, nil
}

func (s *Service) DeleteSale(ctx context.Context, id string) error {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSale(ctx, accountID, id); err != nil {
		return err
	}
	s.changed(ctx, accountID, domain.CollectionSales)
	return nil
}

// --- Settings ---

func (s *Service) GetSettings(ctx context.Context) (domain.StoreSettings, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return domain.StoreSettings{}, err
	}
	return s.repo.GetSettings(ctx, accountID)
}

func (s *Service) UpdateSettings(ctx context.Context, settings domain.StoreSettings) (domain.StoreSettings, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return domain.StoreSettings{}, err
	}

	if settings.Theme == "" {
		settings.Theme = domain.ThemeClassic
	}
	if err := s.repo.PutSettings(ctx, accountID, settings); err != nil {
		return domain.StoreSettings{}, err
	}
	s.changed(ctx, accountID, domain.CollectionSettings)
	return settings, nil
}

func (s *Service) UpdatePixKey(ctx context.Context, req domain.PixKeyUpdateRequest) (domain.StoreSettings, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return domain.StoreSettings{}, err
	}

	settings, err := s.repo.GetSettings(ctx, accountID)
	if err != nil {
		return domain.StoreSettings{}, err
	}
	settings.PixKey = strings.TrimSpace(req.PixKey)
	if err := s.repo.PutSettings(ctx, accountID, settings); err != nil {
		return domain.StoreSettings{}, err
	}
	s.changed(ctx, accountID, domain.CollectionSettings)
	return settings, nil
}

// --- Dashboard ---

// DashboardSummary aggregates the home-screen counters. The result is cached
// per account with a short TTL and invalidated on every mutation.
func (s *Service) DashboardSummary(ctx context.Context) (domain.DashboardSummary, error) {
	accountID, err := s.accountID(ctx)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	if cached, found, err := s.summaries.Get(ctx, summaryKey(accountID)); err == nil && found {
		return *cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: summary cache read for %s: %v", accountID, err)
	}

	products, err := s.repo.ListProducts(ctx, accountID)
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	clients, err := s.repo.ListClients(ctx, accountID)
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	budgets, err := s.repo.ListBudgets(ctx, accountID)
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	sales, err := s.repo.ListSales(ctx, accountID)
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	pricings, err := s.repo.ListPricings(ctx, accountID)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	summary := domain.DashboardSummary{
		Products:      len(products),
		Clients:       len(clients),
		SavedPricings: len(pricings),
	}
	for _, p := range products {
		if p.Stock <= p.MinStock {
			summary.LowStock++
		}
	}
	for _, b := range budgets {
		if b.Status == domain.BudgetStatusOpen {
			summary.OpenBudgets++
		}
	}
	for _, sale := range sales {
		summary.TotalSales += sale.TotalValue
		if sale.Status == domain.SaleStatusPending {
			summary.PendingSales++
		}
	}

	if err := s.summaries.Set(ctx, summaryKey(accountID), &summary, s.summaryTTL); err != nil {
		log.Printf("[service] WARN: summary cache write for %s: %v", accountID, err)
	}
	return summary, nil
}

// IsNotFound reports whether err is the repository's missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
