package service

import (
	"context"
	"math"
	"testing"
	"time"

	"atelier/backend/internal/domain"
	"atelier/backend/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, context.Context) {
	t.Helper()

	repo := memory.New()
	svc := New(repo, nil, nil, time.Second)
	ctx := WithActor(context.Background(), domain.Actor{AccountID: "acct-test", Email: "owner@example.com"})
	return svc, ctx
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMaterialCostPerUnitIsDerived(t *testing.T) {
	svc, ctx := newTestService(t)

	material, err := svc.CreateMaterial(ctx, domain.MaterialCreateRequest{
		Name:               "Papel 180g",
		Category:           domain.MaterialCategoryPaper,
		Unit:               domain.UnitTypeUnit,
		QuantityPerPackage: 50,
		TotalValue:         25,
	})
	if err != nil {
		t.Fatalf("create material: %v", err)
	}
	if !almostEqual(material.CostPerUnit, 0.5) {
		t.Fatalf("CostPerUnit = %v, want 0.5", material.CostPerUnit)
	}

	newTotal := 30.0
	updated, err := svc.UpdateMaterial(ctx, material.ID, domain.MaterialUpdateRequest{TotalValue: &newTotal})
	if err != nil {
		t.Fatalf("update material: %v", err)
	}
	if !almostEqual(updated.CostPerUnit, 0.6) {
		t.Fatalf("CostPerUnit after update = %v, want 0.6", updated.CostPerUnit)
	}

	zero := 0.0
	updated, err = svc.UpdateMaterial(ctx, material.ID, domain.MaterialUpdateRequest{QuantityPerPackage: &zero})
	if err != nil {
		t.Fatalf("update material: %v", err)
	}
	if updated.CostPerUnit != 0 {
		t.Fatalf("CostPerUnit with zero package quantity = %v, want 0", updated.CostPerUnit)
	}
}

func TestSavePricingWritesBackProductFields(t *testing.T) {
	svc, ctx := newTestService(t)

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name: "Topo de bolo", Type: domain.ProductTypePhysical, Stock: 5,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	input := domain.PricingDetail{
		ProductID:                 product.ID,
		InkCostType:               domain.InkCostFixed,
		InkFixedCost:              2,
		LaborHourlyRate:           30,
		LaborMinutesUsed:          30,
		MonthlyProductionCapacity: 1,
		ProfitType:                domain.ProfitTypePercentage,
		ProfitMargin:              100,
	}

	saved, err := svc.SavePricing(ctx, input)
	if err != nil {
		t.Fatalf("save pricing: %v", err)
	}
	if saved == nil {
		t.Fatal("expected saved pricing, got nil")
	}
	if !almostEqual(saved.TotalCost, 17) {
		t.Fatalf("TotalCost = %v, want 17", saved.TotalCost)
	}
	if !almostEqual(saved.SuggestedPrice, 34) {
		t.Fatalf("SuggestedPrice = %v, want 34", saved.SuggestedPrice)
	}

	reloaded, err := svc.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if !almostEqual(reloaded[0].CalculatedCost, 17) || !almostEqual(reloaded[0].SuggestedPrice, 34) {
		t.Fatalf("product fields = (%v, %v), want (17, 34)", reloaded[0].CalculatedCost, reloaded[0].SuggestedPrice)
	}

	// Saving again for the same product replaces the previous breakdown.
	if _, err := svc.SavePricing(ctx, input); err != nil {
		t.Fatalf("second save: %v", err)
	}
	pricings, err := svc.ListPricings(ctx)
	if err != nil {
		t.Fatalf("list pricings: %v", err)
	}
	if len(pricings) != 1 {
		t.Fatalf("pricings = %d, want 1", len(pricings))
	}
}

func TestDeleteProductLeavesItsPricingBehind(t *testing.T) {
	svc, ctx := newTestService(t)

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name: "Caixa personalizada", Type: domain.ProductTypePhysical,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := svc.SavePricing(ctx, domain.PricingDetail{ProductID: product.ID, InkCostType: domain.InkCostFixed}); err != nil {
		t.Fatalf("save pricing: %v", err)
	}

	if err := svc.DeleteProduct(ctx, product.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}

	// No cascade: the saved breakdown is orphaned, not removed.
	pricings, err := svc.ListPricings(ctx)
	if err != nil {
		t.Fatalf("list pricings: %v", err)
	}
	if len(pricings) != 1 || pricings[0].ProductID != product.ID {
		t.Fatalf("pricings after product delete = %+v, want the orphaned one", pricings)
	}
}

func TestDeletePricing(t *testing.T) {
	svc, ctx := newTestService(t)

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name: "Quadro decorativo", Type: domain.ProductTypePhysical,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	saved, err := svc.SavePricing(ctx, domain.PricingDetail{ProductID: product.ID, InkCostType: domain.InkCostFixed})
	if err != nil {
		t.Fatalf("save pricing: %v", err)
	}

	if err := svc.DeletePricing(ctx, saved.ID); err != nil {
		t.Fatalf("delete pricing: %v", err)
	}

	pricings, err := svc.ListPricings(ctx)
	if err != nil {
		t.Fatalf("list pricings: %v", err)
	}
	if len(pricings) != 0 {
		t.Fatalf("pricings after delete = %+v, want none", pricings)
	}
}

func TestSavePricingWithoutProductIsNoOp(t *testing.T) {
	svc, ctx := newTestService(t)

	saved, err := svc.SavePricing(ctx, domain.PricingDetail{})
	if err != nil {
		t.Fatalf("save pricing: %v", err)
	}
	if saved != nil {
		t.Fatalf("expected nil, got %+v", saved)
	}
}

func TestDeletedMaterialKeepsFrozenCostInPricing(t *testing.T) {
	svc, ctx := newTestService(t)

	material, err := svc.CreateMaterial(ctx, domain.MaterialCreateRequest{
		Name: "Fita de cetim", Unit: domain.UnitTypeMeter, QuantityPerPackage: 10, TotalValue: 20,
	})
	if err != nil {
		t.Fatalf("create material: %v", err)
	}

	input := domain.PricingDetail{
		Materials: []domain.MaterialUsage{{MaterialID: material.ID, QuantityUsed: 2}},
	}

	breakdown, err := svc.PreviewPricing(ctx, input)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !almostEqual(breakdown.MaterialsCost, 4) {
		t.Fatalf("MaterialsCost = %v, want 4", breakdown.MaterialsCost)
	}

	if err := svc.DeleteMaterial(ctx, material.ID); err != nil {
		t.Fatalf("delete material: %v", err)
	}

	// The stored line cost survives the material's deletion.
	input.Materials[0].Cost = 4
	breakdown, err = svc.PreviewPricing(ctx, input)
	if err != nil {
		t.Fatalf("preview after delete: %v", err)
	}
	if !almostEqual(breakdown.MaterialsCost, 4) {
		t.Fatalf("MaterialsCost after delete = %v, want 4", breakdown.MaterialsCost)
	}
}

func TestBudgetNumbersNeverRepeat(t *testing.T) {
	svc, ctx := newTestService(t)

	client, err := svc.CreateClient(ctx, domain.ClientCreateRequest{Name: "Joana"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	items := []domain.BudgetItem{{ProductID: "manual", Name: "Caderneta", Quantity: 2, UnitPrice: 15}}

	first, err := svc.CreateBudget(ctx, domain.BudgetSaveRequest{ClientID: client.ID, Items: items})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if first.Number != "ORC-001" {
		t.Fatalf("first number = %q, want ORC-001", first.Number)
	}

	if err := svc.DeleteBudget(ctx, first.ID); err != nil {
		t.Fatalf("delete budget: %v", err)
	}

	second, err := svc.CreateBudget(ctx, domain.BudgetSaveRequest{ClientID: client.ID, Items: items})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if second.Number != "ORC-002" {
		t.Fatalf("number after delete = %q, want ORC-002", second.Number)
	}
}

func TestBudgetTotalsRecomputedFromItems(t *testing.T) {
	svc, ctx := newTestService(t)

	client, err := svc.CreateClient(ctx, domain.ClientCreateRequest{Name: "Paulo"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	budget, err := svc.CreateBudget(ctx, domain.BudgetSaveRequest{
		ClientID: client.ID,
		Items: []domain.BudgetItem{
			{ProductID: "a", Name: "Convite", Quantity: 10, UnitPrice: 3, TotalPrice: 999},
			{ProductID: "b", Name: "Tag", Quantity: 4, UnitPrice: 1.5},
		},
	})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if !almostEqual(budget.Items[0].TotalPrice, 30) {
		t.Fatalf("item TotalPrice = %v, want 30", budget.Items[0].TotalPrice)
	}
	if !almostEqual(budget.TotalValue, 36) {
		t.Fatalf("TotalValue = %v, want 36", budget.TotalValue)
	}
	if budget.ClientName != "Paulo" {
		t.Fatalf("ClientName = %q, want Paulo", budget.ClientName)
	}
	if budget.Status != domain.BudgetStatusOpen {
		t.Fatalf("Status = %q, want OPEN", budget.Status)
	}
}

func TestCreateBudgetRequiresClientAndItems(t *testing.T) {
	svc, ctx := newTestService(t)

	budget, err := svc.CreateBudget(ctx, domain.BudgetSaveRequest{
		Items: []domain.BudgetItem{{ProductID: "x", Name: "Tag", Quantity: 1, UnitPrice: 2}},
	})
	if err != nil || budget != nil {
		t.Fatalf("without client: budget = %v, err = %v, want nil/nil", budget, err)
	}

	client, err := svc.CreateClient(ctx, domain.ClientCreateRequest{Name: "Rita"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	budget, err = svc.CreateBudget(ctx, domain.BudgetSaveRequest{ClientID: client.ID})
	if err != nil || budget != nil {
		t.Fatalf("without items: budget = %v, err = %v, want nil/nil", budget, err)
	}
}

func TestDuplicateBudgetIssuesFreshNumber(t *testing.T) {
	svc, ctx := newTestService(t)

	client, err := svc.CreateClient(ctx, domain.ClientCreateRequest{Name: "Lia"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	original, err := svc.CreateBudget(ctx, domain.BudgetSaveRequest{
		ClientID: client.ID,
		Items:    []domain.BudgetItem{{ProductID: "a", Name: "Lembrancinha", Quantity: 20, UnitPrice: 2}},
		Status:   domain.BudgetStatusApproved,
	})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}

	copy, err := svc.DuplicateBudget(ctx, original.ID)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if copy.ID == original.ID || copy.Number == original.Number {
		t.Fatalf("duplicate shares identity with original: %+v", copy)
	}
	if copy.Number != "ORC-002" {
		t.Fatalf("duplicate number = %q, want ORC-002", copy.Number)
	}
	if copy.Status != domain.BudgetStatusOpen {
		t.Fatalf("duplicate status = %q, want OPEN", copy.Status)
	}
	if !almostEqual(copy.TotalValue, original.TotalValue) {
		t.Fatalf("duplicate total = %v, want %v", copy.TotalValue, original.TotalValue)
	}
}

func TestConvertBudgetToSale(t *testing.T) {
	svc, ctx := newTestService(t)

	client, err := svc.CreateClient(ctx, domain.ClientCreateRequest{Name: "Maria"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	budget, err := svc.CreateBudget(ctx, domain.BudgetSaveRequest{
		ClientID: client.ID,
		Items:    []domain.BudgetItem{{ProductID: "a", Name: "Convite", Quantity: 10, UnitPrice: 3}},
	})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}

	sale, err := svc.ConvertBudgetToSale(ctx, budget.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if sale.Number != "VEN-001" {
		t.Fatalf("sale number = %q, want VEN-001", sale.Number)
	}
	if !almostEqual(sale.TotalValue, 30) {
		t.Fatalf("sale total = %v, want 30", sale.TotalValue)
	}
	if sale.Status != domain.SaleStatusPaid || sale.PaymentMethod != domain.PaymentMethodPix {
		t.Fatalf("sale defaults = (%q, %q), want (PAID, PIX)", sale.Status, sale.PaymentMethod)
	}
	if sale.BudgetID != budget.ID {
		t.Fatalf("sale BudgetID = %q, want %q", sale.BudgetID, budget.ID)
	}

	budgets, err := svc.ListBudgets(ctx)
	if err != nil {
		t.Fatalf("list budgets: %v", err)
	}
	if budgets[0].Status != domain.BudgetStatusApproved {
		t.Fatalf("budget status = %q, want APPROVED", budgets[0].Status)
	}

	// Converting again produces a second, independent sale.
	again, err := svc.ConvertBudgetToSale(ctx, budget.ID)
	if err != nil {
		t.Fatalf("second convert: %v", err)
	}
	if again.Number != "VEN-002" {
		t.Fatalf("second sale number = %q, want VEN-002", again.Number)
	}
	sales, err := svc.ListSales(ctx)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 2 {
		t.Fatalf("sales = %d, want 2", len(sales))
	}
}

func TestStockAdjustClampsAtZero(t *testing.T) {
	svc, ctx := newTestService(t)

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name: "Caderno", Type: domain.ProductTypePhysical, Stock: 3,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	result, err := svc.AdjustStock(ctx, domain.StockAdjustRequest{
		ProductID: product.ID, Amount: 5, Direction: domain.StockOut,
	})
	if err != nil {
		t.Fatalf("adjust stock: %v", err)
	}
	if !result.Applied || result.Product.Stock != 0 {
		t.Fatalf("stock after OUT 5 = %+v, want applied with stock 0", result)
	}

	result, err = svc.AdjustStock(ctx, domain.StockAdjustRequest{
		ProductID: product.ID, Amount: 7, Direction: domain.StockIn,
	})
	if err != nil {
		t.Fatalf("adjust stock: %v", err)
	}
	if result.Product.Stock != 7 {
		t.Fatalf("stock after IN 7 = %d, want 7", result.Product.Stock)
	}

	// Missing product id or non-positive amount is ignored without error.
	result, err = svc.AdjustStock(ctx, domain.StockAdjustRequest{Amount: 3, Direction: domain.StockIn})
	if err != nil || result.Applied {
		t.Fatalf("empty product: result = %+v, err = %v, want unapplied/nil", result, err)
	}
	result, err = svc.AdjustStock(ctx, domain.StockAdjustRequest{ProductID: product.ID, Amount: 0, Direction: domain.StockIn})
	if err != nil || result.Applied {
		t.Fatalf("zero amount: result = %+v, err = %v, want unapplied/nil", result, err)
	}
}

func TestResolveDocumentItemFallsBackForUnknownProduct(t *testing.T) {
	svc, ctx := newTestService(t)

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name: "Planner", Type: domain.ProductTypePhysical, SuggestedPrice: 45,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	item, err := svc.ResolveDocumentItem(ctx, product.ID, 0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if item.Name != "Planner" || !almostEqual(item.Quantity, 1) || !almostEqual(item.UnitPrice, 45) {
		t.Fatalf("resolved item = %+v", item)
	}

	item, err = svc.ResolveDocumentItem(ctx, "missing-id", 2)
	if err != nil {
		t.Fatalf("resolve missing: %v", err)
	}
	if item.UnitPrice != 0 || item.Name == "" {
		t.Fatalf("fallback item = %+v, want placeholder name with zero price", item)
	}
}

func TestBudgetKeepsClientNameAfterClientDeleted(t *testing.T) {
	svc, ctx := newTestService(t)

	client, err := svc.CreateClient(ctx, domain.ClientCreateRequest{Name: "Helena"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	budget, err := svc.CreateBudget(ctx, domain.BudgetSaveRequest{
		ClientID: client.ID,
		Items:    []domain.BudgetItem{{ProductID: "a", Name: "Tag", Quantity: 1, UnitPrice: 5}},
	})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if err := svc.DeleteClient(ctx, client.ID); err != nil {
		t.Fatalf("delete client: %v", err)
	}

	budgets, err := svc.ListBudgets(ctx)
	if err != nil {
		t.Fatalf("list budgets: %v", err)
	}
	if budgets[0].ClientName != "Helena" {
		t.Fatalf("ClientName = %q, want the stored Helena", budgets[0].ClientName)
	}
	if budgets[0].ID != budget.ID {
		t.Fatalf("unexpected budget %q", budgets[0].ID)
	}
}

func TestUpdateSaleCanClearPixCode(t *testing.T) {
	svc, ctx := newTestService(t)

	client, err := svc.CreateClient(ctx, domain.ClientCreateRequest{Name: "Nina"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	code := "pix-copy-paste-code"
	items := []domain.BudgetItem{{ProductID: "a", Name: "Convite", Quantity: 1, UnitPrice: 10}}
	sale, err := svc.CreateSale(ctx, domain.SaleSaveRequest{
		ClientID: client.ID, Items: items, PixCode: &code,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.PixCode != code {
		t.Fatalf("PixCode = %q, want %q", sale.PixCode, code)
	}

	// Omitting the field keeps the stored code.
	updated, err := svc.UpdateSale(ctx, sale.ID, domain.SaleSaveRequest{ClientID: client.ID, Items: items})
	if err != nil {
		t.Fatalf("update sale: %v", err)
	}
	if updated.PixCode != code {
		t.Fatalf("PixCode after omitted field = %q, want %q", updated.PixCode, code)
	}

	// An explicit empty value clears it.
	empty := ""
	updated, err = svc.UpdateSale(ctx, sale.ID, domain.SaleSaveRequest{
		ClientID: client.ID, Items: items, PixCode: &empty,
	})
	if err != nil {
		t.Fatalf("update sale: %v", err)
	}
	if updated.PixCode != "" {
		t.Fatalf("PixCode after explicit clear = %q, want empty", updated.PixCode)
	}
}

func TestDashboardSummaryCounts(t *testing.T) {
	svc, ctx := newTestService(t)

	if _, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name: "Agenda", Type: domain.ProductTypePhysical, Stock: 1, MinStock: 2,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	client, err := svc.CreateClient(ctx, domain.ClientCreateRequest{Name: "Bia"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	if _, err := svc.CreateBudget(ctx, domain.BudgetSaveRequest{
		ClientID: client.ID,
		Items:    []domain.BudgetItem{{ProductID: "a", Name: "Convite", Quantity: 2, UnitPrice: 10}},
	}); err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if _, err := svc.CreateSale(ctx, domain.SaleSaveRequest{
		ClientID: client.ID,
		Items:    []domain.BudgetItem{{ProductID: "a", Name: "Convite", Quantity: 1, UnitPrice: 10}},
		Status:   domain.SaleStatusPending,
	}); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	summary, err := svc.DashboardSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Products != 1 || summary.Clients != 1 {
		t.Fatalf("counts = %+v", summary)
	}
	if summary.LowStock != 1 {
		t.Fatalf("LowStock = %d, want 1", summary.LowStock)
	}
	if summary.OpenBudgets != 1 {
		t.Fatalf("OpenBudgets = %d, want 1", summary.OpenBudgets)
	}
	if !almostEqual(summary.TotalSales, 10) {
		t.Fatalf("TotalSales = %v, want 10", summary.TotalSales)
	}
	if summary.PendingSales != 1 {
		t.Fatalf("PendingSales = %d, want 1", summary.PendingSales)
	}
}

func TestSettingsUpdateAndPixKey(t *testing.T) {
	svc, ctx := newTestService(t)

	settings, err := svc.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings.StoreName == "" {
		t.Fatal("expected default store name")
	}

	settings.StoreName = "Ateliê da Lu"
	updated, err := svc.UpdateSettings(ctx, settings)
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if updated.StoreName != "Ateliê da Lu" {
		t.Fatalf("StoreName = %q", updated.StoreName)
	}

	withPix, err := svc.UpdatePixKey(ctx, domain.PixKeyUpdateRequest{PixKey: "lu@example.com"})
	if err != nil {
		t.Fatalf("update pix key: %v", err)
	}
	if withPix.PixKey != "lu@example.com" {
		t.Fatalf("PixKey = %q", withPix.PixKey)
	}
	if withPix.StoreName != "Ateliê da Lu" {
		t.Fatalf("pix update clobbered settings: %+v", withPix)
	}
}

func TestOperationsRequireActor(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.ListMaterials(context.Background()); err == nil {
		t.Fatal("expected error without actor in context")
	}
}
