package memory

import (
	"context"
	"testing"
	"time"

	"atelier/backend/internal/domain"
	"atelier/backend/internal/store"
)

func TestNextSequenceIsMonotonicPerAccountAndSeries(t *testing.T) {
	s := New()
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := s.NextSequence(ctx, "acct-a", domain.SequenceBudget)
		if err != nil {
			t.Fatalf("next sequence: %v", err)
		}
		if got != want {
			t.Fatalf("sequence = %d, want %d", got, want)
		}
	}

	// Other series and other accounts keep their own counters.
	if got, _ := s.NextSequence(ctx, "acct-a", domain.SequenceSale); got != 1 {
		t.Fatalf("sale sequence = %d, want 1", got)
	}
	if got, _ := s.NextSequence(ctx, "acct-b", domain.SequenceBudget); got != 1 {
		t.Fatalf("other account sequence = %d, want 1", got)
	}
}

func TestAdjustStockValidatesAndClamps(t *testing.T) {
	s := New()
	ctx := context.Background()

	product, err := s.PutProduct(ctx, "acct", domain.Product{ID: "p1", Name: "Caderno", Stock: 3})
	if err != nil {
		t.Fatalf("put product: %v", err)
	}

	updated, err := s.AdjustStock(ctx, "acct", product.ID, 5, domain.StockOut)
	if err != nil {
		t.Fatalf("adjust stock: %v", err)
	}
	if updated.Stock != 0 {
		t.Fatalf("stock = %d, want clamp at 0", updated.Stock)
	}

	if _, err := s.AdjustStock(ctx, "acct", "missing", 1, domain.StockIn); err != store.ErrNotFound {
		t.Fatalf("missing product err = %v, want ErrNotFound", err)
	}
	if _, err := s.AdjustStock(ctx, "acct", product.ID, 1, "SIDEWAYS"); err != store.ErrInvalidInput {
		t.Fatalf("bad direction err = %v, want ErrInvalidInput", err)
	}
}

func TestUpsertPricingKeepsOnePerProduct(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.UpsertPricing(ctx, "acct", domain.PricingDetail{ID: "pr1", ProductID: "p1"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.UpsertPricing(ctx, "acct", domain.PricingDetail{ID: "pr2", ProductID: "p1"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	pricings, err := s.ListPricings(ctx, "acct")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pricings) != 1 || pricings[0].ID != "pr2" {
		t.Fatalf("pricings = %+v, want only pr2", pricings)
	}
}

func TestConvertBudgetToSaleIsAtomic(t *testing.T) {
	s := New()
	ctx := context.Background()

	budget, err := s.PutBudget(ctx, "acct", domain.Budget{
		ID: "b1", Number: "ORC-001", ClientID: "c1", Status: domain.BudgetStatusOpen,
		Items: []domain.BudgetItem{{ProductID: "p", Name: "Convite", Quantity: 10, UnitPrice: 3, TotalPrice: 30}},
		Date:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("put budget: %v", err)
	}

	sale, err := s.ConvertBudgetToSale(ctx, "acct", store.Conversion{
		BudgetID: budget.ID,
		Sale:     domain.Sale{ID: "s1", Number: "VEN-001", BudgetID: budget.ID},
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if sale.Number != "VEN-001" {
		t.Fatalf("sale number = %q", sale.Number)
	}

	reloaded, err := s.GetBudget(ctx, "acct", budget.ID)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if reloaded.Status != domain.BudgetStatusApproved {
		t.Fatalf("budget status = %q, want APPROVED", reloaded.Status)
	}

	if _, err := s.ConvertBudgetToSale(ctx, "acct", store.Conversion{
		BudgetID: "missing",
		Sale:     domain.Sale{ID: "s2"},
	}); err != store.ErrNotFound {
		t.Fatalf("missing budget err = %v, want ErrNotFound", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := New()
	ctx := context.Background()

	if _, err := src.PutClient(ctx, "acct", domain.Client{ID: "c1", Name: "Maria"}); err != nil {
		t.Fatalf("put client: %v", err)
	}
	if _, err := src.PutBudget(ctx, "acct", domain.Budget{
		ID: "b1", Number: "ORC-001", ClientID: "c1", Status: domain.BudgetStatusOpen,
		Items: []domain.BudgetItem{{ProductID: "p", Name: "Tag", Quantity: 2, UnitPrice: 5, TotalPrice: 10}},
		Date:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("put budget: %v", err)
	}
	if _, err := src.NextSequence(ctx, "acct", domain.SequenceBudget); err != nil {
		t.Fatalf("next sequence: %v", err)
	}
	settings := store.DefaultSettings()
	settings.PixKey = "chave-pix"
	if err := src.PutSettings(ctx, "acct", settings); err != nil {
		t.Fatalf("put settings: %v", err)
	}

	dst := New()
	for _, collection := range []string{
		domain.CollectionClients,
		domain.CollectionBudgets,
		domain.CollectionCounters,
		domain.CollectionSettings,
	} {
		payload, err := src.ExportCollection(ctx, "acct", collection)
		if err != nil {
			t.Fatalf("export %s: %v", collection, err)
		}
		if err := dst.ImportCollection(ctx, "acct", collection, payload); err != nil {
			t.Fatalf("import %s: %v", collection, err)
		}
	}

	clients, err := dst.ListClients(ctx, "acct")
	if err != nil || len(clients) != 1 || clients[0].Name != "Maria" {
		t.Fatalf("clients after import = %+v, err = %v", clients, err)
	}
	budgets, err := dst.ListBudgets(ctx, "acct")
	if err != nil || len(budgets) != 1 || budgets[0].Items[0].TotalPrice != 10 {
		t.Fatalf("budgets after import = %+v, err = %v", budgets, err)
	}
	if got, _ := dst.NextSequence(ctx, "acct", domain.SequenceBudget); got != 2 {
		t.Fatalf("imported counter continues at %d, want 2", got)
	}
	restored, err := dst.GetSettings(ctx, "acct")
	if err != nil || restored.PixKey != "chave-pix" {
		t.Fatalf("settings after import = %+v, err = %v", restored, err)
	}
}

func TestUsersAreUniqueByEmail(t *testing.T) {
	s := New()
	ctx := context.Background()

	user := domain.UserAccount{AccountID: "acct", Email: "dup@example.com", Password: "hashed"}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.CreateUser(ctx, user); err != store.ErrDuplicateAccount {
		t.Fatalf("duplicate err = %v, want ErrDuplicateAccount", err)
	}

	found, err := s.GetUserByEmail(ctx, "dup@example.com")
	if err != nil || found.AccountID != "acct" {
		t.Fatalf("lookup = %+v, err = %v", found, err)
	}
	if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); err != store.ErrNotFound {
		t.Fatalf("missing user err = %v, want ErrNotFound", err)
	}
}
