package store

import (
	"context"
	"errors"
	"time"

	"atelier/backend/internal/domain"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicateAccount = errors.New("account already exists")
)

// Conversion is the command value for the budget-to-sale transition. Both
// effects — inserting the sale and flipping the budget to APPROVED — are
// applied by a single repository operation so the two collections cannot
// drift apart on a partial failure.
type Conversion struct {
	BudgetID string
	Sale     domain.Sale
}

// Repository is the canonical in-account dataset: every entity collection is
// an owned in-memory table scoped by account id. Remote persistence is layered
// on top through Export/Import snapshots, not baked into the table operations.
type Repository interface {
	ListMaterials(ctx context.Context, accountID string) ([]domain.Material, error)
	GetMaterial(ctx context.Context, accountID string, id string) (*domain.Material, error)
	PutMaterial(ctx context.Context, accountID string, material domain.Material) (*domain.Material, error)
	DeleteMaterial(ctx context.Context, accountID string, id string) error

	ListProducts(ctx context.Context, accountID string) ([]domain.Product, error)
	GetProduct(ctx context.Context, accountID string, id string) (*domain.Product, error)
	PutProduct(ctx context.Context, accountID string, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, accountID string, id string) error
	AdjustStock(ctx context.Context, accountID string, productID string, amount int, direction domain.StockDirection) (*domain.Product, error)

	ListClients(ctx context.Context, accountID string) ([]domain.Client, error)
	GetClient(ctx context.Context, accountID string, id string) (*domain.Client, error)
	PutClient(ctx context.Context, accountID string, client domain.Client) (*domain.Client, error)
	DeleteClient(ctx context.Context, accountID string, id string) error

	ListPricings(ctx context.Context, accountID string) ([]domain.PricingDetail, error)
	GetPricingByProduct(ctx context.Context, accountID string, productID string) (*domain.PricingDetail, error)
	UpsertPricing(ctx context.Context, accountID string, pricing domain.PricingDetail) (*domain.PricingDetail, error)
	DeletePricing(ctx context.Context, accountID string, id string) error

	ListBudgets(ctx context.Context, accountID string) ([]domain.Budget, error)
	GetBudget(ctx context.Context, accountID string, id string) (*domain.Budget, error)
	PutBudget(ctx context.Context, accountID string, budget domain.Budget) (*domain.Budget, error)
	DeleteBudget(ctx context.Context, accountID string, id string) error
	ConvertBudgetToSale(ctx context.Context, accountID string, cmd Conversion) (*domain.Sale, error)

	ListSales(ctx context.Context, accountID string) ([]domain.Sale, error)
	GetSale(ctx context.Context, accountID string, id string) (*domain.Sale, error)
	PutSale(ctx context.Context, accountID string, sale domain.Sale) (*domain.Sale, error)
	DeleteSale(ctx context.Context, accountID string, id string) error

	GetSettings(ctx context.Context, accountID string) (domain.StoreSettings, error)
	PutSettings(ctx context.Context, accountID string, settings domain.StoreSettings) error

	// NextSequence returns the next value of a persisted monotonic counter.
	// Counters only move forward, so document numbers are never reused even
	// after deletions.
	NextSequence(ctx context.Context, accountID string, series string) (int, error)

	// ExportCollection and ImportCollection move whole-collection JSON
	// snapshots across the remote document store boundary.
	ExportCollection(ctx context.Context, accountID string, collection string) ([]byte, error)
	ImportCollection(ctx context.Context, accountID string, collection string, payload []byte) error

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error)
}

// DefaultSettings mirrors the first-run configuration of a fresh account.
func DefaultSettings() domain.StoreSettings {
	return domain.StoreSettings{
		StoreName:  "Minha Papelaria Criativa",
		SystemName: "Paper&Coffee",
		Theme:      domain.ThemeClassic,
	}
}

// NewUserAccount builds the persistence model for a registration.
func NewUserAccount(accountID, email, name, passwordHash string) domain.UserAccount {
	return domain.UserAccount{
		AccountID: accountID,
		Email:     email,
		Name:      name,
		Password:  passwordHash,
		CreatedAt: time.Now().UTC(),
	}
}
