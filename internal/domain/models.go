package domain

import "time"

// Monetary values are decimal BRL amounts. The pricing formulas divide package
// prices by arbitrary quantities (e.g. R$100 for 3 sheets), so amounts are kept
// as float64 rather than integer cents.

type MaterialCategory string

const (
	MaterialCategoryPaper     MaterialCategory = "paper"
	MaterialCategoryInk       MaterialCategory = "ink"
	MaterialCategoryFinish    MaterialCategory = "finish"
	MaterialCategoryPackaging MaterialCategory = "packaging"
	MaterialCategoryOther     MaterialCategory = "other"
)

type UnitType string

const (
	UnitTypeUnit    UnitType = "unit"
	UnitTypePackage UnitType = "package"
	UnitTypeKit     UnitType = "kit"
	UnitTypeKg      UnitType = "kg"
	UnitTypeGram    UnitType = "gram"
	UnitTypeMeter   UnitType = "meter"
	UnitTypeMl      UnitType = "ml"
)

// Material is a purchased input tracked by package price; CostPerUnit is always
// derived from TotalValue / QuantityPerPackage and never edited independently.
type Material struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Category           MaterialCategory `json:"category"`
	Unit               UnitType         `json:"unit"`
	QuantityPerPackage float64          `json:"quantity_per_package"`
	TotalValue         float64          `json:"total_value"`
	CostPerUnit        float64          `json:"cost_per_unit"`
}

type MaterialCreateRequest struct {
	Name               string           `json:"name"`
	Category           MaterialCategory `json:"category"`
	Unit               UnitType         `json:"unit"`
	QuantityPerPackage float64          `json:"quantity_per_package"`
	TotalValue         float64          `json:"total_value"`
}

type MaterialUpdateRequest struct {
	Name               *string           `json:"name,omitempty"`
	Category           *MaterialCategory `json:"category,omitempty"`
	Unit               *UnitType         `json:"unit,omitempty"`
	QuantityPerPackage *float64          `json:"quantity_per_package,omitempty"`
	TotalValue         *float64          `json:"total_value,omitempty"`
}

type ProductType string

const (
	ProductTypePhysical ProductType = "physical"
	ProductTypeDigital  ProductType = "digital"
)

type Product struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Category       string      `json:"category"`
	Description    string      `json:"description"`
	Type           ProductType `json:"type"`
	CalculatedCost float64     `json:"calculated_cost"`
	SuggestedPrice float64     `json:"suggested_price"`
	Stock          int         `json:"stock"`
	MinStock       int         `json:"min_stock"`
}

type ProductCreateRequest struct {
	Name           string      `json:"name"`
	Category       string      `json:"category"`
	Description    string      `json:"description"`
	Type           ProductType `json:"type"`
	CalculatedCost float64     `json:"calculated_cost"`
	SuggestedPrice float64     `json:"suggested_price"`
	Stock          int         `json:"stock"`
	MinStock       int         `json:"min_stock"`
}

type ProductUpdateRequest struct {
	Name           *string      `json:"name,omitempty"`
	Category       *string      `json:"category,omitempty"`
	Description    *string      `json:"description,omitempty"`
	Type           *ProductType `json:"type,omitempty"`
	CalculatedCost *float64     `json:"calculated_cost,omitempty"`
	SuggestedPrice *float64     `json:"suggested_price,omitempty"`
	MinStock       *int         `json:"min_stock,omitempty"`
}

type InkCostType string

const (
	InkCostFixed     InkCostType = "fixed"
	InkCostPerVolume InkCostType = "perVolume"
)

type ProfitType string

const (
	ProfitTypePercentage ProfitType = "percentage"
	ProfitTypeFixed      ProfitType = "fixed"
)

// MaterialUsage is one consumed-material line of a pricing breakdown. Cost is
// recomputed from the catalog when the line is edited; if the material has been
// deleted since, the stored value is kept as a frozen snapshot.
type MaterialUsage struct {
	MaterialID   string  `json:"material_id"`
	QuantityUsed float64 `json:"quantity_used"`
	Cost         float64 `json:"cost"`
}

type ExtraCost struct {
	Description string  `json:"description"`
	Value       float64 `json:"value"`
}

// PricingDetail is the saved cost/price breakdown for one product. At most one
// exists per product; saving replaces the previous one and overwrites the
// product's CalculatedCost/SuggestedPrice.
type PricingDetail struct {
	ID                        string          `json:"id"`
	ProductID                 string          `json:"product_id"`
	Materials                 []MaterialUsage `json:"materials"`
	InkCostType               InkCostType     `json:"ink_cost_type"`
	InkFixedCost              float64         `json:"ink_fixed_cost"`
	InkSheetsUsed             float64         `json:"ink_sheets_used"`
	InkVolumeCost             float64         `json:"ink_volume_cost"`
	InkVolumeUsed             float64         `json:"ink_volume_used"`
	LaborHourlyRate           float64         `json:"labor_hourly_rate"`
	LaborMinutesUsed          float64         `json:"labor_minutes_used"`
	LaborDesiredSalary        float64         `json:"labor_desired_salary"`
	LaborMonthlyHours         float64         `json:"labor_monthly_hours"`
	FixedRent                 float64         `json:"fixed_rent"`
	FixedWater                float64         `json:"fixed_water"`
	FixedElectricity          float64         `json:"fixed_electricity"`
	FixedInternet             float64         `json:"fixed_internet"`
	FixedMaintenance          float64         `json:"fixed_maintenance"`
	FixedFuel                 float64         `json:"fixed_fuel"`
	FixedOtherOverhead        float64         `json:"fixed_other_overhead"`
	MonthlyProductionCapacity float64         `json:"monthly_production_capacity"`
	ExtraCosts                []ExtraCost     `json:"extra_costs"`
	ProfitType                ProfitType      `json:"profit_type"`
	ProfitMargin              float64         `json:"profit_margin"`
	TotalCost                 float64         `json:"total_cost"`
	SuggestedPrice            float64         `json:"suggested_price"`
}

type Client struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Document string `json:"document"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Notes    string `json:"notes"`
}

type ClientCreateRequest struct {
	Name     string `json:"name"`
	Document string `json:"document"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Notes    string `json:"notes"`
}

type ClientUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Document *string `json:"document,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Email    *string `json:"email,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

type BudgetStatus string

const (
	BudgetStatusOpen     BudgetStatus = "OPEN"
	BudgetStatusApproved BudgetStatus = "APPROVED"
	BudgetStatusRejected BudgetStatus = "REJECTED"
)

type SaleStatus string

const (
	SaleStatusPaid    SaleStatus = "PAID"
	SaleStatusPending SaleStatus = "PENDING"
)

type PaymentMethod string

const (
	PaymentMethodPix        PaymentMethod = "PIX"
	PaymentMethodCash       PaymentMethod = "CASH"
	PaymentMethodTransfer   PaymentMethod = "TRANSFER"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
)

// BudgetItem is one document line; TotalPrice is recomputed from Quantity and
// UnitPrice whenever either changes. Sales reuse the same line shape.
type BudgetItem struct {
	ProductID  string  `json:"product_id"`
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

type Budget struct {
	ID            string       `json:"id"`
	Number        string       `json:"number"`
	ClientID      string       `json:"client_id"`
	ClientName    string       `json:"client_name"`
	Items         []BudgetItem `json:"items"`
	TotalValue    float64      `json:"total_value"`
	Status        BudgetStatus `json:"status"`
	Date          time.Time    `json:"date"`
	InternalNotes string       `json:"internal_notes"`
}

type BudgetSaveRequest struct {
	ClientID      string       `json:"client_id"`
	Items         []BudgetItem `json:"items"`
	Status        BudgetStatus `json:"status,omitempty"`
	InternalNotes string       `json:"internal_notes"`
}

type Sale struct {
	ID            string        `json:"id"`
	Number        string        `json:"number"`
	ClientID      string        `json:"client_id"`
	ClientName    string        `json:"client_name"`
	BudgetID      string        `json:"budget_id,omitempty"`
	Items         []BudgetItem  `json:"items"`
	TotalValue    float64       `json:"total_value"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        SaleStatus    `json:"status"`
	Date          time.Time     `json:"date"`
	PixCode       string        `json:"pix_code,omitempty"`
}

type SaleSaveRequest struct {
	ClientID      string        `json:"client_id"`
	Items         []BudgetItem  `json:"items"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        SaleStatus    `json:"status"`
	PixCode       *string       `json:"pix_code,omitempty"`
}

type StockDirection string

const (
	StockIn  StockDirection = "IN"
	StockOut StockDirection = "OUT"
)

type StockAdjustRequest struct {
	ProductID string         `json:"product_id"`
	Amount    int            `json:"amount"`
	Direction StockDirection `json:"direction"`
}

type Theme string

const (
	ThemeClassic Theme = "classic"
	ThemePastel  Theme = "pastel"
)

// StoreSettings is the singleton configuration record of an account.
type StoreSettings struct {
	StoreName  string `json:"store_name"`
	SystemName string `json:"system_name"`
	Document   string `json:"document"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	LogoURL    string `json:"logo_url"`
	PixKey     string `json:"pix_key"`
	Theme      Theme  `json:"theme"`
}

type PixKeyUpdateRequest struct {
	PixKey string `json:"pix_key"`
}

// DashboardSummary carries the simple aggregate counts shown on the home screen.
type DashboardSummary struct {
	Products      int     `json:"products"`
	Clients       int     `json:"clients"`
	LowStock      int     `json:"low_stock"`
	OpenBudgets   int     `json:"open_budgets"`
	TotalSales    float64 `json:"total_sales"`
	PendingSales  int     `json:"pending_sales"`
	SavedPricings int     `json:"saved_pricings"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor identifies the signed-in account; every collection the service touches
// is scoped to Actor.AccountID.
type Actor struct {
	AccountID string
	Email     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	AccountID string
	Email     string
	Name      string
	Password  string
	CreatedAt time.Time
}

// Sequence series used for human-readable document numbers.
const (
	SequenceBudget = "budget"
	SequenceSale   = "sale"
)

// Collection names shared with the remote document store boundary.
const (
	CollectionSettings  = "settings"
	CollectionProducts  = "products"
	CollectionClients   = "clients"
	CollectionBudgets   = "budgets"
	CollectionSales     = "sales"
	CollectionMaterials = "materials"
	CollectionPricings  = "pricings"
	CollectionCounters  = "counters"
)
