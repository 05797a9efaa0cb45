package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JereMicheloud/Backend-Gastos/internal/models"
	"github.com/JereMicheloud/Backend-Gastos/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, username, displayName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// StatsPeriod selects the reporting window for category/transaction stats.
type StatsPeriod string

const (
	StatsPeriodDay   StatsPeriod = "day"
	StatsPeriodWeek  StatsPeriod = "week"
	StatsPeriodMonth StatsPeriod = "month"
	StatsPeriodYear  StatsPeriod = "year"
)

// CategoryStatEntry holds per-category totals for a stats window.
type CategoryStatEntry struct {
	CategoryID       string          `json:"id"`
	Name             string          `json:"name"`
	Icon             string          `json:"icon"`
	Color            string          `json:"color"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	TransactionCount int             `json:"transaction_count"`
	Percentage       float64         `json:"percentage"`
}

// CategoryStats aggregates totals for all of a user's categories within a window.
type CategoryStats struct {
	Categories    []CategoryStatEntry `json:"categories"`
	Period        StatsPeriod         `json:"period"`
	StartDate     string              `json:"start_date"`
	EndDate       string              `json:"end_date"`
	TotalExpenses decimal.Decimal     `json:"total_expenses"`
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name, icon, color string) (*models.Category, error)
	GetUserCategories(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID, name, icon, color string) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
	GetCategoryStats(userID string, period StatsPeriod) (*CategoryStats, error)
	CreateDefaultCategories(userID string) ([]models.Category, error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *string
}

// TransactionUpdate holds the optional fields of a partial transaction update.
type TransactionUpdate struct {
	CategoryID      *string
	Type            *models.TransactionType
	Amount          *decimal.Decimal
	Description     *string
	TransactionDate *time.Time
}

// CategoryTotals holds income/expense totals for one category within a stats window.
type CategoryTotals struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Count    int             `json:"count"`
}

// TransactionStats aggregates a user's transactions within a window.
type TransactionStats struct {
	TotalIncome      decimal.Decimal            `json:"total_income"`
	TotalExpenses    decimal.Decimal            `json:"total_expenses"`
	NetIncome        decimal.Decimal            `json:"net_income"`
	TransactionCount int                        `json:"transaction_count"`
	Categories       map[string]*CategoryTotals `json:"categories"`
	Period           StatsPeriod                `json:"period"`
	StartDate        string                     `json:"start_date"`
	EndDate          string                     `json:"end_date"`
}

// MonthlyTrend holds income/expense totals for one calendar month.
type MonthlyTrend struct {
	Month     string          `json:"month"`
	Income    decimal.Decimal `json:"income"`
	Expenses  decimal.Decimal `json:"expenses"`
	NetIncome decimal.Decimal `json:"net_income"`
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID, categoryID string, transactionType models.TransactionType, amount decimal.Decimal, description string, date time.Time) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	GetTransactionStats(userID string, period StatsPeriod) (*TransactionStats, error)
	GetMonthlyTrends(userID string, months int) ([]MonthlyTrend, error)
}

// BudgetInput holds the fields required to create a budget.
type BudgetInput struct {
	CategoryID string
	Amount     decimal.Decimal
	Period     models.BudgetPeriod
	StartDate  time.Time
	EndDate    time.Time
}

// BudgetUpdate holds the optional fields of a partial budget update.
type BudgetUpdate struct {
	CategoryID *string
	Amount     *decimal.Decimal
	Period     *models.BudgetPeriod
	StartDate  *time.Time
	EndDate    *time.Time
}

// BudgetView is a budget enriched with spending data computed at read time.
// It is never persisted.
type BudgetView struct {
	models.Budget
	CurrentSpending decimal.Decimal      `json:"current_spending"`
	Remaining       decimal.Decimal      `json:"remaining"`
	PercentageUsed  float64              `json:"percentage_used"`
	IsExceeded      bool                 `json:"is_exceeded"`
	Transactions    []models.Transaction `json:"transactions,omitempty"`
}

// BudgetSpending holds the spending attributable to one budget.
type BudgetSpending struct {
	TotalSpent       decimal.Decimal      `json:"total_spent"`
	TransactionCount int                  `json:"transaction_count"`
	Transactions     []models.Transaction `json:"transactions"`
}

// BudgetSummary aggregates spending across all of a user's budgets.
type BudgetSummary struct {
	TotalBudgets      int             `json:"total_budgets"`
	TotalBudgeted     decimal.Decimal `json:"total_budgeted"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	TotalRemaining    decimal.Decimal `json:"total_remaining"`
	OverallPercentage float64         `json:"overall_percentage"`
	BudgetsExceeded   int             `json:"budgets_exceeded"`
	ActiveBudgets     int             `json:"active_budgets"`
	UpcomingBudgets   int             `json:"upcoming_budgets"`
}

// BudgetSummaryResult pairs the roll-up with the most recently created budgets.
type BudgetSummaryResult struct {
	Summary       BudgetSummary `json:"summary"`
	RecentBudgets []BudgetView  `json:"recent_budgets"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(userID string, input BudgetInput) (*BudgetView, error)
	GetUserBudgets(userID string) ([]BudgetView, error)
	GetBudgetByID(userID, budgetID string) (*BudgetView, error)
	UpdateBudget(userID, budgetID string, update BudgetUpdate) (*BudgetView, error)
	DeleteBudget(userID, budgetID string) error
	GetBudgetSpending(userID, budgetID string) (*BudgetSpending, error)
	GetBudgetSummary(userID string) (*BudgetSummaryResult, error)
	CreateAutomaticBudget(userID, categoryID string, period models.BudgetPeriod, multiplier float64) (*BudgetView, error)
}
