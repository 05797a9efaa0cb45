package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/JereMicheloud/Backend-Gastos/internal/errors"
	"github.com/JereMicheloud/Backend-Gastos/internal/models"
	"github.com/JereMicheloud/Backend-Gastos/internal/pagination"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// CreateTransaction records a new income or expense transaction for a user.
func (s *transactionService) CreateTransaction(
	userID, categoryID string,
	transactionType models.TransactionType,
	amount decimal.Decimal,
	description string,
	date time.Time,
) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if transactionType != models.TransactionTypeIncome && transactionType != models.TransactionTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or expense")
	}

	if err := s.verifyCategoryOwnership(userID, categoryID); err != nil {
		return nil, err
	}

	// Default date to today if not provided
	if date.IsZero() {
		date = time.Now()
	}

	transaction := &models.Transaction{
		UserID:          userID,
		CategoryID:      categoryID,
		Type:            transactionType,
		Amount:          amount,
		Description:     description,
		TransactionDate: dayStart(date),
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetTransactionByID(userID, transaction.ID)
}

// GetUserTransactions retrieves a paginated, filtered list of the user's
// transactions, most recent first.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	if filter.Type != nil {
		base = base.Where("type = ?", *filter.Type)
	}
	if filter.CategoryID != nil {
		base = base.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.FromDate != nil {
		base = base.Where("transaction_date >= ?", dayStart(*filter.FromDate))
	}
	if filter.ToDate != nil {
		base = base.Where("transaction_date < ?", dayStart(*filter.ToDate).AddDate(0, 0, 1))
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Preload("Category").Order("transaction_date DESC").Scopes(pagination.Paginate(page)).Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetTransactionByID returns a transaction by ID if it belongs to the user.
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction applies a partial update to an existing transaction.
// Category ownership is re-validated when the category changes.
func (s *transactionService) UpdateTransaction(userID, transactionID string, update TransactionUpdate) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if update.CategoryID != nil {
		if err := s.verifyCategoryOwnership(userID, *update.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *update.CategoryID
	}
	if update.Type != nil {
		if *update.Type != models.TransactionTypeIncome && *update.Type != models.TransactionTypeExpense {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or expense")
		}
		updates["type"] = *update.Type
	}
	if update.Amount != nil {
		if !update.Amount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		updates["amount"] = *update.Amount
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.TransactionDate != nil {
		updates["transaction_date"] = dayStart(*update.TransactionDate)
	}

	if len(updates) > 0 {
		if err := s.db.Model(transaction).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetTransactionByID(userID, transactionID)
}

// DeleteTransaction deletes a transaction owned by the user.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetTransactionStats aggregates the user's transactions for the current
// stats window: overall totals, net income and a per-category breakdown.
func (s *transactionService) GetTransactionStats(userID string, period StatsPeriod) (*TransactionStats, error) {
	from, to := statsWindow(time.Now(), period)

	var transactions []models.Transaction
	err := s.db.Preload("Category").
		Where("user_id = ? AND transaction_date >= ? AND transaction_date < ?",
			userID, from, to.AddDate(0, 0, 1)).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	stats := &TransactionStats{
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
		TransactionCount: len(transactions),
		Categories:       make(map[string]*CategoryTotals),
		Period:           period,
		StartDate:        from.Format("2006-01-02"),
		EndDate:          to.Format("2006-01-02"),
	}

	for _, tx := range transactions {
		name := "Uncategorized"
		if tx.Category != nil && tx.Category.Name != "" {
			name = tx.Category.Name
		}
		totals, ok := stats.Categories[name]
		if !ok {
			totals = &CategoryTotals{Income: decimal.Zero, Expenses: decimal.Zero}
			stats.Categories[name] = totals
		}

		if tx.Type == models.TransactionTypeIncome {
			stats.TotalIncome = stats.TotalIncome.Add(tx.Amount)
			totals.Income = totals.Income.Add(tx.Amount)
		} else {
			stats.TotalExpenses = stats.TotalExpenses.Add(tx.Amount)
			totals.Expenses = totals.Expenses.Add(tx.Amount)
		}
		totals.Count++
	}

	stats.NetIncome = stats.TotalIncome.Sub(stats.TotalExpenses)
	return stats, nil
}

// GetMonthlyTrends returns per-month income/expense totals over the last
// `months` calendar months, oldest first.
func (s *transactionService) GetMonthlyTrends(userID string, months int) ([]MonthlyTrend, error) {
	if months <= 0 {
		months = 6
	}

	now := time.Now()
	from := dayStart(now.AddDate(0, -months, 0))

	var transactions []models.Transaction
	err := s.db.
		Where("user_id = ? AND transaction_date >= ? AND transaction_date < ?",
			userID, from, dayStart(now).AddDate(0, 0, 1)).
		Order("transaction_date").
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	byMonth := make(map[string]*MonthlyTrend)
	for _, tx := range transactions {
		key := fmt.Sprintf("%04d-%02d", tx.TransactionDate.Year(), int(tx.TransactionDate.Month()))
		trend, ok := byMonth[key]
		if !ok {
			trend = &MonthlyTrend{Month: key, Income: decimal.Zero, Expenses: decimal.Zero}
			byMonth[key] = trend
		}

		if tx.Type == models.TransactionTypeIncome {
			trend.Income = trend.Income.Add(tx.Amount)
		} else {
			trend.Expenses = trend.Expenses.Add(tx.Amount)
		}
	}

	trends := make([]MonthlyTrend, 0, len(byMonth))
	for _, trend := range byMonth {
		trend.NetIncome = trend.Income.Sub(trend.Expenses)
		trends = append(trends, *trend)
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Month < trends[j].Month })

	return trends, nil
}

// verifyCategoryOwnership confirms the category exists and belongs to the user.
func (s *transactionService) verifyCategoryOwnership(userID, categoryID string) error {
	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidCategory
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
