package services

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "github.com/JereMicheloud/Backend-Gastos/internal/errors"
	"github.com/JereMicheloud/Backend-Gastos/internal/models"
)

// maxConcurrentEnrich bounds the per-budget spending fan-out when listing,
// keeping it below the store's connection-pool capacity.
const maxConcurrentEnrich = 4

// budgetService handles budget-related business logic: spending aggregation,
// derived views, the overlap invariant, and automatic budget synthesis.
type budgetService struct {
	db *gorm.DB
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

// enrich attaches computed spending data to a budget. Pure function: the
// read path carries no state beyond its inputs.
func enrich(budget models.Budget, spending *BudgetSpending) BudgetView {
	var percentage float64
	if budget.Amount.IsPositive() {
		percentage = spending.TotalSpent.Div(budget.Amount).InexactFloat64() * 100
	}
	return BudgetView{
		Budget:          budget,
		CurrentSpending: spending.TotalSpent,
		Remaining:       budget.Amount.Sub(spending.TotalSpent),
		PercentageUsed:  percentage,
		IsExceeded:      spending.TotalSpent.GreaterThan(budget.Amount),
	}
}

// spendingFor sums the expense transactions attributable to a budget:
// same user, same category, transaction date within [start_date, end_date]
// inclusive. Amounts accumulate in a decimal so many small transactions
// cannot drift.
func (s *budgetService) spendingFor(budget *models.Budget) (*BudgetSpending, error) {
	from := dayStart(budget.StartDate)
	to := dayStart(budget.EndDate).AddDate(0, 0, 1)

	var transactions []models.Transaction
	err := s.db.
		Where("user_id = ? AND category_id = ? AND type = ? AND transaction_date >= ? AND transaction_date < ?",
			budget.UserID, budget.CategoryID, models.TransactionTypeExpense, from, to).
		Order("transaction_date").
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	total := decimal.Zero
	for _, tx := range transactions {
		total = total.Add(tx.Amount)
	}

	return &BudgetSpending{
		TotalSpent:       total,
		TransactionCount: len(transactions),
		Transactions:     transactions,
	}, nil
}

// GetBudgetByID returns an enriched budget by ID if it belongs to the user.
// Ownership is part of the lookup predicate so other users' budget IDs are
// indistinguishable from missing ones.
func (s *budgetService) GetBudgetByID(userID, budgetID string) (*BudgetView, error) {
	var budget models.Budget
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	spending, err := s.spendingFor(&budget)
	if err != nil {
		return nil, err
	}

	view := enrich(budget, spending)
	view.Transactions = spending.Transactions
	return &view, nil
}

// GetUserBudgets returns all of the user's budgets, newest-created first,
// each enriched with its current spending. Per-budget aggregation is
// independent, so it fans out concurrently and reassembles in list order.
func (s *budgetService) GetUserBudgets(userID string) ([]BudgetView, error) {
	var budgets []models.Budget
	if err := s.db.Preload("Category").Where("user_id = ?", userID).Order("created_at DESC").Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	views := make([]BudgetView, len(budgets))
	var g errgroup.Group
	g.SetLimit(maxConcurrentEnrich)
	for i := range budgets {
		g.Go(func() error {
			spending, err := s.spendingFor(&budgets[i])
			if err != nil {
				return err
			}
			views[i] = enrich(budgets[i], spending)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return views, nil
}

// CreateBudget creates a new budget for a category after verifying category
// ownership and the non-overlap invariant.
func (s *budgetService) CreateBudget(userID string, input BudgetInput) (*BudgetView, error) {
	if !input.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	startDate := dayStart(input.StartDate)
	endDate := dayStart(input.EndDate)
	if endDate.Before(startDate) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end_date must not be before start_date")
	}

	if err := s.verifyCategoryOwnership(userID, input.CategoryID); err != nil {
		return nil, err
	}

	if err := s.checkOverlap(userID, input.CategoryID, startDate, endDate, ""); err != nil {
		return nil, err
	}

	budget := &models.Budget{
		UserID:     userID,
		CategoryID: input.CategoryID,
		Amount:     input.Amount,
		Period:     input.Period,
		StartDate:  startDate,
		EndDate:    endDate,
	}

	if err := s.db.Create(budget).Error; err != nil {
		// The application-level check above can lose a race; the storage
		// exclusion constraint is authoritative.
		if isExclusionViolation(err) {
			return nil, apperrors.ErrBudgetOverlap
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetBudgetByID(userID, budget.ID)
}

// UpdateBudget applies a partial update to an existing budget. Category
// ownership is re-validated when the category changes, and the overlap
// invariant is re-checked against the effective post-update range whenever
// the category or either date changes.
func (s *budgetService) UpdateBudget(userID, budgetID string, update BudgetUpdate) (*BudgetView, error) {
	var budget models.Budget
	if err := s.db.Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	categoryID := budget.CategoryID
	if update.CategoryID != nil {
		categoryID = *update.CategoryID
		if err := s.verifyCategoryOwnership(userID, categoryID); err != nil {
			return nil, err
		}
	}

	startDate := dayStart(budget.StartDate)
	if update.StartDate != nil {
		startDate = dayStart(*update.StartDate)
	}
	endDate := dayStart(budget.EndDate)
	if update.EndDate != nil {
		endDate = dayStart(*update.EndDate)
	}
	if endDate.Before(startDate) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end_date must not be before start_date")
	}

	if update.CategoryID != nil || update.StartDate != nil || update.EndDate != nil {
		if err := s.checkOverlap(userID, categoryID, startDate, endDate, budgetID); err != nil {
			return nil, err
		}
	}

	updates := make(map[string]interface{})
	if update.CategoryID != nil {
		updates["category_id"] = categoryID
	}
	if update.Amount != nil {
		if !update.Amount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		updates["amount"] = *update.Amount
	}
	if update.Period != nil {
		updates["period"] = *update.Period
	}
	if update.StartDate != nil {
		updates["start_date"] = startDate
	}
	if update.EndDate != nil {
		updates["end_date"] = endDate
	}

	if len(updates) > 0 {
		if err := s.db.Model(&budget).Updates(updates).Error; err != nil {
			if isExclusionViolation(err) {
				return nil, apperrors.ErrBudgetOverlap
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetBudgetByID(userID, budgetID)
}

// DeleteBudget deletes a budget. Transactions are category-scoped, not
// budget-scoped, so nothing cascades.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	var budget models.Budget
	if err := s.db.Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrBudgetNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.Delete(&budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetBudgetSpending returns the spending attributable to one budget.
func (s *budgetService) GetBudgetSpending(userID, budgetID string) (*BudgetSpending, error) {
	var budget models.Budget
	if err := s.db.Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.spendingFor(&budget)
}

// GetBudgetSummary rolls up all of the user's enriched budgets and returns
// the 5 most recently created ones alongside the aggregate stats.
func (s *budgetService) GetBudgetSummary(userID string) (*BudgetSummaryResult, error) {
	budgets, err := s.GetUserBudgets(userID)
	if err != nil {
		return nil, err
	}

	summary := BudgetSummary{
		TotalBudgets:   len(budgets),
		TotalBudgeted:  decimal.Zero,
		TotalSpent:     decimal.Zero,
		TotalRemaining: decimal.Zero,
	}

	today := dayStart(time.Now())
	for _, b := range budgets {
		summary.TotalBudgeted = summary.TotalBudgeted.Add(b.Amount)
		summary.TotalSpent = summary.TotalSpent.Add(b.CurrentSpending)

		if b.IsExceeded {
			summary.BudgetsExceeded++
		}
		start := dayStart(b.StartDate)
		end := dayStart(b.EndDate)
		if !start.After(today) && !end.Before(today) {
			summary.ActiveBudgets++
		}
		if start.After(today) {
			summary.UpcomingBudgets++
		}
	}

	summary.TotalRemaining = summary.TotalBudgeted.Sub(summary.TotalSpent)
	if summary.TotalBudgeted.IsPositive() {
		summary.OverallPercentage = summary.TotalSpent.Div(summary.TotalBudgeted).InexactFloat64() * 100
	}

	recent := budgets
	if len(recent) > 5 {
		recent = recent[:5]
	}

	return &BudgetSummaryResult{Summary: summary, RecentBudgets: recent}, nil
}

// CreateAutomaticBudget synthesizes a budget for a category from historical
// spending: it averages expense totals over a period-sized lookback window,
// applies the multiplier, and delegates to CreateBudget for a window that
// starts today. The suggested amount rounds half away from zero to cents.
func (s *budgetService) CreateAutomaticBudget(userID, categoryID string, period models.BudgetPeriod, multiplier float64) (*BudgetView, error) {
	if period == "" {
		period = models.BudgetPeriodMonthly
	}
	if multiplier <= 0 {
		multiplier = 1.1
	}

	if err := s.verifyCategoryOwnership(userID, categoryID); err != nil {
		return nil, err
	}

	now := time.Now()
	historyStart := lookbackStart(now, period)

	var transactions []models.Transaction
	err := s.db.
		Where("user_id = ? AND category_id = ? AND type = ? AND transaction_date >= ? AND transaction_date < ?",
			userID, categoryID, models.TransactionTypeExpense, dayStart(historyStart), dayStart(now).AddDate(0, 0, 1)).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if len(transactions) == 0 {
		return nil, apperrors.ErrInsufficientData
	}

	total := decimal.Zero
	for _, tx := range transactions {
		total = total.Add(tx.Amount)
	}

	periods := periodsBetween(historyStart, now, period)
	average := total.Div(decimal.NewFromInt(periods))
	suggested := average.Mul(decimal.NewFromFloat(multiplier)).Round(2)

	return s.CreateBudget(userID, BudgetInput{
		CategoryID: categoryID,
		Amount:     suggested,
		Period:     period,
		StartDate:  now,
		EndDate:    forwardEnd(now, period),
	})
}

// verifyCategoryOwnership confirms the category exists and belongs to the user.
func (s *budgetService) verifyCategoryOwnership(userID, categoryID string) error {
	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidCategory
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// checkOverlap enforces the non-overlap invariant: no other budget for the
// same user and category may intersect [startDate, endDate] (inclusive).
// excludeID skips the budget being updated.
func (s *budgetService) checkOverlap(userID, categoryID string, startDate, endDate time.Time, excludeID string) error {
	query := s.db.Model(&models.Budget{}).
		Where("user_id = ? AND category_id = ? AND start_date <= ? AND end_date >= ?",
			userID, categoryID, endDate, startDate)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrBudgetOverlap
	}
	return nil
}

// isExclusionViolation reports whether err is a Postgres exclusion or
// uniqueness violation raised by the budgets_no_overlap constraint.
func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23P01" || pgErr.Code == "23505"
	}
	return false
}
