package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/JereMicheloud/Backend-Gastos/internal/errors"
	"github.com/JereMicheloud/Backend-Gastos/internal/logger"
	"github.com/JereMicheloud/Backend-Gastos/internal/models"
	"github.com/JereMicheloud/Backend-Gastos/internal/pagination"
)

// defaultCategories is seeded for every new user at registration.
var defaultCategories = []models.Category{
	{Name: "Food", Icon: "utensils", Color: "#EF4444"},
	{Name: "Transport", Icon: "car", Color: "#3B82F6"},
	{Name: "Entertainment", Icon: "gamepad-2", Color: "#8B5CF6"},
	{Name: "Health", Icon: "heart", Color: "#10B981"},
	{Name: "Education", Icon: "book", Color: "#F59E0B"},
	{Name: "Shopping", Icon: "shopping-bag", Color: "#EC4899"},
	{Name: "Utilities", Icon: "home", Color: "#6B7280"},
	{Name: "Income", Icon: "trending-up", Color: "#059669"},
}

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a new category
func (s *categoryService) CreateCategory(userID, name, icon, color string) (*models.Category, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	// Check if a category with the same name already exists for this user
	var count int64
	if err := s.db.Model(&models.Category{}).
		Where("user_id = ? AND name = ?", userID, name).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if count > 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category with this name already exists")
	}

	category := &models.Category{
		UserID: userID,
		Name:   name,
		Icon:   icon,
		Color:  color,
	}

	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// GetUserCategories retrieves a paginated list of categories for a user.
func (s *categoryService) GetUserCategories(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Category{}).Where("user_id = ?", userID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := base.Order("name").Scopes(pagination.Paginate(page)).Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetCategoryByID retrieves a category by ID for a specific user
func (s *categoryService) GetCategoryByID(userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory updates an existing category's fields.
func (s *categoryService) UpdateCategory(userID, categoryID, name, icon, color string) (*models.Category, error) {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if icon != "" {
		updates["icon"] = icon
	}
	if color != "" {
		updates["color"] = color
	}

	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return category, nil
}

// DeleteCategory deletes a category unless transactions or budgets still
// reference it.
func (s *categoryService) DeleteCategory(userID, categoryID string) error {
	if _, err := s.GetCategoryByID(userID, categoryID); err != nil {
		return err
	}

	var txCount int64
	if err := s.db.Model(&models.Transaction{}).Where("category_id = ?", categoryID).Count(&txCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if txCount > 0 {
		return apperrors.WithMessage(apperrors.ErrCategoryInUse, "Category has associated transactions")
	}

	var budgetCount int64
	if err := s.db.Model(&models.Budget{}).Where("category_id = ?", categoryID).Count(&budgetCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if budgetCount > 0 {
		return apperrors.WithMessage(apperrors.ErrCategoryInUse, "Category has associated budgets")
	}

	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).Delete(&models.Category{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetCategoryStats aggregates per-category income/expense totals for the
// current stats window, with each category's share of total expenses.
func (s *categoryService) GetCategoryStats(userID string, period StatsPeriod) (*CategoryStats, error) {
	from, to := statsWindow(time.Now(), period)

	var transactions []models.Transaction
	err := s.db.Preload("Category").
		Where("user_id = ? AND transaction_date >= ? AND transaction_date < ?",
			userID, from, to.AddDate(0, 0, 1)).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	byCategory := make(map[string]*CategoryStatEntry)
	order := make([]string, 0)
	for _, tx := range transactions {
		entry, ok := byCategory[tx.CategoryID]
		if !ok {
			entry = &CategoryStatEntry{
				CategoryID:    tx.CategoryID,
				TotalIncome:   decimal.Zero,
				TotalExpenses: decimal.Zero,
			}
			if tx.Category != nil {
				entry.Name = tx.Category.Name
				entry.Icon = tx.Category.Icon
				entry.Color = tx.Category.Color
			}
			byCategory[tx.CategoryID] = entry
			order = append(order, tx.CategoryID)
		}

		if tx.Type == models.TransactionTypeIncome {
			entry.TotalIncome = entry.TotalIncome.Add(tx.Amount)
		} else {
			entry.TotalExpenses = entry.TotalExpenses.Add(tx.Amount)
		}
		entry.TransactionCount++
	}

	totalExpenses := decimal.Zero
	for _, entry := range byCategory {
		totalExpenses = totalExpenses.Add(entry.TotalExpenses)
	}

	entries := make([]CategoryStatEntry, 0, len(byCategory))
	for _, id := range order {
		entry := byCategory[id]
		if totalExpenses.IsPositive() {
			entry.Percentage = entry.TotalExpenses.Div(totalExpenses).InexactFloat64() * 100
		}
		entry.NetAmount = entry.TotalIncome.Sub(entry.TotalExpenses)
		entries = append(entries, *entry)
	}

	return &CategoryStats{
		Categories:    entries,
		Period:        period,
		StartDate:     from.Format("2006-01-02"),
		EndDate:       to.Format("2006-01-02"),
		TotalExpenses: totalExpenses,
	}, nil
}

// CreateDefaultCategories seeds the starter categories for a new user.
// Failures are logged but never surfaced: registration must not break on a
// missing default category.
func (s *categoryService) CreateDefaultCategories(userID string) ([]models.Category, error) {
	created := make([]models.Category, 0, len(defaultCategories))
	for _, c := range defaultCategories {
		category := models.Category{
			UserID: userID,
			Name:   c.Name,
			Icon:   c.Icon,
			Color:  c.Color,
		}
		if err := s.db.Create(&category).Error; err != nil {
			logger.Get().Warnw("failed to create default category",
				"user_id", userID,
				"category", c.Name,
				"error", err.Error(),
			)
			continue
		}
		created = append(created, category)
	}
	return created, nil
}

// statsWindow returns the [from, to] calendar-date range for a stats period.
func statsWindow(now time.Time, period StatsPeriod) (time.Time, time.Time) {
	today := dayStart(now)
	switch period {
	case StatsPeriodDay:
		return today, today
	case StatsPeriodWeek:
		// Week starts on Sunday.
		from := today.AddDate(0, 0, -int(today.Weekday()))
		return from, from.AddDate(0, 0, 6)
	case StatsPeriodYear:
		from := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return from, time.Date(now.Year(), 12, 31, 0, 0, 0, 0, now.Location())
	default:
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return from, from.AddDate(0, 1, -1)
	}
}
