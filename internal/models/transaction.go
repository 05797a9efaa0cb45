package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Transaction represents a single income or expense movement
type Transaction struct {
	Base
	UserID          string          `gorm:"type:uuid;not null;index" json:"user_id"`
	CategoryID      string          `gorm:"type:uuid;not null;index" json:"category_id"`
	Type            TransactionType `gorm:"not null" json:"type"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Description     string          `json:"description"`
	TransactionDate time.Time       `gorm:"not null;index" json:"transaction_date"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
