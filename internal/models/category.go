package models

// TransactionType tags a ledger entry as money coming in or going out.
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Category is one of the fixed buckets a transaction is filed under.
type Category string

const (
	Food     Category = "Food"
	Travel   Category = "Travel"
	Salary   Category = "Salary"
	Shopping Category = "Shopping"
	Other    Category = "Other"
)

// Categories lists every accepted category in display order.
var Categories = []Category{Food, Travel, Salary, Shopping, Other}

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Valid reports whether c belongs to the fixed category set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
