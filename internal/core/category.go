package core

// Category is static reference data; movements refer to it by ID.
type Category struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Icon  string       `json:"icon"`
	Color string       `json:"color"`
	Type  MovementType `json:"type"`
}

const (
	FallbackCategoryColor = "#BDC3C7"
	FallbackCategoryIcon  = "📦"
)

var expenseCategories = []Category{
	{ID: "food", Name: "Food", Icon: "🍔", Color: "#FF6B6B", Type: Expense},
	{ID: "transport", Name: "Transport", Icon: "🚗", Color: "#4ECDC4", Type: Expense},
	{ID: "entertainment", Name: "Entertainment", Icon: "🎮", Color: "#95E1D3", Type: Expense},
	{ID: "shopping", Name: "Shopping", Icon: "🛍️", Color: "#F38181", Type: Expense},
	{ID: "health", Name: "Health", Icon: "💊", Color: "#AA96DA", Type: Expense},
	{ID: "bills", Name: "Bills", Icon: "📄", Color: "#FCBAD3", Type: Expense},
	{ID: "education", Name: "Education", Icon: "📚", Color: "#A8D8EA", Type: Expense},
	{ID: "other", Name: "Other", Icon: "📦", Color: "#BDC3C7", Type: Expense},
}

var incomeCategories = []Category{
	{ID: "salary", Name: "Salary", Icon: "💰", Color: "#2ECC71", Type: Income},
	{ID: "freelance", Name: "Freelance", Icon: "💼", Color: "#3498DB", Type: Income},
	{ID: "investment", Name: "Investments", Icon: "📈", Color: "#9B59B6", Type: Income},
	{ID: "gift", Name: "Gift", Icon: "🎁", Color: "#E74C3C", Type: Income},
	{ID: "other-income", Name: "Other", Icon: "💵", Color: "#1ABC9C", Type: Income},
}

var categoriesByID = func() map[string]Category {
	m := make(map[string]Category, len(expenseCategories)+len(incomeCategories))
	for _, c := range expenseCategories {
		m[c.ID] = c
	}
	for _, c := range incomeCategories {
		m[c.ID] = c
	}
	return m
}()

// ExpenseCategories returns a copy of the expense catalog.
func ExpenseCategories() []Category {
	return append([]Category(nil), expenseCategories...)
}

// IncomeCategories returns a copy of the income catalog.
func IncomeCategories() []Category {
	return append([]Category(nil), incomeCategories...)
}

// Categories returns both catalogs, expenses first.
func Categories() []Category {
	out := make([]Category, 0, len(expenseCategories)+len(incomeCategories))
	out = append(out, expenseCategories...)
	return append(out, incomeCategories...)
}

// CategoriesFor returns the catalog for t, or every category when t is empty.
func CategoriesFor(t MovementType) []Category {
	switch t {
	case Expense:
		return ExpenseCategories()
	case Income:
		return IncomeCategories()
	default:
		return Categories()
	}
}

// LookupCategory finds a catalog entry. Retired or unknown ids report false.
func LookupCategory(id string) (Category, bool) {
	c, ok := categoriesByID[id]
	return c, ok
}

// DisplayCategory never fails: unknown ids render with the raw id as name and
// the neutral fallback icon and color.
func DisplayCategory(id string) Category {
	if c, ok := LookupCategory(id); ok {
		return c
	}
	return Category{ID: id, Name: id, Icon: FallbackCategoryIcon, Color: FallbackCategoryColor}
}
