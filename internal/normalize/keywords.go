package normalize

// categoryKeywords binds one category to the keyword substrings that select
// it, matched case-insensitively against the canonical merchant identity.
type categoryKeywords struct {
	Category string
	Keywords []string
}

// categoryTable is checked in order; the order is part of the contract.
// Priority: Food, Health, Transportation, Entertainment, Technology,
// Shopping. Health precedes Transportation so "Delta Dental" lands in
// Health while "Delta Air Lines" still lands in Transportation; Technology
// precedes Shopping so "Amazon AWS" resolves to Technology while a plain
// "Amazon" resolves to Shopping.
var categoryTable = []categoryKeywords{
	{Category: "Food", Keywords: []string{
		"starbucks", "mcdonald", "chipotle", "applebee", "doordash", "grubhub",
		"whole foods", "restaurant", "pizza", "coffee", "burger", "taco",
		"grill", "cafe", "café", "diner", "bakery", "deli", "sushi",
		"kroger", "safeway", "grocery",
	}},
	{Category: "Health", Keywords: []string{
		"cvs", "walgreens", "pharmacy", "medical", "dental", "clinic",
		"doctor", "hospital", "health",
	}},
	{Category: "Transportation", Keywords: []string{
		"uber", "lyft", "shell", "chevron", "exxon", "gas", "fuel",
		"airlines", "air lines", "delta", "united air", "transit", "metro",
		"parking", "taxi", "toll",
	}},
	{Category: "Entertainment", Keywords: []string{
		"netflix", "spotify", "hulu", "disney", "cinema", "theater",
		"theatre", "steam", "playstation", "xbox", "concert", "amc",
	}},
	{Category: "Technology", Keywords: []string{
		"apple", "microsoft", "google", "adobe", "github", "aws",
		"dropbox", "slack", "zoom",
	}},
	{Category: "Shopping", Keywords: []string{
		"amazon", "walmart", "target", "costco", "ebay", "etsy",
		"best buy", "home depot", "ikea", "nordstrom", "macy", "store",
		"shop", "mall",
	}},
}
