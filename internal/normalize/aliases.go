package normalize

// aliasEntry maps one canonical merchant identity to the cleaned label
// patterns that resolve to it. Patterns are written post-cleaning:
// lowercase, separators collapsed to single spaces.
type aliasEntry struct {
	Canonical string
	// Parent is set for sub-brands that fold into a parent brand under
	// the default grouping policy.
	Parent   string
	Patterns []string
}

// merchantAliases is the static alias table. Order matters for substring
// containment: more specific entries (sub-brands) come before their parent
// brand, and brand-shadowing entries (Applebee's vs Apple) come before the
// brand they shadow. The table is read-only at run time; it changes only by
// code change.
var merchantAliases = []aliasEntry{
	{Canonical: "Uber Eats", Parent: "Uber", Patterns: []string{"uber eats", "ubereats"}},
	{Canonical: "Uber", Patterns: []string{"uber", "uber trip", "uber technologies"}},
	{Canonical: "Lyft", Patterns: []string{"lyft"}},

	{Canonical: "Amazon", Patterns: []string{"amazon", "amazon com", "amzn", "amz", "amzn mktp"}},
	{Canonical: "Walmart", Patterns: []string{"walmart", "wal mart", "walmart com", "walmart supercenter"}},
	{Canonical: "Target", Patterns: []string{"target"}},
	{Canonical: "Costco", Patterns: []string{"costco", "costco whse"}},
	{Canonical: "Best Buy", Patterns: []string{"best buy", "bestbuy"}},
	{Canonical: "Home Depot", Patterns: []string{"home depot", "the home depot"}},

	{Canonical: "CVS Pharmacy", Patterns: []string{"cvs", "cvs pharmacy"}},
	{Canonical: "Walgreens", Patterns: []string{"walgreens", "walgreen"}},

	{Canonical: "Starbucks", Patterns: []string{"starbucks", "sbux"}},
	{Canonical: "McDonald's", Patterns: []string{"mcdonald's", "mcdonalds", "mcd"}},
	{Canonical: "Chipotle", Patterns: []string{"chipotle", "chipotle mexican grill"}},
	{Canonical: "Whole Foods", Patterns: []string{"whole foods", "wholefds"}},
	{Canonical: "DoorDash", Patterns: []string{"doordash", "dd doordash"}},
	{Canonical: "Grubhub", Patterns: []string{"grubhub"}},

	{Canonical: "Netflix", Patterns: []string{"netflix", "netflix com"}},
	{Canonical: "Spotify", Patterns: []string{"spotify"}},

	{Canonical: "Applebee's", Patterns: []string{"applebee's", "applebees"}},
	{Canonical: "Apple", Patterns: []string{"apple", "apple com bill", "itunes"}},
	{Canonical: "Google", Patterns: []string{"google", "google play"}},
	{Canonical: "Microsoft", Patterns: []string{"microsoft", "msft"}},

	{Canonical: "Shell", Patterns: []string{"shell", "shell oil"}},
	{Canonical: "Chevron", Patterns: []string{"chevron"}},
	{Canonical: "Delta Air Lines", Patterns: []string{"delta", "delta air", "delta airlines", "delta air lines"}},
}
