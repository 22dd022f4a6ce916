package normalize

// Tables holds the lookup data used for creditor canonicalization. Tables are
// immutable after construction; the engine never mutates them at runtime.
type Tables struct {
	// Abbreviations maps long-form institution phrases to their canonical
	// short forms. Keys and values are already lowercased and cleaned.
	Abbreviations map[string]string

	// FillerTokens are generic tokens dropped from creditor names when the
	// name still has more than two tokens.
	FillerTokens map[string]bool

	// PreservedBrands are brand abbreviations that are never dropped as
	// fillers, even when they collide with a filler token.
	PreservedBrands map[string]bool
}

// DefaultTables returns the built-in canonicalization tables.
func DefaultTables() Tables {
	return Tables{
		Abbreviations: map[string]string{
			"bank of america":               "boa",
			"jp morgan chase":               "chase",
			"jpmorgan chase":                "chase",
			"chase bank usa":                "chase",
			"american express":              "amex",
			"capital one":                   "cap1",
			"synchrony bank":                "syncb",
			"synchrony financial":           "syncb",
			"citibank":                      "citi",
			"citicards":                     "citi",
			"wells fargo bank":              "wells fargo",
			"discover financial services":   "discover",
			"discover bank":                 "discover",
			"navy federal credit union":     "navy federal",
			"portfolio recovery associates": "portfolio recovery",
			"credit one bank":               "credit one",
			"us bank national association":  "us bank",
		},
		FillerTokens: map[string]bool{
			"bank":      true,
			"credit":    true,
			"card":      true,
			"company":   true,
			"corp":      true,
			"co":        true,
			"inc":       true,
			"llc":       true,
			"financial": true,
			"services":  true,
		},
		PreservedBrands: map[string]bool{
			"syncb":    true,
			"cap1":     true,
			"amex":     true,
			"boa":      true,
			"citi":     true,
			"chase":    true,
			"discover": true,
			"usaa":     true,
		},
	}
}
