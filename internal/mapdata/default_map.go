package mapdata

// Default returns the built-in contiguous-US subset used when no map
// file is configured. Adjacency is declared one-directionally here;
// New symmetrizes it.
func Default() *Map {
	m, err := New(map[string][]string{
		"WA": {"OR", "ID"},
		"OR": {"ID", "NV", "CA"},
		"CA": {"NV", "AZ"},
		"ID": {"NV", "UT", "WY", "MT"},
		"NV": {"UT", "AZ"},
		"UT": {"AZ", "CO", "WY"},
		"AZ": {"NM"},
		"MT": {"WY", "ND", "SD"},
		"WY": {"CO", "SD", "NE"},
		"CO": {"NM", "NE", "KS", "OK"},
		"NM": {"OK", "TX"},
		"ND": {"SD", "MN"},
		"SD": {"NE", "MN", "IA"},
		"NE": {"KS", "IA", "MO"},
		"KS": {"OK", "MO"},
		"OK": {"TX", "MO", "AR"},
		"TX": {"AR", "LA"},
		"MN": {"IA", "WI"},
		"IA": {"MO", "WI", "IL"},
		"MO": {"AR", "IL", "KY", "TN"},
		"AR": {"LA", "TN", "MS"},
		"LA": {"MS"},
		"WI": {"IL", "MI"},
		"IL": {"IN", "KY"},
		"MI": {"IN", "OH"},
		"IN": {"OH", "KY"},
		"OH": {"KY", "WV", "PA"},
		"KY": {"TN", "WV", "VA"},
		"TN": {"MS", "AL", "GA", "NC", "VA"},
		"MS": {"AL"},
		"AL": {"GA", "FL"},
		"GA": {"FL", "SC", "NC"},
		"FL": {},
		"SC": {"NC"},
		"NC": {"VA"},
		"VA": {"WV", "MD"},
		"WV": {"PA", "MD"},
		"PA": {"MD", "NY", "NJ", "DE"},
		"MD": {"DE"},
		"DE": {"NJ"},
		"NJ": {"NY"},
		"NY": {"CT", "MA", "VT"},
		"CT": {"MA", "RI"},
		"RI": {"MA"},
		"MA": {"VT", "NH"},
		"VT": {"NH"},
		"NH": {"ME"},
		"ME": {},
	})
	if err != nil {
		panic(err) // static data, validated by tests
	}
	return m
}
