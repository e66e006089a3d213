package inference

// UncoveredCategories returns the allowed values for column that the
// preprocessor's encoder has no category for. A column the preprocessor does
// not encode reports every value as uncovered.
func UncoveredCategories(p *Preprocessor, column string, allowed []string) []string {
	known := make(map[string]struct{})
	for _, c := range p.Categories(column) {
		known[c] = struct{}{}
	}

	var missing []string
	for _, v := range allowed {
		if _, ok := known[v]; !ok {
			missing = append(missing, v)
		}
	}
	return missing
}
