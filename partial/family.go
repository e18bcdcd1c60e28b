package partial

import "errors"

// ErrVariants is returned when the partial form of a variant family holds
// more than one variant.
var ErrVariants = errors.New("more than one variant is set")

// Variant returns the index of the only true flag in set, or -1 when none
// is. Generated family converters pass one flag per variant, telling
// whether that variant's field is set.
func Variant(set ...bool) (int, error) {
	found := -1

	for i, ok := range set {
		if !ok {
			continue
		}

		if found >= 0 {
			return -1, ErrVariants
		}

		found = i
	}

	return found, nil
}
