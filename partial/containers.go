package partial

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// Slice converts []T element by element. Merge rebuilds the whole slice from
// the update and overwrites dst; elements are never merged one by one.
func Slice[T, P any](elem Converter[T, P]) Converter[[]T, []P] {
	return slice[T, P]{elem: elem}
}

type slice[T, P any] struct {
	elem Converter[T, P]
}

func (c slice[T, P]) IntoPartial(v []T) []P {
	if v == nil {
		return nil
	}

	out := make([]P, len(v))
	for i := range v {
		out[i] = c.elem.IntoPartial(v[i])
	}

	return out
}

func (c slice[T, P]) FromPartial(p []P) ([]T, error) {
	if p == nil {
		return nil, nil
	}

	var errs Errors

	out := make([]T, len(p))
	for i := range p {
		v, err := c.elem.FromPartial(p[i])
		errs.Add(index(i), err)
		out[i] = v
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func (c slice[T, P]) Merge(dst *[]T, p []P) error {
	v, err := c.FromPartial(p)
	if err != nil {
		return err
	}

	*dst = v

	return nil
}

// Set is the converter for map[K]struct{}. Keys are never transformed, so a
// set is its own partial; merge overwrites.
func Set[K comparable]() Converter[map[K]struct{}, map[K]struct{}] {
	return Leaf[map[K]struct{}]()
}

// Map converts map values and leaves keys untouched. Merge rebuilds each
// value present in the update and stores it under its key; keys absent from
// the update keep their current value.
func Map[K comparable, T, P any](elem Converter[T, P]) Converter[map[K]T, map[K]P] {
	return mapping[K, T, P]{elem: elem}
}

type mapping[K comparable, T, P any] struct {
	elem Converter[T, P]
}

func (c mapping[K, T, P]) IntoPartial(v map[K]T) map[K]P {
	if v == nil {
		return nil
	}

	out := make(map[K]P, len(v))
	for k, e := range v {
		out[k] = c.elem.IntoPartial(e)
	}

	return out
}

func (c mapping[K, T, P]) FromPartial(p map[K]P) (map[K]T, error) {
	if p == nil {
		return nil, nil
	}

	var errs Errors

	out := make(map[K]T, len(p))
	for _, k := range sortedKeys(p) {
		v, err := c.elem.FromPartial(p[k])
		if err != nil {
			errs.Add(key(k), err)
			continue
		}

		out[k] = v
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func (c mapping[K, T, P]) Merge(dst *map[K]T, p map[K]P) error {
	if len(p) == 0 {
		return nil
	}

	if *dst == nil {
		*dst = make(map[K]T, len(p))
	}

	var errs Errors

	for _, k := range sortedKeys(p) {
		v, err := c.elem.FromPartial(p[k])
		if err != nil {
			errs.Add(key(k), err)
			continue
		}

		(*dst)[k] = v
	}

	return errs.Err()
}

// sortedKeys orders keys by their printed form so errors come out in a
// stable order.
func sortedKeys[K comparable, V any](m map[K]V) []K {
	keys := slices.Collect(maps.Keys(m))
	slices.SortFunc(keys, func(a, b K) int {
		return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
	})

	return keys
}

// Pointer converts *T through its pointee. A nil pointer stays nil in both
// directions. Merge follows the pointer and merges the value it points to;
// a nil destination is allocated from the update and a nil update clears the
// destination.
func Pointer[T, P any](elem Converter[T, P]) Converter[*T, *P] {
	return pointer[T, P]{elem: elem}
}

type pointer[T, P any] struct {
	elem Converter[T, P]
}

func (c pointer[T, P]) IntoPartial(v *T) *P {
	if v == nil {
		return nil
	}

	p := c.elem.IntoPartial(*v)

	return &p
}

func (c pointer[T, P]) FromPartial(p *P) (*T, error) {
	if p == nil {
		return nil, nil
	}

	v, err := c.elem.FromPartial(*p)
	if err != nil {
		return nil, err
	}

	return &v, nil
}

func (c pointer[T, P]) Merge(dst **T, p *P) error {
	if p == nil {
		*dst = nil
		return nil
	}

	if *dst == nil {
		v, err := c.elem.FromPartial(*p)
		if err != nil {
			return err
		}

		*dst = &v

		return nil
	}

	return c.elem.Merge(*dst, *p)
}
