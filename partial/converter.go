package partial

// Converter converts between a full type T and its partial type P.
type Converter[T, P any] interface {
	// IntoPartial converts a full value into a fully populated partial value.
	IntoPartial(v T) P
	// FromPartial rebuilds a full value. It returns *MissingFields (possibly
	// joined with other errors) when p does not carry enough data.
	FromPartial(p P) (T, error)
	// Merge applies p onto dst.
	Merge(dst *T, p P) error
}

// Of is implemented by every non-generic type with a generated partial
// counterpart P, and by P itself (where IntoPartial is the identity).
type Of[P any] interface {
	IntoPartial() P
}

// Funcs adapts plain functions to a Converter. A nil merge falls back to
// rebuilding the value with from and overwriting dst.
func Funcs[T, P any](into func(T) P, from func(P) (T, error), merge func(*T, P) error) Converter[T, P] {
	return funcs[T, P]{into: into, from: from, merge: merge}
}

type funcs[T, P any] struct {
	into  func(T) P
	from  func(P) (T, error)
	merge func(*T, P) error
}

func (f funcs[T, P]) IntoPartial(v T) P {
	return f.into(v)
}

func (f funcs[T, P]) FromPartial(p P) (T, error) {
	return f.from(p)
}

func (f funcs[T, P]) Merge(dst *T, p P) error {
	if f.merge != nil {
		return f.merge(dst, p)
	}

	v, err := f.from(p)
	if err != nil {
		return err
	}

	*dst = v

	return nil
}

// Leaf returns the identity converter used for types without inner
// structure. Merge overwrites.
func Leaf[T any]() Converter[T, T] {
	return leaf[T]{}
}

type leaf[T any] struct{}

func (leaf[T]) IntoPartial(v T) T {
	return v
}

func (leaf[T]) FromPartial(p T) (T, error) {
	return p, nil
}

func (leaf[T]) Merge(dst *T, p T) error {
	*dst = p
	return nil
}
