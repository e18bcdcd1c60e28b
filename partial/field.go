package partial

// The helpers below are what generated converters call per field. A wrapped
// field of type T is stored as *P in the partial struct, where nil means
// "absent".

// Wrap converts v and returns a pointer to the result.
func Wrap[T, P any](c Converter[T, P], v T) *P {
	p := c.IntoPartial(v)
	return &p
}

// Unwrap rebuilds a wrapped field. A nil p records name as missing.
func Unwrap[T, P any](errs *Errors, name string, c Converter[T, P], p *P) T {
	var zero T
	if p == nil {
		errs.Missing(name)
		return zero
	}

	v, err := c.FromPartial(*p)
	if err != nil {
		errs.Add(name, err)
		return zero
	}

	return v
}

// MergeField merges a wrapped field into dst. A nil p leaves dst untouched.
func MergeField[T, P any](errs *Errors, name string, c Converter[T, P], dst *T, p *P) {
	if p == nil {
		return
	}

	errs.Add(name, c.Merge(dst, *p))
}

// A field already declared as *U keeps a single pointer layer in the partial
// struct: *U becomes *Partial(U), and nil keeps meaning nil.

// WrapNullable converts a nullable field.
func WrapNullable[T, P any](c Converter[T, P], v *T) *P {
	if v == nil {
		return nil
	}

	return Wrap(c, *v)
}

// UnwrapNullable rebuilds a nullable field. A nil p yields nil, never an
// error.
func UnwrapNullable[T, P any](errs *Errors, name string, c Converter[T, P], p *P) *T {
	if p == nil {
		return nil
	}

	v, err := c.FromPartial(*p)
	if err != nil {
		errs.Add(name, err)
		return nil
	}

	return &v
}

// MergeNullable merges a nullable field. A nil p leaves dst untouched; a nil
// dst is rebuilt from p.
func MergeNullable[T, P any](errs *Errors, name string, c Converter[T, P], dst **T, p *P) {
	if p == nil {
		return
	}

	if *dst == nil {
		v, err := c.FromPartial(*p)
		if err != nil {
			errs.Add(name, err)
			return
		}

		*dst = &v

		return
	}

	errs.Add(name, c.Merge(*dst, *p))
}
