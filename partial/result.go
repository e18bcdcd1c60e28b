package partial

// Result is a tagged outcome: either Value or, when Err is set, a failure.
// Only the value arm takes part in partial conversion; Err is carried as is.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok returns a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail returns a failed Result.
func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// ResultOf converts the value arm of a Result with elem.
//
// Merge replaces dst wholesale when either side holds an error and merges
// the value arms otherwise.
func ResultOf[T, P any](elem Converter[T, P]) Converter[Result[T], Result[P]] {
	return result[T, P]{elem: elem}
}

type result[T, P any] struct {
	elem Converter[T, P]
}

func (c result[T, P]) IntoPartial(v Result[T]) Result[P] {
	if v.Err != nil {
		return Result[P]{Err: v.Err}
	}

	return Result[P]{Value: c.elem.IntoPartial(v.Value)}
}

func (c result[T, P]) FromPartial(p Result[P]) (Result[T], error) {
	if p.Err != nil {
		return Result[T]{Err: p.Err}, nil
	}

	v, err := c.elem.FromPartial(p.Value)
	if err != nil {
		return Result[T]{}, err
	}

	return Result[T]{Value: v}, nil
}

func (c result[T, P]) Merge(dst *Result[T], p Result[P]) error {
	if p.Err != nil || dst.Err != nil {
		v, err := c.FromPartial(p)
		if err != nil {
			return err
		}

		*dst = v

		return nil
	}

	return c.elem.Merge(&dst.Value, p.Value)
}
