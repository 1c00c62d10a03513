// Package errors provides structured error types for the squoosh-kit library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: field path, codec and
// operation names, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindOutOfRange).
//		Path("quality").
//		Value(101).
//		Detail("quality must be in [0, 100], got 101").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfRange("quality", 101, 0, 100)
//	err := errors.WorkerTimeout(10 * time.Second)
//
// All errors implement the standard error interface and support errors.Is/As.
// Two *Error values match under errors.Is when their Phase and Kind agree,
// so callers can test for a category without constructing the exact message:
//
//	if errors.StdIs(err, errors.Aborted(errors.PhaseDispatch, nil)) { ... }
package errors
