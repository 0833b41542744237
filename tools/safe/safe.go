package safe

import (
	"context"
	"errors"
	"runtime/debug"

	"PClient/logger"
	errs "PClient/tools/errs"
)

// IsFatal reports whether a recovered panic value is one the process must not
// survive: a cache type mismatch means the entity cache is inconsistent, and
// continuing would serve corrupt state. Recover wrappers re-raise these
// instead of swallowing them.
func IsFatal(r any) bool {
	err, ok := r.(error)
	return ok && errors.Is(err, errs.ErrCacheTypeMismatch)
}

// Go starts a named goroutine that recovers from panics, so a misbehaving
// callback can't take the whole client down. Fatal panics (IsFatal) are
// logged and re-raised, aborting the process.
func Go(name string, f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if IsFatal(r) {
					logger.Errorf("[safe.Go] %s fatal: %v\n%s", name, r, debug.Stack())
					panic(r)
				}
				logger.Errorf("[safe.Go] %s panic recovered: %v\n%s", name, r, debug.Stack())
			}
		}()
		f()
	}()
}

// GoCtx is Go with an explicit context handed to the task. Every long-lived
// gateway task takes its cancellation context as a parameter.
func GoCtx(ctx context.Context, name string, f func(ctx context.Context)) {
	Go(name, func() { f(ctx) })
}
