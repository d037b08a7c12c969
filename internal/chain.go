package internal

// runChain executes mws in order and then terminal.
// The cursor lives in this call, so concurrent requests sharing the same
// middleware slice never observe each other's position. A middleware that
// returns without calling next stops the chain; its output is the result.
func runChain(c Context, mws []MiddlewareFunc, terminal HandlerFunc) (any, error) {
	idx := 0
	var next Next
	next = func() (any, error) {
		if idx >= len(mws) {
			if terminal == nil {
				return nil, nil
			}
			return terminal(c)
		}
		mw := mws[idx]
		idx++
		return mw(c, next)
	}
	return next()
}

// Chain composes middlewares into a single MiddlewareFunc.
// Calling next from the last inner middleware resumes the outer chain.
// Nil middlewares are skipped.
func Chain(mws ...MiddlewareFunc) MiddlewareFunc {
	mws = compact(mws)
	return func(c Context, next Next) (any, error) {
		return runChain(c, mws, func(Context) (any, error) { return next() })
	}
}
