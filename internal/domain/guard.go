package domain

// GuardResult is the outcome of a runtime protection check (rate limiter,
// circuit breaker) performed outside the entity/actor model proper — these
// guard infrastructure calls to external systems (the broker, the HTTP
// layer), never entity command handling itself.
type GuardResult struct {
	Allowed bool
	Reason  string
	Guard   string
}
