// Package resilience holds the fault-tolerance building blocks shared
// across the engine: circuit breakers (sony/gobreaker profiles for the
// HTTP substrate, proxy health probes, and the database) and retry with
// exponential backoff plus jitter for transient failures.
//
//	cb := circuitbreaker.New(circuitbreaker.DefaultConfig("upstream"))
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return callUpstream()
//	})
//
//	err := retry.WithBackoff(ctx, retry.DBConfig(), func() error {
//	    return db.PingContext(ctx)
//	})
package resilience
