// Package health serves liveness and readiness probes. Readiness runs the
// registered checks concurrently and reports each one.
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//	    "redis":    redis.Healthcheck(client),
//	    "postgres": db.Healthcheck(pool),
//	}))
package health
