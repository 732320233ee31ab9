// Package redis opens go-redis clients for the session store and the rate
// limiter, with startup retries, a readiness check and a shutdown hook.
//
//	client, err := redis.Open(ctx, redis.Config{URL: os.Getenv("REDIS_URL")})
//	if err != nil {
//	    return err
//	}
//	app, _ := pie.New(site,
//	    pie.WithSessionStore(session.NewRedisStore(client)),
//	    pie.WithHealthChecks(pie.WithReadinessCheck("redis", redis.Healthcheck(client))),
//	)
//	app.Run(pie.ShutdownHook(redis.Shutdown(client)))
package redis
