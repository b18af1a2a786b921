// Package bootstrap wires configuration, logging, the feed cache, the
// aggregation pipeline and the query service into one application.
//
// Usage:
//
//	app, err := bootstrap.NewApp(bootstrap.Options{ConfigPath: "config.yaml"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer app.Shutdown()
//
//	if err := app.InitPipeline(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	result, err := app.RunPipeline(ctx, true, nil)
package bootstrap
