// Package httpserver runs an HTTP server with graceful shutdown.
//
// The server stops on context cancellation or on SIGINT/SIGTERM, draining
// in-flight requests within a configurable shutdown timeout. Configuration
// comes from functional options or an env-tagged Config.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
package httpserver
