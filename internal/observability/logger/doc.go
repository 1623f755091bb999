// Package logger provides the process-wide zap logger plus request-scoped
// loggers carried in the context.
//
// Initialization (once, in main):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
// In services (with context):
//
//	log := logger.From(ctx).With(logger.Layer("grant"), logger.Op("grant.facebook"))
//	log.Warn("client authentication failed", logger.ClientID(id))
//
// Token values and client secrets are never logged; use the typed helpers
// below, which only carry identifiers.
package logger
