// Package logger wraps zap to provide:
//   - a global sugared logger with a console encoder,
//   - a GitHub Actions flavour that renders entries as workflow commands,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and leveled convenience functions (Infof, WarnKV, etc.).
//
// Services take a context and pull the logger from it, so every pipeline
// stage logs under its own name.
package logger
