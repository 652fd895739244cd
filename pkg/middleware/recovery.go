package middleware

import (
	"runtime/debug"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// RecoveryConfig configurazione del middleware di recovery
type RecoveryConfig struct {
	// EnableStackTrace abilita il log dello stack trace
	EnableStackTrace bool

	// ErrorResponse risposta custom dopo un panic
	ErrorResponse func(c fiber.Ctx, recovered interface{}) error
}

// DefaultRecoveryConfig configurazione di default
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		EnableStackTrace: true,
		ErrorResponse: func(c fiber.Ctx, _ interface{}) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":      "internal_server_error",
				"message":    "an unexpected error occurred",
				"request_id": GetRequestID(c),
			})
		},
	}
}

// Recovery cattura i panic degli handler e risponde con un errore 500.
// Il dettaglio del panic finisce solo nei log, mai nella risposta.
func Recovery(config ...RecoveryConfig) fiber.Handler {
	cfg := DefaultRecoveryConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	return func(c fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			event := log.Error().
				Str("request_id", GetRequestID(c)).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Interface("panic", r)
			if cfg.EnableStackTrace {
				event = event.Bytes("stack", debug.Stack())
			}
			event.Msg("panic recovered")

			if cfg.ErrorResponse != nil {
				err = cfg.ErrorResponse(c, r)
				return
			}
			err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "internal_server_error",
			})
		}()

		return c.Next()
	}
}
