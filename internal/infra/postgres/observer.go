package postgres

import (
	"context"

	"github.com/rs/zerolog"
)

// LogObserver is a zerolog-backed gateway.StoreObserver. Query starts log at
// trace so production noise stays off by default; errors log at error.
type LogObserver struct {
	logger zerolog.Logger
}

func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnQueryStart(_ context.Context, operation string) {
	o.logger.Trace().Str("query", operation).Msg("store query")
}

func (o *LogObserver) OnQueryError(_ context.Context, operation string, err error) {
	o.logger.Error().Err(err).Str("query", operation).Msg("store query failed")
}
