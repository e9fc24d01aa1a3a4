package relational

import (
	"log/slog"
	"time"

	"gorm.io/gorm/logger"
)

// newGormLogger routes gorm's query log through slog at warn level, so only
// slow queries and failures are reported.
func newGormLogger(log *slog.Logger, slowThreshold time.Duration) logger.Interface {
	return logger.New(
		slog.NewLogLogger(log.With(slog.String("component", "gorm")).Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             slowThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
