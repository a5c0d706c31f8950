package app

import (
	"context"
	"log/slog"

	"filevault/internal/util"
)

func logFromContext(ctx context.Context) *slog.Logger {
	return util.LoggerFromContext(ctx)
}
