// Command nakama builds the Durak runtime plugin (go build -buildmode=plugin).
package main

import (
	"context"
	"database/sql"

	"durak/internal/ports/nakama"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule is the symbol Nakama looks up when loading the plugin. It hands
// off to the adapter, which registers the hall match, RPCs and hooks.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	return nakama.InitModule(ctx, logger, db, nk, initializer)
}
