package nakama

import (
	"context"
	"database/sql"
	"errors"

	"durak/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// rpcVivoxLoginToken issues a Vivox login token for the calling user. Channel
// join tokens are requested in-match through OpVoiceToken so that the channel
// is bound to the caller's session.
func (m *Module) rpcVivoxLoginToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	token, err := m.Vivox.GenerateToken(userID, app.VivoxTokenActionLogin, "")
	switch {
	case errors.Is(err, app.ErrVivoxNotConfigured):
		return "", runtime.NewError("voice chat is not configured", 13)
	case errors.Is(err, app.ErrVivoxUserRequired):
		return "", runtime.NewError("user id is required", 3)
	case err != nil:
		logger.Error("Failed to generate Vivox token: %v", err)
		return "", runtime.NewError("internal error", 13)
	}
	return marshalResponse(logger, voiceTokenToMsg(token))
}
