package nakama

import (
	"context"
	"errors"
	"strings"

	"durak/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

var errNoDisplayName = errors.New("account has no display name")

// NakamaAccountAdapter implements ports.AccountPort on Nakama accounts.
type NakamaAccountAdapter struct {
	nk runtime.NakamaModule
}

func NewNakamaAccountAdapter(nk runtime.NakamaModule) *NakamaAccountAdapter {
	return &NakamaAccountAdapter{nk: nk}
}

// UpdateProfile sets the username and display name. The display name is the
// player's stats key.
func (a *NakamaAccountAdapter) UpdateProfile(ctx context.Context, userID, username, displayName string) error {
	return a.nk.AccountUpdateId(ctx, userID, username, nil, displayName, "", "", "", "")
}

// DisplayName returns the trimmed display name of userID.
func (a *NakamaAccountAdapter) DisplayName(ctx context.Context, userID string) (string, error) {
	account, err := a.nk.AccountGetId(ctx, userID)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(account.GetUser().GetDisplayName())
	if name == "" {
		return "", errNoDisplayName
	}
	return name, nil
}

var _ ports.AccountPort = (*NakamaAccountAdapter)(nil)
