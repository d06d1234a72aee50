package ports

import "context"

// AccountPort updates the profile of a platform account.
type AccountPort interface {
	// UpdateProfile sets the username and display name of userID. The display
	// name doubles as the player's stats key.
	UpdateProfile(ctx context.Context, userID, username, displayName string) error
}
