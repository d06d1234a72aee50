package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Identity is a bot profile from the identities file.
type Identity struct {
	DeviceID    string `json:"device_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Difficulty  string `json:"difficulty"` // "easy", "good" or "sharp"
	AvatarIndex int    `json:"avatar_index"`
}

// Roster is the pool of bot identities.
type Roster struct {
	mu         sync.RWMutex
	identities []Identity
	byID       map[string]Identity
}

// NewRoster builds a roster from identities. Entries without a user id get a
// synthetic one.
func NewRoster(identities []Identity) *Roster {
	r := &Roster{byID: make(map[string]Identity)}
	for i, identity := range identities {
		if identity.UserID == "" {
			identity.UserID = fmt.Sprintf("bot-%d", i)
		}
		if identity.DisplayName == "" {
			identity.DisplayName = identity.Username
		}
		r.identities = append(r.identities, identity)
		r.byID[identity.UserID] = identity
	}
	return r
}

// LoadRoster reads a JSON array of identities from path.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot identities: %w", err)
	}
	var identities []Identity
	if err := json.Unmarshal(data, &identities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bot identities: %w", err)
	}
	return NewRoster(identities), nil
}

// Provision ensures that every identity with a device id has a Nakama account
// flagged as a bot, and adopts the account's user id.
func (r *Roster) Provision(ctx context.Context, nk runtime.NakamaModule, logger runtime.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.identities {
		identity := &r.identities[i]
		if identity.DeviceID == "" {
			continue
		}

		userID, username, _, err := nk.AuthenticateDevice(ctx, identity.DeviceID, identity.Username, true)
		if err != nil {
			logger.Error("ProvisionBots: Failed to authenticate bot %s: %v", identity.Username, err)
			continue
		}

		metadata := map[string]interface{}{
			"is_bot":       true,
			"difficulty":   identity.Difficulty,
			"avatar_index": identity.AvatarIndex,
		}
		if err := nk.AccountUpdateId(ctx, userID, username, metadata, identity.DisplayName, "", "", "", ""); err != nil {
			logger.Warn("ProvisionBots: Failed to update bot account %s: %v", userID, err)
		}

		delete(r.byID, identity.UserID)
		identity.UserID = userID
		identity.Username = username
		r.byID[userID] = *identity

		logger.Info("ProvisionBots: Bot %s (%s) is ready. Difficulty: %s", identity.DisplayName, userID, identity.Difficulty)
	}
}

// Pick returns the identity at index, wrapping around the pool.
func (r *Roster) Pick(index int) Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.identities) == 0 {
		return Identity{
			UserID:      fmt.Sprintf("bot-%d", index),
			DisplayName: fmt.Sprintf("AI Player %d", index),
			Difficulty:  string(BotLevelGood),
		}
	}
	if index < 0 {
		index = -index
	}
	return r.identities[index%len(r.identities)]
}

// Lookup returns the identity of a bot user id.
func (r *Roster) Lookup(userID string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.byID[userID]
	return identity, ok
}

// IsBot reports whether userID belongs to the pool.
func (r *Roster) IsBot(userID string) bool {
	_, ok := r.Lookup(userID)
	return ok
}

// Len returns the pool size.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.identities)
}
