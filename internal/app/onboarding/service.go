package onboarding

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"durak/internal/ports"
)

// maxNameAttempts bounds the search for a display name nobody has played under.
const maxNameAttempts = 5

var ErrNotConfigured = errors.New("onboarding service not configured")

// Result captures onboarding outcomes.
type Result struct {
	DisplayName string
	// ProfileUpdateErr is set when the profile update failed but onboarding continued.
	ProfileUpdateErr error
}

// Service gives new accounts a friendly display name. The name doubles as
// the player's stats key, so a fresh name is preferred over one with history.
type Service struct {
	accounts ports.AccountPort
	stats    ports.PlayerStatsPort

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService constructs an onboarding service. rng may be nil to use a
// time-seeded default.
func NewService(accounts ports.AccountPort, stats ports.PlayerStatsPort, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		accounts: accounts,
		stats:    stats,
		rng:      rng,
	}
}

// OnboardNewUser names a newly created account and opens its stats record.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) (Result, error) {
	if s.accounts == nil || s.stats == nil {
		return Result{}, ErrNotConfigured
	}

	name, err := s.pickName()
	if err != nil {
		return Result{}, err
	}
	result := Result{DisplayName: name}
	if err := s.accounts.UpdateProfile(ctx, userID, name, name); err != nil {
		result.ProfileUpdateErr = err
	}
	return result, nil
}

func (s *Service) pickName() (string, error) {
	var name string
	for i := 0; i < maxNameAttempts; i++ {
		name = s.generateFriendlyName()
		rec, err := s.stats.Stats(name)
		if err != nil {
			return "", fmt.Errorf("open stats for %s: %w", name, err)
		}
		if rec.GamesPlayed == 0 {
			return name, nil
		}
	}
	return name, nil
}

func (s *Service) generateFriendlyName() string {
	adjectives := []string{"Happy", "Shiny", "Brave", "Clever", "Swift", "Calm", "Mighty", "Witty", "Sly", "Wild"}
	nouns := []string{"Panda", "Tiger", "Eagle", "Dolphin", "Wolf", "Otter", "Falcon", "Bear", "Fox", "Lion"}

	s.mu.Lock()
	defer s.mu.Unlock()
	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(9000) + 1000

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}
