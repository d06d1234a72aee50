package app

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

const (
	VivoxTokenActionLogin = "login"
	VivoxTokenActionJoin  = "join"

	// DefaultVivoxTokenTTL bounds how long a voice token stays valid.
	DefaultVivoxTokenTTL = 90 * time.Second

	vivoxChannelPrefix = "durak-"
)

var (
	ErrVivoxNotConfigured  = errors.New("vivox config is incomplete")
	ErrVivoxUserRequired   = errors.New("vivox user is required")
	ErrVivoxChannelMissing = errors.New("channel name is required for join tokens")
	ErrVivoxUnknownAction  = errors.New("unsupported vivox action")
)

// VoiceToken is a signed Vivox access token with the URIs it grants.
type VoiceToken struct {
	Token     string
	Action    string
	UserURI   string
	TargetURI string
	Channel   string
	ExpiresAt time.Time
}

// VivoxService signs Vivox access tokens. Every session gets its own voice
// channel named after the session id.
type VivoxService struct {
	secret string
	issuer string
	domain string
	ttl    time.Duration
	now    func() time.Time
	seq    atomic.Uint64
}

func NewVivoxService(secret, issuer, domain string) *VivoxService {
	return &VivoxService{
		secret: secret,
		issuer: issuer,
		domain: domain,
		ttl:    DefaultVivoxTokenTTL,
		now:    time.Now,
	}
}

// Enabled reports whether all credentials are present.
func (s *VivoxService) Enabled() bool {
	return s != nil && s.secret != "" && s.issuer != "" && s.domain != ""
}

// SessionChannel returns the voice channel name of a session.
func SessionChannel(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	return vivoxChannelPrefix + sessionID
}

// GenerateToken signs a token for user. Join tokens target the voice channel
// of sessionID.
func (s *VivoxService) GenerateToken(user, action, sessionID string) (VoiceToken, error) {
	if !s.Enabled() {
		return VoiceToken{}, ErrVivoxNotConfigured
	}
	if user == "" {
		return VoiceToken{}, ErrVivoxUserRequired
	}

	channel := ""
	if action == VivoxTokenActionJoin {
		channel = SessionChannel(sessionID)
	}
	userURI := s.userURI(user)
	targetURI, err := s.targetURI(action, channel, userURI)
	if err != nil {
		return VoiceToken{}, err
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": user,
		"exp": expires.Unix(),
		"vxa": action,
		"vxi": fmt.Sprintf("%d-%d", now.UnixNano(), s.seq.Add(1)),
		"f":   userURI,
		"t":   targetURI,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return VoiceToken{}, fmt.Errorf("sign vivox token: %w", err)
	}
	return VoiceToken{
		Token:     signed,
		Action:    action,
		UserURI:   userURI,
		TargetURI: targetURI,
		Channel:   channel,
		ExpiresAt: expires,
	}, nil
}

func (s *VivoxService) userURI(user string) string {
	return "sip:." + s.issuer + "." + user + ".@" + s.domain
}

func (s *VivoxService) channelURI(channel string) string {
	return "sip:confctl-g-" + channel + "@" + s.domain
}

func (s *VivoxService) targetURI(action, channel, userURI string) (string, error) {
	switch action {
	case VivoxTokenActionLogin:
		return userURI, nil
	case VivoxTokenActionJoin:
		if channel == "" {
			return "", ErrVivoxChannelMissing
		}
		return s.channelURI(channel), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrVivoxUnknownAction, action)
	}
}
