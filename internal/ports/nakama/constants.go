package nakama

const (
	// RpcFindHall is the Nakama RPC id clients call to find or create a hall match.
	RpcFindHall = "find_hall"
	// RpcPlayerStats returns the stat record of a display name.
	RpcPlayerStats = "player_stats"
	// RpcLeaderboard returns the ranked leaderboard.
	RpcLeaderboard = "leaderboard"
	// RpcAchievements returns the achievements earned by a display name.
	RpcAchievements = "achievements"
	// RpcVivoxLoginToken issues a Vivox login token for the calling user.
	RpcVivoxLoginToken = "vivox_login_token"

	// MatchNameDurak is the authoritative match handler name registered with Nakama.
	MatchNameDurak = "durak_hall"

	// TickRate is the number of MatchLoop calls per second.
	TickRate = 5

	labelGame = "durak"
	labelKind = "hall"
)

// Match label keys.
const (
	MatchLabelKeyGame     = "game"
	MatchLabelKeyKind     = "kind"
	MatchLabelKeyWaiting  = "waiting"
	MatchLabelKeySessions = "sessions"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpJoin         int64 = 1
	OpAttack       int64 = 2
	OpDefend       int64 = 3
	OpEndTurn      int64 = 4
	OpChat         int64 = 5
	OpVoiceToken   int64 = 6
	OpRequestState int64 = 7

	// Server -> Client events
	OpWaitingForOpponent   int64 = 101
	OpSessionStarted       int64 = 102 // send privately
	OpStateChanged         int64 = 103 // send privately
	OpActionBroadcast      int64 = 104
	OpSessionEnded         int64 = 105
	OpOpponentDisconnected int64 = 106
	OpChatMessage          int64 = 107
	OpVoiceTokenIssued     int64 = 108 // send privately
	OpGameError            int64 = 109 // send privately
)

// Game error codes carried by OpGameError.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeIllegalMove = "illegal_move"
	ErrCodeNoSession   = "no_session"
	ErrCodeRateLimited = "rate_limited"
	ErrCodeUnavailable = "unavailable"
	ErrCodeInternal    = "internal"
)
