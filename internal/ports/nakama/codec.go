package nakama

import (
	"encoding/json"
	"errors"
	"fmt"

	"durak/internal/app"
	"durak/internal/domain"
	"durak/internal/stats"
)

var errMalformed = errors.New("malformed payload")

// Inbound payloads.

type CardMsg struct {
	Suit  string `json:"suit"`
	Rank  string `json:"rank"`
	Value int    `json:"value"`
}

type JoinRequest struct {
	DisplayName string `json:"displayName"`
}

type AttackRequest struct {
	Card *CardMsg `json:"card"`
}

type DefendRequest struct {
	AttackIndex *int     `json:"attackIndex"`
	Card        *CardMsg `json:"card"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type VoiceTokenRequest struct {
	Action string `json:"action"`
}

// Outbound payloads.

type WaitingMsg struct {
	ParticipantID string `json:"participantId"`
	QueueSize     int    `json:"queueSize"`
}

type TablePairMsg struct {
	Attack  CardMsg  `json:"attack"`
	Defense *CardMsg `json:"defense"`
}

type PlayerMsg struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	HandSize    int    `json:"handSize"`
	Connected   bool   `json:"connected"`
}

type SnapshotMsg struct {
	SessionID        string         `json:"sessionId"`
	Phase            string         `json:"phase"`
	Players          []PlayerMsg    `json:"players"`
	Hand             []CardMsg      `json:"hand"`
	OpponentHandSize int            `json:"opponentHandSize"`
	Table            []TablePairMsg `json:"table"`
	TrumpSuit        string         `json:"trumpSuit"`
	TrumpCard        *CardMsg       `json:"trumpCard"`
	DeckSize         int            `json:"deckSize"`
	DiscardSize      int            `json:"discardSize"`
	AttackerIndex    int            `json:"attackerIndex"`
	DefenderIndex    int            `json:"defenderIndex"`
	YourIndex        int            `json:"yourIndex"`
	Started          bool           `json:"started"`
	Ended            bool           `json:"ended"`
	WinnerID         string         `json:"winnerId"`
	Draw             bool           `json:"draw"`
	IsYourTurn       bool           `json:"isYourTurn"`
}

type ActionMsg struct {
	SessionID   string  `json:"sessionId"`
	ActorID     string  `json:"actorId"`
	Kind        string  `json:"kind"`
	Card        CardMsg `json:"card"`
	AttackIndex *int    `json:"attackIndex,omitempty"`
}

type StatsMsg struct {
	Name           string  `json:"name"`
	GamesPlayed    int     `json:"gamesPlayed"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	CurrentStreak  int     `json:"currentStreak"`
	BestStreak     int     `json:"bestStreak"`
	LastGameWon    bool    `json:"lastGameWon"`
	WinRatePercent float64 `json:"winRatePercent"`
}

type AchievementMsg struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type SessionEndedMsg struct {
	SessionID             string           `json:"sessionId"`
	WinnerID              string           `json:"winnerId"`
	WinnerName            string           `json:"winnerName"`
	Reason                string           `json:"reason"`
	Draw                  bool             `json:"draw"`
	WinnerStats           *StatsMsg        `json:"winnerStats"`
	LoserStats            *StatsMsg        `json:"loserStats"`
	WinnerNewAchievements []AchievementMsg `json:"winnerNewAchievements"`
	LoserNewAchievements  []AchievementMsg `json:"loserNewAchievements"`
}

type OpponentDisconnectedMsg struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

type ChatMsg struct {
	SessionID    string `json:"sessionId"`
	SenderID     string `json:"senderId"`
	SenderName   string `json:"senderName"`
	Message      string `json:"message"`
	IsOwnMessage bool   `json:"isOwnMessage"`
}

type VoiceTokenMsg struct {
	Token     string `json:"token"`
	Action    string `json:"action"`
	UserURI   string `json:"userUri"`
	TargetURI string `json:"targetUri"`
	Channel   string `json:"channel"`
	ExpiresAt int64  `json:"expiresAt"`
}

type GameErrorMsg struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type LeaderboardEntryMsg struct {
	Rank          int              `json:"rank"`
	Name          string           `json:"name"`
	GamesPlayed   int              `json:"gamesPlayed"`
	Wins          int              `json:"wins"`
	WinRate       float64          `json:"winRatePercent"`
	CurrentStreak int              `json:"currentStreak"`
	BestStreak    int              `json:"bestStreak"`
	Achievements  []AchievementMsg `json:"achievements"`
}

// decode unmarshals an inbound payload. An empty payload decodes to the zero value.
func decode(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}

// cardFromMsg rebuilds a card from its wire form. The wire value is ignored.
func cardFromMsg(m *CardMsg) (domain.Card, error) {
	if m == nil {
		return domain.Card{}, fmt.Errorf("%w: card is required", errMalformed)
	}
	card, err := domain.NewCard(m.Suit, m.Rank)
	if err != nil {
		return domain.Card{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return card, nil
}

func cardToMsg(c domain.Card) CardMsg {
	return CardMsg{Suit: string(c.Suit), Rank: string(c.Rank), Value: c.Value}
}

func cardsToMsg(cards []domain.Card) []CardMsg {
	out := make([]CardMsg, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardToMsg(c))
	}
	return out
}

func viewToMsg(v domain.View) SnapshotMsg {
	msg := SnapshotMsg{
		SessionID:        v.SessionID,
		Phase:            string(v.Phase),
		Players:          make([]PlayerMsg, 0, len(v.Players)),
		Hand:             cardsToMsg(v.Hand),
		OpponentHandSize: v.OpponentHandSize,
		Table:            make([]TablePairMsg, 0, len(v.Table)),
		TrumpSuit:        string(v.TrumpSuit),
		DeckSize:         v.DeckSize,
		DiscardSize:      v.DiscardSize,
		AttackerIndex:    v.AttackerIndex,
		DefenderIndex:    v.DefenderIndex,
		YourIndex:        v.YourIndex,
		Started:          v.Started,
		Ended:            v.Ended,
		WinnerID:         v.WinnerID,
		Draw:             v.Draw,
		IsYourTurn:       v.IsYourTurn,
	}
	if v.TrumpCard != nil {
		trump := cardToMsg(*v.TrumpCard)
		msg.TrumpCard = &trump
	}
	for _, p := range v.Players {
		msg.Players = append(msg.Players, PlayerMsg{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			HandSize:    p.HandSize,
			Connected:   p.Connected,
		})
	}
	for _, pair := range v.Table {
		pm := TablePairMsg{Attack: cardToMsg(pair.Attack)}
		if pair.Defense != nil {
			d := cardToMsg(*pair.Defense)
			pm.Defense = &d
		}
		msg.Table = append(msg.Table, pm)
	}
	return msg
}

func statsToMsg(r *stats.Record) *StatsMsg {
	if r == nil {
		return nil
	}
	return &StatsMsg{
		Name:           r.Name,
		GamesPlayed:    r.GamesPlayed,
		Wins:           r.Wins,
		Losses:         r.Losses,
		CurrentStreak:  r.CurrentStreak,
		BestStreak:     r.BestStreak,
		LastGameWon:    r.LastGameWon,
		WinRatePercent: r.WinRatePercent,
	}
}

func achievementsToMsg(list []stats.Achievement) []AchievementMsg {
	out := make([]AchievementMsg, 0, len(list))
	for _, a := range list {
		out = append(out, AchievementMsg{ID: a.ID, Name: a.Name, Description: a.Description, Icon: a.Icon})
	}
	return out
}

func leaderboardToMsg(entries []stats.Entry) []LeaderboardEntryMsg {
	out := make([]LeaderboardEntryMsg, 0, len(entries))
	for _, e := range entries {
		out = append(out, LeaderboardEntryMsg{
			Rank:          e.Rank,
			Name:          e.Record.Name,
			GamesPlayed:   e.Record.GamesPlayed,
			Wins:          e.Record.Wins,
			WinRate:       e.Record.WinRatePercent,
			CurrentStreak: e.Record.CurrentStreak,
			BestStreak:    e.Record.BestStreak,
			Achievements:  achievementsToMsg(e.Achievements),
		})
	}
	return out
}

func voiceTokenToMsg(t app.VoiceToken) VoiceTokenMsg {
	return VoiceTokenMsg{
		Token:     t.Token,
		Action:    t.Action,
		UserURI:   t.UserURI,
		TargetURI: t.TargetURI,
		Channel:   t.Channel,
		ExpiresAt: t.ExpiresAt.Unix(),
	}
}

// encodeEvent maps an app event to its op code and JSON payload.
func encodeEvent(ev app.Event) (int64, []byte, error) {
	var (
		op  int64
		msg any
	)
	switch p := ev.Payload.(type) {
	case app.WaitingPayload:
		op, msg = OpWaitingForOpponent, WaitingMsg{ParticipantID: p.ParticipantID, QueueSize: p.QueueSize}
	case app.SnapshotPayload:
		switch ev.Kind {
		case app.EventSessionStarted:
			op = OpSessionStarted
		case app.EventStateChanged:
			op = OpStateChanged
		default:
			return 0, nil, fmt.Errorf("snapshot payload on event %q", ev.Kind)
		}
		msg = viewToMsg(p.View)
	case app.ActionPayload:
		op, msg = OpActionBroadcast, ActionMsg{
			SessionID:   p.SessionID,
			ActorID:     p.ActorID,
			Kind:        string(p.Kind),
			Card:        cardToMsg(p.Card),
			AttackIndex: p.AttackIndex,
		}
	case app.SessionEndedPayload:
		op, msg = OpSessionEnded, SessionEndedMsg{
			SessionID:             p.SessionID,
			WinnerID:              p.WinnerID,
			WinnerName:            p.WinnerName,
			Reason:                string(p.Reason),
			Draw:                  p.Draw,
			WinnerStats:           statsToMsg(p.WinnerStats),
			LoserStats:            statsToMsg(p.LoserStats),
			WinnerNewAchievements: achievementsToMsg(p.WinnerNewAchievements),
			LoserNewAchievements:  achievementsToMsg(p.LoserNewAchievements),
		}
	case app.OpponentDisconnectedPayload:
		op, msg = OpOpponentDisconnected, OpponentDisconnectedMsg{ParticipantID: p.ParticipantID, DisplayName: p.DisplayName}
	case app.ChatPayload:
		op, msg = OpChatMessage, ChatMsg{
			SessionID:    p.SessionID,
			SenderID:     p.SenderID,
			SenderName:   p.SenderName,
			Message:      p.Message,
			IsOwnMessage: p.IsOwnMessage,
		}
	default:
		return 0, nil, fmt.Errorf("unsupported event payload %T", ev.Payload)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, nil, err
	}
	return op, data, nil
}

