package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"durak/internal/domain"
	"durak/internal/stats"
)

const tracerName = "durak/internal/app"

var (
	ErrNoSession        = errors.New("participant has no session")
	ErrEmptyDisplayName = errors.New("display name is empty")
)

// Options configures a World. Zero values fall back to defaults.
type Options struct {
	Rules              domain.Rules
	GraceDelay         time.Duration
	AllowDuplicateJoin bool
	Rand               *rand.Rand
	Now                func() time.Time
	NewSessionID       func() string
	TracerProvider     trace.TracerProvider
}

// World owns the matchmaker, the session registry and a reference to the
// stats ledger. Several worlds may share one ledger.
type World struct {
	rules      domain.Rules
	graceDelay time.Duration
	allowDup   bool

	queue    *Matchmaker
	sessions *Registry
	ledger   *stats.Ledger

	rngMu sync.Mutex
	rng   *rand.Rand

	botsMu sync.Mutex
	bots   map[string]bool

	now    func() time.Time
	newID  func() string
	tracer trace.Tracer
}

// NewWorld constructs a World using ledger for results.
func NewWorld(ledger *stats.Ledger, opts Options) *World {
	if ledger == nil {
		ledger = stats.NewLedger(stats.DefaultPolicy())
	}
	if opts.Rules.HandSize <= 0 || opts.Rules.LargeHandThreshold <= 0 {
		def := domain.DefaultRules()
		if opts.Rules.HandSize <= 0 {
			opts.Rules.HandSize = def.HandSize
		}
		if opts.Rules.LargeHandThreshold <= 0 {
			opts.Rules.LargeHandThreshold = def.LargeHandThreshold
		}
	}
	if opts.GraceDelay <= 0 {
		opts.GraceDelay = DefaultGraceDelay
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewSessionID == nil {
		opts.NewSessionID = uuid.NewString
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	return &World{
		rules:      opts.Rules,
		graceDelay: opts.GraceDelay,
		allowDup:   opts.AllowDuplicateJoin,
		queue:      NewMatchmaker(opts.AllowDuplicateJoin),
		sessions:   NewRegistry(),
		ledger:     ledger,
		rng:        opts.Rand,
		bots:       make(map[string]bool),
		now:        opts.Now,
		newID:      opts.NewSessionID,
		tracer:     opts.TracerProvider.Tracer(tracerName),
	}
}

// Join queues participantID under displayName and starts a session once a
// second participant is waiting.
func (w *World) Join(ctx context.Context, participantID, displayName string) (evs []Event, err error) {
	_, span := w.start(ctx, "World.Join", participantID)
	defer func() { end(span, err) }()

	name, err := NormalizeName(displayName)
	if err != nil {
		return nil, err
	}

	if s, ok := w.sessions.FindByParticipant(participantID); ok {
		if !s.Ended() {
			if !w.allowDup {
				return nil, domain.ErrAlreadySeated
			}
			return []Event{snapshotEvent(EventStateChanged, s, participantID)}, nil
		}
		// Joining again after a finished game leaves the old session.
		w.sessions.Detach(participantID)
	}

	pair, err := w.queue.Enqueue(Waiting{ParticipantID: participantID, DisplayName: name, Since: w.now()})
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return []Event{{
			Kind:       EventWaitingForOpponent,
			Payload:    WaitingPayload{ParticipantID: participantID, QueueSize: w.queue.Len()},
			Recipients: []string{participantID},
		}}, nil
	}
	return w.startSession(pair[0], pair[1])
}

// PairWithBot removes a waiting participant from the queue and seats them
// against the bot botID.
func (w *World) PairWithBot(ctx context.Context, participantID, botID, botName string) (evs []Event, err error) {
	_, span := w.start(ctx, "World.PairWithBot", participantID)
	defer func() { end(span, err) }()

	human, err := w.queue.Take(participantID)
	if err != nil {
		return nil, err
	}
	w.botsMu.Lock()
	w.bots[botID] = true
	w.botsMu.Unlock()

	evs, err = w.startSession(human, Waiting{ParticipantID: botID, DisplayName: botName, Since: w.now()})
	if err != nil {
		w.forgetBot(botID)
		return nil, err
	}
	return evs, nil
}

// Attack plays card for participantID as the session attacker.
func (w *World) Attack(ctx context.Context, participantID string, card domain.Card) (evs []Event, err error) {
	_, span := w.start(ctx, "World.Attack", participantID)
	defer func() { end(span, err) }()

	s, err := w.sessionFor(participantID)
	if err != nil {
		return nil, err
	}
	card, err = canonical(card)
	if err != nil {
		return nil, err
	}
	if err := s.Attack(participantID, card); err != nil {
		return nil, err
	}

	evs = append(evs, Event{
		Kind: EventActionBroadcast,
		Payload: ActionPayload{
			SessionID: s.ID(),
			ActorID:   participantID,
			Kind:      ActionAttack,
			Card:      card,
		},
		Recipients: participantIDs(s),
	})
	return append(evs, stateEvents(s)...), nil
}

// Defend answers the open pair at attackIndex with card.
func (w *World) Defend(ctx context.Context, participantID string, attackIndex int, card domain.Card) (evs []Event, err error) {
	_, span := w.start(ctx, "World.Defend", participantID)
	defer func() { end(span, err) }()

	s, err := w.sessionFor(participantID)
	if err != nil {
		return nil, err
	}
	card, err = canonical(card)
	if err != nil {
		return nil, err
	}
	if err := s.Defend(participantID, attackIndex, card); err != nil {
		return nil, err
	}

	idx := attackIndex
	evs = append(evs, Event{
		Kind: EventActionBroadcast,
		Payload: ActionPayload{
			SessionID:   s.ID(),
			ActorID:     participantID,
			Kind:        ActionDefend,
			Card:        card,
			AttackIndex: &idx,
		},
		Recipients: participantIDs(s),
	})
	return append(evs, stateEvents(s)...), nil
}

// EndTurn closes the current bout and finalizes the session if it ended.
func (w *World) EndTurn(ctx context.Context, participantID string) (evs []Event, err error) {
	ctx, span := w.start(ctx, "World.EndTurn", participantID)
	defer func() { end(span, err) }()

	s, err := w.sessionFor(participantID)
	if err != nil {
		return nil, err
	}
	outcome, err := s.EndTurn(participantID)
	if err != nil {
		return nil, err
	}

	evs = stateEvents(s)
	if outcome != nil {
		evs = append(evs, w.finalize(ctx, s, *outcome)...)
	}
	return evs, nil
}

// Disconnect handles a participant leaving. A running session ends in favour
// of the remaining participant; repeated calls produce no events.
func (w *World) Disconnect(ctx context.Context, participantID string) (evs []Event, err error) {
	ctx, span := w.start(ctx, "World.Disconnect", participantID)
	defer func() { end(span, err) }()

	w.queue.Remove(participantID)

	s, ok := w.sessions.FindByParticipant(participantID)
	if !ok {
		return nil, nil
	}
	outcome, ended, err := s.Disconnect(participantID)
	if err != nil {
		return nil, err
	}

	if ended {
		leaver, _ := s.Participant(participantID)
		var others []string
		for _, id := range participantIDs(s) {
			if id != participantID {
				others = append(others, id)
			}
		}
		evs = append(evs, Event{
			Kind: EventOpponentDisconnected,
			Payload: OpponentDisconnectedPayload{
				ParticipantID: participantID,
				DisplayName:   leaver.DisplayName,
			},
			Recipients: others,
		})
		evs = append(evs, w.finalize(ctx, s, *outcome)...)
	}
	w.sessions.Detach(participantID)
	return evs, nil
}

// Chat relays a trimmed message to every participant of the sender's session.
// Blank messages are dropped.
func (w *World) Chat(ctx context.Context, participantID, message string) (evs []Event, err error) {
	_, span := w.start(ctx, "World.Chat", participantID)
	defer func() { end(span, err) }()

	s, err := w.sessionFor(participantID)
	if err != nil {
		return nil, err
	}
	message = truncateRunes(strings.TrimSpace(message), MaxChatRunes)
	if message == "" {
		return nil, nil
	}
	sender, _ := s.Participant(participantID)

	for _, id := range participantIDs(s) {
		evs = append(evs, Event{
			Kind: EventChatMessage,
			Payload: ChatPayload{
				SessionID:    s.ID(),
				SenderID:     participantID,
				SenderName:   sender.DisplayName,
				Message:      message,
				IsOwnMessage: id == participantID,
			},
			Recipients: []string{id},
		})
	}
	return evs, nil
}

// State returns a fresh snapshot for participantID, or the waiting notice
// when they are still queued.
func (w *World) State(ctx context.Context, participantID string) (evs []Event, err error) {
	_, span := w.start(ctx, "World.State", participantID)
	defer func() { end(span, err) }()

	if s, ok := w.sessions.FindByParticipant(participantID); ok {
		return []Event{snapshotEvent(EventStateChanged, s, participantID)}, nil
	}
	if w.queue.Contains(participantID) {
		return []Event{{
			Kind:       EventWaitingForOpponent,
			Payload:    WaitingPayload{ParticipantID: participantID, QueueSize: w.queue.Len()},
			Recipients: []string{participantID},
		}}, nil
	}
	return nil, ErrNoSession
}

// Shutdown aborts every running session and retires all sessions at once.
// Aborted sessions end as draws, so nothing is written to the ledger. The
// queue is emptied as well.
func (w *World) Shutdown(ctx context.Context) (evs []Event) {
	ctx, span := w.tracer.Start(ctx, "World.Shutdown")
	defer span.End()

	for _, waiting := range w.queue.Waiting() {
		w.queue.Remove(waiting.ParticipantID)
	}
	ids := w.sessions.IDs()
	for _, id := range ids {
		s, ok := w.sessions.Get(id)
		if !ok {
			continue
		}
		if out, aborted := s.Abort(); aborted {
			evs = append(evs, w.finalize(ctx, s, *out)...)
		}
		w.sessions.Retire(id)
	}
	span.SetAttributes(attribute.Int("durak.retired", len(ids)))
	return evs
}

// Sweep retires ended sessions whose grace delay has passed.
func (w *World) Sweep(ctx context.Context, now time.Time) []string {
	_, span := w.tracer.Start(ctx, "World.Sweep")
	defer span.End()

	retired := w.sessions.Sweep(now)
	span.SetAttributes(attribute.Int("durak.retired", len(retired)))
	return retired
}

// SessionFor returns the session participantID is attached to.
func (w *World) SessionFor(participantID string) (*domain.Session, bool) {
	return w.sessions.FindByParticipant(participantID)
}

// Waiting lists queued participants in arrival order.
func (w *World) Waiting() []Waiting {
	return w.queue.Waiting()
}

// ActiveSessions returns the number of registered sessions.
func (w *World) ActiveSessions() int {
	return w.sessions.Active()
}

// IsBot reports whether participantID was seated through PairWithBot.
func (w *World) IsBot(participantID string) bool {
	w.botsMu.Lock()
	defer w.botsMu.Unlock()
	return w.bots[participantID]
}

func (w *World) Stats(name string) (stats.Record, error) {
	return w.ledger.Stats(name)
}

func (w *World) Achievements(name string) []stats.Achievement {
	return w.ledger.Achievements(name)
}

func (w *World) Leaderboard(limit int) []stats.Entry {
	return w.ledger.Leaderboard(limit)
}

func (w *World) startSession(a, b Waiting) ([]Event, error) {
	s := domain.NewSession(w.newID(), w.rules)
	for _, p := range []Waiting{a, b} {
		if err := s.AddParticipant(p.ParticipantID, p.DisplayName); err != nil {
			return nil, fmt.Errorf("seat %s: %w", p.ParticipantID, err)
		}
	}

	w.rngMu.Lock()
	deck := domain.BuildShuffledDeck(w.rng)
	w.rngMu.Unlock()

	if err := s.Deal(deck); err != nil {
		return nil, fmt.Errorf("deal session %s: %w", s.ID(), err)
	}
	if err := w.sessions.Register(s); err != nil {
		return nil, fmt.Errorf("register session %s: %w", s.ID(), err)
	}

	evs := make([]Event, 0, 2)
	for _, id := range participantIDs(s) {
		evs = append(evs, snapshotEvent(EventSessionStarted, s, id))
	}
	return evs, nil
}

// finalize records the outcome in the ledger and schedules retirement. The
// session reports its ending exactly once, so this runs once per session.
func (w *World) finalize(ctx context.Context, s *domain.Session, out domain.Outcome) []Event {
	_, span := w.tracer.Start(ctx, "World.finalize", trace.WithAttributes(
		attribute.String("durak.session_id", s.ID()),
		attribute.String("durak.reason", string(out.Reason)),
		attribute.Bool("durak.draw", out.Draw),
	))
	defer span.End()

	payload := SessionEndedPayload{
		SessionID: s.ID(),
		WinnerID:  out.WinnerID,
		Reason:    out.Reason,
		Draw:      out.Draw,
	}

	if !out.Draw {
		winner, _ := s.Participant(out.WinnerID)
		loser, _ := s.Participant(out.LoserID)
		payload.WinnerName = winner.DisplayName

		flags := stats.GameFlags{PerfectGame: out.PerfectGame, ComebackWin: out.ComebackWin}
		if fresh, err := w.ledger.RecordResult(winner.DisplayName, true, flags); err == nil {
			payload.WinnerNewAchievements = fresh
		} else {
			span.RecordError(err)
		}
		if fresh, err := w.ledger.RecordResult(loser.DisplayName, false, stats.GameFlags{}); err == nil {
			payload.LoserNewAchievements = fresh
		} else {
			span.RecordError(err)
		}
		if r, err := w.ledger.Stats(winner.DisplayName); err == nil {
			payload.WinnerStats = &r
		}
		if r, err := w.ledger.Stats(loser.DisplayName); err == nil {
			payload.LoserStats = &r
		}
	}

	w.sessions.ScheduleRetire(s.ID(), w.now().Add(w.graceDelay))
	ids := participantIDs(s)
	for _, id := range ids {
		if w.IsBot(id) {
			w.sessions.Detach(id)
			w.forgetBot(id)
		}
	}

	return []Event{{
		Kind:       EventSessionEnded,
		Payload:    payload,
		Recipients: ids,
	}}
}

func (w *World) forgetBot(botID string) {
	w.botsMu.Lock()
	delete(w.bots, botID)
	w.botsMu.Unlock()
}

func (w *World) sessionFor(participantID string) (*domain.Session, error) {
	s, ok := w.sessions.FindByParticipant(participantID)
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

func (w *World) start(ctx context.Context, name, participantID string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return w.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("durak.participant_id", participantID),
	))
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func snapshotEvent(kind EventKind, s *domain.Session, participantID string) Event {
	return Event{
		Kind:       kind,
		Payload:    SnapshotPayload{View: s.Snapshot(participantID)},
		Recipients: []string{participantID},
	}
}

// stateEvents builds one perspective snapshot per participant.
func stateEvents(s *domain.Session) []Event {
	ids := participantIDs(s)
	evs := make([]Event, 0, len(ids))
	for _, id := range ids {
		evs = append(evs, snapshotEvent(EventStateChanged, s, id))
	}
	return evs
}

func participantIDs(s *domain.Session) []string {
	ps := s.Participants()
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	return ids
}

// canonical rebuilds card from suit and rank so a client supplied value is never trusted.
func canonical(card domain.Card) (domain.Card, error) {
	return domain.NewCard(string(card.Suit), string(card.Rank))
}

// NormalizeName trims name and caps it at MaxDisplayNameRunes. The result is
// the key a participant's stats are recorded under.
func NormalizeName(name string) (string, error) {
	name = truncateRunes(strings.TrimSpace(name), MaxDisplayNameRunes)
	if name == "" {
		return "", ErrEmptyDisplayName
	}
	return name, nil
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
