package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"durak/internal/app"
	"durak/internal/bot"
	"durak/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
	"golang.org/x/time/rate"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// HallState holds the authoritative runtime state of one hall match. A hall
// hosts any number of two-player sessions. Participants are identified by
// their presence session id.
type HallState struct {
	World     *app.World                  // matchmaker and sessions of this hall
	Presences map[string]runtime.Presence // session id -> presence for targeted messaging
	Limiters  map[string]*rate.Limiter    // session id -> inbound action budget
	Bots      map[string]*botSeat         // bot id -> seated agent
	Tick      int64                       // current tick
	Label     string                      // last label sent to Nakama

	rng     *rand.Rand
	nextBot int
}

type botSeat struct {
	Agent     *bot.Agent
	WaitUntil int64 // tick when the pending move is played
	Scheduled bool
}

type matchHandler struct {
	mod *Module
}

func newMatchHandler(mod *Module) *matchHandler {
	return &matchHandler{mod: mod}
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing hall.")

	grace, err := mh.mod.Rules.Grace()
	if err != nil {
		logger.Error("MatchInit: Invalid grace delay: %v", err)
		return nil, 0, ""
	}
	rng := rand.New(rand.NewSource(mh.mod.seed()))

	state := &HallState{
		World: app.NewWorld(mh.mod.Ledger, app.Options{
			Rules:              mh.mod.Rules.Domain(),
			GraceDelay:         grace,
			AllowDuplicateJoin: mh.mod.Rules.Session.AllowDuplicateJoin,
			Rand:               rand.New(rand.NewSource(rng.Int63())),
			Now:                mh.mod.now,
			TracerProvider:     mh.mod.TracerProvider,
		}),
		Presences: make(map[string]runtime.Presence),
		Limiters:  make(map[string]*rate.Limiter),
		Bots:      make(map[string]*botSeat),
		rng:       rng,
	}

	label, err := hallLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	state.Label = label

	return state, TickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	hall, ok := state.(*HallState)
	if !ok {
		return state, false, "state not found"
	}
	if _, exists := hall.Presences[presence.GetSessionId()]; exists {
		return state, false, "already in hall"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	hall, ok := state.(*HallState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		hall.Presences[p.GetSessionId()] = p
		hall.Limiters[p.GetSessionId()] = rate.NewLimiter(rate.Limit(mh.mod.Env.ActionsPerSecond), mh.mod.Env.ActionBurst)
		logger.Debug("MatchJoin: User %s entered hall (session %s).", p.GetUserId(), p.GetSessionId())
	}
	return hall
}

// MatchLeave is called when one or more players leave the match. Leaving the
// hall counts as a disconnect from the queue or the current session.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	hall, ok := state.(*HallState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		pid := p.GetSessionId()
		delete(hall.Presences, pid)
		delete(hall.Limiters, pid)

		events, err := hall.World.Disconnect(ctx, pid)
		if err != nil {
			logger.Warn("MatchLeave: Disconnect of %s failed: %v", pid, err)
			continue
		}
		logger.Debug("MatchLeave: User %s left hall (session %s).", p.GetUserId(), pid)
		mh.dispatchEvents(hall, dispatcher, logger, events)
	}

	if len(hall.Presences) == 0 {
		logger.Info("MatchLeave: Terminating empty hall.")
		return nil
	}

	mh.updateLabel(hall, dispatcher, logger)
	return hall
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	hall, ok := state.(*HallState)
	if !ok {
		return state
	}

	hall.Tick = tick

	for _, msg := range messages {
		mh.handleMessage(ctx, hall, dispatcher, logger, msg)
	}

	if mh.mod.Env.BotsEnabled {
		mh.processBots(ctx, hall, dispatcher, logger)
	}

	if retired := hall.World.Sweep(ctx, mh.mod.now()); len(retired) > 0 {
		logger.Debug("MatchLoop: Retired sessions %v", retired)
	}

	mh.updateLabel(hall, dispatcher, logger)
	return hall
}

func (mh *matchHandler) handleMessage(ctx context.Context, hall *HallState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	pid := msg.GetSessionId()
	op := msg.GetOpCode()

	if limiter, ok := hall.Limiters[pid]; ok && !limiter.AllowN(mh.mod.now(), 1) {
		logger.Warn("Handler: rate limited %s on opcode %d", pid, op)
		mh.sendError(hall, dispatcher, logger, pid, ErrCodeRateLimited, "too many actions")
		return
	}

	var (
		events []app.Event
		err    error
	)
	switch op {
	case OpJoin:
		var req JoinRequest
		if err = decode(msg.GetData(), &req); err == nil {
			name := req.DisplayName
			if name == "" {
				name = msg.GetUsername()
			}
			events, err = hall.World.Join(ctx, pid, name)
		}
	case OpAttack:
		var req AttackRequest
		if err = decode(msg.GetData(), &req); err == nil {
			var card domain.Card
			if card, err = cardFromMsg(req.Card); err == nil {
				events, err = hall.World.Attack(ctx, pid, card)
			}
		}
	case OpDefend:
		var req DefendRequest
		if err = decode(msg.GetData(), &req); err == nil {
			var card domain.Card
			if card, err = cardFromMsg(req.Card); err == nil {
				if req.AttackIndex == nil {
					err = fmt.Errorf("%w: attackIndex is required", errMalformed)
				} else {
					events, err = hall.World.Defend(ctx, pid, *req.AttackIndex, card)
				}
			}
		}
	case OpEndTurn:
		events, err = hall.World.EndTurn(ctx, pid)
	case OpChat:
		var req ChatRequest
		if err = decode(msg.GetData(), &req); err == nil {
			events, err = hall.World.Chat(ctx, pid, req.Message)
		}
	case OpRequestState:
		events, err = hall.World.State(ctx, pid)
	case OpVoiceToken:
		err = mh.handleVoiceToken(hall, dispatcher, msg)
	default:
		logger.Warn("MatchLoop: Unknown opcode received: %d", op)
		mh.sendError(hall, dispatcher, logger, pid, ErrCodeBadRequest, "unknown opcode")
		return
	}

	if err != nil {
		mh.rejectAction(ctx, hall, dispatcher, logger, pid, op, err)
		return
	}
	mh.dispatchEvents(hall, dispatcher, logger, events)
}

// rejectAction answers a failed request with a game error. Illegal moves also
// get a fresh snapshot so the client can resync.
func (mh *matchHandler) rejectAction(ctx context.Context, hall *HallState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, pid string, op int64, err error) {
	code := errorCode(err)
	if code == ErrCodeInternal {
		logger.Error("Handler: opcode %d from %s failed: %v", op, pid, err)
	} else {
		logger.Warn("Handler: opcode %d from %s rejected: %v", op, pid, err)
	}
	mh.sendError(hall, dispatcher, logger, pid, code, err.Error())

	if code != ErrCodeIllegalMove {
		return
	}
	events, stateErr := hall.World.State(ctx, pid)
	if stateErr != nil {
		return
	}
	mh.dispatchEvents(hall, dispatcher, logger, events)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errMalformed), errors.Is(err, app.ErrEmptyDisplayName):
		return ErrCodeBadRequest
	case errors.Is(err, app.ErrNoSession):
		return ErrCodeNoSession
	case errors.Is(err, app.ErrVivoxNotConfigured):
		return ErrCodeUnavailable
	case errors.Is(err, app.ErrVivoxUnknownAction), errors.Is(err, app.ErrVivoxUserRequired):
		return ErrCodeBadRequest
	case errors.Is(err, app.ErrDuplicateSession):
		return ErrCodeInternal
	default:
		return ErrCodeIllegalMove
	}
}

func (mh *matchHandler) handleVoiceToken(hall *HallState, dispatcher runtime.MatchDispatcher, msg runtime.MatchData) error {
	var req VoiceTokenRequest
	if err := decode(msg.GetData(), &req); err != nil {
		return err
	}
	action := req.Action
	if action == "" {
		action = app.VivoxTokenActionJoin
	}

	sessionID := ""
	if action == app.VivoxTokenActionJoin {
		s, ok := hall.World.SessionFor(msg.GetSessionId())
		if !ok || s.Ended() {
			return app.ErrNoSession
		}
		sessionID = s.ID()
	}

	token, err := mh.mod.Vivox.GenerateToken(msg.GetUserId(), action, sessionID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(voiceTokenToMsg(token))
	if err != nil {
		return err
	}
	presence, ok := hall.Presences[msg.GetSessionId()]
	if !ok {
		return nil
	}
	return dispatcher.BroadcastMessage(OpVoiceTokenIssued, data, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) processBots(ctx context.Context, hall *HallState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// 1. Pair participants who waited alone too long with a bot.
	if mh.mod.Roster != nil && mh.mod.Roster.Len() > 0 {
		autoFill := time.Duration(mh.mod.Env.BotAutoFillDelaySec) * time.Second
		now := mh.mod.now()
		for _, w := range hall.World.Waiting() {
			if now.Sub(w.Since) < autoFill {
				continue
			}
			identity, ok := mh.freeIdentity(hall)
			if !ok {
				logger.Debug("processBots: No free bot identity for %s.", w.ParticipantID)
				break
			}
			agent, err := bot.NewAgent(identity, rand.New(rand.NewSource(hall.rng.Int63())))
			if err != nil {
				logger.Error("processBots: Failed to create bot agent for %s: %v", identity.UserID, err)
				continue
			}
			events, err := hall.World.PairWithBot(ctx, w.ParticipantID, agent.ID, agent.Name)
			if err != nil {
				logger.Warn("processBots: Failed to pair %s with bot %s: %v", w.ParticipantID, agent.ID, err)
				continue
			}
			hall.Bots[agent.ID] = &botSeat{Agent: agent}
			logger.Info("processBots: Paired %s with bot %s (%s).", w.ParticipantID, agent.Name, agent.Level)
			mh.dispatchEvents(hall, dispatcher, logger, events)
		}
	}

	// 2. Let seated bots act after a random delay.
	ids := make([]string, 0, len(hall.Bots))
	for id := range hall.Bots {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		seat := hall.Bots[id]
		s, ok := hall.World.SessionFor(id)
		if !ok || s.Ended() {
			delete(hall.Bots, id)
			continue
		}

		move := seat.Agent.Play(s)
		if move.Kind == bot.MoveWait {
			seat.Scheduled = false
			continue
		}
		if !seat.Scheduled {
			seat.Scheduled = true
			seat.WaitUntil = hall.Tick + mh.botDelayTicks(hall)
			logger.Debug("processBots: Bot %s will act at tick %d (current %d)", id, seat.WaitUntil, hall.Tick)
			continue
		}
		if hall.Tick < seat.WaitUntil {
			continue
		}
		seat.Scheduled = false

		events, err := applyMove(ctx, hall.World, id, move)
		if err != nil {
			logger.Error("processBots: Bot %s failed to play %s: %v", id, move.Kind, err)
			continue
		}
		mh.dispatchEvents(hall, dispatcher, logger, events)
	}
}

func (mh *matchHandler) botDelayTicks(hall *HallState) int64 {
	lo, hi := mh.mod.Env.BotMinDelaySec, mh.mod.Env.BotMaxDelaySec
	delay := lo
	if hi > lo {
		delay += hall.rng.Intn(hi - lo + 1)
	}
	return int64(delay * TickRate)
}

// freeIdentity returns the next roster identity not already seated in this hall.
func (mh *matchHandler) freeIdentity(hall *HallState) (bot.Identity, bool) {
	n := mh.mod.Roster.Len()
	for i := 0; i < n; i++ {
		identity := mh.mod.Roster.Pick(hall.nextBot)
		hall.nextBot++
		if _, busy := hall.Bots[identity.UserID]; !busy {
			return identity, true
		}
	}
	return bot.Identity{}, false
}

func applyMove(ctx context.Context, world *app.World, id string, move bot.Move) ([]app.Event, error) {
	switch move.Kind {
	case bot.MoveAttack:
		return world.Attack(ctx, id, move.Card)
	case bot.MoveDefend:
		return world.Defend(ctx, id, move.AttackIndex, move.Card)
	case bot.MoveEndTurn:
		return world.EndTurn(ctx, id)
	default:
		return nil, nil
	}
}

// dispatchEvents encodes app events and sends them to their recipients.
func (mh *matchHandler) dispatchEvents(hall *HallState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		opCode, data, err := encodeEvent(ev)
		if err != nil {
			logger.Error("Failed to encode event %v: %v", ev.Kind, err)
			continue
		}

		var recipients []runtime.Presence
		if len(ev.Recipients) > 0 {
			for _, pid := range ev.Recipients {
				if p, ok := hall.Presences[pid]; ok {
					recipients = append(recipients, p)
				}
			}
			// Intended recipients that are not connected (bots, leavers) must
			// not turn into a hall-wide broadcast.
			if len(recipients) == 0 {
				continue
			}
		}

		if err := dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
			logger.Error("Failed to broadcast event %v: %v", ev.Kind, err)
		}
	}
}

// sendError sends a game error to a specific participant.
func (mh *matchHandler) sendError(hall *HallState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, pid, code, message string) {
	data, err := json.Marshal(GameErrorMsg{Code: code, Message: message})
	if err != nil {
		logger.Error("Failed to marshal game error: %v", err)
		return
	}

	presence, ok := hall.Presences[pid]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", pid)
		return
	}

	if err := dispatcher.BroadcastMessage(OpGameError, data, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("Failed to send game error to %s: %v", pid, err)
	}
}

func hallLabel(hall *HallState) (string, error) {
	label, err := structpb.NewStruct(map[string]interface{}{
		MatchLabelKeyGame:     labelGame,
		MatchLabelKeyKind:     labelKind,
		MatchLabelKeyWaiting:  len(hall.World.Waiting()),
		MatchLabelKeySessions: hall.World.ActiveSessions(),
	})
	if err != nil {
		return "", err
	}
	data, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// updateLabel pushes the label when the waiting or session counts changed.
func (mh *matchHandler) updateLabel(hall *HallState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := hallLabel(hall)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if label == hall.Label {
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
		return
	}
	hall.Label = label
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Hall terminated with grace %d", graceSeconds)
	if hall, ok := state.(*HallState); ok {
		mh.dispatchEvents(hall, dispatcher, logger, hall.World.Shutdown(ctx))
	}
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
