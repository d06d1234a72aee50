package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"durak/internal/app"
	"durak/internal/stats"

	"github.com/heroiclabs/nakama-common/runtime"
)

// FindHallResponse is the payload returned to clients looking for a hall.
type FindHallResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

type playerRequest struct {
	DisplayName string `json:"displayName"`
}

type leaderboardRequest struct {
	Limit int `json:"limit"`
}

type PlayerStatsResponse struct {
	Stats StatsMsg `json:"stats"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntryMsg `json:"entries"`
}

type AchievementsResponse struct {
	DisplayName  string           `json:"displayName"`
	Achievements []AchievementMsg `json:"achievements"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func (m *Module) RegisterRPCs(initializer runtime.Initializer) error {
	rpcs := map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error){
		RpcFindHall:        m.rpcFindHall,
		RpcPlayerStats:     m.rpcPlayerStats,
		RpcLeaderboard:     m.rpcLeaderboard,
		RpcAchievements:    m.rpcAchievements,
		RpcVivoxLoginToken: m.rpcVivoxLoginToken,
	}
	for id, fn := range rpcs {
		if err := initializer.RegisterRpc(id, fn); err != nil {
			return fmt.Errorf("register rpc %s: %w", id, err)
		}
	}
	return nil
}

func (m *Module) rpcFindHall(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	query := fmt.Sprintf("+label.%s:%s +label.%s:%s", MatchLabelKeyGame, labelGame, MatchLabelKeyKind, labelKind)
	matches, err := nk.MatchList(ctx, 1, true, "", nil, nil, query)
	if err != nil {
		logger.Error("RpcFindHall [User:%s]: Failed to list matches: %v", userID, err)
		return "", runtime.NewError("failed to list halls", 13)
	}

	resp := FindHallResponse{}
	if len(matches) > 0 {
		resp.MatchID = matches[0].MatchId
		logger.Debug("RpcFindHall [User:%s]: Found existing hall %s", userID, resp.MatchID)
	} else {
		resp.MatchID, err = nk.MatchCreate(ctx, MatchNameDurak, map[string]interface{}{})
		if err != nil {
			logger.Error("RpcFindHall [User:%s]: Failed to create hall: %v", userID, err)
			return "", runtime.NewError("failed to create hall", 13)
		}
		resp.IsNew = true
		logger.Info("RpcFindHall [User:%s]: Created new hall %s", userID, resp.MatchID)
	}
	return marshalResponse(logger, resp)
}

func (m *Module) rpcPlayerStats(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	name, err := requestedName(ctx, nk, payload)
	if err != nil {
		return "", err
	}
	record, err := m.Ledger.Stats(name)
	if errors.Is(err, stats.ErrEmptyName) {
		return "", runtime.NewError("displayName is required", 3)
	}
	if err != nil {
		logger.Error("RpcPlayerStats: %v", err)
		return "", runtime.NewError("failed to read stats", 13)
	}
	return marshalResponse(logger, PlayerStatsResponse{Stats: *statsToMsg(&record)})
}

func (m *Module) rpcLeaderboard(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req leaderboardRequest
	if err := decode([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}
	return marshalResponse(logger, LeaderboardResponse{Entries: leaderboardToMsg(m.Ledger.Leaderboard(req.Limit))})
}

func (m *Module) rpcAchievements(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	name, err := requestedName(ctx, nk, payload)
	if err != nil {
		return "", err
	}
	return marshalResponse(logger, AchievementsResponse{
		DisplayName:  name,
		Achievements: achievementsToMsg(m.Ledger.Achievements(name)),
	})
}

// requestedName reads displayName from payload, falling back to the caller's
// account display name. Names are normalized the way a hall join does it.
func requestedName(ctx context.Context, nk runtime.NakamaModule, payload string) (string, error) {
	var req playerRequest
	if err := decode([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}
	if name, err := app.NormalizeName(req.DisplayName); err == nil {
		return name, nil
	}
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" || nk == nil {
		return "", runtime.NewError("displayName is required", 3)
	}
	name, err := NewNakamaAccountAdapter(nk).DisplayName(ctx, userID)
	if errors.Is(err, errNoDisplayName) {
		return "", runtime.NewError("displayName is required", 3)
	}
	if err != nil {
		return "", runtime.NewError("account not found", 5)
	}
	if name, err = app.NormalizeName(name); err != nil {
		return "", runtime.NewError("displayName is required", 3)
	}
	return name, nil
}

func marshalResponse(logger runtime.Logger, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to marshal rpc response: %v", err)
		return "", runtime.NewError("internal error", 13)
	}
	return string(b), nil
}
