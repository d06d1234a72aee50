package nakama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"durak/internal/app"
	"durak/internal/stats"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// fakeNakama implements the NakamaModule calls the RPCs make. Any other call
// panics on the nil embedded interface.
type fakeNakama struct {
	runtime.NakamaModule

	matches   []*api.Match
	lastQuery string
	created   []string
	accounts  map[string]*api.Account
	createErr error
}

func (f *fakeNakama) MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error) {
	f.lastQuery = query
	return f.matches, nil
}

func (f *fakeNakama) MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, module)
	return "hall-new", nil
}

func (f *fakeNakama) AccountGetId(ctx context.Context, userID string) (*api.Account, error) {
	if acc, ok := f.accounts[userID]; ok {
		return acc, nil
	}
	return nil, errors.New("not found")
}

func userCtx(userID string) context.Context {
	return context.WithValue(context.Background(), runtime.RUNTIME_CTX_USER_ID, userID)
}

func TestRpcFindHall(t *testing.T) {
	mod := newTestModule(&fakeClock{t: time.Unix(1000, 0)})

	t.Run("ExistingHall", func(t *testing.T) {
		nk := &fakeNakama{matches: []*api.Match{{MatchId: "hall-1"}}}
		out, err := mod.rpcFindHall(userCtx("u1"), noopLogger{}, nil, nk, "")
		if err != nil {
			t.Fatalf("rpcFindHall: %v", err)
		}
		var resp FindHallResponse
		if err := json.Unmarshal([]byte(out), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.MatchID != "hall-1" || resp.IsNew {
			t.Errorf("response = %+v", resp)
		}
		if nk.lastQuery != "+label.game:durak +label.kind:hall" {
			t.Errorf("query = %q", nk.lastQuery)
		}
		if len(nk.created) != 0 {
			t.Errorf("created %d halls, want 0", len(nk.created))
		}
	})

	t.Run("CreatesHall", func(t *testing.T) {
		nk := &fakeNakama{}
		out, err := mod.rpcFindHall(userCtx("u1"), noopLogger{}, nil, nk, "")
		if err != nil {
			t.Fatalf("rpcFindHall: %v", err)
		}
		var resp FindHallResponse
		if err := json.Unmarshal([]byte(out), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.MatchID != "hall-new" || !resp.IsNew {
			t.Errorf("response = %+v", resp)
		}
		if len(nk.created) != 1 || nk.created[0] != MatchNameDurak {
			t.Errorf("created = %v, want [%s]", nk.created, MatchNameDurak)
		}
	})

	t.Run("CreateFails", func(t *testing.T) {
		nk := &fakeNakama{createErr: errors.New("boom")}
		if _, err := mod.rpcFindHall(userCtx("u1"), noopLogger{}, nil, nk, ""); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestRpcPlayerStats(t *testing.T) {
	mod := newTestModule(&fakeClock{t: time.Unix(1000, 0)})
	if _, err := mod.Ledger.RecordResult("Alice", true, stats.GameFlags{}); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	nk := &fakeNakama{accounts: map[string]*api.Account{
		"u1": {User: &api.User{Id: "u1", DisplayName: "Alice"}},
	}}

	tests := []struct {
		name     string
		ctx      context.Context
		payload  string
		wantName string
		wantWins int
		wantErr  bool
	}{
		{name: "ByName", ctx: context.Background(), payload: `{"displayName":"Alice"}`, wantName: "Alice", wantWins: 1},
		{name: "UnknownNameIsEmpty", ctx: context.Background(), payload: `{"displayName":"Nobody"}`, wantName: "Nobody"},
		{name: "CallerAccount", ctx: userCtx("u1"), payload: "", wantName: "Alice", wantWins: 1},
		{name: "NoNameNoCaller", ctx: context.Background(), payload: "{}", wantErr: true},
		{name: "BadPayload", ctx: context.Background(), payload: "{", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out, err := mod.rpcPlayerStats(test.ctx, noopLogger{}, nil, nk, test.payload)
			if test.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("rpcPlayerStats: %v", err)
			}
			var resp PlayerStatsResponse
			if err := json.Unmarshal([]byte(out), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Stats.Name != test.wantName || resp.Stats.Wins != test.wantWins {
				t.Errorf("stats = %+v", resp.Stats)
			}
		})
	}
}

func TestRpcPlayerStatsTruncatesLongNames(t *testing.T) {
	mod := newTestModule(&fakeClock{t: time.Unix(1000, 0)})
	h := newHallHarness(t, mod)
	long := strings.Repeat("x", app.MaxDisplayNameRunes+10)
	h.enter("p1", "p2")
	h.send("p1", OpJoin, JoinRequest{DisplayName: long})
	h.send("p2", OpJoin, JoinRequest{DisplayName: "Bob"})
	h.handler.MatchLeave(context.Background(), noopLogger{}, nil, nil, h.dispatcher, h.tick, h.hall, []runtime.Presence{presence("p2")})

	nk := &fakeNakama{accounts: map[string]*api.Account{
		"u1": {User: &api.User{Id: "u1", DisplayName: long}},
	}}
	requests := []struct {
		ctx     context.Context
		payload string
	}{
		{ctx: context.Background(), payload: `{"displayName":"` + long + `"}`},
		{ctx: userCtx("u1"), payload: ""},
	}
	for _, req := range requests {
		out, err := mod.rpcPlayerStats(req.ctx, noopLogger{}, nil, nk, req.payload)
		if err != nil {
			t.Fatalf("rpcPlayerStats: %v", err)
		}
		var resp PlayerStatsResponse
		if err := json.Unmarshal([]byte(out), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.Stats.Name != long[:app.MaxDisplayNameRunes] || resp.Stats.Wins != 1 {
			t.Errorf("stats = %+v, want the truncated name with one win", resp.Stats)
		}
	}
}

func TestRpcLeaderboardAndAchievements(t *testing.T) {
	mod := newTestModule(&fakeClock{t: time.Unix(1000, 0)})
	for i := 0; i < 5; i++ {
		if _, err := mod.Ledger.RecordResult("Alice", true, stats.GameFlags{}); err != nil {
			t.Fatalf("RecordResult: %v", err)
		}
		if _, err := mod.Ledger.RecordResult("Bob", i == 0, stats.GameFlags{}); err != nil {
			t.Fatalf("RecordResult: %v", err)
		}
	}

	out, err := mod.rpcLeaderboard(context.Background(), noopLogger{}, nil, nil, "")
	if err != nil {
		t.Fatalf("rpcLeaderboard: %v", err)
	}
	var board LeaderboardResponse
	if err := json.Unmarshal([]byte(out), &board); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(board.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(board.Entries))
	}
	if board.Entries[0].Name != "Alice" || board.Entries[0].Rank != 1 || board.Entries[0].WinRate != 100 {
		t.Errorf("first entry = %+v", board.Entries[0])
	}
	if len(board.Entries[0].Achievements) == 0 {
		t.Error("leaderboard entry carries no achievements")
	}
	if board.Entries[0].CurrentStreak != 5 || board.Entries[0].BestStreak != 5 {
		t.Errorf("Alice streaks = %d/%d, want 5/5", board.Entries[0].CurrentStreak, board.Entries[0].BestStreak)
	}
	if board.Entries[1].Name != "Bob" || board.Entries[1].CurrentStreak != 0 || board.Entries[1].BestStreak != 1 {
		t.Errorf("second entry = %+v, want Bob with streaks 0/1", board.Entries[1])
	}

	var raw struct {
		Entries []map[string]any `json:"entries"`
	}
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"currentStreak", "bestStreak"} {
		if _, ok := raw.Entries[0][key]; !ok {
			t.Errorf("leaderboard entry has no %q key", key)
		}
	}

	out, err = mod.rpcLeaderboard(context.Background(), noopLogger{}, nil, nil, `{"limit":1}`)
	if err != nil {
		t.Fatalf("rpcLeaderboard: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &board); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(board.Entries) != 1 {
		t.Errorf("limited entries = %d, want 1", len(board.Entries))
	}

	out, err = mod.rpcAchievements(context.Background(), noopLogger{}, nil, nil, `{"displayName":"Alice"}`)
	if err != nil {
		t.Fatalf("rpcAchievements: %v", err)
	}
	var ach AchievementsResponse
	if err := json.Unmarshal([]byte(out), &ach); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ids := map[string]bool{}
	for _, a := range ach.Achievements {
		ids[a.ID] = true
	}
	for _, id := range []string{stats.AchievementFirstWin, stats.AchievementStreak3, stats.AchievementStreak5} {
		if !ids[id] {
			t.Errorf("missing achievement %s in %v", id, ach.Achievements)
		}
	}
}

func TestRpcVivoxLoginToken(t *testing.T) {
	mod := newTestModule(&fakeClock{t: time.Unix(1000, 0)})

	out, err := mod.rpcVivoxLoginToken(userCtx("u1"), noopLogger{}, nil, nil, "")
	if err != nil {
		t.Fatalf("rpcVivoxLoginToken: %v", err)
	}
	var token VoiceTokenMsg
	if err := json.Unmarshal([]byte(out), &token); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if token.Token == "" || token.Action != "login" || token.Channel != "" {
		t.Errorf("token = %+v", token)
	}

	if _, err := mod.rpcVivoxLoginToken(context.Background(), noopLogger{}, nil, nil, ""); err == nil {
		t.Error("expected an error without a caller")
	}
}

func TestExtractUserIDFromToken(t *testing.T) {
	claims := base64.RawURLEncoding.EncodeToString([]byte(`{"uid":"user-42"}`))
	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{name: "Valid", token: "h." + claims + ".s", want: "user-42"},
		{name: "WrongParts", token: "abc", wantErr: true},
		{name: "BadBase64", token: "h.!!!.s", wantErr: true},
		{name: "MissingUID", token: "h." + base64.RawURLEncoding.EncodeToString([]byte(`{}`)) + ".s", wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := extractUserIDFromToken(test.token)
			if (err != nil) != test.wantErr {
				t.Fatalf("err = %v, wantErr %t", err, test.wantErr)
			}
			if got != test.want {
				t.Errorf("got %q, want %q", got, test.want)
			}
		})
	}
}
