package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/heroiclabs/nakama-common/rtapi"
	"github.com/heroiclabs/nakama-go/v2"
)

const (
	ServerKey = "defaultkey"
	HttpKey   = "defaulthttpkey"
	Host      = "127.0.0.1"
	Port      = 7350
)

// Op codes of the durak_hall match.
const (
	OpJoin    int64 = 1
	OpAttack  int64 = 2
	OpChat    int64 = 5
	OpRequest int64 = 7

	OpWaitingForOpponent int64 = 101
	OpSessionStarted     int64 = 102
	OpStateChanged       int64 = 103
	OpActionBroadcast    int64 = 104
	OpSessionEnded       int64 = 105
	OpOpponentDisconnect int64 = 106
	OpChatMessage        int64 = 107
	OpGameError          int64 = 109
)

type Card struct {
	Suit  string `json:"suit"`
	Rank  string `json:"rank"`
	Value int    `json:"value"`
}

type Snapshot struct {
	SessionID     string `json:"sessionId"`
	Hand          []Card `json:"hand"`
	TrumpSuit     string `json:"trumpSuit"`
	AttackerIndex int    `json:"attackerIndex"`
	DefenderIndex int    `json:"defenderIndex"`
	YourIndex     int    `json:"yourIndex"`
	IsYourTurn    bool   `json:"isYourTurn"`
}

type TestClient struct {
	Client  *nakama.Client
	Session *nakama.Session
	Socket  *nakama.Socket
	UserID  string

	events chan *rtapi.MatchData
}

func NewTestClient(t *testing.T) *TestClient {
	client := nakama.NewClient(ServerKey, Host, Port, false)

	deviceID := fmt.Sprintf("test_device_%d", time.Now().UnixNano())

	session, err := client.AuthenticateDevice(context.Background(), deviceID, true, "")
	if err != nil {
		t.Fatalf("Failed to authenticate: %v", err)
	}

	tc := &TestClient{
		Client:  client,
		Session: session,
		UserID:  session.UserId,
		events:  make(chan *rtapi.MatchData, 64),
	}

	// Buffer every match message from the start so none is missed between waits.
	socket := client.NewSocket()
	socket.OnMatchData = func(data *rtapi.MatchData) {
		tc.events <- data
	}
	if err := socket.Connect(context.Background(), session, true); err != nil {
		t.Fatalf("Failed to connect socket: %v", err)
	}
	tc.Socket = socket
	return tc
}

func (tc *TestClient) Close() {
	if tc.Socket != nil {
		tc.Socket.Close()
	}
}

// FindAndJoinHall calls the find_hall RPC and joins the returned match.
func (tc *TestClient) FindAndJoinHall(t *testing.T) string {
	rpc, err := tc.Client.RpcFunc(context.Background(), tc.Session, "find_hall", "{}")
	if err != nil {
		t.Fatalf("RPC find_hall failed: %v", err)
	}

	var resp struct {
		MatchID string `json:"match_id"`
		IsNew   bool   `json:"is_new"`
	}
	if err := json.Unmarshal([]byte(rpc.Payload), &resp); err != nil || resp.MatchID == "" {
		t.Fatalf("RPC find_hall returned %q: %v", rpc.Payload, err)
	}

	if _, err := tc.Socket.JoinMatch(context.Background(), nil, resp.MatchID, nil); err != nil {
		t.Fatalf("Failed to join match %s: %v", resp.MatchID, err)
	}
	return resp.MatchID
}

// Send marshals payload as JSON and sends it with opCode.
func (tc *TestClient) Send(t *testing.T, matchID string, opCode int64, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if _, err := tc.Socket.SendMatchState(context.Background(), matchID, opCode, data, nil); err != nil {
		t.Fatalf("Failed to send opcode %d: %v", opCode, err)
	}
}

// WaitFor skips buffered messages until one with opCode arrives.
func (tc *TestClient) WaitFor(t *testing.T, opCode int64, timeout time.Duration) *rtapi.MatchData {
	deadline := time.After(timeout)
	for {
		select {
		case data := <-tc.events:
			if data.OpCode == opCode {
				return data
			}
		case <-deadline:
			t.Fatalf("Timeout waiting for OpCode %d", opCode)
			return nil
		}
	}
}
