package duel_test

import (
	"context"
	"sync"
	"testing"

	"pairquiz-backend/api"
	"pairquiz-backend/internal/duel"
	"pairquiz-backend/internal/presence"
	"pairquiz-backend/internal/presence/presencetest"

	"github.com/google/go-cmp/cmp"
)

type testUsers struct {
	registry *presence.Registry
	conns    map[string]*presencetest.Conn
}

func newTestUsers(t *testing.T, userIDs ...string) testUsers {
	t.Helper()
	u := testUsers{
		registry: presence.NewRegistry(),
		conns:    map[string]*presencetest.Conn{},
	}
	for _, userID := range userIDs {
		conn := presencetest.NewConn("conn-" + userID)
		if err := u.registry.Join(context.Background(), userID, conn); err != nil {
			t.Fatalf("join %s: %v", userID, err)
		}
		u.conns[userID] = conn
	}
	for _, conn := range u.conns {
		conn.Reset()
	}
	return u
}

func TestSessionsCreate(t *testing.T) {
	users := newTestUsers(t, "alice", "bob", "carol")
	sessions := duel.NewSessions(users.registry)

	id, err := sessions.Create("alice", "bob")
	assertNil(t, err)
	assertEqual(t, true, id != "")

	for _, userID := range []string{"alice", "bob"} {
		got, ok := sessions.SessionOf(userID)
		assertEqual(t, true, ok)
		assertEqual(t, id, got)
	}

	opponent, ok := sessions.Opponent(id, "alice")
	assertEqual(t, true, ok)
	assertEqual(t, "bob", opponent)

	_, err = sessions.Create("carol", "bob")
	assertEqual(t, duel.ErrAlreadyInGame, err)
	assertEqual(t, false, sessions.InGame("carol"))

	_, err = sessions.Create("carol", "carol")
	assertEqual(t, duel.ErrSameUser, err)
}

func TestSessionsEndManually(t *testing.T) {
	users := newTestUsers(t, "alice", "bob")
	sessions := duel.NewSessions(users.registry)

	var ended []string
	sessions.OnEnd = func(id string) { ended = append(ended, id) }

	id, err := sessions.Create("alice", "bob")
	assertNil(t, err)

	sessions.EndManually(context.Background(), id, "alice")

	assertEqual(t, false, sessions.InGame("alice"))
	assertEqual(t, false, sessions.InGame("bob"))
	assertEqual(t, 0, sessions.Len())
	if diff := cmp.Diff([]string{id}, ended); diff != "" {
		t.Errorf("ended sessions mismatch (-want +got):\n%s", diff)
	}

	events := users.conns["bob"].Filter(api.ResponseTypeOpponentDisconnected)
	assertEqual(t, 1, len(events))
	data, err := presencetest.Decode[api.OpponentDisconnectedResponseData](events[0])
	assertNil(t, err)
	want := api.OpponentDisconnectedResponseData{GameSessionID: id, OpponentID: "alice", Manual: true}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("opponent disconnected mismatch (-want +got):\n%s", diff)
	}

	acks := users.conns["alice"].Filter(api.ResponseTypeGameEnded)
	assertEqual(t, 1, len(acks))
	ack, err := presencetest.Decode[api.GameEndedResponseData](acks[0])
	assertNil(t, err)
	assertEqual(t, api.GameEndedResponseData{UserID: "alice", GameSessionID: id}, ack)
}

func TestSessionsEndManuallyNotBound(t *testing.T) {
	users := newTestUsers(t, "alice", "bob", "carol")
	sessions := duel.NewSessions(users.registry)

	id, err := sessions.Create("alice", "bob")
	assertNil(t, err)

	// carol is not part of the session: acknowledged no-op.
	sessions.EndManually(context.Background(), id, "carol")
	sessions.EndManually(context.Background(), "unknown", "carol")

	assertEqual(t, 2, len(users.conns["carol"].Filter(api.ResponseTypeGameEnded)))
	assertEqual(t, true, sessions.InGame("alice"))
	assertEqual(t, true, sessions.InGame("bob"))
	assertEqual(t, 0, len(users.conns["bob"].Filter(api.ResponseTypeOpponentDisconnected)))
	assertEqual(t, 0, len(users.conns["alice"].Filter(api.ResponseTypeOpponentDisconnected)))
}

func TestSessionsEndOnDisconnect(t *testing.T) {
	users := newTestUsers(t, "alice", "bob")
	sessions := duel.NewSessions(users.registry)

	id, err := sessions.Create("alice", "bob")
	assertNil(t, err)

	got, ok := sessions.EndOnDisconnect(context.Background(), "alice")
	assertEqual(t, true, ok)
	assertEqual(t, id, got)

	assertEqual(t, false, sessions.InGame("alice"))
	assertEqual(t, false, sessions.InGame("bob"))

	events := users.conns["bob"].Filter(api.ResponseTypeOpponentDisconnected)
	assertEqual(t, 1, len(events))
	data, err := presencetest.Decode[api.OpponentDisconnectedResponseData](events[0])
	assertNil(t, err)
	assertEqual(t, false, data.Manual)
	assertEqual(t, "alice", data.OpponentID)

	// alice gets no ack on disconnect.
	assertEqual(t, 0, len(users.conns["alice"].Filter(api.ResponseTypeGameEnded)))

	_, ok = sessions.EndOnDisconnect(context.Background(), "bob")
	assertEqual(t, false, ok)
}

func TestSessionsLeave(t *testing.T) {
	users := newTestUsers(t, "alice", "bob")
	sessions := duel.NewSessions(users.registry)

	var ended []string
	sessions.OnEnd = func(id string) { ended = append(ended, id) }

	id, err := sessions.Create("alice", "bob")
	assertNil(t, err)

	assertEqual(t, false, sessions.Leave("alice", "other"))
	assertEqual(t, true, sessions.Leave("alice", id))
	assertEqual(t, false, sessions.InGame("alice"))
	assertEqual(t, true, sessions.InGame("bob"))
	assertEqual(t, 0, len(ended))

	// bob disconnecting after alice soft-left notifies nobody.
	_, ok := sessions.EndOnDisconnect(context.Background(), "bob")
	assertEqual(t, true, ok)
	assertEqual(t, 0, len(users.conns["alice"].Filter(api.ResponseTypeOpponentDisconnected)))
	assertEqual(t, 0, sessions.Len())
	assertEqual(t, 1, len(ended))
}

func TestSessionsLeaveBoth(t *testing.T) {
	users := newTestUsers(t, "alice", "bob")
	sessions := duel.NewSessions(users.registry)

	id, err := sessions.Create("alice", "bob")
	assertNil(t, err)

	assertEqual(t, true, sessions.Leave("alice", id))
	assertEqual(t, true, sessions.Leave("bob", id))
	assertEqual(t, 0, sessions.Len())

	for _, conn := range users.conns {
		assertEqual(t, 0, len(conn.Events()))
	}

	// Both may start a new game.
	_, err = sessions.Create("bob", "alice")
	assertNil(t, err)
}

func TestAnswersBarrier(t *testing.T) {
	users := newTestUsers(t, "alice", "bob")
	answers := duel.NewAnswers(users.registry)
	ctx := context.Background()

	assertEqual(t, false, answers.Submit(ctx, "S", 0, "alice", "x"))
	assertEqual(t, 1, answers.Pending("S", 0))
	assertEqual(t, 0, len(users.conns["alice"].Events()))

	assertEqual(t, true, answers.Submit(ctx, "S", 0, "bob", "y"))
	assertEqual(t, 0, answers.Pending("S", 0))

	tests := []struct {
		user string
		want api.BothAnswersReceivedResponseData
	}{
		{
			user: "alice",
			want: api.BothAnswersReceivedResponseData{
				GameSessionID: "S", QuestionIndex: 0, UserID: "alice", YourAnswer: "x", OpponentAnswer: "y",
			},
		},
		{
			user: "bob",
			want: api.BothAnswersReceivedResponseData{
				GameSessionID: "S", QuestionIndex: 0, UserID: "bob", YourAnswer: "y", OpponentAnswer: "x",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			events := users.conns[tt.user].Filter(api.ResponseTypeBothAnswersReceived)
			assertEqual(t, 1, len(events))
			got, err := presencetest.Decode[api.BothAnswersReceivedResponseData](events[0])
			assertNil(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}

	// Post delivery the key is clear, a third call starts a fresh buffer.
	assertEqual(t, false, answers.Submit(ctx, "S", 0, "alice", "z"))
	assertEqual(t, 1, answers.Pending("S", 0))
	assertEqual(t, 1, len(users.conns["bob"].Filter(api.ResponseTypeBothAnswersReceived)))
}

func TestAnswersKeyedByQuestion(t *testing.T) {
	users := newTestUsers(t, "alice", "bob")
	answers := duel.NewAnswers(users.registry)
	ctx := context.Background()

	answers.Submit(ctx, "S", 0, "alice", "a0")
	answers.Submit(ctx, "S", 1, "bob", "b1")
	answers.Submit(ctx, "T", 0, "bob", "b0")

	assertEqual(t, 0, len(users.conns["alice"].Events()))

	// Resubmission replaces the buffered answer.
	answers.Submit(ctx, "S", 1, "bob", "b1'")
	assertEqual(t, 1, answers.Pending("S", 1))

	assertEqual(t, true, answers.Submit(ctx, "S", 1, "alice", "a1"))
	events := users.conns["alice"].Filter(api.ResponseTypeBothAnswersReceived)
	assertEqual(t, 1, len(events))
	got, err := presencetest.Decode[api.BothAnswersReceivedResponseData](events[0])
	assertNil(t, err)
	assertEqual(t, "b1'", got.OpponentAnswer)
	assertEqual(t, 1, got.QuestionIndex)

	answers.Discard("S")
	assertEqual(t, 0, answers.Pending("S", 0))
	assertEqual(t, 1, answers.Pending("T", 0))
}

func TestAnswersConcurrentSubmit(t *testing.T) {
	users := newTestUsers(t, "alice", "bob")
	answers := duel.NewAnswers(users.registry)
	ctx := context.Background()

	const questions = 50

	wg := sync.WaitGroup{}
	for _, userID := range []string{"alice", "bob"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for q := range questions {
				answers.Submit(ctx, "S", q, userID, userID)
			}
		}()
	}
	wg.Wait()

	for _, userID := range []string{"alice", "bob"} {
		events := users.conns[userID].Filter(api.ResponseTypeBothAnswersReceived)
		assertEqual(t, questions, len(events))
		for _, e := range events {
			got, err := presencetest.Decode[api.BothAnswersReceivedResponseData](e)
			assertNil(t, err)
			assertEqual(t, userID, got.YourAnswer)
			assertEqual(t, true, got.OpponentAnswer != userID)
		}
	}
}

func TestAnswersDroppedAfterEnd(t *testing.T) {
	users := newTestUsers(t, "alice", "bob")
	sessions := duel.NewSessions(users.registry)
	answers := duel.NewAnswers(users.registry)
	answers.Bound = sessions.Bound
	sessions.OnEnd = answers.Discard
	ctx := context.Background()

	id, err := sessions.Create("alice", "bob")
	assertNil(t, err)

	assertEqual(t, false, answers.Submit(ctx, id, 0, "carol", "z"))
	assertEqual(t, 0, answers.Pending(id, 0))

	_, ok := sessions.EndOnDisconnect(ctx, "alice")
	assertEqual(t, true, ok)

	assertEqual(t, false, answers.Submit(ctx, id, 0, "bob", "late"))
	assertEqual(t, 0, answers.Pending(id, 0))
}

func TestAnswersEndRace(t *testing.T) {
	users := newTestUsers(t, "alice", "bob")
	sessions := duel.NewSessions(users.registry)
	answers := duel.NewAnswers(users.registry)
	answers.Bound = sessions.Bound
	sessions.OnEnd = answers.Discard
	ctx := context.Background()

	for range 200 {
		id, err := sessions.Create("alice", "bob")
		assertNil(t, err)

		wg := sync.WaitGroup{}
		wg.Add(2)
		go func() {
			defer wg.Done()
			sessions.EndOnDisconnect(ctx, "alice")
		}()
		go func() {
			defer wg.Done()
			answers.Submit(ctx, id, 0, "bob", "y")
		}()
		wg.Wait()

		if n := answers.Pending(id, 0); n != 0 {
			t.Fatalf("ended session %s kept %d buffered answer(s)", id, n)
		}
	}
}

func assertEqual(t *testing.T, want, got any) {
	t.Helper()
	if want != got {
		t.Errorf("assert equal: got %v (type %T), want %v (type %T)", got, got, want, want)
	}
}

func assertNil(t *testing.T, got error) {
	t.Helper()
	if got != nil {
		t.Errorf("assert nil: got %v", got)
	}
}
