package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"pairquiz-backend/api"
	"pairquiz-backend/internal/questions"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "pairquiz.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pairquiz.db")

	s, err := Open(context.Background(), path)
	assertNil(t, err)
	assertEqual(t, 1, s.Applied())
	assertNil(t, s.Close())

	s, err = Open(context.Background(), path)
	assertNil(t, err)
	assertEqual(t, 0, s.Applied())
	assertNil(t, s.Close())
}

func TestUpMigration(t *testing.T) {
	got := upMigration("-- +migrate Up\nCREATE TABLE a (x);\n-- +migrate Down\nDROP TABLE a;\n")
	assertEqual(t, "\nCREATE TABLE a (x);\n", got)
	assertEqual(t, "CREATE TABLE b (x);", upMigration("CREATE TABLE b (x);"))
}

func TestDisplayName(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	assertNil(t, s.PutUser(ctx, "alice", "Alice"))
	assertNil(t, s.PutUser(ctx, "nameless", ""))

	name, err := s.DisplayName(ctx, "alice")
	assertNil(t, err)
	assertEqual(t, "Alice", name)

	assertNil(t, s.PutUser(ctx, "alice", "Alice B."))
	name, err = s.DisplayName(ctx, "alice")
	assertNil(t, err)
	assertEqual(t, "Alice B.", name)

	_, err = s.DisplayName(ctx, "nameless")
	assertEqual(t, true, errors.Is(err, ErrNotFound))
	_, err = s.DisplayName(ctx, "ghost")
	assertEqual(t, true, errors.Is(err, ErrNotFound))
}

func TestMarkRead(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	m, err := s.CreateMessage(ctx, Message{SenderID: "alice", ReceiverID: "bob", Body: "hi"})
	assertNil(t, err)
	assertEqual(t, true, m.ID != "")

	tests := []struct {
		name     string
		sender   string
		receiver string
		want     bool
	}{
		{name: "wrong receiver", sender: "alice", receiver: "carol", want: false},
		{name: "swapped parties", sender: "bob", receiver: "alice", want: false},
		{name: "unread", sender: "alice", receiver: "bob", want: true},
		{name: "already read", sender: "alice", receiver: "bob", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.MarkRead(ctx, m.ID, tt.sender, tt.receiver)
			assertNil(t, err)
			assertEqual(t, tt.want, got)
		})
	}

	got, err := s.GetMessage(ctx, m.ID)
	assertNil(t, err)
	assertEqual(t, true, got.Read)

	updated, err := s.MarkRead(ctx, "missing", "alice", "bob")
	assertNil(t, err)
	assertEqual(t, false, updated)
}

func TestMarkReadConcurrent(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	m, err := s.CreateMessage(ctx, Message{SenderID: "alice", ReceiverID: "bob"})
	assertNil(t, err)

	var updated atomic.Int32
	wg := sync.WaitGroup{}
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.MarkRead(ctx, m.ID, "alice", "bob")
			if err != nil {
				t.Error(err)
				return
			}
			if ok {
				updated.Add(1)
			}
		}()
	}
	wg.Wait()

	assertEqual(t, int32(1), updated.Load())
}

func TestQuestions(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	bank, err := questions.Load("")
	assertNil(t, err)

	n, err := s.ReplaceQuestions(ctx, bank)
	assertNil(t, err)
	assertEqual(t, len(bank), n)

	var want []api.Question
	for _, q := range bank {
		if q.Stage == 1 && q.Status == api.QuestionStatusActive {
			want = append(want, q)
		}
	}

	got, err := s.QuestionsByStage(ctx, 1)
	assertNil(t, err)
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(api.Question{}, "ID")); diff != "" {
		t.Errorf("questions mismatch (-want +got):\n%s", diff)
	}

	// Seeding again replaces the bank.
	_, err = s.ReplaceQuestions(ctx, bank[:1])
	assertNil(t, err)
	got, err = s.QuestionsByStage(ctx, 1)
	assertNil(t, err)
	assertEqual(t, 1, len(got))

	got, err = s.QuestionsByStage(ctx, 9)
	assertNil(t, err)
	assertEqual(t, 0, len(got))
}

func TestResults(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	first := api.SaveResultRequest{
		QuizSessionID:  "S",
		UserID:         "alice",
		ReceiverID:     "bob",
		TotalQuestions: 2,
		Answers:        []string{"a", "b"},
	}
	saved, err := s.SaveResult(ctx, first)
	assertNil(t, err)
	assertEqual(t, "alice", saved.UserID)

	_, err = s.SaveResult(ctx, first)
	assertEqual(t, ErrAlreadyExists, err)

	second := first
	second.UserID, second.ReceiverID = "bob", "alice"
	second.Answers = []string{"a", "c"}
	_, err = s.SaveResult(ctx, second)
	assertNil(t, err)

	results, err := s.ResultsBySession(ctx, "S")
	assertNil(t, err)
	assertEqual(t, 2, len(results))
	if diff := cmp.Diff(saved, results[0]); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "c"}, results[1].Answers); diff != "" {
		t.Errorf("answers mismatch (-want +got):\n%s", diff)
	}

	results, err = s.ResultsBySession(ctx, "other")
	assertNil(t, err)
	assertEqual(t, 0, len(results))
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
