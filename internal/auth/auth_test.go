package auth_test

import (
	"errors"
	"testing"

	"pairquiz-backend/internal/auth"

	"github.com/golang-jwt/jwt"
)

func TestTokens(t *testing.T) {
	tokens := auth.NewTokens("secret")
	assertEqual(t, true, tokens.Enabled())

	token, err := tokens.NewToken("alice")
	assertNil(t, err)

	userID, err := tokens.CheckToken(token)
	assertNil(t, err)
	assertEqual(t, "alice", userID)

	_, err = auth.NewTokens("other").CheckToken(token)
	assertEqual(t, true, err != nil)

	_, err = tokens.CheckToken("garbage")
	assertEqual(t, true, err != nil)
}

func TestCheckTokenMissingSubject(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": "alice",
	}).SignedString([]byte("secret"))
	assertNil(t, err)

	_, err = auth.NewTokens("secret").CheckToken(token)
	assertEqual(t, true, errors.Is(err, auth.ErrInvalidClaim))
}

func TestDisabled(t *testing.T) {
	tokens := auth.NewTokens("")
	assertEqual(t, false, tokens.Enabled())
}

func TestFromHeader(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{header: "Bearer abc", want: "abc"},
		{header: "abc", want: "abc"},
		{header: "  Bearer  abc ", want: "abc"},
		{header: "", wantErr: auth.ErrNoToken},
		{header: "Bearer ", wantErr: auth.ErrNoToken},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := auth.FromHeader(tt.header)
			assertEqual(t, tt.wantErr, err)
			assertEqual(t, tt.want, got)
		})
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
