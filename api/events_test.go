package api_test

import (
	"encoding/json"
	"errors"
	"testing"

	"pairquiz-backend/api"
)

func TestSendGameInviteValidate(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantLevel int
		wantField string
	}{
		{name: "level absent", data: `{"senderId":"a","recipientId":"b"}`, wantLevel: 0},
		{name: "level set", data: `{"senderId":"a","recipientId":"b","level":3}`, wantLevel: 3},
		{name: "level zero", data: `{"senderId":"a","recipientId":"b","level":0}`, wantField: "level"},
		{name: "level negative", data: `{"senderId":"a","recipientId":"b","level":-2}`, wantField: "level"},
		{name: "sender missing", data: `{"recipientId":"b"}`, wantField: "senderId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := api.DecodeJSON[api.SendGameInviteRequestData](json.RawMessage(tt.data))

			if tt.wantField != "" {
				validationErr := api.ValidationError{}
				if !errors.As(err, &validationErr) {
					t.Fatalf("got error %v, want a validation error", err)
				}
				if _, ok := validationErr.Fields[tt.wantField]; !ok {
					t.Errorf("invalid fields %v, want %q", validationErr.Fields, tt.wantField)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			level := 0
			if got.Level != nil {
				level = *got.Level
			}
			if level != tt.wantLevel {
				t.Errorf("level: got %d, want %d", level, tt.wantLevel)
			}
		})
	}
}
