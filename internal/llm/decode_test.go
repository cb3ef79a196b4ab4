package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type card struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    card
		wantErr bool
	}{
		{
			name:  "plain object",
			input: `{"title":"Happy Birthday!","message":"Enjoy","signature":"Sam"}`,
			want:  card{"Happy Birthday!", "Enjoy", "Sam"},
		},
		{
			name:  "fenced",
			input: "```json\n{\"title\":\"Hi\",\"message\":\"m\",\"signature\":\"s\"}\n```",
			want:  card{"Hi", "m", "s"},
		},
		{
			name:  "surrounding prose",
			input: "Here is your card:\n{\"title\":\"Hi\"}\nHope you like it!",
			want:  card{Title: "Hi"},
		},
		{
			name:  "extra fields ignored",
			input: `{"title":"Hi","mood":"warm"}`,
			want:  card{Title: "Hi"},
		},
		{name: "no json", input: "Dear friend, happy birthday.", wantErr: true},
		{name: "type mismatch", input: `{"title": 42}`, wantErr: true},
		{name: "truncated", input: `{"title": "Hi"`, wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got card
			err := DecodeJSON(tc.input, &got)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
