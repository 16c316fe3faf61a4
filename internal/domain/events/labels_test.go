package events_test

import (
	"encoding/json"
	"testing"

	"github.com/Togather-Foundation/serendipity/internal/domain/events"
	"github.com/stretchr/testify/require"
)

func TestLabelsUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    events.Labels
		wantErr bool
	}{
		{name: "array", input: `["9th","10th"]`, want: events.Labels{"9th", "10th"}},
		{name: "comma separated", input: `"9th, 10th"`, want: events.Labels{"9th", "10th"}},
		{name: "blank parts dropped", input: `" Male ,, Female, "`, want: events.Labels{"Male", "Female"}},
		{name: "empty string", input: `""`, want: events.Labels{}},
		{name: "empty array", input: `[]`, want: events.Labels{}},
		{name: "null", input: `null`, want: nil},
		{name: "number", input: `7`, wantErr: true},
		{name: "mixed array", input: `["9th", 10]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload struct {
				Genders events.Labels `json:"genders"`
			}
			err := json.Unmarshal([]byte(`{"genders":`+tt.input+`}`), &payload)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, payload.Genders)
		})
	}
}
