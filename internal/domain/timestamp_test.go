package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "rfc3339 with zone", input: "2024-03-01T10:00:00Z", want: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{name: "naive with fraction", input: "2024-03-01T10:00:00.123456", want: time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.UTC)},
		{name: "naive with space", input: "2024-03-01 10:00:00", want: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{name: "bare date", input: "1990-05-17", want: time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)},
		{name: "garbage", input: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.Time), "got %v", got.Time)
		})
	}
}

func TestTimestamp_JSON(t *testing.T) {
	var holder struct {
		At  Timestamp  `json:"at"`
		Opt *Timestamp `json:"opt"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"at":"2024-03-01T10:00:00","opt":null}`), &holder))
	assert.Equal(t, 2024, holder.At.Year())
	assert.Nil(t, holder.Opt)

	data, err := json.Marshal(holder.At)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01T10:00:00Z"`, string(data))

	data, err = json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	assert.Error(t, json.Unmarshal([]byte(`{"at":12}`), &holder))
	assert.Error(t, json.Unmarshal([]byte(`{"at":"soon"}`), &holder))

	require.NoError(t, json.Unmarshal([]byte(`{"at":""}`), &holder))
	assert.True(t, holder.At.IsZero())
}
