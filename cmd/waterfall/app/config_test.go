package app

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	config, err := ParseArgs([]string{
		"-db", "session.sqlite",
		"-s", "3",
		"-o", "out/waterfall",
		"-f", "JPEG",
		"-theme", "thermal",
		"-tz", "UTC",
		"-start", "2024-05-01T12:00:00Z",
		"-rows", "500",
		"-min-power", "-110",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "session.sqlite", config.DBPath)
	assert.Equal(t, int64(3), config.SessionID)
	assert.Equal(t, "out/waterfall.jpeg", config.OutputFile)
	assert.Equal(t, ImageJPEG, config.Format)
	assert.Equal(t, ThermalTheme, config.Theme)
	assert.Equal(t, time.UTC, config.TimeZone)
	assert.Equal(t, 500, config.MaxRows)
	require.NotNil(t, config.StartTime)
	assert.True(t, config.StartTime.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
	assert.Nil(t, config.EndTime)
	require.NotNil(t, config.MinPower)
	assert.Equal(t, -110.0, *config.MinPower)
	assert.Nil(t, config.MaxPower)

	bounds := config.powerBounds(PowerBounds{Min: -90, Max: -30})
	require.NotNil(t, bounds)
	assert.Equal(t, PowerBounds{Min: -110, Max: -30}, *bounds)
}

func TestParseArgs_List(t *testing.T) {
	config, err := ParseArgs([]string{"-db", "session.sqlite", "-list"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, config.ListSessions)
	assert.Nil(t, config.powerBounds(defaultPowerBounds()))
}

func TestParseArgs_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing db", args: []string{"-o", "out"}, wantErr: "db path is required"},
		{name: "bad session", args: []string{"-db", "x", "-s", "0", "-o", "out"}, wantErr: "session id is required"},
		{name: "missing output", args: []string{"-db", "x"}, wantErr: "output file is required"},
		{name: "bad format", args: []string{"-db", "x", "-o", "out", "-f", "gif"}, wantErr: "invalid image format"},
		{name: "bad theme", args: []string{"-db", "x", "-o", "out", "-theme", "neon"}, wantErr: "unknown color theme"},
		{name: "bad time zone", args: []string{"-db", "x", "-o", "out", "-tz", "Mars/Olympus"}, wantErr: "invalid time zone"},
		{name: "bad rows", args: []string{"-db", "x", "-o", "out", "-rows", "0"}, wantErr: "rows must be positive"},
		{name: "bad start", args: []string{"-db", "x", "-o", "out", "-start", "yesterday"}, wantErr: "invalid start time"},
		{name: "inverted power", args: []string{"-db", "x", "-o", "out", "-min-power", "-20", "-max-power", "-90"}, wantErr: "must be below max power"},
		{name: "unknown flag", args: []string{"-zoom"}, wantErr: "flag provided but not defined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args, io.Discard)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
