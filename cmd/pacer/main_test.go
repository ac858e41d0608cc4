package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"session-pacer/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in      string
		want    core.Point
		wantErr bool
	}{
		{in: "0,0", want: core.Point{}},
		{in: "100, 250.5", want: core.Point{X: 100, Y: 250.5}},
		{in: "-20,40", want: core.Point{X: -20, Y: 40}},
		{in: "", wantErr: true},
		{in: "1,2,3", wantErr: true},
		{in: "a,2", wantErr: true},
		{in: "1,b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePoint(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStartOfDay(t *testing.T) {
	at := time.Date(2024, 3, 9, 17, 45, 12, 99, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), startOfDay(at))
}

func TestOpenRepository_CreatesDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "pacer.db")

	repo, err := openRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	assert.FileExists(t, path)
}

func TestPrintHistory(t *testing.T) {
	ctx := context.Background()
	repo, err := openRepository(filepath.Join(t.TempDir(), "data", "pacer.db"))
	require.NoError(t, err)
	defer repo.Close()

	started := time.Date(2024, 3, 9, 17, 0, 0, 0, time.UTC)
	done := &core.SessionRun{URL: "https://example.com/t/1", TargetCount: 2, StartedAt: started}
	require.NoError(t, repo.CreateRun(ctx, done))
	require.NoError(t, repo.RecordInteraction(ctx, &core.Interaction{
		RunID:      done.ID,
		TargetKey:  "post:0",
		Label:      "Like",
		X:          140,
		Y:          110,
		PathPoints: 50,
		Timestamp:  started.Add(time.Minute),
	}))
	require.NoError(t, repo.FinishRun(ctx, done.ID, 1, nil))

	failed := &core.SessionRun{URL: "https://example.com/t/2", TargetCount: 3, StartedAt: started.Add(time.Hour)}
	require.NoError(t, repo.CreateRun(ctx, failed))
	require.NoError(t, repo.FinishRun(ctx, failed.ID, 0, errors.New("no targets")))

	var out bytes.Buffer
	require.NoError(t, printHistory(ctx, &out, repo, 0, 10))
	assert.Contains(t, out.String(), "https://example.com/t/1")
	assert.Contains(t, out.String(), "https://example.com/t/2")
	assert.Contains(t, out.String(), "(140,110) 50 points Like")
	assert.Contains(t, out.String(), "error: no targets")

	out.Reset()
	require.NoError(t, printHistory(ctx, &out, repo, done.ID, 10))
	assert.Contains(t, out.String(), "https://example.com/t/1")
	assert.NotContains(t, out.String(), "https://example.com/t/2")

	err = printHistory(ctx, &out, repo, 999, 10)
	assert.ErrorContains(t, err, "not found")
}
