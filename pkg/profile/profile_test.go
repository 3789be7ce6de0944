package profile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "speed_profile.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeProfile(t, "100\n200.5\nnot-a-number\n-300\n")
	prof, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []float32{100, 200.5, -300}, prof.Speeds)
	require.Equal(t, float32(-300), prof.Last())
}

func TestLoadFirstColumn(t *testing.T) {
	path := writeProfile(t, "100,extra\n200,extra\n")
	prof, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []float32{100, 200}, prof.Speeds)
}

func TestLoadEmpty(t *testing.T) {
	path := writeProfile(t, "nope\n")
	_, err := Load(path)
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestReplayHoldsLastValue(t *testing.T) {
	prof := &Profile{Speeds: []float32{1, 2, 3}}
	ctx, cancel := context.WithCancel(context.Background())

	var got []float32
	err := prof.Replay(ctx, 1000, func(v float32) error {
		got = append(got, v)
		if len(got) == 5 {
			cancel()
		}
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []float32{1, 2, 3, 3, 3}, got)
}
