package mdstream

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStreamSimulatePlainText(t *testing.T) {
	var out bytes.Buffer
	err := StreamSimulate(context.Background(), StreamSimulateRequest{
		Reader:    strings.NewReader("alpha beta gamma"),
		Writer:    &out,
		Width:     6,
		Theme:     plainTheme(),
		ChunkSize: 2,
	})
	require.NoError(t, err)
	require.Equal(t, "alpha\nbeta\ngamma\n", out.String())
}

func TestStreamSimulateMatchesRender(t *testing.T) {
	src := readSample(t)
	for _, format := range []Format{FormatANSI, FormatHTML} {
		var want, got bytes.Buffer
		require.NoError(t, Render(RenderRequest{
			Reader: bytes.NewReader(src),
			Writer: &want,
			Format: format,
			Width:  60,
			Theme:  plainTheme(),
		}))
		require.NoError(t, StreamSimulate(context.Background(), StreamSimulateRequest{
			Reader:    bytes.NewReader(src),
			Writer:    &got,
			Format:    format,
			Width:     60,
			Theme:     plainTheme(),
			ChunkSize: 3,
		}))
		require.Equal(t, want.String(), got.String(), format.String())
	}
}

func TestStreamSimulateSkipsBinary(t *testing.T) {
	var out bytes.Buffer
	err := StreamSimulate(context.Background(), StreamSimulateRequest{
		Reader:    bytes.NewReader([]byte{0x00, 0x01, 0x02, 0x03, 0x04}),
		Writer:    &out,
		Width:     10,
		ChunkSize: 1,
	})
	require.NoError(t, err)
	require.Zero(t, out.Len())
}

func TestStreamSimulateHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	err := StreamSimulate(ctx, StreamSimulateRequest{
		Reader:    strings.NewReader("never rendered"),
		Writer:    &out,
		ChunkSize: 4,
		Delay:     time.Second,
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestStreamSimulateDelay(t *testing.T) {
	var out bytes.Buffer
	start := time.Now()
	err := StreamSimulate(context.Background(), StreamSimulateRequest{
		Reader:    strings.NewReader("abcd"),
		Writer:    &out,
		Format:    FormatHTML,
		ChunkSize: 1,
		Delay:     5 * time.Millisecond,
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	require.Equal(t, "<p>abcd</p>\n", out.String())
}

func TestStreamSimulateValidatesRequest(t *testing.T) {
	var out bytes.Buffer
	require.Error(t, StreamSimulate(context.Background(), StreamSimulateRequest{Writer: &out, ChunkSize: 1}))
	require.Error(t, StreamSimulate(context.Background(), StreamSimulateRequest{Reader: strings.NewReader("x"), ChunkSize: 1}))
	require.Error(t, StreamSimulate(context.Background(), StreamSimulateRequest{Reader: strings.NewReader("x"), Writer: &out}))
}
