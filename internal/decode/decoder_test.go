package decode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zsiec/prism-player/internal/media"
)

func TestStartBeforeInitReturnsErrWrongState(t *testing.T) {
	t.Parallel()

	d := NewDecoder(media.KindAudio, nil)
	err := d.Start(nil, nil, nil)
	require.ErrorIs(t, err, ErrWrongState)
}

func TestStopWithoutInitIsNoOp(t *testing.T) {
	t.Parallel()

	d := NewDecoder(media.KindVideo, nil)
	require.NoError(t, d.Stop(context.Background()))
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()

	d := NewDecoder(media.KindAudio, nil)
	require.NoError(t, d.Stop(context.Background()))
	require.NoError(t, d.Stop(context.Background()))
}
