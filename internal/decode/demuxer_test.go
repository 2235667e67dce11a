package decode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDemuxerStartBeforeOpenReturnsErrWrongState(t *testing.T) {
	t.Parallel()

	d := NewDemuxer(nil)
	err := d.Start(nil, nil, nil)
	require.ErrorIs(t, err, ErrWrongState)
}

func TestDemuxerOpenOnMissingFileFails(t *testing.T) {
	t.Parallel()

	d := NewDemuxer(nil)
	err := d.Open("testdata/does-not-exist.mp4")
	require.Error(t, err)
}

func TestDemuxerStopWithoutOpenIsNoOp(t *testing.T) {
	t.Parallel()

	d := NewDemuxer(nil)
	require.NoError(t, d.Stop(context.Background()))
}

func TestDemuxerStopIsIdempotent(t *testing.T) {
	t.Parallel()

	d := NewDemuxer(nil)
	require.NoError(t, d.Stop(context.Background()))
	require.NoError(t, d.Stop(context.Background()))
}
