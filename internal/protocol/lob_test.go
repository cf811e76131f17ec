package protocol

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Seek only ever updates in-memory bookkeeping (§6's seek(pos, whence) never
// implies a round trip on its own); these exercise that contract without a
// live Session.

func newTestLob(numByte int64, inline []byte, lastData bool) *Lob {
	descr := &LobDescriptor{
		LocatorID: 1,
		NumByte:   numByte,
		Data:      inline,
		LastData:  lastData,
	}
	return (&Session{}).NewLobReader(descr)
}

func TestLobTellStartsAtZero(t *testing.T) {
	l := newTestLob(100, []byte("hello"), false)
	assert.Equal(t, int64(0), l.Tell())
}

func TestLobSeekStart(t *testing.T) {
	l := newTestLob(100, []byte("hello"), false)
	pos, err := l.Seek(40, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(40), pos)
	assert.Equal(t, int64(40), l.Tell())
	assert.False(t, l.done)
}

func TestLobSeekCurrent(t *testing.T) {
	l := newTestLob(100, []byte("hello"), false)
	_, err := l.Seek(10, io.SeekStart)
	require.NoError(t, err)
	pos, err := l.Seek(5, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(15), pos)
}

func TestLobSeekEnd(t *testing.T) {
	l := newTestLob(100, nil, true)
	pos, err := l.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(100), pos)
	assert.True(t, l.done, "seeking exactly to Len() marks the LOB exhausted")
}

func TestLobSeekNegativeRejected(t *testing.T) {
	l := newTestLob(100, nil, false)
	_, err := l.Seek(-1, io.SeekStart)
	assert.Error(t, err)
}

func TestLobSeekInvalidWhence(t *testing.T) {
	l := newTestLob(100, nil, false)
	_, err := l.Seek(0, 99)
	assert.Error(t, err)
}

func TestLobReadDrainsInlineChunkThenEOFWhenDone(t *testing.T) {
	l := newTestLob(5, []byte("hello"), true)
	buf := make([]byte, 16)
	n, err := l.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	_, err = l.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriteLobRejectsOversizedPayload(t *testing.T) {
	huge := make([]byte, maxLobWriteChunk+1)
	s := &Session{}
	_, err := s.WriteLob(huge)
	require.Error(t, err)
	assert.True(t, IsLobTooLarge(err))
}
