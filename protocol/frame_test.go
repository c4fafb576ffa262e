package protocol

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFrame_Header(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("abc")))
	assert.Equal(t, []byte{3, 0, 0, 0, 'a', 'b', 'c'}, buf.Bytes())
}

func TestReadFrame_ReassemblesPartialReads(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789"), 7000)
	require.Len(t, payload, 70000)

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, payload))
	require.NoError(t, WriteFrame(&buf, []byte("next")))
	wire := buf.Bytes()

	readers := map[string]func() io.Reader{
		"one byte": func() io.Reader { return iotest.OneByteReader(bytes.NewReader(wire)) },
		"half":     func() io.Reader { return iotest.HalfReader(bytes.NewReader(wire)) },
		"data err": func() io.Reader { return iotest.DataErrReader(bytes.NewReader(wire)) },
	}
	for name, mk := range readers {
		t.Run(name, func(t *testing.T) {
			r := mk()
			got, err := ReadFrame(r, 0)
			require.NoError(t, err)
			assert.Equal(t, payload, got)

			got, err = ReadFrame(r, 0)
			require.NoError(t, err)
			assert.Equal(t, []byte("next"), got)
		})
	}
}

func TestReadFrame_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, nil))
	got, err := ReadFrame(&buf, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadFrame_TooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, make([]byte, 100)))
	_, err := ReadFrame(&buf, 10)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestReadFrame_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello")))
	truncated := bytes.NewReader(buf.Bytes()[:6])

	_, err := ReadFrame(truncated, 0)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrame_EOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, io.EOF)
}
