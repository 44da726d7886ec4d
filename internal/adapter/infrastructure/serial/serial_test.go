//go:build unit

package serial

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bugst "go.bug.st/serial"
)

// fakePort serves queued chunks, one per Read.
type fakePort struct {
	bugst.Port
	chunks  [][]byte
	readErr error
	written bytes.Buffer
	closed  bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	if len(p.chunks) == 0 {
		return 0, p.readErr
	}
	n := copy(b, p.chunks[0])
	p.chunks = p.chunks[1:]
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) { return p.written.Write(b) }

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestLineBuffer(t *testing.T) {
	var b lineBuffer

	_, ok := b.next()
	assert.False(t, ok)

	b.write([]byte("IP:10.0."))
	_, ok = b.next()
	assert.False(t, ok)

	b.write([]byte("0.5\r\nGET\n"))
	line, ok := b.next()
	require.True(t, ok)
	assert.Equal(t, "IP:10.0.0.5", line)

	line, ok = b.next()
	require.True(t, ok)
	assert.Equal(t, "GET", line)

	b.write(bytes.Repeat([]byte("x"), maxLine+1))
	_, ok = b.next()
	assert.False(t, ok)
	assert.Empty(t, b.buf)

	// The rest of the oversized line is dropped too
	b.write([]byte("xxxx\nMAC\n"))
	line, ok = b.next()
	require.True(t, ok)
	assert.Equal(t, "MAC", line)

	// An oversized line arriving with its terminator in one chunk is dropped
	b.write(append(bytes.Repeat([]byte("y"), maxLine+1), []byte("\nIP\n")...))
	line, ok = b.next()
	require.True(t, ok)
	assert.Equal(t, "IP", line)
}

func TestPortAdapter(t *testing.T) {
	p := &fakePort{chunks: [][]byte{[]byte("GE"), []byte("T\nMAC\n")}}
	a := newPortAdapter(p, "/dev/test")

	_, ok, err := a.ReadLine()
	require.NoError(t, err)
	assert.False(t, ok)

	line, ok, err := a.ReadLine()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "GET", line)

	line, ok, err = a.ReadLine()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "MAC", line)

	_, ok, err = a.ReadLine()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.WriteString("ETH MAC: 00:11:22:33:44:55\n"))
	assert.Equal(t, "ETH MAC: 00:11:22:33:44:55\n", p.written.String())

	require.NoError(t, a.Close())
	assert.True(t, p.closed)
}

func TestPortAdapter_ReadError(t *testing.T) {
	a := newPortAdapter(&fakePort{readErr: errors.New("device unplugged")}, "/dev/test")

	_, ok, err := a.ReadLine()
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "/dev/test")
}

func TestStreamAdapter(t *testing.T) {
	var out bytes.Buffer
	a := NewStreamAdapter(strings.NewReader("GET\r\nHELP\n"), &out, nil)

	var lines []string
	require.Eventually(t, func() bool {
		line, ok, err := a.ReadLine()
		require.NoError(t, err)
		if ok {
			lines = append(lines, line)
		}
		return len(lines) == 2
	}, time.Second, time.Millisecond)

	assert.Equal(t, []string{"GET", "HELP"}, lines)

	require.NoError(t, a.WriteString("ok\n"))
	assert.Equal(t, "ok\n", out.String())
	assert.NoError(t, a.Close())
}

func TestStreamAdapter_DropsOversizedLine(t *testing.T) {
	in := strings.Repeat("x", 600) + "\nGET\n" + strings.Repeat("y", 3*maxLine) + "\nMAC"
	a := NewStreamAdapter(strings.NewReader(in), io.Discard, nil)

	var lines []string
	require.Eventually(t, func() bool {
		line, ok, err := a.ReadLine()
		require.NoError(t, err)
		if ok {
			lines = append(lines, line)
		}
		return len(lines) == 2
	}, time.Second, time.Millisecond)

	// An unterminated final line is still delivered at end of input
	assert.Equal(t, []string{"GET", "MAC"}, lines)
}

func TestStreamAdapter_Close(t *testing.T) {
	r, w := io.Pipe()
	a := NewStreamAdapter(r, io.Discard, r)

	_, ok, err := a.ReadLine()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	_ = w.Close()
}
