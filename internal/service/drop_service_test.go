package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/haatos/simple-build/internal/build"
	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipeConn struct {
	io.Reader
	io.WriteCloser
}

// newMemSFTP connects a client to an in-memory sftp server.
func newMemSFTP(t *testing.T) *sftp.Client {
	t.Helper()
	clientRead, serverWrite := io.Pipe()
	serverRead, clientWrite := io.Pipe()

	server := sftp.NewRequestServer(pipeConn{serverRead, serverWrite}, sftp.InMemHandler())
	go server.Serve()

	client, err := sftp.NewClientPipe(clientRead, clientWrite)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	// registered last so it runs first: client.Close blocks until the server side closes
	t.Cleanup(func() { server.Close() })
	return client
}

func TestDropService_RecursiveUpload(t *testing.T) {
	// arrange
	local := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(local, "Api", "wwwroot"), os.ModePerm))
	require.NoError(t, os.WriteFile(filepath.Join(local, "Api", "Api.dll"), []byte("binary"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(local, "Api", "wwwroot", "index.html"), []byte("<html>"), 0o644))
	client := newMemSFTP(t)

	// act
	err := recursiveUpload(context.Background(), client, local, "/srv/drop")

	// assert
	require.NoError(t, err)
	f, err := client.Open("/srv/drop/Api/wwwroot/index.html")
	require.NoError(t, err)
	defer f.Close()
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "<html>", string(content))

	info, err := client.Stat("/srv/drop/Api/Api.dll")
	require.NoError(t, err)
	assert.Equal(t, int64(len("binary")), info.Size())
}

func TestDropService_Upload(t *testing.T) {
	t.Run("failure - user is required", func(t *testing.T) {
		svc := NewDropService(quietLogger())

		err := svc.Upload(context.Background(), build.DropConfig{Host: "drop.example.test"}, nil, t.TempDir())

		assert.ErrorContains(t, err, "drop.user")
	})

	t.Run("failure - invalid private key", func(t *testing.T) {
		svc := NewDropService(quietLogger())

		err := svc.Upload(context.Background(), build.DropConfig{Host: "drop.example.test", User: "deploy"}, []byte("not a key"), t.TempDir())

		assert.ErrorContains(t, err, "private key")
	})
}

func TestDropService_HostKeyCallback(t *testing.T) {
	t.Run("failure - no known_hosts file", func(t *testing.T) {
		svc := &DropService{logger: quietLogger()}

		_, err := svc.hostKeyCallback("")

		assert.ErrorIs(t, err, ErrNoKnownHosts)
	})

	t.Run("failure - configured file missing", func(t *testing.T) {
		svc := &DropService{logger: quietLogger()}

		_, err := svc.hostKeyCallback(filepath.Join(t.TempDir(), "known_hosts"))

		assert.ErrorIs(t, err, ErrNoKnownHosts)
	})

	t.Run("success - configured file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "known_hosts")
		require.NoError(t, os.WriteFile(path, nil, 0o600))
		svc := &DropService{logger: quietLogger(), KnownHostsFallback: "/nonexistent"}

		cb, err := svc.hostKeyCallback(path)

		assert.NoError(t, err)
		assert.NotNil(t, cb)
	})
}

func TestHostAddr(t *testing.T) {
	assert.Equal(t, "drop.example.test:22", hostAddr("drop.example.test"))
	assert.Equal(t, "drop.example.test:2222", hostAddr("drop.example.test:2222"))
}
