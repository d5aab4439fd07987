package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/haatos/simple-build/internal/build"
	"github.com/pkg/sftp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const dropDialTimeout = 30 * time.Second

var ErrNoKnownHosts = errors.New("no known_hosts file: set drop.known_hosts in the build definition")

// DropService copies the published application bundles to a host over SFTP.
type DropService struct {
	logger logrus.FieldLogger
	// KnownHostsFallback is used when the definition names no known_hosts
	// file. Defaults to ~/.ssh/known_hosts.
	KnownHostsFallback string
}

func NewDropService(logger logrus.FieldLogger) *DropService {
	fallback := ""
	if home, err := os.UserHomeDir(); err == nil {
		fallback = filepath.Join(home, ".ssh", "known_hosts")
	}
	return &DropService{logger: logger, KnownHostsFallback: fallback}
}

func (s *DropService) Upload(ctx context.Context, cfg build.DropConfig, privateKey []byte, localDir string) error {
	if cfg.User == "" {
		return errors.New("drop.user must be set in the build definition")
	}
	signer, err := ssh.ParsePrivateKey(privateKey)
	if err != nil {
		return fmt.Errorf("err parsing drop ssh private key: %w", err)
	}
	hostKeyCallback, err := s.hostKeyCallback(cfg.KnownHosts)
	if err != nil {
		return err
	}
	config := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         dropDialTimeout,
	}

	addr := hostAddr(cfg.Host)
	client, err := dialSSH(ctx, addr, config)
	if err != nil {
		return fmt.Errorf("err connecting to %s: %w", addr, err)
	}
	defer client.Close()

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return err
	}
	defer sftpClient.Close()

	s.logger.WithField("host", addr).WithField("remote_dir", cfg.RemoteDir).Info("uploading published app")
	return recursiveUpload(ctx, sftpClient, localDir, cfg.RemoteDir)
}

func (s *DropService) hostKeyCallback(configured string) (ssh.HostKeyCallback, error) {
	file := configured
	if file == "" {
		file = s.KnownHostsFallback
	}
	if file == "" {
		return nil, ErrNoKnownHosts
	}
	if _, err := os.Stat(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w (%s)", ErrNoKnownHosts, file)
		}
		return nil, err
	}
	return knownhosts.New(file)
}

func hostAddr(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, "22")
}

func dialSSH(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

type remoteFS interface {
	MkdirAll(string) error
	Create(string) (*sftp.File, error)
}

func recursiveUpload(ctx context.Context, remote remoteFS, localDir, remoteDir string) error {
	return filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		target := path.Join(remoteDir, filepath.ToSlash(rel))
		if d.IsDir() {
			return remote.MkdirAll(target)
		}
		return uploadFile(remote, p, target)
	})
}

func uploadFile(remote remoteFS, localPath, remotePath string) error {
	localFile, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer localFile.Close()

	remoteFile, err := remote.Create(remotePath)
	if err != nil {
		return fmt.Errorf("err creating %s: %w", remotePath, err)
	}
	if _, err := io.Copy(remoteFile, localFile); err != nil {
		remoteFile.Close()
		return err
	}
	return remoteFile.Close()
}
