package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SSHRunner runs steps on a remote agent over SSH. The connection is opened
// lazily on the first command and reused for the rest of the run.
type SSHRunner struct {
	host       string
	username   string
	privateKey []byte
	workspace  string

	client *ssh.Client
	mu     sync.Mutex
}

func NewSSHRunner(host, username string, privateKey []byte, workspace string) *SSHRunner {
	if !strings.Contains(host, ":") {
		host += ":22"
	}
	return &SSHRunner{
		host:       host,
		username:   username,
		privateKey: privateKey,
		workspace:  workspace,
	}
}

func (s *SSHRunner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *SSHRunner) Run(
	ctx context.Context,
	dir, command string,
	environ []string,
	out io.Writer,
) (int, error) {
	if err := s.connect(); err != nil {
		return -1, err
	}

	sess, err := s.client.NewSession()
	if err != nil {
		return -1, fmt.Errorf("err creating new session: %w", err)
	}
	defer sess.Close()
	sess.Stdout = out
	sess.Stderr = out

	cmd := s.remoteCommand(dir, command, environ)

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- sess.Run(cmd)
	}()

	select {
	case <-ctx.Done():
		sess.Signal(ssh.SIGINT)
		return -1, ctx.Err()
	case err := <-doneCh:
		if err != nil {
			var exitErr *ssh.ExitError
			if errors.As(err, &exitErr) {
				return exitErr.ExitStatus(), nil
			}
			return -1, err
		}
		return 0, nil
	}
}

// Fetch copies a file from the agent's workspace to localPath via SFTP so
// declared artifacts can be archived next to local runs.
func (s *SSHRunner) Fetch(remotePath, localPath string) error {
	if err := s.connect(); err != nil {
		return err
	}

	client, err := sftp.NewClient(s.client)
	if err != nil {
		return fmt.Errorf("err creating sftp client: %w", err)
	}
	defer client.Close()

	src, err := client.Open(path.Join(s.workspace, remotePath))
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

func (s *SSHRunner) remoteCommand(dir, command string, environ []string) string {
	workdir := s.workspace
	if dir != "" {
		workdir = path.Join(s.workspace, dir)
	}

	var builder strings.Builder
	builder.WriteString("cd " + shellQuote(workdir) + " && env")
	for _, kv := range environ {
		builder.WriteString(" " + shellQuote(kv))
	}
	builder.WriteString(" sh -c " + shellQuote(command))
	return builder.String()
}

func (s *SSHRunner) connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	signer, err := ssh.ParsePrivateKey(s.privateKey)
	if err != nil {
		return fmt.Errorf("err parsing ssh private key: %w", err)
	}
	cc := &ssh.ClientConfig{
		User:            s.username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	client, err := ssh.Dial("tcp", s.host, cc)
	if err != nil {
		return fmt.Errorf("err dialing ssh: %w", err)
	}

	s.client = client
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
