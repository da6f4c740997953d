// Package sshgateway exposes a Container's Shell Process over SSH, per
// SPEC_FULL.md §6.9. It is adapted from the teacher's certificate-based
// local SSH tooling (sshimmer.go): that code manages a host's outbound
// ssh client configuration to reach a real container's sshd; this
// package instead runs an in-process sshd whose one "command" is always
// the Shell Process, using the same golang.org/x/crypto/ssh primitives
// and the same ed25519/PEM host-key pattern.
package sshgateway

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"net"

	"golang.org/x/crypto/ssh"

	vcontainer "github.com/banksean/vcontainer"
	"github.com/banksean/vcontainer/vproc"
)

// Server accepts SSH connections and attaches each session to a fresh
// Shell Process spawned from the bound Container.
type Server struct {
	c *vcontainer.Container
}

// NewServer returns a Server bound to c.
func NewServer(c *vcontainer.Container) *Server {
	return &Server{c: c}
}

// GenerateHostKey returns a freshly generated ed25519 host key, PEM
// encoded the way the teacher's sshimmer.go encodes its CA and identity
// keys, for callers with no persisted key of their own.
func GenerateHostKey() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sshgateway: generate host key: %w", err)
	}
	pkBytes, err := ssh.MarshalPrivateKey(priv, "vconsh host key")
	if err != nil {
		return nil, fmt.Errorf("sshgateway: marshal host key: %w", err)
	}
	return pem.EncodeToMemory(pkBytes), nil
}

// Serve accepts connections on lis until ctx is cancelled or lis is
// closed. Each session channel opened on a connection is attached to its
// own new "sh" process spawned from the Container; authentication is left to
// the caller's network perimeter, matching spec.md's scope (the Shell
// Process itself has no notion of users or credentials).
func (s *Server) Serve(ctx context.Context, lis net.Listener, hostKey []byte) error {
	signer, err := ssh.ParsePrivateKey(hostKey)
	if err != nil {
		return fmt.Errorf("sshgateway: parse host key: %w", err)
	}
	config := &ssh.ServerConfig{NoClientAuth: true}
	config.AddHostKey(signer)

	go func() {
		<-ctx.Done()
		lis.Close()
	}()

	for {
		nConn, err := lis.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("sshgateway: accept: %w", err)
			}
		}
		go s.handleConn(ctx, nConn, config)
	}
}

func (s *Server) handleConn(ctx context.Context, nConn net.Conn, config *ssh.ServerConfig) {
	sconn, chans, reqs, err := ssh.NewServerConn(nConn, config)
	if err != nil {
		slog.WarnContext(ctx, "sshgateway: handshake failed", "error", err)
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			slog.WarnContext(ctx, "sshgateway: channel accept failed", "error", err)
			continue
		}
		go s.handleSession(ctx, channel, requests)
	}
}

func (s *Server) handleSession(ctx context.Context, channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()

	p, err := s.c.Spawn(ctx, "sh", []string{"--osc"}, 0, false, "/", map[string]string{})
	if err != nil {
		fmt.Fprintf(channel.Stderr(), "sshgateway: failed to start shell: %v\n", err)
		return
	}

	unsubscribe := p.Bus.On(vproc.EventMessage, func(payload any) {
		m := payload.(vproc.MessagePayload)
		if m.Stdout != "" {
			channel.Write([]byte(m.Stdout))
		}
		if m.Stderr != "" {
			channel.Stderr().Write([]byte(m.Stderr))
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	var closeOnce bool
	p.Bus.On(vproc.EventExit, func(payload any) {
		if !closeOnce {
			closeOnce = true
			close(done)
		}
	})

	go acceptRequests(requests)

	buf := make([]byte, 1024)
	for {
		n, err := channel.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.WriteInput(chunk)
		}
		if err != nil {
			if err != io.EOF {
				slog.DebugContext(ctx, "sshgateway: channel read", "error", err)
			}
			break
		}
	}

	<-done
}

// acceptRequests answers the handful of session request types a real
// terminal client sends (pty-req, shell, window-change, env); the Shell
// Process has no notion of a pty size, so every request is just
// acknowledged without acting on its payload.
func acceptRequests(requests <-chan *ssh.Request) {
	for req := range requests {
		switch req.Type {
		case "shell", "pty-req", "window-change", "env":
			if req.WantReply {
				req.Reply(true, nil)
			}
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}
