package sshgateway

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	vcontainer "github.com/banksean/vcontainer"
)

func TestServeAttachesSessionToShellProcess(t *testing.T) {
	c := vcontainer.New()
	hostKey, err := GenerateHostKey()
	if err != nil {
		t.Fatal(err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := NewServer(c)
	go srv.Serve(ctx, lis, hostKey)

	client, err := ssh.Dial("tcp", lis.Addr().String(), &ssh.ClientConfig{
		User:            "anyone",
		Auth:            nil,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         2 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	session.Stdout = &out

	if err := session.Shell(); err != nil {
		t.Fatal(err)
	}

	io.WriteString(stdin, "echo hi\r")
	time.Sleep(50 * time.Millisecond)
	io.WriteString(stdin, "exit\r")
	time.Sleep(50 * time.Millisecond)
	stdin.Close()

	if !strings.Contains(out.String(), "hi") {
		t.Fatalf("got %q", out.String())
	}
}
