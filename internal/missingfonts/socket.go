package missingfonts

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// SocketListener accepts host messages on a unix socket, one per line, and
// posts them as events. A line that is not understood is logged and skipped.
type SocketListener struct {
	Path string
	Sink EventSink
}

// Serve listens until ctx is done. A stale socket file left by a previous run
// is removed first; a live one is an error.
func (l *SocketListener) Serve(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o700); err != nil {
		return err
	}
	if _, err := os.Stat(l.Path); err == nil {
		if conn, err := net.DialTimeout("unix", l.Path, time.Second); err == nil {
			conn.Close()
			return fmt.Errorf("another instance is listening on %s", l.Path)
		}
		debugf("Removing stale socket %s\n", l.Path)
		_ = os.Remove(l.Path)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", l.Path)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", l.Path, err)
	}
	defer os.Remove(l.Path)
	if err := os.Chmod(l.Path, 0o600); err != nil {
		ln.Close()
		return err
	}
	debugf("Listening on %s\n", l.Path)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go l.handle(conn)
	}
}

func (l *SocketListener) handle(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		e, err := ParseHostMessage(line)
		if err != nil {
			debugf("Ignoring host message: %v\n", err)
			continue
		}
		l.Sink.Post(e)
	}
}

// SendFontNeeded reports missing scripts to a running daemon.
func SendFontNeeded(ctx context.Context, path string, scripts []string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return fmt.Errorf("no daemon listening on %s: %w", path, err)
	}
	defer conn.Close()
	_, err = fmt.Fprintln(conn, FormatFontNeeded(scripts))
	return err
}
