// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package systemd

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"go.astrophena.name/megazu/internal/logger"
	"go.astrophena.name/megazu/internal/testutil"
)

func listen(t *testing.T) *net.UnixConn {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notify.sock")
	l, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	t.Setenv("NOTIFY_SOCKET", path)
	return l
}

func read(t *testing.T, l *net.UnixConn) string {
	t.Helper()
	buf := make([]byte, 512)
	l.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, _, err := l.ReadFromUnix(buf)
	if err != nil {
		t.Fatal(err)
	}
	return string(buf[:n])
}

func TestNotify(t *testing.T) {
	l := listen(t)
	Notify(t.Context(), Ready)
	testutil.AssertEqual(t, read(t, l), "READY=1")
}

func TestNotifyUnsupervised(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	var buf bytes.Buffer
	Notify(logger.Put(t.Context(), logger.New(&buf)), Ready)
	testutil.AssertEqual(t, buf.String(), "")
}

func TestNotifyLogsFailure(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", filepath.Join(t.TempDir(), "missing.sock"))
	var buf bytes.Buffer
	Notify(logger.Put(t.Context(), logger.New(&buf)), Stopping)
	testutil.AssertStringContains(t, buf.String(), "systemd notify failed")
}

func TestWatchdogLoop(t *testing.T) {
	l := listen(t)
	t.Setenv("WATCHDOG_USEC", "100000")

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		WatchdogLoop(ctx)
		close(done)
	}()

	testutil.AssertEqual(t, read(t, l), "WATCHDOG=1")
	cancel()
	<-done
}

func TestWatchdogInterval(t *testing.T) {
	for in, want := range map[string]bool{"250000": true, "0": false, "-1": false, "soon": false} {
		t.Setenv("WATCHDOG_USEC", in)
		_, err := watchdogInterval()
		if (err == nil) != want {
			t.Errorf("WATCHDOG_USEC=%q: err = %v", in, err)
		}
	}
}
