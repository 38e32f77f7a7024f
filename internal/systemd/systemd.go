// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package systemd implements the parts of the sd_notify protocol a
// long-running service needs: startup readiness and watchdog pings.
package systemd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"go.astrophena.name/megazu/internal/logger"
)

// State is an sd_notify state string.
// See https://www.freedesktop.org/software/systemd/man/sd_notify.html.
type State string

const (
	// Ready tells the service manager that startup is finished.
	Ready State = "READY=1"
	// Stopping tells the service manager that shutdown has begun.
	Stopping State = "STOPPING=1"
	// Watchdog updates the service watchdog timestamp.
	Watchdog State = "WATCHDOG=1"
)

// Notify sends state to the service manager. It does nothing when the
// process is not supervised by systemd. Failures are logged to the logger
// carried by ctx.
func Notify(ctx context.Context, state State) {
	name := os.Getenv("NOTIFY_SOCKET")
	if name == "" {
		return
	}
	if err := send(name, state); err != nil {
		logger.Get(ctx).Warn("systemd notify failed", "state", string(state), "err", err)
	}
}

func send(name string, state State) error {
	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Net: "unixgram", Name: name})
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Write([]byte(state))
	return err
}

// WatchdogLoop pings the watchdog at the interval systemd asks for until ctx
// is canceled. It returns immediately when the watchdog is disabled.
func WatchdogLoop(ctx context.Context) {
	if os.Getenv("WATCHDOG_USEC") == "" {
		return
	}
	interval, err := watchdogInterval()
	if err != nil {
		logger.Get(ctx).Warn("systemd watchdog disabled", "err", err)
		return
	}

	// Ping twice per interval so one late tick does not trip the watchdog.
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			Notify(ctx, Watchdog)
		case <-ctx.Done():
			return
		}
	}
}

func watchdogInterval() (time.Duration, error) {
	us, err := strconv.Atoi(os.Getenv("WATCHDOG_USEC"))
	if err != nil {
		return 0, fmt.Errorf("systemd: parsing WATCHDOG_USEC: %w", err)
	}
	if us <= 0 {
		return 0, errors.New("systemd: WATCHDOG_USEC must be positive")
	}
	return time.Duration(us) * time.Microsecond, nil
}
