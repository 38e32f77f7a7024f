// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package tracker implements the bot's behavior: judging submitted photos,
// keeping the daily ledger, leaderboards and roasts.
package tracker

import (
	"cmp"
	"context"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"go.astrophena.name/megazu/internal/classifier"
	"go.astrophena.name/megazu/internal/ledger"
	"go.astrophena.name/megazu/internal/lock"
	"go.astrophena.name/megazu/internal/logger"
	"go.astrophena.name/megazu/internal/store"
	"go.astrophena.name/megazu/internal/telegram"
)

// Defaults for [Config].
const (
	DefaultLockTTL         = 10 * time.Second
	DefaultLockWait        = 10 * time.Second
	DefaultClassifyTimeout = 30 * time.Second
	DefaultLeaderboardSize = 10
)

// Transport delivers replies and fetches photos.
type Transport interface {
	PhotoBytes(ctx context.Context, fileID string) ([]byte, error)
	Reply(ctx context.Context, chatID, messageID int64, text string) error
}

// Classifier judges and roasts photos.
type Classifier interface {
	Classify(ctx context.Context, img []byte, kind ledger.Kind, name string) (classifier.Verdict, error)
	Roast(ctx context.Context, img []byte, target classifier.Target) (string, error)
}

// Config configures a [Tracker].
type Config struct {
	Store      store.Store
	Transport  Transport
	Classifier Classifier
	// Policy defaults to ledger.DefaultPolicy.
	Policy *ledger.Policy
	// Registerer, if set, receives the tracker's metrics.
	Registerer prometheus.Registerer

	LockTTL         time.Duration
	LockWait        time.Duration
	ClassifyTimeout time.Duration
}

// Tracker handles bot updates.
type Tracker struct {
	ledger     *ledger.Ledger
	locks      *lock.Manager
	transport  Transport
	classifier Classifier
	metrics    *metrics

	lockTTL         time.Duration
	lockWait        time.Duration
	classifyTimeout time.Duration

	// used in tests
	now  func() time.Time
	coin func() bool
}

// New returns a new Tracker.
func New(c Config) *Tracker {
	policy := ledger.DefaultPolicy
	if c.Policy != nil {
		policy = *c.Policy
	}
	return &Tracker{
		ledger:          ledger.New(c.Store, policy),
		locks:           lock.New(c.Store),
		transport:       c.Transport,
		classifier:      c.Classifier,
		metrics:         newMetrics(c.Registerer),
		lockTTL:         cmp.Or(c.LockTTL, DefaultLockTTL),
		lockWait:        cmp.Or(c.LockWait, DefaultLockWait),
		classifyTimeout: cmp.Or(c.ClassifyTimeout, DefaultClassifyTimeout),
		now:             time.Now,
		coin:            func() bool { return rand.IntN(2) == 0 },
	}
}

// Commands are the commands advertised to Telegram clients.
var Commands = []telegram.BotCommand{
	{Command: "start", Description: "How to use the tracker"},
	{Command: "lifters", Description: "Fitness leaderboard"},
	{Command: "shippers", Description: "Shipping leaderboard"},
	{Command: "zensters", Description: "Mindfulness leaderboard"},
	{Command: "bezen", Description: "Join the mindfulness circle"},
	{Command: "bing_roast", Description: "Reply to a photo to get it roasted"},
}

// HandleUpdate routes an update to the matching handler.
func (t *Tracker) HandleUpdate(ctx context.Context, u telegram.Update) {
	msg := u.Message
	if msg == nil {
		return
	}
	ctx = logger.Put(ctx, logger.Get(ctx).With("update_id", u.UpdateID, "chat_id", msg.Chat.ID))

	if len(msg.Photo) > 0 {
		t.HandlePhoto(ctx, PhotoFromMessage(msg))
		return
	}

	cmd := msg.Command()
	if cmd == "" {
		return
	}
	t.metrics.commands.WithLabelValues(cmd).Inc()
	switch cmd {
	case "start":
		t.handleStart(ctx, msg)
	case "lifters":
		t.handleLeaderboard(ctx, msg, ledger.Fitness)
	case "shippers":
		t.handleLeaderboard(ctx, msg, ledger.Shipping)
	case "zensters":
		t.handleLeaderboard(ctx, msg, ledger.Mindfulness)
	case "bezen":
		t.handleBezen(ctx, msg)
	case "bing_roast":
		t.HandleRoast(ctx, RoastFromMessage(msg))
	}
}

// reply sends text, logging failures. Replies are best effort.
func (t *Tracker) reply(ctx context.Context, chatID, messageID int64, text string) {
	if err := t.transport.Reply(ctx, chatID, messageID, text); err != nil {
		logger.Get(ctx).Error("sending reply failed", "chat_id", chatID, "error", err)
	}
}

func idString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
