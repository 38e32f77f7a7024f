// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package tracker

import (
	"cmp"
	"context"

	"go.astrophena.name/megazu/internal/ledger"
	"go.astrophena.name/megazu/internal/logger"
	"go.astrophena.name/megazu/internal/telegram"
)

func (t *Tracker) handleStart(ctx context.Context, msg *telegram.Message) {
	text := startGroupText
	if msg.Chat.IsPrivate() {
		text = startPrivateText
	}
	t.reply(ctx, msg.Chat.ID, msg.MessageID, text)
}

func (t *Tracker) handleLeaderboard(ctx context.Context, msg *telegram.Message, kind ledger.Kind) {
	b := boards[kind]
	if msg.Chat.IsPrivate() {
		t.reply(ctx, msg.Chat.ID, 0, b.private)
		return
	}
	standings, err := t.ledger.TopByCount(ctx, idString(msg.Chat.ID), kind, DefaultLeaderboardSize)
	if err != nil {
		logger.Get(ctx).Error("building leaderboard failed", "kind", kind, "error", err)
		t.reply(ctx, msg.Chat.ID, 0, b.failed)
		return
	}
	t.reply(ctx, msg.Chat.ID, 0, b.render(standings))
}

func (t *Tracker) handleBezen(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil || msg.Chat.ID == 0 {
		t.reply(ctx, msg.Chat.ID, 0, bezenMissingText)
		return
	}
	if msg.Chat.IsPrivate() {
		t.reply(ctx, msg.Chat.ID, 0, bezenPrivateText)
		return
	}
	name := cmp.Or(msg.From.Username, msg.From.FirstName, defaultStoredName)
	created, err := t.ledger.Register(ctx, idString(msg.Chat.ID), idString(msg.From.ID), name)
	if err != nil {
		logger.Get(ctx).Error("registering member failed", "user", msg.From.ID, "error", err)
		t.reply(ctx, msg.Chat.ID, 0, bezenFailedText)
		return
	}
	if created {
		t.reply(ctx, msg.Chat.ID, 0, bezenWelcomeText(name))
		return
	}
	t.reply(ctx, msg.Chat.ID, 0, bezenExistingText(name))
}
