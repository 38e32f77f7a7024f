// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package tracker

import (
	"cmp"
	"context"

	"go.astrophena.name/megazu/internal/classifier"
	"go.astrophena.name/megazu/internal/ledger"
	"go.astrophena.name/megazu/internal/logger"
	"go.astrophena.name/megazu/internal/telegram"
)

// Roast is a /bing_roast request.
type Roast struct {
	ChatID    int64
	MessageID int64
	Private   bool
	GroupID   string
	// RoasterID is empty when Telegram did not send the sender.
	RoasterID   string
	RoasterName string
	// IsReply reports whether the command replied to a message.
	IsReply bool
	// TargetName and PhotoFileID describe the replied-to message.
	// PhotoFileID is empty if it has no photo.
	TargetName  string
	PhotoFileID string
}

// RoastFromMessage builds a Roast from a command message.
func RoastFromMessage(msg *telegram.Message) Roast {
	r := Roast{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Private:   msg.Chat.IsPrivate(),
		GroupID:   idString(msg.Chat.ID),
	}
	if msg.From != nil {
		r.RoasterID = idString(msg.From.ID)
		r.RoasterName = msg.From.FirstName
	}
	if reply := msg.ReplyToMessage; reply != nil {
		r.IsReply = true
		if reply.From != nil {
			r.TargetName = reply.From.FirstName
		}
		if ps, ok := reply.LargestPhoto(); ok {
			r.PhotoFileID = ps.FileID
		}
	}
	return r
}

// HandleRoast roasts either the sender of the photo a /bing_roast replies
// to or the member who asked, spending one unit of the asker's daily
// budget.
func (t *Tracker) HandleRoast(ctx context.Context, r Roast) Outcome {
	out := t.handleRoast(ctx, r)
	t.metrics.roasts.WithLabelValues(out.String()).Inc()
	return out
}

func (t *Tracker) handleRoast(ctx context.Context, r Roast) Outcome {
	// These replies are not threaded, like the command itself.
	switch {
	case !r.IsReply:
		t.reply(ctx, r.ChatID, 0, roastNoReplyText)
		return OutcomeNoPhoto
	case r.PhotoFileID == "":
		t.reply(ctx, r.ChatID, 0, roastNoPhotoText)
		return OutcomeNoPhoto
	case r.Private:
		t.reply(ctx, r.ChatID, 0, roastPrivateText)
		return OutcomePrivate
	case r.RoasterID == "" || r.GroupID == "":
		t.reply(ctx, r.ChatID, 0, roastMissingText)
		return OutcomeFailed
	}

	roaster := cmp.Or(r.RoasterName, defaultRoaster)
	target := cmp.Or(r.TargetName, defaultRoastee)
	log := logger.Get(ctx).With("group", r.GroupID, "user", r.RoasterID)
	date := ledger.Date(t.now())
	policy := t.ledger.Policy()

	ok, err := t.ledger.TryConsumeRoast(ctx, r.GroupID, r.RoasterID, date, policy.RoastCap)
	if err != nil {
		log.Error("consuming roast budget failed", "error", err)
		t.reply(ctx, r.ChatID, r.MessageID, roastFailedText)
		return OutcomeFailed
	}
	if !ok {
		log.Debug("roast budget exhausted", "date", date)
		t.reply(ctx, r.ChatID, r.MessageID, roastCapText(roaster))
		return OutcomeRoastCapped
	}

	text, err := t.roast(ctx, r, roaster, target)
	if err != nil {
		log.Error("generating roast failed", "error", err)
		if err := t.ledger.RefundRoast(context.WithoutCancel(ctx), r.GroupID, r.RoasterID, date); err != nil {
			log.Error("refunding roast failed", "error", err)
		}
		t.reply(ctx, r.ChatID, r.MessageID, roastFailedText)
		return OutcomeFailed
	}
	t.reply(ctx, r.ChatID, r.MessageID, text)
	return OutcomeRoasted
}

func (t *Tracker) roast(ctx context.Context, r Roast, roaster, target string) (string, error) {
	img, err := t.transport.PhotoBytes(ctx, r.PhotoFileID)
	if err != nil {
		return "", err
	}
	who := classifier.TargetInvoker
	if t.coin() {
		who = classifier.TargetPhotoSender
	}

	cctx, cancel := context.WithTimeout(ctx, t.classifyTimeout)
	defer cancel()
	roast, err := t.classifier.Roast(cctx, img, who)
	if err != nil {
		return "", err
	}
	if who == classifier.TargetPhotoSender {
		return roastPhotoSenderText(target, roast), nil
	}
	return roastInvokerText(roaster, roast), nil
}
