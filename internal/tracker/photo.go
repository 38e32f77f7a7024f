// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package tracker

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"go.astrophena.name/megazu/internal/ledger"
	"go.astrophena.name/megazu/internal/lock"
	"go.astrophena.name/megazu/internal/logger"
	"go.astrophena.name/megazu/internal/telegram"
)

// Outcome is how the bot handled a request.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomePrivate
	OutcomeFailed
	OutcomeBusy
	OutcomeAlreadyLogged
	OutcomeLimitReached
	OutcomeLogged
	OutcomeRejected
	OutcomeNoPhoto
	OutcomeRoastCapped
	OutcomeRoasted
)

var outcomeNames = [...]string{
	OutcomeIgnored:       "ignored",
	OutcomePrivate:       "private",
	OutcomeFailed:        "failed",
	OutcomeBusy:          "busy",
	OutcomeAlreadyLogged: "already_logged",
	OutcomeLimitReached:  "limit_reached",
	OutcomeLogged:        "logged",
	OutcomeRejected:      "rejected",
	OutcomeNoPhoto:       "no_photo",
	OutcomeRoastCapped:   "roast_capped",
	OutcomeRoasted:       "roasted",
}

func (o Outcome) String() string {
	if o >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Photo is a photo posted to a chat.
type Photo struct {
	ChatID    int64
	MessageID int64
	Private   bool
	// GroupID and UserID are empty when Telegram did not send them.
	GroupID string
	UserID  string
	// FirstName and Username describe the sender.
	FirstName string
	Username  string
	Caption   string
	FileID    string
}

// PhotoFromMessage extracts the largest photo size and the sender of msg.
func PhotoFromMessage(msg *telegram.Message) Photo {
	p := Photo{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Private:   msg.Chat.IsPrivate(),
		GroupID:   idString(msg.Chat.ID),
		Caption:   msg.Caption,
	}
	if msg.From != nil {
		p.UserID = idString(msg.From.ID)
		p.FirstName = msg.From.FirstName
		p.Username = msg.From.Username
	}
	if ps, ok := msg.LargestPhoto(); ok {
		p.FileID = ps.FileID
	}
	return p
}

// displayName is how the bot addresses the sender.
func (p Photo) displayName(kind ledger.Kind) string {
	return cmp.Or(p.FirstName, p.Username, pick(kind, "Fitness Enthusiast", "Code Shipper", "Mindfulness Enthusiast"))
}

// storedName is the name kept in the ledger and matched by mentions.
func (p Photo) storedName() string {
	return cmp.Or(p.Username, p.FirstName, defaultStoredName)
}

var (
	anyCommandRe = regexp.MustCompile(`(?i)/pumped|/pump|/shipped|/zenned`)
	zennedRe     = regexp.MustCompile(`(?i)/zenned`)
	shippedRe    = regexp.MustCompile(`(?i)/shipped`)
	mentionRe    = regexp.MustCompile(`@(\w+)`)
)

// ParseCommand finds the activity command in a photo caption. The command
// may appear anywhere in the caption. /zenned wins over /shipped, which
// wins over /pumped and /pump.
func ParseCommand(caption string) (ledger.Kind, bool) {
	switch {
	case !anyCommandRe.MatchString(caption):
		return "", false
	case zennedRe.MatchString(caption):
		return ledger.Mindfulness, true
	case shippedRe.MatchString(caption):
		return ledger.Shipping, true
	}
	return ledger.Fitness, true
}

// extractMentions returns the usernames mentioned in caption, without "@".
func extractMentions(caption string) []string {
	var names []string
	for _, m := range mentionRe.FindAllStringSubmatch(caption, -1) {
		names = append(names, m[1])
	}
	return names
}

// HandlePhoto judges a submitted photo and updates the ledger. Photos
// without an activity command are ignored.
func (t *Tracker) HandlePhoto(ctx context.Context, p Photo) Outcome {
	kind, ok := ParseCommand(p.Caption)
	if !ok {
		return OutcomeIgnored
	}
	out := t.handlePhoto(ctx, p, kind)
	t.metrics.submissions.WithLabelValues(string(kind), out.String()).Inc()
	return out
}

func (t *Tracker) handlePhoto(ctx context.Context, p Photo, kind ledger.Kind) Outcome {
	if p.Private {
		t.reply(ctx, p.ChatID, p.MessageID, privatePhotoText(kind))
		return OutcomePrivate
	}
	if p.GroupID == "" || p.UserID == "" {
		logger.Get(ctx).Warn("photo without group or user", "kind", kind)
		t.reply(ctx, p.ChatID, p.MessageID, missingIDText(kind))
		return OutcomeFailed
	}

	log := logger.Get(ctx).With("group", p.GroupID, "user", p.UserID, "kind", kind)
	ctx = logger.Put(ctx, log)

	lk, err := t.locks.Acquire(ctx, lock.Key(p.GroupID, p.UserID), t.lockTTL, t.lockWait)
	if errors.Is(err, lock.ErrBusy) {
		log.Info("submission already in progress")
		t.reply(ctx, p.ChatID, p.MessageID, busyText(kind))
		return OutcomeBusy
	}
	if err != nil {
		log.Error("acquiring lock failed", "error", err)
		t.reply(ctx, p.ChatID, p.MessageID, failedText(kind))
		return OutcomeFailed
	}

	out, text := t.locked(ctx, log, lk, func(ctx context.Context) (Outcome, string) {
		return t.submit(ctx, log, p, kind)
	})
	t.reply(ctx, p.ChatID, p.MessageID, text)
	return out
}

// locked runs fn while keeping lk alive and releases lk when fn returns or
// panics. fn's context is canceled if the lock is lost midway.
func (t *Tracker) locked(ctx context.Context, log *slog.Logger, lk *lock.Lock, fn func(context.Context) (Outcome, string)) (Outcome, string) {
	hctx, stop := lk.Hold(ctx, t.lockTTL)
	defer func() {
		stop()
		// Release even if the request was canceled meanwhile.
		if err := lk.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("releasing lock failed", "error", err)
		}
	}()

	out, text := fn(hctx)
	if cause := context.Cause(hctx); errors.Is(cause, lock.ErrNotHeld) {
		log.Error("lock lost during submission", "error", cause)
	}
	return out, text
}

// submit runs the part of a submission that needs the member's lock. It
// returns the outcome and the reply text.
func (t *Tracker) submit(ctx context.Context, log *slog.Logger, p Photo, kind ledger.Kind) (Outcome, string) {
	date := ledger.Date(t.now())
	name := p.displayName(kind)

	day, err := t.ledger.Today(ctx, p.GroupID, p.UserID, date)
	if err != nil {
		log.Error("reading daily record failed", "error", err)
		return OutcomeFailed, failedText(kind)
	}
	if day.Logged(kind) {
		log.Debug("activity already logged", "date", date)
		return OutcomeAlreadyLogged, alreadyLoggedText(kind, name)
	}
	if t.ledger.Policy().LimitReached(day, kind) {
		log.Debug("attempt limit reached", "date", date, "attempts", t.ledger.Policy().AttemptsUsed(day, kind))
		return OutcomeLimitReached, limitText(kind, name)
	}

	img, err := t.transport.PhotoBytes(ctx, p.FileID)
	if err != nil {
		log.Error("downloading photo failed", "error", err)
		return OutcomeFailed, failedText(kind)
	}

	cctx, cancel := context.WithTimeout(ctx, t.classifyTimeout)
	start := time.Now()
	verdict, err := t.classifier.Classify(cctx, img, kind, name)
	t.metrics.classify.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	cancel()
	if err != nil {
		log.Error("classifying photo failed", "error", err)
		return OutcomeFailed, failedText(kind)
	}

	if !verdict.Valid {
		if err := t.ledger.RecordFailedAttemptKind(ctx, p.GroupID, p.UserID, date, kind); err != nil {
			log.Error("recording failed attempt failed", "error", err)
			return OutcomeFailed, failedText(kind)
		}
		return OutcomeRejected, verdict.Caption
	}

	counts, err := t.ledger.ApplyActivity(ctx, p.GroupID, p.UserID, date, kind, p.storedName())
	if errors.Is(err, ledger.ErrAlreadyLogged) {
		log.Error("integrity: activity logged while lock was held", "date", date)
		return OutcomeFailed, failedText(kind)
	}
	if err != nil {
		log.Error("applying activity failed", "error", err)
		return OutcomeFailed, failedText(kind)
	}
	log.Info("activity logged", "date", date, "counts", counts)

	caption := verdict.Caption
	if kind == ledger.Mindfulness {
		if mentions := extractMentions(p.Caption); len(mentions) > 0 {
			credited, err := t.ledger.CreditMentions(ctx, p.GroupID, date, mentions)
			if err != nil {
				log.Warn("crediting mentions failed", "mentions", mentions, "error", err)
			} else if len(credited) > 0 {
				caption += mentionCreditText(credited)
			}
		}
	}
	return OutcomeLogged, caption
}
