// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.astrophena.name/megazu/internal/logger"
	"go.astrophena.name/megazu/internal/syncx"
	"go.astrophena.name/megazu/internal/telegram"
	"go.astrophena.name/megazu/internal/web"
)

func (a *app) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Telegram-Bot-Api-Secret-Token") != a.tgSecret {
		web.RespondJSONError(w, r, web.ErrNotFound)
		return
	}

	var u telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		web.RespondJSONError(w, r, fmt.Errorf("%w: %v", web.ErrBadRequest, err))
		return
	}

	// Telegram retries updates that fail, so errors are answered by the bot
	// in chat and never with an HTTP error.
	a.tracker.HandleUpdate(context.WithoutCancel(r.Context()), u)
	web.RespondJSON(w, map[string]bool{"ok": true})
}

const (
	pollTimeout = 25 * time.Second
	pollBackoff = 3 * time.Second
	pollWorkers = 16
)

// poll receives updates by long polling until ctx is done. Updates are
// handled concurrently by a bounded set of goroutines, and the ones in
// flight are finished before poll returns.
func (a *app) poll(ctx context.Context) error {
	log := logger.Get(ctx)
	wg := syncx.NewLimitedWaitGroup(pollWorkers)
	defer wg.Wait()
	hctx := context.WithoutCancel(ctx)

	var offset int64
	for {
		updates, err := a.bot.GetUpdates(ctx, offset, pollTimeout)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Error("getting updates failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollBackoff):
			}
			continue
		}
		for _, u := range updates {
			offset = max(offset, u.UpdateID+1)
			wg.Go(func() { a.tracker.HandleUpdate(hctx, u) })
		}
	}
}
