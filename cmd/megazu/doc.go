// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Megazu is a Telegram group bot that keeps members honest about their habits.

Members post a photo with /pumped (or /pump), /shipped or /zenned in the
caption. A vision language model judges whether the photo shows a workout,
shipped work or a mindfulness practice and writes a snarky caption. Each
activity counts once per member per day; five submissions per day are
allowed.

Commands:

	/start       How to use the tracker.
	/lifters     Fitness leaderboard.
	/shippers    Shipping leaderboard.
	/zensters    Mindfulness leaderboard.
	/bezen       Join the mindfulness circle, so others can credit you by
	             mentioning you in a /zenned caption.
	/bing_roast  Reply to a photo to have it (or yourself) roasted. Three
	             per day.

# Usage

	$ megazu [flags...]

By default megazu long polls Telegram for updates. With -prod it registers
a webhook at https://<host>/telegram instead and serves it on -addr.

# Configuration

Flags take precedence over environment variables:

	TG_TOKEN        Telegram Bot API token (required).
	TG_SECRET       Webhook secret token (required with -prod). Also
	                protects /debug/ as a bearer token.
	HOST            Public host name of the webhook (required with -prod).
	ADDR            Address to listen on.
	STORE           Document store: mem:, file:<path>, sqlite:<path> or
	                postgres://...
	CLASSIFIER      Language model backend: openai or gemini.
	OPENAI_API_KEY  OpenAI API key.
	OPENAI_BASE_URL Endpoint of an OpenAI compatible API.
	OPENAI_MODEL    OpenAI model name.
	GEMINI_KEY      Gemini API key.
	GEMINI_MODEL    Gemini model name.

# Endpoints

	/telegram      Webhook (with -prod).
	/health        Health checks.
	/metrics       Prometheus metrics.
	/debug/        Debug index, pprof and recent logs at /debug/logs.

With -v every outgoing HTTP request is logged at debug level, with the bot
token masked. Under systemd, megazu reports readiness once it listens and
pings the watchdog when WatchdogSec is set. The file: store may only be
opened by one process at a time.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/megazu/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
