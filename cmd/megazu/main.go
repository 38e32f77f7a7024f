// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"go.astrophena.name/megazu/internal/classifier"
	"go.astrophena.name/megazu/internal/cli"
	"go.astrophena.name/megazu/internal/httplogger"
	"go.astrophena.name/megazu/internal/logger"
	"go.astrophena.name/megazu/internal/store"
	"go.astrophena.name/megazu/internal/systemd"
	"go.astrophena.name/megazu/internal/telegram"
	"go.astrophena.name/megazu/internal/tracker"
	"go.astrophena.name/megazu/internal/web"
)

func main() { cli.Main(new(app)) }

const (
	defaultAddr  = "localhost:3000"
	defaultStore = "file:megazu.json"
	logLineLimit = 300
)

var (
	errNoToken  = errors.New("Telegram token is not set; pass it with -tg-token flag or TG_TOKEN environment variable")
	errNoHost   = errors.New("host is not set; pass it with -host flag or HOST environment variable")
	errNoSecret = errors.New("webhook secret is not set; pass it with TG_SECRET environment variable")
)

type app struct {
	// configuration, read-only after Run starts
	addr           string
	classifierName string
	geminiKey      string
	geminiModel    string
	host           string
	openaiBaseURL  string
	openaiKey      string
	openaiModel    string
	prod           bool
	storeDSN       string
	tgSecret       string
	tgToken        string

	// initialized by init
	bot       *telegram.Client
	gateway   classifierCloser
	logStream logger.Streamer
	mux       *http.ServeMux
	registry  *prometheus.Registry
	store     store.Store
	tracker   *tracker.Tracker

	// for tests
	httpc         *http.Client
	noServerStart bool
	ready         func(addr string)
}

type classifierCloser interface {
	tracker.Classifier
	Close() error
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.addr, "addr", "", "Listen on `host:port`.")
	fs.StringVar(&a.classifierName, "classifier", "", "Language model `backend` (openai or gemini).")
	fs.StringVar(&a.host, "host", "", "Public `host` name for the webhook.")
	fs.BoolVar(&a.prod, "prod", false, "Receive updates by webhook instead of long polling.")
	fs.StringVar(&a.storeDSN, "store", "", "Document store `DSN`.")
	fs.StringVar(&a.tgToken, "tg-token", "", "Telegram Bot API `token`.")
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	// Load configuration from environment variables.
	a.addr = cmp.Or(a.addr, env.Getenv("ADDR"), defaultAddr)
	a.classifierName = cmp.Or(a.classifierName, env.Getenv("CLASSIFIER"), "openai")
	a.geminiKey = cmp.Or(a.geminiKey, env.Getenv("GEMINI_KEY"))
	a.geminiModel = cmp.Or(a.geminiModel, env.Getenv("GEMINI_MODEL"))
	a.host = cmp.Or(a.host, env.Getenv("HOST"))
	a.openaiBaseURL = cmp.Or(a.openaiBaseURL, env.Getenv("OPENAI_BASE_URL"))
	a.openaiKey = cmp.Or(a.openaiKey, env.Getenv("OPENAI_API_KEY"))
	a.openaiModel = cmp.Or(a.openaiModel, env.Getenv("OPENAI_MODEL"))
	a.storeDSN = cmp.Or(a.storeDSN, env.Getenv("STORE"), defaultStore)
	a.tgSecret = cmp.Or(a.tgSecret, env.Getenv("TG_SECRET"))
	a.tgToken = cmp.Or(a.tgToken, env.Getenv("TG_TOKEN"))

	if a.tgToken == "" {
		return fmt.Errorf("%w: %w", cli.ErrInvalidArgs, errNoToken)
	}
	if a.prod {
		if a.host == "" {
			return fmt.Errorf("%w: %w", cli.ErrInvalidArgs, errNoHost)
		}
		if a.tgSecret == "" {
			return fmt.Errorf("%w: %w", cli.ErrInvalidArgs, errNoSecret)
		}
	}

	// Keep recent log lines around for /debug/logs.
	a.logStream = logger.NewStreamer(logLineLimit)
	ctx = logger.Put(ctx, logger.New(io.MultiWriter(env.Stderr, a.logStream)))

	defer a.close(ctx)
	if err := a.init(ctx); err != nil {
		return err
	}

	// Used in tests.
	if a.noServerStart {
		return nil
	}
	return a.serve(ctx)
}

func (a *app) init(ctx context.Context) error {
	log := logger.Get(ctx)
	if a.httpc == nil {
		a.httpc = &http.Client{
			// Leave room for long polling and slow model responses.
			Timeout: 60 * time.Second,
		}
	}
	httpc := *a.httpc
	httpc.Transport = httplogger.New(httpc.Transport, log, strings.NewReplacer(a.tgToken, "[EXPUNGED]"))
	a.httpc = &httpc

	var err error
	a.store, err = store.Open(ctx, a.storeDSN)
	if err != nil {
		return err
	}

	if a.gateway == nil {
		if a.gateway, err = a.newClassifier(ctx); err != nil {
			return err
		}
	}

	a.bot = telegram.New(a.tgToken, a.httpc)
	me, err := a.bot.GetMe(ctx)
	if err != nil {
		return err
	}
	log.Info("authorized", "bot", me.Username, "id", me.ID)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.tracker = tracker.New(tracker.Config{
		Store:      a.store,
		Transport:  a.bot,
		Classifier: a.gateway,
		Registerer: a.registry,
	})

	if err := a.bot.SetMyCommands(ctx, tracker.Commands); err != nil {
		log.Warn("setting bot commands failed", "error", err)
	}

	a.initRoutes(ctx)
	return nil
}

func (a *app) newClassifier(ctx context.Context) (classifierCloser, error) {
	switch a.classifierName {
	case "openai":
		if a.openaiKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", cli.ErrInvalidArgs)
		}
		return classifier.NewOpenAI(classifier.OpenAIConfig{
			APIKey:     a.openaiKey,
			Model:      a.openaiModel,
			BaseURL:    a.openaiBaseURL,
			HTTPClient: a.httpc,
		}), nil
	case "gemini":
		if a.geminiKey == "" {
			return nil, fmt.Errorf("%w: GEMINI_KEY is not set", cli.ErrInvalidArgs)
		}
		return classifier.NewGemini(ctx, a.geminiKey, a.geminiModel)
	}
	return nil, fmt.Errorf("%w: unknown classifier %q", cli.ErrInvalidArgs, a.classifierName)
}

func (a *app) initRoutes(ctx context.Context) {
	a.mux = http.NewServeMux()
	a.mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	if a.prod {
		a.mux.HandleFunc("POST /telegram", a.handleWebhook)
	}

	web.Health(a.mux).RegisterFunc("store", func(ctx context.Context) error {
		_, err := a.store.Get(ctx, "health/ping")
		return err
	})

	dbg := web.Debugger(a.mux)
	dbg.KV("Store", strings.SplitN(a.storeDSN, ":", 2)[0])
	dbg.KV("Classifier", a.classifierName)
	dbg.KV("Mode", map[bool]string{true: "webhook", false: "polling"}[a.prod])
	dbg.Handle("logs", "Recent logs", a.logStream)
	dbg.Link("/metrics", "Metrics")
}

// debugAuth allows /debug/ only with the webhook secret as a bearer token in
// production.
func (a *app) debugAuth(r *http.Request) bool {
	if !a.prod {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+a.tgSecret
}

func (a *app) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.prod {
		url := "https://" + a.host + "/telegram"
		if err := a.bot.SetWebhook(ctx, url, a.tgSecret); err != nil {
			return err
		}
		logger.Get(ctx).Info("running in production mode", "webhook", url)
	} else {
		if err := a.bot.DeleteWebhook(ctx); err != nil {
			return err
		}
		logger.Get(ctx).Info("running in development mode")
		g.Go(func() error { return a.poll(ctx) })
	}

	g.Go(func() error {
		return web.ListenAndServe(ctx, &web.ListenAndServeConfig{
			Addr:       a.addr,
			Mux:        a.mux,
			Debuggable: true,
			DebugAuth:  a.debugAuth,
			Ready: func(addr string) {
				systemd.Notify(ctx, systemd.Ready)
				if a.ready != nil {
					a.ready(addr)
				}
			},
		})
	})
	g.Go(func() error {
		systemd.WatchdogLoop(ctx)
		return nil
	})
	err := g.Wait()
	systemd.Notify(ctx, systemd.Stopping)
	return err
}

func (a *app) close(ctx context.Context) {
	log := logger.Get(ctx)
	if a.gateway != nil {
		if err := a.gateway.Close(); err != nil {
			log.Warn("closing classifier failed", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn("closing store failed", "error", err)
		}
	}
}
