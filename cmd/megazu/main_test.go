// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.astrophena.name/megazu/internal/classifier"
	"go.astrophena.name/megazu/internal/cli"
	"go.astrophena.name/megazu/internal/cli/clitest"
	"go.astrophena.name/megazu/internal/ledger"
	"go.astrophena.name/megazu/internal/logger"
	"go.astrophena.name/megazu/internal/testutil"
)

// Typical Telegram Bot API token, copied from docs.
const tgToken = "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11"

type call struct {
	Method string
	Args   map[string]any
}

type fakeTelegram struct {
	mux     *http.ServeMux
	mu      sync.Mutex
	calls   []call
	updates func() string // result of getUpdates
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	f := &fakeTelegram{mux: http.NewServeMux()}
	f.mux.HandleFunc("POST api.telegram.org/{token}/{method}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("token") != "bot"+tgToken {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"ok": false, "description": "Unauthorized"}`))
			return
		}
		method := r.PathValue("method")
		var args map[string]any
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
				t.Errorf("%s: %v", method, err)
			}
		}
		f.mu.Lock()
		f.calls = append(f.calls, call{method, args})
		updates := f.updates
		f.mu.Unlock()

		result := "true"
		switch method {
		case "getMe":
			result = `{"id": 1, "is_bot": true, "first_name": "MegaZu", "username": "megazu_bot"}`
		case "getFile":
			result = `{"file_id": "big", "file_path": "photos/big.jpg"}`
		case "sendMessage":
			result = `{"message_id": 100, "chat": {"id": -100, "type": "supergroup"}}`
		case "getUpdates":
			result = "[]"
			if updates != nil {
				result = updates()
			}
		}
		w.Write([]byte(`{"ok": true, "result": ` + result + `}`))
	})
	f.mux.HandleFunc("GET api.telegram.org/file/{token}/photos/big.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0xff, 0xd8, 0xff})
	})
	return f
}

func (f *fakeTelegram) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var texts []string
	for _, c := range f.calls {
		if c.Method == "sendMessage" {
			texts = append(texts, c.Args["text"].(string))
		}
	}
	return texts
}

func (f *fakeTelegram) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var methods []string
	for _, c := range f.calls {
		methods = append(methods, c.Method)
	}
	return methods
}

type fakeClassifier struct{}

func (fakeClassifier) Classify(ctx context.Context, img []byte, kind ledger.Kind, name string) (classifier.Verdict, error) {
	return classifier.Verdict{Valid: true, Caption: "Counted, " + name + "!"}, nil
}

func (fakeClassifier) Roast(ctx context.Context, img []byte, target classifier.Target) (string, error) {
	return "go outside.", nil
}

func (fakeClassifier) Close() error { return nil }

func TestRun(t *testing.T) {
	t.Parallel()

	tg := newFakeTelegram(t)
	clitest.Run(t, func(t *testing.T) *app {
		return &app{
			httpc:         testutil.MockHTTPClient(tg.mux),
			gateway:       fakeClassifier{},
			noServerStart: true,
		}
	}, map[string]clitest.Case[*app]{
		"prints usage with help flag": {
			Args:         []string{"-h"},
			WantErr:      flag.ErrHelp,
			WantInStderr: "Megazu is a Telegram group bot",
		},
		"version": {
			Args:    []string{"-version"},
			WantErr: cli.ErrExitVersion,
		},
		"fails without token": {
			Args:    []string{},
			WantErr: errNoToken,
		},
		"fails in production without host": {
			Args:    []string{"-prod"},
			Env:     map[string]string{"TG_TOKEN": tgToken, "TG_SECRET": "s"},
			WantErr: errNoHost,
		},
		"fails in production without secret": {
			Args:    []string{"-prod", "-host", "bot.example.com"},
			Env:     map[string]string{"TG_TOKEN": tgToken},
			WantErr: cli.ErrInvalidArgs,
		},
		"reads configuration from environment": {
			Args: []string{},
			Env: map[string]string{
				"TG_TOKEN":   tgToken,
				"STORE":      "mem:",
				"CLASSIFIER": "gemini",
			},
			WantInStderr: "megazu_bot",
			CheckFunc: func(t *testing.T, a *app, _ string) {
				testutil.AssertEqual(t, a.tgToken, tgToken)
				testutil.AssertEqual(t, a.storeDSN, "mem:")
				testutil.AssertEqual(t, a.classifierName, "gemini")
				testutil.AssertEqual(t, a.addr, defaultAddr)
			},
		},
		"flags win over environment": {
			Args: []string{"-store", "mem:", "-tg-token", tgToken, "-addr", "localhost:0"},
			Env:  map[string]string{"TG_TOKEN": "bad", "STORE": "file:/nonexistent/megazu.json"},
			CheckFunc: func(t *testing.T, a *app, _ string) {
				testutil.AssertEqual(t, a.storeDSN, "mem:")
				testutil.AssertEqual(t, a.addr, "localhost:0")
			},
		},
	})
}

func TestNewClassifier(t *testing.T) {
	t.Parallel()

	a := &app{classifierName: "openai"}
	if _, err := a.newClassifier(t.Context()); err == nil {
		t.Fatal("want error without OpenAI key")
	}
	a.openaiKey = "sk-test"
	c, err := a.newClassifier(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	c.Close()

	a = &app{classifierName: "gemini"}
	if _, err := a.newClassifier(t.Context()); err == nil {
		t.Fatal("want error without Gemini key")
	}

	a = &app{classifierName: "llama"}
	if _, err := a.newClassifier(t.Context()); err == nil {
		t.Fatal("want error for unknown classifier")
	}
}

func testApp(t *testing.T, tg *fakeTelegram, prod bool) *app {
	t.Helper()
	a := &app{
		httpc:          testutil.MockHTTPClient(tg.mux),
		gateway:        fakeClassifier{},
		prod:           prod,
		storeDSN:       "mem:",
		classifierName: "openai",
		tgToken:        tgToken,
		tgSecret:       "hunter2",
	}
	a.logStream = logger.NewStreamer(10)
	if err := a.init(t.Context()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.close(context.Background()) })
	return a
}

const photoUpdate = `{
	"update_id": 10,
	"message": {
		"message_id": 5,
		"from": {"id": 42, "first_name": "Ann", "username": "ann"},
		"chat": {"id": -100, "type": "supergroup"},
		"caption": "leg day /pumped",
		"photo": [{"file_id": "small", "width": 90, "height": 90}, {"file_id": "big", "width": 800, "height": 600}]
	}
}`

func TestWebhook(t *testing.T) {
	t.Parallel()

	tg := newFakeTelegram(t)
	a := testApp(t, tg, true)

	send := func(secret, body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/telegram", strings.NewReader(body))
		if secret != "" {
			r.Header.Set("X-Telegram-Bot-Api-Secret-Token", secret)
		}
		w := httptest.NewRecorder()
		a.mux.ServeHTTP(w, r)
		return w
	}

	testutil.AssertEqual(t, send("", photoUpdate).Code, http.StatusNotFound)
	testutil.AssertEqual(t, send("wrong", photoUpdate).Code, http.StatusNotFound)
	testutil.AssertEqual(t, send("hunter2", "{not json").Code, http.StatusBadRequest)
	testutil.AssertEqual(t, len(tg.sent()), 0)

	testutil.AssertEqual(t, send("hunter2", photoUpdate).Code, http.StatusOK)
	testutil.AssertEqual(t, tg.sent(), []string{"Counted, Ann!"})
	testutil.AssertContains(t, tg.methods(), "getFile")
	testutil.AssertContains(t, tg.methods(), "setMyCommands")

	// Telegram redelivers; the activity is counted once.
	testutil.AssertEqual(t, send("hunter2", photoUpdate).Code, http.StatusOK)
	testutil.AssertStringContains(t, tg.sent()[1], "already logged")

	w := httptest.NewRecorder()
	a.mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	testutil.AssertEqual(t, w.Code, http.StatusOK)
	testutil.AssertStringContains(t, w.Body.String(), `megazu_submissions_total{kind="fitness",outcome="logged"} 1`)
	testutil.AssertStringContains(t, w.Body.String(), `megazu_submissions_total{kind="fitness",outcome="already_logged"} 1`)
}

func TestPoll(t *testing.T) {
	t.Parallel()

	tg := newFakeTelegram(t)
	a := testApp(t, tg, false)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var n int
	tg.updates = func() string {
		n++
		switch n {
		case 1:
			return `[{"update_id": 7, "message": {"message_id": 1, "chat": {"id": -100, "type": "group"}, "from": {"id": 1, "first_name": "Bo"}, "text": "/start"}}]`
		case 2:
			return "[" + photoUpdate + "]"
		}
		cancel()
		return "[]"
	}

	if err := a.poll(ctx); err != nil {
		t.Fatal(err)
	}

	sent := tg.sent()
	testutil.AssertEqual(t, len(sent), 2)
	testutil.AssertContains(t, sent, "Counted, Ann!")

	var offsets []float64
	tg.mu.Lock()
	for _, c := range tg.calls {
		if c.Method == "getUpdates" {
			offsets = append(offsets, c.Args["offset"].(float64))
		}
	}
	tg.mu.Unlock()
	testutil.AssertEqual(t, offsets, []float64{0, 8, 11})
}

func TestDebugAuth(t *testing.T) {
	t.Parallel()

	a := &app{prod: true, tgSecret: "hunter2"}
	r := httptest.NewRequest(http.MethodGet, "/debug/", nil)
	testutil.AssertEqual(t, a.debugAuth(r), false)
	r.Header.Set("Authorization", "Bearer hunter2")
	testutil.AssertEqual(t, a.debugAuth(r), true)

	a.prod = false
	testutil.AssertEqual(t, a.debugAuth(httptest.NewRequest(http.MethodGet, "/debug/", nil)), true)
}

func TestUnknownStore(t *testing.T) {
	t.Parallel()

	a := &app{
		httpc:    testutil.MockHTTPClient(newFakeTelegram(t).mux),
		gateway:  fakeClassifier{},
		storeDSN: "redis://localhost",
		tgToken:  tgToken,
	}
	if err := a.init(t.Context()); err == nil {
		t.Fatal("want error for unsupported store")
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	a := testApp(t, newFakeTelegram(t), false)
	w := httptest.NewRecorder()
	a.mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	testutil.AssertEqual(t, w.Code, http.StatusOK)
}
