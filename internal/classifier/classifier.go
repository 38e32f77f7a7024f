// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package classifier asks a vision language model whether a photo shows an
// activity and turns its answer into a caption.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.astrophena.name/megazu/internal/ledger"
)

// Verdict is the judgment of a photo.
type Verdict struct {
	Valid   bool
	Caption string
}

// Target is the subject of a roast.
type Target int

const (
	// TargetPhotoSender roasts whoever posted the photo.
	TargetPhotoSender Target = iota
	// TargetInvoker roasts whoever asked for the roast.
	TargetInvoker
)

func (t Target) String() string {
	if t == TargetInvoker {
		return "invoker"
	}
	return "photo_sender"
}

// ErrEmptyAnswer is returned when the model produced no text.
var ErrEmptyAnswer = errors.New("classifier: model returned an empty answer")

// prompt is a single multimodal request to a model.
type prompt struct {
	system      string
	text        string
	image       []byte
	maxTokens   int
	temperature *float32
}

// generator sends prompts to a model backend.
type generator interface {
	generate(ctx context.Context, p prompt) (string, error)
	close() error
}

// Gateway judges and roasts photos using a language model.
type Gateway struct {
	gen generator
}

// Close releases resources of the model backend.
func (g *Gateway) Close() error { return g.gen.close() }

// Classify judges whether img shows an activity of kind, and writes a
// caption addressing name. An invalid photo is not an error.
func (g *Gateway) Classify(ctx context.Context, img []byte, kind ledger.Kind, name string) (Verdict, error) {
	j, ok := judges[kind]
	if !ok {
		return Verdict{}, fmt.Errorf("classifier: unknown kind %q", kind)
	}
	answer, err := g.gen.generate(ctx, prompt{
		system:    j.system,
		text:      j.question,
		image:     img,
		maxTokens: maxJudgeTokens,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("classifier: judging %s photo: %w", kind, err)
	}
	return parseVerdict(j, answer, name)
}

func parseVerdict(j judge, answer, name string) (Verdict, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Verdict{}, ErrEmptyAnswer
	}
	valid := strings.HasPrefix(strings.ToUpper(answer), j.validPrefix)
	comment := afterColon(answer)
	tmpl := j.invalid
	if valid {
		tmpl = j.valid
	}
	return Verdict{Valid: valid, Caption: fmt.Sprintf(tmpl, name, comment)}, nil
}

// Roast writes a roast of img addressed to target.
func (g *Gateway) Roast(ctx context.Context, img []byte, target Target) (string, error) {
	temp := float32(roastTemp)
	answer, err := g.gen.generate(ctx, prompt{
		system:      roastSystem,
		text:        roastModes[target],
		image:       img,
		maxTokens:   maxRoastTokens,
		temperature: &temp,
	})
	if err != nil {
		return "", fmt.Errorf("classifier: roasting %s: %w", target, err)
	}
	roast := afterColon(strings.TrimSpace(answer))
	if roast == "" {
		return "", ErrEmptyAnswer
	}
	return roast, nil
}

// afterColon strips a leading "LABEL:" from s.
func afterColon(s string) string {
	if _, after, ok := strings.Cut(s, ":"); ok {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(s)
}

// imageFormat returns the image subtype of img, like "jpeg" or "png".
// Telegram serves photos as JPEG, so that is the fallback.
func imageFormat(img []byte) string {
	ct := http.DetectContentType(img)
	if sub, ok := strings.CutPrefix(ct, "image/"); ok {
		return sub
	}
	return "jpeg"
}
