package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"

	"github.com/dgnsrekt/hum/internal/script"
	"github.com/dgnsrekt/hum/tts"
	"github.com/dgnsrekt/hum/ui"
)

// lookahead bounds how many synthesis requests run ahead of playback, so
// later requests can carry already spoken utterances as context.
const lookahead = 3

// speakSource reads src fully and speaks it as an ordered script.
func speakSource(ctx context.Context, src *source) error {
	b, err := io.ReadAll(src.reader)
	if err != nil {
		return fmt.Errorf("unable to read from source: %w", err)
	}

	parts, err := buildScript(b, src.markdown)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return errors.New("nothing to speak")
	}

	if printDoc {
		if err := renderDocument(b, src.markdown); err != nil {
			return err
		}
	}

	client, err := newSpeechClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	log.Debug("speaking", "source", src.name, "parts", len(parts))

	if plain {
		return speakAll(ctx, client, parts, nil)
	}
	return speakWithStatus(ctx, client, parts, src.name)
}

// buildScript turns raw source bytes into speakable utterance texts.
func buildScript(b []byte, markdown bool) ([]string, error) {
	ex := script.NewExtractor(script.Options{})

	var parts []string
	if markdown {
		var err error
		parts, err = ex.Markdown(b)
		if err != nil {
			return nil, fmt.Errorf("unable to extract script: %w", err)
		}
	} else {
		parts = ex.PlainText(string(b))
	}

	out := parts[:0]
	for _, p := range parts {
		if cleaned := script.CleanForSpeech(p); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out, nil
}

// renderDocument pretty-prints the document so you can read along.
func renderDocument(b []byte, markdown bool) error {
	if !markdown {
		_, err := fmt.Fprintln(os.Stdout, strings.TrimRight(string(b), "\n"))
		return err
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(glamourStyle()),
		glamour.WithWordWrap(int(width)), //nolint:gosec
	)
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}
	out, err := r.Render(string(b))
	if err != nil {
		return fmt.Errorf("unable to render markdown: %w", err)
	}
	if _, err := fmt.Fprint(os.Stdout, out); err != nil {
		return fmt.Errorf("unable to write to writer: %w", err)
	}
	return nil
}

// newSpeechClient builds a speech client from the config file, environment,
// and flags.
func newSpeechClient(opts ...tts.Option) (*tts.Client, error) {
	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		if errors.Is(err, tts.ErrMissingAPIKey) {
			return nil, fmt.Errorf("%w (set api_key in the config file or export HUME_API_KEY)", err)
		}
		return nil, err
	}

	if contextWindow >= 0 {
		cfg.ContextWindow = contextWindow
	}
	if noCache {
		cfg.CacheEnabled = false
	}
	if cfg.CacheDir != "" {
		if dir, err := homedir.Expand(cfg.CacheDir); err == nil {
			cfg.CacheDir = dir
		}
	}

	return tts.New(cfg, opts...)
}

// resolveVoice turns the --voice flag into a voice reference, preferring
// the cached voice list for name lookups.
func resolveVoice(client *tts.Client) *tts.Voice {
	if voiceFlag == "" {
		return nil
	}
	if v, ok := client.LookupVoice(voiceFlag); ok {
		log.Debug("resolved voice", "query", voiceFlag, "id", v.ID, "name", v.Name)
		return &tts.Voice{ID: v.ID, Name: v.Name, Provider: tts.ProviderCustomVoice}
	}

	// not in the cached list: treat the value as a raw voice id
	log.Debug("voice not in cached list, using as id", "voice", voiceFlag)
	return &tts.Voice{ID: voiceFlag}
}

// speakAll enqueues parts with a bounded lookahead and awaits each outcome
// in order. Failed utterances are skipped; a stop ends the run. notify is
// optional and receives a done message when everything has resolved.
func speakAll(ctx context.Context, client *tts.Client, parts []string, notify func(tea.Msg)) error {
	voice := resolveVoice(client)

	var (
		played  int
		lastErr error
		stopped bool
		pending []*tts.Pending
	)

	await := func(p *tts.Pending) {
		out := <-p.Outcome()
		switch {
		case out.Err != nil:
			lastErr = out.Err
			log.Error("utterance failed", "task", p.ID(), "err", out.Err)
		case out.Played:
			played++
		default:
			// resolved unplayed without an error: playback was stopped
			stopped = true
		}
	}

	for i, text := range parts {
		if stopped || ctx.Err() != nil {
			break
		}

		p, err := client.SpeakAsync(ctx, tts.Utterance{
			Text:        text,
			Description: description,
			Voice:       voice,
		})
		if err != nil {
			if errors.Is(err, tts.ErrClientClosed) {
				break
			}
			lastErr = err
			log.Error("unable to enqueue utterance", "part", i+1, "err", err)
			continue
		}
		pending = append(pending, p)

		if len(pending) >= lookahead {
			await(pending[0])
			pending = pending[1:]
		}
	}

	for _, p := range pending {
		await(p)
	}

	if notify != nil {
		notify(ui.DoneMsg{})
	}

	log.Debug("run finished", "played", played, "of", len(parts), "stopped", stopped)
	if played == 0 && !stopped && lastErr != nil {
		return fmt.Errorf("unable to speak: %w", lastErr)
	}
	return nil
}

// speakWithStatus runs the interactive status display while a background
// goroutine feeds the playback queue.
func speakWithStatus(ctx context.Context, client *tts.Client, parts []string, title string) error {
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	uiCfg.Title = filepath.Base(title)
	uiCfg.Total = len(parts)

	p := ui.NewProgram(client, uiCfg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- speakAll(ctx, client, parts, p.Send)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("unable to run status display: %w", err)
	}

	// quitting the display stops the feed; outcomes resolve right away
	cancel()
	return <-done
}
