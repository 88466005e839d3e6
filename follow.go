package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/dgnsrekt/hum/internal/script"
	"github.com/dgnsrekt/hum/tts"
	"github.com/dgnsrekt/hum/ui"
)

// followAndSpeak tails path and speaks lines as they are appended, like a
// spoken tail -f.
func followAndSpeak(ctx context.Context, path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("unable to follow: %w", err)
	}
	if st.IsDir() {
		return errors.New("cannot follow a directory")
	}

	client, err := newSpeechClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if plain {
		err := followLoop(ctx, client, path, nil)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	uiCfg.Title = filepath.Base(path)

	p := ui.NewProgram(client, uiCfg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- followLoop(ctx, client, path, p.Send)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("unable to run status display: %w", err)
	}

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// followLoop watches path and enqueues every complete line appended to it.
// It returns when ctx is cancelled or the file goes away.
func followLoop(ctx context.Context, client *tts.Client, path string, notify func(tea.Msg)) error {
	defer func() {
		if notify != nil {
			notify(ui.DoneMsg{})
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	// speak only what arrives from now on
	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("unable to seek: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to watch file: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("unable to watch file: %w", err)
	}
	log.Debug("following", "path", path, "offset", offset)

	voice := resolveVoice(client)
	var buf tailBuffer
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				return fmt.Errorf("%s went away", path)
			}
			if !ev.Has(fsnotify.Write) {
				continue
			}

			st, err := f.Stat()
			if err != nil {
				return fmt.Errorf("unable to stat file: %w", err)
			}
			if st.Size() < offset {
				// truncated: start over from the top
				log.Debug("file truncated, rewinding", "path", path)
				offset = 0
				buf.reset()
			}

			if _, err := f.Seek(offset, io.SeekStart); err != nil {
				return fmt.Errorf("unable to seek: %w", err)
			}
			chunk, err := io.ReadAll(f)
			if err != nil {
				return fmt.Errorf("unable to read file: %w", err)
			}
			offset += int64(len(chunk))

			for _, line := range buf.split(chunk) {
				text := script.CleanForSpeech(line)
				if text == "" {
					continue
				}
				if _, err := client.SpeakAsync(ctx, tts.Utterance{
					Text:        text,
					Description: description,
					Voice:       voice,
				}); err != nil {
					if errors.Is(err, tts.ErrClientClosed) {
						return nil
					}
					log.Error("unable to enqueue line", "err", err)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}

// tailBuffer splits a byte stream into complete lines, holding incomplete
// trailing data until its newline arrives.
type tailBuffer struct {
	rem []byte
}

// split consumes chunk and returns the non-blank complete lines it closed.
func (b *tailBuffer) split(chunk []byte) []string {
	b.rem = append(b.rem, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(b.rem, '\n')
		if i < 0 {
			return lines
		}
		line := strings.TrimRight(string(b.rem[:i]), "\r")
		b.rem = b.rem[i+1:]
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
}

func (b *tailBuffer) reset() {
	b.rem = b.rem[:0]
}
