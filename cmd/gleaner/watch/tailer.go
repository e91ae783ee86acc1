package watchcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/gleaner/pipeline"
	"github.com/papercomputeco/gleaner/pkg/dotdir"
	"github.com/papercomputeco/gleaner/pkg/taskqueue"
	"github.com/papercomputeco/gleaner/pkg/transcript"
)

// tailer ingests lines appended to transcript files, resuming from the
// cursors saved in the .gleaner watch state.
type tailer struct {
	pipeline  *pipeline.Pipeline
	ddm       *dotdir.Manager
	configDir string
	logger    *slog.Logger

	mu    sync.Mutex
	state *dotdir.WatchState
	files map[string]string // absolute path to conversation id
}

func newTailer(p *pipeline.Pipeline, configDir string, logger *slog.Logger) (*tailer, error) {
	ddm := dotdir.NewManager()
	state, err := ddm.LoadWatchState(configDir)
	if err != nil {
		return nil, err
	}

	return &tailer{
		pipeline:  p,
		ddm:       ddm,
		configDir: configDir,
		logger:    logger,
		state:     state,
		files:     make(map[string]string),
	}, nil
}

// add tracks path. An explicit conversation id wins over the saved one;
// without either the file name is used.
func (t *tailer) add(path, conversationID string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cursor := t.state.Cursor(abs)
	switch {
	case conversationID != "":
		if cursor.ConversationID != "" && cursor.ConversationID != conversationID {
			// a new conversation starts from the top
			cursor = dotdir.WatchCursor{}
		}
		cursor.ConversationID = conversationID
	case cursor.ConversationID == "":
		base := filepath.Base(abs)
		cursor.ConversationID = strings.TrimSuffix(base, filepath.Ext(base))
	}

	t.state.SetCursor(abs, cursor)
	t.files[abs] = cursor.ConversationID
	return abs, nil
}

// sync ingests every complete line past the saved cursor of path and
// returns how many turns were queued.
func (t *tailer) sync(ctx context.Context, path string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	convID, ok := t.files[path]
	if !ok {
		return 0, nil
	}
	log := t.logger.With("path", path, "conversation_id", convID)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("opening transcript: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat transcript: %w", err)
	}

	cursor := t.state.Cursor(path)
	if info.Size() < cursor.Offset {
		log.Warn("transcript shrank, reading from the start", "offset", cursor.Offset, "size", info.Size())
		cursor.Offset = 0
	}
	if info.Size() == cursor.Offset {
		return 0, nil
	}

	if _, err := f.Seek(cursor.Offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seeking transcript: %w", err)
	}

	queued := 0
	consumed, scanErr := transcript.Scan(f, func(turn taskqueue.Turn) error {
		if _, err := t.pipeline.Ingest(ctx, convID, turn); err != nil {
			return err
		}
		queued++
		return nil
	})

	cursor.Offset += consumed
	cursor.Lines += queued
	t.state.SetCursor(path, cursor)

	if err := t.ddm.SaveWatchState(t.state, t.configDir); err != nil {
		log.Warn("failed to save watch state", "error", err)
	}

	if queued > 0 {
		log.Info("ingested transcript lines", "turns", queued, "offset", cursor.Offset)
	}
	return queued, scanErr
}

// watch tails the tracked files until ctx is done. Parent directories are
// watched so files created or replaced later are picked up.
func (t *tailer) watch(ctx context.Context, watcher *fsnotify.Watcher) error {
	t.mu.Lock()
	dirs := make(map[string]bool)
	for path := range t.files {
		dirs[filepath.Dir(path)] = true
	}
	t.mu.Unlock()

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if _, err := t.sync(ctx, filepath.Clean(event.Name)); err != nil {
				t.logger.Warn("failed to ingest transcript", "path", event.Name, "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("transcript watcher error: %w", err)
		}
	}
}
