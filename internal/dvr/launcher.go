// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ManuGH/tvrec/internal/channels"
	"github.com/ManuGH/tvrec/internal/fsutil"
	"github.com/ManuGH/tvrec/internal/log"
	"github.com/ManuGH/tvrec/internal/metrics"
	"github.com/ManuGH/tvrec/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
)

const (
	outputExt       = ".mkv"
	maxPathAttempts = 100
)

// ChannelResolver looks up a configured channel by its id.
type ChannelResolver interface {
	ByID(id string) (channels.Channel, bool)
}

// LauncherConfig holds the capture command settings.
type LauncherConfig struct {
	Command   string
	OutputDir string
	UserAgent string
}

// Launcher turns a due entry into a running capture process.
type Launcher struct {
	cfg      LauncherConfig
	channels ChannelResolver
	starter  ProcessStarter
	store    *Store
	watcher  *Watcher
	clock    Clock
	logger   zerolog.Logger
}

// NewLauncher wires a launcher. A nil starter selects ExecStarter and a nil
// clock selects RealClock.
func NewLauncher(cfg LauncherConfig, resolver ChannelResolver, starter ProcessStarter, store *Store, watcher *Watcher, clock Clock) *Launcher {
	if starter == nil {
		starter = ExecStarter{}
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Launcher{
		cfg:      cfg,
		channels: resolver,
		starter:  starter,
		store:    store,
		watcher:  watcher,
		clock:    clock,
		logger:   log.WithComponent("dvr.launcher"),
	}
}

// Launch resolves the entry's channel, spawns the capture command and
// registers the process as active. Nothing is registered when it fails.
func (l *Launcher) Launch(ctx context.Context, entry ScheduleEntry) (ActiveRecording, error) {
	ctx, span := telemetry.Tracer("tvrec/dvr").Start(ctx, "dvr.launch",
		trace.WithAttributes(telemetry.RecordingAttributes(entry.ID, entry.Channel, 0)...))
	defer span.End()

	rec, err := l.launch(ctx, entry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ActiveRecording{}, err
	}
	span.SetAttributes(telemetry.RecordingAttributes("", "", rec.PID)...)
	return rec, nil
}

func (l *Launcher) launch(ctx context.Context, entry ScheduleEntry) (ActiveRecording, error) {
	logger := log.WithContext(ctx, l.logger).With().
		Str(log.FieldScheduleID, entry.ID).
		Str(log.FieldChannelID, entry.Channel).
		Logger()

	ch, ok := l.channels.ByID(entry.Channel)
	if !ok {
		metrics.IncRecordingLaunch("unknown_channel")
		return ActiveRecording{}, fmt.Errorf("%w: %s", ErrUnknownChannel, entry.Channel)
	}

	started := l.clock.Now()
	if err := os.MkdirAll(l.cfg.OutputDir, 0o755); err != nil {
		metrics.IncRecordingLaunch("spawn_error")
		return ActiveRecording{}, fmt.Errorf("%w: create output dir: %w", ErrLaunch, err)
	}
	output, err := uniquePath(OutputPath(l.cfg.OutputDir, entry.Channel, entry.Title, started))
	if err == nil {
		// channel ids come from an operator file and may carry path separators
		err = fsutil.CheckConfined(l.cfg.OutputDir, output)
	}
	if err != nil {
		metrics.IncRecordingLaunch("spawn_error")
		return ActiveRecording{}, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	args := []string{
		"-u", entry.StreamURL,
		"-d", strconv.Itoa(entry.Duration),
		"-o", output,
		"-a", l.cfg.UserAgent,
	}
	proc, err := l.starter.Start(ctx, l.cfg.Command, args)
	if err != nil {
		metrics.IncRecordingLaunch("spawn_error")
		return ActiveRecording{}, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	rec, err := l.store.PromoteToActive(entry, Handle{
		PID:         proc.PID(),
		ChannelName: ch.Name,
		OutputFile:  output,
		Started:     started,
	})
	if err != nil {
		metrics.IncRecordingLaunch("invariant")
		l.watcher.Reap(entry.ID, proc)
		return ActiveRecording{}, err
	}

	metrics.IncRecordingLaunch("success")
	logger.Info().
		Str(log.FieldEvent, "dvr.recording_started").
		Int(log.FieldPID, rec.PID).
		Str(log.FieldTitle, entry.Title).
		Int(log.FieldDuration, entry.Duration).
		Str(log.FieldOutputFile, output).
		Msg("recording started")

	l.watcher.Watch(rec, proc)
	return rec, nil
}

// OutputPath builds <dir>/<channel>-<safe title>-<YYYYMMDD_HHMMSS>.mkv.
func OutputPath(dir, channel, title string, at time.Time) string {
	name := fmt.Sprintf("%s-%s-%s%s", channel, SafeTitle(title), at.Format(idLayout), outputExt)
	return filepath.Join(dir, name)
}

// SafeTitle keeps letters, digits, space, '-' and '_' of the NFC-normalised
// title, replaces every other rune with '_' and then turns spaces into '_'.
func SafeTitle(title string) string {
	var b strings.Builder
	for _, r := range norm.NFC.String(title) {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), r == '-', r == '_':
			b.WriteRune(r)
		default:
			// spaces end up as '_' as well
			b.WriteByte('_')
		}
	}
	return b.String()
}

// uniquePath appends -2, -3, ... before the extension until path is unused.
func uniquePath(path string) (string, error) {
	candidate := path
	base := strings.TrimSuffix(path, outputExt)
	for n := 2; n <= maxPathAttempts+1; n++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat output file: %w", err)
		}
		candidate = fmt.Sprintf("%s-%d%s", base, n, outputExt)
	}
	return "", fmt.Errorf("no free output file name for %s", path)
}
