package recorder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"quoteflow/internal/errors"
	"quoteflow/internal/model/enum"
	"quoteflow/pkg/exception"
)

// PlaybackConfig selects a recording and how fast to replay it.
type PlaybackConfig struct {
	Dir        string
	FilePrefix string
	// Speed scales the recorded receive gaps. Zero replays without pacing.
	Speed float64
	// Sources keeps only records of these feeds. Empty keeps all.
	Sources         []enum.SourceTag
	DisableChecksum bool
	MaxPayloadSize  int
}

func (c PlaybackConfig) withDefaults() PlaybackConfig {
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	return c
}

func (c PlaybackConfig) Validate() error {
	switch {
	case c.Dir == "":
		return errors.Wrap(exception.ErrInvalidConfig, "playback: Dir is empty")
	case c.Speed < 0:
		return errors.Wrap(exception.ErrInvalidConfig, "playback: Speed must be >= 0")
	case c.MaxPayloadSize < 0:
		return errors.Wrap(exception.ErrInvalidConfig, "playback: MaxPayloadSize must be >= 0")
	}
	for _, tag := range c.Sources {
		if !tag.IsAvailable() {
			return errors.Wrapf(exception.ErrInvalidConfig, "playback: unknown source %d", tag)
		}
	}
	return nil
}

// Clock sleeps between paced records. Tests swap it for a recording fake.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Playback feeds recorded segments back in file name order.
type Playback struct {
	cfg   PlaybackConfig
	clock Clock
}

func NewPlayback(cfg PlaybackConfig) (*Playback, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Playback{cfg: cfg, clock: realClock{}}, nil
}

func (p *Playback) WithClock(clock Clock) *Playback {
	if clock != nil {
		p.clock = clock
	}
	return p
}

// Run calls handler for every record, pacing on RecvTime when Speed > 0.
// The payload is only valid during the call.
func (p *Playback) Run(ctx context.Context, handler func(Header, []byte) error) error {
	if handler == nil {
		return errors.Wrap(exception.ErrNilInstance, "playback handler")
	}
	segments, err := p.segments()
	if err != nil {
		return err
	}

	pc := pacer{speed: p.cfg.Speed, clock: p.clock}
	for _, path := range segments {
		if err := p.play(ctx, path, &pc, handler); err != nil {
			return err
		}
	}
	return nil
}

// segments lists the recording files in the order they were written.
func (p *Playback) segments() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read recorder dir %s", p.cfg.Dir)
	}
	prefix := p.cfg.FilePrefix + "-"
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, segmentExt) {
			continue
		}
		out = append(out, filepath.Join(p.cfg.Dir, name))
	}
	slices.Sort(out)
	return out, nil
}

func (p *Playback) play(ctx context.Context, path string, pc *pacer, handler func(Header, []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := NewReader(f, ReaderOptions{
		DisableChecksum: p.cfg.DisableChecksum,
		MaxPayloadSize:  p.cfg.MaxPayloadSize,
	})
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		h, payload, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", filepath.Base(path))
		}
		if !p.keep(h) {
			continue
		}
		if err := pc.wait(ctx, h.RecvTime); err != nil {
			return err
		}
		if err := handler(h, payload); err != nil {
			return err
		}
	}
}

func (p *Playback) keep(h Header) bool {
	return len(p.cfg.Sources) == 0 || slices.Contains(p.cfg.Sources, h.Tag)
}

// pacer reproduces the recorded gaps between receive times.
type pacer struct {
	speed float64
	clock Clock
	last  int64
}

func (pc *pacer) wait(ctx context.Context, recv int64) error {
	if pc.speed <= 0 || recv <= 0 {
		return nil
	}
	prev := pc.last
	pc.last = recv
	if prev <= 0 || recv <= prev {
		return nil
	}
	return pc.clock.Sleep(ctx, time.Duration(float64(recv-prev)/pc.speed))
}
