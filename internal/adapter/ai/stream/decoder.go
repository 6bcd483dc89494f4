// Package stream decodes server-sent-event responses into JSON frames and folds
// them into accumulated text.
package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
	"sync"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"
	// snippetLimit caps how much of a malformed frame is logged.
	snippetLimit = 512
)

// Frame outcomes reported to the ai_stream_frames_total metric.
const (
	outcomeOK      = "ok"
	outcomeSkipped = "skipped"
	outcomeDone    = "done"
)

// Decoder yields the JSON payload of every "data:" line of an event stream.
// It is single-use and not safe for concurrent use.
type Decoder struct {
	src      io.ReadCloser
	r        *bufio.Reader
	provider string
	logger   *slog.Logger

	finished  bool
	closeOnce sync.Once
	closeErr  error
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithProvider labels frame metrics and logs with the vendor name.
func WithProvider(name string) Option {
	return func(d *Decoder) { d.provider = name }
}

// WithLogger sets the logger used for skipped frames.
func WithLogger(lg *slog.Logger) Option {
	return func(d *Decoder) {
		if lg != nil {
			d.logger = lg
		}
	}
}

// NewDecoder wraps src. The decoder owns src and closes it when the stream ends.
func NewDecoder(src io.ReadCloser, opts ...Option) *Decoder {
	d := &Decoder{
		src:      src,
		r:        bufio.NewReader(src),
		provider: "unknown",
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Next returns the next well-formed frame. It returns io.EOF after the [DONE]
// sentinel or when the source is exhausted, and closes the source in both cases.
// Malformed frames are logged and skipped.
func (d *Decoder) Next() (json.RawMessage, error) {
	for !d.finished {
		// ReadBytes keeps a partial trailing line buffered until its newline arrives,
		// so a frame split across reads (or mid-rune) is decoded whole.
		line, readErr := d.r.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			_ = d.Close()
			return nil, readErr
		}
		if errors.Is(readErr, io.EOF) {
			d.finished = true
		}

		payload, ok := dataPayload(line)
		if !ok {
			continue
		}
		if string(payload) == doneSentinel {
			observability.ObserveFrame(d.provider, outcomeDone)
			d.finished = true
			break
		}
		if !json.Valid(payload) {
			observability.ObserveFrame(d.provider, outcomeSkipped)
			d.logger.Warn("skipping malformed stream frame",
				slog.String("provider", d.provider),
				slog.Any("error", domain.ErrFrameParse),
				slog.String("frame", snippet(payload)))
			continue
		}
		observability.ObserveFrame(d.provider, outcomeOK)
		frame := make(json.RawMessage, len(payload))
		copy(frame, payload)
		return frame, nil
	}
	if err := d.Close(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close releases the underlying source. It is safe to call more than once.
func (d *Decoder) Close() error {
	d.closeOnce.Do(func() {
		d.finished = true
		d.closeErr = d.src.Close()
	})
	return d.closeErr
}

// Frames ranges over the remaining frames. The source is closed when the
// sequence ends, including when the caller stops early. A read error is
// yielded once as the final element.
func (d *Decoder) Frames() iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		defer func() { _ = d.Close() }()
		for {
			frame, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(frame, nil) {
				return
			}
		}
	}
}

// dataPayload returns the trimmed payload of a "data:" line.
func dataPayload(line []byte) ([]byte, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return nil, false
	}
	payload := bytes.TrimPrefix(line[len(dataPrefix):], []byte(" "))
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, false
	}
	return payload, true
}

func snippet(b []byte) string {
	if len(b) > snippetLimit {
		return string(b[:snippetLimit])
	}
	return string(b)
}
