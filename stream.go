package cxml

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// streamBatchCap sizes both the Parser's working token buffer and every
// pooled TokenBatch a Stream hands out, the same way cmd/cxmltok picks a
// fixed buffer size for its own SetTokenBuffer call.
const streamBatchCap = 256

var tokenBatchPool = sync.Pool{
	New: func() any {
		return make([]uint32, streamBatchCap)
	},
}

// TokenBatch is one flushed run of token words delivered by a Stream.
// Release returns its backing array to the shared pool; a consumer that
// never calls it only costs the next flush an extra allocation, never a
// correctness problem.
type TokenBatch struct {
	Tokens []uint32
}

// Release returns b's backing array to the pool Stream draws from.
func (b TokenBatch) Release() {
	tokenBatchPool.Put(b.Tokens[:cap(b.Tokens)])
}

// Stream drives a Parser with chunks read from an io.Reader on a single
// background goroutine and republishes every flush as a TokenBatch on a
// channel. It is the host-facing concurrency layer the Parser itself
// deliberately lacks (spec.md §5: no internal threads, no re-entrancy) —
// Stream still only ever calls Parse from the one goroutine it owns, so
// the Parser's single-threaded-cooperative invariant holds even though a
// caller now sees results arrive asynchronously.
type Stream struct {
	p         *Parser
	r         io.Reader
	ctx       context.Context
	chunkSize int

	once sync.Once
	ch   chan TokenBatch
	err  error
}

// NewStream wraps p so it can be driven asynchronously and drained as a
// channel of TokenBatch values. p must already carry a Config (via
// NewParser); Chan installs p's token buffer and Flusher itself,
// replacing anything set by a prior SetTokenBuffer call. chunkSize <= 0
// defaults to 4096, matching cmd/cxmltok's own default.
func NewStream(ctx context.Context, p *Parser, r io.Reader, chunkSize int) *Stream {
	if chunkSize <= 0 {
		chunkSize = 4096
	}
	return &Stream{p: p, r: r, ctx: ctx, chunkSize: chunkSize}
}

// Chan starts the background goroutine on its first call and returns the
// channel it publishes TokenBatch values on; the channel closes once the
// input is exhausted, a Parse call fails, or ctx is done. Subsequent
// calls return the same channel without starting a second goroutine,
// mirroring the teacher's idempotent Parser.Stream.
func (s *Stream) Chan() <-chan TokenBatch {
	s.once.Do(func() {
		s.ch = make(chan TokenBatch, 8)
		go s.run()
	})
	return s.ch
}

// Err returns whatever stopped the stream short of a clean EOF. Only
// meaningful after Chan's channel has been drained to closure.
func (s *Stream) Err() error { return s.err }

func (s *Stream) run() {
	defer close(s.ch)

	buf, _ := tokenBatchPool.Get().([]uint32)
	buf = buf[:streamBatchCap]
	defer tokenBatchPool.Put(buf)

	s.p.SetTokenBuffer(buf, FlushFunc(s.emit))

	chunk := make([]byte, s.chunkSize)
	for {
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return
		}

		n, readErr := s.r.Read(chunk)
		if n > 0 {
			if errType, err := s.p.Parse(chunk[:n]); errType != OK {
				if err == nil {
					err = fmt.Errorf("cxml: parse failed at row %d col %d: %s", s.p.Row(), s.p.Col(), errType)
				}
				s.err = err
				return
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			s.err = readErr
			return
		}
	}

	if buf[0] > 0 {
		s.emit(buf[:1+int(buf[0])])
	}
}

// emit copies a flushed buffer into a pooled TokenBatch and hands it to
// the channel, since Parse keeps writing into the same underlying array
// once the Flusher callback returns. It backs off on ctx cancellation so
// a stalled consumer can't leak the goroutine.
func (s *Stream) emit(flushed []uint32) {
	out, _ := tokenBatchPool.Get().([]uint32)
	if cap(out) < len(flushed) {
		out = make([]uint32, len(flushed))
	}
	out = out[:len(flushed)]
	copy(out, flushed)

	select {
	case s.ch <- TokenBatch{Tokens: out}:
	case <-s.ctx.Done():
		tokenBatchPool.Put(out[:cap(out)])
	}
}
