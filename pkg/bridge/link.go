package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// defaultResponseTimeout bounds a request whose context has no deadline.
const defaultResponseTimeout = 5 * time.Second

// ErrLinkClosed indicates the serial link is gone
var ErrLinkClosed = errors.New("bridge link closed")

// link correlates requests with responses by sequence number and hands
// unsolicited events to onEvent.
type link struct {
	rw io.ReadWriteCloser

	writeMu sync.Mutex

	seqMu sync.Mutex
	seq   uint8

	pendingMu sync.Mutex
	pending   map[uint8]chan message

	onEvent         func(message)
	responseTimeout time.Duration

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

func newLink(rw io.ReadWriteCloser, onEvent func(message)) *link {
	return &link{
		rw:              rw,
		pending:         make(map[uint8]chan message),
		onEvent:         onEvent,
		responseTimeout: defaultResponseTimeout,
		stopChan:        make(chan struct{}),
		done:            make(chan struct{}),
	}
}

func (l *link) start() { go l.readLoop() }

// nextSeq skips eventSeq so responses never look like events.
func (l *link) nextSeq() uint8 {
	l.seqMu.Lock()
	defer l.seqMu.Unlock()
	seq := l.seq
	l.seq++
	if l.seq == eventSeq {
		l.seq = 0
	}
	return seq
}

func (l *link) send(m message) error {
	frame := encodeFrame(m.marshal())
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if _, err := l.rw.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// request sends op and waits for its response. It returns the response
// body after the status byte.
func (l *link) request(ctx context.Context, op uint8, body []byte) ([]byte, error) {
	if !l.alive() {
		return nil, ErrLinkClosed
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.responseTimeout)
		defer cancel()
	}
	seq := l.nextSeq()
	ch := make(chan message, 1)

	l.pendingMu.Lock()
	l.pending[seq] = ch
	l.pendingMu.Unlock()
	defer func() {
		l.pendingMu.Lock()
		delete(l.pending, seq)
		l.pendingMu.Unlock()
	}()

	log.Debug().Uint8("seq", seq).Uint8("op", op).Int("body_len", len(body)).Msg("Bridge TX request")

	if err := l.send(message{seq: seq, op: op, body: body}); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.op != op|opResponseBit {
			return nil, fmt.Errorf("%w: response op 0x%02X for request 0x%02X", ErrMalformed, resp.op, op)
		}
		if len(resp.body) < 1 {
			return nil, fmt.Errorf("%w: response without status", ErrMalformed)
		}
		if err := statusError(resp.body[0]); err != nil {
			return nil, err
		}
		return resp.body[1:], nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: no response to 0x%02X", ctx.Err(), op)
	case <-l.done:
		return nil, ErrLinkClosed
	}
}

func (l *link) readLoop() {
	defer close(l.done)

	var dec decoder
	buf := make([]byte, 256)
	for {
		n, err := l.rw.Read(buf)
		for _, b := range buf[:n] {
			body, ferr := dec.feed(b)
			if ferr != nil {
				log.Warn().Err(ferr).Msg("Bridge discarded frame")
				continue
			}
			if body != nil {
				l.dispatch(body)
			}
		}
		if err != nil {
			select {
			case <-l.stopChan:
			default:
				log.Error().Err(err).Msg("Bridge read failed, link down")
			}
			return
		}
	}
}

func (l *link) dispatch(body []byte) {
	m, err := parseMessage(body)
	if err != nil {
		log.Warn().Err(err).Msg("Bridge RX malformed message")
		return
	}

	if m.isResponse() {
		l.pendingMu.Lock()
		ch, ok := l.pending[m.seq]
		l.pendingMu.Unlock()
		if !ok {
			log.Debug().Uint8("seq", m.seq).Msg("Bridge RX response with no waiter")
			return
		}
		select {
		case ch <- m:
		default:
		}
		return
	}

	if l.onEvent != nil {
		l.onEvent(m)
	}
}

// alive reports whether the read loop is still running.
func (l *link) alive() bool {
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

func (l *link) close() error {
	var err error
	l.stopOnce.Do(func() {
		close(l.stopChan)
		err = l.rw.Close()
	})
	return err
}
