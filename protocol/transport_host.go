//go:build !tinygo

package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// ErrTransportClosed is returned to callers waiting on a closed HostTransport
var ErrTransportClosed = errors.New("transport closed")

// ResponseHandler receives responses nobody is waiting for
type ResponseHandler func(resp Response)

// HostTransport is the host end of the link. It frames and sends Requests,
// reassembles Responses from the byte stream, and routes each one to the
// caller waiting for its correlation id.
type HostTransport struct {
	port io.ReadWriteCloser

	nextID atomic.Uint64

	writeMutex sync.Mutex
	writeBuf   [MaxMessageFrameLen]byte

	pendingMutex sync.Mutex
	pending      map[uint64]chan Response

	responseHandler ResponseHandler

	received  atomic.Uint32
	malformed atomic.Uint32
	unmatched atomic.Uint32

	stopChan  chan struct{}
	doneChan  chan struct{}
	closeOnce sync.Once
}

// NewHostTransport creates a host-side transport and starts its reader
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:     port,
		pending:  make(map[uint64]chan Response),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// SetResponseHandler sets a callback for responses with no waiting caller.
// Call it before the first request.
func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.responseHandler = handler
}

// NextCorrelationID reserves the next id of the monotonically increasing
// sequence used by Call
func (t *HostTransport) NextCorrelationID() uint64 {
	return t.nextID.Add(1) - 1
}

// Send frames and writes a request without waiting for an answer
func (t *HostTransport) Send(req Request) error {
	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	n, err := EncodeRequestFrame(t.writeBuf[:], req)
	if err != nil {
		return fmt.Errorf("failed to encode request %d: %w", req.CorrelationID, err)
	}
	written, err := t.port.Write(t.writeBuf[:n])
	if err != nil {
		return fmt.Errorf("failed to write request %d: %w", req.CorrelationID, err)
	}
	if written != n {
		return fmt.Errorf("incomplete write: %d/%d bytes", written, n)
	}
	glog.V(2).Infof("TX id=%d body=%s frame=% x", req.CorrelationID, req.Body, t.writeBuf[:n])
	return nil
}

// Call sends a request with a fresh correlation id and waits for the
// matching response
func (t *HostTransport) Call(ctx context.Context, body BodyKind) (Response, error) {
	req := Request{CorrelationID: t.NextCorrelationID(), Body: body}

	ch := make(chan Response, 1)
	t.pendingMutex.Lock()
	t.pending[req.CorrelationID] = ch
	t.pendingMutex.Unlock()
	defer func() {
		t.pendingMutex.Lock()
		delete(t.pending, req.CorrelationID)
		t.pendingMutex.Unlock()
	}()

	if err := t.Send(req); err != nil {
		return Response{}, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		return Response{}, fmt.Errorf("request %d: %w", req.CorrelationID, ctx.Err())
	case <-t.doneChan:
		return Response{}, ErrTransportClosed
	}
}

// Ping sends a Ping and checks that the answer is a Ping
func (t *HostTransport) Ping(ctx context.Context) (Response, error) {
	resp, err := t.Call(ctx, BodyPing)
	if err != nil {
		return resp, err
	}
	if resp.Body != BodyPing {
		return resp, fmt.Errorf("request %d: expected %s response, got %s", resp.CorrelationID, BodyPing, resp.Body)
	}
	return resp, nil
}

// readLoop reads the port and splits the stream on delimiters
func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buffer := make([]byte, 256)
	frame := make([]byte, 0, FrameMax)
	discarding := false

	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buffer)
		for _, b := range buffer[:n] {
			if b != Delimiter {
				if discarding {
					continue
				}
				if len(frame) >= FrameMax-1 {
					glog.Warningf("discarding oversized frame (> %d bytes)", FrameMax)
					discarding = true
					frame = frame[:0]
					continue
				}
				frame = append(frame, b)
				continue
			}
			if len(frame) > 0 {
				t.handleFrame(append(frame, Delimiter))
			}
			frame = frame[:0]
			discarding = false
		}

		if err != nil {
			select {
			case <-t.stopChan:
				return
			default:
			}
			if err == io.EOF {
				// Serial read timeouts surface as EOF; keep polling.
				time.Sleep(10 * time.Millisecond)
				continue
			}
			glog.Errorf("serial read failed: %v", err)
			return
		}
	}
}

func (t *HostTransport) handleFrame(frame []byte) {
	resp, err := DecodeResponseFrame(frame)
	if err != nil {
		t.malformed.Add(1)
		glog.Warningf("dropping undecodable frame: %v", err)
		return
	}
	t.received.Add(1)
	glog.V(2).Infof("RX id=%d body=%s", resp.CorrelationID, resp.Body)

	t.pendingMutex.Lock()
	ch, ok := t.pending[resp.CorrelationID]
	if ok {
		delete(t.pending, resp.CorrelationID)
	}
	t.pendingMutex.Unlock()

	if ok {
		ch <- resp
		return
	}
	t.unmatched.Add(1)
	if t.responseHandler != nil {
		t.responseHandler(resp)
		return
	}
	glog.V(1).Infof("no caller waiting for response %d", resp.CorrelationID)
}

// HostStats counts frames seen by the reader
type HostStats struct {
	Received  uint32
	Malformed uint32
	Unmatched uint32
}

// Stats returns the reader counters
func (t *HostTransport) Stats() HostStats {
	return HostStats{
		Received:  t.received.Load(),
		Malformed: t.malformed.Load(),
		Unmatched: t.unmatched.Load(),
	}
}

// Close stops the reader and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stopChan)
		// Closing the port unblocks a pending Read.
		err = t.port.Close()
		<-t.doneChan
	})
	return err
}
