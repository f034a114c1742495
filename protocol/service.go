package protocol

// Handler answers a decoded Request. Returning false sends no response.
type Handler func(req Request) (Response, bool)

// ServiceStats counts what the Service did with each delimited frame
type ServiceStats struct {
	Frames           uint32 // non-empty frames seen
	Dispatched       uint32 // frames decoded and handed to the handler
	Malformed        uint32 // frames that failed to unstuff or decode
	Oversized        uint32 // frames discarded for exceeding FrameMax
	Responses        uint32 // responses enqueued
	ResponsesDropped uint32 // responses dropped for lack of outbound room
}

// Service assembles frames from the inbound queue and answers them through
// the outbound queue. It runs in task context and may be preempted by the
// Transport at any point.
type Service struct {
	requests  QueueConsumer
	responses QueueProducer

	// Incomplete-frame accumulator. discarding is set once a frame
	// outgrows the buffer; bytes are then dropped until the next delimiter.
	incomplete [FrameMax]byte
	n          int
	discarding bool

	// Response composition scratch: the whole stuffed frame is built here
	// before any byte reaches the outbound queue.
	message [MaxMessageLen]byte
	frame   [MaxMessageFrameLen]byte

	stats ServiceStats
}

// DrainAndDispatch consumes the inbound queue until it is empty, dispatching
// every complete frame to handler. An empty frame is ignored and a malformed
// one is dropped silently; the accumulator is cleared after every delimiter.
func (s *Service) DrainAndDispatch(handler Handler) {
	for {
		b, ok := s.requests.PopFront()
		if !ok {
			return
		}
		if b != Delimiter {
			s.accumulate(b)
			continue
		}

		switch {
		case s.discarding:
			s.stats.Oversized++
		case s.n > 0:
			s.stats.Frames++
			s.incomplete[s.n] = Delimiter
			s.process(s.incomplete[:s.n+1], handler)
		}
		s.n = 0
		s.discarding = false
	}
}

func (s *Service) accumulate(b byte) {
	if s.discarding {
		return
	}
	// One slot stays free for the delimiter.
	if s.n >= len(s.incomplete)-1 {
		s.discarding = true
		s.n = 0
		return
	}
	s.incomplete[s.n] = b
	s.n++
}

func (s *Service) process(frame []byte, handler Handler) {
	req, err := DecodeRequestFrame(frame)
	if err != nil {
		s.stats.Malformed++
		return
	}
	s.stats.Dispatched++

	resp, ok := handler(req)
	if !ok {
		return
	}
	s.Send(resp)
}

// Send stuffs resp and enqueues the whole frame, or drops it entirely if the
// outbound queue cannot hold all of it. It reports whether it was enqueued.
func (s *Service) Send(resp Response) bool {
	n, err := Stuff(s.frame[:], AppendResponse(s.message[:0], resp))
	if err != nil || s.responses.Free() < n {
		// The Service is the only producer, so Free can only grow while
		// the bytes below are pushed.
		s.stats.ResponsesDropped++
		return false
	}
	for _, b := range s.frame[:n] {
		s.responses.PushBack(b)
	}
	s.stats.Responses++
	return true
}

// Stats returns a snapshot of the frame counters
func (s *Service) Stats() ServiceStats {
	return s.stats
}
