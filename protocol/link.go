package protocol

// NewLink builds the inbound and outbound queues once and splits them into
// the two disjoint halves of the link. The Transport owns the inbound
// producer and outbound consumer and belongs to interrupt context; the
// Service owns the opposite ends and belongs to task context. Neither side
// takes a lock: each queue end is used from exactly one context.
func NewLink(inboundCapacity, outboundCapacity int) (*Transport, *Service) {
	inbound := NewByteQueue(inboundCapacity, OverwriteOldest)
	outbound := NewByteQueue(outboundCapacity, RejectWhenFull)

	inProducer, inConsumer := inbound.Split()
	outProducer, outConsumer := outbound.Split()

	t := &Transport{
		requests:  inProducer,
		responses: outConsumer,
		halt:      defaultHalt,
	}
	s := &Service{
		requests:  inConsumer,
		responses: outProducer,
	}
	return t, s
}
