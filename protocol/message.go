package protocol

import "errors"

var (
	ErrUnknownBody   = errors.New("unknown message body")
	ErrTrailingBytes = errors.New("trailing bytes after message")
)

// BodyKind tags the variant carried by a Request or Response. The tag is
// the variant's declaration index and is encoded as a varint.
type BodyKind uint32

const (
	BodyPing BodyKind = iota

	bodyKindCount
)

// String returns the variant name
func (k BodyKind) String() string {
	switch k {
	case BodyPing:
		return "Ping"
	default:
		return "Unknown"
	}
}

// Valid reports whether k names a known variant
func (k BodyKind) Valid() bool {
	return k < bodyKindCount
}

// Request is a host -> controller message. CorrelationID is opaque and
// echoed unchanged in the matching Response.
type Request struct {
	CorrelationID uint64
	Body          BodyKind
}

// Response is a controller -> host message
type Response struct {
	CorrelationID uint64
	Body          BodyKind
}

const (
	// MaxMessageLen is the longest serialized Request or Response
	MaxMessageLen = 2 * MaxVarintLen
	// MaxMessageFrameLen is MaxStuffedLen(MaxMessageLen)
	MaxMessageFrameLen = MaxMessageLen + MaxMessageLen/254 + 2
)

// AppendRequest serializes r onto dst: correlation id, then body tag.
// Ping carries no fields.
func AppendRequest(dst []byte, r Request) []byte {
	dst = AppendUvarint(dst, r.CorrelationID)
	return AppendUvarint(dst, uint64(r.Body))
}

// AppendResponse serializes r onto dst using the Request layout
func AppendResponse(dst []byte, r Response) []byte {
	dst = AppendUvarint(dst, r.CorrelationID)
	return AppendUvarint(dst, uint64(r.Body))
}

// DecodeRequest parses a complete serialized Request
func DecodeRequest(data []byte) (Request, error) {
	id, kind, err := decodeEnvelope(data)
	if err != nil {
		return Request{}, err
	}
	return Request{CorrelationID: id, Body: kind}, nil
}

// DecodeResponse parses a complete serialized Response
func DecodeResponse(data []byte) (Response, error) {
	id, kind, err := decodeEnvelope(data)
	if err != nil {
		return Response{}, err
	}
	return Response{CorrelationID: id, Body: kind}, nil
}

func decodeEnvelope(data []byte) (uint64, BodyKind, error) {
	id, err := DecodeUvarint(&data)
	if err != nil {
		return 0, 0, err
	}
	tag, err := DecodeUvarint32(&data)
	if err != nil {
		return 0, 0, err
	}
	kind := BodyKind(tag)
	if !kind.Valid() {
		return 0, 0, ErrUnknownBody
	}
	// Ping has no fields; anything left over is corruption.
	if len(data) != 0 {
		return 0, 0, ErrTrailingBytes
	}
	return id, kind, nil
}

// EncodeRequestFrame serializes and stuffs r into dst, delimiter included
func EncodeRequestFrame(dst []byte, r Request) (int, error) {
	var scratch [MaxMessageLen]byte
	return Stuff(dst, AppendRequest(scratch[:0], r))
}

// EncodeResponseFrame serializes and stuffs r into dst, delimiter included
func EncodeResponseFrame(dst []byte, r Response) (int, error) {
	var scratch [MaxMessageLen]byte
	return Stuff(dst, AppendResponse(scratch[:0], r))
}

// DecodeRequestFrame unstuffs frame in place and parses the Request
func DecodeRequestFrame(frame []byte) (Request, error) {
	n, err := Unstuff(frame, frame)
	if err != nil {
		return Request{}, err
	}
	return DecodeRequest(frame[:n])
}

// DecodeResponseFrame unstuffs frame in place and parses the Response
func DecodeResponseFrame(frame []byte) (Response, error) {
	n, err := Unstuff(frame, frame)
	if err != nil {
		return Response{}, err
	}
	return DecodeResponse(frame[:n])
}
