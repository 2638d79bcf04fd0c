// Package protocol implements the Dubbo v2 frame layer above Hessian-2.
//
// Frame format, big-endian throughout:
//
//	0      2    3    4            12           16
//	┌──────┬────┬────┬────────────┬────────────┬───────────────┐
//	│magic │flag│stat│ request id │  body len  │     body      │
//	│ dabb │    │    │   uint64   │   uint32   │ bodyLen bytes │
//	└──────┴────┴────┴────────────┴────────────┴───────────────┘
//
// Flag bits: 0x80 request/response, 0x40 two-way, 0x20 event (heartbeat),
// low 5 bits the serialization id (always 0x02, Hessian-2).
//
// The provider port doubles as a telnet shell. A read that does not start
// with the magic switches the decoder to text mode: bytes are slurped until
// the "\r\ndubbo>" prompt and returned as one TelnetLine.
package protocol

import (
	"bytes"
	"encoding/hex"
	"io"
	"log"

	"github.com/pkg/errors"

	"dubbo-go/hessian"
	"dubbo-go/message"
)

const (
	// HeaderLength is the fixed frame header size.
	HeaderLength = 16

	magicHigh = 0xda
	magicLow  = 0xbb

	flagRequest = 0x80
	flagTwoWay  = 0x40
	flagEvent   = 0x20

	serializationMask     = 0x1f
	serializationHessian2 = 0x02
)

// telnetPrompt terminates every output of the Dubbo shell side channel.
var telnetPrompt = []byte("\r\ndubbo>")

// ErrUnsupportedSerialization reports a frame whose serialization id is not
// Hessian-2.
var ErrUnsupportedSerialization = errors.New("protocol: unsupported serialization id")

// Decoder reads one message at a time from a connection. It is not safe for
// concurrent use; each connection owns exactly one reader.
type Decoder struct {
	r io.Reader
}

// NewDecoder wraps r, typically a net.Conn.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads the next frame and dispatches on its flags. The body is read
// into a bounded buffer of exactly the declared length before parsing, so a
// broken body can never desynchronise the stream by over-reading.
func (d *Decoder) Decode() (message.Message, error) {
	head := make([]byte, 2)
	if _, err := io.ReadFull(d.r, head); err != nil {
		return nil, err
	}
	if head[0] != magicHigh || head[1] != magicLow {
		return d.decodeTelnet(head)
	}

	rest := make([]byte, HeaderLength-2)
	if _, err := io.ReadFull(d.r, rest); err != nil {
		return nil, errors.Wrap(err, "protocol: short header")
	}
	flag := rest[0]
	status := rest[1]
	id := int64(hessian.DecodeU64(rest[2:10]))
	bodyLen := binaryU32(rest[10:14])

	if flag&serializationMask != serializationHessian2 {
		return nil, errors.Wrapf(ErrUnsupportedSerialization, "id 0x%02x", flag&serializationMask)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return nil, errors.Wrap(err, "protocol: short body")
	}

	hd := hessian.NewDecoder(body)
	twoway := flag&flagTwoWay != 0

	var msg message.Message
	var err error
	switch {
	case flag&flagRequest != 0 && flag&flagEvent != 0:
		msg, err = decodeHeartbeatRequest(hd, id, twoway)
	case flag&flagEvent != 0:
		msg, err = decodeHeartbeatResponse(hd, id, twoway)
	case flag&flagRequest != 0:
		msg, err = decodeRequestBody(hd, id, twoway)
	default:
		msg, err = decodeResponseBody(hd, id, status)
	}
	if err != nil {
		log.Printf("unable to decode message body %q: %v", hex.EncodeToString(body), err)
		return nil, err
	}
	if n := hd.Remaining(); n > 0 {
		log.Printf("bytes %q undecoded", hex.EncodeToString(body[len(body)-n:]))
	}
	return msg, nil
}

// decodeTelnet accumulates the text-mode stream until the shell prompt.
func (d *Decoder) decodeTelnet(head []byte) (message.Message, error) {
	buf := append([]byte(nil), head...)
	one := make([]byte, 1)
	for !bytes.HasSuffix(buf, telnetPrompt) {
		if _, err := io.ReadFull(d.r, one); err != nil {
			return nil, err
		}
		buf = append(buf, one[0])
	}
	return message.TelnetLine(buf), nil
}

func decodeHeartbeatRequest(hd *hessian.Decoder, id int64, twoway bool) (message.Message, error) {
	data, err := hd.ReadObject()
	if err != nil {
		return nil, err
	}
	return &message.HeartbeatRequest{ID: id, Data: data, TwoWay: twoway}, nil
}

func decodeHeartbeatResponse(hd *hessian.Decoder, id int64, twoway bool) (message.Message, error) {
	data, err := hd.ReadObject()
	if err != nil {
		return nil, err
	}
	return &message.HeartbeatResponse{ID: id, Data: data, TwoWay: twoway}, nil
}

func decodeRequestBody(hd *hessian.Decoder, id int64, twoway bool) (message.Message, error) {
	dubboVersion, err := readString(hd)
	if err != nil {
		return nil, err
	}
	serviceName, err := readString(hd)
	if err != nil {
		return nil, err
	}
	serviceVersion, err := readString(hd)
	if err != nil {
		return nil, err
	}
	methodName, err := readString(hd)
	if err != nil {
		return nil, err
	}
	desc, err := readString(hd)
	if err != nil {
		return nil, err
	}
	argTypes, err := ClassNamesOf(desc)
	if err != nil {
		return nil, err
	}
	args := make([]any, len(argTypes))
	for i := range args {
		if args[i], err = hd.ReadObject(); err != nil {
			return nil, err
		}
	}
	attachments, err := readAttachments(hd)
	if err != nil {
		return nil, err
	}

	req := &message.Request{
		ID:             id,
		TwoWay:         twoway,
		DubboVersion:   dubboVersion,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		MethodName:     methodName,
		Args:           args,
		Attachments:    attachments,
	}
	if g := attachments["generic"]; g == "true" || g == true {
		if err := rewriteGeneric(req); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// rewriteGeneric unpacks a generic invocation: args[0] is the real method
// name, args[1] the Java type names, args[2] the raw values. The typed-data
// converter maps each pair to a concrete value.
func rewriteGeneric(req *message.Request) error {
	if len(req.Args) < 3 {
		return errors.Errorf("protocol: generic request with %d args", len(req.Args))
	}
	method, err := stringValue(req.Args[0])
	if err != nil {
		return err
	}
	types := listValues(req.Args[1])
	raw := listValues(req.Args[2])
	n := min(len(types), len(raw))
	args := make([]any, n)
	for i := 0; i < n; i++ {
		typeName, err := stringValue(types[i])
		if err != nil {
			return err
		}
		if args[i], err = ConvertTyped(typeName, raw[i]); err != nil {
			return err
		}
	}
	req.MethodName = method
	req.Args = args
	return nil
}

func decodeResponseBody(hd *hessian.Decoder, id int64, status byte) (message.Message, error) {
	resp := &message.Response{ID: id, Status: status}
	if status != message.StatusOK {
		errObj, err := hd.ReadObject()
		if err != nil {
			return nil, err
		}
		resp.Error = errObj
		return resp, nil
	}
	code, err := hd.ReadInt()
	if err != nil {
		return nil, err
	}
	switch code {
	case 1:
		if resp.Data, err = hd.ReadObject(); err != nil {
			return nil, err
		}
	case 2:
		// null return
	case 0:
		// legacy inner code, decoded into data for 2.5.x compatibility
		// even though it may carry an exception encoding
		if resp.Data, err = hd.ReadObject(); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func readString(hd *hessian.Decoder) (string, error) {
	v, err := hd.ReadObject()
	if err != nil {
		return "", err
	}
	return stringValue(v)
}

func stringValue(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case nil:
		return "", nil
	}
	return "", errors.Errorf("protocol: expected string, got %T", v)
}

func readAttachments(hd *hessian.Decoder) (map[any]any, error) {
	v, err := hd.ReadObject()
	if err != nil {
		return nil, err
	}
	switch m := v.(type) {
	case map[any]any:
		return m, nil
	case nil:
		return map[any]any{}, nil
	}
	return nil, errors.Errorf("protocol: expected attachments map, got %T", v)
}

func listValues(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case *hessian.List:
		return l.Values
	case nil:
		return nil
	}
	return []any{v}
}

func binaryU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
