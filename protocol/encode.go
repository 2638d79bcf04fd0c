package protocol

import (
	"dubbo-go/hessian"
	"dubbo-go/message"
)

// Encode frames msg as header plus body in one buffer, so the caller can
// hand the whole frame to a single write.
func Encode(msg message.Message) ([]byte, error) {
	switch m := msg.(type) {
	case *message.Request:
		return EncodeRequest(m)
	case *message.Response:
		return EncodeResponse(m)
	case *message.HeartbeatRequest:
		return EncodeHeartbeatRequest(m)
	case *message.HeartbeatResponse:
		return EncodeHeartbeatResponse(m)
	}
	return nil, &hessian.UnencodableError{Value: msg}
}

// EncodeRequest builds a request frame. The argument-type descriptor is
// derived from the runtime kinds of the arguments; each argument is encoded
// with its position as the class index, sharing one class-name table.
func EncodeRequest(req *message.Request) ([]byte, error) {
	desc, err := DescriptorOf(req.Args)
	if err != nil {
		return nil, err
	}
	enc := hessian.NewEncoder()
	serviceVersion := req.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = "1.0"
	}
	for _, s := range []string{req.DubboVersion, req.ServiceName, serviceVersion, req.MethodName, desc} {
		if err := enc.Write(s); err != nil {
			return nil, err
		}
	}
	for i, arg := range req.Args {
		if err := enc.WriteIndexed(arg, i); err != nil {
			return nil, err
		}
	}
	attachments := req.Attachments
	if attachments == nil {
		attachments = map[any]any{}
	}
	if err := enc.Write(attachments); err != nil {
		return nil, err
	}

	flag := byte(flagRequest | serializationHessian2)
	if req.TwoWay {
		flag |= flagTwoWay
	}
	return frame(flag, 0, req.ID, enc.Bytes()), nil
}

// EncodeResponse builds a response frame. A nil Error emits the inner status
// byte (0x92 for a null return, 0x91 otherwise) followed by the data; a
// non-nil Error emits just the error payload.
func EncodeResponse(resp *message.Response) ([]byte, error) {
	enc := hessian.NewEncoder()
	if resp.Error == nil {
		inner := int32(1)
		if resp.Data == nil {
			inner = 2
		}
		if err := enc.Write(inner); err != nil {
			return nil, err
		}
		if err := enc.Write(resp.Data); err != nil {
			return nil, err
		}
	} else {
		payload := resp.Error
		if e, ok := payload.(error); ok {
			payload = e.Error()
		}
		if err := enc.Write(payload); err != nil {
			return nil, err
		}
	}
	flag := byte(serializationHessian2)
	return frame(flag, resp.Status, resp.ID, enc.Bytes()), nil
}

// EncodeHeartbeatRequest builds a request event frame, body an encoded null.
func EncodeHeartbeatRequest(hb *message.HeartbeatRequest) ([]byte, error) {
	enc := hessian.NewEncoder()
	if err := enc.Write(hb.Data); err != nil {
		return nil, err
	}
	flag := byte(flagRequest | flagEvent | serializationHessian2)
	if hb.TwoWay {
		flag |= flagTwoWay
	}
	return frame(flag, 0, hb.ID, enc.Bytes()), nil
}

// EncodeHeartbeatResponse builds a response event frame, body an encoded null.
func EncodeHeartbeatResponse(hb *message.HeartbeatResponse) ([]byte, error) {
	enc := hessian.NewEncoder()
	if err := enc.Write(hb.Data); err != nil {
		return nil, err
	}
	flag := byte(flagEvent | serializationHessian2)
	if hb.TwoWay {
		flag |= flagTwoWay
	}
	return frame(flag, 0, hb.ID, enc.Bytes()), nil
}

func frame(flag, status byte, id int64, body []byte) []byte {
	buf := make([]byte, 0, HeaderLength+len(body))
	buf = append(buf, magicHigh, magicLow, flag, status)
	buf = append(buf, hessian.EncodeU64(uint64(id))...)
	buf = append(buf, hessian.EncodeI32(int32(len(body)))...)
	return append(buf, body...)
}
