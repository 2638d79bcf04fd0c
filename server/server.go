// Package server implements the Dubbo provider side.
//
// Each accepted connection gets its own handler goroutine and its own
// heartbeat goroutine. Within a connection, requests are processed strictly
// in order, so responses leave in the order the peer sent requests and ids
// are echoed back unchanged. Writes from the handler path and the heartbeat
// path share a per-connection mutex so frames never interleave.
package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"dubbo-go/message"
	"dubbo-go/middleware"
	"dubbo-go/protocol"
	"dubbo-go/registry"
)

const defaultHeartbeatInterval = 60 * time.Second

// Handler serves one method: positional arguments in, a result or an error
// out. Returning *message.DubboError selects the response status; any other
// error becomes status 90.
type Handler func(args ...any) (any, error)

// Builtin handlers registrable as-is.
var (
	// Void does nothing and returns a null result.
	Void Handler = func(args ...any) (any, error) { return nil, nil }

	// EmptyOK returns an empty map.
	EmptyOK Handler = func(args ...any) (any, error) { return map[any]any{}, nil }
)

// Server is a Dubbo provider: a services registry plus a TCP accept loop.
// Register methods before Start; the registry is read without locking while
// serving.
type Server struct {
	host              string
	port              int
	app               string
	dubboVersion      string
	heartbeatInterval time.Duration

	services    map[string]map[string]Handler
	middlewares []middleware.Middleware
	handler     middleware.HandlerFunc

	listener net.Listener
	wg       sync.WaitGroup
	shutdown atomic.Bool
}

// NewServer creates a provider for the given port and application name.
func NewServer(port int, app string) *Server {
	return &Server{
		host:              registry.LocalIP(),
		port:              port,
		app:               app,
		dubboVersion:      "2.5.3",
		heartbeatInterval: defaultHeartbeatInterval,
		services:          make(map[string]map[string]Handler),
	}
}

// AddMethod registers a handler for service.method.
func (s *Server) AddMethod(service, method string, h Handler) {
	methods, ok := s.services[service]
	if !ok {
		methods = make(map[string]Handler)
		s.services[service] = methods
	}
	methods[method] = h
}

// Use appends a middleware; middlewares run in registration order.
func (s *Server) Use(mw middleware.Middleware) {
	s.middlewares = append(s.middlewares, mw)
}

// Register publishes every registered service through the path creator.
// Empty version and revision default to 1.0.0; group is optional.
func (s *Server) Register(pc registry.PathCreator, version, revision, group string) error {
	for service, methods := range s.services {
		names := make([]string, 0, len(methods))
		for name := range methods {
			names = append(names, name)
		}
		p := registry.Provider{
			Host:         s.host,
			Port:         s.port,
			Service:      service,
			Methods:      names,
			Application:  s.app,
			DubboVersion: s.dubboVersion,
			Version:      version,
			Revision:     revision,
			Group:        group,
		}
		log.Printf("register service %q, methods %v", service, names)
		if err := registry.Register(pc, p); err != nil {
			return err
		}
	}
	return nil
}

// Start listens and serves in the background. The middleware chain is built
// once here, not per request.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return errors.Wrap(err, "server: listen")
	}
	s.listener = listener
	s.handler = middleware.Chain(s.middlewares...)(s.dispatch)
	go s.acceptLoop()
	return nil
}

// Shutdown stops accepting, closes the listener and waits up to timeout for
// in-flight requests to drain.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.shutdown.Store(true)
	if s.listener != nil {
		s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.New("server: timeout waiting for in-flight requests")
	}
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.shutdown.Load() {
				log.Printf("accept error: %v", err)
			}
			return
		}
		go s.handleConn(conn)
	}
}

// handleConn runs one connection to EOF. Requests are served sequentially;
// the heartbeat goroutine shares the write mutex.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	writeMu := &sync.Mutex{}
	hbDone := make(chan struct{})
	defer close(hbDone)
	go s.heartbeatLoop(conn, writeMu, hbDone)

	dec := protocol.NewDecoder(conn)
	for {
		msg, err := dec.Decode()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("connection error: %v", err)
			}
			return
		}
		switch m := msg.(type) {
		case *message.HeartbeatRequest:
			frame, err := protocol.EncodeHeartbeatResponse(&message.HeartbeatResponse{ID: m.ID})
			if err == nil {
				err = write(conn, writeMu, frame)
			}
			if err != nil {
				log.Printf("heartbeat reply failed: %v", err)
				return
			}
		case *message.HeartbeatResponse:
			// answer to our own probe
		case *message.Request:
			s.wg.Add(1)
			resp := s.handler(context.Background(), m)
			s.wg.Done()
			if resp == nil {
				continue // dropped, at-most-once for unknown methods
			}
			frame, err := protocol.EncodeResponse(resp)
			if err != nil {
				log.Printf("failed to encode response: %v", err)
				continue
			}
			if err := write(conn, writeMu, frame); err != nil {
				log.Printf("failed to write response: %v", err)
				return
			}
		default:
			log.Printf("skip unexpected message %T", msg)
		}
	}
}

// dispatch is the innermost handler: look the method up, invoke it, map the
// outcome to a response. An unknown method is logged and dropped without a
// reply.
func (s *Server) dispatch(_ context.Context, req *message.Request) *message.Response {
	handler := s.services[req.ServiceName][req.MethodName]
	if handler == nil {
		log.Printf("no handler for %s.%s", req.ServiceName, req.MethodName)
		return nil
	}
	data, err := invoke(handler, req.Args)
	if err != nil {
		var dubboErr *message.DubboError
		if errors.As(err, &dubboErr) {
			return &message.Response{ID: req.ID, Status: dubboErr.Status, Error: dubboErr.Message}
		}
		return &message.Response{ID: req.ID, Status: message.StatusUnknownError, Error: err.Error()}
	}
	return &message.Response{ID: req.ID, Status: message.StatusOK, Data: data}
}

// invoke shields the connection loop from panicking handlers.
func invoke(h Handler, args []any) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("%v", r)
		}
	}()
	return h(args...)
}

// heartbeatLoop probes the consumer with two-way heartbeats until the
// connection goes away.
func (s *Server) heartbeatLoop(conn net.Conn, writeMu *sync.Mutex, done <-chan struct{}) {
	var id int64
	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			id++
			frame, err := protocol.EncodeHeartbeatRequest(&message.HeartbeatRequest{ID: id, TwoWay: true})
			if err == nil {
				err = write(conn, writeMu, frame)
			}
			if err != nil {
				log.Printf("got write error, stop heartbeat loop")
				return
			}
		case <-done:
			return
		}
	}
}

func write(conn net.Conn, mu *sync.Mutex, frame []byte) error {
	mu.Lock()
	defer mu.Unlock()
	_, err := conn.Write(frame)
	return err
}
