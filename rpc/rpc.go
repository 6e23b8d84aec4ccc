package rpc

import (
	"errors"
	"io"
	"net"
	"net/rpc"

	"github.com/wfunc/jumpgame/logger"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer creates a new RPC server and registers the given receivers.
func NewServer(addr string, receivers ...interface{}) (*Server, error) {
	s := &Server{address: addr, rpc: rpc.NewServer()}
	for _, rcvr := range receivers {
		if err := s.rpc.Register(rcvr); err != nil {
			return nil, err
		}
	}
	if addr == "" {
		return s, nil
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s.listener = listener
	return s, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	if s.listener == nil {
		return
	}
	logger.L().Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if errors.Is(err, net.ErrClosed) {
				logger.L().Info("RPC server listener closed.")
				return
			}
			logger.L().Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// ServeConn serves a single connection until the client hangs up.
func (s *Server) ServeConn(conn io.ReadWriteCloser) {
	s.rpc.ServeConn(conn)
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.L().Info("Stopping RPC server.")
		s.listener.Close()
	}
}
