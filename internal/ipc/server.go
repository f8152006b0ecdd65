package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"
)

// Handler executes IPC commands against the running preview. The server
// calls it from connection goroutines; implementations serialize onto
// whatever goroutine owns the preview state.
type Handler interface {
	Status() (*StatusData, error)
	ResetCrop() error
	Crop(crop CropPayload) error
}

// Server handles IPC requests from clients. It implements suture.Service.
type Server struct {
	socketPath string
	handler    Handler
	logger     *slog.Logger
	startTime  time.Time
}

// NewServer creates a new IPC server listening on socketPath once served
func NewServer(socketPath string, handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		logger:     logger,
		startTime:  time.Now(),
	}
}

func (s *Server) String() string {
	return "ipc-server"
}

// SocketPath returns the path the server listens on
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Serve listens until ctx is cancelled, then removes the socket.
func (s *Server) Serve(ctx context.Context) error {
	// Remove a stale socket left by a crashed process with our pid.
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	defer os.Remove(s.socketPath)

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.writeResponse(conn, NewErrorResponse(fmt.Sprintf("Invalid request: %v", err)))
		return
	}

	s.writeResponse(conn, s.handleCommand(req))
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandResetCrop:
		return s.handleResetCrop()
	case CommandCrop:
		return s.handleCrop(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleGetStatus() *Response {
	status, err := s.handler.Status()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get status: %v", err))
	}
	status.UptimeSeconds = int64(time.Since(s.startTime).Seconds())

	resp, err := NewOKResponse(status)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) handleResetCrop() *Response {
	s.logger.Debug("IPC: received RESET_CROP")
	if err := s.handler.ResetCrop(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reset crop: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleCrop(payload json.RawMessage) *Response {
	var crop CropPayload
	if err := json.Unmarshal(payload, &crop); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid crop payload: %v", err))
	}

	s.logger.Debug("IPC: received CROP", "rect", crop.Rect().String())
	if err := s.handler.Crop(crop); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to crop: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) writeResponse(conn net.Conn, resp *Response) {
	data, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal response", "error", err)
		return
	}

	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}
