package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/topthumb/internal/ipc"
	"github.com/1broseidon/topthumb/internal/runtimepath"
)

const (
	ServerName    = "topthumb"
	ServerVersion = "0.1.0"
)

// PreviewClient is the IPC surface the tools use.
type PreviewClient interface {
	GetStatus() (*ipc.StatusData, error)
	ResetCrop() error
	Crop(crop ipc.CropPayload) error
}

// Server is the MCP server exposing running previews to agents.
type Server struct {
	mcpServer *mcpsdk.Server
	logger    *slog.Logger

	// Discovery hooks (primarily for tests).
	listInstances func() ([]runtimepath.Instance, error)
	dial          func(socketPath string) PreviewClient
}

// NewServer creates a new MCP server that talks to previews over IPC.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		logger:        logger,
		listInstances: runtimepath.ListSockets,
		dial: func(socketPath string) PreviewClient {
			return ipc.NewClient(socketPath)
		},
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_previews",
		Description: "List running topthumb previews with the window each one mirrors and its crop phase. Previews whose socket does not answer are reported with running=false.",
	}, s.handleListPreviews)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_preview_status",
		Description: "Get the crop state of a preview: phase (idle, in_progress, completed), the source rectangle in tracked window pixels, the destination rectangle in preview pixels and the tracked window's frame on screen.",
	}, s.handleGetPreviewStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reset_crop",
		Description: "Restore the full tracked window in a preview after a crop. Does nothing when no crop is applied.",
	}, s.handleResetCrop)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "crop_preview",
		Description: "Crop a preview to a rectangle given in preview window client pixels, exactly as if it had been dragged with the mouse. Only allowed when no crop is applied; call reset_crop first otherwise.",
	}, s.handleCropPreview)
}

// resolve picks the preview addressed by pid. Zero means the only running
// preview.
func (s *Server) resolve(pid int) (PreviewClient, error) {
	if pid > 0 {
		socketPath, err := runtimepath.SocketPath(pid)
		if err != nil {
			return nil, err
		}
		for _, inst := range s.instances() {
			if inst.PID == pid {
				socketPath = inst.Socket
				break
			}
		}
		return s.dial(socketPath), nil
	}

	var running []PreviewClient
	for _, inst := range s.instances() {
		client := s.dial(inst.Socket)
		if _, err := client.GetStatus(); err == nil {
			running = append(running, client)
		}
	}

	switch len(running) {
	case 0:
		return nil, fmt.Errorf("no running previews found")
	case 1:
		return running[0], nil
	default:
		return nil, fmt.Errorf("%d previews are running; pass pid to pick one", len(running))
	}
}

func (s *Server) instances() []runtimepath.Instance {
	instances, err := s.listInstances()
	if err != nil {
		s.logger.Warn("failed to list previews", "error", err)
		return nil
	}
	return instances
}
