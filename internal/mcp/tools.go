package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/topthumb/internal/ipc"
)

func (s *Server) handleListPreviews(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListPreviewsInput) (*mcpsdk.CallToolResult, ListPreviewsOutput, error) {
	instances, err := s.listInstances()
	if err != nil {
		return nil, ListPreviewsOutput{}, fmt.Errorf("failed to list previews: %w", err)
	}

	out := ListPreviewsOutput{Previews: make([]PreviewInfo, 0, len(instances))}
	for _, inst := range instances {
		info := PreviewInfo{PID: inst.PID, Socket: inst.Socket}
		status, err := s.dial(inst.Socket).GetStatus()
		if err != nil {
			info.Error = err.Error()
		} else {
			info.Running = true
			info.Title = status.Title
			info.Phase = status.Phase
		}
		out.Previews = append(out.Previews, info)
	}

	s.logger.Debug("list_previews", "count", len(out.Previews))
	return nil, out, nil
}

func (s *Server) handleGetPreviewStatus(_ context.Context, _ *mcpsdk.CallToolRequest, args GetPreviewStatusInput) (*mcpsdk.CallToolResult, PreviewStatusOutput, error) {
	client, err := s.resolve(args.PID)
	if err != nil {
		return nil, PreviewStatusOutput{}, err
	}
	return statusResult(client)
}

func (s *Server) handleResetCrop(_ context.Context, _ *mcpsdk.CallToolRequest, args ResetCropInput) (*mcpsdk.CallToolResult, PreviewStatusOutput, error) {
	client, err := s.resolve(args.PID)
	if err != nil {
		return nil, PreviewStatusOutput{}, err
	}
	if err := client.ResetCrop(); err != nil {
		return nil, PreviewStatusOutput{}, err
	}
	return statusResult(client)
}

func (s *Server) handleCropPreview(_ context.Context, _ *mcpsdk.CallToolRequest, args CropPreviewInput) (*mcpsdk.CallToolResult, PreviewStatusOutput, error) {
	if args.Right == args.Left || args.Bottom == args.Top {
		return nil, PreviewStatusOutput{}, fmt.Errorf("crop rectangle has zero area")
	}

	client, err := s.resolve(args.PID)
	if err != nil {
		return nil, PreviewStatusOutput{}, err
	}
	if err := client.Crop(ipc.CropPayload{
		Left:   args.Left,
		Top:    args.Top,
		Right:  args.Right,
		Bottom: args.Bottom,
	}); err != nil {
		return nil, PreviewStatusOutput{}, err
	}
	return statusResult(client)
}

func statusResult(client PreviewClient) (*mcpsdk.CallToolResult, PreviewStatusOutput, error) {
	status, err := client.GetStatus()
	if err != nil {
		return nil, PreviewStatusOutput{}, err
	}
	return nil, PreviewStatusOutput{Status: *status}, nil
}
