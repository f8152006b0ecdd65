package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/topthumb/internal/geometry"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus CommandType = "GET_STATUS"
	CommandResetCrop CommandType = "RESET_CROP"
	CommandCrop      CommandType = "CROP"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// RectData is the wire form of an edge-based rectangle.
type RectData struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// NewRectData converts a geometry rectangle to its wire form.
func NewRectData(r geometry.Rect) RectData {
	return RectData{Left: r.Left, Top: r.Top, Right: r.Right, Bottom: r.Bottom}
}

// Rect converts back to a geometry rectangle.
func (r RectData) Rect() geometry.Rect {
	return geometry.Rect{Left: r.Left, Top: r.Top, Right: r.Right, Bottom: r.Bottom}
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	PID           int      `json:"pid"`
	Title         string   `json:"title"`
	Phase         string   `json:"phase"`
	PreviewWindow uint32   `json:"preview_window"`
	TrackedWindow uint32   `json:"tracked_window"`
	Source        RectData `json:"source"`
	Destination   RectData `json:"destination"`
	Frame         RectData `json:"frame"`
	UptimeSeconds int64    `json:"uptime_seconds"`
}

// CropPayload represents the payload for the CROP command. Coordinates are in
// the preview window's client space, as if dragged with the pointer.
type CropPayload struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Rect returns the payload as a geometry rectangle.
func (p CropPayload) Rect() geometry.Rect {
	return geometry.Rect{Left: p.Left, Top: p.Top, Right: p.Right, Bottom: p.Bottom}
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.Command == "" {
		return nil, fmt.Errorf("failed to parse request: missing command")
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
