package mcp

import "github.com/1broseidon/topthumb/internal/ipc"

// ListPreviewsInput is the input for the list_previews tool.
type ListPreviewsInput struct{}

// PreviewInfo describes one discovered preview process.
type PreviewInfo struct {
	PID     int    `json:"pid"`
	Socket  string `json:"socket"`
	Running bool   `json:"running"`
	Title   string `json:"title,omitempty"`
	Phase   string `json:"phase,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ListPreviewsOutput is the output for the list_previews tool.
type ListPreviewsOutput struct {
	Previews []PreviewInfo `json:"previews"`
}

// GetPreviewStatusInput is the input for the get_preview_status tool.
type GetPreviewStatusInput struct {
	PID int `json:"pid,omitempty" jsonschema:"Process id of the preview (default: the only running preview)"`
}

// PreviewStatusOutput is the output of the status, reset and crop tools.
type PreviewStatusOutput struct {
	Status ipc.StatusData `json:"status"`
}

// ResetCropInput is the input for the reset_crop tool.
type ResetCropInput struct {
	PID int `json:"pid,omitempty" jsonschema:"Process id of the preview (default: the only running preview)"`
}

// CropPreviewInput is the input for the crop_preview tool.
type CropPreviewInput struct {
	PID    int `json:"pid,omitempty" jsonschema:"Process id of the preview (default: the only running preview)"`
	Left   int `json:"left" jsonschema:"Left edge in preview window client pixels"`
	Top    int `json:"top" jsonschema:"Top edge in preview window client pixels"`
	Right  int `json:"right" jsonschema:"Right edge in preview window client pixels"`
	Bottom int `json:"bottom" jsonschema:"Bottom edge in preview window client pixels"`
}
