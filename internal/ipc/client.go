package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/topthumb/internal/runtimepath"
)

// Client handles IPC communication with one running preview
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the socket at socketPath
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// NewClientForPID creates a client for the preview process with the given pid
func NewClientForPID(pid int) (*Client, error) {
	socketPath, err := runtimepath.SocketPath(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewClient(socketPath), nil
}

// SocketPath returns the socket this client dials
func (c *Client) SocketPath() string {
	return c.socketPath
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to preview: %w (is it running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("preview error: %s", resp.Error)
	}

	return &resp, nil
}

// GetStatus retrieves the preview status
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetStatus})
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}

	return &status, nil
}

// ResetCrop restores the full tracked content
func (c *Client) ResetCrop() error {
	_, err := c.sendRequest(&Request{Command: CommandResetCrop})
	return err
}

// Crop applies a client-space crop rectangle
func (c *Client) Crop(crop CropPayload) error {
	payload, err := json.Marshal(crop)
	if err != nil {
		return fmt.Errorf("failed to marshal crop payload: %w", err)
	}

	_, err = c.sendRequest(&Request{
		Command: CommandCrop,
		Payload: payload,
	})
	return err
}

// Ping checks if the preview is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
