package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests the daemon to resume miner supervision.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("OreMiner.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop miner supervision.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("OreMiner.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("OreMiner.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MinerRestart forces an immediate miner relaunch.
func (c *Client) MinerRestart() (*MinerRestartResponse, error) {
	var resp MinerRestartResponse
	if err := c.client.Call("OreMiner.MinerRestart", MinerRestartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MetricsSummary retrieves aggregate metrics.
func (c *Client) MetricsSummary() (*MetricsSummaryResponse, error) {
	var resp MetricsSummaryResponse
	if err := c.client.Call("OreMiner.MetricsSummary", MetricsSummaryRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MetricsRecent retrieves the most recent samples and submissions.
func (c *Client) MetricsRecent(limit int) (*MetricsRecentResponse, error) {
	var resp MetricsRecentResponse
	if err := c.client.Call("OreMiner.MetricsRecent", MetricsRecentRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("OreMiner.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("OreMiner.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
