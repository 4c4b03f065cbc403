package rpc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"

	"ssm-keeper/internal/logger"
)

// httpClient HTTP客户端实现
type httpClient struct {
	config    *HTTPConfig
	client    *http.Client
	transport *http.Transport
	connected bool
	mu        sync.Mutex
}

/**
 * Create new HTTP client talking to the keeper daemon
 * @param {HTTPConfig} config - HTTP client configuration, nil for defaults
 * @returns {HTTPClient} HTTP client interface
 * @description
 * - Prefers the daemon unix socket, falls back to its TCP address
 * - Initializes the transport lazily; the first request connects
 * @example
 * client := rpc.NewHTTPClient(nil)
 * defer client.Close()
 * resp, err := client.Get("/ssm-keeper/api/v1/sessions", nil)
 */
func NewHTTPClient(config *HTTPConfig) HTTPClient {
	if config == nil {
		config = DefaultHTTPConfig()
	}

	client := &httpClient{
		config: config,
	}

	client.transport = &http.Transport{}
	client.client = &http.Client{
		Transport: client.transport,
		Timeout:   config.Timeout,
	}

	return client
}

/**
 * Send GET request to the daemon
 * @param {string} path - API endpoint path
 * @param {map[string]interface{}} params - Query parameters
 * @returns {*HTTPResponse} Response with status, headers and body
 * @returns {error} Error if request fails
 */
func (c *httpClient) Get(path string, params map[string]interface{}) (*HTTPResponse, error) {
	return c.send(http.MethodGet, path, params, nil)
}

/**
 * Send POST request to the daemon
 * @param {string} path - API endpoint path
 * @param {interface{}} data - Request body, serialized as JSON
 * @returns {*HTTPResponse} Response with status, headers and body
 * @returns {error} Error if request fails
 */
func (c *httpClient) Post(path string, data interface{}) (*HTTPResponse, error) {
	return c.send(http.MethodPost, path, nil, data)
}

// Put 发送PUT请求
func (c *httpClient) Put(path string, data interface{}) (*HTTPResponse, error) {
	return c.send(http.MethodPut, path, nil, data)
}

// Patch 发送PATCH请求
func (c *httpClient) Patch(path string, data interface{}) (*HTTPResponse, error) {
	return c.send(http.MethodPatch, path, nil, data)
}

/**
 * Send DELETE request to the daemon
 * @param {string} path - API endpoint path
 * @param {map[string]interface{}} params - Query parameters
 * @returns {*HTTPResponse} Response with status, headers and body
 * @returns {error} Error if request fails
 */
func (c *httpClient) Delete(path string, params map[string]interface{}) (*HTTPResponse, error) {
	return c.send(http.MethodDelete, path, params, nil)
}

// send 组装并发出一次请求，响应统一反序列化
func (c *httpClient) send(method, path string, params map[string]interface{}, data interface{}) (*HTTPResponse, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	url, err := buildURL(c.config.BaseURL, path, params)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}

	body, err := serializeData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize data: %w", err)
	}

	logger.Debugf("Sending %s request to %s", method, url)

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	httpResp, err := deserializeResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize response: %w", err)
	}
	return httpResp, nil
}

/**
 * Close HTTP client connection
 * @returns {error} Error if closing fails
 * @description
 * - Closes idle connections held by the transport
 * - Resets connection state
 */
func (c *httpClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		c.client.CloseIdleConnections()
	}
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}

	c.connected = false
	logger.Debugf("HTTP client connection closed")
	return nil
}

/**
 * Ensure the transport is wired to the daemon endpoint
 * @returns {error} Error if the endpoint is unreachable
 * @description
 * - unix模式先核对socket文件存在，再把拨号器指向socket
 * - tcp模式直接用BaseURL里的地址，默认拨号器即可
 */
func (c *httpClient) ensureConnected() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	if c.config.Network == "unix" {
		if _, err := os.Stat(c.config.Address); os.IsNotExist(err) {
			return fmt.Errorf("socket file not found at %s", c.config.Address)
		}
		socketPath := c.config.Address
		c.transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return net.Dial("unix", socketPath)
		}
	}

	c.connected = true
	logger.Debugf("Connected to ssm-keeper server via %s (%s)", c.config.Network, c.config.Address)
	return nil
}
