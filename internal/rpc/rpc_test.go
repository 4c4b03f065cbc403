package rpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ssm-keeper/internal/config"
	"ssm-keeper/internal/env"
	"ssm-keeper/internal/logger"
)

/**
 * Initialize test environment
 * @description
 * - Routes log output to the console so test failures carry context
 * - Called automatically when test package is loaded
 */
func init() {
	logger.InitLogger(&config.LogConfig{Level: "error", Path: "console"})
}

// 直连模式的测试客户端，绕开unix socket探测
func newTestClient(baseURL string) *httpClient {
	cfg := DefaultHTTPConfig()
	cfg.Network = "tcp"
	cfg.BaseURL = baseURL
	cfg.Timeout = 5 * time.Second

	return &httpClient{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		transport: &http.Transport{},
		connected: true,
	}
}

func decodeBody(t *testing.T, resp *HTTPResponse) map[string]interface{} {
	t.Helper()
	body := map[string]interface{}{}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	return body
}

/**
 * Test HTTP client with mock server functionality
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - Creates mock HTTP server with different endpoint handlers
 * - Supports GET, POST, PUT, PATCH, DELETE HTTP methods
 * - Tests various API endpoints with different response codes
 * - Validates response status codes and body content
 * - Uses custom HTTP client for testing without Unix socket
 * @example
 * // Run this test with: go test -v -run TestHTTPClientWithMockServer
 */
func TestHTTPClientWithMockServer(t *testing.T) {
	// 创建模拟HTTP服务器
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 根据请求方法和路径返回不同的响应
		switch r.Method {
		case "GET":
			if r.URL.Path == "/api/test" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"message": "test response"}`))
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
		case "POST":
			if r.URL.Path == "/api/create" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"id": 123, "status": "created"}`))
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
		case "PUT":
			if r.URL.Path == "/api/update/123" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"id": 123, "updated": true}`))
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
		case "PATCH":
			if r.URL.Path == "/api/patch/123" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"id": 123, "patched": true}`))
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
		case "DELETE":
			if r.URL.Path == "/api/delete/123" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"deleted": true}`))
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()

	// 测试GET请求
	resp, err := client.Get("/api/test", nil)
	if err != nil {
		t.Fatalf("Failed to send GET request: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}

	if body := decodeBody(t, resp); body["message"] != "test response" {
		t.Errorf("Expected message 'test response', got %v", body["message"])
	}

	// 测试POST请求
	postData := map[string]interface{}{
		"name":  "test item",
		"value": 42,
	}
	resp, err = client.Post("/api/create", postData)
	if err != nil {
		t.Fatalf("Failed to send POST request: %v", err)
	}

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("Expected status code %d, got %d", http.StatusCreated, resp.StatusCode)
	}

	if body := decodeBody(t, resp); body["id"] != float64(123) {
		t.Errorf("Expected id 123, got %v", body["id"])
	}

	// 测试PUT请求
	putData := map[string]interface{}{
		"name": "updated item",
	}
	resp, err = client.Put("/api/update/123", putData)
	if err != nil {
		t.Fatalf("Failed to send PUT request: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}

	// 测试PATCH请求
	patchData := map[string]interface{}{
		"value": 100,
	}
	resp, err = client.Patch("/api/patch/123", patchData)
	if err != nil {
		t.Fatalf("Failed to send PATCH request: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}

	// 测试DELETE请求
	resp, err = client.Delete("/api/delete/123", nil)
	if err != nil {
		t.Fatalf("Failed to send DELETE request: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}

	if body := decodeBody(t, resp); body["deleted"] != true {
		t.Errorf("Expected deleted to be true")
	}
}

/**
 * Test HTTP client with query parameters functionality
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - Creates mock HTTP server that handles query parameters
 * - Server validates query parameters and returns them in response
 * - Tests GET request with query parameters using custom HTTP client
 * - Validates response status code and query parameter values
 * - Ensures proper parameter passing and response parsing
 * @example
 * // Run this test with: go test -v -run TestHTTPClientWithQueryParams
 */
func TestHTTPClientWithQueryParams(t *testing.T) {
	// 创建模拟HTTP服务器
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 检查查询参数
		if r.URL.Path == "/api/search" {
			query := r.URL.Query()
			instance := query.Get("instance")
			port := query.Get("localPort")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"query_instance": "` + instance + `", "query_port": "` + port + `"}`))
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()

	// 测试带查询参数的GET请求
	params := map[string]interface{}{
		"instance":  "i-0abc123def456",
		"localPort": 5432,
	}
	resp, err := client.Get("/api/search", params)
	if err != nil {
		t.Fatalf("Failed to send GET request with params: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["query_instance"] != "i-0abc123def456" {
		t.Errorf("Expected query_instance 'i-0abc123def456', got %v", body["query_instance"])
	}

	if body["query_port"] != "5432" {
		t.Errorf("Expected query_port '5432', got %v", body["query_port"])
	}
}

/**
 * Test error response parsing functionality
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - Creates mock HTTP server returning a structured error response
 * - Validates that the error field is extracted from the body
 * @example
 * // Run this test with: go test -v -run TestHTTPClientErrorResponse
 */
func TestHTTPClientErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code": "session_not_found", "error": "no session matches 'i-missing'"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()

	resp, err := client.Get("/ssm-keeper/api/v1/sessions", nil)
	if err != nil {
		t.Fatalf("Failed to send GET request: %v", err)
	}

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, resp.StatusCode)
	}

	if resp.Error != "no session matches 'i-missing'" {
		t.Errorf("Expected parsed error message, got %q", resp.Error)
	}
}

/**
 * Test default configuration fallback behavior
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - Redirects the keeper directory into a temporary directory
 * - Without a socket file or state file the config falls back to the default TCP address
 * - With a state file the config picks up the recorded listen port
 * @example
 * // Run this test with: go test -v -run TestDefaultHTTPConfigFallback
 */
func TestDefaultHTTPConfigFallback(t *testing.T) {
	oldKeeperDir := env.KeeperDir
	env.KeeperDir = t.TempDir()
	defer func() {
		env.KeeperDir = oldKeeperDir
	}()

	// 既没有socket也没有state文件，落到默认TCP地址
	cfg := DefaultHTTPConfig()
	if cfg.Network != "tcp" {
		t.Errorf("Expected network tcp, got %s", cfg.Network)
	}
	if cfg.Address != "127.0.0.1:8470" {
		t.Errorf("Expected default address 127.0.0.1:8470, got %s", cfg.Address)
	}
	if cfg.BaseURL != "http://127.0.0.1:8470" {
		t.Errorf("Expected base URL http://127.0.0.1:8470, got %s", cfg.BaseURL)
	}

	// 写入state文件后应取其中记录的端口
	state := map[string]interface{}{
		"pid":        os.Getpid(),
		"listenPort": 9001,
	}
	data, _ := json.Marshal(state)
	if err := os.WriteFile(env.StatePath(), data, 0644); err != nil {
		t.Fatalf("Failed to write state file: %v", err)
	}

	cfg = DefaultHTTPConfig()
	if cfg.Address != "127.0.0.1:9001" {
		t.Errorf("Expected address from state file 127.0.0.1:9001, got %s", cfg.Address)
	}
}

/**
 * Test socket path generation functionality
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - Redirects the keeper directory into a temporary directory
 * - Validates socket and state paths land under the run directory
 * @example
 * // Run this test with: go test -v -run TestRunFilePaths
 */
func TestRunFilePaths(t *testing.T) {
	oldKeeperDir := env.KeeperDir
	tmpDir := t.TempDir()
	env.KeeperDir = tmpDir
	defer func() {
		env.KeeperDir = oldKeeperDir
	}()

	socketPath := env.SocketPath()
	expectedPath := filepath.Join(tmpDir, "run", "ssm-keeper.sock")
	if socketPath != expectedPath {
		t.Errorf("Expected socket path %s, got %s", expectedPath, socketPath)
	}

	statePath := env.StatePath()
	expectedPath = filepath.Join(tmpDir, "run", "state.json")
	if statePath != expectedPath {
		t.Errorf("Expected state path %s, got %s", expectedPath, statePath)
	}
}

/**
 * Benchmark HTTP client performance
 * @param {*testing.B} b - Benchmark testing framework instance
 * @description
 * - Creates mock HTTP server for benchmark testing
 * - Sets up HTTP client with server URL and timeout
 * - Performs warm-up requests before benchmarking
 * - Runs parallel benchmark tests to measure performance
 * - Measures HTTP request throughput and response times
 * @example
 * // Run this benchmark with: go test -bench=BenchmarkHTTPClient -benchmem
 */
func BenchmarkHTTPClient(b *testing.B) {
	// 创建模拟HTTP服务器
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message": "benchmark response"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	// 预热
	for i := 0; i < 100; i++ {
		client.Get("/api/benchmark", nil)
	}

	// 性能测试
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, err := client.Get("/api/benchmark", nil)
			if err != nil {
				b.Fatalf("HTTP request failed: %v", err)
			}
		}
	})
}
