package env

import (
	"os"
	"path/filepath"
)

var Daemon bool = false
var ListenPort int = 0

// Version is stamped at build time via -ldflags "-X ssm-keeper/internal/env.Version=v1.2.3"
var Version string = "dev"

// (default: %USERPROFILE%/.ssm-keeper on Windows, $HOME/.ssm-keeper on Linux)
var KeeperDir string = GetKeeperDir()

/**
 * Get keeper directory path
 * @returns {string} Returns keeper directory path
 */
func GetKeeperDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".ssm-keeper")
}

/**
 * Get keeper sub directory, creating it on first use
 * @param {string} sub - Sub directory name, such as "logs" or "run"
 * @returns {string} Returns absolute sub directory path
 */
func SubDir(sub string) string {
	dir := filepath.Join(KeeperDir, sub)
	os.MkdirAll(dir, 0755)
	return dir
}

// SocketPath is where the daemon listens for local RPC
func SocketPath() string {
	return filepath.Join(SubDir("run"), "ssm-keeper.sock")
}

// StatePath holds the daemon run state, including its TCP fallback address
func StatePath() string {
	return filepath.Join(SubDir("run"), "state.json")
}
