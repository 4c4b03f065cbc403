package models

import (
	"time"
)

type EnvConfig struct {
	Daemon     bool   `json:"daemon"`
	ListenPort int    `json:"listenPort"`
	Version    string `json:"version"`
	KeeperDir  string `json:"keeperDir"`
}

// ServerState is written to <keeper>/run/state.json when the daemon comes
// up. CLI invocations read it to locate the TCP endpoint when the unix
// socket is unavailable.
type ServerState struct {
	Pid        int       `json:"pid"`
	StartTime  time.Time `json:"startTime"`
	ListenPort int       `json:"listenPort"`
	SocketPath string    `json:"socketPath"`
	Env        EnvConfig `json:"env"`
}
