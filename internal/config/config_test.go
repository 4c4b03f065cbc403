package config

import (
	"path/filepath"
	"testing"
	"time"

	"ssm-keeper/internal/env"
)

/**
 * Test built-in configuration defaults
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - A zero configuration is filled with the documented defaults
 * - Session timeouts and the aws invocation template must be present
 * @example
 * // Run this test with: go test -v -run TestCollectConfigDefaults
 */
func TestCollectConfigDefaults(t *testing.T) {
	cfg := collectConfig(&AppConfig{})

	if cfg.Server.Address != "127.0.0.1:8470" {
		t.Errorf("Unexpected default address: %s", cfg.Server.Address)
	}
	if cfg.Server.Mode != "release" {
		t.Errorf("Unexpected default mode: %s", cfg.Server.Mode)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Unexpected default log level: %s", cfg.Log.Level)
	}

	// 目录都挂在keeper主目录下
	if cfg.Directory.Logs != filepath.Join(env.KeeperDir, "logs") {
		t.Errorf("Unexpected logs directory: %s", cfg.Directory.Logs)
	}
	if cfg.Directory.Cache != filepath.Join(env.KeeperDir, "cache") {
		t.Errorf("Unexpected cache directory: %s", cfg.Directory.Cache)
	}
	if cfg.Directory.Run != filepath.Join(env.KeeperDir, "run") {
		t.Errorf("Unexpected run directory: %s", cfg.Directory.Run)
	}

	if cfg.Session.Command != "aws" {
		t.Errorf("Unexpected session command: %s", cfg.Session.Command)
	}
	if cfg.Session.DocumentName != "AWS-StartPortForwardingSession" {
		t.Errorf("Unexpected document name: %s", cfg.Session.DocumentName)
	}
	if cfg.Session.ReadyMarker != "Starting session with SessionId:" {
		t.Errorf("Unexpected ready marker: %q", cfg.Session.ReadyMarker)
	}
	if len(cfg.Session.Args) == 0 {
		t.Error("Expected a default argument template")
	}

	// 启动与终止的时间参数
	if cfg.Session.LaunchTimeout != 30*time.Second {
		t.Errorf("Unexpected launch timeout: %s", cfg.Session.LaunchTimeout)
	}
	if cfg.Session.SettleDelay != 500*time.Millisecond {
		t.Errorf("Unexpected settle delay: %s", cfg.Session.SettleDelay)
	}
	if cfg.Session.GracefulTimeout != 5*time.Second {
		t.Errorf("Unexpected graceful timeout: %s", cfg.Session.GracefulTimeout)
	}
	if cfg.Session.KillTimeout != 3*time.Second {
		t.Errorf("Unexpected kill timeout: %s", cfg.Session.KillTimeout)
	}
	if cfg.Session.PollInterval != 100*time.Millisecond {
		t.Errorf("Unexpected poll interval: %s", cfg.Session.PollInterval)
	}

	// 孤儿扫描特征：aws发起的隧道和它拉起的插件进程
	if len(cfg.Orphan.Patterns) != 2 {
		t.Fatalf("Expected 2 default orphan patterns, got %d", len(cfg.Orphan.Patterns))
	}
	if cfg.Orphan.Patterns[0].Executable != "aws" || cfg.Orphan.Patterns[0].Contains != "ssm start-session" {
		t.Errorf("Unexpected first orphan pattern: %+v", cfg.Orphan.Patterns[0])
	}
	if cfg.Orphan.Patterns[1].Executable != "session-manager-plugin" {
		t.Errorf("Unexpected second orphan pattern: %+v", cfg.Orphan.Patterns[1])
	}
}

func TestCollectConfigKeepsExplicitValues(t *testing.T) {
	cfg := &AppConfig{}
	cfg.Server.Address = "0.0.0.0:9999"
	cfg.Session.Command = "/usr/local/bin/aws"
	cfg.Session.LaunchTimeout = 7 * time.Second
	collectConfig(cfg)

	if cfg.Server.Address != "0.0.0.0:9999" {
		t.Errorf("Explicit address was overwritten: %s", cfg.Server.Address)
	}
	if cfg.Session.Command != "/usr/local/bin/aws" {
		t.Errorf("Explicit command was overwritten: %s", cfg.Session.Command)
	}
	if cfg.Session.LaunchTimeout != 7*time.Second {
		t.Errorf("Explicit launch timeout was overwritten: %s", cfg.Session.LaunchTimeout)
	}
	// 没显式配置的字段照常补默认值
	if cfg.Session.DocumentName != "AWS-StartPortForwardingSession" {
		t.Errorf("Expected the default document name, got: %s", cfg.Session.DocumentName)
	}
}

/**
 * Test logical profile resolution
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - Configured names resolve to their aws profile and region
 * - The empty name selects the aws default credentials
 * - Unconfigured names pass through as the literal aws profile
 * @example
 * // Run this test with: go test -v -run TestResolveProfile
 */
func TestResolveProfile(t *testing.T) {
	saved := Config.Profiles
	Config.Profiles = []ProfileConfig{
		{Name: "prod", AwsProfile: "prod-admin", Region: "eu-west-1"},
		{Name: "dev", AwsProfile: "dev-readonly"},
	}
	defer func() { Config.Profiles = saved }()

	profile, region := ResolveProfile("prod")
	if profile != "prod-admin" || region != "eu-west-1" {
		t.Errorf("ResolveProfile(prod) = (%s, %s)", profile, region)
	}

	profile, region = ResolveProfile("dev")
	if profile != "dev-readonly" || region != "" {
		t.Errorf("ResolveProfile(dev) = (%s, %s)", profile, region)
	}

	// 空名字用aws默认凭证，不传--profile
	profile, region = ResolveProfile("")
	if profile != "" || region != "" {
		t.Errorf("ResolveProfile(\"\") = (%s, %s)", profile, region)
	}

	// 没配置的名字按字面当aws profile用，区域交给CLI自己决定
	profile, region = ResolveProfile("staging")
	if profile != "staging" || region != "" {
		t.Errorf("ResolveProfile(staging) = (%s, %s)", profile, region)
	}
}
