package utils

import (
	"reflect"
	"testing"
)

type tunnelCommandData struct {
	InstanceID   string
	LocalPort    int
	RemotePort   int
	DocumentName string
}

/**
 * Test command template expansion
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - Every argument template expands against the data struct
 * - The JSON parameters payload must come out byte exact
 * @example
 * // Run this test with: go test -v -run TestGetCommandLine
 */
func TestGetCommandLine(t *testing.T) {
	args := []string{
		"ssm", "start-session",
		"--target", "{{.InstanceID}}",
		"--document-name", "{{.DocumentName}}",
		"--parameters", `{"localPortNumber":["{{.LocalPort}}"],"portNumber":["{{.RemotePort}}"]}`,
	}
	data := tunnelCommandData{
		InstanceID:   "i-0abc123def456",
		LocalPort:    15432,
		RemotePort:   5432,
		DocumentName: "AWS-StartPortForwardingSession",
	}

	command, expanded, err := GetCommandLine("aws", args, data)
	if err != nil {
		t.Fatalf("GetCommandLine failed: %v", err)
	}
	if command != "aws" {
		t.Errorf("Expected command 'aws', got '%s'", command)
	}
	want := []string{
		"ssm", "start-session",
		"--target", "i-0abc123def456",
		"--document-name", "AWS-StartPortForwardingSession",
		"--parameters", `{"localPortNumber":["15432"],"portNumber":["5432"]}`,
	}
	if !reflect.DeepEqual(expanded, want) {
		t.Errorf("Unexpected expansion:\n got: %q\nwant: %q", expanded, want)
	}
}

func TestGetCommandLineBadTemplate(t *testing.T) {
	// 模板语法错误
	_, _, err := GetCommandLine("aws", []string{"{{.Broken"}, tunnelCommandData{})
	if err == nil {
		t.Error("Expected a parse error for a broken template")
	}

	// 引用了数据里不存在的字段
	_, _, err = GetCommandLine("aws", []string{"{{.Missing}}"}, tunnelCommandData{})
	if err == nil {
		t.Error("Expected an execution error for an unknown field")
	}
}
