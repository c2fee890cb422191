// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package detect

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// mcpConfigFiles are the project-level MCP configuration files, in the order
// they are inspected.
var mcpConfigFiles = []string{".mcp.json", "mcp.json", "mcp.json.example"}

// commandRuntimes maps MCP server launch commands to the runtime they imply.
var commandRuntimes = map[string]Runtime{
	"uvx":     RuntimePython,
	"pipx":    RuntimePython,
	"python":  RuntimePython,
	"python3": RuntimePython,
	"npx":     RuntimeNode,
	"node":    RuntimeNode,
}

// commandTools maps MCP server launch commands to the tool that provides them.
var commandTools = map[string]string{
	"uvx":    "uv",
	"pipx":   "pipx",
	"docker": "docker",
}

// DetectMCPRequirements inspects MCP server configuration for the runtimes and
// tools the configured servers need. Project-level config files are read before
// the user-level one, and servers declared in the user config are reported at
// medium confidence since they apply to every project on the machine.
func (d *Detector) DetectMCPRequirements(root string) *MCPDetection {
	detection := &MCPDetection{}

	for _, name := range mcpConfigFiles {
		configPath := filepath.Join(root, name)
		data := boundedRead(configPath, root)
		if data == nil {
			continue
		}
		if !gjson.ValidBytes(data) {
			slog.Warn("failed to parse MCP config", "file", configPath)
			continue
		}
		collectMCPServers(data, configPath, ConfidenceHigh, detection)
	}

	d.collectUserMCPConfig(detection)

	return detection
}

// collectUserMCPConfig folds the user-level configuration file into detection.
// The file lives outside the project boundary, so it is read directly, with
// symlinks refused.
func (d *Detector) collectUserMCPConfig(detection *MCPDetection) {
	configPath := d.userMCPConfig
	if configPath == "" {
		return
	}

	info, err := os.Lstat(configPath)
	if err != nil {
		return
	}
	if info.Mode()&os.ModeSymlink != 0 {
		slog.Debug("skipping symlinked user MCP config", "file", configPath)
		return
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		slog.Debug("could not read user MCP config", "file", configPath, "error", err)
		return
	}
	if !gjson.ValidBytes(data) {
		slog.Warn("failed to parse user MCP config", "file", configPath)
		return
	}

	collectMCPServers(data, configPath, ConfidenceMedium, detection)
}

// collectMCPServers walks the mcpServers object of a parsed config and records
// one requirement per server whose command maps to a known runtime or tool.
func collectMCPServers(data []byte, sourceFile string, confidence Confidence, detection *MCPDetection) {
	servers := gjson.GetBytes(data, "mcpServers")
	if !servers.IsObject() {
		slog.Debug("no mcpServers object", "file", sourceFile)
		return
	}

	servers.ForEach(func(name, config gjson.Result) bool {
		detection.addSourceFile(sourceFile)

		if !config.IsObject() {
			return true
		}
		command := config.Get("command")
		if command.Type != gjson.String || command.Str == "" {
			return true
		}

		base := filepath.Base(command.Str)
		runtime := commandRuntimes[base]
		tool := commandTools[base]
		if runtime == "" && tool == "" {
			slog.Debug("no mapping for MCP server command", "server", name.Str, "command", base)
			return true
		}

		detection.Requirements = append(detection.Requirements, MCPRequirement{
			Runtime:    runtime,
			Tool:       tool,
			SourceFile: sourceFile,
			Command:    base,
			ServerName: name.Str,
			Confidence: confidence,
		})
		return true
	})
}
