// Biome: AI Training Coach MCP Server
//
// An MCP server that plugs a local training log into any MCP-capable
// AI tool (Claude Code, OpenCode, Gemini CLI, Cursor) and turns logged
// sets into analytics, weekly plan proposals and coaching conversations,
// journaling every decision along the way.
//
// Usage:
//
//	biome serve    # Start MCP server (stdio transport, the default)
//	biome update   # Update to the latest version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/patrickpassosb/biome/internal/config"
	biomeserver "github.com/patrickpassosb/biome/internal/server"
	"github.com/patrickpassosb/biome/internal/updater"
)

func main() {
	// No argument means serve, so MCP configs can omit args entirely.
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("biome v%s\n", biomeserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	cfgPath := os.Getenv("BIOME_CONFIG")
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, cleanup, err := biomeserver.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check prints to stderr so it doesn't
	// interfere with MCP's stdio transport on stdout.
	go checkForUpdates()

	// SIGINT/SIGTERM cancel the context; Listen returns and the
	// deferred cleanup closes the journal and training database.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdio := server.NewStdioServer(s)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. It runs in a goroutine during
// "serve" and is best-effort; network failures are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(biomeserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  📦 Update available: v%s → v%s\n"+
				"     Run: biome update\n"+
				"     Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest version.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "🔍 Checking for updates...\n")

	result := updater.CheckVersion(biomeserver.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "✅ Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "📦 New version available: v%s → v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "⬇️  Downloading...\n")

	if err := updater.SelfUpdate(biomeserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n   You can download manually from:\n   %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "✅ Updated to v%s!\n", result.LatestVersion)
	fmt.Fprintf(os.Stderr, "   Restart biome to use the new version.\n")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Biome v%s — AI Training Coach MCP Server

Usage:
  biome [serve]    Start the MCP server (stdio transport)
  biome update     Update to the latest version
  biome version    Print the version
  biome help       Show this help

Configuration:
  Settings load from ~/.biome/config.yaml (override the path with
  BIOME_CONFIG). Set the API key env var from the config (GROQ_API_KEY
  by default) for model-backed coaching; without it the coach runs on
  the offline rule-based backend.

  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "biome": {
        "command": "biome",
        "args": ["serve"]
      }
    }
  }

Learn more: https://github.com/patrickpassosb/biome
`, biomeserver.Version)
}
