package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/mapty/internal/client"
	"github.com/claude/mapty/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "http://127.0.0.1:8080", "mapty server URL")
	apiKey := flag.String("api-key", os.Getenv("MAPTY_AUTH_API_KEY"), "API key for write endpoints")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("mapty-mcp", Version)
		return
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("mapty-mcp starting", "version", Version, "server", *serverURL)

	s := mcp.New(client.NewClient(*serverURL, *apiKey), Version, log)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
