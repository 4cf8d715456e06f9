package main

import (
	"RagDesk/backend/go/internal/config"
	ragmcp "RagDesk/backend/go/internal/rag_mcp"
	"RagDesk/backend/go/pkg/logger"
	"RagDesk/backend/go/pkg/ragclient"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"
)

// STDIO transport (default)
//go run ./backend/go/cmd/rag_mcp
//
// SSE transport on the configured mcpAddr
//go run ./backend/go/cmd/rag_mcp -transport=sse
//
// StreamableHTTP transport on port 9100
//go run ./backend/go/cmd/rag_mcp -transport=httpstream -addr=:9100

func main() {
	transport := flag.String("transport", "stdio", "Transport method: stdio, sse, or httpstream")
	addr := flag.String("addr", "", "Listen address for HTTP-based transports (sse, httpstream), defaults to server.mcpAddr")
	backendURL := flag.String("backend", "", "Backend base URL, defaults to ui.backendURL")
	flag.Parse()

	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if *addr == "" {
		*addr = cfg.Server.MCPAddr
	}
	if *backendURL == "" {
		*backendURL = cfg.UI.BackendURL
	}

	logger.InitFromString(cfg.Logger.Level)
	// stdout 留给 stdio 协议
	if *transport == "stdio" {
		logger.SetOutput(os.Stderr)
	}
	appLogger := logger.New("rag_mcp", "", "")

	client, err := ragclient.New(*backendURL, cfg.Middleware.CircuitBreaker)
	if err != nil {
		log.Fatalf("failed to create backend client: %v", err)
	}
	s := ragmcp.NewServer(client, cfg.App.Version, appLogger)

	switch *transport {
	case "sse":
		appLogger.Info(fmt.Sprintf("Starting RAG MCP server with SSE transport on %s, backend %s", *addr, client.BaseURL()))
		sseServer := server.NewSSEServer(s)
		if err := sseServer.Start(*addr); err != nil {
			log.Fatalf("SSE server error: %v", err)
		}
	case "httpstream":
		appLogger.Info(fmt.Sprintf("Starting RAG MCP server with StreamableHTTP transport on %s, backend %s", *addr, client.BaseURL()))
		httpServer := server.NewStreamableHTTPServer(s)
		if err := httpServer.Start(*addr); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	case "stdio":
		if err := server.ServeStdio(s); err != nil {
			log.Fatalf("STDIO server error: %v", err)
		}
	default:
		log.Fatalf("Unknown transport: %s. Use stdio, sse, or httpstream", *transport)
	}
}
