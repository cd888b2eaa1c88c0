package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/researchbot/researchbot/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve questions and passages to MCP clients",
	Long: `Expose the indexed documents to AI assistants over the Model Context Protocol.

  tools       ask, retrieve
  resources   researchbot://history, researchbot://history/{id}, researchbot://index

The server speaks JSON-RPC on stdio unless --port is given, in which case it
serves the streamable HTTP transport on --host:--port.

Examples:
  researchbot mcp serve
  researchbot mcp serve --ingest ./papers --port 8080

To register it with a desktop assistant:
  {"mcpServers": {"researchbot": {"command": "researchbot", "args": ["mcp", "serve"]}}}`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	f := mcpServeCmd.Flags()
	f.IntP("port", "p", 0, "serve HTTP on this port instead of stdio")
	f.String("host", "127.0.0.1", "interface for the HTTP server")
	f.StringSlice("ingest", nil, "PDF files or directories to ingest before serving")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	port, _ := f.GetInt("port")
	host, _ := f.GetString("host")
	paths, _ := f.GetStringSlice("ingest")

	if qaService == nil {
		return errNotConfigured("question answering")
	}
	if len(paths) > 0 {
		if err := ingestBeforeServing(cmd, paths); err != nil {
			return err
		}
	}

	server, err := mcp.NewServer(&mcp.Ports{QA: qaService, Index: indexService})
	if err != nil {
		return err
	}
	if port <= 0 {
		return server.Run(cmd.Context())
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	// stdout is free in HTTP mode.
	cmd.Printf("MCP server listening on http://%s\n", addr)
	return server.RunHTTP(cmd.Context(), addr)
}

// ingestBeforeServing reports on stderr, since stdout carries the protocol
// in stdio mode.
func ingestBeforeServing(cmd *cobra.Command, paths []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}
	report, err := ingestService.Ingest(cmd.Context(), paths)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	cmd.PrintErrf("Indexed %d chunks from %d document(s)\n", report.Chunks, len(report.Documents))
	return nil
}
