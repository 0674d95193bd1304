// Package mcp exposes the cohort engine as MCP tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/tso500-cohort-explorer/internal/cohort"
)

// Server name and version advertised to clients
const (
	ServerName    = "tso500-cohort-explorer"
	ServerVersion = "v1.0.0"
)

// Server wraps an MCP server whose tools answer from a cohort service
type Server struct {
	service   *cohort.Service
	mcpServer *mcp.Server
	logger    *logrus.Logger
}

// NewServer creates the MCP server and registers every tool
func NewServer(service *cohort.Service, logger *logrus.Logger) *Server {
	s := &Server{
		service: service,
		logger:  logger,
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolResolveCohort,
		Description: "Resolve the patient cohort matching demographic, genomic and clinical-trial filters. Unset filters do not constrain the cohort.",
	}, s.handleResolveCohort)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolCohortViews,
		Description: "Summarise a cohort: variant counts, assessments, top genes, allele fraction histogram, oncoprint, demographics and trial outcomes.",
	}, s.handleCohortViews)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolSurvivalCurves,
		Description: "Fit reproducible synthetic Kaplan-Meier curves for a cohort, stratified by intervention, protocol, gene or sex.",
	}, s.handleSurvivalCurves)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolFilterOptions,
		Description: "List the values every cohort filter accepts, with their defaults.",
	}, s.handleFilterOptions)

	s.logger.WithField("tool_count", len(ToolNames)).Info("Registered MCP tools")
}

// Run serves over stdio until ctx is cancelled or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting cohort MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server stopped: %w", err)
	}
	return nil
}
