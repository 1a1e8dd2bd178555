// Package mcpadapter exposes assistant utilities as MCP tools over
// stdio, so external agent hosts can fetch URLs and analyze images
// through the same pipeline the HTTP API uses.
package mcpadapter

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dmkuzmin/chat-assistant/internal/core/ports"
	"github.com/dmkuzmin/chat-assistant/internal/format"
)

type Server struct {
	inner *server.MCPServer
}

func NewServer(version string, fetcher ports.URLFetcher, describer ports.VisionDescriber) *Server {
	s := server.NewMCPServer("chat-assistant", version, server.WithToolCapabilities(false))

	fetchTool := mcp.NewTool("fetch_url",
		mcp.WithDescription("Fetch the text content of a web page, wrapped with its source URL."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute http(s) URL to fetch."),
		),
	)
	s.AddTool(fetchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		content, err := fetcher.Fetch(ctx, url)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(content), nil
	})

	durationTool := mcp.NewTool("format_duration",
		mcp.WithDescription("Format a duration in seconds as H:MM:SS or M:SS."),
		mcp.WithNumber("seconds",
			mcp.Required(),
			mcp.Description("Duration in seconds; fractions are truncated."),
		),
	)
	s.AddTool(durationTool, func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		seconds, err := request.RequireFloat("seconds")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(format.Duration(seconds)), nil
	})

	if describer != nil {
		analyzeTool := mcp.NewTool("analyze_image",
			mcp.WithDescription("Describe the visual content of an image given as a base64 data URI."),
			mcp.WithString("image",
				mcp.Required(),
				mcp.Description("Image as a data:image/...;base64 URI."),
			),
		)
		s.AddTool(analyzeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			image, err := request.RequireString("image")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			description, err := describer.Describe(ctx, image)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("image analysis failed: %v", err)), nil
			}
			return mcp.NewToolResultText(description), nil
		})
	}

	return &Server{inner: s}
}

// ServeStdio blocks, serving MCP requests on stdin/stdout until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.inner)
}
