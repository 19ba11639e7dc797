// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes note and shelf tools for LLM integration via stdio
// transport. Every tool acts on behalf of a single fixed user.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/munin/internal/noteservice"
	"github.com/starford/munin/internal/store"
)

// Server wraps the MCP server with note tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *noteservice.Service
	userID int64
}

// New creates a new MCP server with all tools registered. userID is the
// principal every tool call is executed as.
func New(svc *noteservice.Service, userID int64) *Server {
	s := &Server{svc: svc, userID: userID}

	s.mcp = server.NewMCPServer(
		"Munin",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List the user's notes, newest first. Returns one page of notes with their tags and attachment metadata."),
		mcp.WithString("query", mcp.Description("Optional title substring filter")),
		mcp.WithNumber("page", mcp.Description("Page number, starting at 1")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note with the given title and text."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("text", mcp.Description("Note body text")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("read_shelf",
		mcp.WithDescription("Read the user's shelf: a single scratch note that collects quick text and file drops."),
	), s.readShelf)

	s.mcp.AddTool(mcp.NewTool("update_shelf",
		mcp.WithDescription("Replace the shelf text."),
		mcp.WithString("text", mcp.Required(), mcp.Description("New shelf text")),
	), s.updateShelf)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var filters store.Filters
	if q := req.GetString("query", ""); q != "" {
		filters.Search = &q
	}
	page := int64(req.GetInt("page", 1))
	if page < 1 {
		page = 1
	}

	notes, total, err := s.svc.ListNotes(ctx, s.userID, filters,
		store.Sort{Field: store.SortCreated, Dir: store.SortDesc},
		store.Page{Number: page, PerPage: 20})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, _ := json.MarshalIndent(map[string]any{"notes": notes, "total": total}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := req.GetString("text", "")

	note, err := s.svc.CreateNote(ctx, s.userID, title, text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created note %d", note.ID)), nil
}

func (s *Server) readShelf(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	shelf, err := s.svc.GetShelf(ctx, s.userID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(shelf, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) updateShelf(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.UpdateShelf(ctx, s.userID, text); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("shelf updated"), nil
}

// Serve runs the stdio MCP server until the transport closes.
func Serve(ctx context.Context, svc *noteservice.Service, userID int64, logger *slog.Logger) error {
	logger.Info("Starting MCP server", slog.Int64("user_id", userID))
	s := New(svc, userID)
	return s.ServeStdio()
}
