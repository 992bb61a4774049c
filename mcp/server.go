package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/oxhq/srcjs"
	"github.com/oxhq/srcjs/internal/cache"
)

// Config controls the stdio server.
type Config struct {
	Debug       bool
	DatabaseURL string // conversion cache path; "" or "skip" disables
	Defaults    srcjs.Options
	LogWriter   io.Writer

	// In/Out override stdio, for tests.
	In  io.Reader
	Out io.Writer
}

// StdioServer handles MCP communication over stdio: newline-delimited
// JSON-RPC, requests dispatched to handlers, responses serialized through
// one writer.
type StdioServer struct {
	config  Config
	reader  *bufio.Reader
	writer  *bufio.Writer
	writeMu sync.Mutex

	sessionID string
	store     *cache.Store
	handlers  map[string]func(context.Context, RequestMessage) ResponseMessage

	debugLog func(format string, args ...any)
}

// NewStdioServer creates the server and connects the conversion cache
// when configured. A cache failure downgrades to no persistence rather
// than failing startup.
func NewStdioServer(config Config) (*StdioServer, error) {
	in := config.In
	if in == nil {
		in = os.Stdin
	}
	out := config.Out
	if out == nil {
		out = os.Stdout
	}

	server := &StdioServer{
		config:    config,
		reader:    bufio.NewReader(in),
		writer:    bufio.NewWriter(out),
		sessionID: uuid.NewString(),
	}

	logWriter := config.LogWriter
	if logWriter == nil {
		logWriter = os.Stderr
	}
	if config.Debug {
		server.debugLog = func(format string, args ...any) {
			fmt.Fprintf(logWriter, "[DEBUG] "+format+"\n", args...)
		}
	} else {
		server.debugLog = func(format string, args ...any) {}
	}

	if config.DatabaseURL != "" && config.DatabaseURL != "skip" {
		store, err := cache.Open(config.DatabaseURL, config.Debug)
		if err != nil {
			server.debugLog("cache connection failed, continuing without persistence: %v", err)
		} else {
			server.store = store
			server.debugLog("cache connected: %s", config.DatabaseURL)
		}
	}

	server.registerHandlers()
	server.debugLog("session %s ready", server.sessionID)
	return server, nil
}

func (s *StdioServer) registerHandlers() {
	s.handlers = map[string]func(context.Context, RequestMessage) ResponseMessage{
		"initialize": s.handleInitialize,
		"ping":       s.handlePing,
		"tools/list": s.handleToolsList,
		"tools/call": s.handleToolsCall,
	}
}

// Start runs the read/dispatch loop until EOF or ctx cancellation.
func (s *StdioServer) Start(ctx context.Context) error {
	defer s.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := s.reader.ReadBytes('\n')
		if err == io.EOF {
			if len(line) == 0 {
				return nil
			}
		} else if err != nil {
			return err
		}
		if len(line) <= 1 {
			continue
		}

		var req RequestMessage
		if err := json.Unmarshal(line, &req); err != nil {
			s.send(ErrorResponse(nil, CodeParseError, "parse error: "+err.Error()))
			continue
		}
		if req.ID == nil {
			// Notification; this server has no notification handlers.
			s.debugLog("notification %s ignored", req.Method)
			continue
		}

		handler, ok := s.handlers[req.Method]
		if !ok {
			s.send(ErrorResponse(req.ID, CodeMethodNotFound, "method not found: "+req.Method))
			continue
		}
		s.send(handler(ctx, req))
	}
}

func (s *StdioServer) send(resp ResponseMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	data, err := json.Marshal(resp)
	if err != nil {
		s.debugLog("marshal failed: %v", err)
		return
	}
	s.writer.Write(data)
	s.writer.WriteByte('\n')
	s.writer.Flush()
}

// Close releases the cache connection.
func (s *StdioServer) Close() error {
	return s.store.Close()
}

func (s *StdioServer) handleInitialize(_ context.Context, req RequestMessage) ResponseMessage {
	return SuccessResponse(req.ID, map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    "srcjs",
			"version": "1.0.0",
		},
		"sessionId": s.sessionID,
	})
}

func (s *StdioServer) handlePing(_ context.Context, req RequestMessage) ResponseMessage {
	return SuccessResponse(req.ID, map[string]any{})
}
