package mcp

import (
	"context"
	"encoding/json"

	"github.com/oxhq/srcjs"
	"github.com/oxhq/srcjs/internal/cache"
)

// convertParams is the `convert` tool's input shape: the SRC text plus
// the option keys a caller is likely to vary per call. Anything omitted
// falls back to the server's configured defaults.
type convertParams struct {
	Source             string   `json:"source"`
	File               string   `json:"file,omitempty"`
	ESLevel            int      `json:"eslevel,omitempty"`
	Strict             *bool    `json:"strict,omitempty"`
	Comparison         string   `json:"comparison,omitempty"`
	Or                 string   `json:"or,omitempty"`
	Truthy             string   `json:"truthy,omitempty"`
	Module             string   `json:"module,omitempty"`
	UnderscoredPrivate *bool    `json:"underscored_private,omitempty"`
	Width              int      `json:"width,omitempty"`
	Filters            []string `json:"filters,omitempty"`
	SourceMap          bool     `json:"source_map,omitempty"`
}

func (s *StdioServer) handleToolsList(_ context.Context, req RequestMessage) ResponseMessage {
	return SuccessResponse(req.ID, map[string]any{
		"tools": []ToolDescriptor{
			{
				Name:        "convert",
				Description: "Convert SRC (Ruby-like) source text to TGT (JavaScript) text",
				InputSchema: map[string]any{
					"type":     "object",
					"required": []string{"source"},
					"properties": map[string]any{
						"source":              map[string]any{"type": "string", "description": "SRC text to convert"},
						"file":                map[string]any{"type": "string", "description": "file name for error messages and the source map"},
						"eslevel":             map[string]any{"type": "integer", "minimum": 2015, "maximum": 2025},
						"strict":              map[string]any{"type": "boolean"},
						"comparison":          map[string]any{"type": "string", "enum": []string{"equality", "identity"}},
						"or":                  map[string]any{"type": "string", "enum": []string{"auto", "logical", "nullish"}},
						"truthy":              map[string]any{"type": "string", "enum": []string{"js", "ruby"}},
						"module":              map[string]any{"type": "string", "enum": []string{"esm", "cjs"}},
						"underscored_private": map[string]any{"type": "boolean"},
						"width":               map[string]any{"type": "integer"},
						"filters":             map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"source_map":          map[string]any{"type": "boolean", "description": "append the Source Map v3 JSON as a second content block"},
					},
				},
			},
		},
	})
}

func (s *StdioServer) handleToolsCall(_ context.Context, req RequestMessage) ResponseMessage {
	var call struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &call); err != nil {
		return ErrorResponse(req.ID, CodeInvalidParams, "invalid params: "+err.Error())
	}
	if call.Name != "convert" {
		return ErrorResponse(req.ID, CodeMethodNotFound, "unknown tool: "+call.Name)
	}

	var params convertParams
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return ErrorResponse(req.ID, CodeInvalidParams, "invalid arguments: "+err.Error())
	}
	if params.Source == "" {
		return SuccessResponse(req.ID, ErrorResult("source is required"))
	}

	opts := s.mergeOptions(params)

	digest := cache.Digest(params.Source, opts)
	if cached, ok := s.store.Get(digest); ok {
		s.debugLog("cache hit %s", digest[:12])
		return SuccessResponse(req.ID, s.toolResultFor(cached, params.SourceMap))
	}

	result, err := srcjs.Convert(params.Source, opts)
	if err != nil {
		return SuccessResponse(req.ID, ErrorResult("conversion failed: %v", err))
	}
	if err := s.store.Put(digest, params.File, opts, result); err != nil {
		s.debugLog("cache write failed: %v", err)
	}
	return SuccessResponse(req.ID, s.toolResultFor(result, params.SourceMap))
}

func (s *StdioServer) mergeOptions(params convertParams) srcjs.Options {
	opts := s.config.Defaults
	opts.File = params.File
	if params.ESLevel != 0 {
		opts.ESLevel = params.ESLevel
	}
	if params.Strict != nil {
		opts.Strict = *params.Strict
	}
	if params.Comparison != "" {
		opts.Comparison = params.Comparison
	}
	if params.Or != "" {
		opts.Or = params.Or
	}
	if params.Truthy != "" {
		opts.Truthy = params.Truthy
	}
	if params.Module != "" {
		opts.Module = params.Module
	}
	if params.UnderscoredPrivate != nil {
		opts.UnderscoredPrivate = *params.UnderscoredPrivate
	}
	if params.Width != 0 {
		opts.Width = params.Width
	}
	if params.Filters != nil {
		opts.FilterNames = params.Filters
	}
	return opts
}

func (s *StdioServer) toolResultFor(result *srcjs.Result, withMap bool) ToolResult {
	out := TextResult(result.Text)
	if withMap && result.Map != nil {
		if payload, err := result.Map.MarshalJSON(); err == nil {
			out.Content = append(out.Content, ToolContent{Type: "text", Text: string(payload)})
		}
	}
	return out
}
