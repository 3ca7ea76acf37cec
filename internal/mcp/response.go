package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"avail-risk/internal/riskerr"
)

// ResponseEnvelope wraps every tool result. Warnings flag degraded results the
// caller must not present as confident; Guidance suggests the next tools.
type ResponseEnvelope struct {
	Data     any      `json:"data"`
	Warnings []string `json:"warnings,omitempty"`
	Guidance []string `json:"guidance,omitempty"`
}

// WrapResponse builds the envelope of a successful tool call.
func WrapResponse(data any, warnings, guidance []string) ResponseEnvelope {
	return ResponseEnvelope{Data: data, Warnings: warnings, Guidance: guidance}
}

func formatResult(data any) (string, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(out), nil
}

// toolHandler adapts a typed handler to the SDK. Results are returned as
// indented JSON text; errors become tool errors carrying the error class so
// the client can tell bad input from failed computation.
func toolHandler[In any](name string, h func(context.Context, In) (ResponseEnvelope, error)) mcp.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		env, err := h(ctx, in)
		if err != nil {
			log.Debug().Err(err).Str("tool", name).Msg("Tool call failed")
			return nil, nil, fmt.Errorf("%s: %w", errorClass(err), err)
		}
		text, err := formatResult(env)
		if err != nil {
			return nil, nil, err
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil, nil
	}
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, riskerr.ErrInput):
		return "invalid input"
	case errors.Is(err, riskerr.ErrFit):
		return "fit failure"
	case errors.Is(err, riskerr.ErrDivision):
		return "division error"
	case errors.Is(err, riskerr.ErrSimulation):
		return "invalid simulation parameters"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal error"
	}
}
