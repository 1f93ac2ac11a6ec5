package mcp

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dsarno/mcp-unity/internal/errors"
	"github.com/dsarno/mcp-unity/internal/protocol"
)

const jsonMIMEType = "application/json"

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

// ErrorText renders err, prefixed with its bridge error kind when it has one.
func ErrorText(err error) string {
	var be errors.BridgeError
	if stderrors.As(err, &be) {
		return fmt.Sprintf("[%s] %s", be.Kind(), be.Error())
	}

	return err.Error()
}

// messageOr returns the reply's message, or fallback when Unity sent none.
func messageOr(resp *protocol.Response, fallback string) string {
	if resp != nil && resp.Message != "" {
		return resp.Message
	}

	return fallback
}

// payloadField returns one field of the reply payload, or fallback when absent.
func payloadField(resp *protocol.Response, field string, fallback any) any {
	if resp == nil {
		return fallback
	}

	if field == "" {
		if len(resp.Payload) == 0 {
			return fallback
		}

		return resp.Payload
	}

	v, ok := resp.Payload[field]
	if !ok || v == nil {
		return fallback
	}

	return v
}

func prettyJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}

	return string(data), nil
}
