package mcp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dsarno/mcp-unity/internal/errors"
)

// Resource URIs and URI templates.
const (
	URIMenuItems      = "unity://menu-items"
	URILogs           = "unity://logs"
	URIHierarchy      = "unity://hierarchy"
	URIPackages       = "unity://packages"
	URIAssets         = "unity://assets"
	URITestsTemplate  = "unity://tests/{testMode}"
	URIGameObjectTmpl = "unity://gameobject/{idOrName}"
)

// resource describes one editor data fetch.
type resource struct {
	name        string
	uri         string
	description string

	// field selects the payload field rendered to the client; empty renders
	// the whole payload.
	field    string
	fallback any

	// params extracts the Unity request parameters from a concrete URI.
	// Nil means the resource takes none.
	params func(uri string) (map[string]any, error)
}

var (
	staticResources = []resource{
		{
			name:        "get_menu_items",
			uri:         URIMenuItems,
			description: "List of available menu items in Unity to execute",
			field:       "menuItems",
			fallback:    []any{},
		},
		{
			name:        "get_console_logs",
			uri:         URILogs,
			description: "Retrieve all logs from the Unity console",
			field:       "logs",
			fallback:    []any{},
		},
		{
			name:        "get_hierarchy",
			uri:         URIHierarchy,
			description: "Retrieve all GameObjects in the Unity loaded scenes with their active state",
			field:       "hierarchy",
			fallback:    []any{},
		},
		{
			name:        "get_packages",
			uri:         URIPackages,
			description: "Retrieve all packages from the Unity Package Manager",
			fallback:    map[string]any{},
		},
		{
			name:        "get_assets",
			uri:         URIAssets,
			description: "Retrieve assets from the Unity Asset Database",
			field:       "assets",
			fallback:    []any{},
		},
	}

	templateResources = []resource{
		{
			name:        "get_tests",
			uri:         URITestsTemplate,
			description: "Retrieve the tests known to the Unity Test Runner for a test mode (EditMode or PlayMode)",
			field:       "tests",
			fallback:    []any{},
			params:      testsParams,
		},
		{
			name:        "get_gameobject",
			uri:         URIGameObjectTmpl,
			description: "Retrieve a GameObject by instance ID or name, with its components",
			field:       "gameObject",
			fallback:    map[string]any{},
			params:      gameObjectParams,
		},
	}
)

func (h *handlers) registerResources(server *mcp.Server) {
	for _, r := range staticResources {
		server.AddResource(&mcp.Resource{
			Name:        r.name,
			URI:         r.uri,
			Description: r.description,
			MIMEType:    jsonMIMEType,
		}, h.readResource(r))
	}

	for _, r := range templateResources {
		server.AddResourceTemplate(&mcp.ResourceTemplate{
			Name:        r.name,
			URITemplate: r.uri,
			Description: r.description,
			MIMEType:    jsonMIMEType,
		}, h.readResource(r))
	}
}

func (h *handlers) readResource(r resource) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI
		h.log.Info("Fetching resource", "resource", r.name, "uri", uri)

		params := map[string]any{}
		if r.params != nil {
			var err error
			if params, err = r.params(uri); err != nil {
				return nil, resourceError(err)
			}
		}

		if !h.bridge.IsConnected() {
			return nil, resourceError(&errors.ConnectionError{Reason: notConnectedReason})
		}

		resp, err := h.bridge.FetchResource(ctx, r.name, params, 0)
		if err != nil {
			h.log.Warn("Resource fetch failed", "resource", r.name, "error", err)

			return nil, resourceError(err)
		}

		text, err := prettyJSON(payloadField(resp, r.field, r.fallback))
		if err != nil {
			return nil, err
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      uri,
				MIMEType: jsonMIMEType,
				Text:     text,
			}},
		}, nil
	}
}

// resourceError keeps the bridge error kind visible in the JSON-RPC error
// message while still unwrapping to err.
func resourceError(err error) error {
	return &kindedError{text: ErrorText(err), err: err}
}

type kindedError struct {
	text string
	err  error
}

func (e *kindedError) Error() string { return e.text }
func (e *kindedError) Unwrap() error { return e.err }

func testsParams(uri string) (map[string]any, error) {
	mode, err := lastSegment(uri, "unity://tests/", "testMode")
	if err != nil {
		return nil, err
	}

	if mode != "EditMode" && mode != "PlayMode" {
		return nil, &errors.ValidationError{
			Field:   "testMode",
			Message: fmt.Sprintf("must be EditMode or PlayMode, got %q", mode),
		}
	}

	return map[string]any{"testMode": mode}, nil
}

func gameObjectParams(uri string) (map[string]any, error) {
	id, err := lastSegment(uri, "unity://gameobject/", "idOrName")
	if err != nil {
		return nil, err
	}

	return map[string]any{"idOrName": id}, nil
}

// lastSegment returns the unescaped remainder of uri after prefix.
func lastSegment(uri, prefix, field string) (string, error) {
	rest, ok := strings.CutPrefix(uri, prefix)
	if !ok || rest == "" {
		return "", &errors.ValidationError{Field: field, Message: fmt.Sprintf("missing in URI %q", uri)}
	}

	value, err := url.PathUnescape(rest)
	if err != nil {
		return "", &errors.ValidationError{Field: field, Message: err.Error()}
	}

	return value, nil
}
