package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dsarno/mcp-unity/internal/errors"
	"github.com/dsarno/mcp-unity/internal/protocol"
)

// Tool names. Each is also the Unity method that fulfils it.
const (
	ToolExecuteMenuItem  = "execute_menu_item"
	ToolSelectGameObject = "select_gameobject"
	ToolAddPackage       = "add_package"
	ToolRunTests         = "run_tests"
	ToolNotifyMessage    = "notify_message"
	ToolUpdateComponent  = "update_component"
)

// Package installs and test runs routinely outlast the default request timeout.
const (
	addPackageTimeout = time.Minute
	runTestsTimeout   = 5 * time.Minute
)

const notConnectedReason = "Not connected to Unity. Please ensure Unity is running with the MCP Unity plugin enabled."

// ExecuteMenuItemInput is the input of execute_menu_item.
type ExecuteMenuItemInput struct {
	MenuPath string `json:"menuPath"`
}

// SelectGameObjectInput is the input of select_gameobject.
type SelectGameObjectInput struct {
	ObjectPath string `json:"objectPath,omitempty"`
	InstanceID *int64 `json:"instanceId,omitempty"`
}

// AddPackageInput is the input of add_package.
type AddPackageInput struct {
	Source        string `json:"source"`
	PackageName   string `json:"packageName,omitempty"`
	Version       string `json:"version,omitempty"`
	RepositoryURL string `json:"repositoryUrl,omitempty"`
	Branch        string `json:"branch,omitempty"`
	Path          string `json:"path,omitempty"`
}

// RunTestsInput is the input of run_tests.
type RunTestsInput struct {
	TestMode   string `json:"testMode,omitempty"`
	TestFilter string `json:"testFilter,omitempty"`
}

// NotifyMessageInput is the input of notify_message.
type NotifyMessageInput struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// UpdateComponentInput is the input of update_component.
type UpdateComponentInput struct {
	InstanceID    *int64         `json:"instanceId,omitempty"`
	ObjectPath    string         `json:"objectPath,omitempty"`
	ComponentName string         `json:"componentName"`
	ComponentData map[string]any `json:"componentData,omitempty"`
}

func (h *handlers) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolExecuteMenuItem,
		Description: "Executes a Unity menu item by path",
		InputSchema: objectSchema([]string{"menuPath"}, map[string]*jsonschema.Schema{
			"menuPath": stringSchema("The path to the menu item to execute (e.g. 'GameObject/Create Empty')"),
		}),
	}, h.executeMenuItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolSelectGameObject,
		Description: "Sets the selected GameObject in the Unity editor by path or instance ID",
		InputSchema: objectSchema(nil, map[string]*jsonschema.Schema{
			"objectPath": stringSchema("The path or name of the GameObject to select (e.g. 'Main Camera')"),
			"instanceId": integerSchema("The instance ID of the GameObject to select"),
		}),
	}, h.selectGameObject)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolAddPackage,
		Description: "Adds packages into the Unity Package Manager",
		InputSchema: objectSchema([]string{"source"}, map[string]*jsonschema.Schema{
			"source":        enumSchema("The source to use (registry, github, or disk) to add the package", "", "registry", "github", "disk"),
			"packageName":   stringSchema("The package name to add from the Unity registry (e.g. 'com.unity.textmeshpro')"),
			"version":       stringSchema("The specific version to add; the latest is used when empty"),
			"repositoryUrl": stringSchema("The GitHub repository URL (e.g. 'https://github.com/username/repo.git')"),
			"branch":        stringSchema("The branch to use from the GitHub repository"),
			"path":          stringSchema("The path to use (folder path for disk, subfolder for GitHub)"),
		}),
	}, h.addPackage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolRunTests,
		Description: "Runs tests using the Unity Test Runner",
		InputSchema: objectSchema(nil, map[string]*jsonschema.Schema{
			"testMode":   enumSchema("The test mode to run (EditMode or PlayMode)", "EditMode", "EditMode", "PlayMode"),
			"testFilter": stringSchema("The specific test filter to run (e.g. specific test name or namespace)"),
		}),
	}, h.runTests)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolNotifyMessage,
		Description: "Sends a message to the Unity console",
		InputSchema: objectSchema([]string{"message"}, map[string]*jsonschema.Schema{
			"message": stringSchema("The message to display in the Unity console"),
			"type":    enumSchema("The type of message (info, warning, error)", "info", "info", "warning", "error"),
		}),
	}, h.notifyMessage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolUpdateComponent,
		Description: "Updates component fields on a GameObject or adds the component if it does not exist",
		InputSchema: objectSchema([]string{"componentName"}, map[string]*jsonschema.Schema{
			"instanceId":    integerSchema("The instance ID of the GameObject to update"),
			"objectPath":    stringSchema("The path of the GameObject in the hierarchy to update (alternative to instanceId)"),
			"componentName": stringSchema("The name of the component to update or add"),
			"componentData": {
				Type:        "object",
				Description: "An object of the fields to update on the component",
			},
		}),
	}, h.updateComponent)
}

func (h *handlers) executeMenuItem(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	in ExecuteMenuItemInput,
) (*mcp.CallToolResult, any, error) {
	if in.MenuPath == "" {
		return invalid("menuPath", "is required"), nil, nil
	}

	resp, failed := h.invoke(ctx, ToolExecuteMenuItem, map[string]any{"menuPath": in.MenuPath}, 0)
	if failed != nil {
		return failed, nil, nil
	}

	return TextResult(messageOr(resp, "Successfully executed menu item: "+in.MenuPath)), nil, nil
}

func (h *handlers) selectGameObject(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	in SelectGameObjectInput,
) (*mcp.CallToolResult, any, error) {
	if in.ObjectPath == "" && in.InstanceID == nil {
		return invalid("objectPath", "either objectPath or instanceId must be provided"), nil, nil
	}

	params := map[string]any{}
	fallback := "Successfully selected GameObject"

	if in.InstanceID != nil {
		params["instanceId"] = *in.InstanceID
		fallback += fmt.Sprintf(" with instance ID: %d", *in.InstanceID)
	}

	if in.ObjectPath != "" {
		params["objectPath"] = in.ObjectPath

		if in.InstanceID == nil {
			fallback += " at path: " + in.ObjectPath
		}
	}

	resp, failed := h.invoke(ctx, ToolSelectGameObject, params, 0)
	if failed != nil {
		return failed, nil, nil
	}

	return TextResult(messageOr(resp, fallback)), nil, nil
}

func (h *handlers) addPackage(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	in AddPackageInput,
) (*mcp.CallToolResult, any, error) {
	params := map[string]any{"source": in.Source}

	switch in.Source {
	case "registry":
		if in.PackageName == "" {
			return invalid("packageName", "is required for registry packages"), nil, nil
		}

		params["packageName"] = in.PackageName
		setIf(params, "version", in.Version)

	case "github":
		if in.RepositoryURL == "" {
			return invalid("repositoryUrl", "is required for GitHub packages"), nil, nil
		}

		params["repositoryUrl"] = in.RepositoryURL
		setIf(params, "branch", in.Branch)
		setIf(params, "path", in.Path)

	case "disk":
		if in.Path == "" {
			return invalid("path", "is required for disk packages"), nil, nil
		}

		params["path"] = in.Path

	default:
		return invalid("source", fmt.Sprintf("must be one of registry, github or disk, got %q", in.Source)), nil, nil
	}

	resp, failed := h.invoke(ctx, ToolAddPackage, params, addPackageTimeout)
	if failed != nil {
		return failed, nil, nil
	}

	return TextResult(messageOr(resp, "Successfully added package from "+in.Source)), nil, nil
}

func (h *handlers) runTests(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	in RunTestsInput,
) (*mcp.CallToolResult, any, error) {
	mode := in.TestMode
	if mode == "" {
		mode = "EditMode"
	}

	if mode != "EditMode" && mode != "PlayMode" {
		return invalid("testMode", fmt.Sprintf("must be EditMode or PlayMode, got %q", mode)), nil, nil
	}

	params := map[string]any{"testMode": mode}
	setIf(params, "testFilter", in.TestFilter)

	resp, failed := h.invoke(ctx, ToolRunTests, params, runTestsTimeout)
	if failed != nil {
		return failed, nil, nil
	}

	text := messageOr(resp, fmt.Sprintf("Completed %s tests", mode))

	if len(resp.Payload) > 0 {
		details, err := prettyJSON(resp.Payload)
		if err != nil {
			return ErrorResult(err.Error()), nil, nil
		}

		text += "\n\n" + details
	}

	return TextResult(text), nil, nil
}

func (h *handlers) notifyMessage(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	in NotifyMessageInput,
) (*mcp.CallToolResult, any, error) {
	if in.Message == "" {
		return invalid("message", "is required"), nil, nil
	}

	kind := in.Type
	if kind == "" {
		kind = "info"
	}

	switch kind {
	case "info", "warning", "error":
	default:
		return invalid("type", fmt.Sprintf("must be info, warning or error, got %q", kind)), nil, nil
	}

	resp, failed := h.invoke(ctx, ToolNotifyMessage, map[string]any{"message": in.Message, "type": kind}, 0)
	if failed != nil {
		return failed, nil, nil
	}

	return TextResult(messageOr(resp, "Message displayed: "+in.Message)), nil, nil
}

func (h *handlers) updateComponent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	in UpdateComponentInput,
) (*mcp.CallToolResult, any, error) {
	if in.InstanceID == nil && in.ObjectPath == "" {
		return invalid("instanceId", "either instanceId or objectPath must be provided"), nil, nil
	}

	if in.ComponentName == "" {
		return invalid("componentName", "is required"), nil, nil
	}

	params := map[string]any{"componentName": in.ComponentName}
	if in.InstanceID != nil {
		params["instanceId"] = *in.InstanceID
	}

	setIf(params, "objectPath", in.ObjectPath)

	if in.ComponentData != nil {
		params["componentData"] = in.ComponentData
	} else {
		params["componentData"] = map[string]any{}
	}

	resp, failed := h.invoke(ctx, ToolUpdateComponent, params, 0)
	if failed != nil {
		return failed, nil, nil
	}

	return TextResult(messageOr(resp, "Successfully updated component "+in.ComponentName)), nil, nil
}

// invoke forwards a tool call to Unity. On failure it returns the error
// result to hand back to the client instead of a response.
func (h *handlers) invoke(
	ctx context.Context,
	tool string,
	params map[string]any,
	timeout time.Duration,
) (*protocol.Response, *mcp.CallToolResult) {
	h.log.Info("Executing tool", "tool", tool)

	if !h.bridge.IsConnected() {
		return nil, ErrorResult(ErrorText(&errors.ConnectionError{Reason: notConnectedReason}))
	}

	resp, err := h.bridge.SendRequest(ctx, tool, params, timeout)
	if err != nil {
		h.log.Warn("Tool failed", "tool", tool, "error", err)

		return nil, ErrorResult(ErrorText(err))
	}

	return resp, nil
}

func invalid(field, message string) *mcp.CallToolResult {
	return ErrorResult(ErrorText(&errors.ValidationError{Field: field, Message: message}))
}

func setIf(params map[string]any, key, value string) {
	if value != "" {
		params[key] = value
	}
}

func objectSchema(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func stringSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func integerSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description}
}

// enumSchema builds a string schema restricted to values. An empty def
// leaves the schema without a default.
func enumSchema(description, def string, values ...string) *jsonschema.Schema {
	s := stringSchema(description)

	s.Enum = make([]any, 0, len(values))
	for _, v := range values {
		s.Enum = append(s.Enum, v)
	}

	if def != "" {
		s.Default, _ = json.Marshal(def)
	}

	return s
}
