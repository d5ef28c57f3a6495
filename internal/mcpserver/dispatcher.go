package mcpserver

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/contextbridge/internal/apperr"
	"github.com/starford/contextbridge/internal/contextservice"
	"github.com/starford/contextbridge/internal/models"
)

// Tool names.
const (
	ToolSaveContext   = "save_context"
	ToolGetContext    = "get_context"
	ToolListProjects  = "list_projects"
	ToolCreateProject = "create_project"
)

// Dispatcher routes a named tool call to its handler and turns every failure
// into an error-tagged text result. Calls are handled one at a time.
type Dispatcher struct {
	svc *contextservice.Service
	mu  sync.Mutex
}

// NewDispatcher creates a dispatcher over svc.
func NewDispatcher(svc *contextservice.Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

// Dispatch runs the tool called name with the loose argument map args.
// It never returns a nil result.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	var (
		text string
		err  error
	)
	switch name {
	case ToolSaveContext:
		text, err = d.saveContext(ctx, req)
	case ToolGetContext:
		text, err = d.getContext(ctx, req)
	case ToolListProjects:
		text, err = d.listProjects(ctx, req)
	case ToolCreateProject:
		text, err = d.createProject(ctx, req)
	default:
		err = fmt.Errorf("Unknown tool: %s", name)
	}
	if err != nil {
		return mcp.NewToolResultError("Error: " + err.Error())
	}
	return mcp.NewToolResultText(text)
}

func (d *Dispatcher) saveContext(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	summary, err := req.RequireString("summary")
	if err != nil {
		return "", failed("save context", fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
	}
	lists := make(map[string][]string, 3)
	for _, key := range []string{"keyDecisions", "nextActions", "tags"} {
		if lists[key], err = optionalStrings(req, key); err != nil {
			return "", failed("save context", err)
		}
	}
	res, err := d.svc.SaveContext(ctx, contextservice.SaveRequest{
		Summary:      summary,
		ProjectName:  req.GetString("projectName", ""),
		KeyDecisions: lists["keyDecisions"],
		NextActions:  lists["nextActions"],
		Tags:         lists["tags"],
	})
	if err != nil {
		return "", failed("save context", err)
	}
	return contextservice.SavedText(res), nil
}

func (d *Dispatcher) getContext(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	sessionID, err := req.RequireString("sessionId")
	if err != nil {
		return "", failed("retrieve context", fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
	}
	entry, err := d.svc.GetContext(ctx, sessionID)
	if contextservice.IsNotFound(err) {
		return contextservice.NotFoundText, nil
	}
	if err != nil {
		return "", failed("retrieve context", err)
	}
	return contextservice.DigestText(entry), nil
}

func (d *Dispatcher) listProjects(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	projects, err := d.svc.ListProjects(ctx, req.GetBool("includeArchived", false))
	if err != nil {
		return "", failed("list projects", err)
	}
	return contextservice.ProjectsText(projects), nil
}

func (d *Dispatcher) createProject(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return "", failed("create project", fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
	}
	_, err = d.svc.CreateProject(ctx, contextservice.CreateProjectRequest{
		Name:        name,
		Description: req.GetString("description", ""),
		Status:      models.ProjectStatus(req.GetString("status", string(models.StatusNotStarted))),
	})
	if err != nil {
		return "", failed("create project", err)
	}
	return contextservice.ProjectCreatedText(name), nil
}

// optionalStrings returns nil for an absent or null key and rejects anything
// other than an array of strings.
func optionalStrings(req mcp.CallToolRequest, key string) ([]string, error) {
	if v, ok := req.GetArguments()[key]; !ok || v == nil {
		return nil, nil
	}
	values, err := req.RequireStringSlice(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return values, nil
}

func failed(action string, err error) error {
	return fmt.Errorf("Failed to %s: %w", action, err)
}
