package workbench

import "github.com/chazu/cambium/pkg/graph"

// Descriptor is the user-facing description a workbench provides to
// populate menus and the workbench switcher.
type Descriptor struct {
	ID          graph.WorkbenchID
	Label       string
	Description string
}

// ToolBehavior describes how a tool button behaves in the shell UI.
type ToolBehavior int

const (
	// ToolRadio tools are mutually exclusive within their group; clicking
	// an active tool deactivates it. This is the default.
	ToolRadio ToolBehavior = iota
	// ToolCheck tools are independent toggles.
	ToolCheck
	// ToolAction tools fire once and do not stay active.
	ToolAction
)

func (b ToolBehavior) String() string {
	switch b {
	case ToolRadio:
		return "radio"
	case ToolCheck:
		return "check"
	case ToolAction:
		return "action"
	default:
		return "unknown"
	}
}

// ToolDescriptor describes an interactive tool contributed by a workbench.
type ToolDescriptor struct {
	ID       string
	Label    string
	Category string // informational grouping ("drawing", "modeling", ...)
	Behavior ToolBehavior
	Group    string // mutual-exclusion group for radio tools; "" = own group
}

// CommandDescriptor describes a command that may be bound to a shortcut.
type CommandDescriptor struct {
	ID    string
	Label string
}

// Context collects the tools and commands a workbench declares during
// registration.
type Context struct {
	tools    []ToolDescriptor
	commands []CommandDescriptor
}

// RegisterTool declares a tool.
func (c *Context) RegisterTool(tool ToolDescriptor) {
	c.tools = append(c.tools, tool)
}

// RegisterCommand declares a command.
func (c *Context) RegisterCommand(cmd CommandDescriptor) {
	c.commands = append(c.commands, cmd)
}

// Tools returns the declared tools in declaration order.
func (c *Context) Tools() []ToolDescriptor {
	return c.tools
}

// Commands returns the declared commands in declaration order.
func (c *Context) Commands() []CommandDescriptor {
	return c.commands
}
