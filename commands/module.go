package commands

import (
	"fmt"
	"sort"
	"sync"

	"CommunityBot/bot"

	"github.com/bwmarrin/discordgo"
)

// CommandFunc defines the signature for command handlers. args[0] is the
// command name as typed.
type CommandFunc func(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string)

// ComponentFunc handles a button or select menu interaction.
type ComponentFunc func(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate)

// ReadyFunc runs each time the session connects, for posting panels.
type ReadyFunc func(b *bot.Bot, s *discordgo.Session, r *discordgo.Ready)

// SetupFunc is the registration capability a module declares. It is handed
// the unit's [config] table and registers its handlers on r.
type SetupFunc func(b *bot.Bot, r *Registry, opts Options) error

// CommandInfo holds detailed information about a command
type CommandInfo struct {
	Name        string      `json:"name"`
	Aliases     []string    `json:"aliases"`
	Description string      `json:"description"`
	Usage       string      `json:"usage"`
	Category    string      `json:"category"`
	Handler     CommandFunc `json:"-"`
}

// ModuleInfo represents a complete module with its commands and metadata
type ModuleInfo struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Version     string        `json:"version"`
	Author      string        `json:"author"`
	Category    string        `json:"category"`
	Commands    []CommandInfo `json:"commands"`
	Setup       SetupFunc     `json:"-"`
}

// Catalog is the set of modules compiled into the binary, keyed by name.
type Catalog struct {
	mu      sync.RWMutex
	modules map[string]*ModuleInfo
}

func NewCatalog() *Catalog {
	return &Catalog{modules: make(map[string]*ModuleInfo)}
}

// Register adds a module. Registering the same name twice is a programming
// error.
func (c *Catalog) Register(module *ModuleInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.modules[module.Name]; exists {
		panic(fmt.Sprintf("commands: module %q registered twice", module.Name))
	}
	c.modules[module.Name] = module
}

func (c *Catalog) Lookup(name string) (*ModuleInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	module, ok := c.modules[name]
	return module, ok
}

// Modules returns every registered module sorted by name.
func (c *Catalog) Modules() []*ModuleInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	modules := make([]*ModuleInfo, 0, len(c.modules))
	for _, m := range c.modules {
		modules = append(modules, m)
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].Name < modules[j].Name })
	return modules
}

// Default is the catalog feature packages register into from init.
var Default = NewCatalog()

// RegisterModule registers a module in the default catalog.
func RegisterModule(module *ModuleInfo) {
	Default.Register(module)
}

// Options is a unit's [config] table as decoded from TOML.
type Options map[string]interface{}

func (o Options) String(key, def string) string {
	if v, ok := o[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Strings accepts either an array or a single string.
func (o Options) Strings(key string) []string {
	switch v := o[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key].(bool); ok {
		return v
	}
	return def
}

// Tables returns an array of TOML tables, such as [[config.departments]].
func (o Options) Tables(key string) []Options {
	var out []Options
	switch v := o[key].(type) {
	case []map[string]interface{}:
		for _, t := range v {
			out = append(out, Options(t))
		}
	case []interface{}:
		for _, item := range v {
			if t, ok := item.(map[string]interface{}); ok {
				out = append(out, Options(t))
			}
		}
	}
	return out
}
