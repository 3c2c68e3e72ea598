package commands

import (
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"CommunityBot/bot"
	"CommunityBot/logging"
	"CommunityBot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// Registry is the command table of one session. Modules fill it during a
// load and it is thrown away with the session on restart.
type Registry struct {
	prefix  string
	limiter *utils.RateLimiter
	log     logging.Logger

	mu         sync.RWMutex
	commands   map[string]CommandInfo
	aliases    map[string]string
	components map[string]ComponentFunc
	ready      []ReadyFunc

	// notify sends the registry's own replies, such as rate limit refusals.
	notify func(s *discordgo.Session, channelID, content string)
}

func NewRegistry(prefix string, limiter *utils.RateLimiter) *Registry {
	return &Registry{
		prefix:     prefix,
		limiter:    limiter,
		log:        logging.New("registry"),
		commands:   make(map[string]CommandInfo),
		aliases:    make(map[string]string),
		components: make(map[string]ComponentFunc),
		notify:     func(s *discordgo.Session, channelID, content string) {
			s.ChannelMessageSend(channelID, content)
		},
	}
}

func (r *Registry) Prefix() string {
	return r.prefix
}

// Register adds a single command. Names and aliases are case-insensitive
// and may not collide with anything already registered.
func (r *Registry) Register(cmd CommandInfo) error {
	if cmd.Handler == nil {
		return errors.Errorf("command %q has no handler", cmd.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToLower(cmd.Name)
	if r.taken(name) {
		return errors.Errorf("command %q is already registered", name)
	}
	for _, alias := range cmd.Aliases {
		if r.taken(strings.ToLower(alias)) {
			return errors.Errorf("alias %q of %q is already registered", alias, name)
		}
	}
	cmd.Name = name
	r.commands[name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[strings.ToLower(alias)] = name
	}
	return nil
}

func (r *Registry) taken(name string) bool {
	_, cmd := r.commands[name]
	_, alias := r.aliases[name]
	return cmd || alias
}

// AddCommands registers every command the module declares, binding each to
// the handler of the same name.
func (r *Registry) AddCommands(module *ModuleInfo, handlers map[string]CommandFunc) error {
	for _, cmd := range module.Commands {
		handler, ok := handlers[cmd.Name]
		if !ok {
			return errors.Errorf("module %s: no handler for command %q", module.Name, cmd.Name)
		}
		cmd.Handler = handler
		if cmd.Category == "" {
			cmd.Category = module.Category
		}
		if err := r.Register(cmd); err != nil {
			return errors.Wrapf(err, "module %s", module.Name)
		}
	}
	return nil
}

// HandleComponent routes interactions whose custom ID is namespace or
// starts with "namespace:".
func (r *Registry) HandleComponent(namespace string, fn ComponentFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[namespace] = fn
}

func (r *Registry) OnReady(fn ReadyFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = append(r.ready, fn)
}

// Resolve parses a message into a command. args keeps the typed command
// name at index 0.
func (r *Registry) Resolve(content string) (CommandInfo, []string, bool) {
	if !strings.HasPrefix(content, r.prefix) {
		return CommandInfo{}, nil, false
	}
	args := strings.Fields(strings.TrimPrefix(content, r.prefix))
	if len(args) == 0 {
		return CommandInfo{}, nil, false
	}
	name := strings.ToLower(args[0])

	r.mu.RLock()
	defer r.mu.RUnlock()
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	cmd, ok := r.commands[name]
	return cmd, args, ok
}

func (r *Registry) component(customID string) (ComponentFunc, bool) {
	namespace, _, _ := strings.Cut(customID, ":")
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.components[namespace]
	return fn, ok
}

// Commands returns the registered commands sorted by category then name.
func (r *Registry) Commands() []CommandInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]CommandInfo, 0, len(r.commands))
	for _, cmd := range r.commands {
		list = append(list, cmd)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Category != list[j].Category {
			return list[i].Category < list[j].Category
		}
		return list[i].Name < list[j].Name
	})
	return list
}

// Attach installs the message, interaction and ready handlers on the bot's
// session. A panicking handler is logged and does not take the session down.
func (r *Registry) Attach(b *bot.Bot) {
	b.Client.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		r.dispatch(b, s, m)
	})
	b.Client.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		r.dispatchComponent(b, s, i)
	})
	b.Client.AddHandler(func(s *discordgo.Session, ready *discordgo.Ready) {
		r.mu.RLock()
		hooks := append([]ReadyFunc(nil), r.ready...)
		r.mu.RUnlock()
		for _, fn := range hooks {
			func() {
				defer r.recover("ready")
				fn(b, s, ready)
			}()
		}
	})
}

func (r *Registry) dispatch(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	// Prevent commands from being used in DMs
	if m.GuildID == "" {
		return
	}

	cmd, args, ok := r.Resolve(m.Content)
	if !ok {
		return
	}
	if r.limiter != nil && !r.limiter.Allow(m.Author.ID, cmd.Name) {
		r.notify(s, m.ChannelID, fmt.Sprintf(
			"You're using that command too often. Try again in %d seconds.",
			r.limiter.GetRetryAfter(m.Author.ID, cmd.Name)))
		return
	}

	defer r.recover(cmd.Name)
	cmd.Handler(b, s, m, args)
}

func (r *Registry) dispatchComponent(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	customID := i.MessageComponentData().CustomID
	fn, ok := r.component(customID)
	if !ok {
		r.log.WithField("custom_id", customID).Debug("no handler for component")
		return
	}

	defer r.recover(customID)
	fn(b, s, i)
}

func (r *Registry) recover(what string) {
	if p := recover(); p != nil {
		r.log.WithField("handler", what).Errorf("handler panicked: %v\n%s", p, debug.Stack())
	}
}
