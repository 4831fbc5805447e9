package command

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// PermissionLevel gates who may invoke a command.
type PermissionLevel int

const (
	PermissionEveryone PermissionLevel = iota
	PermissionAdmin
	PermissionOwner
)

// Category groups commands for the listing output.
type Category string

const (
	CategoryFun         Category = "fun"
	CategoryMemes       Category = "memes"
	CategoryUtil        Category = "util"
	CategoryMaintenance Category = "maintenance"
)

// Context carries everything a handler needs for one invocation.
type Context struct {
	Ctx       context.Context
	ChannelID string
	UserID    string
	UserName  string
	Prefix    string
	Trigger   string
	Args      []string
	RawArgs   string

	// Reply sends text back to the invoking channel. Fire-and-forget.
	Reply func(text string)
}

// Command is one invokable handler.
type Command interface {
	Invoke(cc *Context)
}

// Func adapts a plain function to Command.
type Func func(cc *Context)

func (f Func) Invoke(cc *Context) { f(cc) }

// HelpProvider is implemented by commands with their own help text.
type HelpProvider interface {
	Help(prefix string) string
}

type entry struct {
	name     string
	cmd      Command
	level    PermissionLevel
	category Category
	aliases  []string
}

// PermissionResolver maps a user to their level. The zero resolver grants
// everyone the lowest level.
type PermissionResolver func(userID string) PermissionLevel

// Registry maps aliases to commands, in registration order for listings.
type Registry struct {
	mu      sync.RWMutex
	byAlias map[string]*entry
	ordered []*entry
	resolve PermissionResolver
}

func NewRegistry(resolve PermissionResolver) *Registry {
	if resolve == nil {
		resolve = func(string) PermissionLevel { return PermissionEveryone }
	}
	return &Registry{
		byAlias: make(map[string]*entry),
		resolve: resolve,
	}
}

// Register binds a command under its name plus any extra aliases. Later
// registrations win on alias collisions, matching last-writer-wins alias
// tables.
func (r *Registry) Register(name string, cmd Command, level PermissionLevel, category Category, aliases ...string) {
	name = strings.ToLower(strings.TrimSpace(name))
	e := &entry{name: name, cmd: cmd, level: level, category: category, aliases: aliases}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ordered = append(r.ordered, e)
	r.byAlias[name] = e
	for _, a := range aliases {
		r.byAlias[strings.ToLower(strings.TrimSpace(a))] = e
	}
}

// Lookup resolves an alias to its command.
func (r *Registry) Lookup(alias string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byAlias[strings.ToLower(strings.TrimSpace(alias))]
	if !ok {
		return nil, false
	}
	return e.cmd, true
}

// Dispatch invokes the aliased command if the user's level permits. Returns
// found=false for unknown aliases and allowed=false when permission is
// denied; the caller decides how to reply in either case.
func (r *Registry) Dispatch(cc *Context, alias string) (found, allowed bool) {
	r.mu.RLock()
	e, ok := r.byAlias[strings.ToLower(strings.TrimSpace(alias))]
	r.mu.RUnlock()
	if !ok {
		return false, false
	}
	if r.resolve(cc.UserID) < e.level {
		return true, false
	}
	cc.Trigger = strings.ToLower(strings.TrimSpace(alias))
	e.cmd.Invoke(cc)
	return true, true
}

// Help returns the command's own help text if it provides one.
func (r *Registry) Help(alias, prefix string) (string, bool) {
	r.mu.RLock()
	e, ok := r.byAlias[strings.ToLower(strings.TrimSpace(alias))]
	r.mu.RUnlock()
	if !ok {
		return "", false
	}
	if hp, ok := e.cmd.(HelpProvider); ok {
		return hp.Help(prefix), true
	}
	return "", false
}

// LevelFor resolves a user's permission level.
func (r *Registry) LevelFor(userID string) PermissionLevel {
	return r.resolve(userID)
}

// Names lists primary command names per category, sorted, for the listing
// command. Only entries at or below maxLevel are included.
func (r *Registry) Names(category Category, maxLevel PermissionLevel) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for _, e := range r.ordered {
		if e.category != category || e.level > maxLevel {
			continue
		}
		names = append(names, e.name)
	}
	sort.Strings(names)
	return names
}
