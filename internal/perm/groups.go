package perm

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"commandbook/internal/host"
)

// Group is a named bundle of permission nodes.
type Group struct {
	Default     bool                `yaml:"default"`
	Permissions []string            `yaml:"permissions"`
	Inheritance []string            `yaml:"inheritance"`
	Worlds      map[string][]string `yaml:"worlds"`
}

// User lists the groups and extra nodes assigned to one player.
type User struct {
	Groups      []string            `yaml:"groups"`
	Permissions []string            `yaml:"permissions"`
	Worlds      map[string][]string `yaml:"worlds"`
}

// File is the on-disk layout of the permissions file.
type File struct {
	Groups map[string]*Group `yaml:"groups"`
	Users  map[string]*User  `yaml:"users"`
}

type cachedUser struct {
	global []string
	worlds map[string][]string
}

func (u *cachedUser) has(world, node string) bool {
	if world != "" {
		for _, p := range u.worlds[strings.ToLower(world)] {
			if Match(p, node) {
				return true
			}
		}
	}
	for _, p := range u.global {
		if Match(p, node) {
			return true
		}
	}
	return false
}

// GroupChecker resolves permissions from groups and users with inheritance.
// Users are keyed by lowercase name; unknown players fall back to the
// default groups. The console passes every check.
type GroupChecker struct {
	mu          sync.RWMutex
	users       map[string]*cachedUser
	defaultUser *cachedUser
}

// LoadGroupFile reads a permissions file from disk. A missing file yields a
// checker where players only get what default groups grant, which is nothing.
func LoadGroupFile(path string) (*GroupChecker, error) {
	file, err := ReadGroupFile(path)
	if err != nil {
		return nil, err
	}
	return NewGroupChecker(file)
}

// ReadGroupFile decodes the permissions file at path. A missing file is an
// empty document.
func ReadGroupFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("open permissions file: %w", err)
	}
	defer f.Close()
	return decodeGroups(f)
}

// LoadGroups decodes a permissions document.
func LoadGroups(r io.Reader) (*GroupChecker, error) {
	file, err := decodeGroups(r)
	if err != nil {
		return nil, err
	}
	return NewGroupChecker(file)
}

func decodeGroups(r io.Reader) (File, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return File{}, fmt.Errorf("decode permissions: %w", err)
	}
	return file, nil
}

// NewGroupChecker flattens the groups into per-user caches.
func NewGroupChecker(file File) (*GroupChecker, error) {
	c := &GroupChecker{}
	if err := c.Replace(file); err != nil {
		return nil, err
	}
	return c, nil
}

// Replace swaps the cached permissions for a freshly loaded document.
func (c *GroupChecker) Replace(file File) error {
	for name, group := range file.Groups {
		if group == nil {
			return fmt.Errorf("group %q is empty", name)
		}
		for _, parent := range group.Inheritance {
			if _, ok := file.Groups[parent]; !ok {
				return fmt.Errorf("group %q inherits unknown group %q", name, parent)
			}
		}
	}

	users := make(map[string]*cachedUser, len(file.Users))
	for name, user := range file.Users {
		if user == nil {
			user = &User{}
		}
		cached := &cachedUser{worlds: make(map[string][]string)}
		cached.global = append(cached.global, user.Permissions...)
		addWorlds(cached, user.Worlds)
		groups := user.Groups
		if len(groups) == 0 {
			groups = defaultGroups(file.Groups)
		}
		collect(cached, groups, file.Groups, map[string]bool{})
		users[strings.ToLower(name)] = cached
	}

	defaultUser := &cachedUser{worlds: make(map[string][]string)}
	collect(defaultUser, defaultGroups(file.Groups), file.Groups, map[string]bool{})

	c.mu.Lock()
	c.users = users
	c.defaultUser = defaultUser
	c.mu.Unlock()
	return nil
}

func defaultGroups(groups map[string]*Group) []string {
	var names []string
	for name, group := range groups {
		if group.Default {
			names = append(names, name)
		}
	}
	return names
}

func collect(into *cachedUser, names []string, groups map[string]*Group, seen map[string]bool) {
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		group, ok := groups[name]
		if !ok {
			continue
		}
		into.global = append(into.global, group.Permissions...)
		addWorlds(into, group.Worlds)
		collect(into, group.Inheritance, groups, seen)
	}
}

func addWorlds(into *cachedUser, worlds map[string][]string) {
	for world, nodes := range worlds {
		key := strings.ToLower(world)
		into.worlds[key] = append(into.worlds[key], nodes...)
	}
}

func (c *GroupChecker) lookup(actor host.Actor) (*cachedUser, bool) {
	if _, ok := actor.PlayerID(); !ok {
		return nil, true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if u, ok := c.users[strings.ToLower(actor.Name())]; ok {
		return u, false
	}
	return c.defaultUser, false
}

func (c *GroupChecker) Has(actor host.Actor, node string) bool {
	return c.HasIn(actor, "", node)
}

func (c *GroupChecker) HasIn(actor host.Actor, world, node string) bool {
	if actor == nil {
		return false
	}
	user, console := c.lookup(actor)
	if console {
		return true
	}
	return user.has(world, node)
}
