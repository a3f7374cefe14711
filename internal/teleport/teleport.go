// Package teleport moves players on behalf of an actor and runs the
// call/bring handshake and the return history on top of player sessions.
package teleport

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"commandbook/internal/host"
	"commandbook/internal/perm"
	"commandbook/internal/session"
)

// Messages holds the configurable texts of the handshake. %name% is the
// sender's name, %cname% the highlighted sender name and %target% the
// other player's name.
type Messages struct {
	CallSender  string
	CallTarget  string
	CallTooSoon string
	BringSender string
	BringTarget string
	BringNoPerm string
}

// DefaultMessages returns the stock texts.
func DefaultMessages() Messages {
	return Messages{
		CallSender:  "Teleport request sent.",
		CallTarget:  "**TELEPORT** %cname% requests a teleport! Use /bring <name> to accept.",
		CallTooSoon: host.ErrTooSoon.Message,
		BringSender: "Player teleported.",
		BringTarget: "Your teleport request to %cname% was accepted.",
		BringNoPerm: host.ErrNotBringable.Message,
	}
}

// Config controls how the executor behaves.
type Config struct {
	// AllowVehicles carries a mounted vehicle along when the player may.
	AllowVehicles bool
	// InformManyWhenExcluded sends the aggregate count to an actor that
	// was not among the targets.
	InformManyWhenExcluded bool
	// InformManyWhenIncluded sends the aggregate count to an actor that
	// moved too, but only when someone else moved with them.
	InformManyWhenIncluded bool
	// Highlight decorates player names in notices. Nil leaves them plain.
	Highlight func(string) string
	Messages  Messages
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		AllowVehicles:          true,
		InformManyWhenExcluded: true,
		InformManyWhenIncluded: true,
		Messages:               DefaultMessages(),
	}
}

// Notice produces the texts of one kind of move.
type Notice struct {
	// Caller is told to an actor that moved itself.
	Caller string
	// Victim is told to every other moved player.
	Victim func(actor string, target host.PlayerSummary, dest host.Location) string
	// Many is told to the actor afterwards.
	Many func(n int) string
}

// Teleported is the notice of a plain teleport.
var Teleported = Notice{
	Caller: "Teleported.",
	Victim: func(actor string, target host.PlayerSummary, dest host.Location) string {
		if target.Location.SameWorld(dest) {
			return fmt.Sprintf("You've been teleported by %s.", actor)
		}
		return fmt.Sprintf("You've been teleported by %s to world '%s'.", actor, dest.World)
	},
	Many: func(n int) string { return fmt.Sprintf("%d teleported.", n) },
}

// Returned is the notice of a history return.
var Returned = Notice{
	Caller: "You've been returned.",
	Victim: func(actor string, _ host.PlayerSummary, _ host.Location) string {
		return fmt.Sprintf("You've been returned by %s.", actor)
	},
	Many: func(n int) string { return fmt.Sprintf("%d returned.", n) },
}

// ToSpawn is the notice of a spawn teleport.
var ToSpawn = Notice{
	Caller: "Teleported to spawn.",
	Victim: func(actor string, _ host.PlayerSummary, _ host.Location) string {
		return fmt.Sprintf("Teleported to spawn by %s.", actor)
	},
	Many: func(n int) string { return fmt.Sprintf("%d teleported to spawn.", n) },
}

// Options tune a single Execute call.
type Options struct {
	// Silent suppresses every notice.
	Silent bool
	// SuppressHistory arms the target's ignore location so the move is not
	// recorded as a place to return to.
	SuppressHistory bool
	// Relative marks the destination axes that are offsets from each
	// target's own position.
	Relative [3]bool
	// Notice defaults to Teleported.
	Notice *Notice
}

// Executor performs moves and the handshakes built on them.
type Executor struct {
	host     host.Host
	perms    perm.Checker
	sessions *session.Store
	cfg      Config
	logger   *log.Logger
}

// New creates an executor.
func New(h host.Host, perms perm.Checker, sessions *session.Store, cfg Config, logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.Default()
	}
	return &Executor{host: h, perms: perms, sessions: sessions, cfg: cfg, logger: logger}
}

// Sessions exposes the session store.
func (e *Executor) Sessions() *session.Store { return e.sessions }

func (e *Executor) highlight(name string) string {
	if e.cfg.Highlight == nil {
		return name
	}
	return e.cfg.Highlight(name)
}

func (e *Executor) macros(text, name, targetName string) string {
	return strings.NewReplacer(
		"%cname%", e.highlight(name),
		"%name%", name,
		"%ctarget%", e.highlight(targetName),
		"%target%", targetName,
	).Replace(text)
}

// destination computes where a single target ends up.
func destination(target host.PlayerSummary, dest host.Location, relative [3]bool) host.Location {
	to := dest
	for i, rel := range relative {
		if rel {
			to.Pos[i] += target.Location.Pos[i]
		}
	}
	if !to.Rotated() {
		to = to.WithRotation(target.Location.Pitch, target.Location.Yaw)
	}
	return to
}

// Execute moves every target to dest and informs everyone involved. It
// returns how many players were moved. Permission to move the targets must
// already have been checked.
func (e *Executor) Execute(actor host.Actor, targets []host.PlayerSummary, dest host.Location, opts Options) (int, error) {
	return e.execute(actor, targets, func(t host.PlayerSummary) (host.Location, error) {
		return destination(t, dest, opts.Relative), nil
	}, opts)
}

func (e *Executor) execute(actor host.Actor, targets []host.PlayerSummary, dest func(host.PlayerSummary) (host.Location, error), opts Options) (int, error) {
	notice := Teleported
	if opts.Notice != nil {
		notice = *opts.Notice
	}

	affected := 0
	included := false
	for _, t := range targets {
		to, err := dest(t)
		if err != nil {
			return affected, err
		}
		if err := e.move(t, to, opts.SuppressHistory); err != nil {
			return affected, err
		}
		affected++

		self := host.IsPlayer(actor, t.UUID)
		if self {
			included = true
		}
		if opts.Silent {
			continue
		}
		if self {
			if notice.Caller != "" {
				actor.Message(notice.Caller)
			}
		} else if notice.Victim != nil {
			e.host.Message(t.UUID, notice.Victim(e.highlight(actor.Name()), t, to))
		}
	}

	if opts.Silent || notice.Many == nil || affected == 0 {
		return affected, nil
	}
	if !included && e.cfg.InformManyWhenExcluded {
		actor.Message(notice.Many(affected))
	} else if included && affected > 1 && e.cfg.InformManyWhenIncluded {
		actor.Message(notice.Many(affected))
	}
	return affected, nil
}

func (e *Executor) move(t host.PlayerSummary, to host.Location, suppress bool) error {
	e.host.LoadChunk(to)
	if suppress {
		e.sessions.Session(t.UUID).SetIgnoreLocation(to)
	}

	vehicle, mounted := e.host.Dismount(t.UUID)
	if err := e.host.Teleport(t.UUID, to); err != nil {
		if suppress {
			e.sessions.Session(t.UUID).ClearIgnoreLocation()
		}
		if mounted {
			if merr := e.host.Mount(t.UUID, vehicle.ID); merr != nil {
				e.logger.Printf("remount %s: %v", t.Name, merr)
			}
		}
		return fmt.Errorf("teleport %s: %w", t.Name, err)
	}
	if !mounted || !e.cfg.AllowVehicles || !e.mayTakeVehicle(t, vehicle, to) {
		return nil
	}
	if err := e.host.TeleportVehicle(vehicle.ID, to); err != nil {
		e.logger.Printf("teleport vehicle of %s: %v", t.Name, err)
		return nil
	}
	if err := e.host.Mount(t.UUID, vehicle.ID); err != nil {
		e.logger.Printf("remount %s: %v", t.Name, err)
	}
	return nil
}

func (e *Executor) mayTakeVehicle(t host.PlayerSummary, v host.Vehicle, to host.Location) bool {
	rider := host.PlayerActor(e.host, t)
	node := perm.Node(perm.TeleportVehicle, v.Kind)
	if !e.perms.Has(rider, node) {
		return false
	}
	if !t.Location.SameWorld(to) && !e.perms.HasIn(rider, to.World, node) {
		return false
	}
	return true
}

// CheckTeleport verifies the actor may move the targets to dest: itself
// with the teleport permission in the destination world, anyone else with
// the teleport.other permission globally, in the destination world and in
// the target's own world.
func (e *Executor) CheckTeleport(actor host.Actor, targets []host.PlayerSummary, dest host.Location) error {
	other := perm.Other(perm.Teleport)
	for _, t := range targets {
		if host.IsPlayer(actor, t.UUID) {
			if err := perm.RequireIn(e.perms, actor, dest.World, perm.Teleport); err != nil {
				return err
			}
			continue
		}
		if err := perm.Require(e.perms, actor, other); err != nil {
			return err
		}
		if err := perm.RequireIn(e.perms, actor, dest.World, other); err != nil {
			return err
		}
		if !t.Location.SameWorld(dest) {
			if err := perm.RequireIn(e.perms, actor, t.Location.World, other); err != nil {
				return err
			}
		}
	}
	return nil
}

// Teleport checks and moves targets to dest.
func (e *Executor) Teleport(actor host.Actor, targets []host.PlayerSummary, dest host.Location, opts Options) (int, error) {
	if err := e.CheckTeleport(actor, targets, dest); err != nil {
		return 0, err
	}
	return e.Execute(actor, targets, dest, opts)
}

// Call asks target to bring the actor over.
func (e *Executor) Call(actor host.Actor, target host.PlayerSummary) error {
	self, err := host.CheckPlayer(e.host, actor)
	if err != nil {
		return err
	}
	if err := perm.RequireIn(e.perms, actor, target.Location.World, perm.Call); err != nil {
		return err
	}
	if err := e.sessions.Session(self.UUID).CheckRequest(target.UUID); err != nil {
		if errors.Is(err, host.ErrTooSoon) {
			return host.Errorf(host.KindTooSoon, e.cfg.Messages.CallTooSoon)
		}
		return err
	}
	e.sessions.Session(target.UUID).AddBringable(self.UUID)

	msgs := e.cfg.Messages
	actor.Message(e.macros(msgs.CallSender, self.Name, target.Name))
	e.host.Message(target.UUID, e.macros(msgs.CallTarget, self.Name, target.Name))
	return nil
}

// Bring pulls targets to the actor. A single target that called the actor
// recently needs no further permission; that request is consumed.
func (e *Executor) Bring(actor host.Actor, targets []host.PlayerSummary) (int, error) {
	self, err := host.CheckPlayer(e.host, actor)
	if err != nil {
		return 0, err
	}
	if len(targets) == 0 {
		return 0, host.ErrNoMatches
	}
	dest := self.Location

	if len(targets) == 1 {
		t := targets[0]
		if e.sessions.Session(self.UUID).IsBringable(t.UUID) {
			msgs := e.cfg.Messages
			accepted := Notice{
				Victim: func(string, host.PlayerSummary, host.Location) string {
					return e.macros(msgs.BringTarget, self.Name, t.Name)
				},
				Many: func(int) string { return e.macros(msgs.BringSender, self.Name, t.Name) },
			}
			return e.Execute(actor, targets, dest, Options{Notice: &accepted})
		}
		if !e.perms.Has(actor, perm.Other(perm.Teleport)) {
			return 0, host.Errorf(host.KindNotBringable, e.cfg.Messages.BringNoPerm)
		}
	}

	if err := perm.Require(e.perms, actor, perm.Other(perm.Teleport)); err != nil {
		return 0, err
	}
	checked := make(map[string]bool)
	for _, t := range targets {
		w := t.Location.World
		if t.Location.SameWorld(dest) || checked[w] {
			continue
		}
		if err := perm.RequireIn(e.perms, actor, w, perm.Other(perm.Teleport)); err != nil {
			return 0, err
		}
		checked[w] = true
	}
	return e.Execute(actor, targets, dest, Options{})
}

// Put moves targets to dest, each keeping its own facing.
func (e *Executor) Put(actor host.Actor, targets []host.PlayerSummary, dest host.Location) (int, error) {
	other := perm.Other(perm.Teleport)
	if err := perm.Require(e.perms, actor, other); err != nil {
		return 0, err
	}
	checked := make(map[string]bool)
	for _, t := range targets {
		w := t.Location.World
		if t.Location.SameWorld(dest) || checked[w] {
			continue
		}
		if err := perm.RequireIn(e.perms, actor, w, other); err != nil {
			return 0, err
		}
		checked[w] = true
	}
	return e.Execute(actor, targets, dest.WithRotation(0, 0), Options{})
}

// Return moves subject back to the newest entry of its history. The move
// itself is not recorded.
func (e *Executor) Return(actor host.Actor, subject host.PlayerSummary) error {
	if err := perm.Require(e.perms, actor, perm.Return); err != nil {
		return err
	}
	if !host.IsPlayer(actor, subject.UUID) {
		if err := perm.Require(e.perms, actor, perm.ReturnOther); err != nil {
			return err
		}
	}
	sess := e.sessions.Session(subject.UUID)
	last, ok := sess.PopHistory()
	if !ok {
		return host.ErrNoHistory
	}
	if _, err := e.Execute(actor, []host.PlayerSummary{subject}, last, Options{
		SuppressHistory: true,
		Notice:          &Returned,
	}); err != nil {
		sess.Remember(last)
		return err
	}
	return nil
}

// Spawn sends each target to the spawn of its own world.
func (e *Executor) Spawn(actor host.Actor, targets []host.PlayerSummary, silent bool) (int, error) {
	return e.execute(actor, targets, func(t host.PlayerSummary) (host.Location, error) {
		w, ok := e.host.World(t.Location.World)
		if !ok {
			return host.Location{}, host.ErrNoSuchWorld
		}
		return destination(t, w.Spawn(), [3]bool{}), nil
	}, Options{Silent: silent, Notice: &ToSpawn})
}

// HandleTeleport feeds a host teleport event into the mover's session.
func (e *Executor) HandleTeleport(id uuid.UUID, from, to host.Location) {
	e.sessions.Session(id).ObserveTeleport(from, to)
}

// HandleJoin marks a player's session as connected.
func (e *Executor) HandleJoin(id uuid.UUID) { e.sessions.Connected(id) }

// HandleQuit marks a player's session as disconnected.
func (e *Executor) HandleQuit(id uuid.UUID) { e.sessions.Disconnected(id) }
