package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"commandbook/commands"
	"commandbook/internal/config"
	"commandbook/internal/console"
	"commandbook/internal/game"
	"commandbook/internal/host"
	"commandbook/internal/location"
	"commandbook/internal/perm"
	"commandbook/internal/places"
	"commandbook/internal/session"
	"commandbook/internal/target"
	"commandbook/internal/teleport"
)

func main() {
	configPath := flag.String("config", "commandbook.yaml", "Path to the YAML configuration file")
	addr := flag.String("addr", "", "TCP address to listen on (overrides server.address)")
	issueToken := flag.String("issue-console-token", "", "Print a remote console token for the given operator and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of tokens printed by -issue-console-token")
	flag.Parse()

	logger := log.Default()
	cfg, err := config.Load(*configPath, logger)
	if err != nil {
		log.Fatal(err)
	}
	if trimmed := strings.TrimSpace(*addr); trimmed != "" {
		cfg.Server.Address = trimmed
	}

	if *issueToken != "" {
		if cfg.Console.JWTSecret == "" {
			log.Fatal("console.jwt_secret is not configured")
		}
		token, err := console.IssueToken(cfg.Console.JWTSecret, *issueToken, *tokenTTL)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *configPath, logger); err != nil {
		log.Fatal(err)
	}
}

func newDimension(wc config.WorldConfig) (*game.Dimension, error) {
	env, err := host.ParseEnvironment(wc.Environment)
	if err != nil {
		return nil, fmt.Errorf("world %s: %w", wc.Name, err)
	}
	return game.NewDimension(game.DimensionConfig{
		Name:        wc.Name,
		Environment: env,
		Ground:      wc.Ground,
		MaxHeight:   wc.MaxHeight,
		Spawn:       wc.Spawn,
	})
}

func buildWorld(cfg *config.Config) (*game.World, error) {
	dims := make([]*game.Dimension, 0, len(cfg.Worlds))
	for _, wc := range cfg.Worlds {
		d, err := newDimension(wc)
		if err != nil {
			return nil, err
		}
		dims = append(dims, d)
	}
	world, err := game.NewWorld(dims...)
	if err != nil {
		return nil, err
	}
	world.ConfigurePrivileges(cfg.Server.EveryoneAdmin)
	return world, nil
}

// loadNewWorlds adds the configured worlds that are not loaded yet and
// returns their names. Worlds dropped from the file stay loaded.
func loadNewWorlds(world *game.World, worlds []config.WorldConfig) ([]string, error) {
	var added []string
	for _, wc := range worlds {
		if _, ok := world.Dimension(wc.Name); ok {
			continue
		}
		d, err := newDimension(wc)
		if err != nil {
			return added, err
		}
		if err := world.AddDimension(d); err != nil {
			return added, err
		}
		added = append(added, wc.Name)
	}
	return added, nil
}

func run(ctx context.Context, cfg *config.Config, configPath string, logger *log.Logger) error {
	world, err := buildWorld(cfg)
	if err != nil {
		return err
	}
	loaded := func(name string) bool {
		_, ok := world.Dimension(name)
		return ok
	}

	groups, err := perm.LoadGroupFile(cfg.Data.Permissions)
	if err != nil {
		return err
	}
	perms := commands.AdminOverride(groups, world)

	sessions := session.NewStore(cfg.Teleport.SessionSettings(), world, logger)
	if n, err := sessions.Load(cfg.Data.Sessions); err != nil {
		logger.Printf("sessions: %v", err)
	} else if n > 0 {
		logger.Printf("restored %d teleport sessions", n)
	}
	go sessions.Run(ctx)

	var homes, warps *places.Store
	if cfg.Locations.Homes || cfg.Locations.Warps {
		backend, err := places.OpenSQLite(cfg.Data.Locations)
		if err != nil {
			return err
		}
		defer backend.Close()
		if cfg.Locations.Homes {
			homes = places.NewStore("home", cfg.Locations.PerWorldHomes, backend, logger)
			if err := homes.Load(loaded); err != nil {
				return err
			}
		}
		if cfg.Locations.Warps {
			warps = places.NewStore("warp", cfg.Locations.PerWorldWarps, backend, logger)
			if err := warps.Load(loaded); err != nil {
				return err
			}
		}
	}

	operator := host.NewConsole(func(text string) {
		logger.Print(strings.Trim(target.StripColor(text), "\r\n"))
	})
	targets := target.New(world, perms, operator, cfg.Teleport.DisplayNames)
	executor := teleport.New(world, perms, sessions, cfg.ExecutorConfig(game.HighlightName), logger)
	world.AddListener(executor)

	core := &commands.Core{
		World:     world,
		Perms:     perms,
		Targets:   targets,
		Locations: location.New(world, perms, targets, homes, warps),
		Teleports: executor,
		Homes:     homes,
		Warps:     warps,
	}
	core.Reload = func() error {
		file, err := perm.ReadGroupFile(cfg.Data.Permissions)
		if err != nil {
			return err
		}
		if err := groups.Replace(file); err != nil {
			return err
		}
		fresh, err := config.Load(configPath, logger)
		if err != nil {
			return err
		}
		added, err := loadNewWorlds(world, fresh.Worlds)
		if len(added) > 0 {
			logger.Printf("loaded worlds: %s", strings.Join(added, ", "))
		}
		if err != nil {
			return err
		}
		for _, s := range []*places.Store{homes, warps} {
			if s != nil {
				s.UpdateWorlds(loaded)
			}
		}
		logger.Printf("reloaded permissions from %s and worlds from %s", cfg.Data.Permissions, configPath)
		return nil
	}

	if cfg.Console.Address != "" {
		srv, err := console.NewServer(operator, core.RunConsole, cfg.Console.JWTSecret, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Console.Address); err != nil {
				logger.Printf("console: %v", err)
			}
		}()
	}

	accounts, err := game.NewAccountManager(cfg.Data.Accounts)
	if err != nil {
		return err
	}
	accounts.SetAdminAccount(cfg.Server.Admin)

	serveErr := game.ListenAndServe(ctx, world, accounts, game.ServerConfig{
		Addr:     cfg.Server.Address,
		TLS:      cfg.Server.TLS,
		CertFile: cfg.Server.CertFile,
		KeyFile:  cfg.Server.KeyFile,
	}, core.Dispatch)

	if err := sessions.Save(cfg.Data.Sessions); err != nil {
		logger.Printf("save sessions: %v", err)
	}
	return serveErr
}
