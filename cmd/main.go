package main

import (
	"encoding/hex"
	"flag"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/brettbedarf/treefs/config"
	"github.com/brettbedarf/treefs/devices"
	"github.com/brettbedarf/treefs/filesystem"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/brettbedarf/treefs/requests"
	"github.com/brettbedarf/treefs/server"
)

func main() {
	// Parse command line arguments
	var (
		configPath string
		verbose    int
		nodesDef   string
		umount     bool
	)
	flag.StringVar(&configPath, "config", "", "Path to config file (.yaml, .yml or .json)")
	flag.StringVar(&configPath, "c", "", "--config (shorthand)")
	flag.StringVar(&nodesDef, "nodes", "", "Path to node definitions file (.yaml, .yml or .json)")
	flag.StringVar(&nodesDef, "n", "", "--nodes (shorthand)")
	flag.BoolVar(&umount, "umount", false,
		"Unmount the fs first if needed before mounting again. Useful for debuggers that don't exit properly.")
	flag.BoolVar(&umount, "u", false, "--umount (shorthand)")
	flag.IntVar(&verbose, "verbose", config.InfoVerbose, "Log verbosity level between 1 (error) and 5 (trace). Default is 3 (info).")
	flag.IntVar(&verbose, "v", config.InfoVerbose, "--verbose (shorthand)")
	flag.Parse()

	// Build config: defaults, then file, then explicit flags
	override := &config.ConfigOverride{}
	if configPath != "" {
		fileOverride, err := config.LoadConfigOverrideFile(configPath)
		if err != nil {
			util.InitializeLogger(config.DefaultLogLvl, os.Stderr)
			l := util.GetLogger("main")
			l.Fatal().Err(err).Str("config", configPath).Msg("Failed to load config file")
		}
		override = fileOverride
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "verbose" || f.Name == "v" {
			override.LogLvl = &verbose
		}
	})
	cfg := config.NewConfig(override)

	// Initialize logger
	util.InitializeLogger(cfg.LogLvl, os.Stdout)
	logger := util.GetLogger("main")

	mnt := flag.Arg(0)
	logger.Info().Str("config", configPath).Str("nodes", nodesDef).Str("mnt", mnt).Msg("TreeFS server initializing")
	// Check if mount point is provided
	if mnt == "" {
		logger.Fatal().Msg("Mount point not specified; it must be passed as the argument")
	}
	// Try unmount if requested
	if umount { // send cli command
		cmd := exec.Command("fusermount", "-u", mnt)
		// we ignore error here if not already mounted
		cmd.Run() // nolint:errcheck
	}

	fsys, err := filesystem.NewFS(cfg, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create filesystem")
	}

	// Load node definitions
	if nodesDef != "" {
		dtos, err := requests.LoadFile(nodesDef)
		if err != nil {
			logger.Fatal().Err(err).Str("nodes", nodesDef).Msg("Failed to read node definitions")
		}
		logger.Debug().Str("nodes", nodesDef).Int("count", len(dtos)).Msg("Node definitions loaded")

		reqs, err := requests.Convert(dtos, devices.NewDefaultRegistry())
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid node definition")
		}
		if err := requests.Apply(fsys, reqs); err != nil {
			logger.Fatal().Err(err).Msg("Failed to apply node definitions")
		}
	} else {
		logger.Warn().Msg("No node definitions file provided")
	}

	logger.Info().
		Str("usage", filesystem.Usage(fsys.Root()).String()).
		Str("digest", hex.EncodeToString(filesystem.Digest(fsys.Root()))).
		Msg("Filesystem ready")

	// Serve
	srv := server.New(fsys, cfg)
	if err := srv.Serve(mnt); err != nil {
		logger.Fatal().Err(err).Msg("Failed to mount filesystem")
	}

	// Setup signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	logger.Info().Str("mountpoint", mnt).Msg("Filesystem mounted successfully")

	// Wait for termination signal
	sig := <-signalChan
	logger.Info().Str("signal", sig.String()).Msg("Received signal, unmounting filesystem")

	// Unmount the filesystem
	if err := srv.Unmount(); err != nil {
		logger.Error().Err(err).Msg("Failed to unmount filesystem")
	} else {
		logger.Info().Msg("Filesystem unmounted successfully")
	}
}
