package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/release-train/artifact"
	"github.com/etnz/release-train/project"
	"github.com/etnz/release-train/release"
	"go.yaml.in/yaml/v3"
)

// Config is a business object holding the tool's run configuration.
type Config struct {
	// Root is the directory containing all package manifests, nested ones included.
	Root string
	// Order is the explicit publish order. Empty means derive it from the
	// dependency graph.
	Order []string
	// Dist is the directory holding built artifacts; empty disables
	// artifact verification.
	Dist string
	// Commands are the external collaborator command lines.
	Commands release.CommandSet
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: release-train <command> [flags]")
		fmt.Println("Commands: release, sync, plan, pack, restore")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "release":
		runRelease(os.Args[2:])
	case "sync":
		runSync(os.Args[2:])
	case "plan":
		runPlan(os.Args[2:])
	case "pack":
		runPack(os.Args[2:])
	case "restore":
		runRestore(os.Args[2:])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func runRelease(args []string) {
	fs := flag.NewFlagSet("release", flag.ExitOnError)
	confPath := fs.String("config", "release-train.yaml", "Path to config file")
	version := fs.String("version", "", "Target version for every package")
	dryRun := fs.Bool("dry-run", false, "Print collaborator commands instead of executing them")
	fs.Parse(args)

	config := mustConfig(*confPath)
	if *version == "" {
		fmt.Println("Fatal: -version is required")
		os.Exit(1)
	}

	proj, err := project.Discover(config.Root)
	if err != nil {
		fmt.Printf("Fatal: %v\n", err)
		os.Exit(1)
	}

	collab := release.ExecCollaborators(config.Commands)
	if *dryRun {
		collab = release.PrintCollaborators(os.Stdout, config.Commands)
	}

	listener := func(e fmt.Stringer) { fmt.Println(e) }
	runner := &release.Runner{
		Project:       proj,
		Target:        *version,
		Order:         config.Order,
		Dist:          config.Dist,
		Collaborators: collab,
		Listener:      listener,
	}

	plan, err := runner.Run()
	if err != nil {
		fmt.Printf("Fatal: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		return
	}
	summary := &release.Summary{Target: *version, Steps: plan.Steps}
	dir := config.Dist
	if dir == "" {
		dir = config.Root
	}
	if _, err := summary.WriteTo(dir, os.Getenv("GPG_PRIVATE_KEY"), listener); err != nil {
		fmt.Printf("Fatal: %v\n", err)
		os.Exit(1)
	}
}

func runSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	confPath := fs.String("config", "release-train.yaml", "Path to config file")
	version := fs.String("version", "", "Target version for every package")
	fs.Parse(args)

	config := mustConfig(*confPath)
	if *version == "" {
		fmt.Println("Fatal: -version is required")
		os.Exit(1)
	}

	proj, err := project.Discover(config.Root)
	if err != nil {
		fmt.Printf("Fatal: %v\n", err)
		os.Exit(1)
	}

	ops, err := proj.Synchronize(*version)
	if err != nil {
		fmt.Printf("Fatal: %v\n", err)
		os.Exit(1)
	}
	for _, op := range ops {
		if op.Changed() {
			fmt.Printf("Synchronized %s\n", op.Path)
		} else {
			fmt.Printf("Unchanged %s\n", op.Path)
		}
	}
}

func runPlan(args []string) {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	confPath := fs.String("config", "release-train.yaml", "Path to config file")
	fs.Parse(args)

	config := mustConfig(*confPath)

	proj, err := project.Discover(config.Root)
	if err != nil {
		fmt.Printf("Fatal: %v\n", err)
		os.Exit(1)
	}

	runner := &release.Runner{Project: proj, Order: config.Order}
	plan, err := runner.Plan()
	if err != nil {
		fmt.Printf("Fatal: %v\n", err)
		os.Exit(1)
	}
	for _, step := range plan.Steps {
		fmt.Printf("%s %s %s\n", step.Package, step.Version, step.ManifestPath)
	}
}

func runPack(args []string) {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	confPath := fs.String("config", "release-train.yaml", "Path to config file")
	out := fs.String("out", "", "Output directory for artifacts (defaults to the configured dist)")
	fs.Parse(args)

	config := mustConfig(*confPath)
	dir := *out
	if dir == "" {
		dir = config.Dist
	}
	if dir == "" {
		dir = "dist"
	}

	proj, err := project.Discover(config.Root)
	if err != nil {
		fmt.Printf("Fatal: %v\n", err)
		os.Exit(1)
	}

	for _, m := range proj.Packages {
		path, err := artifact.Pack(m, dir)
		if err != nil {
			fmt.Printf("Fatal: packing %s: %v\n", m.Name, err)
			os.Exit(1)
		}
		fmt.Printf("Packed %s\n", path)
	}
}

func runRestore(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	confPath := fs.String("config", "release-train.yaml", "Path to config file")
	fs.Parse(args)

	config := mustConfig(*confPath)

	restored, err := project.RestoreBackups(config.Root)
	if err != nil {
		fmt.Printf("Fatal: %v\n", err)
		os.Exit(1)
	}
	for _, path := range restored {
		fmt.Printf("Restored %s\n", path)
	}
}

func mustConfig(path string) *Config {
	config, err := decodeConfig(path)
	if err != nil {
		fmt.Printf("Fatal: Could not read or parse config file %s: %v\n", path, err)
		os.Exit(1)
	}
	return config
}

func decodeConfig(path string) (*Config, error) {
	// Internal DTOs for YAML deserialization
	type yamlCommands struct {
		Check   []string `yaml:"check"`
		Publish []string `yaml:"publish"`
		Commit  []string `yaml:"commit"`
		Push    []string `yaml:"push"`
	}
	type yamlProject struct {
		Root  string   `yaml:"root"`
		Order []string `yaml:"order"`
		Dist  string   `yaml:"dist"`
	}
	type yamlConfig struct {
		Project  yamlProject  `yaml:"project"`
		Commands yamlCommands `yaml:"commands"`
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var dto yamlConfig
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return nil, err
	}

	// Map DTO to business object. Relative paths are resolved against the
	// config file location.
	config := &Config{
		Root:  dto.Project.Root,
		Order: dto.Project.Order,
		Dist:  dto.Project.Dist,
		Commands: release.CommandSet{
			Check:   dto.Commands.Check,
			Publish: dto.Commands.Publish,
			Commit:  dto.Commands.Commit,
			Push:    dto.Commands.Push,
		},
	}
	if config.Root == "" {
		config.Root = "."
	}
	base := filepath.Dir(path)
	if !filepath.IsAbs(config.Root) {
		config.Root = filepath.Join(base, config.Root)
	}
	if config.Dist != "" && !filepath.IsAbs(config.Dist) {
		config.Dist = filepath.Join(base, config.Dist)
	}

	return config, nil
}
