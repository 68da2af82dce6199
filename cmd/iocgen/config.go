package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"go/token"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

const (
	defaultOut        = "internal/iocgen"
	defaultConfigFile = "iocgen.yaml"
)

// Config is the resolved generator configuration.
type Config struct {
	// Out is the output directory relative to the module root.
	Out string `yaml:"out"`
	// Package is the output package name.
	Package string `yaml:"package"`
	// Contracts lists the import path prefixes that hold contract interfaces.
	// Entries starting with "./" are relative to the module root.
	Contracts []string `yaml:"contracts"`
	// Patterns are go/packages patterns, resolved from the module root.
	Patterns []string `yaml:"patterns"`
	// Exclude lists import path prefixes that are never scanned.
	Exclude []string `yaml:"exclude"`
	Verbose bool     `yaml:"verbose"`

	DryRun bool `yaml:"-"`

	ModuleRoot string `yaml:"-"`
	Module     string `yaml:"-"`
	OutDir     string `yaml:"-"`
	OutImport  string `yaml:"-"`
}

// options holds the parsed command line.
type options struct {
	out       string
	pkg       string
	contracts string
	config    string
	dir       string
	dryRun    bool
	verbose   bool
	patterns  []string

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	flags := flag.NewFlagSet("iocgen", flag.ContinueOnError)
	flags.SetOutput(stderr)

	o := &options{set: make(map[string]bool)}
	flags.StringVar(&o.out, "out", defaultOut, "output directory, relative to the module root")
	flags.StringVar(&o.pkg, "pkg", "", "output package name (default: base name of -out)")
	flags.StringVar(&o.contracts, "contracts", "", "comma separated contract package prefixes (default <module>/contracts)")
	flags.StringVar(&o.config, "config", "", "YAML config file (default "+defaultConfigFile+" in the module root, if present)")
	flags.StringVar(&o.dir, "C", "", "run as if started in `dir`")
	flags.BoolVar(&o.dryRun, "dry-run", false, "print generated files instead of writing them")
	flags.BoolVar(&o.verbose, "verbose", false, "enable debug logging")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	flags.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	o.patterns = flags.Args()
	return o, nil
}

// loadConfig resolves defaults, then the YAML file, then flags.
func loadConfig(o *options, workDir string) (*Config, error) {
	root, module, err := findModule(workDir)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Out: defaultOut}

	cfgPath, explicit := o.config, o.config != ""
	if !explicit {
		cfgPath = filepath.Join(root, defaultConfigFile)
	} else if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(workDir, cfgPath)
	}
	if err := readConfigFile(cfgPath, cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if o.set["out"] {
		cfg.Out = o.out
	}
	if o.set["pkg"] {
		cfg.Package = o.pkg
	}
	if o.set["contracts"] {
		cfg.Contracts = splitList(o.contracts)
	}
	if o.set["verbose"] {
		cfg.Verbose = o.verbose
	}
	if len(o.patterns) > 0 {
		cfg.Patterns = o.patterns
	}
	cfg.DryRun = o.dryRun

	cfg.ModuleRoot = root
	cfg.Module = module
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfigFile(p string, cfg *Config) error {
	data, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", filepath.ToSlash(p), err)
	}
	return nil
}

// normalize fills derived fields and validates the result.
func (c *Config) normalize() error {
	if strings.TrimSpace(c.Out) == "" {
		c.Out = defaultOut
	}
	if filepath.IsAbs(c.Out) {
		c.OutDir = filepath.Clean(c.Out)
	} else {
		c.OutDir = filepath.Join(c.ModuleRoot, filepath.FromSlash(c.Out))
	}

	imp, err := moduleImportPathForDir(c.ModuleRoot, c.Module, c.OutDir)
	if err != nil {
		return err
	}
	c.OutImport = imp

	if c.Package == "" {
		c.Package = packageNameFor(path.Base(imp))
	}
	if !token.IsIdentifier(c.Package) || c.Package == "_" {
		return fmt.Errorf("invalid package name %q", c.Package)
	}

	if len(c.Contracts) == 0 {
		c.Contracts = []string{c.Module + "/contracts"}
	}
	for i, p := range c.Contracts {
		c.Contracts[i] = c.resolveImportPrefix(p)
	}
	for i, p := range c.Exclude {
		c.Exclude[i] = c.resolveImportPrefix(p)
	}

	if len(c.Patterns) == 0 {
		c.Patterns = []string{"./..."}
	}
	return nil
}

// resolveImportPrefix turns "./x/y" or "x/y/..." into a full import path prefix.
func (c *Config) resolveImportPrefix(p string) string {
	p = strings.TrimSuffix(strings.TrimSpace(p), "/...")
	if p == "." || strings.HasPrefix(p, "./") {
		rel := strings.TrimPrefix(strings.TrimPrefix(p, "."), "/")
		if rel == "" {
			return c.Module
		}
		return c.Module + "/" + rel
	}
	return p
}

// underPrefix reports whether importPath equals one of prefixes or lives below it.
func underPrefix(importPath string, prefixes []string) bool {
	for _, p := range prefixes {
		if importPath == p || strings.HasPrefix(importPath, p+"/") {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// packageNameFor derives a package name from a directory name.
func packageNameFor(base string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if b.Len() == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" || token.IsKeyword(name) {
		name += "gen"
	}
	return name
}

// findModule walks up from startDir to the nearest go.mod.
func findModule(startDir string) (modRoot, modPath string, err error) {
	dir := startDir
	for {
		gomod := filepath.Join(dir, "go.mod")
		data, rerr := os.ReadFile(gomod)
		switch {
		case rerr == nil:
			modPath = modfile.ModulePath(data)
			if modPath == "" {
				return "", "", fmt.Errorf("go.mod missing module directive at %s", filepath.ToSlash(gomod))
			}
			return dir, modPath, nil
		case !errors.Is(rerr, fs.ErrNotExist):
			return "", "", rerr
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", "", fmt.Errorf("could not find go.mod starting from %s", filepath.ToSlash(startDir))
}

func moduleImportPathForDir(modRoot, modPath, dir string) (string, error) {
	rel, err := filepath.Rel(modRoot, dir)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)

	if rel == "." {
		return modPath, nil
	}
	if strings.HasPrefix(rel, "../") || rel == ".." {
		return "", fmt.Errorf("directory is outside module root: dir=%s modRoot=%s", filepath.ToSlash(dir), filepath.ToSlash(modRoot))
	}
	return modPath + "/" + rel, nil
}
