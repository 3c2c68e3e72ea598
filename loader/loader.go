// Package loader turns the unit manifests shipped in the code directory into
// registered commands.
//
// A unit is a TOML file naming a module from the compiled-in catalog:
//
//	module = "moderation"
//	enabled = true
//
//	[config]
//	mod_roles = ["123", "456"]
//
// The loader never executes anything the catalog does not already contain;
// the bundle only decides which modules run and with what settings.
package loader

import (
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"

	"CommunityBot/bot"
	"CommunityBot/commands"
	"CommunityBot/fault"
	"CommunityBot/logging"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

const (
	unitExt = ".toml"
	// EntryManifest describes the bundle itself and is not a unit.
	EntryManifest = "bot.toml"
)

// Status is the outcome of loading one unit.
type Status int

const (
	Loaded Status = iota
	// Skipped units are disabled, name an unknown module or one without a
	// registration capability.
	Skipped
	// Duplicate units name a module already loaded by this loader.
	Duplicate
	Failed
)

func (s Status) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Skipped:
		return "skipped"
	case Duplicate:
		return "duplicate"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result records what happened to one unit.
type Result struct {
	Unit   string
	Module string
	Status Status
	Err    error
}

// Manifest is the decoded form of a unit file.
type Manifest struct {
	Module  string
	Enabled bool
	Config  commands.Options
}

// Loader registers units against one session's registry.
type Loader struct {
	catalog  *commands.Catalog
	bot      *bot.Bot
	registry *commands.Registry
	log      logging.Logger
	loaded   map[string]string
}

func New(catalog *commands.Catalog, b *bot.Bot, registry *commands.Registry) *Loader {
	return &Loader{
		catalog:  catalog,
		bot:      b,
		registry: registry,
		log:      logging.New("loader"),
		loaded:   make(map[string]string),
	}
}

// LoadAll loads every unit in dir in name order. A failing unit is recorded
// and the scan carries on; only a missing or unreadable dir is an error.
func (l *Loader) LoadAll(dir string) ([]Result, error) {
	units, err := Units(dir)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(units))
	for _, unit := range units {
		res := l.load(dir, unit)
		entry := l.log.WithField("unit", unit).WithField("module", res.Module)
		switch res.Status {
		case Loaded:
			entry.Info("loaded unit")
		case Skipped:
			entry.WithError(res.Err).Warn("skipped unit")
		case Duplicate:
			entry.Warnf("module already loaded from %s", l.loaded[res.Module])
		case Failed:
			entry.WithError(res.Err).Error("failed to load unit")
		}
		results = append(results, res)
	}
	return results, nil
}

// Units lists the unit files of dir, sorted.
func Units(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fault.WithPath(fault.Config, "read code directory", dir, err)
		}
		return nil, fault.WithPath(fault.Filesystem, "read code directory", dir, err)
	}

	var units []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, unitExt) || name == EntryManifest {
			continue
		}
		units = append(units, name)
	}
	sort.Strings(units)
	return units, nil
}

// ReadManifest parses a unit file. A missing module key defaults to the
// file name without extension; a missing enabled key means enabled.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse manifest")
	}

	m := &Manifest{
		Module:  strings.TrimSuffix(filepath.Base(path), unitExt),
		Enabled: true,
		Config:  commands.Options{},
	}
	switch v := tree.GetDefault("module", "").(type) {
	case string:
		if v != "" {
			m.Module = v
		}
	default:
		return nil, errors.Errorf("module must be a string, got %T", v)
	}
	switch v := tree.GetDefault("enabled", true).(type) {
	case bool:
		m.Enabled = v
	default:
		return nil, errors.Errorf("enabled must be true or false, got %T", v)
	}
	switch v := tree.Get("config").(type) {
	case nil:
	case *toml.Tree:
		m.Config = v.ToMap()
	default:
		return nil, errors.Errorf("config must be a table, got %T", v)
	}
	return m, nil
}

func (l *Loader) load(dir, unit string) (res Result) {
	res = Result{Unit: unit, Module: strings.TrimSuffix(unit, unitExt)}

	manifest, err := ReadManifest(filepath.Join(dir, unit))
	if err != nil {
		res.Status = Failed
		res.Err = fault.WithPath(fault.Load, "read unit", unit, err)
		return res
	}
	res.Module = manifest.Module

	if !manifest.Enabled {
		res.Status = Skipped
		res.Err = errors.New("disabled")
		return res
	}
	if _, done := l.loaded[manifest.Module]; done {
		res.Status = Duplicate
		return res
	}
	module, ok := l.catalog.Lookup(manifest.Module)
	if !ok {
		res.Status = Skipped
		res.Err = errors.Errorf("no module named %q in this build", manifest.Module)
		return res
	}
	if module.Setup == nil {
		res.Status = Skipped
		res.Err = errors.Errorf("module %q has no setup", manifest.Module)
		return res
	}

	defer func() {
		if p := recover(); p != nil {
			res.Status = Failed
			res.Err = fault.WithPath(fault.Load, "set up module", unit,
				errors.Errorf("panic: %v\n%s", p, debug.Stack()))
		}
	}()
	if err := module.Setup(l.bot, l.registry, manifest.Config); err != nil {
		res.Status = Failed
		res.Err = fault.WithPath(fault.Load, "set up module", unit, err)
		return res
	}

	l.loaded[manifest.Module] = unit
	res.Status = Loaded
	return res
}
