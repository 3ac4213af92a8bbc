package actions

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/cortex/curves"
)

// MissingCurve selects what the loader does when a consideration names a
// curve the library does not know.
type MissingCurve string

const (
	MissingCurveFail              MissingCurve = "fail"
	MissingCurveSkipConsideration MissingCurve = "skip_consideration"
	MissingCurveSkipAction        MissingCurve = "skip_action"
	MissingCurveDefault           MissingCurve = "default"
)

// fileDoc is the on-disk layout of an action-set file (YAML or JSON).
type fileDoc struct {
	ActionSets []setDoc `yaml:"action_sets"`
}

type setDoc struct {
	Name      string        `yaml:"name"`
	Templates []templateDoc `yaml:"templates"`
}

type templateDoc struct {
	Name           string             `yaml:"name"`
	Key            string             `yaml:"key"`
	Priority       float64            `yaml:"priority"`
	Fetcher        string             `yaml:"fetcher"`
	LOD            LODRange           `yaml:"lod"`
	TieBreak       int                `yaml:"tie_break"`
	Considerations []considerationDoc `yaml:"considerations"`
}

type considerationDoc struct {
	Key   string  `yaml:"key"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Curve string  `yaml:"curve"`
}

// Loader parses action-set files and resolves their curves.
type Loader struct {
	Curves    *curves.Library
	OnMissing MissingCurve
	Fallback  string
	Logger    *slog.Logger
}

// NewLoader returns a loader over the built-in curve library that rejects
// unknown curves.
func NewLoader() *Loader {
	return &Loader{
		Curves:    curves.NewLibrary(),
		OnMissing: MissingCurveFail,
		Fallback:  "Linear",
		Logger:    slog.Default(),
	}
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

// Parse decodes one document. source is used in error messages only.
func (l *Loader) Parse(data []byte, source string) ([]*ActionSet, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source, err)
	}

	sets := make([]*ActionSet, 0, len(doc.ActionSets))
	for _, sd := range doc.ActionSets {
		set := &ActionSet{Name: sd.Name}
		if set.Name == "" {
			return nil, fmt.Errorf("%s: action set without name", source)
		}
		for _, td := range sd.Templates {
			tmpl, keep, err := l.buildTemplate(td, source)
			if err != nil {
				return nil, err
			}
			if !keep {
				continue
			}
			if err := set.Add(tmpl); err != nil {
				return nil, fmt.Errorf("%s: %w", source, err)
			}
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func (l *Loader) buildTemplate(td templateDoc, source string) (ActionTemplate, bool, error) {
	tmpl := ActionTemplate{
		Name:     td.Name,
		Key:      td.Key,
		Priority: td.Priority,
		Fetcher:  td.Fetcher,
		LOD:      td.LOD,
		TieBreak: td.TieBreak,
	}
	for _, cd := range td.Considerations {
		spec := ConsiderationSpec{Key: cd.Key, Min: cd.Min, Max: cd.Max, CurveName: cd.Curve}
		if spec.Min > spec.Max {
			l.logger().Warn("consideration min > max, swapping",
				"source", source, "template", td.Name, "consideration", cd.Key,
				"min", spec.Min, "max", spec.Max)
			spec.Min, spec.Max = spec.Max, spec.Min
		}

		curve, err := l.resolveCurve(cd.Curve)
		if err != nil {
			switch l.OnMissing {
			case MissingCurveSkipConsideration:
				l.logger().Warn("unknown curve, dropping consideration",
					"source", source, "template", td.Name, "consideration", cd.Key, "curve", cd.Curve)
				continue
			case MissingCurveSkipAction:
				l.logger().Warn("unknown curve, dropping template",
					"source", source, "template", td.Name, "curve", cd.Curve)
				return ActionTemplate{}, false, nil
			case MissingCurveDefault:
				l.logger().Warn("unknown curve, using fallback",
					"source", source, "template", td.Name, "curve", cd.Curve, "fallback", l.Fallback)
				if curve, err = l.resolveCurve(l.Fallback); err != nil {
					return ActionTemplate{}, false, fmt.Errorf("%s: fallback curve: %w", source, err)
				}
				spec.CurveName = l.Fallback
			default:
				return ActionTemplate{}, false, fmt.Errorf("%s: template %q consideration %q: %w", source, td.Name, cd.Key, err)
			}
		}
		spec.Curve = curve
		tmpl.Considerations = append(tmpl.Considerations, spec)
	}
	return tmpl, true, nil
}

func (l *Loader) resolveCurve(name string) (curves.Curve, error) {
	lib := l.Curves
	if lib == nil {
		lib = curves.NewLibrary()
	}
	if name == "" {
		name = "Linear"
	}
	return lib.Resolve(name)
}

// LoadFile parses a single action-set file.
func (l *Loader) LoadFile(filename string) ([]*ActionSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading action sets: %w", err)
	}
	return l.Parse(data, filename)
}

// LoadDir loads every action-set file in dir into a store.
func (l *Loader) LoadDir(ctx context.Context, dir string) (*Store, error) {
	return l.LoadFS(ctx, os.DirFS(dir), ".")
}

// LoadFS loads every .yaml, .yml and .json file directly under dir in fsys.
// Files are parsed concurrently and merged in lexical filename order.
func (l *Loader) LoadFS(ctx context.Context, fsys fs.FS, dir string) (*Store, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("listing action sets: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && IsActionSetFile(e.Name()) {
			files = append(files, path.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	results := make([][]*ActionSet, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := fs.ReadFile(fsys, name)
			if err != nil {
				return fmt.Errorf("reading %s: %w", name, err)
			}
			sets, err := l.Parse(data, name)
			if err != nil {
				return err
			}
			results[i] = sets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []*ActionSet
	for _, sets := range results {
		all = append(all, sets...)
	}
	return NewStore(all...)
}

// IsActionSetFile reports whether name has an action-set file extension.
func IsActionSetFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
