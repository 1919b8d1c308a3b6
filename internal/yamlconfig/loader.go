package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/htmlinclude/internal/config"
	"github.com/vk/htmlinclude/internal/ctxlog"
	"github.com/vk/htmlinclude/internal/fsutil"
	"github.com/vk/htmlinclude/internal/params"
	"gopkg.in/yaml.v3"
)

// Extensions lists the file extensions the loader reads.
var Extensions = []string{".yaml", ".yml"}

// Loader is the YAML implementation of the config.Loader interface.
type Loader struct {
	// Env resolves ${NAME} references. Nil means the process environment.
	Env map[string]string
}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

type fileRoot struct {
	Settings *settingsDoc `yaml:"settings"`
	Pages    []pageDoc    `yaml:"pages"`
}

type settingsDoc struct {
	Base    *string `yaml:"base"`
	Timeout *string `yaml:"timeout"`
	Tag     *string `yaml:"tag"`
	Workers *int    `yaml:"workers"`
}

type pageDoc struct {
	Name   string    `yaml:"name"`
	Source string    `yaml:"source"`
	Output string    `yaml:"output"`
	Params yaml.Node `yaml:"params"`
}

// Load reads every YAML file under paths and merges them into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, Extensions...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no YAML files found in %v", paths)
	}
	logger.Debug("Discovered YAML files.", "count", len(files))

	env := l.Env
	if env == nil {
		env = config.Environ()
	}

	model := config.NewModel()
	settingsFrom := ""
	for _, file := range files {
		root, err := decodeFile(file)
		if err != nil {
			return nil, err
		}

		dir := filepath.Dir(file)
		if root.Settings != nil {
			if settingsFrom != "" {
				return nil, fmt.Errorf("duplicate settings in %s: already declared in %s", file, settingsFrom)
			}
			settingsFrom = file
			if err := root.Settings.apply(dir, &model.Settings); err != nil {
				return nil, fmt.Errorf("invalid settings in %s: %w", file, err)
			}
		}
		for _, p := range root.Pages {
			set, err := decodeParams(&p.Params, env)
			if err != nil {
				return nil, fmt.Errorf("invalid page '%s' in %s: %w", p.Name, file, err)
			}
			model.Pages = append(model.Pages, &config.Page{
				Name:   p.Name,
				Source: p.Source,
				Output: config.ResolvePath(dir, p.Output),
				Params: set,
			})
		}
	}

	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Debug("YAML loading complete.", "pages", len(model.Pages), "base", model.Settings.Base)
	return model, nil
}

func decodeFile(file string) (*fileRoot, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file %s: %w", file, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var root fileRoot
	if err := dec.Decode(&root); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", file, err)
	}
	return &root, nil
}

func (s *settingsDoc) apply(dir string, dst *config.Settings) error {
	if s.Base != nil {
		dst.Base = config.ResolvePath(dir, *s.Base)
	}
	if s.Timeout != nil {
		timeout, err := time.ParseDuration(*s.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout '%s': %w", *s.Timeout, err)
		}
		dst.Timeout = timeout
	}
	if s.Tag != nil {
		dst.Tag = *s.Tag
	}
	if s.Workers != nil {
		dst.Workers = *s.Workers
	}
	return nil
}

// decodeParams reads a mapping of scalars, keeping the declared key order and
// the literal text of every value.
func decodeParams(n *yaml.Node, env map[string]string) (*params.Set, error) {
	set := params.New()
	if n.Kind == 0 || n.Tag == "!!null" {
		return set, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: params must be a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: param '%s' must be a scalar", val.Line, key.Value)
		}
		expanded, err := expandEnv(val.Value, env)
		if err != nil {
			return nil, fmt.Errorf("line %d: param '%s': %w", val.Line, key.Value, err)
		}
		set.Put(key.Value, expanded)
	}
	return set, nil
}

// expandEnv replaces ${NAME} and $NAME with values from env. Unknown names
// are an error.
func expandEnv(s string, env map[string]string) (string, error) {
	var missing []string
	out := os.Expand(s, func(name string) string {
		v, ok := env[name]
		if !ok {
			missing = append(missing, name)
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("undefined environment variable %q", missing[0])
	}
	return out, nil
}
