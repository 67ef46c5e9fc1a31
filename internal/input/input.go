// Package input loads a simulation configuration, either from the
// line-oriented .in format or from its YAML equivalent, and validates it
// before anything is simulated.
package input

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/jh125486/procsched/internal/process"
	"github.com/jh125486/procsched/internal/sched"
)

var (
	ErrMissingParameter  = errors.New("missing parameter")
	ErrUnexpectedQuantum = errors.New("quantum is only valid with rr")
	ErrCountMismatch     = errors.New("process count mismatch")
	ErrDuplicateName     = errors.New("duplicate process name")
	ErrInvalidValue      = errors.New("invalid value")
	ErrMalformed         = errors.New("malformed input")
	ErrUnsupportedFile   = errors.New("unsupported input file")
)

// Config is a parsed, not yet validated, simulation description. A zero
// Quantum means none was given.
type Config struct {
	ProcessCount int               `yaml:"processcount"`
	RunFor       int               `yaml:"runfor"`
	Use          string            `yaml:"use"`
	Quantum      int               `yaml:"quantum"`
	Processes    []process.Process `yaml:"processes"`

	seen map[string]bool
}

// Load reads path, choosing the parser by extension, and validates it.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logrus.Warnf("closing %s: %v", path, err)
		}
	}()

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".in":
		cfg, err = Parse(f)
	case ".yaml", ".yml":
		cfg, err = ParseYAML(f)
	default:
		return nil, fmt.Errorf("%w: %s must end in .in, .yaml or .yml", ErrUnsupportedFile, path)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logrus.Debugf("loaded %s: %d processes, runfor %d, use %s", path, len(cfg.Processes), cfg.RunFor, cfg.Use)

	return cfg, nil
}

// OutputPath is the trace file written next to an input: x.in becomes x.out.
func OutputPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".out"
}

// Parse reads the .in format. Everything after '#' is a comment and parsing
// stops at an "end" line.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{seen: make(map[string]bool)}
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "end" {
			break
		}
		if err := cfg.directive(fields); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return cfg, nil
}

func (c *Config) directive(fields []string) error {
	key := fields[0]
	if key == "process" {
		p, err := parseProcess(fields[1:])
		if err != nil {
			return err
		}
		c.Processes = append(c.Processes, p)
		return nil
	}
	if len(fields) != 2 {
		return fmt.Errorf("%w: %q expects one value", ErrMalformed, key)
	}
	if c.seen[key] {
		return fmt.Errorf("%w: %q given more than once", ErrMalformed, key)
	}
	c.seen[key] = true

	var err error
	switch key {
	case "processcount":
		c.ProcessCount, err = atoi(key, fields[1])
	case "runfor":
		c.RunFor, err = atoi(key, fields[1])
	case "use":
		c.Use = fields[1]
	case "quantum":
		c.Quantum, err = atoi(key, fields[1])
		if err == nil && c.Quantum < 1 {
			err = fmt.Errorf("%w: quantum %d", ErrInvalidValue, c.Quantum)
		}
	default:
		err = fmt.Errorf("%w: unknown directive %q", ErrMalformed, key)
	}

	return err
}

// parseProcess reads "name X arrival Y burst Z" pairs, in any order.
func parseProcess(kv []string) (process.Process, error) {
	var (
		p   process.Process
		got = make(map[string]bool, 3)
	)
	if len(kv)%2 != 0 {
		return p, fmt.Errorf("%w: process fields must be key/value pairs", ErrMalformed)
	}
	for i := 0; i < len(kv); i += 2 {
		var err error
		switch kv[i] {
		case "name":
			p.Name = kv[i+1]
		case "arrival":
			p.Arrival, err = atoi("arrival", kv[i+1])
		case "burst":
			p.Burst, err = atoi("burst", kv[i+1])
		default:
			err = fmt.Errorf("%w: unknown process field %q", ErrMalformed, kv[i])
		}
		if err != nil {
			return p, err
		}
		got[kv[i]] = true
	}
	for _, k := range []string{"name", "arrival", "burst"} {
		if !got[k] {
			return p, fmt.Errorf("%w process %s", ErrMissingParameter, k)
		}
	}

	return p, nil
}

// ParseYAML reads the YAML form. Unknown keys are rejected.
func ParseYAML(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading YAML input: %w", err)
	}
	var raw struct {
		ProcessCount *int              `yaml:"processcount"`
		RunFor       *int              `yaml:"runfor"`
		Use          *string           `yaml:"use"`
		Quantum      *int              `yaml:"quantum"`
		Processes    []process.Process `yaml:"processes"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	cfg := &Config{Processes: raw.Processes, seen: make(map[string]bool)}
	if raw.ProcessCount != nil {
		cfg.ProcessCount, cfg.seen["processcount"] = *raw.ProcessCount, true
	}
	if raw.RunFor != nil {
		cfg.RunFor, cfg.seen["runfor"] = *raw.RunFor, true
	}
	if raw.Use != nil {
		cfg.Use, cfg.seen["use"] = *raw.Use, true
	}
	if raw.Quantum != nil {
		if *raw.Quantum < 1 {
			return nil, fmt.Errorf("%w: quantum %d", ErrInvalidValue, *raw.Quantum)
		}
		cfg.Quantum, cfg.seen["quantum"] = *raw.Quantum, true
	}

	return cfg, nil
}

// Validate checks the configuration is complete and consistent.
func (c *Config) Validate() error {
	for _, k := range []string{"processcount", "runfor", "use"} {
		if !c.has(k) {
			return fmt.Errorf("%w %s", ErrMissingParameter, k)
		}
	}
	alg, err := sched.ParseAlgorithm(c.Use)
	if err != nil {
		return err
	}
	switch {
	case alg == sched.RR && !c.has("quantum"):
		return fmt.Errorf("%w quantum", ErrMissingParameter)
	case alg != sched.RR && c.has("quantum"):
		return fmt.Errorf("%w: use is %s", ErrUnexpectedQuantum, alg)
	}
	if c.RunFor < 1 {
		return fmt.Errorf("%w: runfor %d", ErrInvalidValue, c.RunFor)
	}
	if c.ProcessCount != len(c.Processes) {
		return fmt.Errorf("%w: processcount %d, %d processes given", ErrCountMismatch, c.ProcessCount, len(c.Processes))
	}

	names := make(map[string]bool, len(c.Processes))
	for _, p := range c.Processes {
		switch {
		case p.Name == "":
			return fmt.Errorf("%w process name", ErrMissingParameter)
		case names[p.Name]:
			return fmt.Errorf("%w: %s", ErrDuplicateName, p.Name)
		case p.Arrival < 0:
			return fmt.Errorf("%w: %s arrival %d", ErrInvalidValue, p.Name, p.Arrival)
		case p.Burst < 1:
			return fmt.Errorf("%w: %s burst %d", ErrInvalidValue, p.Name, p.Burst)
		}
		names[p.Name] = true
	}

	return nil
}

// has reports whether directive k was given. A Config built in code rather
// than parsed counts non-zero fields as given.
func (c *Config) has(k string) bool {
	if c.seen != nil {
		return c.seen[k]
	}
	switch k {
	case "processcount":
		return c.ProcessCount != 0 || len(c.Processes) == 0
	case "runfor":
		return c.RunFor != 0
	case "use":
		return c.Use != ""
	case "quantum":
		return c.Quantum != 0
	}
	return false
}

// Policy builds the dispatch policy named by the configuration.
func (c *Config) Policy() (sched.Policy, error) {
	alg, err := sched.ParseAlgorithm(c.Use)
	if err != nil {
		return nil, err
	}

	return sched.NewPolicy(alg, c.Quantum)
}

func atoi(key, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", ErrMalformed, key, s)
	}

	return n, nil
}
