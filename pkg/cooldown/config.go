package cooldown

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/KanavDutta/cmdcooldown/core"
)

const (
	// DefaultUses is applied when an entry leaves out uses
	DefaultUses = 1

	// DefaultCoolTime is applied when an entry leaves out coolTime (seconds)
	DefaultCoolTime = 30
)

// PolicyRecord is one entry of a guild configuration: either a plain command
// policy or a group declaration.
//
// Uses and CoolTime are pointers so an explicit zero can be told apart from
// an absent field.
type PolicyRecord struct {
	// Uses is the allowance per window (default 1)
	Uses *int `yaml:"uses,omitempty" json:"uses,omitempty"`

	// CoolTime is the window in seconds (default 30). -1 with uses 0 blocks the command.
	CoolTime *int `yaml:"coolTime,omitempty" json:"coolTime,omitempty"`

	// IsGroup marks the entry as a group of commands
	IsGroup bool `yaml:"isGroup,omitempty" json:"isGroup,omitempty"`

	// Commands lists the members of a group, in order
	Commands []string `yaml:"commands,omitempty" json:"commands,omitempty"`

	// Glue makes every member share one allowance
	Glue bool `yaml:"glue,omitempty" json:"glue,omitempty"`
}

// Limit builds a plain command policy.
func Limit(uses, coolTime int) PolicyRecord {
	return PolicyRecord{Uses: &uses, CoolTime: &coolTime}
}

// Group builds a group whose members get independent allowances.
func Group(uses, coolTime int, commands ...string) PolicyRecord {
	rec := Limit(uses, coolTime)
	rec.IsGroup = true
	rec.Commands = commands
	return rec
}

// GluedGroup builds a group whose members share one allowance.
func GluedGroup(uses, coolTime int, commands ...string) PolicyRecord {
	rec := Group(uses, coolTime, commands...)
	rec.Glue = true
	return rec
}

// Disabled builds a policy that blocks a command for everyone.
func Disabled() PolicyRecord {
	return Limit(0, core.PermanentWindow)
}

// Policy resolves the record into a core policy, applying defaults.
func (r PolicyRecord) Policy() core.Policy {
	p := core.Policy{AllowedUses: DefaultUses, WindowSeconds: DefaultCoolTime}
	if r.Uses != nil {
		p.AllowedUses = *r.Uses
	}
	if r.CoolTime != nil {
		p.WindowSeconds = *r.CoolTime
	}
	return p
}

// Validate checks a single record.
func (r PolicyRecord) Validate() error {
	p := r.Policy()
	if p.AllowedUses < 0 {
		return ErrNegativeUses
	}
	if p.WindowSeconds < 0 && !p.Permanent() {
		return ErrInvalidCoolTime
	}
	if r.IsGroup {
		if len(r.Commands) == 0 {
			return ErrGroupWithoutCommands
		}
		for _, name := range r.Commands {
			if name == "" {
				return ErrEmptyCommandName
			}
		}
	}
	return nil
}

// Entry binds a command or group name to its record.
type Entry struct {
	Name   string
	Record PolicyRecord
}

// ConfigSpec is an ordered guild configuration. Later entries overwrite the
// bindings made by earlier ones, so order is kept through YAML and JSON.
type ConfigSpec []Entry

// SpecFromMap builds a spec from a map, ordering entries by name.
func SpecFromMap(m map[string]PolicyRecord) ConfigSpec {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	spec := make(ConfigSpec, 0, len(names))
	for _, name := range names {
		spec = append(spec, Entry{Name: name, Record: m[name]})
	}
	return spec
}

// Issues lists every problem found in the spec.
func (s ConfigSpec) Issues() []error {
	var issues []error
	for _, e := range s {
		if e.Name == "" {
			issues = append(issues, fmt.Errorf("%w: %w", ErrInvalidConfig, ErrEmptyCommandName))
			continue
		}
		if err := e.Record.Validate(); err != nil {
			issues = append(issues, fmt.Errorf("%w: entry %q: %w", ErrInvalidConfig, e.Name, err))
		}
	}
	return issues
}

// Validate joins every issue into a single error, or returns nil.
func (s ConfigSpec) Validate() error {
	return errors.Join(s.Issues()...)
}

// UnmarshalYAML decodes a mapping while keeping document order.
func (s *ConfigSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.AliasNode {
		value = value.Alias
	}
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*s = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: expected a mapping of command names", ErrInvalidConfig, value.Line)
	}

	out := make(ConfigSpec, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]

		var rec PolicyRecord
		if err := val.Decode(&rec); err != nil {
			return fmt.Errorf("%w: entry %q: %v", ErrInvalidConfig, key.Value, err)
		}
		out = append(out, Entry{Name: key.Value, Record: rec})
	}
	*s = out
	return nil
}

// MarshalYAML encodes the spec as an ordered mapping.
func (s ConfigSpec) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range s {
		val := &yaml.Node{}
		if err := val.Encode(e.Record); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Name},
			val,
		)
	}
	return node, nil
}

// UnmarshalJSON decodes an object while keeping key order.
func (s *ConfigSpec) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: expected an object of command names", ErrInvalidConfig)
	}

	var out ConfigSpec
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		name, _ := tok.(string)

		var rec PolicyRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("%w: entry %q: %v", ErrInvalidConfig, name, err)
		}
		out = append(out, Entry{Name: name, Record: rec})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	*s = out
	return nil
}

// MarshalJSON encodes the spec as an ordered object.
func (s ConfigSpec) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		rec, err := json.Marshal(e.Record)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(rec)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FileConfig is the on-disk layout: shared defaults plus per-guild entries.
type FileConfig struct {
	// Defaults are prepended to every guild's spec and instantiated per guild
	Defaults ConfigSpec `yaml:"defaults,omitempty"`

	// Guilds maps guild ids to their own entries
	Guilds map[string]ConfigSpec `yaml:"guilds,omitempty"`
}

// LoadFile reads and validates a YAML configuration file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrInvalidConfig, err)
	}
	return ParseFile(data)
}

// ParseFile decodes and validates YAML configuration bytes.
func ParseFile(data []byte) (*FileConfig, error) {
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalidConfig, err)
	}
	if fc.Guilds == nil {
		fc.Guilds = make(map[string]ConfigSpec)
	}
	if err := fc.Validate(); err != nil {
		return nil, err
	}
	return &fc, nil
}

// Validate checks the defaults and every guild spec.
func (f *FileConfig) Validate() error {
	if err := f.Defaults.Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	for guildID, spec := range f.Guilds {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("guild %s: %w", guildID, err)
		}
	}
	return nil
}

// SpecFor returns the defaults followed by the guild's own entries.
func (f *FileConfig) SpecFor(guildID string) ConfigSpec {
	guild := f.Guilds[guildID]
	spec := make(ConfigSpec, 0, len(f.Defaults)+len(guild))
	spec = append(spec, f.Defaults...)
	return append(spec, guild...)
}
