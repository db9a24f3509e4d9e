package cooldown

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/KanavDutta/cmdcooldown/core"
)

func TestPolicyRecord_Defaults(t *testing.T) {
	got := PolicyRecord{}.Policy()
	if got.AllowedUses != DefaultUses {
		t.Errorf("AllowedUses = %d, want %d", got.AllowedUses, DefaultUses)
	}
	if got.WindowSeconds != DefaultCoolTime {
		t.Errorf("WindowSeconds = %d, want %d", got.WindowSeconds, DefaultCoolTime)
	}

	zero := 0
	got = PolicyRecord{Uses: &zero}.Policy()
	if got.AllowedUses != 0 {
		t.Errorf("explicit uses: 0 resolved to %d", got.AllowedUses)
	}
}

func TestPolicyRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  PolicyRecord
		errType error
	}{
		{name: "plain command", record: Limit(3, 10)},
		{name: "defaults only", record: PolicyRecord{}},
		{name: "permanent block", record: Disabled()},
		{name: "zero window", record: Limit(1, 0)},
		{name: "glued group", record: GluedGroup(2, 60, "a", "b")},
		{name: "negative uses", record: Limit(-1, 10), errType: ErrNegativeUses},
		{name: "negative window with uses", record: Limit(1, -1), errType: ErrInvalidCoolTime},
		{name: "window below sentinel", record: Limit(0, -2), errType: ErrInvalidCoolTime},
		{name: "group without commands", record: Group(1, 10), errType: ErrGroupWithoutCommands},
		{name: "group with empty member", record: Group(1, 10, "a", ""), errType: ErrEmptyCommandName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.errType == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.errType) {
				t.Errorf("Validate() error = %v, want %v", err, tt.errType)
			}
		})
	}
}

func TestConfigSpec_Validate(t *testing.T) {
	spec := ConfigSpec{
		{Name: "ok", Record: Limit(1, 5)},
		{Name: "bad", Record: Limit(-3, 5)},
		{Name: "", Record: Limit(1, 5)},
	}

	if got := len(spec.Issues()); got != 2 {
		t.Fatalf("Issues() = %d, want 2", got)
	}

	err := spec.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
	}
	if !errors.Is(err, ErrNegativeUses) {
		t.Errorf("Validate() error = %v, want ErrNegativeUses", err)
	}
	if !errors.Is(err, ErrEmptyCommandName) {
		t.Errorf("Validate() error = %v, want ErrEmptyCommandName", err)
	}

	if err := (ConfigSpec{{Name: "ok", Record: Limit(1, 5)}}).Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestConfigSpec_YAMLKeepsOrder(t *testing.T) {
	doc := `
zeta: {uses: 1, coolTime: 5}
fun:
  isGroup: true
  glue: true
  uses: 2
  coolTime: 60
  commands: [cat, dog]
alpha: {}
off: {uses: 0, coolTime: -1}
`
	var spec ConfigSpec
	if err := yaml.Unmarshal([]byte(doc), &spec); err != nil {
		t.Fatalf("yaml.Unmarshal() failed: %v", err)
	}

	names := []string{"zeta", "fun", "alpha", "off"}
	if len(spec) != len(names) {
		t.Fatalf("len(spec) = %d, want %d", len(spec), len(names))
	}
	for i, name := range names {
		if spec[i].Name != name {
			t.Errorf("spec[%d].Name = %s, want %s", i, spec[i].Name, name)
		}
	}

	fun := spec[1].Record
	if !fun.IsGroup || !fun.Glue || len(fun.Commands) != 2 {
		t.Errorf("group decoded as %+v", fun)
	}
	if spec[2].Record.Uses != nil || spec[2].Record.CoolTime != nil {
		t.Error("empty entry should leave uses and coolTime unset")
	}
	if !spec[3].Record.Policy().Permanent() {
		t.Error("off should decode as a permanent block")
	}

	out, err := yaml.Marshal(spec)
	if err != nil {
		t.Fatalf("yaml.Marshal() failed: %v", err)
	}
	var again ConfigSpec
	if err := yaml.Unmarshal(out, &again); err != nil {
		t.Fatalf("re-decoding failed: %v", err)
	}
	for i, name := range names {
		if again[i].Name != name {
			t.Errorf("re-encoded order: [%d] = %s, want %s", i, again[i].Name, name)
		}
	}
}

func TestConfigSpec_YAMLRejectsSequence(t *testing.T) {
	var spec ConfigSpec
	err := yaml.Unmarshal([]byte("- ping\n- pong\n"), &spec)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestConfigSpec_JSONKeepsOrder(t *testing.T) {
	doc := `{"b":{"uses":3,"coolTime":10},"grp":{"isGroup":true,"commands":["x","y"]},"a":{"uses":0,"coolTime":-1}}`

	var spec ConfigSpec
	if err := json.Unmarshal([]byte(doc), &spec); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}

	names := []string{"b", "grp", "a"}
	for i, name := range names {
		if spec[i].Name != name {
			t.Errorf("spec[%d].Name = %s, want %s", i, spec[i].Name, name)
		}
	}
	if got := spec[0].Record.Policy(); got != (core.Policy{AllowedUses: 3, WindowSeconds: 10}) {
		t.Errorf("b policy = %+v", got)
	}

	out, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("json.Marshal() failed: %v", err)
	}
	if string(out) != doc {
		t.Errorf("json.Marshal() = %s, want %s", out, doc)
	}
}

func TestConfigSpec_JSONErrors(t *testing.T) {
	tests := []string{`[1,2]`, `{"a":{"uses":"many"}}`, `{"a":`}
	for _, doc := range tests {
		var spec ConfigSpec
		if err := json.Unmarshal([]byte(doc), &spec); err == nil {
			t.Errorf("json.Unmarshal(%s) expected error, got nil", doc)
		}
	}

	var spec ConfigSpec
	if err := json.Unmarshal([]byte(`null`), &spec); err != nil || spec != nil {
		t.Errorf("null should decode to a nil spec, got %v, %v", spec, err)
	}
}

func TestSpecFromMap(t *testing.T) {
	spec := SpecFromMap(map[string]PolicyRecord{
		"pong": Limit(1, 5),
		"ping": Limit(2, 10),
		"fun":  Group(1, 60, "cat"),
	})

	want := []string{"fun", "ping", "pong"}
	for i, name := range want {
		if spec[i].Name != name {
			t.Errorf("spec[%d].Name = %s, want %s", i, spec[i].Name, name)
		}
	}
}

func TestLoadFile(t *testing.T) {
	tmpDir := t.TempDir()

	validConfig := `
defaults:
  ping: {uses: 2, coolTime: 10}
  roll: {uses: 1, coolTime: 5}
guilds:
  "1001":
    roll: {uses: 3, coolTime: 20}
    fun: {isGroup: true, glue: true, uses: 1, coolTime: 60, commands: [cat, dog]}
`
	validPath := filepath.Join(tmpDir, "valid.yaml")
	if err := os.WriteFile(validPath, []byte(validConfig), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	fc, err := LoadFile(validPath)
	if err != nil {
		t.Fatalf("LoadFile() unexpected error: %v", err)
	}

	spec := fc.SpecFor("1001")
	names := []string{"ping", "roll", "roll", "fun"}
	if len(spec) != len(names) {
		t.Fatalf("len(SpecFor) = %d, want %d", len(spec), len(names))
	}
	for i, name := range names {
		if spec[i].Name != name {
			t.Errorf("SpecFor[%d] = %s, want %s", i, spec[i].Name, name)
		}
	}

	if got := len(fc.SpecFor("unknown")); got != 2 {
		t.Errorf("SpecFor(unknown) = %d entries, want the 2 defaults", got)
	}

	invalidPath := filepath.Join(tmpDir, "invalid.yaml")
	if err := os.WriteFile(invalidPath, []byte("defaults: [\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if _, err := LoadFile(invalidPath); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("LoadFile(invalid yaml) error = %v, want ErrInvalidConfig", err)
	}

	badPolicyPath := filepath.Join(tmpDir, "bad_policy.yaml")
	badPolicy := "guilds:\n  \"1\":\n    grp: {isGroup: true}\n"
	if err := os.WriteFile(badPolicyPath, []byte(badPolicy), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if _, err := LoadFile(badPolicyPath); !errors.Is(err, ErrGroupWithoutCommands) {
		t.Errorf("LoadFile(bad policy) error = %v, want ErrGroupWithoutCommands", err)
	}

	if _, err := LoadFile("/nonexistent/file.yaml"); err == nil {
		t.Error("LoadFile() expected error for nonexistent file, got nil")
	}
}

func TestParseFile_Empty(t *testing.T) {
	fc, err := ParseFile([]byte(""))
	if err != nil {
		t.Fatalf("ParseFile() unexpected error: %v", err)
	}
	if fc.Guilds == nil {
		t.Error("Guilds map should be initialized")
	}
	if len(fc.SpecFor("x")) != 0 {
		t.Error("empty file should yield an empty spec")
	}
}
