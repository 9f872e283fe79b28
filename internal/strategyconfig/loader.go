package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigDir is where the YAML bundle lives relative to the working
// directory.
const DefaultConfigDir = "configs"

// OverridesFile is the store of applied manual overrides, merged on load.
const OverridesFile = "overrides_applied.yml"

// Load reads the YAML bundle from dir, applies overrides_applied.yml when
// present, and validates the result. Unknown YAML fields fail immediately.
func Load(dir string) (*Bundle, error) {
	if dir == "" {
		dir = DefaultConfigDir
	}

	bundle := Default()

	files := map[string]any{
		"provider.yml":  &bundle.Provider,
		"strategy.yml":  &bundle.Strategy,
		"universe.yml":  &bundle.Universe,
		"workspace.yml": &bundle.Workspace,
	}
	for name, target := range files {
		path := filepath.Join(dir, name)
		if err := decodeFile(path, target); err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}

	if err := applyOverrides(filepath.Join(dir, OverridesFile), &bundle); err != nil {
		return nil, fmt.Errorf("apply overrides: %w", err)
	}

	if err := Validate(&bundle); err != nil {
		return nil, err
	}

	return &bundle, nil
}

// decodeFile strictly decodes one YAML file into target. A missing file is
// not an error; the defaults stand.
func decodeFile(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(target)
}

// applyOverrides merges the applied-overrides document over the bundle.
// The file holds nested keys mirroring the bundle layout, e.g.
// strategy.liquidity_filters.max_weight_pct_of_adv.
func applyOverrides(path string, bundle *Bundle) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var overrides map[string]any
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return err
	}
	if len(overrides) == 0 {
		return nil
	}

	base, err := toMap(bundle)
	if err != nil {
		return err
	}
	merged := mergeMaps(base, overrides)

	remarshaled, err := yaml.Marshal(merged)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(remarshaled, bundle)
}

func toMap(bundle *Bundle) (map[string]any, error) {
	raw, err := yaml.Marshal(bundle)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// mergeMaps deep-merges override values over base, replacing scalars and
// lists, descending into nested maps.
func mergeMaps(base, overrides map[string]any) map[string]any {
	for key, value := range overrides {
		if subOverride, ok := value.(map[string]any); ok {
			if subBase, ok := base[key].(map[string]any); ok {
				base[key] = mergeMaps(subBase, subOverride)
				continue
			}
		}
		base[key] = value
	}
	return base
}

// Hash generates a SHA-256 hash of the bundle from its canonical JSON
// encoding. Stamped onto runs for reproducibility audits.
func Hash(bundle *Bundle) (string, error) {
	jsonBytes, err := json.Marshal(bundle)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
