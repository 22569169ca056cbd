package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ModelOverrides is the optional claudex.yaml block letting an operator
// extend the model allowlist without a code change for locally-patched
// Claude CLI builds that expose extra model ids.
type ModelOverrides struct {
	AdditionalModels []string `yaml:"additional_models"`
}

// LoadModelOverrides reads path (if it exists) and decodes it as YAML. A
// missing file is not an error — the override block is entirely optional.
func LoadModelOverrides(path string) (ModelOverrides, error) {
	var out ModelOverrides
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, err
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}
