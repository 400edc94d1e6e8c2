package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/bnema/jaywl/internal/theme"
)

// LoadTheme builds the built-in theme.Default() and, if path names an
// existing file, layers a YAML theme.Overlay on top of it (SPEC_FULL
// §3, §5: additive to original_source/src/theme.rs's hardcoded
// defaults). A missing path is not an error; an unreadable or
// malformed one is.
func LoadTheme(path string) (*theme.Theme, error) {
	th := theme.Default()
	if path == "" {
		return th, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return th, nil
		}
		return nil, errors.Wrapf(err, "config: read theme overlay %s", path)
	}

	var overlay theme.Overlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, errors.Wrapf(err, "config: parse theme overlay %s", path)
	}
	if err := th.Apply(overlay); err != nil {
		return nil, errors.Wrapf(err, "config: apply theme overlay %s", path)
	}
	return th, nil
}
