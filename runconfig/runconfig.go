// Package runconfig loads the optional JSON configuration file that
// supplies auth credentials and an override for the CLI's --base-url
// flag.
package runconfig

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
)

// Config is the decoded contents of config.json (spec.md §6). Every
// field is optional; an absent file is not an error -- it yields a zero
// Config and fuzzing proceeds without auth.
type Config struct {
	AuthPath string `json:"auth_path,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	KeyName  string `json:"key_name,omitempty"`
	KeyValue string `json:"key_value,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Load reads and decodes the config file at path. A missing file
// returns a zero Config and no error; a present-but-malformed file
// returns an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("runconfig: reading %s: %w", path, err)
	}
	var cfg Config
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("runconfig: parsing %s: %w", path, err)
	}
	return cfg, nil
}
