package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/taxa/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "TAXA"

	cfgKeyDataDir = "data_dir"
)

const configHeader = `# taxa configuration
#
# data_dir is optional; --data-dir and TAXA_DATA_DIR override it.
# subjects maps a subject type to the table holding its rows, for example:
#   subjects:
#     post: posts
`

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file on first run. Every key can be overridden from the
// environment with the TAXA_ prefix, e.g. TAXA_ATTACH_POLICY=ignore.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating config dir %s", configDir)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), ""); err != nil {
		return nil, err
	}

	v := viper.New()
	d := types.DefaultConfig()
	v.SetDefault("backend", d.Backend)
	v.SetDefault("driver", d.Driver)
	v.SetDefault("tables.categories", d.Tables.Categories)
	v.SetDefault("tables.associations", d.Tables.Associations)
	v.SetDefault("default_category_type", d.DefaultCategoryType)
	v.SetDefault("attach_policy", string(d.AttachPolicy))
	v.SetDefault("cascade_delete", d.CascadeDelete)
	v.SetDefault("slug_locale", d.SlugLocale)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config")
		}
	}
	return v, nil
}

// backendConfig decodes the loaded settings into a types.Config rooted at
// dataDir.
func backendConfig(v *viper.Viper, dataDir string) (types.Config, error) {
	cfg := types.DefaultConfig()
	if v != nil {
		if err := v.Unmarshal(&cfg); err != nil {
			return types.Config{}, errors.Wrap(err, "decoding config")
		}
	}
	cfg.DataDir = dataDir
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return types.Config{}, errors.WithHint(err, "check config.yaml in the config directory")
	}
	return cfg, nil
}

// writeConfigIfMissing writes the default configuration to path unless a
// file is already there.
func writeConfigIfMissing(path, dataDir string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, "checking config file")
	}

	cfg := types.DefaultConfig()
	cfg.DataDir = dataDir

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&cfg); err != nil {
		return errors.Wrap(err, "encoding default config")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "encoding default config")
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
