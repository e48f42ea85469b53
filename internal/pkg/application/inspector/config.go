package inspector

import (
	"io"
	"strings"

	"github.com/diwise/odata-values/pkg/odata/types/descriptors"
	yaml "gopkg.in/yaml.v2"
)

type OutputConfig struct {
	Indent string `yaml:"indent"`
}

type Config struct {
	RefreshInterval int          `yaml:"refreshInterval"`
	Output          OutputConfig `yaml:"output"`
	Model           string       `yaml:"model"`
}

func (cfg *Config) LoadModel() (*descriptors.Model, error) {
	return descriptors.LoadModel(strings.NewReader(cfg.Model))
}

func LoadConfiguration(data io.Reader) (*Config, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(buf, &cfg)

	return cfg, err
}
