package config

import "gopkg.in/yaml.v3"

func yamlUnmarshal(data []byte, cfg *Config) error {
	return yaml.Unmarshal(data, cfg)
}
