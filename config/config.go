package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Artifacts struct {
		ScalerPath      string `yaml:"scaler_path"`
		ModelType       string `yaml:"model_type"`
		ModelPath       string `yaml:"model_path"`
		ONNXLibraryPath string `yaml:"onnx_library_path"`
		Watch           bool   `yaml:"watch"`
	} `yaml:"artifacts"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
}

// Default mirrors the file names the models were published under.
func Default() *Config {
	var c Config
	c.Http.Port = 8080
	c.Http.Timeout = 30 * time.Second
	c.Http.AllowedOrigins = []string{"*"}
	c.Log.Level = "info"
	c.Log.Format = "json"
	c.Log.MaxSizeMB = 50
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28
	c.Artifacts.ScalerPath = "preprocessing_objects.json"
	c.Artifacts.ModelType = "random_forest"
	c.Artifacts.ModelPath = "random_forest_obesity_model.json"
	c.Cache.Size = 256
	return &c
}

// Load reads path over the defaults. A missing file is not an error: the
// defaults and environment still apply.
func Load(path string) (*Config, error) {
	config := Default()
	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(config); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
		}
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, config.Validate()
}

func (c *Config) applyEnv() error {
	overrides := []struct {
		key string
		dst *string
	}{
		{"OBESITY_SCALER_PATH", &c.Artifacts.ScalerPath},
		{"OBESITY_MODEL_PATH", &c.Artifacts.ModelPath},
		{"OBESITY_MODEL_TYPE", &c.Artifacts.ModelType},
		{"OBESITY_ONNX_LIBRARY", &c.Artifacts.ONNXLibraryPath},
		{"OBESITY_DB_PATH", &c.Database.Path},
		{"OBESITY_LOG_LEVEL", &c.Log.Level},
		{"OBESITY_LOG_FILE", &c.Log.File},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok {
			*o.dst = v
		}
	}
	if v := os.Getenv("OBESITY_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OBESITY_PORT: %w", err)
		}
		c.Http.Port = port
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	switch c.Artifacts.ModelType {
	case "random_forest", "decision_tree", "onnx":
	default:
		return fmt.Errorf("artifacts.model_type %q not supported", c.Artifacts.ModelType)
	}
	if c.Cache.Size < 0 {
		return errors.New("cache.size must not be negative")
	}
	return nil
}
