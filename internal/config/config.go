// Package config loads pasys options from a TOML file, PASYS_* environment
// variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes the env tag of every option.
const EnvPrefix = "PASYS_"

// DefaultFile is read when present and no other file is named.
const DefaultFile = "pasys.toml"

// Options are the settings shared by every command. Flag names are
// derived from field names ("OutDir" is --out-dir).
type Options struct {
	Config string

	OutDir      string `toml:"out_dir" env:"OUT_DIR"`
	WorkDir     string `toml:"work_dir" env:"WORK_DIR"`
	Format      string `toml:"format" env:"FORMAT"`
	Fetcher     string `toml:"fetcher" env:"FETCHER"`
	Extractor   string `toml:"extractor" env:"EXTRACTOR"`
	BuildSystem string `toml:"build_system" env:"BUILD_SYSTEM"`
	Release     string `toml:"release" env:"RELEASE"`
	URL         string `toml:"url" env:"URL"`
	Catalogue   string `toml:"catalogue" env:"CATALOGUE"`
	Package     string `toml:"package" env:"PACKAGE"`
	MinVersion  string `toml:"min_version" env:"MIN_VERSION"`
	PkgConfig   string `toml:"pkg_config" env:"PKG_CONFIG"`
	OnlyStatic  bool   `toml:"only_static" env:"ONLY_STATIC"`
	Verify      bool   `toml:"verify" env:"VERIFY"`
	Jobs        int    `toml:"jobs" env:"JOBS"`
	KeepSources bool   `toml:"keep_sources" env:"KEEP_SOURCES"`
	LogLevel    string `toml:"log_level" env:"LOG_LEVEL"`
	CgoFile     string `toml:"cgo_file" env:"CGO_FILE"`
	CgoPackage  string `toml:"cgo_package" env:"CGO_PACKAGE"`
}

// LoadConfig fills opts with precedence CLI args > env vars > config
// file. Flags explicitly set on cmd are never overwritten. A missing
// config file is ignored unless it was named on the command line.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changedFlags := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changedFlags[f.Name] = true
			}
		})
	}

	var configPath string
	if f := v.FieldByName("Config"); f.IsValid() {
		configPath = f.String()
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			var config map[string]any
			if err := toml.Unmarshal(data, &config); err != nil {
				return fmt.Errorf("failed to parse TOML config %s: %w", configPath, err)
			}
			for i := 0; i < v.NumField(); i++ {
				fieldType := t.Field(i)
				if changedFlags[fieldNameToFlag(fieldType.Name)] {
					continue
				}
				if tomlPath := fieldType.Tag.Get("toml"); tomlPath != "" {
					if value := getNestedValue(config, tomlPath); value != nil {
						if err := setFieldValue(v.Field(i), value); err != nil {
							return fmt.Errorf("%s: %s: %w", configPath, tomlPath, err)
						}
					}
				}
			}
		case errors.Is(err, fs.ErrNotExist) && !changedFlags["config"]:
		default:
			return err
		}
	}

	for i := 0; i < v.NumField(); i++ {
		fieldType := t.Field(i)
		if changedFlags[fieldNameToFlag(fieldType.Name)] {
			continue
		}
		if envKey := fieldType.Tag.Get("env"); envKey != "" {
			if envValue := os.Getenv(EnvPrefix + envKey); envValue != "" {
				if err := setFieldValueFromString(v.Field(i), envValue); err != nil {
					return fmt.Errorf("%s%s: %w", EnvPrefix, envKey, err)
				}
			}
		}
	}

	return nil
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "OutDir" -> "out-dir", "URL" -> "url".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	var result []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (nextLower && unicode.IsUpper(runes[i-1])) {
				result = append(result, '-')
			}
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data
	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

func setFieldValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("want string, got %T", value)
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", value)
		}
		field.SetBool(b)
	case reflect.Int:
		switch i := value.(type) {
		case int64:
			field.SetInt(i)
		case int:
			field.SetInt(int64(i))
		default:
			return fmt.Errorf("want integer, got %T", value)
		}
	}
	return nil
}

func setFieldValueFromString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	}
	return nil
}

// Validate checks values no single component owns.
func (o *Options) Validate() error {
	if o.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", o.Jobs)
	}
	if o.CgoFile != "" && o.CgoPackage == "" {
		return errors.New("cgo_file needs cgo_package")
	}
	return nil
}
