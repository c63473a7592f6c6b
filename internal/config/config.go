// Package config holds the toolchain settings that can be given in a TOML
// file. Keys are named exactly like the Go struct fields.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

const (
	BackendInterpreter = "interpreter"
	BackendLLVM        = "llvm"

	DefaultPasses = "instcombine,reassociate,gvn,simplifycfg,mem2reg"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

type BuildConfig struct {
	Output   string
	Clang    string
	Optimize bool
	Passes   string
}

type RunConfig struct {
	Backend  string
	MaxSteps int64
}

type Config struct {
	Build BuildConfig
	Run   RunConfig
}

var Defaults = Config{
	Build: BuildConfig{
		Output:   "a.out",
		Clang:    "clang",
		Optimize: true,
		Passes:   DefaultPasses,
	},
	Run: RunConfig{
		Backend: BackendInterpreter,
	},
}

// Load returns the defaults overridden by the values set in file.
func Load(file string) (Config, error) {
	cfg := Defaults

	f, err := os.Open(file)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	err = Decode(bufio.NewReader(f), &cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	if err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func Decode(r io.Reader, cfg *Config) error {
	return tomlSettings.NewDecoder(r).Decode(cfg)
}

func (c *Config) Validate() error {
	switch c.Run.Backend {
	case BackendInterpreter, BackendLLVM:
	default:
		return fmt.Errorf("unknown backend %q, expected %q or %q", c.Run.Backend, BackendInterpreter, BackendLLVM)
	}

	if c.Run.MaxSteps < 0 {
		return fmt.Errorf("MaxSteps must not be negative, got %d", c.Run.MaxSteps)
	}
	return nil
}

func (c *Config) Marshal() ([]byte, error) {
	return tomlSettings.Marshal(c)
}
