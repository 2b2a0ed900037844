// Package config loads symdbg settings from $HOME/.symdbg/config.yaml,
// flags and the environment.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"go.uber.org/atomic"

	"github.com/hitzhangjie/symdbg/pkg/symres"
)

const (
	KeyCacheDir   = "symbols.cache_dir"
	KeyStore      = "symbols.store"
	KeyUndecorate = "symbols.undecorate"
	KeySearchPath = "symbols.search_path"
	KeyLabelsFile = "labels.file"

	configDirName  = ".symdbg"
	configFileName = "config"
	envPrefix      = "SYMDBG"
)

// Settings the loaded configuration. The undecorate toggle may be flipped
// at runtime by the shell; every other value is fixed after Load.
type Settings struct {
	v          *viper.Viper
	undecorate *atomic.Bool
}

var _ symres.Config = (*Settings)(nil)

// Load reads the config file. An empty cfgFile means
// $HOME/.symdbg/config.yaml; a missing default file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Settings, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("find home dir err: %v", err)
	}
	base := filepath.Join(home, configDirName)

	v.SetDefault(KeyCacheDir, filepath.Join(base, "symbols"))
	v.SetDefault(KeyStore, symres.DefaultSymbolStore)
	v.SetDefault(KeyUndecorate, true)
	v.SetDefault(KeySearchPath, "")
	v.SetDefault(KeyLabelsFile, filepath.Join(base, "labels.yaml"))

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(base)
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, fmt.Errorf("read config err: %v", err)
		}
	}

	return &Settings{
		v:          v,
		undecorate: atomic.NewBool(v.GetBool(KeyUndecorate)),
	}, nil
}

// UndecorateNames reports whether symbolic names are shown demangled
func (s *Settings) UndecorateNames() bool {
	return s.undecorate.Load()
}

// SetUndecorateNames changes the demangle display preference
func (s *Settings) SetUndecorateNames(on bool) {
	s.undecorate.Store(on)
}

// SymbolCacheDir the local symbol cache, with ~ expanded
func (s *Settings) SymbolCacheDir() string {
	return s.path(KeyCacheDir)
}

// SymbolStore the remote symbol store used by symdownload
func (s *Settings) SymbolStore() string {
	return s.v.GetString(KeyStore)
}

// SearchPath the initial symbol search path. When none is configured the
// cache directory is searched.
func (s *Settings) SearchPath() string {
	if path := s.v.GetString(KeySearchPath); path != "" {
		return path
	}
	return s.SymbolCacheDir()
}

// LabelsFile where user labels are persisted
func (s *Settings) LabelsFile() string {
	return s.path(KeyLabelsFile)
}

// ConfigFile the config file actually read, empty if none
func (s *Settings) ConfigFile() string {
	return s.v.ConfigFileUsed()
}

func (s *Settings) path(key string) string {
	p := s.v.GetString(key)
	if expanded, err := homedir.Expand(p); err == nil {
		return expanded
	}
	return p
}
