// Package config loads the optional chameleon.toml project manifest that
// supplies CLI defaults. Its absence is never an error; explicit flags
// always win over whatever it declares.
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/dekarrin/chameleon/internal/chameleon/codegen"
	"github.com/dekarrin/chameleon/internal/chameleon/diag"
)

// FileName is the manifest name looked for in the current working
// directory when no --config flag is given.
const FileName = "chameleon.toml"

// Config holds the defaults a project manifest can declare. Every field is
// optional; the zero value of each means "let the CLI's own default stand."
type Config struct {
	// Entrypoint names the non-terminal generation starts from when
	// --entrypoint is not given explicitly.
	Entrypoint string `toml:"entrypoint"`

	// Prefix is the default symbol prefix passed to codegen when --prefix
	// is not given explicitly.
	Prefix string `toml:"prefix"`

	// OutDir is the directory a relative translate/join --output path is
	// resolved against; an absolute --output path ignores it.
	OutDir string `toml:"out_dir"`

	// Baby, when true, defaults emission to generator-only mode unless
	// --baby is given explicitly (e.g. --baby=false).
	Baby bool `toml:"baby"`
}

// PrefixOrDefault returns c.Prefix, falling back to codegen.DefaultPrefix
// when the manifest left it unset.
func (c Config) PrefixOrDefault() string {
	if c.Prefix == "" {
		return codegen.DefaultPrefix
	}
	return c.Prefix
}

// Load reads and parses the manifest at path. A missing file is not an
// error: it returns a zero Config, exactly as if no manifest applied.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, diag.WrapIO("reading "+path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, diag.WrapIO("parsing "+path, err)
	}
	return cfg, nil
}

// LoadDefault loads FileName from the current working directory, treating
// its absence the same way Load does.
func LoadDefault() (Config, error) {
	return Load(FileName)
}
