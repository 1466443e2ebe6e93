// Package config holds service configuration loaded through viper.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config carries every tunable of the service. Values come from the config
// file, VAS_-prefixed environment variables, or flags, in viper's usual
// precedence order.
type Config struct {
	Server   ServerConfig
	Annotate AnnotateConfig
	REST     RESTConfig
	CLI      CLIConfig
	Upload   UploadConfig
}

type ServerConfig struct {
	Port int
}

type AnnotateConfig struct {
	// Timeout bounds a single backend call.
	Timeout time.Duration
	// Workers bounds batch-annotation parallelism.
	Workers int
}

type RESTConfig struct {
	VEPURL     string
	ClinVarURL string
}

type CLIConfig struct {
	Tool     string
	CacheDir string
	Species  string
	Assembly string
}

type UploadConfig struct {
	MaxBytes int64
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("annotate.timeout", "30s")
	v.SetDefault("annotate.workers", 4)
	v.SetDefault("rest.vep_url", "https://rest.ensembl.org")
	v.SetDefault("rest.clinvar_url", "https://api.ncbi.nlm.nih.gov/variation/v0")
	v.SetDefault("cli.tool", "vep")
	v.SetDefault("cli.cache_dir", "data/vep_cache")
	v.SetDefault("cli.species", "homo_sapiens")
	v.SetDefault("cli.assembly", "GRCh38")
	v.SetDefault("upload.max_bytes", int64(10*1024*1024))
}

// FromViper builds a Config from v's current settings.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port: v.GetInt("server.port"),
		},
		Annotate: AnnotateConfig{
			Timeout: v.GetDuration("annotate.timeout"),
			Workers: v.GetInt("annotate.workers"),
		},
		REST: RESTConfig{
			VEPURL:     v.GetString("rest.vep_url"),
			ClinVarURL: v.GetString("rest.clinvar_url"),
		},
		CLI: CLIConfig{
			Tool:     v.GetString("cli.tool"),
			CacheDir: v.GetString("cli.cache_dir"),
			Species:  v.GetString("cli.species"),
			Assembly: v.GetString("cli.assembly"),
		},
		Upload: UploadConfig{
			MaxBytes: v.GetInt64("upload.max_bytes"),
		},
	}
}

// Default returns a Config with only defaults applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	return FromViper(v)
}
