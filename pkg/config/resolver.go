package config

import (
	"strings"

	"github.com/spf13/viper"
)

// GenerateDiffKey is the resolver key of the diff policy.
const GenerateDiffKey = "pact.verifier.generateDiff"

// Resolver resolves dotted keys such as "pact.verifier.generateDiff".
// Values set with Set win over environment variables, which win over the
// configuration. Variables are named by upper-casing the key and replacing
// dots with underscores (PACT_VERIFIER_GENERATEDIFF).
type Resolver struct {
	v *viper.Viper
}

// NewResolver returns a resolver seeded from cfg. A nil cfg uses Default.
func NewResolver(cfg *Config) *Resolver {
	if cfg == nil {
		cfg = Default()
	}
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if cfg.Verifier.GenerateDiff != "" {
		v.SetDefault(GenerateDiffKey, cfg.Verifier.GenerateDiff)
	}
	return &Resolver{v: v}
}

// Set overrides the value of key.
func (r *Resolver) Set(key, value string) {
	r.v.Set(key, value)
}

// ResolveValue returns the value of key, or defaultValue when unset.
func (r *Resolver) ResolveValue(key, defaultValue string) string {
	if !r.v.IsSet(key) {
		return defaultValue
	}
	return r.v.GetString(key)
}

// MapResolver resolves keys from a map.
type MapResolver map[string]string

// ResolveValue returns the value of key, or defaultValue when absent.
func (m MapResolver) ResolveValue(key, defaultValue string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return defaultValue
}
