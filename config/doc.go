// Package config loads application configuration from layered JSON or
// YAML files with environment overrides.
//
// Layers are deep-merged in order, later layers winning per key; built-in
// defaults form the base layer. Variables with the CHRONOSYNTH_ prefix
// override the merged result (connection secrets, metrics toggles), so a
// deployment can keep credentials out of files entirely.
//
// The fields section (the field registry the keyframe language resolves
// against) is validated against a JSON schema before decoding, so a typo
// in a field definition fails the load with the offending key named
// rather than silently producing a zero-valued spec.
//
// Typical use:
//
//	loader := config.NewLoader()
//	loader.AddLayer("base.json")
//	loader.AddLayer("site.yaml")
//	cfg, err := loader.Load()
//	if err != nil {
//		return err
//	}
//	registry, err := cfg.Registry()
package config
