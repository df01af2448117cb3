// Package config defines the tunables of setup-nextflow and helpers to load,
// validate and save them in YAML format.
//
// Every field has a default, so the settings file is optional; runner
// environment variables (RUNNER_TOOL_CACHE, RUNNER_TEMP, GITHUB_API_URL)
// fill the locations the file leaves empty.
package config
