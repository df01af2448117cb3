package actions

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Input names declared by the action.
const (
	InputToken   = "token"
	InputVersion = "version"
	InputAll     = "all"

	// DefaultVersion is used when the version input is empty.
	DefaultVersion = "latest-stable"
)

// errNotCoreSchemaBoolean is returned when a boolean input is not a YAML 1.2 core schema boolean.
var errNotCoreSchemaBoolean = errors.New(`input does not meet YAML 1.2 "Core Schema" specification`)

// Inputs are the values a workflow passes to the action.
type Inputs struct {
	// Token authenticates calls to the GitHub Releases API.
	Token string
	// Version is the version specifier to resolve.
	Version string
	// All selects the self-contained "-all" distribution.
	All bool
}

// InputEnvName returns the environment variable the runner uses for an input.
func InputEnvName(name string) string {
	return "INPUT_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
}

// LoadInputs reads the action inputs through lookup (os.LookupEnv when nil).
func LoadInputs(lookup func(string) (string, bool)) (*Inputs, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	get := func(name string) string {
		value, _ := lookup(InputEnvName(name))
		return strings.TrimSpace(value)
	}

	all, err := ParseBool(get(InputAll))
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", InputAll, err)
	}

	inputs := &Inputs{
		Token:   get(InputToken),
		Version: get(InputVersion),
		All:     all,
	}

	if inputs.Version == "" {
		inputs.Version = DefaultVersion
	}

	return inputs, nil
}

// ParseBool accepts only YAML 1.2 core schema booleans. Empty means false.
func ParseBool(value string) (bool, error) {
	switch value {
	case "", "false", "False", "FALSE":
		return false, nil
	case "true", "True", "TRUE":
		return true, nil
	default:
		return false, fmt.Errorf("%q: %w", value, errNotCoreSchemaBoolean)
	}
}
