// Package config handles YAML config file and .env loading for omnialpha.
package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
//   - ${VAR} expands to the value, or empty string if unset
//   - ${VAR:-default} expands to the value, or "default" if unset or empty
//   - ${VAR:?message} expands to the value, or fails with message if unset or empty
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([-?])([^}]*))?\}`)

// MissingEnvError reports a ${VAR:?message} reference to an unset variable.
type MissingEnvError struct {
	Names []string
	Msgs  []string
}

func (e *MissingEnvError) Error() string {
	parts := make([]string, len(e.Names))
	for i, n := range e.Names {
		parts[i] = n
		if e.Msgs[i] != "" {
			parts[i] += ": " + e.Msgs[i]
		}
	}
	return "required environment variables not set: " + strings.Join(parts, "; ")
}

// ExpandEnv replaces variable references in input with environment values.
//
// Unset variables without an operator expand to the empty string. Every
// unset ${VAR:?...} reference is collected into a single *MissingEnvError.
func ExpandEnv(input string) (string, error) {
	var missing *MissingEnvError
	out := envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name, op, arg := groups[1], groups[2], groups[3]

		if value, ok := os.LookupEnv(name); ok && value != "" {
			return value
		}
		switch op {
		case "-":
			return arg
		case "?":
			if missing == nil {
				missing = &MissingEnvError{}
			}
			missing.Names = append(missing.Names, name)
			missing.Msgs = append(missing.Msgs, arg)
		}
		return ""
	})
	if missing != nil {
		return "", missing
	}
	return out, nil
}
