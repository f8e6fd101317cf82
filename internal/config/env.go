package config

import (
	"os"
	"regexp"
	"strings"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars expands ${VAR} references from the environment.
// ${VAR:-fallback} expands to the fallback when VAR is unset; a plain
// ${VAR} that is unset stays as written.
func substituteEnvVars(content []byte) []byte {
	return envVarRegex.ReplaceAllFunc(content, func(match []byte) []byte {
		expr := string(envVarRegex.FindSubmatch(match)[1])

		name, fallback, hasFallback := strings.Cut(expr, ":-")
		if value, exists := os.LookupEnv(name); exists {
			return []byte(value)
		}
		if hasFallback {
			return []byte(fallback)
		}
		return match
	})
}
