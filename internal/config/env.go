package config

import (
	"os"
	"strings"
)

// Environ returns the process environment as a map. Config files can read it
// to parameterize pages.
func Environ() map[string]string {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = pair[1]
		}
	}
	return envMap
}
