package driver

import "strings"

// Environment variables exported to the wrapped test command.
const (
	EnvSession   = "ADBREC_SESSION"
	EnvSpec      = "ADBREC_SPEC"
	EnvOutputDir = "ADBREC_OUTPUT_DIR"
)

// BuildChildEnv returns a copy of base with ADBREC_SESSION, ADBREC_SPEC and
// ADBREC_OUTPUT_DIR set, replacing any inherited values. The returned
// slice is suitable for use as exec.Cmd.Env.
func BuildChildEnv(base []string, sessionID, spec, outputDir string) []string {
	overrides := map[string]string{
		EnvSession:   sessionID,
		EnvSpec:      spec,
		EnvOutputDir: outputDir,
	}

	result := make([]string, 0, len(base)+len(overrides))
	for _, env := range base {
		key, _, ok := splitEnvVar(env)
		if ok {
			if _, replaced := overrides[strings.ToUpper(key)]; replaced {
				continue
			}
		}
		result = append(result, env)
	}

	for _, key := range []string{EnvSession, EnvSpec, EnvOutputDir} {
		result = append(result, key+"="+overrides[key])
	}
	return result
}

// splitEnvVar splits an environment variable string "KEY=VALUE" into key and value.
// Returns false if the string doesn't contain '='.
func splitEnvVar(env string) (key, value string, ok bool) {
	idx := strings.IndexByte(env, '=')
	if idx < 0 {
		return "", "", false
	}
	return env[:idx], env[idx+1:], true
}
