package security

import (
	"strings"
)

// sensitiveEnvPrefixes are environment variable prefixes stripped from the
// sync procedure's environment. The procedure only receives the secrets
// injected explicitly from the CredentialStore.
var sensitiveEnvPrefixes = []string{
	"NOTION_",
	"GITHUB_TOKEN",
	"GH_TOKEN",
	"GITLAB_TOKEN",
	"AWS_SECRET",
	"AWS_SESSION_TOKEN",
	"SYNC_GATEWAY_",
}

// sensitiveEnvExact are environment variable names that are stripped exactly.
var sensitiveEnvExact = map[string]struct{}{
	"AWS_SECRET_ACCESS_KEY": {},
	"DATABASE_URL":          {},
	"DB_PASSWORD":           {},
	"GIT_ASKPASS":           {},
}

// minLiteralLen is the shortest secret value redacted by literal match.
// Shorter values ("1", "yes") would shred unrelated text.
const minLiteralLen = 8

// ProcedureEnv builds the environment of the sync procedure from base
// (usually os.Environ()). Sensitive variables and any variable the store
// defines are dropped from base, then the store's entries are appended so
// injected secrets always win.
func ProcedureEnv(base []string, store *CredentialStore) []string {
	var injected map[string]struct{}
	var extra []string
	if store != nil {
		names := store.Names()
		injected = make(map[string]struct{}, len(names))
		for _, n := range names {
			injected[strings.ToUpper(n)] = struct{}{}
		}
		extra = store.Environ()
	}

	result := make([]string, 0, len(base)+len(extra))
	for _, entry := range base {
		key, _, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if isSensitiveEnvVar(key) {
			continue
		}
		if _, dup := injected[strings.ToUpper(key)]; dup {
			continue
		}
		result = append(result, entry)
	}

	return append(result, extra...)
}

// isSensitiveEnvVar checks if an environment variable name matches
// a known sensitive prefix or exact name.
func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)

	if _, ok := sensitiveEnvExact[upper]; ok {
		return true
	}

	for _, prefix := range sensitiveEnvPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}

	return false
}
