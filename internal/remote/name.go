package remote

import "regexp"

// Managed artifact names are "<id>.<ext>" where id is alphanumeric or
// underscore and ext is one of the formats this job produces. Anything else
// under the prefix is a foreign object and is never touched.
var artifactNamePattern = regexp.MustCompile(`^([A-Za-z0-9_]+)\.(pdf|rtf)$`)

// IDFromName extracts the row id encoded in an artifact name. The second
// return value is false when the name does not follow the managed convention.
func IDFromName(name string) (string, bool) {
	m := artifactNamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}
