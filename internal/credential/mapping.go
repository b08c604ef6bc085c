package credential

// Keys the dashboard looks for before sending the client on to validation.
const (
	KeyUsername = "username"
	KeyPassword = "password"
)

// Mapping is the canonical field set built from a login payload.
type Mapping map[string]string

// Build folds records into a Mapping. A later record overwrites an earlier
// one with the same key.
func Build(records []Record) Mapping {
	m := make(Mapping, len(records))
	for _, r := range records {
		m[r.Key] = r.Value
	}
	return m
}

// Parse tokenizes text and builds its Mapping. dropped counts the lines
// that were not valid records.
func Parse(text string) (m Mapping, dropped int) {
	records, dropped := tokenize(text)
	return Build(records), dropped
}

// HasLogin reports whether both username and password are present and non-empty.
func (m Mapping) HasLogin() bool {
	return m[KeyUsername] != "" && m[KeyPassword] != ""
}
