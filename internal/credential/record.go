package credential

import "strings"

// Separator splits a record line into key and value.
const Separator = "|"

// Record is one key|value pair taken from a line of a login payload.
type Record struct {
	Key   string
	Value string
}

// Tokenize splits text into records, one per line. Lines without a
// separator or with an empty key are left out. Order is preserved.
func Tokenize(text string) []Record {
	records, _ := tokenize(text)
	return records
}

func tokenize(text string) (records []Record, dropped int) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, Separator)
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			dropped++
			continue
		}
		records = append(records, Record{Key: key, Value: strings.TrimSpace(value)})
	}
	return records, dropped
}
