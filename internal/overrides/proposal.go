// Package overrides applies manually proposed strategy tweaks pulled from
// the document workspace, with a full audit trail.
package overrides

import "strconv"

// Proposal is one override pulled from the workspace overrides database.
type Proposal struct {
	Field    string
	Value    string
	Author   string
	SourceID string
	Enabled  bool
}

// CoerceValue turns the workspace's string value into a bool, int or
// float when it parses as one, otherwise keeps the string.
func CoerceValue(value string) any {
	switch value {
	case "true", "True", "TRUE":
		return true
	case "false", "False", "FALSE":
		return false
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
