// Package labels parses issue-tracker label and version strings such as
// "Feature:Discover" or "Target: 7.9".
package labels

import (
	"regexp"
	"strings"
)

// Label is an issue-tracker label.
type Label struct {
	Name string `json:"name"`
}

// ExtractValue returns the value of the last label named "<key><sep><value>".
// The separator is a single character of any kind.
func ExtractValue(labels []Label, key string) (string, bool) {
	var val string
	found := false
	for _, l := range labels {
		if v, ok := valueOf(l.Name, key); ok {
			val, found = v, true
		}
	}
	return val, found
}

// ExtractValues returns the values of every label with the given key, in
// label order.
func ExtractValues(labels []Label, key string) []string {
	vals := []string{}
	for _, l := range labels {
		if v, ok := valueOf(l.Name, key); ok {
			vals = append(vals, v)
		}
	}
	return vals
}

func valueOf(name, key string) (string, bool) {
	if !strings.HasPrefix(name, key) {
		return "", false
	}
	if len(name) <= len(key)+1 {
		return "", true
	}
	return name[len(key)+1:], true
}

// FindLabel returns the first label with exactly the given name.
func FindLabel(labels []Label, name string) (Label, bool) {
	for _, l := range labels {
		if l.Name == name {
			return l, true
		}
	}
	return Label{}, false
}

// ExtractIssueNumber returns the last path segment of an issue URL.
func ExtractIssueNumber(contentURL string) string {
	i := strings.LastIndex(contentURL, "/")
	return contentURL[i+1:]
}

var versionPattern = regexp.MustCompile(`\d+\.\d+`)

// ExtractVersionNumber returns the first "major.minor" in name.
func ExtractVersionNumber(name string) (string, bool) {
	v := versionPattern.FindString(name)
	return v, v != ""
}
