// Package ownership reads GitHub CODEOWNERS files. Plugin discovery uses it
// to attribute plugins whose manifest names no owning team.
package ownership

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Rule is a single CODEOWNERS line.
type Rule struct {
	Pattern    string   `json:"pattern"`
	Owners     []string `json:"owners"`
	LineNumber int      `json:"lineNumber"`
	IsNegation bool     `json:"isNegation,omitempty"`

	re *regexp.Regexp
}

// Codeowners is a parsed CODEOWNERS file. Later rules override earlier ones.
type Codeowners struct {
	Path  string `json:"path"`
	Rules []Rule `json:"rules"`
}

// Locations searched by Find, in order.
var Locations = []string{".github/CODEOWNERS", "CODEOWNERS", "docs/CODEOWNERS"}

// Find returns the first CODEOWNERS file under repoRoot, or "".
func Find(repoRoot string) string {
	for _, loc := range Locations {
		p := filepath.Join(repoRoot, loc)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Load parses the repository's CODEOWNERS file. It returns nil and no error
// when the repository has none.
func Load(repoRoot string) (*Codeowners, error) {
	p := Find(repoRoot)
	if p == "" {
		return nil, nil
	}
	return ParseFile(p)
}

// ParseFile parses a CODEOWNERS file from disk.
func ParseFile(filePath string) (*Codeowners, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	c, err := Parse(f)
	if err != nil {
		return nil, err
	}
	c.Path = filePath
	return c, nil
}

// Parse reads CODEOWNERS content. Comment lines, blank lines and rules
// without a valid owner are skipped.
func Parse(r io.Reader) (*Codeowners, error) {
	c := &Codeowners{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if i := strings.Index(line, " #"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if rule, ok := parseLine(line, n); ok {
			c.Rules = append(c.Rules, rule)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

func parseLine(line string, n int) (Rule, bool) {
	fields := strings.Fields(line)
	pattern := fields[0]

	if strings.HasPrefix(pattern, "!") {
		return Rule{Pattern: pattern[1:], LineNumber: n, IsNegation: true, re: compile(pattern[1:])}, true
	}

	var owners []string
	for _, o := range fields[1:] {
		if isValidOwner(o) {
			owners = append(owners, o)
		}
	}
	if len(owners) == 0 {
		return Rule{}, false
	}
	return Rule{Pattern: pattern, Owners: owners, LineNumber: n, re: compile(pattern)}, true
}

// isValidOwner accepts @user, @org/team and email addresses.
func isValidOwner(owner string) bool {
	if strings.HasPrefix(owner, "@") {
		return len(owner) > 1
	}
	return strings.Contains(owner, "@")
}

// OwnersFor returns the owners of a repo-relative path.
func (c *Codeowners) OwnersFor(filePath string) []string {
	if c == nil {
		return nil
	}
	p := strings.TrimPrefix(filepath.ToSlash(filePath), "/")
	var owners []string
	for _, rule := range c.Rules {
		if rule.re == nil || !rule.re.MatchString(p) {
			continue
		}
		if rule.IsNegation {
			owners = nil
		} else {
			owners = rule.Owners
		}
	}
	return owners
}

// TeamFor returns the first owner of a path as a bare team name
// ("@elastic/kibana-core" becomes "kibana-core"), or "".
func (c *Codeowners) TeamFor(filePath string) string {
	owners := c.OwnersFor(filePath)
	if len(owners) == 0 {
		return ""
	}
	return TeamName(owners[0])
}

// TeamName strips the leading "@" and any organization from an owner id.
func TeamName(owner string) string {
	owner = strings.TrimPrefix(owner, "@")
	if i := strings.LastIndex(owner, "/"); i >= 0 {
		return owner[i+1:]
	}
	return owner
}

// compile turns a CODEOWNERS pattern into an anchored regexp over
// repo-relative paths. A pattern matches a path or any of its parents.
func compile(pattern string) *regexp.Regexp {
	pattern = filepath.ToSlash(pattern)
	anchored := strings.HasPrefix(pattern, "/") || strings.Contains(strings.TrimSuffix(pattern, "/"), "/")
	pattern = strings.Trim(pattern, "/")
	if pattern == "" {
		return nil
	}

	var b strings.Builder
	b.WriteString("^")
	if !anchored {
		b.WriteString("(?:.*/)?")
	}
	b.WriteString(globToRegex(pattern))
	b.WriteString("(?:/.*)?$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil
	}
	return re
}

func globToRegex(glob string) string {
	var b strings.Builder
	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch {
		case c == '*' && i+1 < len(glob) && glob[i+1] == '*':
			if i+2 < len(glob) && glob[i+2] == '/' {
				b.WriteString("(?:.*/)?")
				i += 2
			} else {
				b.WriteString(".*")
				i++
			}
		case c == '*':
			b.WriteString("[^/]*")
		case c == '?':
			b.WriteString("[^/]")
		case strings.IndexByte(`.+^$()[]{}|\`, c) >= 0:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
