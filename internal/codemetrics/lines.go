package codemetrics

import "strings"

// LineCounts splits a file's lines into source, comment and blank lines.
type LineCounts struct {
	Total   int
	Source  int
	Comment int
	Blank   int
}

type commentSyntax struct {
	line       string
	blockOpen  string
	blockClose string
}

var (
	cStyle    = commentSyntax{line: "//", blockOpen: "/*", blockClose: "*/"}
	cssStyle  = commentSyntax{blockOpen: "/*", blockClose: "*/"}
	htmlStyle = commentSyntax{blockOpen: "<!--", blockClose: "-->"}
)

func syntaxFor(ext string) commentSyntax {
	switch ext {
	case "css":
		return cssStyle
	case "html", "htm":
		return htmlStyle
	default:
		return cStyle
	}
}

// CountLines classifies each line of code. A line holding both code and a
// comment counts as source.
func CountLines(code, ext string) LineCounts {
	var lc LineCounts
	if code == "" {
		return lc
	}
	syn := syntaxFor(ext)
	inBlock := false
	for _, line := range strings.Split(strings.TrimSuffix(code, "\n"), "\n") {
		lc.Total++
		text := strings.TrimSpace(line)
		if text == "" && !inBlock {
			lc.Blank++
			continue
		}

		hasCode, hasComment := false, inBlock
		for text != "" {
			if inBlock {
				i := strings.Index(text, syn.blockClose)
				if i < 0 {
					text = ""
					break
				}
				text = strings.TrimSpace(text[i+len(syn.blockClose):])
				inBlock = false
				continue
			}
			if syn.line != "" && strings.HasPrefix(text, syn.line) {
				hasComment = true
				break
			}
			if strings.HasPrefix(text, syn.blockOpen) {
				hasComment = true
				inBlock = true
				text = text[len(syn.blockOpen):]
				continue
			}
			hasCode = true
			next := len(text)
			if i := strings.Index(text, syn.blockOpen); i >= 0 {
				next = i
			}
			if syn.line != "" {
				if i := strings.Index(text, syn.line); i >= 0 && i < next {
					next = i
				}
			}
			text = strings.TrimSpace(text[next:])
		}

		switch {
		case hasCode:
			lc.Source++
		case hasComment:
			lc.Comment++
		default:
			lc.Blank++
		}
	}
	return lc
}
