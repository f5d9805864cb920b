//go:build cgo

package complexity

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Parser wraps a tree-sitter parser. It is not safe for concurrent use;
// give each worker its own.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a new tree-sitter parser.
func NewParser() *Parser {
	return &Parser{parser: sitter.NewParser()}
}

// Parse parses source and returns the tree. Callers own the tree and
// should Close it once done with its nodes.
func (p *Parser) Parse(ctx context.Context, source []byte, lang Language) (*sitter.Tree, error) {
	tsLang, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}
	p.parser.SetLanguage(tsLang)
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return tree, nil
}

// Close releases the underlying parser.
func (p *Parser) Close() {
	p.parser.Close()
}

func getLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

var functionTypes = map[string]bool{
	"function_declaration":           true,
	"function_expression":            true,
	"function":                       true,
	"arrow_function":                 true,
	"method_definition":              true,
	"generator_function_declaration": true,
	"generator_function":             true,
}

var decisionTypes = map[string]bool{
	"if_statement":       true,
	"for_statement":      true,
	"for_in_statement":   true,
	"while_statement":    true,
	"do_statement":       true,
	"switch_case":        true,
	"catch_clause":       true,
	"ternary_expression": true,
	"binary_expression":  true,
}

var nestingTypes = map[string]bool{
	"if_statement":        true,
	"for_statement":       true,
	"for_in_statement":    true,
	"while_statement":     true,
	"do_statement":        true,
	"switch_statement":    true,
	"try_statement":       true,
	"arrow_function":      true,
	"function_expression": true,
	"function":            true,
}

// IsFunctionNode reports whether a node type starts a function body.
func IsFunctionNode(nodeType string) bool {
	return functionTypes[nodeType]
}

// isLogicalOperator reports whether a binary_expression is && ?? or ||.
func isLogicalOperator(node *sitter.Node) bool {
	op := node.ChildByFieldName("operator")
	if op == nil {
		return false
	}
	switch op.Type() {
	case "&&", "||", "??":
		return true
	}
	return false
}
