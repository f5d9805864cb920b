//go:build cgo

package complexity

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
)

// Analyzer computes complexity metrics for source files.
type Analyzer struct {
	parser *Parser
}

// NewAnalyzer creates a new complexity analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{parser: NewParser()}
}

// AnalyzeSource computes metrics for every function in source.
func (a *Analyzer) AnalyzeSource(ctx context.Context, path string, source []byte, lang Language) (*FileComplexity, error) {
	tree, err := a.parser.Parse(ctx, source, lang)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	root := tree.RootNode()

	fc := &FileComplexity{
		Path:         path,
		Language:     lang,
		Functions:    make([]FunctionComplexity, 0),
		SyntaxErrors: root.HasError(),
	}
	walk(root, func(n *sitter.Node) {
		if functionTypes[n.Type()] {
			fc.Functions = append(fc.Functions, analyzeFunction(n, source))
		}
	})
	fc.Aggregate()
	return fc, nil
}

func analyzeFunction(node *sitter.Node, source []byte) FunctionComplexity {
	start := int(node.StartPoint().Row) + 1
	end := int(node.EndPoint().Row) + 1
	return FunctionComplexity{
		Name:       functionName(node, source),
		StartLine:  start,
		EndLine:    end,
		Cyclomatic: cyclomatic(node),
		Cognitive:  cognitive(node, 0, true),
	}
}

func functionName(node *sitter.Node, source []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return name.Content(source)
	}
	// const handler = () => {} takes the declarator's name.
	if parent := node.Parent(); parent != nil && parent.Type() == "variable_declarator" {
		if name := parent.ChildByFieldName("name"); name != nil {
			return name.Content(source)
		}
	}
	return "<anonymous>"
}

// cyclomatic counts decision points + 1. Nested functions are measured
// separately and do not contribute.
func cyclomatic(fn *sitter.Node) int {
	count := 1
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if functionTypes[child.Type()] {
				continue
			}
			if decisionTypes[child.Type()] && (child.Type() != "binary_expression" || isLogicalOperator(child)) {
				count++
			}
			visit(child)
		}
	}
	visit(fn)
	return count
}

// cognitive weights each decision point by its nesting depth.
func cognitive(n *sitter.Node, nesting int, isRoot bool) int {
	total := 0
	t := n.Type()
	if !isRoot && decisionTypes[t] && (t != "binary_expression" || isLogicalOperator(n)) {
		total += 1 + nesting
	}
	childNesting := nesting
	if !isRoot && nestingTypes[t] {
		childNesting++
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if functionTypes[child.Type()] && !nestingTypes[child.Type()] {
			continue
		}
		total += cognitive(child, childNesting, false)
	}
	return total
}

func walk(n *sitter.Node, fn func(*sitter.Node)) {
	fn(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), fn)
	}
}

// IsAvailable reports whether tree-sitter support is compiled in.
func IsAvailable() bool {
	return true
}
