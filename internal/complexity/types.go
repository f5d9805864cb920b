// Package complexity computes per-function complexity for JavaScript and
// TypeScript sources via tree-sitter. The code metrics sweep records the
// per-file aggregates.
package complexity

// Language is a tree-sitter grammar.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
)

// FunctionComplexity holds metrics for one function, method or arrow function.
type FunctionComplexity struct {
	Name       string `json:"name"`
	StartLine  int    `json:"startLine"`
	EndLine    int    `json:"endLine"`
	Cyclomatic int    `json:"cyclomatic"`
	Cognitive  int    `json:"cognitive"`
}

// FileComplexity aggregates FunctionComplexity over a file.
type FileComplexity struct {
	Path              string               `json:"path"`
	Language          Language             `json:"language"`
	Functions         []FunctionComplexity `json:"functions"`
	FunctionCount     int                  `json:"functionCount"`
	TotalCyclomatic   int                  `json:"totalCyclomatic"`
	MaxCyclomatic     int                  `json:"maxCyclomatic"`
	AverageCyclomatic float64              `json:"averageCyclomatic"`
	MaxCognitive      int                  `json:"maxCognitive"`
	// SyntaxErrors is set when tree-sitter recovered from errors.
	SyntaxErrors bool `json:"syntaxErrors,omitempty"`
}

// Aggregate computes aggregate metrics from function results.
func (fc *FileComplexity) Aggregate() {
	fc.FunctionCount = len(fc.Functions)
	fc.TotalCyclomatic, fc.MaxCyclomatic, fc.MaxCognitive = 0, 0, 0
	for _, f := range fc.Functions {
		fc.TotalCyclomatic += f.Cyclomatic
		if f.Cyclomatic > fc.MaxCyclomatic {
			fc.MaxCyclomatic = f.Cyclomatic
		}
		if f.Cognitive > fc.MaxCognitive {
			fc.MaxCognitive = f.Cognitive
		}
	}
	if fc.FunctionCount > 0 {
		fc.AverageCyclomatic = float64(fc.TotalCyclomatic) / float64(fc.FunctionCount)
	}
}

// LanguageFromExtension returns the grammar for a file extension.
func LanguageFromExtension(ext string) (Language, bool) {
	switch ext {
	case ".js", ".mjs", ".cjs", ".jsx":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	default:
		return "", false
	}
}
