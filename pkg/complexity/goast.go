package complexity

import (
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

// analyzeGo parses Go source with go/parser and computes metrics from the
// AST. Files that do not parse report ok=false so the caller falls back to
// default metrics.
func analyzeGo(code, filePath string) (types.ComplexityMetrics, bool) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, code, parser.ParseComments)
	if err != nil {
		return types.ComplexityMetrics{}, false
	}

	cyclomatic := cyclomaticComplexityGo(file)
	cognitive := cognitiveComplexityGo(file)
	loc := linesOfCode(code, "//", "/*")

	return types.ComplexityMetrics{
		CyclomaticComplexity: cyclomatic,
		CognitiveComplexity:  cognitive,
		LinesOfCode:          loc,
		MaintainabilityIndex: maintainabilityIndex(cyclomatic, loc),
	}, true
}

// cyclomaticComplexityGo counts decision points: if, for, range, non-default
// switch/select clauses, and short-circuit boolean operators. Base is 1.
func cyclomaticComplexityGo(file *ast.File) int {
	complexity := 1
	ast.Inspect(file, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt:
			complexity++
		case *ast.CaseClause:
			if len(node.List) > 0 {
				complexity++
			}
		case *ast.CommClause:
			if node.Comm != nil {
				complexity++
			}
		case *ast.BinaryExpr:
			if node.Op == token.LAND || node.Op == token.LOR {
				complexity++
			}
		}
		return true
	})
	return complexity
}

// cognitiveVisitor walks the AST carrying the current nesting level. Each
// decision node costs 1 + level; boolean operators cost a flat 1; nesting
// grows inside if/for/range/switch/select bodies.
type cognitiveVisitor struct {
	count *int
	level int
}

func (v cognitiveVisitor) Visit(n ast.Node) ast.Visitor {
	if n == nil {
		return nil
	}
	next := v
	switch node := n.(type) {
	case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt:
		*v.count += 1 + v.level
		next.level++
	case *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
		next.level++
	case *ast.CaseClause:
		if len(node.List) > 0 {
			*v.count += v.level // level already includes the enclosing switch
		}
	case *ast.CommClause:
		if node.Comm != nil {
			*v.count += v.level
		}
	case *ast.BinaryExpr:
		if node.Op == token.LAND || node.Op == token.LOR {
			*v.count++
		}
	}
	return next
}

func cognitiveComplexityGo(file *ast.File) int {
	count := 0
	ast.Walk(cognitiveVisitor{count: &count}, file)
	return count
}
