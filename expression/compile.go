package expression

import (
	"fmt"

	"github.com/antonmedv/expr"

	"github.com/l3uddz/delugetools/config"
)

// Compile compiles the filter's expressions against the config.Torrent environment.
// A nil filter compiles to an empty set.
func Compile(filter *config.FilterConfiguration) (*Expressions, error) {
	exprEnv := &config.Torrent{}
	exp := new(Expressions)

	if filter == nil {
		return exp, nil
	}

	// compile ignores
	for _, ignoreExpr := range filter.Ignore {
		program, err := expr.Compile(ignoreExpr, expr.Env(exprEnv), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile ignore expression: %q: %w", ignoreExpr, err)
		}

		exp.Ignores = append(exp.Ignores, program)
	}

	return exp, nil
}
