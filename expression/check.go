package expression

import (
	"fmt"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"

	"github.com/l3uddz/delugetools/config"
)

// ShouldIgnore reports whether any ignore expression matches t.
func (e *Expressions) ShouldIgnore(t *config.Torrent) (bool, error) {
	if e == nil {
		return false, nil
	}
	return CheckTorrentSingleMatch(t, e.Ignores)
}

func CheckTorrentSingleMatch(t *config.Torrent, exp []*vm.Program) (bool, error) {
	for _, expression := range exp {
		result, err := expr.Run(expression, t)
		if err != nil {
			return false, fmt.Errorf("check expression: %w", err)
		}

		expResult, ok := result.(bool)
		if !ok {
			return false, fmt.Errorf("type assert expression result: %T", result)
		}

		if expResult {
			return true, nil
		}
	}

	return false, nil
}
