package expression

import "github.com/antonmedv/expr/vm"

type Expressions struct {
	Ignores []*vm.Program
}
