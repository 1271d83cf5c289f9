package retry

import (
	"sync"

	"github.com/perihelion-io/backstop/policy"
)

var (
	globalExecOnce sync.Once
	globalExec     *Executor

	globalStratOnce sync.Once
	globalStrat     Strategy
)

// DefaultExecutor returns the shared, lazily-initialized executor with
// default options.
func DefaultExecutor() *Executor {
	globalExecOnce.Do(func() {
		globalExec = NewExecutor()
	})
	return globalExec
}

// DefaultStrategy returns a shared standard strategy resolved from the
// built-in defaults. Calls routed through it share one quota bucket.
func DefaultStrategy() Strategy {
	globalStratOnce.Do(func() {
		globalStrat = NewStandard(policy.Default(), nil)
	})
	return globalStrat
}
