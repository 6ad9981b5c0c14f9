package lightgbm

import (
	"time"

	"github.com/YuminosukeSato/golgbm/capi"
	"github.com/YuminosukeSato/golgbm/pkg/errors"
	"github.com/YuminosukeSato/golgbm/pkg/log"
)

// boost runs up to budget boosting iterations. It stops early when the
// engine reports that it is finished or a callback sets StopTraining.
func (m *Model) boost(budget int, callbacks []Callback) error {
	start := time.Now()
	for i := 0; i < budget; i++ {
		var finished int32
		status := m.surface.BoosterUpdateOneIter(m.handle, &finished)
		if err := capi.Check(m.surface, capi.OpBoosterUpdateOneIter, status); err != nil {
			return errors.Wrapf(err, "iteration %d", i)
		}
		if finished != 0 {
			m.logger.Info("engine cannot improve further",
				log.IterationKey, i,
				log.FinishedKey, true,
			)
			return nil
		}
		m.iterations++
		m.logger.Debug("iteration done", log.IterationKey, i, log.BudgetKey, budget)

		if len(callbacks) == 0 {
			continue
		}
		env := &CallbackEnv{
			Model:     m,
			Iteration: i,
			Budget:    budget,
			Elapsed:   time.Since(start),
		}
		for _, cb := range callbacks {
			if err := cb(env); err != nil {
				return errors.Wrapf(err, "callback at iteration %d", i)
			}
		}
		if env.StopTraining {
			m.logger.Info("training stopped by callback", log.IterationKey, i)
			return nil
		}
	}
	return nil
}
