// Command lgbm-train trains a LightGBM model from a YAML run configuration.
//
//	lgbm-train --config run.yaml
//	lgbm-train --engine memory --config run.yaml   # no native library needed
//	lgbm-train --history runs.db --list 10
package main

import (
	"fmt"
	"os"

	arg "github.com/alexflint/go-arg"

	"github.com/YuminosukeSato/golgbm/pkg/errors"
	"github.com/YuminosukeSato/golgbm/pkg/log"
)

type args struct {
	Config   string `arg:"-c,env:LGBM_CONFIG" help:"run configuration file"`
	Engine   string `arg:"-e" help:"native or memory"`
	LogLevel string `arg:"--log-level,env:LGBM_LOG_LEVEL" help:"overrides log_level from the configuration"`
	History  string `arg:"env:LGBM_HISTORY_DB" help:"run history database; overrides output.history"`
	List     int    `help:"print the latest N runs from the history database and exit"`
}

func (args) Description() string {
	return "Train a LightGBM model described by a YAML run configuration."
}

func main() {
	var a args
	a.Engine = "native"
	arg.MustParse(&a)

	if err := log.Setup("info", os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	err := errors.SafeExecute("lgbm-train", func() error {
		if a.List > 0 {
			return listRuns(os.Stdout, a.History, a.List)
		}
		return run(a, os.Stdout)
	})
	if err != nil {
		log.GetLogger().Error("lgbm-train failed", log.ErrorKey, err)
		os.Exit(1)
	}
}
