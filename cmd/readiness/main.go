package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/Readiness/internal/config"
)

var version = "0.1.0"

func main() {
	var envFile string
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:           "readiness",
		Short:         "APS maturity assessment server and admin tools",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				*cfg = config.Load(envFile)
			} else {
				*cfg = config.Load()
			}
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default .env)")

	root.AddCommand(
		newServeCmd(cfg),
		newMigrateCmd(cfg),
		newCheckCmd(cfg),
		newReorderCmd(cfg),
		newUserCmd(cfg),
	)

	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, ee.msg)
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func exitError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}
