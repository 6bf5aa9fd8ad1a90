package main

import (
	"github.com/spf13/cobra"

	"github.com/ceyewan/cbconf/clog"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "cbconf",
		Short:        "Resolve declarative Couchbase connection definitions",
		Version:      version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "console", "log format: console, json")

	cmd.AddCommand(newParseCmd(opts))
	return cmd
}

// newLogger 日志写到 stderr，stdout 只留给解析结果
func (o *rootOptions) newLogger() (clog.Logger, error) {
	return clog.New(&clog.Config{
		Level:  o.logLevel,
		Format: o.logFormat,
		Output: "stderr",
	})
}
