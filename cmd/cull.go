package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/l3uddz/delugetools/client"
	"github.com/l3uddz/delugetools/config"
	"github.com/l3uddz/delugetools/dispatch"
	"github.com/l3uddz/delugetools/evict"
	"github.com/l3uddz/delugetools/expression"
	"github.com/l3uddz/delugetools/logger"
	"github.com/l3uddz/delugetools/pool"
	"github.com/l3uddz/delugetools/report"
)

var (
	flagCullServers []string
	flagCullWorkers int
	flagCullIgnore  []string
	flagCullFreeGB  float64
)

// cullFunc runs one eviction mode against one daemon.
type cullFunc func(ctx context.Context, log *logrus.Entry, c client.Interface) (evict.Result, error)

var cullCmd = &cobra.Command{
	Use:   "cull",
	Short: "Remove torrents from every daemon in the pool",
	Long:  `This command can be used to remove unregistered torrents, or the oldest torrents until enough space is free.`,

	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Usage()
		cmd.PrintErrln("No action specified")
		os.Exit(2)
	},
}

var cullUnregCmd = &cobra.Command{
	Use:   "unreg",
	Short: "Remove torrents the tracker reports as unregistered",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runCull(cmd, "unreg", func(e *evict.Executor) (cullFunc, error) {
			return e.Unregistered, nil
		})
	},
}

var cullSpaceCmd = &cobra.Command{
	Use:   "space",
	Short: "Remove the oldest torrents until enough space is free",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runCull(cmd, "space", func(e *evict.Executor) (cullFunc, error) {
			if flagCullFreeGB < 0 {
				return nil, fmt.Errorf("free space must not be negative: %v", flagCullFreeGB)
			}

			want := int64(flagCullFreeGB * humanize.GiByte)
			return func(ctx context.Context, log *logrus.Entry, c client.Interface) (evict.Result, error) {
				return e.Space(ctx, log, c, want)
			}, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(cullCmd)
	cullCmd.AddCommand(cullUnregCmd, cullSpaceCmd)

	cullCmd.PersistentFlags().StringArrayVar(&flagCullServers, "server", nil, "Daemon as user:pass@host[:port] (repeatable)")
	cullCmd.PersistentFlags().IntVar(&flagCullWorkers, "workers", 0, "Daemons culled at once (overrides cull.workers)")
	cullCmd.PersistentFlags().StringArrayVar(&flagCullIgnore, "ignore", nil, "Expression protecting matching torrents (repeatable)")

	cullSpaceCmd.Flags().Float64VarP(&flagCullFreeGB, "free", "f", 0, "Free space wanted on each daemon, in GB")
	_ = cullSpaceCmd.MarkFlagRequired("free")
}

func runCull(cmd *cobra.Command, mode string, build func(*evict.Executor) (cullFunc, error)) {
	// init core
	initCore(true)

	// set log
	log := logger.GetLogger(mode)

	// compile filters
	filter := config.FilterConfiguration{
		Ignore: append(append([]string{}, config.Config.Cull.Filter.Ignore...), flagCullIgnore...),
	}
	exp, err := expression.Compile(&filter)
	if err != nil {
		log.WithError(err).Fatal("Failed compiling ignore expressions")
	}

	workers := config.Config.Cull.Workers
	if flagCullWorkers > 0 {
		workers = flagCullWorkers
	}

	executor := evict.NewExecutor(
		evict.WithIgnore(exp),
		evict.WithRemoveRate(config.Config.Cull.RemoveRate),
		evict.WithDryRun(flagDryRun),
	)

	fn, err := build(executor)
	if err != nil {
		log.WithError(err).Fatal("Invalid cull options")
	}

	// connect
	ctx := cmd.Context()
	p, err := connectPool(ctx, log, flagCullServers, config.Config, delugeFactory(config.Config))
	if err != nil {
		log.WithError(err).Fatal("Failed initializing daemon pool")
	}

	// cull
	r, err := cullPool(ctx, log, p, workers, fn)
	p.Close()
	if err != nil {
		log.WithError(err).Fatal("Failed culling")
	}

	finish(r)
}

// cullPool runs fn against every connected daemon, at most workers at a time.
// Daemons that could not be reached are reported with their connection error.
func cullPool(ctx context.Context, log *logrus.Entry, p *pool.Pool, workers int, fn cullFunc) (*report.CullReport, error) {
	r := report.NewCullReport(serverNames(p))

	var members []*pool.Member
	var keys []string
	for _, m := range p.Members() {
		if !m.Ok() {
			r.Record(m.String(), evict.Result{FreeBytes: -1}, m.Err)
			continue
		}
		members = append(members, m)
		keys = append(keys, m.String())
	}

	if len(members) == 0 {
		return r, nil
	}

	outcomes, err := dispatch.Run(ctx, "cull", workers, log, keys,
		func(ctx context.Context, i int) (evict.Result, error) {
			m := members[i]
			return fn(ctx, log.WithField("server", m.String()), m.Client)
		})
	if err != nil {
		return nil, err
	}

	for _, o := range outcomes {
		if o.Err != nil {
			log.WithError(o.Err).Errorf("Failed culling %s", o.Key)
		}
		r.Record(o.Key, o.Value, o.Err)
	}

	return r, nil
}
