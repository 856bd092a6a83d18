package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-faster/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/arnac-io/safegift/pkg/app"
	"github.com/arnac-io/safegift/pkg/harness"
	"github.com/arnac-io/safegift/pkg/sentry"
)

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "fork, deploy the Safe and the gift module, then run all scenarios",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "format",
			Usage: "report format, text or json; overrides REPORT_FORMAT",
		},
		&cli.StringSliceFlag{
			Name:  "scenario",
			Usage: "run only the named scenarios, in the default order",
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.log.Sync() //nolint:errcheck
		if err := sentry.Init(e.cfg.App.SentryDSN); err != nil {
			e.log.Warn("sentry disabled", zap.Error(err))
		}
		defer sentry.Flush()
		app.ServeMetrics(ctx, e.cfg.App.MetricsPort, e.log)

		backend, source, err := e.backend(ctx)
		if err != nil {
			return err
		}
		defer backend.Close()

		h, err := harness.New(backend, source, e.ring, harness.Config{
			ForkURL:   e.forkURL(),
			ForkBlock: e.cfg.Node.ForkBlock,
			Amount:    e.cfg.Gift.Amount,
		}, harness.WithLogger(e.log))
		if err != nil {
			return err
		}
		d, err := h.Setup(ctx)
		if err != nil {
			return errors.Wrap(err, "setup")
		}
		scenarios, err := selectScenarios(cctx.StringSlice("scenario"))
		if err != nil {
			return err
		}
		results, runErr := harness.NewSuite(h, d).Run(ctx, scenarios)

		format := harness.Format(e.cfg.App.ReportFormat)
		if f := cctx.String("format"); f != "" {
			format = harness.Format(f)
		}
		if err := harness.WriteReport(cctx.App.Writer, format, results); err != nil {
			return err
		}
		return runErr
	},
}

func selectScenarios(names []string) ([]harness.Scenario, error) {
	all := harness.Scenarios()
	if len(names) == 0 {
		return all, nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []harness.Scenario
	for _, sc := range all {
		if wanted[sc.Name] {
			out = append(out, sc)
			delete(wanted, sc.Name)
		}
	}
	for _, n := range names {
		if wanted[n] {
			return nil, fmt.Errorf("unknown scenario %q", n)
		}
	}
	return out, nil
}
