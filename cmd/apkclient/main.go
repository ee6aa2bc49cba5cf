// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/scc-digitalhub/apkclient-sdk/sdk/services/transfer"
	"github.com/scc-digitalhub/apkclient-sdk/sdk/utils"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	exitOK           = 0
	exitInvalidInput = 10
	exitTransport    = 20
	exitRejected     = 30
	exitLocalIO      = 40
	exitPresentation = 50
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitInvalidInput)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "init":
		runInit(args)
	case "submit-name":
		runTransfer("submit-name", args, 1, func(ctx context.Context, svc *transfer.TransferService, pos []string) (*transfer.Transfer, error) {
			return svc.SubmitName(ctx, pos[0])
		})
	case "submit-link":
		runTransfer("submit-link", args, 1, func(ctx context.Context, svc *transfer.TransferService, pos []string) (*transfer.Transfer, error) {
			return svc.SubmitLink(ctx, pos[0])
		})
	case "upload":
		runTransfer("upload", args, 1, func(ctx context.Context, svc *transfer.TransferService, pos []string) (*transfer.Transfer, error) {
			return svc.UploadFile(ctx, transfer.NewFileSource(pos[0]))
		})
	case "fetch-report":
		runTransfer("fetch-report", args, 0, func(ctx context.Context, svc *transfer.TransferService, _ []string) (*transfer.Transfer, error) {
			return svc.FetchReport(ctx)
		})
	case "-h", "--help", "help":
		printUsage()
	default:
		printUsage()
		os.Exit(exitInvalidInput)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: apkclient <command> [flags]

commands:
  init                       write endpoints and options to ~/.apkclient.ini
  submit-name <name>         send the application name
  submit-link <link>         send the application link
  upload <path.apk>          upload an application package
  fetch-report               download the analysis report and open it`)
}

func runInit(args []string) {
	fs := pflag.NewFlagSet("init", pflag.ExitOnError)
	env := fs.StringP("env", "e", "", "environment (INI section)")
	submit := fs.String("submit-endpoint", "", "submit endpoint URL")
	report := fs.String("report-endpoint", "", "report endpoint URL")
	token := fs.String("access-token", "", "bearer token sent with every request")
	cacheDir := fs.String("cache-dir", "", "directory where uploads are staged")
	reportDir := fs.String("report-dir", "", "directory where the report is saved")
	_ = fs.Parse(args)

	envName, err := utils.RegisterIniCfgWithViper(*env)
	if err != nil {
		exitWith(exitInvalidInput, err)
	}
	for key, val := range map[string]string{
		utils.SubmitEndpoint: *submit,
		utils.ReportEndpoint: *report,
		utils.AccessToken:    *token,
		utils.CacheDir:       *cacheDir,
		utils.ReportDir:      *reportDir,
	} {
		if val != "" {
			viper.Set(key, val)
		}
	}

	path := utils.GetIniPath()
	if err := utils.UpdateIniFromStruct(path, envName); err != nil {
		exitWith(exitLocalIO, fmt.Errorf("failed to write %s: %w", path, err))
	}
	fmt.Fprintf(os.Stderr, "configuration saved to %s [%s]\n", path, envName)
}

func runTransfer(name string, args []string, positional int, start func(context.Context, *transfer.TransferService, []string) (*transfer.Transfer, error)) {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)
	env := fs.StringP("env", "e", "", "environment (INI section)")
	format := fs.StringP("out", "o", "short", "output format: short, json, yaml")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	progress := fs.Bool("progress", false, "show transfer progress")
	noView := fs.Bool("no-view", false, "do not open the fetched report")
	metricsFile := fs.String("metrics-file", "", "write transfer metrics in Prometheus text format to this file on exit")
	_ = fs.Parse(args)

	pos := fs.Args()
	if len(pos) != positional {
		printUsage()
		os.Exit(exitInvalidInput)
	}

	if _, err := utils.RegisterIniCfgWithViper(*env); err != nil {
		exitWith(exitInvalidInput, err)
	}
	if *logLevel != "" {
		viper.Set(utils.LogLevel, *logLevel)
	}
	log := newLogger(viper.GetString(utils.LogLevel))

	cfg, err := utils.LoadConfig()
	if err != nil {
		exitWith(exitInvalidInput, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []transfer.Option{transfer.WithLogger(log)}
	var registry *prometheus.Registry
	if *metricsFile != "" {
		registry = prometheus.NewRegistry()
		opts = append(opts, transfer.WithMetrics(registry))
	}
	if *progress {
		opts = append(opts, transfer.WithProgress(utils.NewProgressLine(os.Stderr, name).Hook()))
	}
	var viewer transfer.Viewer = execViewer{}
	if *noView {
		viewer = printViewer{}
	}

	loop := transfer.NewEventLoop()
	svc, err := transfer.NewTransferService(ctx, cfg, loop, consoleNotifier{log: log}, viewer, opts...)
	if err != nil {
		exitWith(exitInvalidInput, err)
	}

	tr, err := start(ctx, svc, pos)
	if err != nil {
		// validation notifications are already queued
		loop.RunPending()
		svc.Close()
		exportMetrics(*metricsFile, registry, log)
		exitWith(exitCode(err), err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	go func() {
		<-tr.Done()
		cancel()
	}()
	loop.Run(loopCtx)
	svc.Close()
	loop.RunPending()
	exportMetrics(*metricsFile, registry, log)

	if f := utils.TranslateFormat(*format); f != "short" {
		out, err := utils.Render(tr.Result(), f)
		if err != nil {
			exitWith(exitLocalIO, err)
		}
		fmt.Println(string(out))
	} else {
		res := tr.Result()
		fmt.Printf("%s %s %s\n", res.ID, res.Operation, res.Outcome)
	}

	if err := tr.Err(); err != nil {
		os.Exit(exitCode(err))
	}
	os.Exit(exitOK)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// exportMetrics dumps the registry for a textfile collector. Failures are
// only logged.
func exportMetrics(path string, reg *prometheus.Registry, log zerolog.Logger) {
	if path == "" || reg == nil {
		return
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("failed to write metrics")
	}
}

func exitCode(err error) int {
	if errors.Is(err, transfer.ErrServiceClosed) {
		return exitTransport
	}
	switch transfer.KindOf(err) {
	case transfer.KindValidation:
		return exitInvalidInput
	case transfer.KindTransport:
		return exitTransport
	case transfer.KindServerRejected:
		return exitRejected
	case transfer.KindLocalIO:
		return exitLocalIO
	case transfer.KindPresentation:
		return exitPresentation
	}
	return exitInvalidInput
}

func exitWith(code int, err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(code)
}
