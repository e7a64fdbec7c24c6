// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command notestore opens the local note storage of an account,
// prints its schema version and entity counts, and runs search expressions.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/notestore/notestore/build/version"
	"github.com/notestore/notestore/internal/localstorage"
	"github.com/notestore/notestore/internal/localstorage/sqlite"
	"github.com/notestore/notestore/internal/util/debugbuild"
	"github.com/notestore/notestore/internal/util/logging"
	"github.com/notestore/notestore/internal/util/must"
	"github.com/notestore/notestore/internal/util/observability"
	"github.com/notestore/notestore/internal/util/state"
)

// The cli struct represents all command-line commands, fields and flags.
// It's used for parsing the user input.
//
//nolint:lll // some tags are long
var cli struct {
	Version bool   `default:"false" help:"Print version to stdout and exit." env:"-"`
	Dir     string `default:"."     help:"Root directory of local storages and process state."`

	Account struct {
		Name string `default:"Default" help:"Account name."`
		Type string `default:"local"   help:"${help_account_type}"                enum:"${enum_account_type}"`
		Host string `default:""        help:"Evernote service host."`
		ID   int32  `default:"0"       help:"Evernote user id."                   name:"id"`
	} `embed:"" prefix:"account-"`

	OverrideLock     bool `default:"false" help:"Open the storage even if it is locked by another process."`
	StartFromScratch bool `default:"false" help:"Remove the existing storage database first."`

	Log struct {
		Level  string `default:"${default_log_level}" help:"${help_log_level}"`
		Format string `default:"console"              help:"${help_log_format}"                     enum:"${enum_log_format}"`
		UUID   bool   `default:"false"                help:"Add instance UUID to all log messages." negatable:""`
	} `embed:"" prefix:"log-"`

	Output         string `default:"yaml"  help:"${help_output}"                          enum:"${enum_output}"`
	WithBinaryData bool   `default:"false" help:"Include resource bodies in found notes."`
	DumpMetrics    bool   `default:"false" help:"Dump metrics to stderr on exit."`

	OTel struct {
		Traces struct {
			URL string `default:"" help:"OpenTelemetry OTLP/HTTP traces endpoint URL (e.g. 'http://host:4318/v1/traces')."`
		} `embed:"" prefix:"traces-"`
	} `embed:"" prefix:"otel-"`

	Queries []string `arg:"" optional:"" help:"Search expressions to run."`
}

// Additional variables for the kong parsers.
var (
	logLevels = []string{
		zap.DebugLevel.String(),
		zap.InfoLevel.String(),
		zap.WarnLevel.String(),
		zap.ErrorLevel.String(),
	}

	accountTypes = []string{
		localstorage.AccountTypeLocal.String(),
		localstorage.AccountTypeEvernote.String(),
	}

	kongOptions = []kong.Option{
		kong.Vars{
			"default_log_level": defaultLogLevel().String(),

			"enum_account_type": strings.Join(accountTypes, ","),
			"enum_log_format":   strings.Join(logging.Formats(), ","),
			"enum_output":       strings.Join(outputFormats, ","),

			"help_account_type": fmt.Sprintf("Account type: '%s'.", strings.Join(accountTypes, "', '")),
			"help_log_format":   fmt.Sprintf("Log format: '%s'.", strings.Join(logging.Formats(), "', '")),
			"help_log_level":    fmt.Sprintf("Log level: '%s'.", strings.Join(logLevels, "', '")),
			"help_output":       fmt.Sprintf("Output format: '%s'.", strings.Join(outputFormats, "', '")),
		},
		kong.DefaultEnvars("NOTESTORE"),
	}
)

func main() {
	kong.Parse(&cli, kongOptions...)

	os.Exit(run())
}

// defaultLogLevel returns the default log level.
func defaultLogLevel() zapcore.Level {
	if version.Get().DebugBuild {
		return zap.DebugLevel
	}

	return zap.InfoLevel
}

// setupState setups state provider.
func setupState() *state.Provider {
	var f string

	// https://github.com/alecthomas/kong/issues/389
	if cli.Dir != "" && cli.Dir != "-" {
		var err error
		if f, err = filepath.Abs(filepath.Join(cli.Dir, "state.json")); err != nil {
			log.Fatalf("Failed to get path for state file: %s.", err)
		}
	}

	sp, err := state.NewProvider(f)
	if err != nil {
		log.Fatalf("Failed to create state provider: %s.", err)
	}

	return sp
}

// setupMetrics setups Prometheus metrics registerer with some metrics.
func setupMetrics(stateProvider *state.Provider) prometheus.Registerer {
	r := prometheus.DefaultRegisterer
	r.MustRegister(stateProvider.MetricsCollector(false))

	return r
}

// setupLogger setups zap logger.
func setupLogger(stateProvider *state.Provider) *zap.Logger {
	info := version.Get()

	startupFields := []zap.Field{
		zap.String("version", info.Version),
		zap.String("commit", info.Commit),
		zap.String("branch", info.Branch),
		zap.Bool("dirty", info.Dirty),
		zap.String("package", info.Package),
		zap.Bool("debugBuild", info.DebugBuild),
		zap.Any("buildEnvironment", info.BuildEnvironment),
	}

	level, err := zapcore.ParseLevel(cli.Log.Level)
	if err != nil {
		log.Fatal(err)
	}

	l := logging.Setup(level, cli.Log.Format)

	// unless requested, don't add UUID to all messages, but log it once at startup
	if uuid := stateProvider.Get().UUID; cli.Log.UUID {
		l = l.With(zap.String("uuid", uuid))
		zap.ReplaceGlobals(l)
	} else {
		startupFields = append(startupFields, zap.String("uuid", uuid))
	}

	l.Info("Starting notestore "+info.Version+"...", startupFields...)

	if debugbuild.Enabled {
		l.Info("This is debug build. The performance will be affected.")
	}

	return l
}

// accountFromFlags returns the account described by command-line flags.
func accountFromFlags() *localstorage.Account {
	a := &localstorage.Account{
		Name:   cli.Account.Name,
		Type:   localstorage.AccountTypeLocal,
		Host:   cli.Account.Host,
		UserID: cli.Account.ID,
	}

	if cli.Account.Type == localstorage.AccountTypeEvernote.String() {
		a.Type = localstorage.AccountTypeEvernote
	}

	return a
}

// dumpMetrics dumps all Prometheus metrics to stderr.
func dumpMetrics() {
	mfs := must.NotFail(prometheus.DefaultGatherer.Gather())

	for _, mf := range mfs {
		must.NotFail(expfmt.MetricFamilyToText(os.Stderr, mf))
	}
}

// run sets up environment based on provided flags, runs search expressions, and returns exit code.
func run() int {
	// to increase a chance of resource finalizers to spot problems
	if debugbuild.Enabled {
		defer func() {
			runtime.GC()
			runtime.GC()
		}()
	}

	info := version.Get()

	if cli.Version {
		fmt.Fprintln(os.Stdout, "version:", info.Version)
		fmt.Fprintln(os.Stdout, "commit:", info.Commit)
		fmt.Fprintln(os.Stdout, "branch:", info.Branch)
		fmt.Fprintln(os.Stdout, "dirty:", info.Dirty)
		fmt.Fprintln(os.Stdout, "package:", info.Package)
		fmt.Fprintln(os.Stdout, "debugBuild:", info.DebugBuild)

		return 0
	}

	stateProvider := setupState()

	metricsRegisterer := setupMetrics(stateProvider)

	logger := setupLogger(stateProvider)

	if _, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Debugf)); err != nil {
		logger.Sugar().Warnf("Failed to set GOMAXPROCS: %s.", err)
	}

	shutdownOtel, err := observability.SetupOtel("notestore", cli.OTel.Traces.URL)
	if err != nil {
		logger.Sugar().Fatalf("Failed to setup OpenTelemetry: %s.", err)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := shutdownOtel(ctx); err != nil {
			logger.Sugar().Warnf("Failed to shutdown OpenTelemetry: %s.", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	account := accountFromFlags()

	s, err := sqlite.Open(ctx, &sqlite.OpenParams{
		Dir:              cli.Dir,
		Account:          account,
		OverrideLock:     cli.OverrideLock,
		StartFromScratch: cli.StartFromScratch,
		L:                logger,
	})
	if err != nil {
		logger.Error("Failed to open storage", zap.Error(err))
		return 1
	}

	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("Failed to close storage", zap.Error(err))
		}
	}()

	metricsRegisterer.MustRegister(s)

	// storage metrics are dumped before it is closed
	if cli.DumpMetrics || info.DebugBuild {
		defer dumpMetrics()
	}

	if err = stateProvider.Update(func(st *state.State) { st.LastAccount = account.Dir(cli.Dir) }); err != nil {
		logger.Warn("Failed to update state", zap.Error(err))
	}

	r, err := buildReport(ctx, s, &reportParams{
		Account:        account,
		Dir:            cli.Dir,
		Queries:        cli.Queries,
		WithBinaryData: cli.WithBinaryData,
		Now:            time.Now(),
		L:              logger,
	})
	if err != nil {
		logger.Error("Failed to build report", zap.Error(err))
		return 1
	}

	if err = writeReport(os.Stdout, r, cli.Output); err != nil {
		logger.Error("Failed to write report", zap.Error(err))
		return 1
	}

	for _, sr := range r.Searches {
		if sr.Error != "" {
			return 2
		}
	}

	return 0
}
