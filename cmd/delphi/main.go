// Copyright 2025 Kadir Pekel
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

// Command delphi answers questions from live web search results.
//
// Usage:
//
//	delphi ask "question" --config config.yaml
//	delphi ask "follow-up" --session 7e2f…
//	delphi validate --config config.yaml
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/delphi/pkg/config"
	"github.com/kadirpekel/delphi/pkg/pipeline"
)

// CLI defines the command-line interface.
type CLI struct {
	Ask      AskCmd      `cmd:"" help:"Answer a question from live web search results."`
	Validate ValidateCmd `cmd:"" help:"Validate configuration file."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// AskCmd runs one query through the pipeline.
type AskCmd struct {
	Query   string `arg:"" help:"The question to answer."`
	Session string `short:"s" help:"Session id to resume (empty = new session)."`
	JSON    bool   `help:"Print the full result as JSON."`
}

func (c *AskCmd) Run(cli *CLI) error {
	cfg, err := config.LoadOrDefault(cli.Config)
	if err != nil {
		return err
	}

	sys, err := pipeline.NewSystem(cfg, c.Session)
	if err != nil {
		return err
	}
	defer sys.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	result := sys.ProcessQuery(ctx, c.Query)

	if c.JSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		if !result.Success {
			os.Exit(1)
		}
		return nil
	}

	if !result.Success {
		return fmt.Errorf("query failed: %s", result.Error)
	}

	fmt.Println(result.Response.Answer)
	if len(result.Response.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range result.Response.Sources {
			fmt.Printf("  - %s\n", src)
		}
	}
	fmt.Printf("\nSession: %s  (%.2fs)\n", sys.SessionID(), result.ProcessingTime)
	return nil
}

// ValidateCmd checks a configuration file.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.LoadOrDefault(cli.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Println("Configuration is valid.")
	return nil
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("delphi version %s\n", version)
	return nil
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("delphi"),
		kong.Description("delphi - web search question answering pipeline"),
		kong.UsageOnError(),
	)

	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
