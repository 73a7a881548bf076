// Copyright 2025 Tom Barlow
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

// Command baton is a minimal command-line surface over the workflow
// execution engine (pkg/engine). It exists to exercise the engine end to
// end from a terminal, not to be a complete product CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/baton/internal/engineio"
	"github.com/tombee/baton/pkg/engine"
	"github.com/tombee/baton/pkg/engine/action"
	"github.com/tombee/baton/pkg/engine/cache"
	"github.com/tombee/baton/pkg/engine/condition"
	"github.com/tombee/baton/pkg/engine/executor"
	"github.com/tombee/baton/pkg/engine/metrics"
	"github.com/tombee/baton/pkg/engine/security"
	"github.com/tombee/baton/pkg/engine/visualize"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "baton:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "baton",
		Short:         "Drive Mermaid-derived workflows with the baton execution engine",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newRunCommand(), newVisualizeCommand())
	return cmd
}

func newRunCommand() *cobra.Command {
	var (
		contextVars []string
		failPrompt  string
	)

	cmd := &cobra.Command{
		Use:   "run <workflow.json>",
		Short: "Execute a workflow definition to completion and print its trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initial, err := parseContextFlags(contextVars)
			if err != nil {
				return err
			}

			eng, wf, err := buildEngineAndWorkflow(args[0], failPrompt)
			if err != nil {
				return err
			}

			run := eng.Start(wf, initial)
			eng.ExecuteState(context.Background(), run)

			trace := visualize.BuildTrace(run)
			out, err := trace.JSON()
			if err != nil {
				return err
			}
			fmt.Println(string(out))

			if run.Status == engine.StatusFailed {
				return fmt.Errorf("run failed: %s: %s", run.ErrorKind, run.ErrorMessage)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&contextVars, "set", nil, "initial context variable as key=value (repeatable)")
	cmd.Flags().StringVar(&failPrompt, "fail-prompt", "", "make every Prompt action fail with this message, for exercising OnFailure branches")
	return cmd
}

func newVisualizeCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "visualize <workflow.json>",
		Short: "Execute a workflow and emit its trace as mermaid, html, or json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, wf, err := buildEngineAndWorkflow(args[0], "")
			if err != nil {
				return err
			}

			run := eng.Start(wf, nil)
			eng.ExecuteState(context.Background(), run)
			trace := visualize.BuildTrace(run)

			switch format {
			case "mermaid":
				fmt.Print(trace.Mermaid())
			case "html":
				fmt.Print(trace.HTML())
			case "json", "":
				out, err := trace.JSON()
				if err != nil {
					return err
				}
				fmt.Println(string(out))
			default:
				return fmt.Errorf("unknown format %q: want mermaid, html, or json", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: mermaid, html, or json")
	return cmd
}

// buildEngineAndWorkflow assembles an executor.Engine with every
// collaborator a standalone CLI run needs: a directory-confined workflow
// source rooted at the definition's own directory (so sub-workflow
// references resolve sibling files), the real OS shell executor, and the
// deterministic echo prompt executor. It then parses the requested
// definition file through it.
func buildEngineAndWorkflow(definitionPath, failPrompt string) (*executor.Engine, *engine.Workflow, error) {
	cfg := engine.DefaultConfig()
	validateOpts := engine.ValidateOptions{MaxComplexity: cfg.Limits.MaxWorkflowComplexity}

	mgr, err := cache.NewManager(cache.ManagerConfig{
		WorkflowCapacity:   cfg.Cache.WorkflowCapacity,
		TransitionCapacity: cfg.Cache.TransitionCapacity,
		TransitionTTL:      cfg.Cache.TransitionTTL,
		ProgramCapacity:    cfg.Cache.CELCapacity,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build cache manager: %w", err)
	}

	cond := condition.New(mgr.Programs, nil)

	root := filepath.Dir(definitionPath)
	source, err := engineio.NewDirectorySource(root, validateOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("build workflow source: %w", err)
	}

	guard := security.NewTemplateGuard(cfg.Security)

	rt := action.NewRuntime(
		engineio.EchoPromptExecutor{Fail: failPrompt},
		engineio.OSShellExecutor{},
		nil, // wired to the Engine itself below, once it exists
		engineio.StdinConfirmer{In: os.Stdin},
		cfg.Timeouts,
		nil,
	)
	rt.Guard = guard

	pipeline := metrics.NewPipeline(cfg.Metrics)
	observer := engineio.NewMetricsObserver(pipeline, nil)

	eng := executor.New(cfg, source, mgr, cond, rt, observer, nil)
	eng.Guard = guard
	rt.SubRun = eng

	data, err := os.ReadFile(definitionPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read workflow file: %w", err)
	}
	wf, err := engineio.ParseDefinition(data, validateOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("parse workflow: %w", err)
	}

	return eng, wf, nil
}

func parseContextFlags(vars []string) (map[string]any, error) {
	out := make(map[string]any, len(vars))
	for _, kv := range vars {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --set %q: want key=value", kv)
		}
		out[parts[0]] = parts[1]
	}
	return out, nil
}
