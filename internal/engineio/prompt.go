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

package engineio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tombee/baton/pkg/engine/action"
)

// EchoPromptExecutor is a deterministic stand-in for a real AI prompt
// executor. It never calls out to a model; it simply reports what it was
// asked to run. Embedders that want real prompt execution provide their
// own action.PromptExecutor; EchoPromptExecutor exists so `baton run`
// has something to drive out of the box.
//
// Fail, when non-empty, causes Execute to return an error containing that
// text instead of echoing, used to script rate-limit and failure
// scenarios from the command line without a real provider.
type EchoPromptExecutor struct {
	Fail string // if set, Execute returns an error containing this text instead of succeeding
}

// Execute implements action.PromptExecutor.
func (e EchoPromptExecutor) Execute(ctx context.Context, name string, args map[string]string) (action.PromptOutput, error) {
	if e.Fail != "" {
		return action.PromptOutput{}, fmt.Errorf("%s", e.Fail)
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[prompt %s]", name)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%s", k, args[k])
	}
	return action.PromptOutput{Stdout: sb.String()}, nil
}

// StdinConfirmer implements action.UserConfirmer by reading a line from an
// input stream, for a "Wait for user ..." action run interactively from a
// terminal.
type StdinConfirmer struct {
	In io.Reader
}

// Confirm implements action.UserConfirmer.
func (c StdinConfirmer) Confirm(ctx context.Context, message string) error {
	if message != "" {
		fmt.Println(message)
	}
	fmt.Print("press enter to continue> ")
	reader := bufio.NewReader(c.In)
	_, err := reader.ReadString('\n')
	if err == io.EOF {
		return nil
	}
	return err
}
