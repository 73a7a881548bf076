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

package action

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	engineerrors "github.com/tombee/baton/pkg/engine/errors"
)

// Anchored patterns, compiled once at package init and reused. Each action
// shape gets exactly one pattern; the leading verb is matched
// case-insensitively.
var (
	promptPattern = regexp.MustCompile(`(?is)^execute\s+prompt\s+"([^"]*)"(?:\s+with\s+(.*))?$`)

	waitDurationPattern = regexp.MustCompile(`(?is)^wait\s+(\d+)\s*(seconds?|sec|minutes?|min|hours?|hour|s|m|h)$`)
	waitForUserPattern  = regexp.MustCompile(`(?is)^wait\s+for\s+user.*$`)

	logPattern = regexp.MustCompile(`(?is)^log(?:\s+(error|warning))?\s+"([^"]*)"$`)

	setPattern = regexp.MustCompile(`(?is)^set\s+(\S+)\s*=\s*"([^"]*)"$`)

	subWorkflowPattern = regexp.MustCompile(`(?is)^(?:run\s+workflow|delegate\s+to)\s+"([^"]*)"(?:\s+with\s+(.*))?$`)

	shellPattern = regexp.MustCompile(`(?is)^shell\s+"([^"]*)"$`)

	// argPairPattern extracts "key=\"value\"" pairs from a "with ..." suffix.
	argPairPattern = regexp.MustCompile(`(\S+?)\s*=\s*"([^"]*)"`)

	validArgKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)
	validVarNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Parse converts a state's free-form description into at most one Action.
// It returns (nil, nil) when the description matches no known pattern (the
// state is a pure transition point). It returns a non-nil error only when
// the description matches a pattern's shape but contains a malformed
// identifier or value, a distinct outcome from "no match".
//
// Parse is pure: no I/O, no context access.
func Parse(stateID, description string) (Action, error) {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return nil, nil
	}

	if m := promptPattern.FindStringSubmatch(trimmed); m != nil {
		args, err := parseArgs(m[2])
		if err != nil {
			return nil, parseErr(stateID, trimmed, err.Error())
		}
		return Prompt{Name: m[1], Args: args}, nil
	}

	if m := waitDurationPattern.FindStringSubmatch(trimmed); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, parseErr(stateID, trimmed, "invalid wait duration number")
		}
		d, err := waitUnitDuration(n, m[2])
		if err != nil {
			return nil, parseErr(stateID, trimmed, err.Error())
		}
		return Wait{Duration: d, HasWait: true}, nil
	}

	if waitForUserPattern.MatchString(trimmed) {
		return Wait{Message: trimmed}, nil
	}

	if m := logPattern.FindStringSubmatch(trimmed); m != nil {
		level := LogInfo
		switch strings.ToLower(m[1]) {
		case "error":
			level = LogError
		case "warning":
			level = LogWarning
		}
		return Log{Level: level, Message: m[2]}, nil
	}

	if m := setPattern.FindStringSubmatch(trimmed); m != nil {
		if !validVarNamePattern.MatchString(m[1]) {
			return nil, parseErr(stateID, trimmed, fmt.Sprintf("invalid variable name %q", m[1]))
		}
		return SetVariable{Name: m[1], Value: m[2]}, nil
	}

	if m := subWorkflowPattern.FindStringSubmatch(trimmed); m != nil {
		args, err := parseArgs(m[2])
		if err != nil {
			return nil, parseErr(stateID, trimmed, err.Error())
		}
		return SubWorkflow{Name: m[1], InputVariables: args}, nil
	}

	if m := shellPattern.FindStringSubmatch(trimmed); m != nil {
		return Shell{Command: m[1]}, nil
	}

	return nil, nil
}

// parseArgs extracts key="value" pairs from a "with ..." suffix (which may
// be empty). Every key must satisfy validArgKeyPattern or parsing fails.
func parseArgs(suffix string) (map[string]string, error) {
	suffix = strings.TrimSpace(suffix)
	if suffix == "" {
		return nil, nil
	}

	matches := argPairPattern.FindAllStringSubmatch(suffix, -1)
	if matches == nil {
		return nil, fmt.Errorf("malformed argument list: %q", suffix)
	}

	args := make(map[string]string, len(matches))
	for _, m := range matches {
		key := m[1]
		if !validArgKeyPattern.MatchString(key) {
			return nil, fmt.Errorf("invalid argument key %q", key)
		}
		args[key] = m[2]
	}
	return args, nil
}

func waitUnitDuration(n int, unit string) (time.Duration, error) {
	switch strings.ToLower(unit) {
	case "s", "sec", "second", "seconds":
		return time.Duration(n) * time.Second, nil
	case "m", "min", "minute", "minutes":
		return time.Duration(n) * time.Minute, nil
	case "h", "hour", "hours":
		return time.Duration(n) * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown wait unit %q", unit)
	}
}

func parseErr(stateID, description, reason string) error {
	return &engineerrors.ActionParseError{
		StateID:     stateID,
		Description: description,
		Reason:      reason,
	}
}
