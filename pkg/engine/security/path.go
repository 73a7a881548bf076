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

// Package security implements the engine's ingestion- and action-time
// guardrails: filesystem path confinement, template/shell denylists, and
// workflow complexity limits.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	engineerrors "github.com/tombee/baton/pkg/engine/errors"
)

// PathConfinement restricts filesystem paths used by actions (e.g. a Shell
// action's working directory, or a future file-reading action) to a root
// directory, with an optional glob denylist evaluated first.
type PathConfinement struct {
	root string
	deny []string
}

// NewPathConfinement builds a confinement rooted at root. Root is resolved
// to an absolute, symlink-free path at construction time so later checks are
// cheap string-prefix comparisons.
func NewPathConfinement(root string, denyPatterns []string) (*PathConfinement, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve confinement root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		resolved = filepath.Clean(abs)
	}
	return &PathConfinement{root: resolved, deny: denyPatterns}, nil
}

// Check canonicalizes path (expanding ~, making it absolute against the
// confinement root, resolving symlinks where possible) and requires the
// result to fall under root and match none of the deny patterns.
func (c *PathConfinement) Check(path string) (string, error) {
	canon, err := c.canonicalize(path)
	if err != nil {
		return "", &engineerrors.SecurityViolationError{Check: "path_confinement", Detail: err.Error()}
	}

	for _, pattern := range c.deny {
		if matched, _ := doublestar.Match(pattern, canon); matched {
			return "", &engineerrors.SecurityViolationError{
				Check:  "path_confinement",
				Detail: fmt.Sprintf("path %q matches deny pattern %q", canon, pattern),
			}
		}
	}

	if canon != c.root && !strings.HasPrefix(canon, c.root+string(filepath.Separator)) {
		return "", &engineerrors.SecurityViolationError{
			Check:  "path_confinement",
			Detail: fmt.Sprintf("path %q escapes confinement root %q", canon, c.root),
		}
	}

	return canon, nil
}

func (c *PathConfinement) canonicalize(path string) (string, error) {
	if err := rejectDangerousComponents(path); err != nil {
		return "", err
	}

	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(c.root, path)
	}

	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved, nil
	}
	return filepath.Clean(path), nil
}

// rejectDangerousComponents rejects a path outright if any of its
// components is a literal ".." (parent-directory reference) or if the path
// is rooted (an absolute "/" reference). This runs before symlink
// resolution: a lexical ".." can be masked by an earlier symlink component
// that filepath.Clean's lexical cancellation wouldn't catch, so the literal
// check must happen on the raw input, not the resolved one.
func rejectDangerousComponents(path string) error {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return fmt.Errorf("path %q contains a parent-directory reference (..)", path)
		}
	}
	if filepath.IsAbs(path) {
		return fmt.Errorf("path %q contains an absolute root reference (/)", path)
	}
	return nil
}
