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

package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tombee/baton/pkg/engine"
	engineerrors "github.com/tombee/baton/pkg/engine/errors"
)

// substitutionToken matches the ${NAME} tokens pkg/engine/action.Substitute
// expands, so a size/count check can be run before a description reaches
// the action parser.
var substitutionToken = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_.\-]*\}`)

// DefaultShellDenyPatterns covers the dangerous-command family relevant to
// the engine's Shell action.
var DefaultShellDenyPatterns = []string{
	"rm -rf /*",
	"rm -rf ~*",
	"* > /dev/sd*",
	"mkfs.*",
	":(){ :|:& };:",
}

var shellMetacharacterChain = regexp.MustCompile(`[;&|]{2,}`)

// Open/close tags of the template control structures that can nest. The
// open pattern's word boundary keeps it from matching the corresponding
// end tag ("{% endif" does not start with "if").
var (
	templateOpenTag  = regexp.MustCompile(`\{%-?\s*(if|unless|for|capture|tablerow)\b`)
	templateCloseTag = regexp.MustCompile(`\{%-?\s*end(if|unless|for|capture|tablerow)\b`)
)

// TemplateGuard enforces the template-safety caps (size, variable count,
// nesting depth) and the Shell action's deny-pattern/metacharacter checks,
// sized from engine.SecurityConfig.
type TemplateGuard struct {
	cfg          engine.SecurityConfig
	denyPatterns []string
	directives   []deniedDirective
}

// deniedDirective is one compiled entry of the directive denylist: the
// configured name plus a pattern anchored on the {% ... %} tag syntax, so
// the name appearing as ordinary prose does not trip the check.
type deniedDirective struct {
	name    string
	pattern *regexp.Regexp
}

// NewTemplateGuard builds a guard from cfg. Shell-specific checks use
// DefaultShellDenyPatterns; cfg.TemplateDenyPatterns governs
// CheckTemplateText's directive denylist. Entries may be bare directive
// names ("include") or already tag-prefixed ("{% include"); both compile to
// the same anchored pattern.
func NewTemplateGuard(cfg engine.SecurityConfig) *TemplateGuard {
	g := &TemplateGuard{cfg: cfg, denyPatterns: DefaultShellDenyPatterns}
	for _, directive := range cfg.TemplateDenyPatterns {
		name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(directive), "{%"))
		if name == "" {
			continue
		}
		g.directives = append(g.directives, deniedDirective{
			name:    name,
			pattern: regexp.MustCompile(`\{%-?\s*` + regexp.QuoteMeta(name) + `\b`),
		})
	}
	return g
}

// CheckTemplateText enforces the size cap (10x for trusted sources),
// the substitution-token count cap, the directive denylist (reject if any
// of cfg.TemplateDenyPatterns' directives appear in {% ... %} tag form),
// and the nesting-depth cap against raw, pre-substitution text.
func (g *TemplateGuard) CheckTemplateText(text string, trusted bool) error {
	limit := g.cfg.MaxTemplateSize
	if limit <= 0 {
		limit = 100_000
	}
	if trusted {
		mult := g.cfg.TemplateTrustedMultiplier
		if mult <= 0 {
			mult = 10
		}
		limit *= mult
	}
	if len(text) > limit {
		return &engineerrors.SecurityViolationError{
			Check:  "template_size",
			Detail: fmt.Sprintf("template is %d bytes, exceeds cap %d", len(text), limit),
		}
	}

	if !trusted {
		maxVars := g.cfg.MaxTemplateVariables
		if maxVars <= 0 {
			maxVars = 1000
		}
		if n := len(substitutionToken.FindAllString(text, -1)); n > maxVars {
			return &engineerrors.SecurityViolationError{
				Check:  "template_variables",
				Detail: fmt.Sprintf("template references %d variables, exceeds cap %d", n, maxVars),
			}
		}

		for _, d := range g.directives {
			if d.pattern.MatchString(text) {
				return &engineerrors.SecurityViolationError{
					Check:  "template_directive",
					Detail: fmt.Sprintf("template contains denied directive %q", d.name),
				}
			}
		}

		maxNesting := g.cfg.MaxTemplateRecursionDepth
		if maxNesting <= 0 {
			maxNesting = 10
		}
		if depth := templateNestingDepth(text); depth > maxNesting {
			return &engineerrors.SecurityViolationError{
				Check:  "template_nesting",
				Detail: fmt.Sprintf("template nests %d levels deep, exceeds cap %d", depth, maxNesting),
			}
		}
	}

	return nil
}

// templateNestingDepth returns the deepest open-tag nesting reached while
// scanning text's control structures in order. Unbalanced close tags never
// drive the depth negative.
func templateNestingDepth(text string) int {
	opens := templateOpenTag.FindAllStringIndex(text, -1)
	closes := templateCloseTag.FindAllStringIndex(text, -1)

	depth, maxDepth := 0, 0
	i, j := 0, 0
	for i < len(opens) || j < len(closes) {
		if j >= len(closes) || (i < len(opens) && opens[i][0] < closes[j][0]) {
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
			i++
		} else {
			if depth > 0 {
				depth--
			}
			j++
		}
	}
	return maxDepth
}

// CheckShellCommand rejects a fully-substituted shell command that matches
// a glob deny pattern or chains shell metacharacters suspiciously
// (e.g. "a ;; b").
func (g *TemplateGuard) CheckShellCommand(command string) error {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return &engineerrors.SecurityViolationError{Check: "shell_command", Detail: "empty command"}
	}

	for _, pattern := range g.denyPatterns {
		if matched, _ := doublestar.Match(pattern, trimmed); matched {
			return &engineerrors.SecurityViolationError{
				Check:  "shell_command",
				Detail: fmt.Sprintf("command matches deny pattern %q", pattern),
			}
		}
	}

	if shellMetacharacterChain.MatchString(trimmed) {
		return &engineerrors.SecurityViolationError{
			Check:  "shell_command",
			Detail: "command chains multiple shell metacharacters",
		}
	}

	return nil
}
