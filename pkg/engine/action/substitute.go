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
	"encoding/json"
	"regexp"
)

// substitutionPattern matches ${NAME} where NAME may contain dots and
// dashes (path-like variable references).
var substitutionPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.\-]*)\}`)

// Substitute replaces every ${NAME} token in s with the most recent value
// bound to NAME in vars. Arrays and objects are serialized as JSON. An
// unknown variable is left verbatim (${missing} stays ${missing}), not an
// error. Substitution is single pass: any ${...} sequence appearing inside
// a substituted value is not re-expanded.
func Substitute(s string, vars map[string]any) string {
	return substitutionPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		val, ok := vars[name]
		if !ok {
			return match
		}
		return stringify(val)
	})
}

// SubstituteMap applies Substitute to every value in m, returning a new map.
func SubstituteMap(m map[string]string, vars map[string]any) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = Substitute(v, vars)
	}
	return out
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
