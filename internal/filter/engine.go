// Package filter applies cloud-scoped exclusion rules to expanded job specs.
package filter

import (
	"regexp"
	"strings"

	"github.com/cloudmatrix/cloudmatrix/config"
	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
	apperrors "github.com/cloudmatrix/cloudmatrix/internal/errors"
)

// Rule is one compiled exclusion pattern scoped to a single cloud. A job is
// excluded when its serialized parameter string matches the pattern; rules
// never affect jobs of other clouds.
type Rule struct {
	Cloud   string
	Pattern string

	re *regexp.Regexp
}

// Matches reports whether the serialized parameter string is excluded by
// this rule. Matching is unanchored and case-sensitive.
func (r Rule) Matches(paramString string) bool {
	return r.re.MatchString(paramString)
}

// CompileRule compiles a cloud-scoped exclusion pattern.
//
// Patterns are RE2 regular expressions expressing "do not run jobs whose
// parameters match". One legacy idiom is translated: pipeline matrix filters
// written as a negative lookahead `^(?!X)` mean "run only what does not
// match X", so the inner expression X becomes the exclusion pattern. Any
// other lookaround construct is rejected, as is any pattern RE2 cannot
// compile.
func CompileRule(cloud, pattern string) (Rule, error) {
	expr := pattern
	if inner, ok := unwrapNegativeLookahead(expr); ok {
		expr = inner
	}
	if strings.Contains(expr, "(?!") || strings.Contains(expr, "(?=") ||
		strings.Contains(expr, "(?<") {
		return Rule{}, apperrors.Configf(
			"matrix filter %q for cloud %s uses unsupported lookaround syntax", pattern, cloud)
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return Rule{}, apperrors.Wrap(apperrors.ErrCodeConfig,
			"invalid matrix filter "+pattern+" for cloud "+cloud, err)
	}
	return Rule{Cloud: cloud, Pattern: pattern, re: re}, nil
}

// unwrapNegativeLookahead recognizes the `^(?!X)` wrapper and returns X.
func unwrapNegativeLookahead(pattern string) (string, bool) {
	if !strings.HasPrefix(pattern, "^(?!") || !strings.HasSuffix(pattern, ")") {
		return "", false
	}
	inner := pattern[len("^(?!") : len(pattern)-1]
	if inner == "" {
		return "", false
	}
	return inner, true
}

// Skip pairs an excluded spec with the pattern that excluded it, for audit.
type Skip struct {
	Spec    model.JobSpec
	Pattern string
}

// Engine evaluates all compiled rules for a run. Rule evaluation is
// independent per job; the engine is safe for concurrent use after
// construction.
type Engine struct {
	rules map[string][]Rule
}

// NewEngine compiles every MatrixFilters entry in the document. A single
// malformed pattern fails construction: filters must never silently pass
// jobs through.
func NewEngine(doc *config.MatrixDocument) (*Engine, error) {
	rules := make(map[string][]Rule)
	for cloud, cc := range doc.CloudConfig {
		for _, pattern := range cc.MatrixFilters {
			rule, err := CompileRule(cloud, pattern)
			if err != nil {
				return nil, err
			}
			rules[cloud] = append(rules[cloud], rule)
		}
	}
	return &Engine{rules: rules}, nil
}

// Excluded evaluates the rules scoped to the spec's cloud and returns the
// first matching pattern, if any.
func (e *Engine) Excluded(spec model.JobSpec) (string, bool) {
	params := spec.ParamString()
	for _, rule := range e.rules[spec.Cloud] {
		if rule.Matches(params) {
			return rule.Pattern, true
		}
	}
	return "", false
}

// Apply partitions specs into runnable jobs and skips, preserving input
// order. Skipped jobs are reported, never discarded, so they stay visible
// for audit. Applying the same engine to its own survivors skips nothing.
func (e *Engine) Apply(specs []model.JobSpec) ([]model.JobSpec, []Skip) {
	runnable := make([]model.JobSpec, 0, len(specs))
	var skips []Skip
	for _, spec := range specs {
		if pattern, excluded := e.Excluded(spec); excluded {
			skips = append(skips, Skip{Spec: spec, Pattern: pattern})
			continue
		}
		runnable = append(runnable, spec)
	}
	return runnable, skips
}
