package lmtest

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/lemonade-sdk/server-test-harness/framework"
	"github.com/lemonade-sdk/server-test-harness/framework/helpers"
)

// Filter is a component that can determine whether to run a specific test or not.
type Filter interface {
	Match(id TestID) bool
}

// SelfDescribingFilter is implemented by filters that can print a summary of their criteria
// at the start of a test run.
type SelfDescribingFilter interface {
	Describe(out io.Writer, supportedCapabilities framework.Capabilities, importantCapabilities framework.Capabilities)
}

type RegexFilters struct {
	MustMatch    TestIDPatternList
	MustNotMatch TestIDPatternList
}

func (r RegexFilters) Match(id TestID) bool {
	return (!r.MustMatch.IsDefined() || r.MustMatch.AnyMatch(id, true)) &&
		!r.MustNotMatch.AnyMatch(id, false)
}

func (r RegexFilters) Describe(
	out io.Writer,
	supportedCapabilities framework.Capabilities,
	importantCapabilities framework.Capabilities,
) {
	if r.MustMatch.IsDefined() || r.MustNotMatch.IsDefined() {
		helpers.MustFprintln(out, "Some tests will be skipped based on the filter criteria for this test run:")
		if r.MustMatch.IsDefined() {
			helpers.MustFprintf(out, "  skip any not matching %s\n", r.MustMatch)
		}
		if r.MustNotMatch.IsDefined() {
			helpers.MustFprintf(out, "  skip any matching %s\n", r.MustNotMatch)
		}
		helpers.MustFprintln(out)
	}

	if len(importantCapabilities) != 0 {
		var missingCapabilities []string
		for _, c := range importantCapabilities {
			if !supportedCapabilities.Has(c) {
				missingCapabilities = append(missingCapabilities, c)
			}
		}
		if len(missingCapabilities) > 0 {
			helpers.MustFprintln(out, "Some tests will be skipped because the configured backends do not support the following capabilities:")
			helpers.MustFprintf(out, "  %s\n", strings.Join(missingCapabilities, ", "))
			helpers.MustFprintln(out)
		}
	}
}

type TestIDPattern []*regexp.Regexp

func (p TestIDPattern) Match(id TestID, includeParents bool) bool {
	min := len(p)
	if min > len(id) {
		if !includeParents {
			return false
		}
		min = len(id)
	}
	for i := 0; i < min; i++ {
		if !p[i].MatchString(id[i]) {
			return false
		}
	}
	return true
}

func (p TestIDPattern) String() string {
	ss := make([]string, 0, len(p))
	for _, c := range p {
		ss = append(ss, c.String())
	}
	return strings.Join(ss, "/")
}

func ParseTestIDPattern(s string) (TestIDPattern, error) {
	parts := strings.Split(s, "/")
	ret := make(TestIDPattern, 0, len(parts))
	for _, part := range parts {
		rx, err := regexp.Compile(part)
		if err != nil {
			return nil, fmt.Errorf("invalid regex: %w", err)
		}
		ret = append(ret, rx)
	}
	return ret, nil
}

type TestIDPatternList []TestIDPattern

func (l TestIDPatternList) String() string {
	ss := make([]string, 0, len(l))
	for _, p := range l {
		ss = append(ss, `"`+p.String()+`"`)
	}
	return strings.Join(ss, " or ")
}

// Set is called by the command line parser
func (l *TestIDPatternList) Set(value string) error {
	p, err := ParseTestIDPattern(value)
	if err != nil {
		return err
	}
	*l = append(*l, p)
	return nil
}

func (l TestIDPatternList) IsDefined() bool {
	return len(l) != 0
}

func (l TestIDPatternList) AnyMatch(id TestID, includeParents bool) bool {
	for _, p := range l {
		if p.Match(id, includeParents) {
			return true
		}
	}
	return false
}
