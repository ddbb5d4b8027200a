package runner

import (
	"fmt"
	"regexp"
	"strings"
)

// Predicate 对新追加的日志行做匹配
type Predicate interface {
	Match(line string) bool
}

// Contains 子串匹配
type Contains string

func (c Contains) Match(line string) bool { return strings.Contains(line, string(c)) }

func (c Contains) String() string { return fmt.Sprintf("contains(%q)", string(c)) }

// Regexp 正则匹配
type Regexp struct {
	re *regexp.Regexp
}

// MatchRegexp 编译正则并返回匹配条件
func MatchRegexp(expr string) (*Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile ready pattern %q: %w", expr, err)
	}
	return &Regexp{re: re}, nil
}

func (r *Regexp) Match(line string) bool { return r.re.MatchString(line) }

func (r *Regexp) String() string { return fmt.Sprintf("regexp(%q)", r.re.String()) }

// PredicateFunc 函数适配器
type PredicateFunc func(line string) bool

func (f PredicateFunc) Match(line string) bool { return f(line) }

func (f PredicateFunc) String() string { return "func" }

func describe(p Predicate) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", p)
}
