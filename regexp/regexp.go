package regexp

import (
	"fmt"
	stdlib "regexp"

	gore2 "github.com/wasilibs/go-re2"
)

// engine is an internal interface satisfied by both *stdlib.Regexp and *gore2.Regexp.
type engine interface {
	MatchString(s string) bool
	FindStringSubmatch(s string) []string
	FindAllStringSubmatch(s string, n int) [][]string
	String() string
}

// Regexp wraps a compiled regular expression. It is a concrete struct
// so that *Regexp works as a normal pointer (not pointer-to-interface).
type Regexp struct{ e engine }

func (r *Regexp) MatchString(s string) bool {
	return r.e.MatchString(s)
}
func (r *Regexp) FindStringSubmatch(s string) []string {
	return r.e.FindStringSubmatch(s)
}
func (r *Regexp) FindAllStringSubmatch(s string, n int) [][]string {
	return r.e.FindAllStringSubmatch(s, n)
}
func (r *Regexp) String() string {
	return r.e.String()
}

const (
	EngineStdlib = "stdlib"
	EngineRE2    = "re2"
)

var currentEngine = EngineStdlib

// Version returns the name of the active regex engine.
func Version() string { return currentEngine }

// SetEngine selects the regex engine used by subsequent Compile calls.
func SetEngine(name string) error {
	switch name {
	case EngineStdlib, EngineRE2:
		currentEngine = name
		return nil
	default:
		return fmt.Errorf("regexp: unknown engine %q", name)
	}
}

// Compile compiles a regular expression using the currently selected engine.
func Compile(str string) (*Regexp, error) {
	var (
		impl engine
		err  error
	)
	if currentEngine == EngineRE2 {
		impl, err = gore2.Compile(str)
	} else {
		impl, err = stdlib.Compile(str)
	}
	if err != nil {
		return nil, err
	}
	return &Regexp{e: impl}, nil
}

// MustCompile is like Compile but panics if the expression cannot be parsed.
func MustCompile(str string) *Regexp {
	r, err := Compile(str)
	if err != nil {
		panic("regexp: Compile(" + str + "): " + err.Error())
	}
	return r
}
