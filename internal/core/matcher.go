package core

import (
	"fmt"
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// ArgumentMatcher is an expected argument that decides for itself whether a
// concrete runtime argument satisfies it.
type ArgumentMatcher interface {
	Matches(actual any) bool
	String() string
}

// Matcher defines the interface for flexible value matching.
// Compatible with gomega.GomegaMatcher via duck typing - any type
// implementing Match and FailureMessage will work as an expected argument.
type Matcher interface {
	Match(actual any) (success bool, err error)
	FailureMessage(actual any) string
}

// Any returns a matcher that matches any single argument.
func Any() ArgumentMatcher {
	return wildcard{}
}

// Callback returns a placeholder that matches any non-nil function argument.
// An expected call holding a placeholder can be configured with
// Expectation.AndWillCallback.
func Callback() ArgumentMatcher {
	return callbackPlaceholder{}
}

// DeepEqual reports whether actual and expected are structurally equal,
// including unexported fields. It is the default equality used by Same.
func DeepEqual(actual, expected any) bool {
	return cmp.Equal(actual, expected, cmp.Exporter(func(reflect.Type) bool { return true }))
}

// MatchValue checks if actual satisfies expected.
// Argument matchers and Matcher implementations decide for themselves; any
// other expected value is compared with strict equality (see StrictEqual).
func MatchValue(actual, expected any) bool {
	switch exp := expected.(type) {
	case ArgumentMatcher:
		return exp.Matches(actual)
	case Matcher:
		ok, err := exp.Match(actual)

		return err == nil && ok
	default:
		return StrictEqual(actual, expected)
	}
}

// Same returns a matcher that compares an argument against value using eq.
// Without eq, DeepEqual is used.
func Same(value any, eq ...func(actual, expected any) bool) ArgumentMatcher {
	matcher := &sameAs{value: value, eq: DeepEqual}
	if len(eq) > 0 && eq[0] != nil {
		matcher.eq = eq[0]
	}

	return matcher
}

// Satisfies returns a matcher that uses a predicate function to check for a match.
// Arguments that are not a T do not match.
func Satisfies[T any](predicate func(T) error) ArgumentMatcher {
	return satisfies[T]{predicate: predicate}
}

// StrictEqual reports whether actual is the same value as expected.
// Comparable values of identical dynamic type are compared with ==. Slices,
// maps and functions are only equal to themselves. An untyped nil expected
// value matches any nil actual value.
func StrictEqual(actual, expected any) bool {
	if expected == nil || actual == nil {
		return isNil(expected) && isNil(actual)
	}

	expVal := reflect.ValueOf(expected)
	actVal := reflect.ValueOf(actual)

	if expVal.Type() != actVal.Type() {
		return false
	}

	if expVal.Type().Comparable() {
		return comparableEqual(actual, expected)
	}

	//nolint:exhaustive // only reference kinds carry an identity
	switch expVal.Kind() {
	case reflect.Slice:
		return expVal.Pointer() == actVal.Pointer() && expVal.Len() == actVal.Len()
	case reflect.Map, reflect.Func:
		return expVal.Pointer() == actVal.Pointer()
	default:
		return false
	}
}

// callbackPlaceholder is the implementation of the Callback() matcher.
type callbackPlaceholder struct{}

func (callbackPlaceholder) Matches(actual any) bool {
	val := reflect.ValueOf(actual)

	return val.Kind() == reflect.Func && !val.IsNil()
}

func (callbackPlaceholder) String() string {
	return "<callback>"
}

type satisfies[T any] struct {
	predicate func(T) error
}

func (m satisfies[T]) Matches(actual any) bool {
	value, ok := actual.(T)
	if !ok {
		return false
	}

	return m.predicate(value) == nil
}

func (m satisfies[T]) String() string {
	return fmt.Sprintf("<satisfies %s>", reflect.TypeFor[T]())
}

type sameAs struct {
	value any
	eq    func(actual, expected any) bool
}

func (m *sameAs) Matches(actual any) bool {
	return m.eq(actual, m.value)
}

func (m *sameAs) String() string {
	return formatArg(m.value)
}

// wildcard is the implementation of the Any() matcher.
type wildcard struct{}

func (wildcard) Matches(any) bool {
	return true
}

func (wildcard) String() string {
	return "<any>"
}

// comparableEqual compares with ==, treating a runtime panic (an interface
// field holding an uncomparable value) as inequality.
func comparableEqual(actual, expected any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()

	return actual == expected
}

func isNil(value any) bool {
	if value == nil {
		return true
	}

	val := reflect.ValueOf(value)

	//nolint:exhaustive // only nillable kinds can be nil
	switch val.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return val.IsNil()
	default:
		return false
	}
}

// matcherString renders a foreign Matcher in call listings.
func matcherString(m Matcher) string {
	return fmt.Sprintf("<matcher %T>", m)
}
