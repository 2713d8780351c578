package core_test

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/toejough/mach/internal/core"
	"pgregory.net/rapid"
)

func TestAny_MatchesAnything(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		value := rapid.OneOf(
			rapid.Int().AsAny(),
			rapid.String().AsAny(),
			rapid.SliceOf(rapid.Int()).AsAny(),
			rapid.Just[any](nil),
		).Draw(rt, "value")

		if !core.MatchValue(value, core.Any()) {
			rt.Fatalf("Any() did not match %#v", value)
		}
	})
}

func TestCallback_MatchesOnlyFunctions(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var nilFunc func()

	g.Expect(core.MatchValue(func() {}, core.Callback())).To(BeTrue())
	g.Expect(core.MatchValue(func(int) error { return nil }, core.Callback())).To(BeTrue())
	g.Expect(core.MatchValue(nilFunc, core.Callback())).To(BeFalse())
	g.Expect(core.MatchValue(1, core.Callback())).To(BeFalse())
	g.Expect(core.MatchValue(nil, core.Callback())).To(BeFalse())
	g.Expect(core.Callback().String()).To(Equal("<callback>"))
}

func TestMatchValue_HonorsGomegaMatchers(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(core.MatchValue(5, BeNumerically(">", 3))).To(BeTrue())
	g.Expect(core.MatchValue(2, BeNumerically(">", 3))).To(BeFalse())
	g.Expect(core.MatchValue("hello world", ContainSubstring("world"))).To(BeTrue())
	// a matcher error is a mismatch
	g.Expect(core.MatchValue("not a number", BeNumerically(">", 3))).To(BeFalse())
}

func TestSame_ComparesStructurally(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	type point struct {
		x, y int
	}

	g.Expect(core.MatchValue([]int{1, 2, 3}, core.Same([]int{1, 2, 3}))).To(BeTrue())
	g.Expect(core.MatchValue([]int{3, 2, 1}, core.Same([]int{1, 2, 3}))).To(BeFalse())
	g.Expect(core.MatchValue(map[string]int{"a": 1}, core.Same(map[string]int{"a": 1}))).To(BeTrue())
	g.Expect(core.MatchValue(point{1, 2}, core.Same(point{1, 2}))).To(BeTrue())
	g.Expect(core.MatchValue(&point{1, 2}, core.Same(&point{1, 2}))).To(BeTrue())
	g.Expect(core.MatchValue(point{2, 1}, core.Same(point{1, 2}))).To(BeFalse())
	g.Expect(core.Same([]int{1, 2, 3}).String()).To(Equal("[1, 2, 3]"))
}

func TestSame_UsesCustomEquality(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	alwaysMatches := func(_, _ any) bool { return true }
	neverMatches := func(_, _ any) bool { return false }

	g.Expect(core.MatchValue([]int{3, 2, 1}, core.Same([]int{1, 2, 3}, alwaysMatches))).To(BeTrue())
	g.Expect(core.MatchValue([]int{1, 2, 3}, core.Same([]int{1, 2, 3}, neverMatches))).To(BeFalse())
}

func TestSatisfies_UsesPredicate(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	positive := core.Satisfies(func(n int) error {
		if n <= 0 {
			return errors.New("not positive")
		}

		return nil
	})

	g.Expect(core.MatchValue(3, positive)).To(BeTrue())
	g.Expect(core.MatchValue(-3, positive)).To(BeFalse())
	g.Expect(core.MatchValue("3", positive)).To(BeFalse())
	g.Expect(positive.String()).To(Equal("<satisfies int>"))
}

func TestStrictEqual_ComparesByIdentity(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	slice := []int{1, 2, 3}
	mapping := map[string]int{"a": 1}

	g.Expect(core.StrictEqual(1, 1)).To(BeTrue())
	g.Expect(core.StrictEqual("a", "a")).To(BeTrue())
	g.Expect(core.StrictEqual(1, int64(1))).To(BeFalse())
	g.Expect(core.StrictEqual(slice, slice)).To(BeTrue())
	g.Expect(core.StrictEqual([]int{1, 2, 3}, slice)).To(BeFalse())
	g.Expect(core.StrictEqual(slice[:2], slice)).To(BeFalse())
	g.Expect(core.StrictEqual(mapping, mapping)).To(BeTrue())
	g.Expect(core.StrictEqual(map[string]int{"a": 1}, mapping)).To(BeFalse())
	g.Expect(core.StrictEqual(nil, nil)).To(BeTrue())
	g.Expect(core.StrictEqual((*int)(nil), nil)).To(BeTrue())
	g.Expect(core.StrictEqual(0, nil)).To(BeFalse())
	// an interface field holding an uncomparable value does not panic
	g.Expect(core.StrictEqual(struct{ v any }{[]int{1}}, struct{ v any }{[]int{1}})).To(BeFalse())
}

func TestStrictEqual_IsReflexiveForComparableValues(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		value := rapid.OneOf(
			rapid.Int().AsAny(),
			rapid.String().AsAny(),
			rapid.Bool().AsAny(),
			rapid.Float64Range(-1e6, 1e6).AsAny(),
		).Draw(rt, "value")

		if !core.StrictEqual(value, value) {
			rt.Fatalf("%#v is not equal to itself", value)
		}
	})
}
