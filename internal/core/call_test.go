package core_test

import (
	"testing"

	. "github.com/onsi/gomega"
	"github.com/toejough/mach/internal/core"
	"pgregory.net/rapid"
)

func TestExpectedCall_Matches(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	registry := core.NewRegistry()
	f := registry.MockFunction("f")
	other := registry.MockFunction("other")

	call := core.NewExpectedCall(f, []any{1, core.Any(), "x"}, true, true)

	g.Expect(call.Matches(f, []any{1, "anything", "x"})).To(BeTrue())
	g.Expect(call.Matches(f, []any{1, nil, "x"})).To(BeTrue())
	g.Expect(call.Matches(f, []any{2, "anything", "x"})).To(BeFalse())
	g.Expect(call.Matches(f, []any{1, "anything"})).To(BeFalse())
	g.Expect(call.Matches(other, []any{1, "anything", "x"})).To(BeFalse())
	g.Expect(call.MatchesFunction(f)).To(BeTrue())
	g.Expect(call.Name()).To(Equal("f"))
}

func TestExpectedCall_WithoutArgumentCheckMatchesAnyArguments(t *testing.T) {
	t.Parallel()

	registry := core.NewRegistry()
	f := registry.MockFunction("f")
	call := core.NewExpectedCall(f, nil, true, false)

	rapid.Check(t, func(rt *rapid.T) {
		args := rapid.SliceOf(rapid.Int().AsAny()).Draw(rt, "args")

		if !call.MatchesArguments(args) {
			rt.Fatalf("expected %v to match", args)
		}
	})
}

func TestExpectedCall_CloneCopiesBehaviorAndResetsCompletion(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	registry := core.NewRegistry()
	f := registry.MockFunction("f")

	expectation := f.ShouldBeCalledWith(2).AndWillReturn(1)
	g.Expect(expectation.When(func() { f.Call(2) })).To(Succeed())

	original := expectation.Tree().Calls()[0]
	g.Expect(original.Completed()).To(BeTrue())

	clone := original.Clone()

	g.Expect(clone).NotTo(BeIdenticalTo(original))
	g.Expect(clone.Completed()).To(BeFalse())
	g.Expect(clone.ActualArgs()).To(BeNil())
	g.Expect(clone.Mock()).To(BeIdenticalTo(f))
	g.Expect(clone.ExpectedArgs()).To(Equal([]any{2}))
	g.Expect(clone.Required()).To(BeTrue())
	g.Expect(clone.CheckArgs()).To(BeTrue())
	g.Expect(clone.ReturnValues()).To(Equal([]any{1}))
}

func TestExpectedCall_RecordsActualArguments(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	registry := core.NewRegistry()
	f := registry.MockFunction("f")
	expectation := f.ShouldBeCalledWithAnyArguments()

	g.Expect(expectation.When(func() { f.Call(1, "a") })).To(Succeed())

	call := expectation.Tree().Calls()[0]
	g.Expect(call.Completed()).To(BeTrue())
	g.Expect(call.ActualArgs()).To(Equal([]any{1, "a"}))
}
