package mach_test

import (
	"errors"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/toejough/mach"
)

func TestFunc_ConvertsReturnValues(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mock := mach.NewRegistry().MockFunction("lookup")
	lookup := mach.Func[func(key string) (int, error)](mock)

	var (
		value int
		err   error
	)

	runErr := mock.ShouldBeCalledWith("answer").AndWillReturn(42).When(func() {
		value, err = lookup("answer")
	})

	g.Expect(runErr).NotTo(HaveOccurred())
	g.Expect(value).To(Equal(42))
	g.Expect(err).NotTo(HaveOccurred())
}

func TestFunc_ReturnsConfiguredErrors(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mock := mach.NewRegistry().MockFunction("load")
	load := mach.Func[func() ([]byte, error)](mock)
	errMissing := errors.New("missing")

	var (
		data []byte
		err  error
	)

	g.Expect(mock.ShouldBeCalled().AndWillReturn(nil, errMissing).When(func() {
		data, err = load()
	})).To(Succeed())

	g.Expect(data).To(BeNil())
	g.Expect(err).To(MatchError(errMissing))
}

func TestFunc_ConvertsCompatibleTypes(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	type celsius float64

	mock := mach.NewRegistry().MockFunction("temperature")
	temperature := mach.Func[func() celsius](mock)

	var reading celsius

	g.Expect(mock.ShouldBeCalled().AndWillReturn(21.5).When(func() {
		reading = temperature()
	})).To(Succeed())

	g.Expect(reading).To(Equal(celsius(21.5)))
}

func TestFunc_SpreadsVariadicArguments(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mock := mach.NewRegistry().MockFunction("printf")
	printf := mach.Func[func(format string, args ...any)](mock)

	g.Expect(mock.ShouldBeCalledWith("%d-%s", 1, "a").When(func() {
		printf("%d-%s", 1, "a")
	})).To(Succeed())
}

func TestFunc_PanicsOnIncompatibleReturnValues(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mock := mach.NewRegistry().MockFunction("count")
	count := mach.Func[func() int](mock)

	err := mock.ShouldBeCalled().AndWillReturn("many").When(func() {
		count()
	})

	var configErr *mach.ConfigError

	g.Expect(errors.As(err, &configErr)).To(BeTrue())
	g.Expect(configErr.Op).To(Equal("AndWillReturn"))
}

func TestFunc_RejectsNonFunctionTypes(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mock := mach.NewRegistry().MockFunction("f")

	g.Expect(func() { mach.Func[int](mock) }).To(PanicWith(BeAssignableToTypeOf(&mach.ConfigError{})))
}

//nolint:paralleltest // shares the default registry
func TestMockFunc_UsesTheDefaultRegistry(t *testing.T) {
	g := NewWithT(t)

	double, mock := mach.MockFunc[func(int) int]("double")

	g.Expect(mock.Name()).To(Equal("double"))
	g.Expect(mock.Registry()).To(BeIdenticalTo(mach.Default()))

	var result int

	g.Expect(mock.ShouldBeCalledWith(2).AndWillReturn(4).When(func() {
		result = double(2)
	})).To(Succeed())
	g.Expect(result).To(Equal(4))
}

func TestMockFunction_NamesMocksAfterFunctions(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	registry := mach.NewRegistry()

	g.Expect(registry.MockFunction(strings.ToUpper).Name()).To(Equal("ToUpper"))
	g.Expect(registry.MockFunction(mach.Default).Name()).To(Equal("Default"))
	g.Expect(registry.MockFunction(nil).Name()).To(Equal(mach.AnonymousName))
	g.Expect(registry.MockFunction("").String()).To(Equal(mach.AnonymousName))
	g.Expect(func() { registry.MockFunction(42) }).To(PanicWith(BeAssignableToTypeOf(&mach.ConfigError{})))
}

type store struct {
	Name  string
	Get   func(key string) (string, error)
	Put   func(key, value string) error
	close func()
}

func TestMockObject_ReplacesExportedFunctionFields(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	registry := mach.NewRegistry()
	original := store{Name: "primary", close: func() {}}

	mocked, mocks := mach.MockObjectIn(registry, original, "store")

	g.Expect(mocks).To(HaveLen(2))
	g.Expect(mocks["Get"].Name()).To(Equal("store.Get"))
	g.Expect(mocks["Put"].Name()).To(Equal("store.Put"))
	g.Expect(mocked.Name).To(Equal("primary"))
	g.Expect(mocked.close).NotTo(BeNil())
	g.Expect(original.Get).To(BeNil())

	var value string

	err := mocks["Put"].ShouldBeCalledWith("k", "v").
		AndThen(mocks["Get"].ShouldBeCalledWith("k").AndWillReturn("v")).
		When(func() {
			g.Expect(mocked.Put("k", "v")).To(Succeed())

			value, _ = mocked.Get("k")
		})

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(value).To(Equal("v"))
}

func TestMockObject_AcceptsPointers(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	original := &store{Name: "replica"}

	mocked, mocks := mach.MockObjectIn(mach.NewRegistry(), original, "")

	g.Expect(mocked).NotTo(BeIdenticalTo(original))
	g.Expect(mocked.Name).To(Equal("replica"))
	g.Expect(mocks["Get"].Name()).To(Equal("<anonymous>.Get"))
}

func TestMockObject_RejectsNonStructs(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(func() { mach.MockObjectIn(mach.NewRegistry(), 42, "n") }).
		To(PanicWith(BeAssignableToTypeOf(&mach.ConfigError{})))
	g.Expect(func() { mach.MockObjectIn[*store](mach.NewRegistry(), nil, "s") }).
		To(PanicWith(BeAssignableToTypeOf(&mach.ConfigError{})))
}

func TestAndWillCallback_RunsAfterTheMockReturns(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	f := mach.NewRegistry().MockFunction("f")

	var events []string

	err := f.ShouldBeCalledWith("key", mach.Callback()).AndWillCallback(nil, "value").When(func() {
		f.Call("key", func(err error, value string) {
			events = append(events, "callback "+value)

			g.Expect(err).NotTo(HaveOccurred())
		})

		events = append(events, "returned")
	})

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(events).To(Equal([]string{"returned", "callback value"}))
}

func TestAndWillCallback_ReportsArgumentMismatches(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	f := mach.NewRegistry().MockFunction("f")

	err := f.ShouldBeCalledWith(mach.Callback()).AndWillCallback("not a number").When(func() {
		f.Call(func(int) {})
	})
	g.Expect(err).To(MatchError(ContainSubstring("callback passed to f")))

	err = f.ShouldBeCalledWith(mach.Callback()).AndWillCallback(1, 2).When(func() {
		f.Call(func(int) {})
	})
	g.Expect(err).To(MatchError(ContainSubstring("callback takes 1 arguments, 2 configured")))
}

func TestAndWillCallback_WorksWithTypedFunctions(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mock := mach.NewRegistry().MockFunction("fetch")
	fetch := mach.Func[func(url string, onDone func(status int))](mock)

	var status int

	g.Expect(mock.ShouldBeCalledWith("/health", mach.Callback()).AndWillCallback(200).When(func() {
		fetch("/health", func(s int) { status = s })
	})).To(Succeed())

	g.Expect(status).To(Equal(200))
}
