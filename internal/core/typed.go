package core

import (
	"fmt"
	"reflect"
)

// Mocks maps the mocked field names of an object to their mocks.
type Mocks map[string]*Mock

// Func returns a function of type F that forwards every call to m. Variadic
// arguments are passed to the mock individually. Configured return values are
// converted to F's result types; missing or nil values become zero values.
func Func[F any](m *Mock) F {
	fnType := reflect.TypeFor[F]()
	if fnType.Kind() != reflect.Func {
		configPanic("Func", fmt.Errorf("%w: %s is not a function type", errTypeMismatch, fnType))
	}

	//nolint:forcetypeassert // MakeFunc returns a value of fnType, which is F
	return makeFunc(m, fnType).Interface().(F)
}

// MockFunc creates a mock in the default registry along with a typed function
// that calls it.
func MockFunc[F any](nameOrFn any) (F, *Mock) {
	mock := Default().MockFunction(nameOrFn)

	return Func[F](mock), mock
}

// MockFunction creates a mock in the default registry.
func MockFunction(nameOrFn any) *Mock {
	return Default().MockFunction(nameOrFn)
}

// MockObject creates a mocked copy of obj in the default registry. See
// MockObjectIn.
func MockObject[T any](obj T, name string) (T, Mocks) {
	return MockObjectIn(Default(), obj, name)
}

// MockObjectIn creates a mocked copy of obj, a struct or pointer to struct.
// Every exported field of function type is replaced by a function forwarding
// to a mock named "name.Field" ("<anonymous>.Field" without a name). Other
// fields are copied unchanged.
func MockObjectIn[T any](registry *Registry, obj T, name string) (T, Mocks) {
	if name == "" {
		name = AnonymousName
	}

	original := reflect.ValueOf(&obj).Elem()
	target := original

	isPointer := original.Kind() == reflect.Pointer
	if isPointer {
		if original.IsNil() {
			configPanic("MockObject", fmt.Errorf("%w: nil %s", errTypeMismatch, original.Type()))
		}

		target = original.Elem()
	}

	if target.Kind() != reflect.Struct {
		configPanic("MockObject", fmt.Errorf("%w: %s is not a struct", errTypeMismatch, original.Type()))
	}

	mocked := reflect.New(target.Type()).Elem()
	mocked.Set(target)

	mocks := make(Mocks)

	for i := range target.NumField() {
		field := target.Type().Field(i)
		if !field.IsExported() || field.Type.Kind() != reflect.Func {
			continue
		}

		mock := registry.MockFunction(name + "." + field.Name)
		mocks[field.Name] = mock

		mocked.Field(i).Set(makeFunc(mock, field.Type))
	}

	if isPointer {
		//nolint:forcetypeassert // a pointer to T's element type is T
		return mocked.Addr().Interface().(T), mocks
	}

	//nolint:forcetypeassert // mocked has T's type
	return mocked.Interface().(T), mocks
}

// makeFunc builds a function of fnType that forwards to m.
func makeFunc(m *Mock, fnType reflect.Type) reflect.Value {
	return reflect.MakeFunc(fnType, func(in []reflect.Value) []reflect.Value {
		return resultValues(fnType, m.Invoke(flattenArgs(fnType, in)...))
	})
}

// flattenArgs turns reflect arguments into mock arguments, spreading the
// variadic tail.
func flattenArgs(fnType reflect.Type, in []reflect.Value) []any {
	args := make([]any, 0, len(in))

	for i, arg := range in {
		if fnType.IsVariadic() && i == len(in)-1 {
			for j := range arg.Len() {
				args = append(args, arg.Index(j).Interface())
			}

			continue
		}

		args = append(args, arg.Interface())
	}

	return args
}

// resultValues converts configured return values to fnType's results.
func resultValues(fnType reflect.Type, values []any) []reflect.Value {
	out := make([]reflect.Value, fnType.NumOut())

	for i := range out {
		resultType := fnType.Out(i)

		if i >= len(values) {
			out[i] = reflect.Zero(resultType)

			continue
		}

		value, err := convertValue(values[i], resultType)
		if err != nil {
			configPanic("AndWillReturn", fmt.Errorf("return value %d: %w", i, err))
		}

		out[i] = value
	}

	return out
}
