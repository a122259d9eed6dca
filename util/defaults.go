package util

import "fmt"

// HandleDefaults trims a positional argument list for the node.
//
// A nil entry in args is an absent optional argument. defaults is aligned to
// the last len(defaults) entries of args:
//
//	arg1 arg2 arg3 arg4
//	          def1 def2
//
// Absent arguments are replaced by their default only when a later optional
// argument is set; trailing absent arguments are dropped. Entries without a
// corresponding default are required and never substituted. A nil default
// means none was declared, and needing it panics. args is updated in place
// and the returned slice is a prefix of it.
func HandleDefaults(args []any, defaults []any) []any {
	if len(defaults) > len(args) {
		panic(fmt.Sprintf("%d defaults declared for %d arguments", len(defaults), len(args)))
	}

	lastSet := -1
	for i := range defaults {
		argIdx := len(args) - 1 - i
		defIdx := len(defaults) - 1 - i
		if args[argIdx] != nil {
			if lastSet < 0 {
				lastSet = argIdx
			}
			continue
		}
		if lastSet < 0 {
			continue
		}
		if defaults[defIdx] == nil {
			panic(fmt.Sprintf("missing default for argument idx %d", argIdx))
		}
		args[argIdx] = defaults[defIdx]
	}

	if lastSet >= 0 {
		return args[:lastSet+1]
	}
	return args[:len(args)-len(defaults)]
}

// Opt turns a nil pointer into an absent argument.
func Opt[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

// Null is an explicit JSON null, distinct from an absent argument.
func Null() any {
	return jsonNull{}
}

func EmptyArray() any {
	return []any{}
}

func EmptyObject() any {
	return map[string]any{}
}

type jsonNull struct{}

func (jsonNull) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}
