package resp

import (
	"fmt"
	"strconv"
)

// Format builds command arguments from a printf-like format string, in the
// style common to C Redis clients:
//
//   - arguments are separated by spaces
//   - %s interpolates a string or []byte
//   - %b interpolates a []byte (or string), binary safe
//   - %d interpolates any Go integer type
//   - %% is a literal percent sign
//
// Placeholders may appear inside a word ("user:%d:name") and the result is a
// single argument. An interpolated value never splits an argument, so values
// may contain spaces. A placeholder that interpolates an empty value still
// produces an argument.
//
// Example:
//
//	args, err := Format("SET user:%d %s", 42, "John Smith")
//	// SET, user:42, John Smith
func Format(format string, values ...any) ([]Arg, error) {
	var (
		args    []Arg
		word    []byte
		touched bool
		next    int
	)

	nextValue := func(verb byte) (any, error) {
		if next >= len(values) {
			return nil, &FormatError{Message: fmt.Sprintf("missing value for %%%c", verb)}
		}
		v := values[next]
		next++
		return v, nil
	}

	for i := 0; i < len(format); i++ {
		c := format[i]

		if c == ' ' {
			if touched {
				args = append(args, String(string(word)))
				word = word[:0]
				touched = false
			}
			continue
		}

		touched = true

		if c != '%' {
			word = append(word, c)
			continue
		}

		if i+1 >= len(format) {
			return nil, &FormatError{Message: "trailing %"}
		}
		i++
		verb := format[i]

		switch verb {
		case '%':
			word = append(word, '%')

		case 's', 'b':
			v, err := nextValue(verb)
			if err != nil {
				return nil, err
			}
			switch s := v.(type) {
			case string:
				word = append(word, s...)
			case []byte:
				word = append(word, s...)
			default:
				return nil, &FormatError{Message: fmt.Sprintf("%%%c expects string or []byte, got %T", verb, v)}
			}

		case 'd':
			v, err := nextValue(verb)
			if err != nil {
				return nil, err
			}
			word, err = appendInteger(word, v)
			if err != nil {
				return nil, err
			}

		default:
			return nil, &FormatError{Message: fmt.Sprintf("unsupported verb %%%c", verb)}
		}
	}

	if touched {
		args = append(args, String(string(word)))
	}

	if next < len(values) {
		return nil, &FormatError{Message: fmt.Sprintf("%d unused values", len(values)-next)}
	}

	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}

	return args, nil
}

func appendInteger(dst []byte, v any) ([]byte, error) {
	switch n := v.(type) {
	case int:
		return strconv.AppendInt(dst, int64(n), 10), nil
	case int8:
		return strconv.AppendInt(dst, int64(n), 10), nil
	case int16:
		return strconv.AppendInt(dst, int64(n), 10), nil
	case int32:
		return strconv.AppendInt(dst, int64(n), 10), nil
	case int64:
		return strconv.AppendInt(dst, n, 10), nil
	case uint:
		return strconv.AppendUint(dst, uint64(n), 10), nil
	case uint8:
		return strconv.AppendUint(dst, uint64(n), 10), nil
	case uint16:
		return strconv.AppendUint(dst, uint64(n), 10), nil
	case uint32:
		return strconv.AppendUint(dst, uint64(n), 10), nil
	case uint64:
		return strconv.AppendUint(dst, n, 10), nil
	default:
		return nil, &FormatError{Message: fmt.Sprintf("%%d expects an integer, got %T", v)}
	}
}
