package main

import (
	"strings"

	internalerrors "github.com/rcourtman/gnews-profiles/internal/errors"
	"github.com/rcourtman/gnews-profiles/internal/profile"
)

const attFlag = "--att"

// parseEditArgs pulls every --att group out of args. Accepted forms:
//
//	--att KEY VALUE [VALUE...]
//	--att KEY=VALUE
//	--att=KEY=VALUE
//
// A group's values end at the next token starting with "--". Everything
// else is returned in rest for normal flag parsing.
func parseEditArgs(args []string) (rest []string, assignments []profile.Assignment, err error) {
	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "--":
			rest = append(rest, args[i:]...)
			return rest, assignments, nil

		case strings.HasPrefix(arg, attFlag+"="):
			a, err := keyValue(strings.TrimPrefix(arg, attFlag+"="))
			if err != nil {
				return nil, nil, err
			}
			assignments = append(assignments, a)

		case arg == attFlag:
			if i+1 >= len(args) || isFlag(args[i+1]) {
				return nil, nil, internalerrors.MissingField("att", "--att expects KEY VALUE")
			}
			i++
			if strings.Contains(args[i], "=") {
				a, err := keyValue(args[i])
				if err != nil {
					return nil, nil, err
				}
				assignments = append(assignments, a)
				continue
			}

			a := profile.Assignment{Key: args[i]}
			for i+1 < len(args) && !isFlag(args[i+1]) {
				i++
				a.Values = append(a.Values, args[i])
			}
			if len(a.Values) == 0 {
				return nil, nil, internalerrors.MissingField("att", "--att %s expects a value", a.Key)
			}
			assignments = append(assignments, a)

		default:
			rest = append(rest, arg)
		}
	}
	return rest, assignments, nil
}

func keyValue(s string) (profile.Assignment, error) {
	key, value, _ := strings.Cut(s, "=")
	if strings.TrimSpace(key) == "" {
		return profile.Assignment{}, internalerrors.MissingField("att", "--att expects KEY=VALUE, got %q", s)
	}
	return profile.Assignment{Key: key, Values: []string{value}}, nil
}

func isFlag(s string) bool {
	return strings.HasPrefix(s, "--") || s == "-h"
}
