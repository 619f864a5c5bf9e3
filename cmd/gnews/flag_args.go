package main

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// parseOwnFlags parses args for a command that sets DisableFlagParsing and
// checks its positional arguments. helped reports that --help was printed.
func parseOwnFlags(cmd *cobra.Command, args []string, positional cobra.PositionalArgs) (rest []string, helped bool, err error) {
	// ParseFlags is a no-op while DisableFlagParsing is set.
	cmd.DisableFlagParsing = false
	if err := cmd.ParseFlags(args); err != nil {
		return nil, false, err
	}
	if help, _ := cmd.Flags().GetBool("help"); help {
		return nil, true, cmd.Help()
	}

	rest = cmd.Flags().Args()
	if err := positional(cmd, rest); err != nil {
		return nil, false, err
	}
	return rest, false, nil
}

// expandListFlag rewrites "--name A B C" as one "--canonical=V" token per
// value. Values end at the next token starting with "-"; a bare flag with
// no values is dropped. Other tokens pass through unchanged.
func expandListFlag(args []string, canonical string, names ...string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i:]...)
		}
		if !slices.Contains(names, arg) {
			out = append(out, arg)
			continue
		}
		for i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			out = append(out, "--"+canonical+"="+args[i])
		}
	}
	return out
}
