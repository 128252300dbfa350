package main

import cli "github.com/urfave/cli/v3"

// stringArg returns the parsed value of the named positional string
// argument, or "" if it was not provided. It mirrors the Command.StringArg
// accessor that urfave/cli/v3 gained after v3.0.0-beta1, which is the newest
// release buildable with the Go 1.21 toolchain available here.
func stringArg(cmd *cli.Command, name string) string {
	for _, arg := range cmd.Arguments {
		if sa, ok := arg.(*cli.StringArg); ok && sa.Name == name {
			if sa.Values != nil && len(*sa.Values) > 0 {
				return (*sa.Values)[0]
			}
			return sa.Value
		}
	}
	return ""
}
