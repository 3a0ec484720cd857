// Package flagx lets several components share one command line: each picks
// out only the flags it owns before parsing.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs keeps the allowed flags of args together with their values.
//
// Both "-f value" and "-f=value" forms are recognised. A token that starts
// with '-' is never consumed as a value. The result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]bool, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = true
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, hasValue := strings.Cut(arg, "="); hasValue && strings.HasPrefix(arg, "-") {
			if allowed[name] {
				filtered = append(filtered, arg)
			}
			continue
		}

		if !allowed[arg] {
			continue
		}
		filtered = append(filtered, arg)
		if next := i + 1; next < len(args) && !strings.HasPrefix(args[next], "-") {
			filtered = append(filtered, args[next])
			i = next
		}
	}
	return filtered
}

// JsonConfigFlags returns the config file path given with -c or -config in
// args, or "" when none was given.
func JsonConfigFlags(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config"}))

	return path
}
