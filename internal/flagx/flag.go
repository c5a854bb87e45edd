// Package flagx lets packages parse their own command-line flags without
// tripping over flags registered by other components.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the allowed flags, and their values, from args.
// Both the "-f value" and "-f=value" forms are recognized. Everything
// else, including positional arguments, is dropped.
func FilterArgs(args []string, allowed []string) []string {
	keep := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		keep[name] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		if name, _, found := strings.Cut(arg, "="); found {
			if keep[name] {
				out = append(out, arg)
			}
			continue
		}
		if !keep[arg] {
			continue
		}
		out = append(out, arg)
		// A following token that is not itself a flag belongs to this one.
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// ConfigFilePath extracts the config file path given via -c or -config,
// leaving any other arguments in os.Args for their owners to parse. An
// empty string is returned when neither flag is present.
func ConfigFilePath() string {
	var path string

	fs := flag.NewFlagSet("configfile", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(os.Args[1:], []string{"-c", "-config"}))

	return path
}
