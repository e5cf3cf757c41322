// Package flagx lets several config loaders share one command line. Each
// loader filters os.Args down to the flags it owns before parsing, so flags
// meant for another loader never trip flag.ErrHelp or "flag provided but not
// defined".
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs keeps the allowed flags from args, in order, together with
// their values. Both "-d value" and "-d=value" forms are recognised. A
// token that starts with '-' is never taken as a value, except a lone "-".
//
//	FilterArgs([]string{"-a", "unix:/tmp/agent.sock", "-x", "1"}, []string{"-a"})
//	// []string{"-a", "unix:/tmp/agent.sock"}
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]bool, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = true
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		name, _, inline := strings.Cut(args[i], "=")
		if !isFlag(name) || !allowed[name] {
			continue
		}
		filtered = append(filtered, args[i])

		if !inline && i+1 < len(args) && !isFlag(args[i+1]) {
			i++
			filtered = append(filtered, args[i])
		}
	}
	return filtered
}

func isFlag(s string) bool {
	return len(s) > 1 && s[0] == '-'
}

// ConfigPath returns the JSON config file named by -c, -config or
// --config in args, or "" when none is given. The last occurrence wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config"}))

	return path
}
