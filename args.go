package svchost

import (
	"fmt"
	"strings"
)

// Command-line flags understood by ParseArgs
const (
	FlagExecutable  = "-exe"
	FlagDisplayName = "-dn"
	FlagServiceName = "-sn"
	FlagAccount     = "-ac"
	FlagUserName    = "-u"
	FlagPassword    = "-p"
	FlagAction      = "-action"
	FlagLogPath     = "-log"
	FlagManager     = "-sm"
)

// ParseArgs builds a configuration from (flag, value) pairs.
// Pairs may come in any order; unknown flags are skipped and a repeated flag
// keeps its last value. An empty or odd-length list returns ErrNoConfig.
func ParseArgs(args []string) (*ServiceConfiguration, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, ErrNoConfig
	}

	config := &ServiceConfiguration{Action: ActionStart}

	for i := 0; i < len(args); i += 2 {
		val := args[i+1]

		switch args[i] {
		case FlagExecutable:
			config.Executable = val
		case FlagDisplayName:
			config.DisplayName = val
		case FlagServiceName:
			config.ServiceName = val
		case FlagAccount:
			account, err := ParseAccount(val)
			if err != nil {
				return nil, err
			}
			config.Account = account
		case FlagUserName:
			config.UserName = val
		case FlagPassword:
			config.Password = val
		case FlagAction:
			action, err := ParseAction(val)
			if err != nil {
				return nil, err
			}
			config.Action = action
		case FlagLogPath:
			config.LogPath = val
		case FlagManager:
			st, err := ParseServiceType(val)
			if err != nil {
				return nil, err
			}
			config.Manager = st
		}
	}

	return config, nil
}

// InstallArgs returns the arguments a registered service is started with.
// They re-invoke this program in service mode with the same executable and log path.
func InstallArgs(c *ServiceConfiguration) []string {
	args := []string{FlagExecutable, c.Executable}
	if strings.TrimSpace(c.LogPath) != "" {
		args = append(args, FlagLogPath, c.LogPath)
	}
	return args
}

// BinPath renders the re-invocation command line for a service manager's
// binary-path field: <binary> -exe "<executable>" [-log "<logPath>"]
func BinPath(binary string, c *ServiceConfiguration) string {
	var b strings.Builder
	b.WriteString(quoteArg(binary))
	args := InstallArgs(c)
	for i := 0; i < len(args); i += 2 {
		fmt.Fprintf(&b, " %s %s", args[i], quoteValue(args[i+1]))
	}
	return b.String()
}

// quoteValue wraps s in double quotes. Embedded quotes are escaped with a
// backslash and backslashes preceding a quote, or the closing quote, are doubled,
// so the value survives the usual argv splitting rules of service managers.
func quoteValue(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	slashes := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			slashes++
		case '"':
			for ; slashes > 0; slashes-- {
				b.WriteByte('\\')
			}
			b.WriteByte('\\')
		default:
			slashes = 0
		}
		b.WriteByte(c)
	}
	for ; slashes > 0; slashes-- {
		b.WriteByte('\\')
	}
	b.WriteByte('"')
	return b.String()
}

// quoteArg quotes s only when it contains whitespace or quotes
func quoteArg(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"") {
		return s
	}
	return quoteValue(s)
}

// SplitBinPath splits a command line produced by BinPath back into arguments.
// Quoted segments keep their whitespace; 2n backslashes before a quote yield n
// backslashes and toggle quoting, 2n+1 yield n backslashes and a literal quote.
func SplitBinPath(line string) []string {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		hasArg  bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\':
			n := 0
			for i < len(line) && line[i] == '\\' {
				n++
				i++
			}
			if i < len(line) && line[i] == '"' {
				cur.WriteString(strings.Repeat("\\", n/2))
				if n%2 == 1 {
					cur.WriteByte('"')
				} else {
					inQuote = !inQuote
				}
			} else {
				cur.WriteString(strings.Repeat("\\", n))
				i--
			}
			hasArg = true
		case c == '"':
			inQuote = !inQuote
			hasArg = true
		case (c == ' ' || c == '\t') && !inQuote:
			if hasArg {
				args = append(args, cur.String())
				cur.Reset()
				hasArg = false
			}
		default:
			cur.WriteByte(c)
			hasArg = true
		}
	}
	if hasArg {
		args = append(args, cur.String())
	}
	return args
}
