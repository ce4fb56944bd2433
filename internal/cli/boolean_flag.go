package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	lenientBooleanTypeName      = "bool"
	lenientBooleanTrueLiteral   = "true"
	lenientBooleanAcceptedList  = "true, false, yes, no, on, off, 1, 0"
	lenientBooleanInvalidFormat = "invalid boolean value %q for --%s; accepted values: %s"
	flagArgumentTerminator      = "--"
	longFlagPrefix              = "--"
)

var lenientBooleanLiterals = map[string]bool{
	"true": true, "t": true, "1": true, "yes": true, "y": true, "on": true,
	"false": false, "f": false, "0": false, "no": false, "n": false, "off": false,
}

// lenientBoolean is a boolean flag that also accepts yes/no and on/off.
type lenientBoolean struct {
	target *bool
	name   string
}

func (value *lenientBoolean) Set(input string) error {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		normalized = lenientBooleanTrueLiteral
	}
	parsed, known := lenientBooleanLiterals[normalized]
	if !known {
		return fmt.Errorf(lenientBooleanInvalidFormat, input, value.name, lenientBooleanAcceptedList)
	}
	*value.target = parsed
	return nil
}

func (value *lenientBoolean) String() string {
	if value == nil || value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *lenientBoolean) Type() string {
	return lenientBooleanTypeName
}

// registerBooleanFlag adds a lenient boolean flag that defaults to defaultValue and
// turns on when given without a value.
func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	*target = defaultValue
	flagSet.Var(&lenientBoolean{target: target, name: name}, name, usage)
	flag := flagSet.Lookup(name)
	flag.DefValue = strconv.FormatBool(defaultValue)
	flag.NoOptDefVal = lenientBooleanTrueLiteral
}

// normalizeBooleanFlagArguments rewrites "--flag no" into "--flag=no" for the lenient
// boolean flags of command and its subcommands, since pflag never consumes a separate
// value for flags with NoOptDefVal.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	booleanFlags := lenientBooleanNames(command)
	if len(booleanFlags) == 0 {
		return arguments
	}
	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]
		if argument == flagArgumentTerminator {
			normalized = append(normalized, arguments[index:]...)
			break
		}
		flagName, isLongFlag := strings.CutPrefix(argument, longFlagPrefix)
		if isLongFlag && !strings.Contains(flagName, "=") && index+1 < len(arguments) {
			if _, lenient := booleanFlags[flagName]; lenient {
				if _, literal := lenientBooleanLiterals[strings.ToLower(strings.TrimSpace(arguments[index+1]))]; literal {
					normalized = append(normalized, argument+"="+arguments[index+1])
					index++
					continue
				}
			}
		}
		normalized = append(normalized, argument)
	}
	return normalized
}

func lenientBooleanNames(command *cobra.Command) map[string]struct{} {
	names := map[string]struct{}{}
	var visitCommand func(*cobra.Command)
	visitCommand = func(current *cobra.Command) {
		for _, flagSet := range []*pflag.FlagSet{current.PersistentFlags(), current.Flags()} {
			flagSet.VisitAll(func(flag *pflag.Flag) {
				if _, lenient := flag.Value.(*lenientBoolean); lenient {
					names[flag.Name] = struct{}{}
				}
			})
		}
		for _, child := range current.Commands() {
			visitCommand(child)
		}
	}
	visitCommand(command)
	return names
}
