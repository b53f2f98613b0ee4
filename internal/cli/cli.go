package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Show     *ShowCommand
	Export   *ExportCommand
	Register *RegisterCommand
	Verify   *VerifyCommand
	Import   *ImportCommand
	Add      *AddCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.HelpFlag|goflags.PassDoubleDash)
	parser.Name = "stepr"
	parser.LongDescription = "Local daily step tracker. Run without a command to open the terminal UI."
	parser.SubcommandsOptional = true

	cmds := &commands{
		Show:     &ShowCommand{globals: &globals, version: version},
		Export:   &ExportCommand{globals: &globals, version: version},
		Register: &RegisterCommand{globals: &globals, version: version},
		Verify:   &VerifyCommand{globals: &globals, version: version},
		Import:   &ImportCommand{globals: &globals, version: version},
		Add:      &AddCommand{globals: &globals, version: version},
	}

	parser.AddCommand("show", "Show daily step totals", "Aggregate steps per day over the window ending on the reference date and print them.", cmds.Show)
	parser.AddCommand("export", "Export daily step totals", "Aggregate steps per day and write them to a CSV or JSON file.", cmds.Export)
	parser.AddCommand("register", "Register the local user", "Store a user identifier and the digest of its password, replacing any previous registration.", cmds.Register)
	parser.AddCommand("verify", "Verify credentials", "Check a user identifier and password against the stored registration.", cmds.Verify)
	parser.AddCommand("import", "Import step samples from CSV", "Import step samples from a CSV file with a start,end,count[,id] header.", cmds.Import)
	parser.AddCommand("add", "Record a single step sample", "Record one step sample with a count and a start and end time.", cmds.Add)

	return parser, &globals, cmds
}

// Run is the main entry point for the stepr CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the
// matched subcommand. Without a subcommand the terminal UI is started.
func RunWithArgs(version string, args []string) error {
	// Handle --version before the parser so it never opens the database.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("stepr %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, globals, _ := buildParser(version)

	var (
		rest []string
		err  error
	)
	if args != nil {
		rest, err = parser.ParseArgs(args)
	} else {
		rest, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				fmt.Println(flagsErr.Message)
				return nil
			}
		}
		return err
	}

	if parser.Active == nil {
		if len(rest) > 0 {
			return fmt.Errorf("unknown command %q", rest[0])
		}
		return runTUI(globals, version)
	}
	return nil
}
