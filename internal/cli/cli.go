package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Status   *StatusCommand
	Search   *SearchCommand
	Solve    *SolveCommand
	Show     *ShowCommand
	Favorite *FavoriteCommand
	Analyze  *AnalyzeCommand
	Fetch    *FetchCommand
	Prune    *PruneCommand
	Purge    *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "puzzler"
	parser.LongDescription = "Search the lichess puzzle database and solve puzzles from the terminal."

	cmds := &commands{
		Status:   &StatusCommand{globals: &globals, version: version},
		Search:   &SearchCommand{globals: &globals, version: version},
		Solve:    &SolveCommand{globals: &globals, version: version},
		Show:     &ShowCommand{globals: &globals, version: version},
		Favorite: &FavoriteCommand{globals: &globals, version: version},
		Analyze:  &AnalyzeCommand{globals: &globals, version: version},
		Fetch:    &FetchCommand{globals: &globals, version: version},
		Prune:    &PruneCommand{globals: &globals, version: version},
		Purge:    &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("status", "Show favorites, attempts and setup", "Show favorites, attempt statistics, and where the corpus, database and engine live.", cmds.Status)
	parser.AddCommand("search", "Search the puzzle corpus", "Scan the puzzle corpus and list puzzles matching the given filters.", cmds.Search)
	parser.AddCommand("solve", "Solve puzzles interactively", "Search the corpus and solve the matches one by one. Type help at the prompt for commands.", cmds.Solve)
	parser.AddCommand("show", "Print one puzzle", "Print a puzzle from the favorites or the corpus, with its attempt history.", cmds.Show)
	parser.AddCommand("favorite", "Manage favorite puzzles", "Add, remove or list favorite puzzles.", cmds.Favorite)
	parser.AddCommand("analyze", "Analyze a position with a UCI engine", "Evaluate a FEN or a puzzle's starting position with the configured UCI engine.", cmds.Analyze)
	parser.AddCommand("fetch", "Download the puzzle corpus", "Download and decompress the lichess puzzle database.", cmds.Fetch)
	parser.AddCommand("prune", "Drop old unfavorited entries", "Delete entries that were unfavorited longer ago than the retention period.", cmds.Prune)
	parser.AddCommand("purge", "Delete stored puzzler data", "Delete favorites, or all stored data. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the puzzler CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("puzzler %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
