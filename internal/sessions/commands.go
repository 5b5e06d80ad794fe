package sessions

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/vancomm/minesweeper/internal/mines"
)

type Action int

const (
	Get Action = iota
	Reveal
	Flag
	Forfeit
)

func (a Action) String() string {
	switch a {
	case Get:
		return "get"
	case Reveal:
		return "reveal"
	case Flag:
		return "flag"
	case Forfeit:
		return "forfeit"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Command is a single move. A command built from coordinates is resolved
// to a cell id against the board it is applied to.
type Command struct {
	Action     Action
	Cell       mines.CellID
	X, Y       int
	ByPosition bool
}

func RevealCell(id mines.CellID) Command { return Command{Action: Reveal, Cell: id} }

func FlagCell(id mines.CellID) Command { return Command{Action: Flag, Cell: id} }

func RevealAt(x, y int) Command { return Command{Action: Reveal, X: x, Y: y, ByPosition: true} }

func FlagAt(x, y int) Command { return Command{Action: Flag, X: x, Y: y, ByPosition: true} }

func (c Command) cellID(g mines.Game) (mines.CellID, error) {
	if c.ByPosition {
		return g.CellAt(c.X, c.Y)
	}
	return c.Cell, nil
}

// Maps known commands to number of arguments
var commandNargs = map[string]int{
	"g": 0,
	"r": 1,
	"f": 1,
	"o": 2,
	"t": 2,
	"q": 0,
}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArguments   = errors.New("invalid number of arguments")
)

// CommandError reports the 1-based line of a batch that failed to parse.
type CommandError struct {
	Line int
	Err  error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func parseInts(strs []string) ([]int, error) {
	ints := make([]int, len(strs))
	for i, s := range strs {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("argument %d must be an int", i+1)
		}
		ints[i] = n
	}
	return ints, nil
}

func ParseCommand(line string) (Command, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Command{}, ErrUnknownCommand
	}
	nargs, ok := commandNargs[parts[0]]
	if !ok {
		return Command{}, fmt.Errorf("%w %q", ErrUnknownCommand, parts[0])
	}
	if nargs != len(parts)-1 {
		return Command{}, ErrBadArguments
	}
	args, err := parseInts(parts[1:])
	if err != nil {
		return Command{}, err
	}
	switch parts[0] {
	case "r":
		return RevealCell(mines.CellID(args[0])), nil
	case "f":
		return FlagCell(mines.CellID(args[0])), nil
	case "o":
		return RevealAt(args[0], args[1]), nil
	case "t":
		return FlagAt(args[0], args[1]), nil
	case "q":
		return Command{Action: Forfeit}, nil
	}
	return Command{Action: Get}, nil
}

func byLine(s string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		i := 1
		found := true
		var piece string
		for found {
			piece, s, found = strings.Cut(s, "\n")
			if !yield(i, piece) {
				return
			}
			i += 1
		}
	}
}

// ParseBatch parses newline separated commands, skipping blank lines.
// Nothing is returned unless every line parses.
func ParseBatch(text string) ([]Command, error) {
	var cmds []Command
	for i, line := range byLine(text) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cmd, err := ParseCommand(line)
		if err != nil {
			return nil, &CommandError{Line: i, Err: err}
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}
