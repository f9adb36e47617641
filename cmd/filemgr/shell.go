package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"filemgr/internal/dispatch"

	"github.com/mattn/go-isatty"
)

// menuChoice is a number typed at the shell prompt.
type menuChoice int

const (
	choiceHelp menuChoice = iota
	choiceCreate
	choiceReadFile
	choiceCopy
	choiceDelete
	choiceAppend
	choiceDeleteLine
	choiceInsertLine
	choiceShowLine
	choiceCountLines
	choiceListDir
	choiceResetChangelog
	choiceShowChangelog
	choiceQuit
)

const menu = `List of operations:
0 - Show this message
1 - Create a new file
2 - Display the contents of a file
3 - Copy a file
4 - Delete a file
5 - Append a line of content to a file
6 - Delete a line of content at a certain line number
7 - Insert a line of content at a certain line number
8 - Display the contents of a file at a certain line number
9 - Show the number of lines in a file
10 - Get all files in the current directory
11 - Reset the changelog for a file
12 - Show the changelog for a file
13 - Quit the program
`

type runner interface {
	Run(op dispatch.Op) (*dispatch.Result, error)
}

// shell is the numbered-menu loop. Prompts and the banner are only printed
// when a person is typing.
type shell struct {
	runner      runner
	printer     *printer
	in          *bufio.Reader
	interactive bool
}

func newShell(r runner, p *printer, in io.Reader, interactive bool) *shell {
	return &shell{
		runner:      r,
		printer:     p,
		in:          bufio.NewReader(in),
		interactive: interactive,
	}
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// run reads choices until quit or end of input.
func (s *shell) run() error {
	if s.interactive {
		fmt.Fprintln(s.printer.out, "Welcome to the file manager!")
		fmt.Fprintln(s.printer.out, "All operations are only applicable on files in the current directory.")
		fmt.Fprintln(s.printer.out)
		fmt.Fprint(s.printer.out, menu)
	}

	for {
		input, err := s.prompt("\nEnter the operation you would like to perform (or '0' to display them again): ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		n, err := strconv.Atoi(input)
		if err != nil || n < int(choiceHelp) || n > int(choiceQuit) {
			fmt.Fprintln(s.printer.out, "Invalid operation selected.")
			continue
		}

		choice := menuChoice(n)
		switch choice {
		case choiceQuit:
			fmt.Fprintln(s.printer.out, "Quitting...")
			return nil
		case choiceHelp:
			fmt.Fprint(s.printer.out, menu)
			continue
		}

		op, err := s.readOp(choice)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			s.printer.error(err)
			continue
		}

		res, err := s.runner.Run(op)
		if err != nil {
			s.printer.error(err)
			continue
		}
		s.printer.result(op, res)
	}
}

// readOp prompts for the arguments of choice and builds its operation.
func (s *shell) readOp(choice menuChoice) (dispatch.Op, error) {
	switch choice {
	case choiceCreate:
		name, err := s.prompt("Enter the name of the file you want to create: ")
		return dispatch.Create{Name: name}, err
	case choiceReadFile:
		name, err := s.prompt("Enter the name of the file you want to see the contents of: ")
		return dispatch.ReadFile{Name: name}, err
	case choiceCopy:
		src, err := s.prompt("Enter the name of the file you want to copy: ")
		if err != nil {
			return nil, err
		}
		dst, err := s.prompt("Enter the name of your new file: ")
		return dispatch.Copy{Source: src, Dest: dst}, err
	case choiceDelete:
		name, err := s.prompt("Enter the name of the file you want to delete: ")
		return dispatch.Delete{Name: name}, err
	case choiceAppend:
		name, err := s.prompt("Enter the file you want to append content to: ")
		if err != nil {
			return nil, err
		}
		content, err := s.promptRaw("Enter the content you want to append:\n")
		return dispatch.Append{Name: name, Content: content}, err
	case choiceDeleteLine:
		name, err := s.prompt("Enter the file you want to delete a line from: ")
		if err != nil {
			return nil, err
		}
		n, err := s.promptLine("Enter the line number you want to delete: ")
		return dispatch.DeleteLine{Name: name, Line: n}, err
	case choiceInsertLine:
		name, err := s.prompt("Enter the file you want to insert a line into: ")
		if err != nil {
			return nil, err
		}
		n, err := s.promptLine("Enter the line number you want to insert content at: ")
		if err != nil {
			return nil, err
		}
		content, err := s.promptRaw("Enter the content you want to insert: ")
		return dispatch.InsertLine{Name: name, Line: n, Content: content}, err
	case choiceShowLine:
		name, err := s.prompt("Enter the file you want to read a line from: ")
		if err != nil {
			return nil, err
		}
		n, err := s.promptLine("Enter the line number you want to read the contents at: ")
		return dispatch.ShowLine{Name: name, Line: n}, err
	case choiceCountLines:
		name, err := s.prompt("Enter the file you want to count the number of lines from: ")
		return dispatch.CountLines{Name: name}, err
	case choiceListDir:
		return dispatch.ListDir{}, nil
	case choiceResetChangelog:
		name, err := s.prompt("Enter the file that you want to reset the changelog of: ")
		return dispatch.ResetChangelog{Name: name}, err
	case choiceShowChangelog:
		name, err := s.prompt("Enter the file you want to see the changelog of: ")
		return dispatch.ShowChangelog{Name: name}, err
	default:
		return nil, fmt.Errorf("menu choice %d has no operation", choice)
	}
}

// prompt reads one line with surrounding whitespace removed.
func (s *shell) prompt(text string) (string, error) {
	line, err := s.promptRaw(text)
	return strings.TrimSpace(line), err
}

// promptRaw reads one line, dropping only its line break.
func (s *shell) promptRaw(text string) (string, error) {
	if s.interactive {
		fmt.Fprint(s.printer.out, text)
	}
	line, err := s.in.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}

func (s *shell) promptLine(text string) (int, error) {
	input, err := s.prompt(text)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid line number %q", input)
	}
	return n, nil
}
