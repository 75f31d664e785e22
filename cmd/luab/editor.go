package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"golang.org/x/term"

	"github.com/feather-lang/luabridge"
)

var errInterrupted = errors.New("interrupted")

// keyResult holds a key press result
type keyResult struct {
	key string
	err error
}

// LineEditor is a raw-mode line editor with history and completion of
// global names.
type LineEditor struct {
	state    *luabridge.State
	oldState *term.State
	fd       int

	line   []rune
	cursor int

	history []string
	histPos int

	// Candidates shown after Tab, cycled by further Tabs.
	completions []string
	selected    int
	popupLines  int

	pendingInput []byte

	keyChan       chan keyResult
	readerRunning bool
}

// NewLineEditor creates a line editor completing names from s.
func NewLineEditor(s *luabridge.State) *LineEditor {
	return &LineEditor{
		state: s,
		fd:    int(os.Stdin.Fd()),
	}
}

func (e *LineEditor) enterRawMode() error {
	oldState, err := term.MakeRaw(e.fd)
	if err != nil {
		return err
	}
	e.oldState = oldState
	return nil
}

func (e *LineEditor) exitRawMode() {
	if e.oldState != nil {
		term.Restore(e.fd, e.oldState)
		e.oldState = nil
	}
}

func (e *LineEditor) terminalWidth() int {
	width, _, err := term.GetSize(e.fd)
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// readByte reads a single byte, using the pending buffer first.
func (e *LineEditor) readByte() (byte, error) {
	if len(e.pendingInput) > 0 {
		b := e.pendingInput[0]
		e.pendingInput = e.pendingInput[1:]
		return b, nil
	}
	buf := make([]byte, 32)
	n, err := os.Stdin.Read(buf)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	e.pendingInput = append(e.pendingInput, buf[1:n]...)
	return buf[0], nil
}

// skipToTerminator skips bytes up to a CSI terminator (0x40-0x7E).
func (e *LineEditor) skipToTerminator() {
	for {
		b, err := e.readByte()
		if err != nil || (b >= 0x40 && b <= 0x7E) {
			return
		}
	}
}

// readKey reads a single key press, decoding escape sequences.
func (e *LineEditor) readKey() (string, error) {
	ch, err := e.readByte()
	if err != nil {
		return "", err
	}

	if ch == 0x1b {
		ch2, err := e.readByte()
		if err != nil || ch2 != '[' {
			return "escape", nil
		}
		ch3, err := e.readByte()
		if err != nil {
			return "escape", nil
		}
		switch ch3 {
		case 'A':
			return "up", nil
		case 'B':
			return "down", nil
		case 'C':
			return "right", nil
		case 'D':
			return "left", nil
		case 'H':
			return "home", nil
		case 'F':
			return "end", nil
		case '3':
			e.readByte() // ~
			return "delete", nil
		}
		if ch3 < 0x40 || ch3 > 0x7E {
			e.skipToTerminator()
		}
		return e.readKey()
	}

	switch ch {
	case 0x01:
		return "home", nil
	case 0x03:
		return "ctrl-c", nil
	case 0x04:
		return "ctrl-d", nil
	case 0x05:
		return "end", nil
	case 0x09:
		return "tab", nil
	case 0x0d, 0x0a:
		return "enter", nil
	case 0x7f, 0x08:
		return "backspace", nil
	case 0x15:
		return "ctrl-u", nil
	case 0x17:
		return "ctrl-w", nil
	}
	return string(ch), nil
}

// render redraws the prompt, the line and the completion list.
func (e *LineEditor) render(prompt string) {
	e.clearPopup()
	fmt.Print("\r\033[K")
	fmt.Print(prompt)
	fmt.Print(string(e.line))
	if len(e.completions) > 0 {
		e.renderPopup()
	}
	fmt.Printf("\r\033[%dC", len(prompt)+e.cursor)
}

func (e *LineEditor) renderPopup() {
	shown := min(len(e.completions), 10)
	width := e.terminalWidth() - 2
	for i := 0; i < shown; i++ {
		fmt.Print("\n\r\033[K")
		text := e.completions[i]
		if len(text) > width {
			text = text[:width]
		}
		if i == e.selected {
			fmt.Printf("\033[7m> %s\033[0m", text)
		} else {
			fmt.Printf("\033[2m  %s\033[0m", text)
		}
	}
	e.popupLines = shown
	if shown > 0 {
		fmt.Printf("\033[%dA\r", shown)
	}
}

func (e *LineEditor) clearPopup() {
	if e.popupLines == 0 {
		return
	}
	for i := 0; i < e.popupLines; i++ {
		fmt.Print("\n\033[2K")
	}
	fmt.Printf("\033[%dA\r", e.popupLines)
	e.popupLines = 0
}

func (e *LineEditor) hidePopup() {
	e.clearPopup()
	e.completions = nil
	e.selected = 0
}

// wordStart returns the start of the dotted name before the cursor.
func (e *LineEditor) wordStart() int {
	i := e.cursor
	for i > 0 && isNameRune(e.line[i-1]) {
		i--
	}
	return i
}

func isNameRune(r rune) bool {
	return r == '_' || r == '.' || r == ':' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// complete lists the names extending the word before the cursor.
func (e *LineEditor) complete() {
	word := string(e.line[e.wordStart():e.cursor])
	e.completions = completeName(e.state, word)
	e.selected = 0
}

func (e *LineEditor) applyCompletion() {
	if len(e.completions) == 0 {
		return
	}
	c := []rune(e.completions[e.selected])
	start := e.wordStart()
	line := slices.Concat(e.line[:start], c, e.line[e.cursor:])
	e.line = line
	e.cursor = start + len(c)
	e.hidePopup()
}

func (e *LineEditor) startKeyReader() {
	if e.readerRunning {
		return
	}
	e.keyChan = make(chan keyResult, 16)
	e.readerRunning = true
	go func() {
		for {
			key, err := e.readKey()
			e.keyChan <- keyResult{key, err}
			if err != nil {
				e.readerRunning = false
				return
			}
		}
	}()
}

// ReadLine reads a line of input. It returns io.EOF on Ctrl-D at an empty
// line and errInterrupted on Ctrl-C.
func (e *LineEditor) ReadLine(prompt string) (string, error) {
	if err := e.enterRawMode(); err != nil {
		return "", err
	}
	defer e.exitRawMode()

	resize, stop := setupResizeSignal()
	defer stop()

	e.startKeyReader()

	e.line = nil
	e.cursor = 0
	e.histPos = len(e.history)
	e.hidePopup()
	e.render(prompt)

	for {
		var kr keyResult
		select {
		case <-resize:
			e.render(prompt)
			continue
		case kr = <-e.keyChan:
		}
		if kr.err != nil {
			return "", kr.err
		}

		switch kr.key {
		case "enter":
			if len(e.completions) > 0 {
				e.applyCompletion()
				break
			}
			e.clearPopup()
			fmt.Print("\r\n")
			line := string(e.line)
			if strings.TrimSpace(line) != "" {
				e.history = append(e.history, line)
			}
			return line, nil

		case "ctrl-c":
			e.clearPopup()
			fmt.Print("\r\n")
			return "", errInterrupted

		case "ctrl-d":
			if len(e.line) == 0 {
				e.clearPopup()
				fmt.Print("\r\n")
				return "", io.EOF
			}
			if e.cursor < len(e.line) {
				e.line = slices.Delete(e.line, e.cursor, e.cursor+1)
			}
			e.hidePopup()

		case "tab":
			if len(e.completions) > 0 {
				e.selected = (e.selected + 1) % len(e.completions)
			} else {
				e.complete()
				if len(e.completions) == 1 {
					e.applyCompletion()
				}
			}

		case "up":
			if len(e.completions) > 0 {
				e.selected = (e.selected + len(e.completions) - 1) % len(e.completions)
			} else if e.histPos > 0 {
				e.histPos--
				e.line = []rune(e.history[e.histPos])
				e.cursor = len(e.line)
			}

		case "down":
			if len(e.completions) > 0 {
				e.selected = (e.selected + 1) % len(e.completions)
			} else if e.histPos < len(e.history) {
				e.histPos++
				e.line = nil
				if e.histPos < len(e.history) {
					e.line = []rune(e.history[e.histPos])
				}
				e.cursor = len(e.line)
			}

		case "left":
			if e.cursor > 0 {
				e.cursor--
			}
			e.hidePopup()

		case "right":
			if e.cursor < len(e.line) {
				e.cursor++
			}
			e.hidePopup()

		case "home":
			e.cursor = 0
			e.hidePopup()

		case "end":
			e.cursor = len(e.line)
			e.hidePopup()

		case "backspace":
			if e.cursor > 0 {
				e.line = slices.Delete(e.line, e.cursor-1, e.cursor)
				e.cursor--
			}
			e.hidePopup()

		case "delete":
			if e.cursor < len(e.line) {
				e.line = slices.Delete(e.line, e.cursor, e.cursor+1)
			}
			e.hidePopup()

		case "ctrl-u":
			e.line = e.line[e.cursor:]
			e.cursor = 0
			e.hidePopup()

		case "ctrl-w":
			i := e.cursor
			for i > 0 && e.line[i-1] == ' ' {
				i--
			}
			for i > 0 && e.line[i-1] != ' ' {
				i--
			}
			e.line = slices.Delete(e.line, i, e.cursor)
			e.cursor = i
			e.hidePopup()

		case "escape":
			e.hidePopup()

		default:
			if len(kr.key) == 1 && kr.key[0] >= 32 && kr.key[0] < 127 {
				e.line = slices.Insert(e.line, e.cursor, rune(kr.key[0]))
				e.cursor++
				e.hidePopup()
			}
		}

		e.render(prompt)
	}
}

// completeName returns the names that extend word, looked up in the global
// table or, for a dotted word, in the table the prefix names.
func completeName(s *luabridge.State, word string) []string {
	top := s.Top()
	defer s.SetTop(top)

	prefix, partial := "", word
	if i := strings.LastIndexAny(word, ".:"); i >= 0 {
		prefix, partial = word[:i+1], word[i+1:]
	}

	s.PushGlobalTable()
	if prefix != "" {
		for _, part := range strings.FieldsFunc(prefix, func(r rune) bool { return r == '.' || r == ':' }) {
			if _, err := s.GetField(-1, part); err != nil {
				return nil
			}
			if !s.IsTable(-1) {
				// A value with an __index table, such as a string, completes
				// its methods.
				if s.GetMetafield(-1, "__index") != luabridge.TypeTable {
					return nil
				}
			}
		}
	}

	var names []string
	s.PushNil()
	for s.Next(-2) {
		if s.Type(-2) == luabridge.TypeString {
			name, _ := s.ToString(-2)
			if strings.HasPrefix(name, partial) {
				names = append(names, prefix+name)
			}
		}
		s.Pop(1)
	}
	slices.Sort(names)
	return names
}

// runREPL runs an interactive session on the terminal.
func runREPL(opts options) error {
	s, _, err := newState(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	editor := NewLineEditor(s)
	ss := &session{s: s}

	fmt.Println("luabridge REPL - Tab completes names, Ctrl-D exits")

	for {
		prompt := "> "
		if ss.pending() {
			prompt = ">> "
		}

		line, err := editor.ReadLine(prompt)
		if errors.Is(err, errInterrupted) {
			ss.reset()
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if ss.pending() {
					fmt.Println("Incomplete input, discarded")
				}
				return nil
			}
			return err
		}

		out, more, err := ss.feed(line)
		switch {
		case more:
		case err != nil:
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		case out != "":
			fmt.Println(out)
		}
	}
}
