package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/term"

	"github.com/dacapoday/pagestore/kv"
)

// Interactive mode:
//
//	j/↓      scroll down
//	k/↑      scroll up
//	space    page down
//	b        page up
//	g        jump to first
//	/        jump to key
//	q/Esc    quit
func runInteractive(ctx context.Context, db *kv.DB) error {
	iter := db.Iter(ctx)
	defer iter.Close()
	iter.SeekFirst()
	if err := iter.Error(); err != nil {
		return err
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	v := &viewer{
		db:   db,
		iter: iter,
	}
	v.updateSize()
	v.fill()

	fmt.Print("\033[?25l\033[2J")             // hide cursor, clear screen once
	defer fmt.Print("\033[?25h\033[2J\033[H") // show cursor, clear screen

	reader := bufio.NewReader(os.Stdin)

	for {
		// update terminal size on each render
		if v.updateSize() {
			v.fill()
		}
		v.render()

		b, err := reader.ReadByte()
		if err != nil {
			break
		}

		v.status = "" // clear status on any input

		switch b {
		case 'q', 3, 27: // q, Ctrl+C, Esc
			if b == 27 && reader.Buffered() > 0 {
				// escape sequence
				b2, _ := reader.ReadByte()
				if b2 == '[' {
					b3, _ := reader.ReadByte()
					switch b3 {
					case 'A': // up
						v.up()
					case 'B': // down
						v.down()
					case '5': // page up
						reader.ReadByte()
						v.pageUp()
					case '6': // page down
						reader.ReadByte()
						v.pageDown()
					}
				}
				continue
			}
			return iter.Error()
		case 'j':
			v.down()
		case 'k':
			v.up()
		case ' ':
			v.pageDown()
		case 'b':
			v.pageUp()
		case 'g':
			v.first()
		case '/':
			v.search(reader)
		}
	}
	return iter.Error()
}

type item struct {
	key, val []byte
}

// viewer keeps every item read since the last jump, so scrolling up never
// needs a backward cursor.
type viewer struct {
	db     *kv.DB
	iter   *kv.Iter
	items  []item
	top    int
	width  int
	height int
	status string
}

// updateSize checks terminal size and returns true if changed.
func (v *viewer) updateSize() bool {
	w, h, err := term.GetSize(int(os.Stdin.Fd()))
	if err != nil {
		w, h = 80, 24
	}
	if w == v.width && h == v.height {
		return false
	}
	v.width, v.height = w, h
	return true
}

func (v *viewer) lines() int {
	return v.height - 4 // title + separator + separator + status
}

// fill reads items until the screen below top is full or the store ends.
func (v *viewer) fill() {
	for len(v.items) < v.top+v.lines() && v.iter.Valid() {
		v.items = append(v.items, item{
			key: bytes.Clone(v.iter.Key()),
			val: bytes.Clone(v.iter.Val()),
		})
		v.iter.Next()
	}
	if err := v.iter.Error(); err != nil {
		v.status = err.Error()
	}
}

func (v *viewer) atEnd() bool {
	return !v.iter.Valid() && v.top+v.lines() >= len(v.items)
}

func (v *viewer) down() {
	// at end, allow scrolling until only 1 item visible
	if v.top+1 < len(v.items) {
		v.top++
		v.fill()
	}
}

func (v *viewer) up() {
	if v.top > 0 {
		v.top--
	}
}

func (v *viewer) pageDown() {
	for i := 0; i < v.lines()-1; i++ {
		v.down()
	}
}

func (v *viewer) pageUp() {
	for i := 0; i < v.lines()-1; i++ {
		v.up()
	}
}

func (v *viewer) first() {
	v.reset()
	v.iter.SeekFirst()
	v.fill()
}

func (v *viewer) reset() {
	v.items = v.items[:0]
	v.top = 0
}

func (v *viewer) search(reader *bufio.Reader) {
	// show search prompt
	fmt.Print("\033[?25h") // show cursor
	fmt.Printf("\033[%d;1H\033[K/", v.height)

	// read search input
	var input []byte
	for {
		b, err := reader.ReadByte()
		if err != nil {
			break
		}
		if b == 27 || b == 3 { // Esc or Ctrl+C
			fmt.Print("\033[?25l")
			v.status = ""
			return
		}
		if b == 13 || b == 10 { // Enter
			break
		}
		if b == 127 || b == 8 { // Backspace
			if len(input) > 0 {
				input = input[:len(input)-1]
				fmt.Print("\b \b")
			}
			continue
		}
		if b >= 32 && b < 127 {
			input = append(input, b)
			fmt.Print(string(b))
		}
	}
	fmt.Print("\033[?25l")

	if len(input) == 0 {
		v.status = ""
		return
	}

	key, err := parseKey(string(input), v.db.Layout().KeyWidth)
	if err != nil {
		v.status = err.Error()
		return
	}
	v.reset()
	if v.iter.Seek(key) {
		v.fill()
		v.status = fmt.Sprintf("jumped to: %s", formatKey(key))
	} else {
		v.status = "not found"
		v.iter.SeekFirst()
		v.fill()
	}
}

func (v *viewer) render() {
	var b strings.Builder

	// move to top (no clear)
	b.WriteString("\033[H")

	// header
	b.WriteString("[ pagectl ] ")
	b.WriteString(v.db.Layout().String())
	b.WriteString("\033[K\r\n")
	b.WriteString(strings.Repeat("─", v.width))
	b.WriteString("\033[K\r\n")

	// items
	keyWidth := 40
	valWidth := v.width - keyWidth - 4
	if valWidth < 20 {
		valWidth = 20
	}

	lines := v.lines()
	for i := 0; i < lines; i++ {
		if n := v.top + i; n < len(v.items) {
			it := v.items[n]
			fmt.Fprintf(&b, "%-*s", keyWidth, formatKey(it.key))
			if len(it.val) > 0 {
				b.WriteString(": ")
				b.WriteString(display(it.val, valWidth))
			}
		} else {
			b.WriteString("~")
		}
		b.WriteString("\033[K\r\n")
	}

	// footer
	b.WriteString(strings.Repeat("─", v.width))
	b.WriteString("\033[K\r\n")

	// status line
	pos := ""
	if v.top == 0 && v.atEnd() {
		pos = "[all]"
	} else if v.top == 0 {
		pos = "[top]"
	} else if v.atEnd() {
		pos = "[end]"
	}

	if v.status != "" {
		b.WriteString(" ")
		b.WriteString(v.status)
		b.WriteString(" ")
		b.WriteString(pos)
	} else {
		b.WriteString(" j/k:scroll space/b:page g:first /:jump q:quit ")
		b.WriteString(pos)
	}
	b.WriteString("\033[K")

	fmt.Print(b.String())
}

// display formats bytes for display, truncating if needed.
// Tries to show as string if printable, otherwise hex.
func display(b []byte, maxLen int) string {
	if len(b) == 0 {
		return "(empty)"
	}

	// check if printable UTF-8
	if utf8.Valid(b) && isPrintable(b) {
		runes := []rune(string(b))
		if len(runes) > maxLen-3 {
			return string(runes[:maxLen-3]) + "..."
		}
		return string(runes)
	}

	// show as hex
	hex := fmt.Sprintf("%x", b)
	if len(hex) > maxLen-3 {
		return hex[:maxLen-3] + "..."
	}
	return hex
}

func isPrintable(b []byte) bool {
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
