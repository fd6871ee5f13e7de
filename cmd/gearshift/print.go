package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/calvinmclean/gearshift"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gearStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	changeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func printError(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
}

// statusPrinter is an io.Writer that renders encoded status messages for a terminal
type statusPrinter struct {
	out     io.Writer
	partial []byte
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{out: out}
}

func (p *statusPrinter) Write(b []byte) (int, error) {
	p.partial = append(p.partial, b...)
	for {
		i := bytes.IndexByte(p.partial, '\n')
		if i < 0 {
			break
		}
		line := string(p.partial[:i])
		p.partial = p.partial[i+1:]

		m, err := gearshift.ParseMessage(line)
		if err != nil {
			continue
		}
		_, err = fmt.Fprintln(p.out, renderMessage(m))
		if err != nil {
			return 0, err
		}
	}
	return len(b), nil
}

func renderMessage(m gearshift.Message) string {
	switch m.Type {
	case gearshift.MessageGearChanged:
		g, err := m.Gear()
		if err != nil {
			return errorStyle.Render("invalid gear: " + m.Payload)
		}
		return gearStyle.Render(fmt.Sprintf("Gear %d", g+1))
	case gearshift.MessageGearChanging:
		return changeStyle.Render("Shifting...")
	case gearshift.MessageError:
		return errorStyle.Render("Error: ") + m.Payload
	case gearshift.MessageDebug:
		return dimStyle.Render(m.Payload)
	case gearshift.MessageStartup, gearshift.MessageShutdown:
		return headerStyle.Render(m.Type.String())
	default:
		return m.String()
	}
}

func printInfo(msg string) {
	fmt.Fprintln(os.Stderr, headerStyle.Render(msg))
}
