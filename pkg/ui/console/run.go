// Package console is a terminal chat with the bot that runs requests through
// the same handler the messaging channels use.
package console

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aromabot/pkg/channel"
)

// ChatID identifies the console session to the dispatcher and the store.
const ChatID = "console"

// Info is shown in the console header.
type Info struct {
	UserName string
	Provider string
	Model    string
	Oils     int
}

// Run starts the interactive console and blocks until the user quits.
func Run(ctx context.Context, handler channel.Handler, info Info) error {
	model := newModel(ctx, handler, info)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return err
	}

	fmt.Println(renderGoodbyeBanner())
	return nil
}

func renderGoodbyeBanner() string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("28")).
		Padding(1, 2)

	return style.Render("🌿 Спасибо, что заглянули в AromaBot")
}
