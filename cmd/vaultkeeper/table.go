package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/forest6511/vaultkeeper/pkg/vault"
)

const hiddenPassword = "********"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// renderProfiles draws profiles as a bordered table. Passwords are replaced
// by a fixed mask unless show is set.
func renderProfiles(profiles []*vault.Profile, show bool) string {
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		password := hiddenPassword
		if show {
			password = p.Password
		}
		rows = append(rows, []string{p.Name, deref(p.Username), password, deref(p.Link)})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("NAME", "USERNAME", "PASSWORD", "LINK").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}
