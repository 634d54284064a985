package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// MemberTableItem represents one room member in the table
type MemberTableItem struct {
	Index  int
	ID     string
	IsHost bool
	IsSelf bool
}

// MemberTable renders the room membership using lipgloss/table
type MemberTable struct {
	items []MemberTableItem
}

// NewMemberTable creates a new member table
func NewMemberTable(items []MemberTableItem) *MemberTable {
	return &MemberTable{items: items}
}

// View renders the table as a string
func (t *MemberTable) View() string {
	if len(t.items) == 0 {
		return MutedStyle.Render("No members")
	}

	headers := []string{"#", "Peer", "Role"}

	var rows [][]string
	for _, item := range t.items {
		peer := item.ID
		if item.IsSelf {
			peer += " (you)"
		}
		role := IconPeer + " member"
		if item.IsHost {
			role = IconHost + " host"
		}
		rows = append(rows, []string{fmt.Sprintf("%d", item.Index), peer, role})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// Render outputs the table directly to stdout
func (t *MemberTable) Render() {
	fmt.Println(t.View())
}

// RenderMembers prints the room membership, marking the host and self.
func RenderMembers(members []string, host, self string) {
	items := make([]MemberTableItem, 0, len(members))
	for i, id := range members {
		items = append(items, MemberTableItem{
			Index:  i + 1,
			ID:     id,
			IsHost: id == host,
			IsSelf: id == self,
		})
	}
	fmt.Println(NewMemberTable(items).View())
}
