package chat

import "github.com/charmbracelet/lipgloss"

// cardStyle renders one transcript entry: a title badge over a bordered body.
type cardStyle struct {
	title lipgloss.Style
	body  lipgloss.Style
}

type theme struct {
	header     lipgloss.Style
	headerMeta lipgloss.Style
	divider    lipgloss.Style
	bootLine   lipgloss.Style
	bootDone   lipgloss.Style

	// cards holds one palette per entry role, so each dispatch kind is
	// recognizable at a glance.
	cards map[entryRole]cardStyle

	status     lipgloss.Style
	statusBusy lipgloss.Style
	statusErr  lipgloss.Style
	hint       lipgloss.Style
	inputLabel lipgloss.Style
	input      lipgloss.Style
	viewport   lipgloss.Style
}

func newCard(accent string, background string, border lipgloss.Border) cardStyle {
	return cardStyle{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color(accent)).
			Padding(0, 1),
		body: lipgloss.NewStyle().
			Border(border).
			BorderForeground(lipgloss.Color(accent)).
			Background(lipgloss.Color(background)).
			Padding(0, 1),
	}
}

func (t theme) card(role entryRole) cardStyle {
	if style, ok := t.cards[role]; ok {
		return style
	}

	return t.cards[roleReply]
}

func defaultTheme() theme {
	failed := newCard("160", "52", lipgloss.DoubleBorder())
	failed.title = failed.title.Foreground(lipgloss.Color("231"))
	failed.body = failed.body.Foreground(lipgloss.Color("203"))

	return theme{
		header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("24")),
		headerMeta: lipgloss.NewStyle().Foreground(lipgloss.Color("153")),
		divider:    lipgloss.NewStyle().Foreground(lipgloss.Color("67")),
		bootLine:   lipgloss.NewStyle().Foreground(lipgloss.Color("152")),
		bootDone:   lipgloss.NewStyle().Foreground(lipgloss.Color("114")).Bold(true),
		cards: map[entryRole]cardStyle{
			roleUser:        newCard("214", "235", lipgloss.RoundedBorder()),
			roleReply:       newCard("44", "234", lipgloss.DoubleBorder()),
			roleIntercepted: newCard("178", "236", lipgloss.ThickBorder()),
			roleRejected:    newCard("109", "236", lipgloss.NormalBorder()),
			roleFailed:      failed,
		},
		status:     lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Bold(true),
		statusBusy: lipgloss.NewStyle().Foreground(lipgloss.Color("222")).Bold(true),
		statusErr:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		hint:       lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		inputLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")),
		input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("67")).
			Background(lipgloss.Color("236")).
			Padding(0, 1),
		viewport: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("24")).
			Background(lipgloss.Color("233")).
			Padding(0, 1),
	}
}
