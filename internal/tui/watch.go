// Package tui is the live terminal view over the relay's admin API: a
// delivery table fed by the SSE event stream plus a health header.
package tui

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/taiga-contrib/relay/internal/events"
)

// --- Styles ---

var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD"))

	statusOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	statusWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))
	statusFailed = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1)
)

// --- Types ---

// deliveryRow is one rendered line in the deliveries table.
type deliveryRow struct {
	At      time.Time
	Type    string
	Channel string
	Detail  string
}

type Model struct {
	apiURL string
	token  string

	width  int
	height int

	deliveries []deliveryRow
	eventLog   []events.Event
	stream     chan events.Event

	health struct {
		Status        string
		UptimeSeconds int64
		Network       string
		Channels      int
	}

	deliveryTable table.Model
	streamErr     error
}

type eventMsg events.Event
type healthMsg struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Network       string `json:"network"`
	Channels      int    `json:"channels"`
}
type errMsg error

// --- Init ---

func NewWatch(apiURL, token string) *Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Time", Width: 8},
			{Title: "ST", Width: 2},
			{Title: "Type", Width: 22},
			{Title: "Channel", Width: 14},
			{Title: "Detail", Width: 40},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return &Model{
		apiURL:        strings.TrimRight(apiURL, "/"),
		token:         token,
		deliveries:    make([]deliveryRow, 0),
		eventLog:      make([]events.Event, 0),
		stream:        make(chan events.Event, 100),
		deliveryTable: t,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.subscribeToEvents(),
		m.receiveNextEvent(),
		m.pollHealth(),
		tea.EnterAltScreen,
	)
}

// --- Update ---

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.deliveryTable.SetWidth(m.width - 6)

	case eventMsg:
		m.handleEvent(events.Event(msg))
		m.updateTable()
		return m, m.receiveNextEvent()

	case healthMsg:
		m.health.Status = msg.Status
		m.health.UptimeSeconds = msg.UptimeSeconds
		m.health.Network = msg.Network
		m.health.Channels = msg.Channels
		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return m.fetchHealth()
		})

	case errMsg:
		m.streamErr = msg
	}

	m.deliveryTable, cmd = m.deliveryTable.Update(msg)
	return m, cmd
}

func (m *Model) handleEvent(e events.Event) {
	m.eventLog = append([]events.Event{e}, m.eventLog...)
	if len(m.eventLog) > 50 {
		m.eventLog = m.eventLog[:50]
	}

	data := make(map[string]any)
	_ = json.Unmarshal(e.Data, &data)

	switch e.Type {
	case events.TypeDeliverySent, events.TypeDeliveryDropped:
		channel, _ := data["channel"].(string)
		detail, _ := data["template"].(string)
		if cause, ok := data["error"].(string); ok && cause != "" {
			detail = cause
		}
		m.pushDelivery(deliveryRow{At: e.At, Type: e.Type, Channel: channel, Detail: detail})

	case events.TypeWebhookRejected, events.TypeWebhookIgnored:
		channel, _ := data["channel"].(string)
		reason, _ := data["reason"].(string)
		m.pushDelivery(deliveryRow{At: e.At, Type: e.Type, Channel: channel, Detail: reason})

	case events.TypeSubscriptionAdded, events.TypeSubscriptionRemoved:
		channel, _ := data["channel"].(string)
		project, _ := data["project"].(string)
		m.pushDelivery(deliveryRow{At: e.At, Type: e.Type, Channel: channel, Detail: "project " + project})
	}
}

func (m *Model) pushDelivery(row deliveryRow) {
	m.deliveries = append([]deliveryRow{row}, m.deliveries...)
	if len(m.deliveries) > 100 {
		m.deliveries = m.deliveries[:100]
	}
}

func (m *Model) updateTable() {
	rows := make([]table.Row, 0, len(m.deliveries))
	for _, d := range m.deliveries {
		sym := statusWarn.Render("◉")
		switch d.Type {
		case events.TypeDeliverySent, events.TypeSubscriptionAdded:
			sym = statusOK.Render("●")
		case events.TypeDeliveryDropped, events.TypeWebhookRejected:
			sym = statusFailed.Render("∅")
		}
		rows = append(rows, table.Row{
			d.At.Local().Format("15:04:05"),
			sym,
			d.Type,
			d.Channel,
			d.Detail,
		})
	}
	m.deliveryTable.SetRows(rows)
}

// --- View ---

func (m *Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	header := m.renderHeader()
	deliveries := borderStyle.Width(m.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Deliveries"),
			m.deliveryTable.View(),
		),
	)

	eventsView := borderStyle.Width(m.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Event Stream"),
			m.renderEvents(),
		),
	)

	help := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(" [q] Quit • [↑/↓] Scroll Deliveries")

	return docStyle.Render(
		lipgloss.JoinVertical(
			lipgloss.Left,
			header,
			deliveries,
			eventsView,
			help,
		),
	)
}

func (m *Model) renderHeader() string {
	status := statusOK.Render("RUNNING")
	if m.health.Status != "ok" && m.health.Status != "" {
		status = statusFailed.Render("DEGRADED")
	}
	if m.streamErr != nil {
		status = statusFailed.Render("STREAM LOST")
	}

	uptime := time.Duration(m.health.UptimeSeconds) * time.Second

	items := []string{
		fmt.Sprintf("Status: %s", status),
		fmt.Sprintf("Uptime: %s", uptime.String()),
		fmt.Sprintf("Network: %s", m.health.Network),
		fmt.Sprintf("Channels: %d", m.health.Channels),
	}

	return borderStyle.Width(m.width - 4).Render(
		lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width((m.width-4)/4).Render(items[0]),
			lipgloss.NewStyle().Width((m.width-4)/4).Render(items[1]),
			lipgloss.NewStyle().Width((m.width-4)/4).Render(items[2]),
			lipgloss.NewStyle().Width((m.width-4)/4).Render(items[3]),
		),
	)
}

func (m *Model) renderEvents() string {
	var lines []string
	for i, e := range m.eventLog {
		if i >= 10 {
			break
		}
		ts := e.At.Local().Format("15:04:05")
		lines = append(lines, fmt.Sprintf("%s | %-22s | %s", ts, e.Type, string(e.Data)))
	}
	if len(lines) == 0 {
		return "  No events yet..."
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
}

// --- Commands ---

func (m *Model) subscribeToEvents() tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{}
		req, err := http.NewRequest(http.MethodGet, m.apiURL+"/events", nil)
		if err != nil {
			return errMsg(err)
		}
		req.Header.Set("Authorization", "Bearer "+m.token)

		resp, err := client.Do(req)
		if err != nil {
			return errMsg(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return errMsg(fmt.Errorf("event stream returned %s", resp.Status))
		}

		for ev := range parseSSE(resp.Body) {
			m.stream <- ev
		}
		return errMsg(fmt.Errorf("event stream closed"))
	}
}

// parseSSE reassembles id/event/data frames from the admin API stream.
// The data line carries the event payload; id and event carry the envelope.
func parseSSE(r io.Reader) <-chan events.Event {
	out := make(chan events.Event, 16)
	go func() {
		defer close(out)
		var cur events.Event
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "id: "):
				fmt.Sscanf(line[4:], "%d", &cur.ID)
			case strings.HasPrefix(line, "event: "):
				cur.Type = line[7:]
			case strings.HasPrefix(line, "data: "):
				cur.Data = []byte(line[6:])
				cur.At = time.Now().UTC()
			case line == "":
				if cur.Type != "" || len(cur.Data) > 0 {
					out <- cur
				}
				cur = events.Event{}
			}
		}
	}()
	return out
}

func (m *Model) receiveNextEvent() tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-m.stream)
	}
}

func (m *Model) pollHealth() tea.Cmd {
	return func() tea.Msg {
		return m.fetchHealth()
	}
}

func (m *Model) fetchHealth() tea.Msg {
	client := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest(http.MethodGet, m.apiURL+"/healthz", nil)
	if err != nil {
		return errMsg(err)
	}
	req.Header.Set("Authorization", "Bearer "+m.token)

	resp, err := client.Do(req)
	if err != nil {
		return errMsg(err)
	}
	defer resp.Body.Close()

	var h healthMsg
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return errMsg(err)
	}
	return h
}
