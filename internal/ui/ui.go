package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/vitals/internal/engine"
	"github.com/Dicklesworthstone/vitals/internal/format"
	"github.com/Dicklesworthstone/vitals/internal/model"
	"github.com/Dicklesworthstone/vitals/internal/weather"
)

// Source provides the latest engine snapshot; *engine.Driver implements it.
type Source interface {
	Snapshot() engine.Snapshot
}

// Model renders snapshots read from the engine. It never touches sampler
// state directly.
type Model struct {
	src     Source
	refresh time.Duration
	cityID  uint64
	latest  engine.Snapshot
	width   int
	height  int
}

// New polls src every refresh. cityID feeds the weather forecast link.
func New(src Source, refresh time.Duration, cityID uint64) *Model {
	if refresh <= 0 {
		refresh = time.Second / 5
	}
	return &Model{
		src:     src,
		refresh: refresh,
		cityID:  cityID,
		latest:  src.Snapshot(),
		width:   120,
		height:  40,
	}
}

// Messages
type tickMsg struct{}

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *Model) Init() tea.Cmd { return m.tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tickMsg:
		m.latest = m.src.Snapshot()
		return m, m.tickCmd()
	}
	return m, nil
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	sparkRunes  = []rune("▁▂▃▄▅▆▇█")
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

const barWidth = 28

func (m *Model) View() string {
	s := m.latest
	h := s.Host
	header := titleStyle.Render(fmt.Sprintf("%s@%s", h.User, h.Hostname)) + "  " +
		subtleStyle.Render(fmt.Sprintf("%s %s %s  %s",
			h.Platform, h.KernelVersion, h.Arch, s.At.Format("Mon Jan 2 15:04:05 MST 2006")))

	columns := []string{cpuCard(s.CPU), memoryCard(s.Memory), diskCard(s.Disk)}
	if s.GPU.Sampled {
		columns = append(columns, gpuCard(s.GPU))
	}
	line1 := lipgloss.JoinHorizontal(lipgloss.Top, columns...)

	line2 := lipgloss.JoinHorizontal(lipgloss.Top, networkCard(s.Network))
	if s.Weather.Sampled {
		line2 = lipgloss.JoinHorizontal(lipgloss.Top, line2, weatherCard(s.Weather, m.cityID))
	}

	procs := s.Processes.Value
	line3 := lipgloss.JoinHorizontal(lipgloss.Top,
		card(fmt.Sprintf("Top CPU (%d procs, %d running)", procs.Total, procs.Running),
			renderTable(procs.Ranked.ByCPU, 10)),
		card("Top Memory", renderTable(procs.Ranked.ByMemory, 10)))

	return lipgloss.JoinVertical(lipgloss.Left, header, line1, line2, line3)
}

func cpuCard(r engine.Reading[model.CPU]) string {
	if !r.Sampled {
		return card("CPU", subtleStyle.Render("waiting…"))
	}
	c := r.Value
	lines := []string{
		subtleStyle.Render(fmt.Sprintf("%s (%d cores)", format.Truncate(c.Model, 30), c.Cores)),
		gaugeBar(c.Total, barWidth),
		sparkline(c.History, barWidth),
	}
	info := fmt.Sprintf("%.2f GHz  load %.2f %.2f %.2f", c.FrequencyGHz, c.Load1, c.Load5, c.Load15)
	if c.HasTemperature {
		info += fmt.Sprintf("  %.0f°C", c.TemperatureC)
	}
	lines = append(lines, info, "up "+format.Duration(c.Uptime))
	return card("CPU", strings.Join(lines, "\n"))
}

func memoryCard(r engine.Reading[model.Memory]) string {
	if !r.Sampled {
		return card("Memory", subtleStyle.Render("waiting…"))
	}
	mem := r.Value
	title := "Memory"
	if mem.Frequency != "" {
		title += " @ " + mem.Frequency
	}
	return card(title, strings.Join([]string{
		gaugeBar(mem.Percent(), barWidth),
		sparkline(mem.History, barWidth),
		format.Used(mem.UsedBytes, mem.TotalBytes),
		"Swap " + format.Used(mem.SwapUsed, mem.SwapTotal),
	}, "\n"))
}

func diskCard(r engine.Reading[model.Disk]) string {
	if !r.Sampled {
		return card("Disk", subtleStyle.Render("waiting…"))
	}
	d := r.Value
	lines := []string{gaugeBar(d.UsedRatio()*100, barWidth)}
	if d.Model != "" {
		lines = append(lines, subtleStyle.Render(d.Model))
	}
	info := format.Size(d.AvailableBytes) + " free of " + format.Size(d.TotalBytes)
	if d.HasTemperature {
		info += fmt.Sprintf("  %.0f°C", d.TemperatureC)
	}
	lines = append(lines, info)
	if r.Err != "" {
		lines = append(lines, errorStyle.Render(format.Truncate(r.Err, barWidth+8)))
	}
	return card(d.Name, strings.Join(lines, "\n"))
}

func gpuCard(r engine.Reading[model.GPUs]) string {
	lines := make([]string, 0, len(r.Value.Devices)+1)
	for _, g := range r.Value.Devices {
		lines = append(lines,
			fmt.Sprintf("%s %4.0f%% mem:%4.0f/%-4.0fMiB %2.0f°C %4.0f/%4.0f MHz",
				format.Truncate(g.Name, 10), g.Util, g.MemUsedMB, g.MemTotalMB, g.TempC, g.GraphicsMHz, g.MemoryMHz))
	}
	lines = append(lines, sparkline(r.Value.History, barWidth))
	if r.Err != "" {
		lines = append(lines, errorStyle.Render(format.Truncate(r.Err, barWidth+8)))
	}
	return card("GPU", strings.Join(lines, "\n"))
}

func networkCard(r engine.Reading[model.Network]) string {
	n := r.Value
	switch n.State {
	case model.LinkUnsampled:
		return card("Network", subtleStyle.Render("waiting…"))
	case model.LinkDisconnected:
		return card("Network", errorStyle.Render("Disconnected"))
	}
	addrs := make([]string, 0, len(n.LocalAddrs))
	for _, a := range n.IPv4() {
		addrs = append(addrs, a.String())
	}
	public := "…"
	if n.PublicAddr.IsValid() {
		public = n.PublicAddr.String()
	}
	return card("Network "+n.Interface, strings.Join([]string{
		"local " + strings.Join(addrs, ", ") + "  public " + public,
		fmt.Sprintf("↓ %-12s %s", format.Speed(n.DownloadRate), sparkline(n.DownloadHistory, barWidth)),
		fmt.Sprintf("↑ %-12s %s", format.Speed(n.UploadRate), sparkline(n.UploadHistory, barWidth)),
		fmt.Sprintf("total ↓ %s ↑ %s", format.Size(n.TotalReceived), format.Size(n.TotalTransmitted)),
	}, "\n"))
}

func weatherCard(st weather.Status, cityID uint64) string {
	if !st.OK() {
		return card("Weather", errorStyle.Render(st.Err))
	}
	d := st.Data
	cond := d.Weather[0]
	return card(fmt.Sprintf("%s %s, %s", weather.Icon(cond.Icon), d.Name, d.Sys.Country), strings.Join([]string{
		fmt.Sprintf("%s  %.0f° (feels %.0f°)", weather.Title(cond.Description), d.Main.Temp, d.Main.FeelsLike),
		fmt.Sprintf("humidity %.0f%%  wind %.1f  clouds %.0f%%", d.Main.Humidity, d.Wind.Speed, d.Clouds.All),
		fmt.Sprintf("sunrise %s  sunset %s", weather.SunTime(d.Sys.Sunrise, d.Timezone), weather.SunTime(d.Sys.Sunset, d.Timezone)),
		subtleStyle.Render(weather.ForecastURL(cityID)),
	}, "\n"))
}

// Helpers
func gaugeBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

// sparkline draws history (most recent first, values in [0,1]) oldest on
// the left, padded on the left to width.
func sparkline(history []float64, width int) string {
	n := min(len(history), width)
	out := make([]rune, width)
	for i := range out {
		out[i] = ' '
	}
	for i := 0; i < n; i++ {
		v := history[i]
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		out[width-1-i] = sparkRunes[int(v*float64(len(sparkRunes)-1)+0.5)]
	}
	return string(out)
}

func card(title, body string) string {
	titleStr := labelStyle.Render(title)
	content := titleStr + "\n" + body
	return cardStyle.Render(content)
}

func renderTable(rows []model.Process, limit int) string {
	n := min(limit, len(rows))
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s %-7s %6s %10s\n", "cmd", "pid", "cpu", "mem")
	for i := 0; i < n; i++ {
		r := rows[i]
		fmt.Fprintf(&b, "%-24s %-7d %6.1f %10s\n",
			format.Truncate(r.Command, 24), r.PID, r.CPU, format.Size(r.MemoryBytes))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RunTUI starts the Bubble Tea program.
func RunTUI(src Source, refresh time.Duration, cityID uint64) error {
	prog := tea.NewProgram(New(src, refresh, cityID), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
