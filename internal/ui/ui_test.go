package ui

import (
	"net/netip"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/vitals/internal/engine"
	"github.com/Dicklesworthstone/vitals/internal/model"
	"github.com/Dicklesworthstone/vitals/internal/weather"
)

type staticSource struct{ snap engine.Snapshot }

func (s *staticSource) Snapshot() engine.Snapshot { return s.snap }

func TestGaugeBar(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "[██░░]  50.0%", gaugeBar(50, 4))
	assert.Equal(t, "[░░░░]   0.0%", gaugeBar(-3, 4))
	assert.Equal(t, "[████] 100.0%", gaugeBar(250, 4))
}

func TestSparklineOldestLeft(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "  █▁", sparkline([]float64{0, 1}, 4))
	assert.Equal(t, "█▁", sparkline([]float64{0, 1, 0.5}, 2), "only the newest width values")
	assert.Equal(t, "   ", sparkline(nil, 3))
}

func TestRenderTable(t *testing.T) {
	t.Parallel()
	out := renderTable([]model.Process{
		{PID: 42, Command: "postgres: writer process", CPU: 12.5, MemoryBytes: 64 << 20},
		{PID: 7, Command: "sshd", CPU: 0.1, MemoryBytes: 4 << 20},
	}, 1)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "42")
	assert.Contains(t, lines[1], "64 MiB")
	assert.NotContains(t, out, "sshd")
}

func TestNetworkCardStates(t *testing.T) {
	t.Parallel()
	assert.Contains(t, networkCard(engine.Reading[model.Network]{}), "waiting")
	assert.Contains(t, networkCard(engine.Reading[model.Network]{
		Sampled: true, Value: model.Network{State: model.LinkDisconnected},
	}), "Disconnected")

	out := networkCard(engine.Reading[model.Network]{Sampled: true, Value: model.Network{
		State:      model.LinkConnected,
		Interface:  "wlan0",
		LocalAddrs: []netip.Addr{netip.MustParseAddr("192.168.0.9"), netip.MustParseAddr("fe80::2")},
		PublicAddr: netip.MustParseAddr("203.0.113.5"),
	}})
	assert.Contains(t, out, "wlan0")
	assert.Contains(t, out, "192.168.0.9")
	assert.NotContains(t, out, "fe80::2")
	assert.Contains(t, out, "203.0.113.5")
}

func TestWeatherCardShowsErrorVerbatim(t *testing.T) {
	t.Parallel()
	out := weatherCard(weather.Status{Sampled: true, Err: "fetch failed: Invalid API key"}, 1)
	assert.Contains(t, out, "fetch failed: Invalid API key")
}

func TestUpdatePullsSnapshotOnTick(t *testing.T) {
	t.Parallel()
	src := &staticSource{}
	m := New(src, time.Second, 0)
	assert.False(t, m.latest.CPU.Sampled)

	src.snap = engine.Snapshot{CPU: engine.Reading[model.CPU]{Sampled: true, Value: model.CPU{Total: 37}}}
	_, cmd := m.Update(tickMsg{})
	assert.NotNil(t, cmd)
	assert.True(t, m.latest.CPU.Sampled)
	assert.Contains(t, m.View(), "37.0%")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
