package engine

import (
	"sync/atomic"
	"time"

	"github.com/Dicklesworthstone/vitals/internal/model"
	"github.com/Dicklesworthstone/vitals/internal/weather"
)

// Reading is the latest published value of one domain. Sampled is false
// until the first tick finished. Err holds the last tick's failure, in which
// case Value is the previous good value.
type Reading[T any] struct {
	Sampled bool   `json:"sampled"`
	Value   T      `json:"value"`
	Err     string `json:"error,omitempty"`
}

// Snapshot is a consistent-per-domain view of every domain. Values are
// copies; consumers may keep them.
type Snapshot struct {
	At        time.Time                `json:"at"`
	Host      model.Host               `json:"host"`
	CPU       Reading[model.CPU]       `json:"cpu"`
	Memory    Reading[model.Memory]    `json:"memory"`
	Disk      Reading[model.Disk]      `json:"disk"`
	GPU       Reading[model.GPUs]      `json:"gpu"`
	Processes Reading[model.Processes] `json:"processes"`
	Network   Reading[model.Network]   `json:"network"`
	Weather   weather.Status           `json:"weather"`
}

// Snapshot gathers the latest value of every domain. The public address is
// only attached while the interface is connected.
func (d *Driver) Snapshot() Snapshot {
	s := Snapshot{
		At:        d.now(),
		Host:      d.host,
		CPU:       load(&d.cpu),
		Memory:    load(&d.memory),
		Disk:      load(&d.disk),
		GPU:       load(&d.gpu),
		Processes: load(&d.processes),
		Network:   load(&d.network),
	}
	if w := d.weather.Load(); w != nil {
		s.Weather = *w
	}
	if d.publicIP != nil && s.Network.Value.State == model.LinkConnected {
		s.Network.Value.PublicAddr = d.publicIP.Addr()
	}
	return s
}

func load[T any](p *atomic.Pointer[Reading[T]]) Reading[T] {
	if r := p.Load(); r != nil {
		return *r
	}
	return Reading[T]{}
}
