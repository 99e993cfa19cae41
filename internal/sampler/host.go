package sampler

import (
	"fmt"
	"os/user"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/Dicklesworthstone/vitals/internal/model"
)

// HostSource reads static machine information.
type HostSource interface {
	HostInfo() (*host.InfoStat, error)
}

// ReadHost resolves machine info once at startup.
func ReadHost(src HostSource) (model.Host, error) {
	info, err := src.HostInfo()
	if err != nil {
		return model.Host{}, fmt.Errorf("sampler: host info: %w", err)
	}
	h := model.Host{
		Hostname:      info.Hostname,
		OS:            info.OS,
		Platform:      info.Platform,
		KernelVersion: info.KernelVersion,
		Arch:          info.KernelArch,
	}
	if info.PlatformVersion != "" {
		h.Platform += " " + info.PlatformVersion
	}
	if u, err := user.Current(); err == nil {
		h.User = u.Username
	}
	return h, nil
}
