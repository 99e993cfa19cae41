package sampler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/Dicklesworthstone/vitals/internal/model"
)

// DiskSource is the slice of the OS the disk sampler reads.
type DiskSource interface {
	DiskUsage(mountPoint string) (*disk.UsageStat, error)
	// DiskModel returns the device model from the system device database.
	DiskModel(devicePath string) (string, error)
	// DiskTemperature reads the device's hwmon sensor in degrees Celsius.
	DiskTemperature(devicePath string) (float64, error)
}

// Disk samples space on one mount point and the temperature of its device.
type Disk struct {
	src        DiskSource
	logger     *slog.Logger
	mountPoint string
	devicePath string

	name     string
	model    string
	hasTemp  bool
	lastGood model.Disk
}

// NewDisk requires the mount point to exist. The device model is resolved
// once; a missing model or temperature sensor only omits that field.
func NewDisk(src DiskSource, name, mountPoint, devicePath string, logger *slog.Logger) (*Disk, error) {
	logger = discardLogger(logger)
	usage, err := src.DiskUsage(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("sampler: disk usage %s: %w", mountPoint, err)
	}
	d := &Disk{
		src:        src,
		logger:     logger,
		mountPoint: mountPoint,
		devicePath: devicePath,
		name:       name,
	}
	if usage.Fstype != "" {
		d.name = fmt.Sprintf("%s (%s)", name, usage.Fstype)
	}
	if devicePath != "" {
		if m, err := src.DiskModel(devicePath); err == nil {
			d.model = m
		} else {
			logger.Info("disk model unavailable", "device", devicePath, "error", err)
		}
		if _, err := src.DiskTemperature(devicePath); err == nil {
			d.hasTemp = true
		} else {
			logger.Info("disk temperature unavailable", "device", devicePath, "error", err)
		}
	}
	return d, nil
}

// Sample reads one disk tick. On a usage error the previous space figures
// are kept and the error is returned for logging.
func (d *Disk) Sample(now time.Time) (model.Disk, error) {
	out := model.Disk{
		At:         now,
		Name:       d.name,
		Model:      d.model,
		MountPoint: d.mountPoint,
	}
	usage, err := d.src.DiskUsage(d.mountPoint)
	if err != nil {
		out.TotalBytes, out.AvailableBytes = d.lastGood.TotalBytes, d.lastGood.AvailableBytes
		return out, fmt.Errorf("sampler: disk usage %s: %w", d.mountPoint, err)
	}
	out.TotalBytes, out.AvailableBytes = usage.Total, usage.Free

	if d.hasTemp {
		if t, err := d.src.DiskTemperature(d.devicePath); err == nil {
			out.TemperatureC, out.HasTemperature = t, true
		}
	}
	d.lastGood = out
	return out, nil
}
