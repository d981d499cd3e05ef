package keyValStore

import (
	"errors"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/disk"
	"github.com/sirupsen/logrus"
)

func (sc *StoreConfig) checkConfig() error {
	if sc.Path == "" {
		return errors.New("no path provided in configuration")
	}

	if err := os.MkdirAll(sc.Path, 0o755); err != nil {
		return fmt.Errorf("cannot create store directory: %w", err)
	}

	if sc.MinimumFreeGB <= 0 {
		return nil
	}

	usage, err := disk.Usage(sc.Path)
	if err != nil {
		return fmt.Errorf("cannot determine disk usage: %w", err)
	}

	freeGB := usage.Free / (1024 * 1024 * 1024)
	if freeGB < uint64(sc.MinimumFreeGB) {
		return fmt.Errorf("not enough space available on disk: %d GB free, %d GB required", freeGB, sc.MinimumFreeGB)
	}

	return nil
}

// logDiskUsage reports the volume holding the store. Failures are logged
// and ignored: statistics must never block opening the store.
func (k *KeyValStore) logDiskUsage() {
	usage, err := disk.Usage(k.config.Path)
	if err != nil {
		k.log.WithField("path", k.config.Path).Warnf("Error retrieving disk usage stats: %v", err)
		return
	}

	k.log.WithFields(logrus.Fields{
		"path":       k.config.Path,
		"total (GB)": fmt.Sprintf("%.2f", float64(usage.Total)/1e9),
		"used (GB)":  fmt.Sprintf("%.2f", float64(usage.Used)/1e9),
		"free (GB)":  fmt.Sprintf("%.2f", float64(usage.Free)/1e9),
	}).Info("Disk usage for chunk store")
}
