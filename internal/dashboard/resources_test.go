package dashboard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"cryptobridge/logger"
)

func stubSamplers(t *testing.T, cpuCalls *atomic.Int32) {
	t.Helper()
	originalCPU := cpuPercentFn
	originalMem := memoryStatsFn
	originalDisk := diskUsageFn
	t.Cleanup(func() {
		cpuPercentFn = originalCPU
		memoryStatsFn = originalMem
		diskUsageFn = originalDisk
	})

	cpuPercentFn = func(ctx context.Context, interval time.Duration) ([]float64, error) {
		if cpuCalls != nil {
			cpuCalls.Add(1)
		}
		return []float64{42.5}, nil
	}
	memoryStatsFn = func(ctx context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Used: 1024, Total: 2048, UsedPercent: 50}, nil
	}
	diskUsageFn = func(ctx context.Context, path string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Used: 4096, Total: 8192, UsedPercent: 50}, nil
	}
}

func TestResourceSamplerCollectsSamples(t *testing.T) {
	log := logger.Logger()
	sampler := newResourceSampler(3, time.Millisecond*10, "/", log)

	cpuCalls := atomic.Int32{}
	stubSamplers(t, &cpuCalls)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sampler.start(ctx)

	deadline := time.Now().Add(250 * time.Millisecond)
	for {
		if time.Now().After(deadline) {
			t.Fatal("resource sampler did not collect samples in time")
		}
		if len(sampler.snapshot()) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	sampler.stop()

	latest, ok := sampler.latest()
	if !ok {
		t.Fatal("expected at least one resource snapshot")
	}
	if latest.CPUPercent != 42.5 || latest.MemoryPct != 50 || latest.DiskPct != 50 {
		t.Fatalf("unexpected snapshot data: %#v", latest)
	}
	if cpuCalls.Load() == 0 {
		t.Fatal("expected cpu sampler to be invoked")
	}
}

func TestResourceSamplerHistoryBounded(t *testing.T) {
	sampler := newResourceSampler(2, time.Millisecond, "/", logger.Logger())
	for i := 0; i < 5; i++ {
		sampler.append(resourceSnapshot{CPUPercent: float64(i)})
	}
	snapshots := sampler.snapshot()
	if len(snapshots) != 2 {
		t.Fatalf("history length = %d, want 2", len(snapshots))
	}
	if snapshots[0].CPUPercent != 3 || snapshots[1].CPUPercent != 4 {
		t.Fatalf("unexpected history retained: %#v", snapshots)
	}
}
