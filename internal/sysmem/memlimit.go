package sysmem

import (
	"log"
	"runtime"
)

// DefaultMemoryPressurePercent is the fraction of total RAM that
// AutoBudget will offer as a cache_memory_budget when the config file
// leaves it unset. 0.25 = 25%, a conservative share since the texture
// cache competes with the image viewer's own GPU-side resources.
const DefaultMemoryPressurePercent = 0.25

// AutoBudget returns a reasonable cache_memory_budget in bytes: a fraction
// (e.g. 0.25 for 25%) of total system RAM, minus the current Go heap
// overhead so the decode and worker-pool buffers have headroom alongside
// the cached mip data itself.
//
// Returns 0 if RAM detection fails or the computed budget is unreasonably
// small; callers should fall back to a fixed default budget in that case.
func AutoBudget(fraction float64, verbose bool) int64 {
	totalRAM, err := totalSystemRAM()
	if err != nil {
		if verbose {
			log.Printf("cannot detect system RAM: %v; falling back to a fixed cache budget", err)
		}
		return 0
	}

	if verbose {
		log.Printf("system RAM: %.1f GB", float64(totalRAM)/(1024*1024*1024))
	}

	// Reserve headroom for Go runtime overhead, decode buffers, and the
	// worker pool's in-flight jobs. Estimated as current Sys usage plus a
	// fixed 512 MB buffer.
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	overhead := m.Sys + 512*1024*1024

	budget := int64(float64(totalRAM)*fraction) - int64(overhead)
	if budget < 64*1024*1024 { // minimum 64 MB
		if verbose {
			log.Printf("computed cache budget too small (%.0f MB); falling back to a fixed default",
				float64(budget)/(1024*1024))
		}
		return 0
	}

	if verbose {
		log.Printf("cache memory budget: %.1f GB (%.0f%% of RAM minus %.1f GB overhead)",
			float64(budget)/(1024*1024*1024), fraction*100, float64(overhead)/(1024*1024*1024))
	}

	return budget
}
