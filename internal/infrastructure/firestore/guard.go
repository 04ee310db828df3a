package firestore

import (
	"sync"

	gfs "cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"propertigo/pkg/logger"
)

// ProbeFunc attempts to obtain a usable Firestore client handle. It is
// allowed to fail loudly; the guard runs it at most once.
type ProbeFunc func() (*gfs.Client, error)

// Guard memoizes whether the realtime backend is usable in this process.
// The probe is observably expensive and can fail, so every component
// consults the cached answer instead of re-probing. The flag lives for the
// process lifetime; only a restart resets it.
type Guard struct {
	probe ProbeFunc

	once      sync.Once
	client    *gfs.Client
	available bool
}

func NewGuard(probe ProbeFunc) *Guard {
	return &Guard{probe: probe}
}

// Available reports whether the backend client could be obtained. First
// call runs the probe; later calls return the cached result.
func (g *Guard) Available() bool {
	g.run()
	return g.available
}

// Client returns the probed handle, or nil when the backend is unavailable.
// Callers must check Available first or tolerate nil.
func (g *Guard) Client() *gfs.Client {
	g.run()
	return g.client
}

func (g *Guard) run() {
	g.once.Do(func() {
		client, err := g.probe()
		if err != nil {
			g.available = false
			switch status.Code(err) {
			case codes.Unauthenticated, codes.PermissionDenied:
				logger.Warn("realtime backend probe failed: credentials rejected: %v", err)
			case codes.Unimplemented:
				logger.Warn("realtime backend probe failed: transport not supported in this runtime: %v", err)
			default:
				logger.Warn("realtime backend probe failed: %v", err)
			}
			return
		}
		g.client = client
		g.available = true
		logger.Info("realtime backend available")
	})
}
