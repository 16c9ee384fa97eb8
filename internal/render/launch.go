package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-rod/rod/lib/launcher"

	"pageturn/internal/services"
)

// launchStrategy is one way of obtaining a renderable browser engine. The
// concrete mechanism differs by deployment environment, so strategies are
// tried in order and the first success wins.
type launchStrategy interface {
	Name() string
	Launch() (string, *launcher.Launcher, error)
}

// launchStrategies returns the ordered fallback chain: an explicitly
// configured binary, then a system-installed Chrome/Chromium, then rod's
// managed download.
func launchStrategies(binary string) []launchStrategy {
	var strategies []launchStrategy
	if strings.TrimSpace(binary) != "" {
		strategies = append(strategies, configuredBinary{path: binary})
	}
	strategies = append(strategies, systemBrowser{}, managedDownload{})
	return strategies
}

func configureLauncher(l *launcher.Launcher) *launcher.Launcher {
	return l.
		Headless(true).
		NoSandbox(true).
		Set("disable-gpu").
		Set("hide-scrollbars").
		// Best-effort service worker bypass so navigations never hit a
		// stale client-side cache.
		Set("disable-features", "ServiceWorker,BackForwardCache")
}

type configuredBinary struct {
	path string
}

func (s configuredBinary) Name() string { return "configured binary" }

func (s configuredBinary) Launch() (string, *launcher.Launcher, error) {
	if _, err := os.Stat(s.path); err != nil {
		return "", nil, fmt.Errorf("browser binary %s: %w", s.path, err)
	}
	l := configureLauncher(launcher.New().Bin(s.path))
	url, err := l.Launch()
	if err != nil {
		l.Cleanup()
		return "", nil, err
	}
	return url, l, nil
}

type systemBrowser struct{}

func (s systemBrowser) Name() string { return "system browser" }

func (s systemBrowser) Launch() (string, *launcher.Launcher, error) {
	path, found := launcher.LookPath()
	if !found {
		return "", nil, fmt.Errorf("no system chrome/chromium found")
	}
	l := configureLauncher(launcher.New().Bin(path))
	url, err := l.Launch()
	if err != nil {
		l.Cleanup()
		return "", nil, err
	}
	return url, l, nil
}

type managedDownload struct{}

func (s managedDownload) Name() string { return "managed download" }

func (s managedDownload) Launch() (string, *launcher.Launcher, error) {
	l := configureLauncher(launcher.New())
	url, err := l.Launch()
	if err != nil {
		l.Cleanup()
		return "", nil, err
	}
	return url, l, nil
}

// launchBrowser walks the strategy chain. When every strategy fails the
// returned error lists each attempt for diagnosis.
func launchBrowser(binary string) (string, *launcher.Launcher, string, error) {
	var failures []string
	for _, strategy := range launchStrategies(binary) {
		url, l, err := strategy.Launch()
		if err == nil {
			return url, l, strategy.Name(), nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", strategy.Name(), err))
	}
	return "", nil, "", services.Wrap(services.ErrBrowserLaunch, "render", "launch browser",
		"all strategies failed: "+strings.Join(failures, "; "), nil)
}
