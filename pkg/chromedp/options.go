package chromedp

import (
	"os"

	"github.com/chromedp/chromedp"
)

const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36"

// GetExecAllocatorOptions returns chromedp options that work both locally and in Docker.
// A visible browser is needed when the user has to complete CAPTCHA or 2FA by hand.
func GetExecAllocatorOptions(headless bool) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("window-size", "1440,1000"),
		chromedp.UserAgent(UserAgent),

		chromedp.Flag("disable-features", "site-per-process,TranslateUI"),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("password-store", "basic"),
		chromedp.Flag("use-mock-keychain", true),
	}

	if headless {
		opts = append(opts,
			chromedp.Flag("headless", "new"),
			chromedp.Flag("hide-scrollbars", true),
			chromedp.Flag("mute-audio", true),
		)
	}

	// In Docker container, find the Chrome/Chromium executable
	chromePaths := []string{
		"/headless-shell/headless-shell", // chromedp/headless-shell
		"/usr/bin/chromium-browser",      // zenika/alpine-chrome
		"/usr/bin/chromium",              // some alpine images
		"/usr/bin/google-chrome",         // debian-based images
		"/usr/bin/google-chrome-stable",  // debian-based images
	}
	for _, p := range chromePaths {
		if _, err := os.Stat(p); err == nil {
			opts = append(opts, chromedp.ExecPath(p))
			break
		}
	}

	return opts
}

// GetStealthScripts returns JavaScript code to inject for anti-detection
func GetStealthScripts() string {
	return `
		Object.defineProperty(navigator, 'webdriver', {
			get: () => undefined,
		});

		Object.defineProperty(navigator, 'languages', {
			get: () => ['en-GB', 'en-US', 'en'],
		});

		Object.defineProperty(navigator, 'platform', {
			get: () => 'MacIntel',
		});

		if (!window.chrome) {
			window.chrome = {};
		}
		if (!window.chrome.runtime) {
			window.chrome.runtime = {
				connect: () => {},
				sendMessage: () => {},
			};
		}

		const originalQuery = window.navigator.permissions.query;
		window.navigator.permissions.query = (parameters) => (
			parameters.name === 'notifications' ?
				Promise.resolve({ state: Notification.permission }) :
				originalQuery(parameters)
		);
	`
}
