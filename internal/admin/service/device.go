package service

import (
	"strings"

	"github.com/mssola/useragent"
)

// deviceLabel renders a short human label such as "Firefox on Linux" for
// the operator session list.
func deviceLabel(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "bot"
	}
	browser, _ := ua.Browser()
	osName := ua.OSInfo().Name
	switch {
	case browser != "" && osName != "":
		return browser + " on " + osName
	case browser != "":
		return browser
	default:
		return osName
	}
}
