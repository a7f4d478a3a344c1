package session

import (
	"net/http"
	"time"
)

const (
	TokenCookieName  = "access_token"
	DeviceCookieName = "device_id"
)

// SetCookies issues the session cookies to the client. The device id
// is readable by the client so it can also be replayed as a header.
func SetCookies(w http.ResponseWriter, token, deviceID string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     DeviceCookieName,
		Value:    deviceID,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookies removes the session cookies from the client.
func ClearCookies(w http.ResponseWriter) {
	for _, name := range []string{TokenCookieName, DeviceCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == TokenCookieName,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
