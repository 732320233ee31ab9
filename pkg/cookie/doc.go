// Package cookie builds and reads cookies with a shared set of attributes
// and optional HMAC-SHA256 signing.
//
// Cookies are returned as *http.Cookie values rather than written to a
// ResponseWriter so callers can attach them to a response that is not yet
// committed:
//
//	m, err := cookie.New(cookie.WithSecret(os.Getenv("COOKIE_SECRET")))
//	c := m.Cookie("session_id", token, 8*3600)
//	headers = append(headers, c.String())
//
//	token, err := m.Read(r, "session_id")
//	if errors.Is(err, cookie.ErrBadSig) {
//	    // tampered
//	}
package cookie
