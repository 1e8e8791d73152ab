package entity

import (
	"net/url"
	"time"
)

// Address mirrors the `addresses` PostgreSQL table schema.
// URL is always stored in normalized form and is unique.
type Address struct {
	ID        int64
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Netloc returns the host[:port] part of the address URL.
func (a *Address) Netloc() string {
	u, err := url.Parse(a.URL)
	if err != nil {
		return ""
	}
	return u.Host
}
