package hdb_test

import (
	"github.com/opensap/hdb-go"
	"github.com/opensap/hdb-go/proxy"
)

// Example_proxyDialer shows how to route a Session's connection through a
// SOCKS5 proxy by plugging a *proxy.Dialer into Options.Dialer.
func Example_proxyDialer() {
	opts := hdb.Options{
		Host:     "hana.internal:30015",
		Username: "SYSTEM",
		Password: "secret",
		Dialer: proxy.NewDialer(&proxy.Config{
			Address: "socks5.internal:1080",
			User:    "proxyuser",
			Password: "proxypass",
		}),
	}
	_ = opts
	// Output:
}
